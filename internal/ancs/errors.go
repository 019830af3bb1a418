package ancs

import (
	"errors"
	"fmt"
)

// Status is the ATT status byte reported by request completions.
type Status uint8

const (
	StatusOK                          Status = 0x00
	StatusInvalidHandle               Status = 0x01
	StatusReadNotPermitted            Status = 0x02
	StatusWriteNotPermitted           Status = 0x03
	StatusInvalidPDU                  Status = 0x04
	StatusInsufficientAuthentication  Status = 0x05
	StatusRequestNotSupported         Status = 0x06
	StatusInvalidOffset               Status = 0x07
	StatusInsufficientAuthorization   Status = 0x08
	StatusAttributeNotFound           Status = 0x0A
	StatusUnlikelyError               Status = 0x0E
	StatusInsufficientEncryption      Status = 0x0F
	StatusInsufficientResources       Status = 0x11
	StatusUnknownCommand              Status = 0xA0 // ANCS application error
	StatusInvalidCommand              Status = 0xA1
	StatusInvalidParameter            Status = 0xA2
	StatusActionFailed                Status = 0xA3
	StatusTimeout                     Status = 0xFF // request cancelled locally
)

var statusNames = map[Status]string{
	StatusOK:                         "OK",
	StatusInvalidHandle:              "Invalid Handle",
	StatusReadNotPermitted:           "Read Not Permitted",
	StatusWriteNotPermitted:          "Write Not Permitted",
	StatusInvalidPDU:                 "Invalid PDU",
	StatusInsufficientAuthentication: "Insufficient Authentication",
	StatusRequestNotSupported:        "Request Not Supported",
	StatusInvalidOffset:              "Invalid Offset",
	StatusInsufficientAuthorization:  "Insufficient Authorization",
	StatusAttributeNotFound:          "Attribute Not Found",
	StatusUnlikelyError:              "Unlikely Error",
	StatusInsufficientEncryption:     "Insufficient Encryption",
	StatusInsufficientResources:      "Insufficient Resources",
	StatusUnknownCommand:             "Unknown Command",
	StatusInvalidCommand:             "Invalid Command",
	StatusInvalidParameter:           "Invalid Parameter",
	StatusActionFailed:               "Action Failed",
	StatusTimeout:                    "Timeout",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Status (0x%02X)", uint8(s))
}

// OK reports whether the status is a success.
func (s Status) OK() bool {
	return s == StatusOK
}

var (
	// ErrNoConnection indicates an operation that needs an active peer connection.
	ErrNoConnection = errors.New("no active connection")
	// ErrNoClient indicates the notification provider service is not bound.
	ErrNoClient = errors.New("notification provider not bound")
	// ErrProtocolViolation indicates a collaborator broke the request/completion contract.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrEngineStopped is returned when posting to an engine whose loop has exited.
	ErrEngineStopped = errors.New("engine stopped")
	// ErrNoNotification indicates a user action with no notification to act on.
	ErrNoNotification = errors.New("no notification to act on")
)

// ProtocolError describes a completion that does not match any outstanding request.
type ProtocolError struct {
	Op string
	ID string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v: %s completed for %s which was not requested", ErrProtocolViolation, e.Op, e.ID)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocolViolation
}
