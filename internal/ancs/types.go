// Package ancs implements the consumer side of the Apple Notification Center Service:
// a single-peer engine that drives discovery, event subscription and attribute retrieval,
// and hands fully resolved notifications to a Sink.
package ancs

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NotificationID is the provider-assigned notification UID.
type NotificationID uint32

func (id NotificationID) String() string {
	return fmt.Sprintf("0x%08x", uint32(id))
}

// ConnHandle identifies a peer connection at the transport.
type ConnHandle uint16

// InvalidConn marks the absence of an active connection.
const InvalidConn ConnHandle = 0xffff

// Category is the notification category sent with a Notification Source event.
type Category uint8

const (
	CategoryOther Category = iota
	CategoryIncomingCall
	CategoryMissedCall
	CategoryVoicemail
	CategorySocial
	CategorySchedule
	CategoryEmail
	CategoryNews
	CategoryHealthAndFitness
	CategoryBusinessAndFinance
	CategoryLocation
	CategoryEntertainment
)

var categoryNames = map[Category]string{
	CategoryOther:              "Other",
	CategoryIncomingCall:       "Incoming call",
	CategoryMissedCall:         "Missed call",
	CategoryVoicemail:          "Voicemail",
	CategorySocial:             "Social",
	CategorySchedule:           "Schedule",
	CategoryEmail:              "E-mail",
	CategoryNews:               "News",
	CategoryHealthAndFitness:   "Health and Fitness",
	CategoryBusinessAndFinance: "Business and Finance",
	CategoryLocation:           "Location",
	CategoryEntertainment:      "Entertainment",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "<unknown>"
}

// ParseCategory resolves a category by its display name, ignoring case.
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return CategoryOther, fmt.Errorf("unknown category %q", name)
}

// EventFlags are the Notification Source event flags.
type EventFlags uint8

const (
	FlagSilent         EventFlags = 1 << 0
	FlagImportant      EventFlags = 1 << 1
	FlagPreExisting    EventFlags = 1 << 2
	FlagPositiveAction EventFlags = 1 << 3
	FlagNegativeAction EventFlags = 1 << 4
)

// Has reports whether all bits of f are set.
func (e EventFlags) Has(f EventFlags) bool {
	return e&f == f
}

// NotificationData is the provider metadata copied verbatim from an "added" event.
type NotificationData struct {
	Category      Category
	Flags         EventFlags
	CategoryCount uint8
}

// NotificationAttr identifies a notification attribute.
type NotificationAttr uint8

const (
	AttrAppIdentifier NotificationAttr = iota
	AttrTitle
	AttrSubtitle
	AttrMessage
	AttrMessageSize
	AttrDate
	AttrPositiveActionLabel
	AttrNegativeActionLabel
)

// AttrRequest asks for one notification attribute; MaxLen is sent only when non-zero.
type AttrRequest struct {
	Attr   NotificationAttr
	MaxLen uint16
}

// AppAttr identifies an application attribute.
type AppAttr uint8

const (
	AppAttrDisplayName AppAttr = iota
)

// Action is a user action performed on a notification.
type Action uint8

const (
	ActionPositive Action = iota
	ActionNegative
)

func (a Action) String() string {
	switch a {
	case ActionPositive:
		return "positive"
	case ActionNegative:
		return "negative"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// EventKind selects which provider characteristic a subscription enables.
type EventKind uint8

const (
	EventDataSource EventKind = iota
	EventNotificationSource
)

func (k EventKind) String() string {
	switch k {
	case EventDataSource:
		return "data-source"
	case EventNotificationSource:
		return "notification-source"
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// SecurityLevel is the link security level of LE security mode 1, starting at 1.
type SecurityLevel uint8

const (
	SecurityLevel1 SecurityLevel = iota + 1
	SecurityLevel2
	SecurityLevel3
	SecurityLevel4
)

// HandleRange is an attribute handle range, inclusive on both ends.
type HandleRange struct {
	Start uint16
	End   uint16
}

// Overlaps reports whether r and o share at least one handle.
func (r HandleRange) Overlaps(o HandleRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

func (r HandleRange) String() string {
	return fmt.Sprintf("0x%04x-0x%04x", r.Start, r.End)
}

// Service is a discovered primary service.
type Service struct {
	UUID    uuid.UUID
	Handles HandleRange
}

var (
	// ServiceANCS is the Apple Notification Center Service UUID.
	ServiceANCS = uuid.MustParse("7905F431-B5CE-4E99-A40F-4B1E122D00D0")
	// ServiceGATT is the Generic Attribute service (0x1801) on the Bluetooth base UUID.
	ServiceGATT = uuid.MustParse("00001801-0000-1000-8000-00805F9B34FB")
)

// Resolved is a notification whose attributes were fully retrieved.
type Resolved struct {
	ID       NotificationID
	Category Category
	Flags    EventFlags
	AppID    string
	AppName  string
	Date     string
	Title    string
	Message  string
}

// UnknownName is printed in place of an application name or id that could not be resolved.
const UnknownName = "<unknown>"
