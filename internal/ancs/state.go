package ancs

import "fmt"

// ConnState is the peer connection lifecycle as seen by the engine.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateBrowsing
	StateBrowseComplete
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBrowsing:
		return "browsing"
	case StateBrowseComplete:
		return "browse-complete"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type securityActionKind int

const (
	securityActionNone securityActionKind = iota
	securityActionResumeSubscription
	securityActionResumeFetch
)

// PendingSecurityAction is the single operation to replay after a security upgrade.
type PendingSecurityAction struct {
	kind  securityActionKind
	event EventKind
}

// NoSecurityAction is the empty latch.
var NoSecurityAction = PendingSecurityAction{}

// ResumeEventSubscription latches a subscription enable for kind.
func ResumeEventSubscription(kind EventKind) PendingSecurityAction {
	return PendingSecurityAction{kind: securityActionResumeSubscription, event: kind}
}

// ResumeAttributeFetch latches a pipeline advance.
func ResumeAttributeFetch() PendingSecurityAction {
	return PendingSecurityAction{kind: securityActionResumeFetch}
}

func (p PendingSecurityAction) IsNone() bool {
	return p.kind == securityActionNone
}

// Subscription returns the latched event kind when the action resumes a subscription.
func (p PendingSecurityAction) Subscription() (EventKind, bool) {
	return p.event, p.kind == securityActionResumeSubscription
}

func (p PendingSecurityAction) IsFetch() bool {
	return p.kind == securityActionResumeFetch
}

func (p PendingSecurityAction) String() string {
	switch p.kind {
	case securityActionResumeSubscription:
		return "resume-subscription(" + p.event.String() + ")"
	case securityActionResumeFetch:
		return "resume-fetch"
	}
	return "none"
}
