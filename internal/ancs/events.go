package ancs

// Event is a transport, discovery or provider event consumed by the engine loop.
type Event interface {
	eventName() string
}

// Connected reports a new peer connection.
type Connected struct {
	Conn ConnHandle
	Peer string
}

// Disconnected reports the end of a peer connection.
type Disconnected struct {
	Conn   ConnHandle
	Peer   string
	Reason uint8
}

// PairRequest asks the engine to accept or reject pairing.
type PairRequest struct {
	Conn ConnHandle
	Bond bool
}

// SecurityLevelChanged confirms a security level change on the link.
type SecurityLevelChanged struct {
	Conn  ConnHandle
	Level SecurityLevel
}

// MTUChanged reports a completed MTU exchange.
type MTUChanged struct {
	Conn ConnHandle
	MTU  uint16
}

// ServiceFound reports one service discovered during a browse pass.
type ServiceFound struct {
	Conn    ConnHandle
	Service Service
}

// BrowseCompleted ends a browse pass.
type BrowseCompleted struct {
	Conn   ConnHandle
	Status Status
}

// ServiceChanged is a service-changed indication from the GATT service.
type ServiceChanged struct {
	Conn  ConnHandle
	Range HandleRange
}

// EventStateCompleted completes a subscription enable or disable.
type EventStateCompleted struct {
	Kind   EventKind
	Status Status
}

// NotificationAdded is a Notification Source "added" event.
type NotificationAdded struct {
	ID   NotificationID
	Data NotificationData
}

// NotificationModified is a Notification Source "modified" event.
type NotificationModified struct {
	ID   NotificationID
	Data NotificationData
}

// NotificationRemoved is a Notification Source "removed" event.
type NotificationRemoved struct {
	ID NotificationID
}

// NotificationAttribute carries one attribute value of a notification.
type NotificationAttribute struct {
	ID    NotificationID
	Attr  NotificationAttr
	Value string
}

// NotificationAttributesCompleted ends a notification attribute request.
type NotificationAttributesCompleted struct {
	ID     NotificationID
	Status Status
}

// ApplicationAttribute carries one attribute value of an application.
type ApplicationAttribute struct {
	AppID string
	Attr  AppAttr
	Value string
}

// ApplicationAttributesCompleted ends an application attribute request.
type ApplicationAttributesCompleted struct {
	AppID  string
	Status Status
}

// ActionCompleted ends a perform-action request.
type ActionCompleted struct {
	Status Status
}

func (Connected) eventName() string                       { return "connected" }
func (Disconnected) eventName() string                    { return "disconnected" }
func (PairRequest) eventName() string                     { return "pair-request" }
func (SecurityLevelChanged) eventName() string            { return "security-level-changed" }
func (MTUChanged) eventName() string                      { return "mtu-changed" }
func (ServiceFound) eventName() string                    { return "service-found" }
func (BrowseCompleted) eventName() string                 { return "browse-completed" }
func (ServiceChanged) eventName() string                  { return "service-changed" }
func (EventStateCompleted) eventName() string             { return "event-state-completed" }
func (NotificationAdded) eventName() string               { return "notification-added" }
func (NotificationModified) eventName() string            { return "notification-modified" }
func (NotificationRemoved) eventName() string             { return "notification-removed" }
func (NotificationAttribute) eventName() string           { return "notification-attribute" }
func (NotificationAttributesCompleted) eventName() string { return "notification-attributes-completed" }
func (ApplicationAttribute) eventName() string            { return "application-attribute" }
func (ApplicationAttributesCompleted) eventName() string  { return "application-attributes-completed" }
func (ActionCompleted) eventName() string                 { return "action-completed" }
