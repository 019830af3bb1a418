package ancs

import (
	"context"

	"github.com/cristianoliveira/ancs-intray/internal/logging"
)

// Link is the transport's connection management surface.
type Link interface {
	StartAdvertising(adv Advertisement) error
	ExchangeMTU(conn ConnHandle) error
	SetSecurityLevel(conn ConnHandle, level SecurityLevel) error
	PairReply(conn ConnHandle, accept, bond bool) error
	Disconnect(conn ConnHandle, reason uint8) error
}

// Advertisement is what the engine asks the transport to advertise.
type Advertisement struct {
	LocalName       string
	SolicitServices []Service
	PreferredMTU    uint16
}

// Browser runs service discovery passes. Results arrive as ServiceFound events followed
// by one BrowseCompleted.
type Browser interface {
	Browse(conn ConnHandle) error
	BrowseRange(conn ConnHandle, r HandleRange) error
}

// NotificationClient talks to a bound notification provider service. Every request
// completes asynchronously through an event posted to the engine.
type NotificationClient interface {
	SetEventState(kind EventKind, enable bool) error
	GetNotificationAttributes(id NotificationID, attrs []AttrRequest) error
	GetApplicationAttributes(appID string, attrs []AppAttr) error
	PerformAction(id NotificationID, action Action) error
	CancelRequest() error
	Close()
}

// GATTClient talks to the peer's Generic Attribute service.
type GATTClient interface {
	SetServiceChangedIndications(enable bool) error
	Close()
}

// ClientFactory binds clients to discovered services.
type ClientFactory interface {
	NewNotificationClient(conn ConnHandle, svc Service) (NotificationClient, error)
	NewGATTClient(conn ConnHandle, svc Service) (GATTClient, error)
}

// Sink receives each fully resolved notification exactly once.
type Sink interface {
	Emit(ctx context.Context, n Resolved) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Resolved) error

func (f SinkFunc) Emit(ctx context.Context, n Resolved) error {
	return f(ctx, n)
}

// Sinks fans a notification out to several sinks. A failing sink is logged and does not
// stop delivery to the others.
type Sinks struct {
	sinks  []Sink
	logger logging.Logger
}

func NewSinks(logger logging.Logger, sinks ...Sink) *Sinks {
	if logger == nil {
		logger = logging.GetGlobal()
	}
	return &Sinks{sinks: sinks, logger: logger}
}

// Add appends a sink.
func (s *Sinks) Add(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

func (s *Sinks) Emit(ctx context.Context, n Resolved) error {
	for _, sink := range s.sinks {
		if err := sink.Emit(ctx, n); err != nil {
			s.logger.Warn("sink failed", "id", n.ID.String(), "error", err)
		}
	}
	return nil
}

// Deps are the collaborators an engine needs.
type Deps struct {
	Link    Link
	Browser Browser
	Clients ClientFactory
	Sink    Sink
}
