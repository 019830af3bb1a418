package ancs

import (
	"context"
	"errors"
	"sync"

	"github.com/cristianoliveira/ancs-intray/internal/logging"
)

// reasonRemoteUserTerminated is the HCI reason used when the engine drops the link.
const reasonRemoteUserTerminated = 0x13

type requestKind int

const (
	requestNone requestKind = iota
	requestNotification
	requestApplication
)

// request is the single outstanding attribute fetch.
type request struct {
	kind    requestKind
	id      NotificationID
	appID   string
	evicted bool
}

func (r request) matchesNotification(id NotificationID) bool {
	return r.kind == requestNotification && r.id == id
}

func (r request) matchesApplication(appID string) bool {
	return r.kind == requestApplication && r.appID == appID
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTimers replaces the timer implementation.
func WithTimers(after AfterFunc) Option {
	return func(e *Engine) {
		if after != nil {
			e.after = after
		}
	}
}

// WithMemoryProbe replaces the free-memory probe used for admission.
func WithMemoryProbe(p MemoryProbe) Option {
	return func(e *Engine) {
		if p != nil {
			e.memory = p
		}
	}
}

// WithStateObserver registers fn to be called from the loop on every state change.
func WithStateObserver(fn func(ConnState)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.observers = append(e.observers, fn)
		}
	}
}

// Engine is the notification synchronization engine for one peer at a time. All state
// below the wake-up channels is owned by the goroutine running Run.
type Engine struct {
	cfg       Config
	link      Link
	browser   Browser
	clients   ClientFactory
	sink      Sink
	logger    logging.Logger
	after     AfterFunc
	memory    MemoryProbe
	observers []func(ConnState)

	ctx          context.Context
	state        ConnState
	conn         ConnHandle
	mtuExchanged bool
	notifs       *NotificationCache
	apps         *ApplicationCache
	browses      BrowseQueue
	pending      *NotificationRecord
	lastID       NotificationID
	hasLast      bool
	security     PendingSecurityAction
	inflight     request
	cancelled    request
	notifClient  NotificationClient
	// subscribed is set once both sources of notifClient are enabled.
	subscribed   bool
	notifSvc     Service
	gattClient   GATTClient
	gattSvc      Service
	reqTimer     *oneShot
	browseTimer  *oneShot

	mu          sync.Mutex
	queue       []Event
	evReady     chan struct{}
	actions     chan Action
	reqFired    chan uint64
	browseFired chan uint64
	snapshots   chan chan Snapshot
	done        chan struct{}
	runOnce     sync.Once
}

// New creates an engine. Run must be called to start processing.
func New(cfg Config, deps Deps, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Link == nil || deps.Browser == nil || deps.Clients == nil || deps.Sink == nil {
		return nil, errors.New("ancs engine: link, browser, client factory and sink are required")
	}
	e := &Engine{
		cfg:         cfg,
		link:        deps.Link,
		browser:     deps.Browser,
		clients:     deps.Clients,
		sink:        deps.Sink,
		logger:      logging.GetGlobal(),
		after:       RealTimers,
		memory:      SoftLimitProbe,
		ctx:         context.Background(),
		conn:        InvalidConn,
		notifs:      NewNotificationCache(cfg.MaxQueued),
		apps:        NewApplicationCache(),
		evReady:     make(chan struct{}, 1),
		actions:     make(chan Action, 8),
		reqFired:    make(chan uint64, 4),
		browseFired: make(chan uint64, 4),
		snapshots:   make(chan chan Snapshot),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "ancs")
	e.reqTimer = newOneShot(cfg.RequestTimeout, e.after, func(gen uint64) { wake(e.reqFired, gen) })
	e.browseTimer = newOneShot(cfg.BrowseDelay, e.after, func(gen uint64) { wake(e.browseFired, gen) })
	return e, nil
}

func wake(ch chan uint64, gen uint64) {
	select {
	case ch <- gen:
	default:
	}
}

// Start makes the device discoverable.
func (e *Engine) Start() error {
	return e.link.StartAdvertising(e.advertisement())
}

func (e *Engine) advertisement() Advertisement {
	return Advertisement{
		LocalName:       e.cfg.DeviceName,
		SolicitServices: []Service{{UUID: ServiceANCS}},
		PreferredMTU:    e.cfg.PreferredMTU,
	}
}

// Post queues a transport or provider event. It is safe to call from any goroutine.
func (e *Engine) Post(ev Event) error {
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}
	e.mu.Lock()
	e.queue = append(e.queue, ev)
	e.mu.Unlock()
	e.signalEvents()
	return nil
}

func (e *Engine) signalEvents() {
	select {
	case e.evReady <- struct{}{}:
	default:
	}
}

// Trigger queues a user action on the most recently added notification.
func (e *Engine) Trigger(ctx context.Context, a Action) error {
	select {
	case e.actions <- a:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes wake-ups until ctx is cancelled. It may be called once.
func (e *Engine) Run(ctx context.Context) error {
	started := false
	e.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("ancs engine: already running")
	}
	defer close(e.done)

	e.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			e.reqTimer.stop()
			e.browseTimer.stop()
			return ctx.Err()
		case <-e.evReady:
			e.dispatchNext()
		case a := <-e.actions:
			e.handleAction(a)
		case gen := <-e.reqFired:
			e.handleRequestTimeout(gen)
		case gen := <-e.browseFired:
			e.handleBrowseDelay(gen)
		case reply := <-e.snapshots:
			reply <- e.snapshot()
		}
	}
}

// dispatchNext handles one queued event and re-signals if more are waiting, so other
// wake-up causes get a turn between events.
func (e *Engine) dispatchNext() {
	e.mu.Lock()
	if len(e.queue) == 0 {
		e.mu.Unlock()
		return
	}
	ev := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	more := len(e.queue) > 0
	e.mu.Unlock()

	e.handle(ev)

	if more {
		e.signalEvents()
	}
}

func (e *Engine) setState(s ConnState) {
	if e.state == s {
		return
	}
	e.logger.Debug("state changed", "from", e.state.String(), "to", s.String())
	e.state = s
	for _, fn := range e.observers {
		fn(s)
	}
}

// violation reports a collaborator contract breach.
func (e *Engine) violation(err error) {
	if e.cfg.Strict {
		panic(err)
	}
	e.logger.Error("protocol violation", "error", err)
}

func (e *Engine) handleAction(a Action) {
	if err := e.performAction(a); err != nil {
		e.logger.Warn("action ignored", "action", a.String(), "error", err)
	}
}

func (e *Engine) performAction(a Action) error {
	if e.notifClient == nil {
		return ErrNoClient
	}
	if !e.hasLast {
		return ErrNoNotification
	}
	e.logger.Info("performing action", "action", a.String(), "id", e.lastID.String())
	return e.notifClient.PerformAction(e.lastID, a)
}

// Snapshot is a point-in-time view of the engine for display.
type Snapshot struct {
	State           ConnState
	Queued          int
	Applications    int
	PendingBrowses  int
	FetchInFlight   bool
	PendingDisplay  bool
	PendingSecurity string
	LastID          NotificationID
	HasLast         bool
	ProviderBound   bool
}

func (e *Engine) snapshot() Snapshot {
	return Snapshot{
		State:           e.state,
		Queued:          e.notifs.Len(),
		Applications:    e.apps.Len(),
		PendingBrowses:  e.browses.Len(),
		FetchInFlight:   e.inflight.kind != requestNone,
		PendingDisplay:  e.pending != nil,
		PendingSecurity: e.security.String(),
		LastID:          e.lastID,
		HasLast:         e.hasLast,
		ProviderBound:   e.notifClient != nil,
	}
}

// Snapshot asks the loop for its current state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case e.snapshots <- reply:
	case <-e.done:
		return Snapshot{}, ErrEngineStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}
