package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/logging"
	"github.com/google/uuid"
)

// Service handle ranges on the simulated phone.
var (
	GATTRange = ancs.HandleRange{Start: 0x0010, End: 0x0014}
	ANCSRange = ancs.HandleRange{Start: 0x0030, End: 0x003f}
)

// Poster receives the events the phone produces. *ancs.Engine satisfies it.
type Poster interface {
	Post(ev ancs.Event) error
}

// delivery is one event waiting to be posted. Events owned by a client are dropped once
// that client's session is gone.
type delivery struct {
	ev    ancs.Event
	delay time.Duration
	owner *session
}

// session is one connection or one binding of the notification service. It goes stale when
// the link drops or the service moves, and events still queued for it are discarded.
type session struct {
	stale atomic.Bool
}

// PerformedAction records a user action received by the phone.
type PerformedAction struct {
	ID     ancs.NotificationID
	Action ancs.Action
}

// Peer is a simulated ANCS provider. It implements ancs.Link, ancs.Browser and
// ancs.ClientFactory; Run delivers its responses.
type Peer struct {
	sc     Scenario
	logger logging.Logger

	mu           sync.Mutex
	queue        []delivery
	ready        chan struct{}
	connected    bool
	connections  int
	level        ancs.SecurityLevel
	bonded       bool
	answered     int
	changedSent  bool
	announced    bool
	link         *session
	current      *session
	unresponsive map[ancs.NotificationID]bool
	byID         map[ancs.NotificationID]Notification
	actions      []PerformedAction
	cancels      int
	adverts      []ancs.Advertisement
}

// NewPeer creates a phone following sc.
func NewPeer(sc Scenario, logger logging.Logger) (*Peer, error) {
	if err := sc.normalize(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GetGlobal()
	}
	p := &Peer{
		sc:           sc,
		logger:       logger.With("component", "sim"),
		ready:        make(chan struct{}, 1),
		level:        ancs.SecurityLevel1,
		unresponsive: make(map[ancs.NotificationID]bool),
		byID:         make(map[ancs.NotificationID]Notification),
	}
	for _, id := range sc.Unresponsive {
		p.unresponsive[ancs.NotificationID(id)] = true
	}
	for _, n := range sc.Notifications {
		p.byID[ancs.NotificationID(n.ID)] = n
	}
	return p, nil
}

func (p *Peer) conn() ancs.ConnHandle {
	return ancs.ConnHandle(p.sc.Conn)
}

func (p *Peer) latency() time.Duration {
	return time.Duration(p.sc.LatencyMS) * time.Millisecond
}

// push queues events; the first one waits for the scenario latency. Callers hold p.mu.
func (p *Peer) push(owner *session, evs ...ancs.Event) {
	for i, ev := range evs {
		d := delivery{ev: ev, owner: owner}
		if i == 0 {
			d.delay = p.latency()
		}
		p.queue = append(p.queue, d)
	}
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

// Run posts queued events to target, in order, until ctx is done.
func (p *Peer) Run(ctx context.Context, target Poster) error {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.ready:
				continue
			}
		}
		d := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if d.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.delay):
			}
		}
		if d.owner != nil && d.owner.stale.Load() {
			continue
		}
		p.beforeDelivery(d.ev)
		if err := target.Post(d.ev); err != nil {
			return err
		}
	}
}

// beforeDelivery invalidates the notification service binding when the event that ends it
// leaves the phone, so that nothing answered for the old binding follows it.
func (p *Peer) beforeDelivery(ev ancs.Event) {
	switch ev.(type) {
	case ancs.ServiceChanged, ancs.Disconnected:
		p.mu.Lock()
		if p.current != nil {
			p.current.stale.Store(true)
			p.current = nil
		}
		if _, ok := ev.(ancs.Disconnected); ok && p.link != nil {
			p.link.stale.Store(true)
			p.link = nil
		}
		p.mu.Unlock()
	}
}

// StartAdvertising lets the phone connect: once, or on every call with Reconnect.
func (p *Peer) StartAdvertising(adv ancs.Advertisement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adverts = append(p.adverts, adv)
	if p.connected || (p.connections > 0 && !p.sc.Reconnect) {
		return nil
	}
	p.connected = true
	p.connections++
	p.level = ancs.SecurityLevel1
	p.answered = 0
	p.changedSent = false
	p.announced = false
	p.link = &session{}
	peer := p.sc.Peer + "/" + uuid.NewString()[:8]
	p.logger.Info("phone connecting", "peer", peer, "device", adv.LocalName)
	p.push(nil, ancs.Connected{Conn: p.conn(), Peer: peer})
	return nil
}

func (p *Peer) ExchangeMTU(conn ancs.ConnHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.push(nil, ancs.MTUChanged{Conn: conn, MTU: p.sc.MTU})
	return nil
}

func (p *Peer) SetSecurityLevel(conn ancs.ConnHandle, level ancs.SecurityLevel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var evs []ancs.Event
	if level > p.level {
		// Raising the level pairs first.
		if !p.bonded {
			evs = append(evs, ancs.PairRequest{Conn: conn, Bond: true})
		}
		p.level = level
	}
	evs = append(evs, ancs.SecurityLevelChanged{Conn: conn, Level: p.level})
	p.push(nil, evs...)
	return nil
}

func (p *Peer) PairReply(conn ancs.ConnHandle, accept, bond bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bonded = accept && bond
	return nil
}

func (p *Peer) Disconnect(conn ancs.ConnHandle, reason uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil
	}
	p.connected = false
	p.push(nil, ancs.Disconnected{Conn: conn, Peer: p.sc.Peer, Reason: reason})
	return nil
}

// Hangup drops the link from the phone side.
func (p *Peer) Hangup() {
	_ = p.Disconnect(p.conn(), 0x13)
}

func (p *Peer) services() []ancs.Service {
	return []ancs.Service{
		{UUID: ancs.ServiceGATT, Handles: GATTRange},
		{UUID: ancs.ServiceANCS, Handles: ANCSRange},
	}
}

func (p *Peer) Browse(conn ancs.ConnHandle) error {
	return p.BrowseRange(conn, ancs.HandleRange{Start: 0x0001, End: 0xffff})
}

func (p *Peer) BrowseRange(conn ancs.ConnHandle, r ancs.HandleRange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var evs []ancs.Event
	for _, svc := range p.services() {
		if svc.Handles.Overlaps(r) {
			evs = append(evs, ancs.ServiceFound{Conn: conn, Service: svc})
		}
	}
	evs = append(evs, ancs.BrowseCompleted{Conn: conn, Status: ancs.StatusOK})
	p.push(nil, evs...)
	return nil
}

func (p *Peer) NewNotificationClient(conn ancs.ConnHandle, svc ancs.Service) (ancs.NotificationClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &session{}
	p.current = s
	return &notificationClient{peer: p, conn: conn, sess: s}, nil
}

func (p *Peer) NewGATTClient(conn ancs.ConnHandle, svc ancs.Service) (ancs.GATTClient, error) {
	return &gattClient{}, nil
}

// authorized reports whether requests may be served at the current security level.
func (p *Peer) authorized() bool {
	return !p.sc.RequireAuth || p.level >= ancs.SecurityLevel2
}

// Actions returns the user actions received so far.
func (p *Peer) Actions() []PerformedAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PerformedAction(nil), p.actions...)
}

// Cancels returns how many outstanding requests the engine cancelled.
func (p *Peer) Cancels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancels
}

// Bonded reports whether pairing was accepted with bonding.
func (p *Peer) Bonded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bonded
}

// Advertisements returns every advertisement the device started.
func (p *Peer) Advertisements() []ancs.Advertisement {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ancs.Advertisement(nil), p.adverts...)
}

type notificationClient struct {
	peer *Peer
	conn ancs.ConnHandle
	sess *session
}

func (c *notificationClient) SetEventState(kind ancs.EventKind, enable bool) error {
	p := c.peer
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authorized() {
		p.push(c.sess, ancs.EventStateCompleted{Kind: kind, Status: ancs.StatusInsufficientAuthentication})
		return nil
	}
	p.push(c.sess, ancs.EventStateCompleted{Kind: kind, Status: ancs.StatusOK})
	if kind == ancs.EventNotificationSource && enable && !p.announced {
		p.announced = true
		c.announce()
	}
	return nil
}

// announce queues a notification source event for every notification, once per connection.
// The events belong to the link, not the binding, so a service change does not lose them.
// Callers hold p.mu.
func (c *notificationClient) announce() {
	p := c.peer
	resend := p.connections > 1
	interval := time.Duration(p.sc.IntervalMS) * time.Millisecond
	for _, n := range p.sc.Notifications {
		p.queue = append(p.queue, delivery{
			ev:    ancs.NotificationAdded{ID: ancs.NotificationID(n.ID), Data: n.data(resend)},
			delay: interval,
			owner: p.link,
		})
	}
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

func (c *notificationClient) GetNotificationAttributes(id ancs.NotificationID, attrs []ancs.AttrRequest) error {
	p := c.peer
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authorized() {
		p.push(c.sess, ancs.NotificationAttributesCompleted{ID: id, Status: ancs.StatusInsufficientAuthentication})
		return nil
	}
	if p.unresponsive[id] {
		p.logger.Debug("leaving request unanswered", "id", id.String())
		return nil
	}
	n, ok := p.byID[id]
	if !ok {
		p.push(c.sess, ancs.NotificationAttributesCompleted{ID: id, Status: ancs.StatusInvalidParameter})
		return nil
	}

	evs := make([]ancs.Event, 0, len(attrs)+2)
	for _, a := range attrs {
		if v, ok := n.attribute(a.Attr, a.MaxLen); ok {
			evs = append(evs, ancs.NotificationAttribute{ID: id, Attr: a.Attr, Value: v})
		}
	}
	evs = append(evs, ancs.NotificationAttributesCompleted{ID: id, Status: ancs.StatusOK})

	p.answered++
	if p.sc.ServiceChangedAfter > 0 && p.answered == p.sc.ServiceChangedAfter && !p.changedSent {
		p.changedSent = true
		evs = append(evs, ancs.ServiceChanged{Conn: c.conn, Range: ANCSRange})
	}
	p.push(c.sess, evs...)
	return nil
}

func (c *notificationClient) GetApplicationAttributes(appID string, attrs []ancs.AppAttr) error {
	p := c.peer
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authorized() {
		p.push(c.sess, ancs.ApplicationAttributesCompleted{AppID: appID, Status: ancs.StatusInsufficientAuthentication})
		return nil
	}
	var evs []ancs.Event
	if name, ok := p.sc.Apps[appID]; ok {
		for _, a := range attrs {
			if a == ancs.AppAttrDisplayName {
				evs = append(evs, ancs.ApplicationAttribute{AppID: appID, Attr: a, Value: name})
			}
		}
	}
	evs = append(evs, ancs.ApplicationAttributesCompleted{AppID: appID, Status: ancs.StatusOK})
	p.push(c.sess, evs...)
	return nil
}

func (c *notificationClient) PerformAction(id ancs.NotificationID, action ancs.Action) error {
	p := c.peer
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, PerformedAction{ID: id, Action: action})
	evs := []ancs.Event{ancs.ActionCompleted{Status: ancs.StatusOK}}
	if action == ancs.ActionNegative {
		evs = append(evs, ancs.NotificationRemoved{ID: id})
	}
	p.push(c.sess, evs...)
	return nil
}

func (c *notificationClient) CancelRequest() error {
	p := c.peer
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels++
	return nil
}

func (c *notificationClient) Close() {
	c.sess.stale.Store(true)
}

type gattClient struct{}

func (gattClient) SetServiceChangedIndications(bool) error { return nil }
func (gattClient) Close()                                  {}
