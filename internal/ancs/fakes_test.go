package ancs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type disconnectCall struct {
	Conn   ConnHandle
	Reason uint8
}

type fakeLink struct {
	mu          sync.Mutex
	adverts     []Advertisement
	mtu         []ConnHandle
	security    []SecurityLevel
	pairReplies []bool
	disconnects []disconnectCall
}

func (l *fakeLink) StartAdvertising(adv Advertisement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adverts = append(l.adverts, adv)
	return nil
}

func (l *fakeLink) ExchangeMTU(conn ConnHandle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mtu = append(l.mtu, conn)
	return nil
}

func (l *fakeLink) SetSecurityLevel(conn ConnHandle, level SecurityLevel) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.security = append(l.security, level)
	return nil
}

func (l *fakeLink) PairReply(conn ConnHandle, accept, bond bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pairReplies = append(l.pairReplies, accept && bond)
	return nil
}

func (l *fakeLink) Disconnect(conn ConnHandle, reason uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnects = append(l.disconnects, disconnectCall{conn, reason})
	return nil
}

func (l *fakeLink) advertCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.adverts)
}

type fakeBrowser struct {
	mu     sync.Mutex
	full   int
	ranges []HandleRange
}

func (b *fakeBrowser) Browse(conn ConnHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.full++
	return nil
}

func (b *fakeBrowser) BrowseRange(conn ConnHandle, r HandleRange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ranges = append(b.ranges, r)
	return nil
}

type eventStateCall struct {
	Kind   EventKind
	Enable bool
}

type actionCall struct {
	ID     NotificationID
	Action Action
}

type fakeNotifClient struct {
	mu          sync.Mutex
	eventStates []eventStateCall
	attrReqs    []NotificationID
	lastAttrs   []AttrRequest
	appReqs     []string
	actions     []actionCall
	cancels     int
	closed      bool
	failAttrs   map[NotificationID]error
}

func (c *fakeNotifClient) SetEventState(kind EventKind, enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventStates = append(c.eventStates, eventStateCall{kind, enable})
	return nil
}

func (c *fakeNotifClient) GetNotificationAttributes(id NotificationID, attrs []AttrRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failAttrs[id]; err != nil {
		return err
	}
	c.attrReqs = append(c.attrReqs, id)
	c.lastAttrs = attrs
	return nil
}

func (c *fakeNotifClient) GetApplicationAttributes(appID string, attrs []AppAttr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appReqs = append(c.appReqs, appID)
	return nil
}

func (c *fakeNotifClient) PerformAction(id NotificationID, action Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, actionCall{id, action})
	return nil
}

func (c *fakeNotifClient) CancelRequest() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels++
	return nil
}

func (c *fakeNotifClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeNotifClient) requests() []NotificationID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]NotificationID(nil), c.attrReqs...)
}

type fakeGATTClient struct {
	indications []bool
	closed      bool
}

func (g *fakeGATTClient) SetServiceChangedIndications(enable bool) error {
	g.indications = append(g.indications, enable)
	return nil
}

func (g *fakeGATTClient) Close() { g.closed = true }

type fakeFactory struct {
	mu    sync.Mutex
	notif []*fakeNotifClient
	gatt  []*fakeGATTClient
}

func (f *fakeFactory) NewNotificationClient(conn ConnHandle, svc Service) (NotificationClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeNotifClient{failAttrs: map[NotificationID]error{}}
	f.notif = append(f.notif, c)
	return c, nil
}

func (f *fakeFactory) NewGATTClient(conn ConnHandle, svc Service) (GATTClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &fakeGATTClient{}
	f.gatt = append(f.gatt, g)
	return g, nil
}

func (f *fakeFactory) lastNotif() *fakeNotifClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.notif) == 0 {
		return nil
	}
	return f.notif[len(f.notif)-1]
}

// manualTimer never fires on its own; tests call fire.
type manualTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	was := !m.stopped
	m.stopped = true
	return was
}

type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (m *manualTimers) after(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{d: d, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// last returns the most recent timer armed with duration d.
func (m *manualTimers) last(d time.Duration) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.timers) - 1; i >= 0; i-- {
		if m.timers[i].d == d {
			return m.timers[i]
		}
	}
	return nil
}

func (m *manualTimers) count(d time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if t.d == d {
			n++
		}
	}
	return n
}

type recordingSink struct {
	mu       sync.Mutex
	resolved []Resolved
}

func (s *recordingSink) Emit(_ context.Context, n Resolved) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, n)
	return nil
}

func (s *recordingSink) all() []Resolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Resolved(nil), s.resolved...)
}

const (
	testConn           ConnHandle = 3
	testRequestTimeout            = 10 * time.Second
	testBrowseDelay               = time.Second
)

var (
	testANCS = Service{UUID: ServiceANCS, Handles: HandleRange{Start: 0x0030, End: 0x003f}}
	testGATT = Service{UUID: ServiceGATT, Handles: HandleRange{Start: 0x0010, End: 0x0014}}
)

// harness drives an Engine synchronously: events are handled on the test goroutine and
// timer wake-ups are delivered by hand.
type harness struct {
	t       *testing.T
	e       *Engine
	link    *fakeLink
	browser *fakeBrowser
	factory *fakeFactory
	timers  *manualTimers
	sink    *recordingSink
	states  []ConnState
	free    uint64
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RequestTimeout = testRequestTimeout
	cfg.BrowseDelay = testBrowseDelay
	cfg.Strict = true
	return cfg
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		t:       t,
		link:    &fakeLink{},
		browser: &fakeBrowser{},
		factory: &fakeFactory{},
		timers:  &manualTimers{},
		sink:    &recordingSink{},
		free:    1 << 30,
	}
	e, err := New(cfg, Deps{Link: h.link, Browser: h.browser, Clients: h.factory, Sink: h.sink},
		WithTimers(h.timers.after),
		WithMemoryProbe(func() uint64 { return h.free }),
		WithStateObserver(func(s ConnState) { h.states = append(h.states, s) }),
	)
	require.NoError(t, err)
	h.e = e
	return h
}

func (h *harness) send(evs ...Event) {
	for _, ev := range evs {
		h.e.handle(ev)
	}
}

func (h *harness) client() *fakeNotifClient {
	c := h.factory.lastNotif()
	require.NotNil(h.t, c, "no notification client bound")
	return c
}

// fireBrowseDelay expires the current browse-delay timer and delivers its wake-up.
func (h *harness) fireBrowseDelay() {
	h.t.Helper()
	tm := h.timers.last(testBrowseDelay)
	require.NotNil(h.t, tm)
	tm.fn()
	select {
	case gen := <-h.e.browseFired:
		h.e.handleBrowseDelay(gen)
	default:
		h.t.Fatal("browse delay wake-up not posted")
	}
}

// fireTimer delivers the wake-up of a specific request timer, current or stale.
func (h *harness) fireTimer(tm *manualTimer) {
	h.t.Helper()
	require.NotNil(h.t, tm)
	tm.fn()
	select {
	case gen := <-h.e.reqFired:
		h.e.handleRequestTimeout(gen)
	default:
		h.t.Fatal("request timeout wake-up not posted")
	}
}

func (h *harness) fireRequestTimeout() {
	h.t.Helper()
	h.fireTimer(h.timers.last(testRequestTimeout))
}

func (h *harness) connect() {
	h.t.Helper()
	h.send(Connected{Conn: testConn, Peer: "phone"}, MTUChanged{Conn: testConn, MTU: 128})
	h.fireBrowseDelay()
	h.send(
		ServiceFound{Conn: testConn, Service: testGATT},
		ServiceFound{Conn: testConn, Service: testANCS},
		BrowseCompleted{Conn: testConn, Status: StatusOK},
	)
}

// subscribe completes both subscriptions on the bound client.
func (h *harness) subscribe() {
	h.send(
		EventStateCompleted{Kind: EventDataSource, Status: StatusOK},
		EventStateCompleted{Kind: EventNotificationSource, Status: StatusOK},
	)
}

func (h *harness) ready() {
	h.t.Helper()
	h.connect()
	h.subscribe()
}

func (h *harness) add(id NotificationID) {
	h.send(NotificationAdded{ID: id, Data: NotificationData{Category: CategorySocial}})
}

// answer streams attribute values and completes the request for id.
func (h *harness) answer(id NotificationID, appID, title string) {
	if appID != "" {
		h.send(NotificationAttribute{ID: id, Attr: AttrAppIdentifier, Value: appID})
	}
	h.send(
		NotificationAttribute{ID: id, Attr: AttrDate, Value: "20261019T101500"},
		NotificationAttribute{ID: id, Attr: AttrTitle, Value: title},
		NotificationAttribute{ID: id, Attr: AttrMessage, Value: "msg " + title},
		NotificationAttributesCompleted{ID: id, Status: StatusOK},
	)
}

func (h *harness) answerApp(appID, name string) {
	h.send(
		ApplicationAttribute{AppID: appID, Attr: AppAttrDisplayName, Value: name},
		ApplicationAttributesCompleted{AppID: appID, Status: StatusOK},
	)
}
