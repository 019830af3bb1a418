// Package feed streams resolved notifications to websocket clients and accepts user
// actions from them.
package feed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/logging"
	"github.com/gorilla/websocket"
)

// Event types sent to clients.
const (
	EventNotification = "notification"
	EventAck          = "ack"
	EventError        = "error"
)

// Path is where the hub is mounted by Listen.
const Path = "/ws"

const writeTimeout = 100 * time.Millisecond

// Event is one message sent to a client.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notification is the payload of a notification event.
type Notification struct {
	ID       uint32 `json:"id"`
	AppID    string `json:"app_id"`
	AppName  string `json:"app_name"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Positive bool   `json:"positive_action"`
	Negative bool   `json:"negative_action"`
}

// Command is a message a client sends, e.g. {"action":"negative"}.
type Command struct {
	Action string `json:"action"`
}

// Trigger performs a user action on the last admitted notification.
type Trigger interface {
	Trigger(ctx context.Context, a ancs.Action) error
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(ev)
}

// Hub is an ancs.Sink and an http.Handler.
type Hub struct {
	logger   logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	trigger Trigger
}

// NewHub creates an empty hub.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.GetGlobal()
	}
	return &Hub{
		logger:  logger.With("component", "feed"),
		clients: make(map[*client]struct{}),
	}
}

// SetTrigger routes client commands to t. Without one, commands are refused.
func (h *Hub) SetTrigger(t Trigger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trigger = t
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Emit implements ancs.Sink.
func (h *Hub) Emit(_ context.Context, n ancs.Resolved) error {
	h.Broadcast(Event{Type: EventNotification, Payload: FromResolved(n)})
	return nil
}

// FromResolved converts n into its wire payload.
func FromResolved(n ancs.Resolved) Notification {
	return Notification{
		ID:       uint32(n.ID),
		AppID:    n.AppID,
		AppName:  n.AppName,
		Category: n.Category.String(),
		Date:     n.Date,
		Title:    n.Title,
		Message:  n.Message,
		Positive: n.Flags&ancs.FlagPositiveAction != 0,
		Negative: n.Flags&ancs.FlagNegativeAction != 0,
	}
}

// Broadcast sends ev to every client. Clients that fail the write are dropped.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed []*client
	)
	for _, c := range clients {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if err := c.write(ev); err != nil {
				failMu.Lock()
				failed = append(failed, c)
				failMu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	for _, c := range failed {
		h.logger.Debug("dropping feed client", "remote", c.conn.RemoteAddr().String())
		h.remove(c)
	}
}

// ServeHTTP upgrades the request and keeps the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("feed client connected", "remote", conn.RemoteAddr().String())
	defer h.remove(c)

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && !errors.Is(err, net.ErrClosed) {
				h.logger.Debug("feed client read failed", "error", err.Error())
			}
			return
		}
		reply := h.handle(r.Context(), cmd)
		if err := c.write(reply); err != nil {
			return
		}
	}
}

func (h *Hub) handle(ctx context.Context, cmd Command) Event {
	var action ancs.Action
	switch cmd.Action {
	case ancs.ActionPositive.String():
		action = ancs.ActionPositive
	case ancs.ActionNegative.String():
		action = ancs.ActionNegative
	default:
		return Event{Type: EventError, Payload: "unknown action " + cmd.Action}
	}

	h.mu.Lock()
	t := h.trigger
	h.mu.Unlock()
	if t == nil {
		return Event{Type: EventError, Payload: "actions are not available"}
	}
	if err := t.Trigger(ctx, action); err != nil {
		return Event{Type: EventError, Payload: err.Error()}
	}
	return Event{Type: EventAck, Payload: action.String()}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		_ = c.conn.Close()
	}
}

// Server serves a Hub on Path.
type Server struct {
	hub *Hub
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr. Use "127.0.0.1:0" for an ephemeral port.
func Listen(addr string, hub *Hub) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(Path, hub)
	return &Server{
		hub: hub,
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting clients and disconnects the connected ones.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.hub.Close()
	return err
}
