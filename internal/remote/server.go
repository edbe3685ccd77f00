// Package remote exposes an editor over a websocket so a browser page can
// send interactions and receive events.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/logging"
)

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Errors returned by the bridge.
var (
	// ErrServerClosed is returned for connections attempted after Close.
	ErrServerClosed = errors.New("remote server closed")

	// ErrUnknownOp is returned for a request with an unrecognized op.
	ErrUnknownOp = errors.New("unknown op")
)

// Runner executes fn on the editor goroutine. *loop.Loop implements it.
type Runner interface {
	Do(ctx context.Context, fn func() error) error
}

// Server is an http.Handler that upgrades to websocket. Every connected
// client receives every relayed event.
type Server struct {
	ed       *editor.Editor
	run      Runner
	log      *logging.Logger
	upgrader websocket.Upgrader
	events   []event.Name

	mu      sync.Mutex
	clients map[*client]struct{}
	subs    []subscription
	closed  bool
}

type subscription struct {
	name   event.Name
	handle event.Handle
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.log = l.WithComponent("remote")
	}
}

// WithAllowedOrigins restricts the Origin header. Without it the default
// same-origin check applies.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[o] = struct{}{}
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		}
	}
}

// WithEvents limits which events are relayed. Empty means all.
func WithEvents(names ...event.Name) Option {
	return func(s *Server) {
		if len(names) > 0 {
			s.events = names
		}
	}
}

// NewServer subscribes to ed's events and returns the handler. Operations
// received from clients run through run.
func NewServer(ed *editor.Editor, run Runner, opts ...Option) (*Server, error) {
	s := &Server{
		ed:      ed,
		run:     run,
		events:  event.Names(),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, name := range s.events {
		h, err := ed.On(string(name), func(_ context.Context, evt event.Event) error {
			s.broadcast(eventFrame(evt))
			return nil
		})
		if err != nil {
			s.unsubscribe()
			return nil, err
		}
		s.subs = append(s.subs, subscription{name: name, handle: h})
	}
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithFields(map[string]any{"error": err.Error()}).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan Frame, sendBuffer)}
	if !s.register(c) {
		_ = conn.Close()
		return
	}
	s.log.WithFields(map[string]any{"remote": r.RemoteAddr}).Info("client connected")

	go c.writePump()
	s.readPump(r.Context(), c)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close unsubscribes from the editor and disconnects every client.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	s.unsubscribe()
	for c := range clients {
		c.close()
	}
	return nil
}

func (s *Server) unsubscribe() {
	for _, sub := range s.subs {
		_ = s.ed.Off(string(sub.name), sub.handle)
	}
	s.subs = nil
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		c.close()
	}
}

// broadcast queues f for every client, dropping clients that cannot keep up.
func (s *Server) broadcast(f Frame) {
	s.mu.Lock()
	var slow []*client
	for c := range s.clients {
		if !c.offer(f) {
			slow = append(slow, c)
			delete(s.clients, c)
		}
	}
	s.mu.Unlock()

	for _, c := range slow {
		s.log.Warn("dropping slow client")
		c.close()
	}
}

func (s *Server) readPump(ctx context.Context, c *client) {
	defer s.unregister(c)

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		var req Request
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithFields(map[string]any{"error": err.Error()}).Warn("websocket read failed")
			}
			return
		}
		err := s.run.Do(ctx, func() error { return Apply(ctx, s.ed, req) })
		if err != nil && !c.offer(Frame{Error: err.Error()}) {
			return
		}
	}
}

// Apply performs one request against ed. It must run on the editor
// goroutine.
func Apply(ctx context.Context, ed *editor.Editor, req Request) error {
	switch req.Op {
	case OpInput:
		return ed.Input(ctx, req.Content)
	case OpSet:
		return ed.SetContent(ctx, req.Content)
	case OpFocus:
		return ed.Focus(ctx)
	case OpBlur:
		return ed.Blur(ctx)
	case OpClear:
		return ed.Clear(ctx)
	case OpSubmit:
		return ed.Submit(ctx)
	case OpSync:
		return ed.SyncContent()
	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, req.Op)
	}
}

// client is one websocket connection.
type client struct {
	conn *websocket.Conn
	send chan Frame

	mu     sync.Mutex
	closed bool
}

// offer queues f without blocking. It returns false if the client is closed
// or its buffer is full.
func (c *client) offer(f Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
