// Package spectator serves a read-only view of a running session over HTTP:
// a websocket feed of session events plus JSON state and log endpoints.
package spectator

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rhinci/Morskoy-boy/metrics"
	"github.com/rhinci/Morskoy-boy/session"
)

// Source is the session being watched.
type Source interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Event, func())
}

var _ Source = (*session.Session)(nil)

const (
	FrameHello = "hello"
	FrameEvent = "event"
)

// Frame is one websocket message to a viewer. State is attached to the hello
// frame and to every event that changes the phase or the boards.
type Frame struct {
	Type   string            `json:"type"`
	Viewer string            `json:"viewer,omitempty"`
	Event  *session.Event    `json:"event,omitempty"`
	State  *session.Snapshot `json:"state,omitempty"`
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithSender(sender FrameSender) Option {
	return func(s *Server) {
		s.sender = sender
	}
}

type viewer struct {
	id   string
	conn Connection
}

type Server struct {
	source   Source
	sender   FrameSender
	metrics  *metrics.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader

	register   chan *viewer
	unregister chan string
	done       chan struct{}

	mu      sync.RWMutex
	viewers map[string]*viewer
}

func New(source Source, opts ...Option) *Server {
	s := &Server{
		source: source,
		sender: &Sender{},
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		register:   make(chan *viewer),
		unregister: make(chan string),
		done:       make(chan struct{}),
		viewers:    make(map[string]*viewer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "spectator")
	return s
}

// Routes returns the HTTP handler: /ws, /state, /log and, when metrics are
// configured, /metrics.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.ServeWs)
	r.Get("/state", s.serveState)
	r.Get("/log", s.serveLog)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Run forwards session events to viewers until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	events, cancel := s.source.Subscribe()
	defer close(s.done)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		case v := <-s.register:
			s.add(v)
		case id := <-s.unregister:
			s.remove(id)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			frame := Frame{Type: FrameEvent, Event: &event}
			if event.Kind != session.LogAppended {
				snap := s.source.Snapshot()
				frame.State = &snap
			}
			s.broadcast(frame)
		}
	}
}

func (s *Server) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	s.serveViewer(r.Context(), conn)
}

func (s *Server) serveViewer(ctx context.Context, conn Connection) {
	v := &viewer{id: uuid.New().String(), conn: conn}
	select {
	case s.register <- v:
	case <-s.done:
		_ = conn.Close()
		return
	case <-ctx.Done():
		_ = conn.Close()
		return
	}

	// Viewers never send anything; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	select {
	case s.unregister <- v.id:
	case <-s.done:
	}
}

func (s *Server) add(v *viewer) {
	snap := s.source.Snapshot()
	if err := s.sender.SendFrame(Frame{Type: FrameHello, Viewer: v.id, State: &snap}, v.conn); err != nil {
		s.logger.Warn("greeting viewer failed", "viewer", v.id, "err", err)
		_ = v.conn.Close()
		return
	}

	s.mu.Lock()
	s.viewers[v.id] = v
	s.mu.Unlock()
	s.logger.Info("viewer connected", "viewer", v.id)
}

func (s *Server) remove(id string) {
	s.mu.Lock()
	v, ok := s.viewers[id]
	delete(s.viewers, id)
	s.mu.Unlock()
	if ok {
		_ = v.conn.Close()
		s.logger.Info("viewer disconnected", "viewer", id)
	}
}

func (s *Server) broadcast(frame Frame) {
	s.mu.RLock()
	viewers := make([]*viewer, 0, len(s.viewers))
	for _, v := range s.viewers {
		viewers = append(viewers, v)
	}
	s.mu.RUnlock()

	for _, v := range viewers {
		if err := s.sender.SendFrame(frame, v.conn); err != nil {
			s.logger.Warn("dropping viewer", "viewer", v.id, "err", err)
			s.remove(v.id)
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.viewers {
		_ = v.conn.Close()
		delete(s.viewers, id)
	}
}

// ViewerCount returns the number of connected viewers.
func (s *Server) ViewerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.viewers)
}

func (s *Server) serveState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.source.Snapshot())
}

type logResponse struct {
	Total   int      `json:"total"`
	Entries []string `json:"entries"`
}

func (s *Server) serveLog(w http.ResponseWriter, _ *http.Request) {
	entries := s.source.Snapshot().Log
	if entries == nil {
		entries = []string{}
	}
	writeJSON(w, logResponse{Total: len(entries), Entries: entries})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
