package dispatch

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/observability"
	"github.com/gorilla/websocket"
)

type EventType string

const (
	EventMessage EventType = "message"
	EventNotice  EventType = "notice"
	EventMatch   EventType = "match"
)

// Event is the envelope written to websocket clients.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// Pusher delivers realtime events to a user.
type Pusher interface {
	Push(userID string, ev Event) error
}

// WSSession represents one connected socket.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}

// WSRegistry holds user sessions. A user may have several sockets open.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]map[*WSSession]struct{}
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{sessions: make(map[string]map[*WSSession]struct{}), logger: logging.OrDiscard(logger)}
}

// Add registers conn for userID and returns a func that unregisters it.
func (r *WSRegistry) Add(userID string, conn *websocket.Conn) (remove func()) {
	s := &WSSession{conn: conn}
	r.mu.Lock()
	if r.sessions[userID] == nil {
		r.sessions[userID] = make(map[*WSSession]struct{})
	}
	r.sessions[userID][s] = struct{}{}
	r.mu.Unlock()
	observability.WSSessions.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.sessions[userID], s)
			if len(r.sessions[userID]) == 0 {
				delete(r.sessions, userID)
			}
			r.mu.Unlock()
			observability.WSSessions.Dec()
		})
	}
}

func (r *WSRegistry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID]) > 0
}

// Push writes ev to every socket of userID. It returns ErrNoSession when the
// user has none.
func (r *WSRegistry) Push(userID string, ev Event) error {
	r.mu.RLock()
	targets := make([]*WSSession, 0, len(r.sessions[userID]))
	for s := range r.sessions[userID] {
		targets = append(targets, s)
	}
	r.mu.RUnlock()
	if len(targets) == 0 {
		return ErrNoSession
	}
	var errs []error
	for _, s := range targets {
		if err := s.Send(ev); err != nil {
			r.logger.Warn("ws send error", "user_id", userID, "type", ev.Type, "err", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(targets) {
		return errors.Join(errs...)
	}
	return nil
}

var ErrNoSession = &NoSessionError{}

type NoSessionError struct{}

func (n *NoSessionError) Error() string { return "no ws session" }

// Encode renders ev the way sockets receive it.
func Encode(ev Event) ([]byte, error) { return json.Marshal(ev) }
