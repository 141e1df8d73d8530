// Package session keeps each viewer's swipe deck and match list for the
// life of the process.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/guilda/internal/dispatch"
	"github.com/example/guilda/internal/ingest"
	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/matching"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/observability"
	"github.com/example/guilda/internal/storage"
)

var (
	ErrEmptyDeck  = errors.New("no candidates to swipe")
	ErrStaleCard  = errors.New("candidate is not the current card")
	ErrNoDecision = errors.New("gesture did not pass the swipe threshold")
)

type DeckBuilder interface {
	Deck(ctx context.Context, viewerID string) (*matching.Deck, error)
}

type DecisionStore interface {
	RecordDecision(ctx context.Context, d models.Decision) error
	Liked(ctx context.Context, viewerID, candidateID string) (bool, error)
}

// ConversationOpener gives a match somewhere to talk.
type ConversationOpener interface {
	Open(ctx context.Context, viewerID, counterpartID string) (models.Conversation, error)
}

// Registry holds one Session per viewer. Decks, Decisions and Conversations
// are required; the rest are optional.
type Registry struct {
	Decks         DeckBuilder
	Decisions     DecisionStore
	Conversations ConversationOpener
	Publisher     ingest.Publisher
	Pusher        dispatch.Pusher
	// RequireMutual only turns a right swipe into a match when the
	// candidate already liked the viewer.
	RequireMutual bool
	Logger        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// Get returns the viewer's session, building the deck on first use.
func (r *Registry) Get(ctx context.Context, viewerID string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[viewerID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	deck, err := r.Decks.Deck(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("build deck: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions == nil {
		r.sessions = make(map[string]*Session)
	}
	if s, ok := r.sessions[viewerID]; ok {
		return s, nil
	}
	s := &Session{viewerID: viewerID, deck: deck, reg: r}
	r.sessions[viewerID] = s
	return s, nil
}

// Refresh rebuilds the viewer's deck, keeping the match list. Called after
// the viewer changes preferences.
func (r *Registry) Refresh(ctx context.Context, viewerID string) (*Session, error) {
	s, err := r.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	deck, err := r.Decks.Deck(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("build deck: %w", err)
	}
	s.mu.Lock()
	s.deck = deck
	s.mu.Unlock()
	return s, nil
}

// Drop forgets the viewer's session, e.g. on sign out.
func (r *Registry) Drop(viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, viewerID)
}

func (r *Registry) logger() *slog.Logger { return logging.OrDiscard(r.Logger) }

func (r *Registry) publish(ctx context.Context, kind ingest.EventKind, key string, payload any) {
	if r.Publisher == nil {
		return
	}
	ev, err := ingest.NewEvent(kind, key, payload)
	if err == nil {
		err = r.Publisher.Publish(ctx, ev)
	}
	if err != nil {
		r.logger().Warn("publish event", "kind", kind, "key", key, "error", err)
	}
}

func (r *Registry) push(userID string, ev dispatch.Event) {
	if r.Pusher == nil {
		return
	}
	if err := r.Pusher.Push(userID, ev); err != nil && !errors.Is(err, dispatch.ErrNoSession) {
		r.logger().Debug("push failed", "user_id", userID, "error", err)
	}
}

// Session is one viewer's deck, cursor and ordered matches.
type Session struct {
	mu       sync.Mutex
	viewerID string
	deck     *matching.Deck
	matches  []models.Match
	reg      *Registry
}

// Card is the deck position a client renders.
type Card struct {
	Profile models.Profile `json:"profile"`
	Index   int            `json:"index"`
	Total   int            `json:"total"`
}

func (s *Session) Current() (Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() (Card, bool) {
	p, ok := s.deck.Current()
	if !ok {
		return Card{}, false
	}
	return Card{Profile: p, Index: s.deck.Index(), Total: s.deck.Len()}, true
}

type Outcome struct {
	Decision models.Decision `json:"decision"`
	Match    *models.Match   `json:"match,omitempty"`
	Next     *Card           `json:"next,omitempty"`
}

// Swipe decides on the current card and advances the cursor cyclically.
// candidateID, when set, must be the current card.
func (s *Session) Swipe(ctx context.Context, candidateID string, dir models.Direction) (Outcome, error) {
	if dir != models.DirectionLeft && dir != models.DirectionRight {
		return Outcome{}, ErrNoDecision
	}
	r := s.reg
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.currentLocked()
	if !ok {
		return Outcome{}, ErrEmptyDeck
	}
	if candidateID != "" && candidateID != card.Profile.ID {
		return Outcome{}, ErrStaleCard
	}
	cand := card.Profile

	d := models.Decision{ViewerID: s.viewerID, CandidateID: cand.ID, Liked: dir == models.DirectionRight, CreatedAt: time.Now().UTC()}
	if err := r.Decisions.RecordDecision(ctx, d); err != nil {
		return Outcome{}, fmt.Errorf("record decision: %w", err)
	}
	observability.SwipesTotal.WithLabelValues(string(dir)).Inc()
	r.publish(ctx, ingest.EventSwipe, s.viewerID, d)

	out := Outcome{Decision: d}
	if d.Liked {
		m, err := s.matchLocked(ctx, cand)
		if err != nil {
			return Outcome{}, err
		}
		out.Match = m
	}

	s.deck.Advance()
	if next, ok := s.currentLocked(); ok {
		out.Next = &next
	}
	return out, nil
}

func (s *Session) matchLocked(ctx context.Context, cand models.Profile) (*models.Match, error) {
	r := s.reg
	mutual, err := r.Decisions.Liked(ctx, cand.ID, s.viewerID)
	if err != nil {
		return nil, fmt.Errorf("check reciprocal like: %w", err)
	}
	if r.RequireMutual && !mutual {
		return nil, nil
	}
	for i := range s.matches {
		if s.matches[i].CandidateID == cand.ID && s.matches[i].Active {
			m := s.matches[i]
			return &m, nil
		}
	}

	conv, err := r.Conversations.Open(ctx, s.viewerID, cand.ID)
	if err != nil {
		return nil, fmt.Errorf("open match conversation: %w", err)
	}
	m := models.Match{
		ViewerID:       s.viewerID,
		CandidateID:    cand.ID,
		Mutual:         mutual,
		Active:         true,
		ConversationID: conv.ID,
		CreatedAt:      time.Now().UTC(),
	}
	s.matches = append(s.matches, m)
	observability.MatchesTotal.Inc()
	r.publish(ctx, ingest.EventMatch, s.viewerID, m)
	r.push(s.viewerID, dispatch.Event{Type: dispatch.EventMatch, Payload: struct {
		Match   models.Match   `json:"match"`
		Profile models.Profile `json:"profile"`
	}{m, cand}})
	r.logger().Info("match", "viewer_id", s.viewerID, "candidate_id", cand.ID, "mutual", mutual)
	return &m, nil
}

// Unmatch hides the match. The conversation and its messages are kept.
func (s *Session) Unmatch(ctx context.Context, candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.matches {
		if s.matches[i].CandidateID == candidateID && s.matches[i].Active {
			s.matches[i].Active = false
			s.reg.publish(ctx, ingest.EventUnmatch, s.viewerID, s.matches[i])
			return nil
		}
	}
	return fmt.Errorf("match %s: %w", candidateID, storage.ErrNotFound)
}

// Matches returns the active matches in the order they were made.
func (s *Session) Matches() []models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Match, 0, len(s.matches))
	for _, m := range s.matches {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}
