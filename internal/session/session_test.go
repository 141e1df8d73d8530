package session

import (
	"context"
	"sync"
	"testing"

	"github.com/example/guilda/internal/dispatch"
	"github.com/example/guilda/internal/ingest"
	"github.com/example/guilda/internal/matching"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedDecks []models.Profile

func (f fixedDecks) Deck(context.Context, string) (*matching.Deck, error) {
	return matching.NewDeck(f), nil
}

type openerFunc func(ctx context.Context, a, b string) (models.Conversation, error)

func (f openerFunc) Open(ctx context.Context, a, b string) (models.Conversation, error) {
	return f(ctx, a, b)
}

type events struct {
	mu     sync.Mutex
	kinds  []ingest.EventKind
	pushes []dispatch.EventType
}

func (e *events) Publish(_ context.Context, ev ingest.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kinds = append(e.kinds, ev.Kind)
	return nil
}

func (e *events) Push(_ string, ev dispatch.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pushes = append(e.pushes, ev.Type)
	return nil
}

func cards(ids ...string) fixedDecks {
	out := make(fixedDecks, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Profile{ID: id, DisplayName: id})
	}
	return out
}

func newRegistry(store *storage.MemoryStore, deck fixedDecks, ev *events) *Registry {
	return &Registry{
		Decks:     deck,
		Decisions: store,
		Conversations: openerFunc(func(_ context.Context, a, b string) (models.Conversation, error) {
			return models.Conversation{ID: "conv-" + b, Participants: models.PairOf(a, b)}, nil
		}),
		Publisher: ev,
		Pusher:    ev,
	}
}

func TestSwipeRightMatchesAndAdvances(t *testing.T) {
	ev := &events{}
	reg := newRegistry(storage.NewMemoryStore(), cards("a", "b", "c"), ev)
	ctx := context.Background()
	s, err := reg.Get(ctx, "me")
	require.NoError(t, err)

	out, err := s.Swipe(ctx, "a", models.DirectionRight)
	require.NoError(t, err)
	require.NotNil(t, out.Match)
	assert.Equal(t, "a", out.Match.CandidateID)
	assert.False(t, out.Match.Mutual)
	assert.Equal(t, "conv-a", out.Match.ConversationID)
	require.NotNil(t, out.Next)
	assert.Equal(t, "b", out.Next.Profile.ID)

	assert.Equal(t, []ingest.EventKind{ingest.EventSwipe, ingest.EventMatch}, ev.kinds)
	assert.Equal(t, []dispatch.EventType{dispatch.EventMatch}, ev.pushes)
	assert.Len(t, s.Matches(), 1)
}

func TestSwipeLeftNoMatchDeckCycles(t *testing.T) {
	store := storage.NewMemoryStore()
	reg := newRegistry(store, cards("a", "b"), &events{})
	ctx := context.Background()
	s, err := reg.Get(ctx, "me")
	require.NoError(t, err)

	out, err := s.Swipe(ctx, "", models.DirectionLeft)
	require.NoError(t, err)
	assert.Nil(t, out.Match)
	_, err = s.Swipe(ctx, "", models.DirectionLeft)
	require.NoError(t, err)

	card, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "a", card.Profile.ID, "deck wraps around and re-shows passed cards")
	assert.Empty(t, s.Matches())

	liked, err := store.Liked(ctx, "me", "a")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestSwipeRequireMutual(t *testing.T) {
	store := storage.NewMemoryStore()
	reg := newRegistry(store, cards("a", "b"), &events{})
	reg.RequireMutual = true
	ctx := context.Background()
	require.NoError(t, store.RecordDecision(ctx, models.Decision{ViewerID: "b", CandidateID: "me", Liked: true}))

	s, err := reg.Get(ctx, "me")
	require.NoError(t, err)
	out, err := s.Swipe(ctx, "a", models.DirectionRight)
	require.NoError(t, err)
	assert.Nil(t, out.Match)

	out, err = s.Swipe(ctx, "b", models.DirectionRight)
	require.NoError(t, err)
	require.NotNil(t, out.Match)
	assert.True(t, out.Match.Mutual)
}

func TestSwipeErrors(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(storage.NewMemoryStore(), nil, &events{})
	s, err := reg.Get(ctx, "me")
	require.NoError(t, err)
	_, err = s.Swipe(ctx, "", models.DirectionRight)
	assert.ErrorIs(t, err, ErrEmptyDeck)
	_, err = s.Swipe(ctx, "", models.DirectionNone)
	assert.ErrorIs(t, err, ErrNoDecision)

	reg = newRegistry(storage.NewMemoryStore(), cards("a", "b"), &events{})
	s, err = reg.Get(ctx, "me")
	require.NoError(t, err)
	_, err = s.Swipe(ctx, "b", models.DirectionRight)
	assert.ErrorIs(t, err, ErrStaleCard)
}

func TestUnmatchKeepsOthers(t *testing.T) {
	reg := newRegistry(storage.NewMemoryStore(), cards("a", "b"), &events{})
	ctx := context.Background()
	s, err := reg.Get(ctx, "me")
	require.NoError(t, err)
	_, err = s.Swipe(ctx, "a", models.DirectionRight)
	require.NoError(t, err)
	_, err = s.Swipe(ctx, "b", models.DirectionRight)
	require.NoError(t, err)

	require.NoError(t, s.Unmatch(ctx, "a"))
	got := s.Matches()
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].CandidateID)
	assert.ErrorIs(t, s.Unmatch(ctx, "a"), storage.ErrNotFound)

	// swiping right again after an unmatch makes a fresh match
	_, err = s.Swipe(ctx, "a", models.DirectionRight)
	require.NoError(t, err)
	assert.Len(t, s.Matches(), 2)
}

func TestRepeatedRightSwipeDoesNotDuplicate(t *testing.T) {
	reg := newRegistry(storage.NewMemoryStore(), cards("a"), &events{})
	ctx := context.Background()
	s, err := reg.Get(ctx, "me")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.Swipe(ctx, "a", models.DirectionRight)
		require.NoError(t, err)
	}
	assert.Len(t, s.Matches(), 1)
}

func TestRegistryReusesAndRefreshes(t *testing.T) {
	reg := newRegistry(storage.NewMemoryStore(), cards("a", "b"), &events{})
	ctx := context.Background()
	s1, err := reg.Get(ctx, "me")
	require.NoError(t, err)
	s2, err := reg.Get(ctx, "me")
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	_, err = s1.Swipe(ctx, "a", models.DirectionRight)
	require.NoError(t, err)
	reg.Decks = cards("z")
	s3, err := reg.Refresh(ctx, "me")
	require.NoError(t, err)
	card, _ := s3.Current()
	assert.Equal(t, "z", card.Profile.ID)
	assert.Len(t, s3.Matches(), 1)

	reg.Drop("me")
	s4, err := reg.Get(ctx, "me")
	require.NoError(t, err)
	assert.NotSame(t, s1, s4)
}

func TestConcurrentSwipesAdvanceOncePerCall(t *testing.T) {
	reg := newRegistry(storage.NewMemoryStore(), cards("a", "b", "c", "d"), &events{})
	ctx := context.Background()
	s, err := reg.Get(ctx, "me")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Swipe(ctx, "", models.DirectionLeft)
		}()
	}
	wg.Wait()
	card, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 0, card.Index)
}
