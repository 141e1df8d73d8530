package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/guilda/internal/geo"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/storage"
)

func newViewer(t *testing.T, s *storage.MemoryStore, prefs *models.Preferences) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertProfile(ctx, models.Profile{ID: "viewer", DisplayName: "Viewer", Age: 27}))
	if prefs != nil {
		prefs.UserID = "viewer"
		require.NoError(t, s.UpsertPreferences(ctx, *prefs))
	}
}

func TestServiceCandidatesUsesPreferencesLocation(t *testing.T) {
	s := storage.NewSeededMemoryStore()
	sp, _ := geo.LookupCity("São Paulo, SP")
	newViewer(t, s, &models.Preferences{Gender: models.GenderWomen, City: sp.Label(), Location: &sp.Coord})

	svc := &Service{Profiles: s, Filter: NewFilter(DefaultDefaults()), Limit: 20}
	got, err := svc.Candidates(context.Background(), "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"mock-1"}, idsOf(got))
}

func TestServiceCandidatesWithoutPreferencesIsUnfiltered(t *testing.T) {
	s := storage.NewSeededMemoryStore()
	newViewer(t, s, nil)

	svc := &Service{Profiles: s, Filter: NewFilter(DefaultDefaults()), Limit: 4}
	got, err := svc.Candidates(context.Background(), "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"mock-1", "mock-2", "mock-3", "mock-4"}, idsOf(got))
}

func TestServiceCandidatesWithLocator(t *testing.T) {
	ctx := context.Background()
	s := storage.NewSeededMemoryStore()
	idx := geo.NewIndex()
	for _, p := range storage.SeedProfiles() {
		require.NoError(t, idx.Upsert(ctx, p.ID, *p.Location))
	}
	rj, _ := geo.LookupCity("Rio de Janeiro, RJ")
	require.NoError(t, idx.Upsert(ctx, "viewer", rj.Coord))
	newViewer(t, s, &models.Preferences{Gender: models.GenderEveryone, MaxDistanceKm: 100, Location: &rj.Coord})

	svc := &Service{Profiles: s, Locator: idx, Filter: NewFilter(DefaultDefaults()), Limit: 20}
	got, err := svc.Candidates(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"mock-2"}, idsOf(got))
}

type failingLocator struct{ geo.Locator }

func (failingLocator) Within(context.Context, geo.Coord, float64, int) ([]string, error) {
	return nil, errors.New("redis down")
}

func TestServiceCandidatesLocatorFailureFallsBack(t *testing.T) {
	s := storage.NewSeededMemoryStore()
	sp, _ := geo.LookupCity("São Paulo, SP")
	newViewer(t, s, &models.Preferences{Gender: models.GenderWomen, Location: &sp.Coord})

	svc := &Service{Profiles: s, Locator: failingLocator{}, Filter: NewFilter(DefaultDefaults())}
	got, err := svc.Candidates(context.Background(), "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"mock-1"}, idsOf(got))
}

func TestServiceDeckForUnknownViewer(t *testing.T) {
	s := storage.NewSeededMemoryStore()
	svc := &Service{Profiles: s, Filter: NewFilter(DefaultDefaults())}
	d, err := svc.Deck(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Len())
}

func seededIndex(t *testing.T) *geo.Index {
	t.Helper()
	idx := geo.NewIndex()
	for _, p := range storage.SeedProfiles() {
		require.NoError(t, idx.Upsert(context.Background(), p.ID, *p.Location))
	}
	return idx
}

func TestServiceCandidatesWithLocatorKeepsUnlocatedProfiles(t *testing.T) {
	ctx := context.Background()
	s := storage.NewSeededMemoryStore()
	require.NoError(t, s.UpsertProfile(ctx, models.Profile{
		ID: "noloc", DisplayName: "Sem Cidade", Age: 27, Gender: models.GenderWomen, AgeMin: 18, AgeMax: 75,
	}))
	sp, _ := geo.LookupCity("São Paulo, SP")
	newViewer(t, s, &models.Preferences{Gender: models.GenderEveryone, Location: &sp.Coord})

	withIndex := &Service{Profiles: s, Locator: seededIndex(t), Filter: NewFilter(DefaultDefaults()), Limit: 20}
	got, err := withIndex.Candidates(ctx, "viewer")
	require.NoError(t, err)
	assert.Contains(t, idsOf(got), "noloc")
	assert.Contains(t, idsOf(got), "mock-1")

	plain := &Service{Profiles: s, Filter: NewFilter(DefaultDefaults()), Limit: 20}
	want, err := plain.Candidates(ctx, "viewer")
	require.NoError(t, err)
	assert.ElementsMatch(t, idsOf(want), idsOf(got))
}

func TestServiceCandidatesWithLocatorAndZeroPreferencesIsUnfiltered(t *testing.T) {
	ctx := context.Background()
	s := storage.NewSeededMemoryStore()
	sp, _ := geo.LookupCity("São Paulo, SP")
	newViewer(t, s, &models.Preferences{City: sp.Label(), Location: &sp.Coord})

	svc := &Service{Profiles: s, Locator: seededIndex(t), Filter: NewFilter(DefaultDefaults()), Limit: 20}
	got, err := svc.Candidates(ctx, "viewer")
	require.NoError(t, err)
	assert.Len(t, got, len(storage.SeedProfiles()))
}

func TestServiceCandidatesWithEmptyIndexFallsBack(t *testing.T) {
	s := storage.NewSeededMemoryStore()
	sp, _ := geo.LookupCity("São Paulo, SP")
	newViewer(t, s, &models.Preferences{Gender: models.GenderWomen, Location: &sp.Coord})

	svc := &Service{Profiles: s, Locator: geo.NewIndex(), Filter: NewFilter(DefaultDefaults()), Limit: 20}
	got, err := svc.Candidates(context.Background(), "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"mock-1"}, idsOf(got))
}
