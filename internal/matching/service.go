package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/guilda/internal/geo"
	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/storage"
)

// ProfileSource is the read side of the profile store the deck is built from.
type ProfileSource interface {
	Profile(ctx context.Context, id string) (models.Profile, error)
	Preferences(ctx context.Context, userID string) (models.Preferences, error)
	Candidates(ctx context.Context, viewerID string, limit int) ([]models.Profile, error)
	ProfilesByID(ctx context.Context, ids []string) ([]models.Profile, error)
}

type Service struct {
	Profiles ProfileSource
	Locator  geo.Locator // optional prefilter
	Filter   Filter
	Limit    int
	Logger   *slog.Logger
}

// Candidates loads up to Limit profiles other than the viewer and keeps the
// ones that fit the viewer's preferences.
func (s *Service) Candidates(ctx context.Context, viewerID string) ([]models.Profile, error) {
	log := logging.OrDiscard(s.Logger)
	limit := s.Limit
	if limit <= 0 {
		limit = 20
	}

	viewer, prefs, err := s.viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	var cands []models.Profile
	if s.Locator != nil && viewer != nil && viewer.Location != nil && prefs != nil && !prefs.IsZero() {
		cands, err = s.nearby(ctx, viewerID, *viewer.Location, s.Filter.radius(*prefs), limit)
		if err != nil {
			log.Warn("geo prefilter failed, loading unfiltered candidates", "viewer_id", viewerID, "error", err)
			cands = nil
		}
	}
	if len(cands) == 0 {
		cands, err = s.Profiles.Candidates(ctx, viewerID, limit)
		if err != nil {
			return nil, fmt.Errorf("load candidates: %w", err)
		}
	}
	if len(cands) > limit {
		cands = cands[:limit]
	}

	out := s.Filter.Apply(cands, viewer, prefs)
	log.Debug("candidates filtered", "viewer_id", viewerID, "loaded", len(cands), "kept", len(out))
	return out, nil
}

// nearby loads the indexed profiles within radiusKm of center plus the
// onboarded profiles that have no location, which the index never holds and
// the distance check lets through.
func (s *Service) nearby(ctx context.Context, viewerID string, center geo.Coord, radiusKm float64, limit int) ([]models.Profile, error) {
	ids, err := s.Locator.Within(ctx, center, radiusKm, limit+1)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	cands, err := s.Profiles.ProfilesByID(ctx, without(ids, viewerID))
	if err != nil {
		return nil, fmt.Errorf("load nearby profiles: %w", err)
	}
	all, err := s.Profiles.Candidates(ctx, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	for _, p := range all {
		if p.Location == nil {
			cands = append(cands, p)
		}
	}
	return cands, nil
}

// Deck builds a fresh cyclic deck for the viewer.
func (s *Service) Deck(ctx context.Context, viewerID string) (*Deck, error) {
	cands, err := s.Candidates(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return NewDeck(cands), nil
}

// viewer resolves the viewer profile and preferences; either may be nil when
// the viewer has not onboarded yet. The preferences' city location wins
// over the profile's.
func (s *Service) viewer(ctx context.Context, viewerID string) (*Viewer, *models.Preferences, error) {
	var v *Viewer
	p, err := s.Profiles.Profile(ctx, viewerID)
	switch {
	case err == nil:
		v = &Viewer{ID: p.ID, Age: p.Age, Location: p.Location}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, nil, fmt.Errorf("load viewer profile: %w", err)
	}

	var prefs *models.Preferences
	pr, err := s.Profiles.Preferences(ctx, viewerID)
	switch {
	case err == nil:
		prefs = &pr
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, nil, fmt.Errorf("load preferences: %w", err)
	}

	if v != nil && prefs != nil && prefs.Location != nil {
		v.Location = prefs.Location
	}
	return v, prefs, nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
