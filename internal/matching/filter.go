package matching

import (
	"github.com/example/guilda/internal/config"
	"github.com/example/guilda/internal/geo"
	"github.com/example/guilda/internal/models"
)

// Defaults is the single place the filter's fallback values live.
type Defaults struct {
	ViewerAge     int
	AgeMin        int
	AgeMax        int
	MaxDistanceKm float64
}

func DefaultDefaults() Defaults {
	return Defaults{ViewerAge: 25, AgeMin: 18, AgeMax: 75, MaxDistanceKm: 50}
}

func DefaultsFromConfig(c config.MatchConfig) Defaults {
	return Defaults{
		ViewerAge:     c.DefaultAge,
		AgeMin:        c.DefaultAgeMin,
		AgeMax:        c.DefaultAgeMax,
		MaxDistanceKm: c.DefaultMaxDistanceKm,
	}
}

// Viewer is the part of the viewer's own profile the filter reads.
type Viewer struct {
	ID       string
	Age      int
	Location *models.Coord
}

type Filter struct {
	Defaults Defaults
}

func NewFilter(d Defaults) Filter { return Filter{Defaults: d} }

// Apply keeps the candidates that pass Accepts, in input order. A nil
// viewer, nil preferences or preferences with no bound set leave the list
// unfiltered. candidates is never modified.
func (f Filter) Apply(candidates []models.Profile, viewer *Viewer, prefs *models.Preferences) []models.Profile {
	out := make([]models.Profile, 0, len(candidates))
	if viewer == nil || prefs == nil || prefs.IsZero() {
		return append(out, candidates...)
	}
	for _, c := range candidates {
		if f.Accepts(c, *viewer, *prefs) {
			out = append(out, c)
		}
	}
	return out
}

// Accepts reports whether the viewer and candidate fit each other's gender,
// age and distance bounds.
func (f Filter) Accepts(c models.Profile, v Viewer, p models.Preferences) bool {
	return f.genderMatch(c, p) && f.ageFit(c, v, p) && f.distanceFit(c, v, p)
}

func (f Filter) genderMatch(c models.Profile, p models.Preferences) bool {
	return p.Gender == "" || p.Gender == models.GenderEveryone || p.Gender == c.Gender
}

func (f Filter) ageFit(c models.Profile, v Viewer, p models.Preferences) bool {
	viewerAge := intOr(v.Age, f.Defaults.ViewerAge)
	candMin := intOr(c.AgeMin, f.Defaults.AgeMin)
	candMax := intOr(c.AgeMax, f.Defaults.AgeMax)
	if viewerAge < candMin || viewerAge > candMax {
		return false
	}
	return c.Age >= intOr(p.AgeMin, f.Defaults.AgeMin) && c.Age <= intOr(p.AgeMax, f.Defaults.AgeMax)
}

func (f Filter) distanceFit(c models.Profile, v Viewer, p models.Preferences) bool {
	if v.Location == nil || c.Location == nil {
		return true
	}
	d := geo.DistanceKm(*v.Location, *c.Location)
	// A candidate who never set a bound gets the default, same as the viewer.
	return d <= f.radius(p) && d <= floatOr(c.MaxDistanceKm, f.Defaults.MaxDistanceKm)
}

// radius is the viewer's own distance bound.
func (f Filter) radius(p models.Preferences) float64 {
	return floatOr(p.MaxDistanceKm, f.Defaults.MaxDistanceKm)
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func floatOr(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
