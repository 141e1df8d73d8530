package matching

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/guilda/internal/geo"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/storage"
)

func scenario() (Viewer, models.Preferences, models.Profile) {
	v := Viewer{ID: "viewer", Age: 25, Location: &models.Coord{Lat: 0, Lon: 0}}
	p := models.Preferences{Gender: models.GenderMen, AgeMin: 20, AgeMax: 30, MaxDistanceKm: 50}
	c := models.Profile{ID: "cand", Age: 27, Gender: models.GenderMen, AgeMin: 18, AgeMax: 40, MaxDistanceKm: 100}
	return v, p, c
}

func TestFilterScenarioWithinViewerDistance(t *testing.T) {
	v, p, c := scenario()
	c.Location = &models.Coord{Lat: 0.3597, Lon: 0} // ~40 km
	got := NewFilter(DefaultDefaults()).Apply([]models.Profile{c}, &v, &p)
	assert.Equal(t, []string{"cand"}, idsOf(got))
}

func TestFilterScenarioBeyondViewerDistance(t *testing.T) {
	v, p, c := scenario()
	c.Location = &models.Coord{Lat: 0.7195, Lon: 0} // ~80 km
	got := NewFilter(DefaultDefaults()).Apply([]models.Profile{c}, &v, &p)
	assert.Empty(t, got)
}

func TestFilterPredicates(t *testing.T) {
	f := NewFilter(DefaultDefaults())
	near := &models.Coord{Lat: 0.1}

	cases := []struct {
		name   string
		mutate func(v *Viewer, p *models.Preferences, c *models.Profile)
		want   bool
	}{
		{"baseline", func(v *Viewer, p *models.Preferences, c *models.Profile) { c.Location = near }, true},
		{"gender mismatch", func(v *Viewer, p *models.Preferences, c *models.Profile) { c.Gender = models.GenderWomen }, false},
		{"everyone accepts any gender", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			p.Gender = models.GenderEveryone
			c.Gender = models.GenderWomen
		}, true},
		{"unset gender means everyone", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			p.Gender = ""
			c.Gender = models.GenderWomen
		}, true},
		{"viewer too old for candidate", func(v *Viewer, p *models.Preferences, c *models.Profile) { v.Age = 41 }, false},
		{"candidate too old for viewer", func(v *Viewer, p *models.Preferences, c *models.Profile) { c.Age = 31 }, false},
		{"age bounds inclusive", func(v *Viewer, p *models.Preferences, c *models.Profile) { c.Age = 30; v.Age = 40 }, true},
		{"viewer age defaults to 25", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			v.Age = 0
			c.AgeMin, c.AgeMax = 25, 25
		}, true},
		{"viewer age default outside candidate range", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			v.Age = 0
			c.AgeMin, c.AgeMax = 26, 30
		}, false},
		{"viewer range defaults to 18-75", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			p.AgeMin, p.AgeMax = 0, 0
			c.Age = 75
			c.AgeMax = 80
		}, true},
		{"candidate distance bound", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			c.Location = &models.Coord{Lat: 0.3597}
			c.MaxDistanceKm = 30
		}, false},
		{"viewer distance defaults to 50", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			p.MaxDistanceKm = 0
			c.Location = &models.Coord{Lat: 0.4947} // ~55 km
		}, false},
		{"unset candidate distance defaults to 50", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			p.MaxDistanceKm = 100
			c.MaxDistanceKm = 0
			c.Location = &models.Coord{Lat: 0.3597} // ~40 km
		}, true},
		{"unset candidate distance rejects beyond 50", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			p.MaxDistanceKm = 100
			c.MaxDistanceKm = 0
			c.Location = &models.Coord{Lat: 0.4947} // ~55 km
		}, false},
		{"no viewer location skips distance", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			v.Location = nil
			c.Location = &models.Coord{Lat: 10}
		}, true},
		{"no candidate location skips distance", func(v *Viewer, p *models.Preferences, c *models.Profile) {
			c.Location = nil
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, p, c := scenario()
			tc.mutate(&v, &p, &c)
			assert.Equal(t, tc.want, f.Accepts(c, v, p))
		})
	}
}

func TestFilterNoOpCases(t *testing.T) {
	f := NewFilter(DefaultDefaults())
	v, p, c := scenario()
	c.Gender = models.GenderWomen // would be rejected by a real filter
	in := []models.Profile{c}

	assert.Equal(t, in, f.Apply(in, nil, &p))
	assert.Equal(t, in, f.Apply(in, &v, nil))
	assert.Equal(t, in, f.Apply(in, &v, &models.Preferences{}))
}

func TestFilterPreservesOrderAndInput(t *testing.T) {
	f := NewFilter(DefaultDefaults())
	v, p, base := scenario()
	var in []models.Profile
	for i, g := range []models.Gender{models.GenderMen, models.GenderWomen, models.GenderMen, models.GenderMen} {
		c := base
		c.ID = string(rune('a' + i))
		c.Gender = g
		in = append(in, c)
	}
	snapshot := append([]models.Profile(nil), in...)

	got := f.Apply(in, &v, &p)
	assert.Equal(t, []string{"a", "c", "d"}, idsOf(got))
	assert.Equal(t, snapshot, in)
}

func TestFilterMatchesSeededScenario(t *testing.T) {
	// a 27-year-old in São Paulo looking for women within 50 km only sees Beatriz
	f := NewFilter(DefaultDefaults())
	sp, ok := geo.LookupCity("São Paulo, SP")
	require.True(t, ok)
	v := Viewer{Age: 27, Location: &sp.Coord}
	p := models.Preferences{Gender: models.GenderWomen}
	got := f.Apply(storage.SeedProfiles(), &v, &p)
	assert.Equal(t, []string{"mock-1"}, idsOf(got))
}

// randomCase drives the property test with small, overlapping value ranges
// so every predicate flips regularly.
type randomCase struct {
	Viewer Viewer
	Prefs  models.Preferences
	Cand   models.Profile
}

func (randomCase) Generate(r *rand.Rand, _ int) reflect.Value {
	genders := []models.Gender{models.GenderMen, models.GenderWomen, models.GenderEveryone, ""}
	coord := func() *models.Coord {
		if r.Intn(5) == 0 {
			return nil
		}
		return &models.Coord{Lat: r.Float64() * 1.5, Lon: r.Float64() * 1.5}
	}
	rc := randomCase{
		Viewer: Viewer{Age: r.Intn(60), Location: coord()},
		Prefs: models.Preferences{
			Gender:        genders[r.Intn(len(genders))],
			AgeMin:        r.Intn(40),
			AgeMax:        r.Intn(80),
			MaxDistanceKm: float64(r.Intn(150)),
		},
		Cand: models.Profile{
			ID:            "c",
			Age:           18 + r.Intn(60),
			Gender:        genders[r.Intn(2)],
			AgeMin:        r.Intn(40),
			AgeMax:        r.Intn(80),
			MaxDistanceKm: float64(r.Intn(150)),
			Location:      coord(),
		},
	}
	return reflect.ValueOf(rc)
}

// reference is a direct transcription of the inclusion rule.
func reference(d Defaults, v Viewer, p models.Preferences, c models.Profile) bool {
	if p.IsZero() {
		return true
	}
	pick := func(x, def int) int {
		if x == 0 {
			return def
		}
		return x
	}
	pickF := func(x, def float64) float64 {
		if x == 0 {
			return def
		}
		return x
	}
	gender := p.Gender == "" || p.Gender == models.GenderEveryone || p.Gender == c.Gender
	va := pick(v.Age, d.ViewerAge)
	age := va >= pick(c.AgeMin, d.AgeMin) && va <= pick(c.AgeMax, d.AgeMax) &&
		c.Age >= pick(p.AgeMin, d.AgeMin) && c.Age <= pick(p.AgeMax, d.AgeMax)
	dist := true
	if v.Location != nil && c.Location != nil {
		km := geo.DistanceKm(*v.Location, *c.Location)
		dist = km <= pickF(p.MaxDistanceKm, d.MaxDistanceKm) && km <= pickF(c.MaxDistanceKm, d.MaxDistanceKm)
	}
	return gender && age && dist
}

func TestFilterProperty(t *testing.T) {
	f := NewFilter(DefaultDefaults())
	prop := func(rc randomCase) bool {
		got := f.Apply([]models.Profile{rc.Cand}, &rc.Viewer, &rc.Prefs)
		return (len(got) == 1) == reference(f.Defaults, rc.Viewer, rc.Prefs, rc.Cand)
	}
	require.NoError(t, quick.Check(prop, &quick.Config{MaxCount: 2000}))
}

func idsOf(ps []models.Profile) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
