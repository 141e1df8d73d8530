package geo

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/example/guilda/internal/models"
)

type Coord = models.Coord

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// Locator indexes profile locations. Results are a coarse prefilter; callers
// still check DistanceKm against each profile's own bounds.
type Locator interface {
	Upsert(ctx context.Context, id string, c Coord) error
	Remove(ctx context.Context, id string) error
	Within(ctx context.Context, center Coord, radiusKm float64, limit int) ([]string, error)
}

type entry struct {
	loc     Coord
	updated time.Time
}

// Index is the in-process Locator.
type Index struct {
	mu       sync.RWMutex
	profiles map[string]entry
}

func NewIndex() *Index {
	return &Index{profiles: make(map[string]entry)}
}

func (g *Index) Upsert(_ context.Context, id string, c Coord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profiles[id] = entry{loc: c, updated: time.Now()}
	return nil
}

func (g *Index) Remove(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.profiles, id)
	return nil
}

// Within returns ids within radiusKm of center, nearest first.
// naive scan; fine for the profile counts a single node holds
func (g *Index) Within(_ context.Context, center Coord, radiusKm float64, limit int) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		id   string
		dist float64
	}
	arr := make([]pair, 0, len(g.profiles))
	for id, e := range g.profiles {
		d := DistanceKm(center, e.loc)
		if d <= radiusKm {
			arr = append(arr, pair{id, d})
		}
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].dist == arr[j].dist {
			return arr[i].id < arr[j].id
		}
		return arr[i].dist < arr[j].dist
	})
	if limit > 0 && len(arr) > limit {
		arr = arr[:limit]
	}
	out := make([]string, 0, len(arr))
	for _, p := range arr {
		out = append(out, p.id)
	}
	return out, nil
}

// DistanceKm is the haversine great-circle distance between a and b.
func DistanceKm(a, b Coord) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}
