// Package ingest publishes domain events to the event stream.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/guilda/internal/models"
)

type EventKind string

const (
	EventSwipe           EventKind = "swipe"
	EventMatch           EventKind = "match"
	EventUnmatch         EventKind = "unmatch"
	EventDemoOrder       EventKind = "demo_order"
	EventProfileLocation EventKind = "profile_location"
)

// Event is one record on the stream. Key is the aggregate id and decides
// the partition.
type Event struct {
	Kind       EventKind       `json:"kind"`
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// LocationUpdate is the payload of a profile_location event.
type LocationUpdate struct {
	ProfileID string       `json:"profile_id"`
	Location  models.Coord `json:"location"`
}

// NewEvent marshals payload into an event stamped with the current time.
func NewEvent(kind EventKind, key string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Kind: kind, Key: key, Payload: b, OccurredAt: time.Now().UTC()}, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
