package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/guilda/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func TestKafkaProducerRoutesByKind(t *testing.T) {
	events, locations := &fakeWriter{}, &fakeWriter{}
	p := &KafkaProducer{writer: events, locationWriter: locations, timeout: time.Second}

	match, err := NewEvent(EventMatch, "me", map[string]string{"candidate_id": "mock-1"})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), match))

	loc, err := NewEvent(EventProfileLocation, "me", LocationUpdate{ProfileID: "me", Location: models.Coord{Lat: -23.55, Lon: -46.63}})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), loc))

	require.Len(t, events.msgs, 1)
	require.Len(t, locations.msgs, 1)
	assert.Equal(t, "me", string(events.msgs[0].Key))
	assert.Equal(t, "match", string(events.msgs[0].Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(locations.msgs[0].Value, &got))
	var upd LocationUpdate
	require.NoError(t, json.Unmarshal(got.Payload, &upd))
	assert.Equal(t, "me", upd.ProfileID)
	assert.InDelta(t, -23.55, upd.Location.Lat, 1e-9)

	require.NoError(t, p.Close())
	assert.True(t, events.closed)
	assert.True(t, locations.closed)
}

func TestKafkaProducerWrapsErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaProducer{writer: &fakeWriter{err: boom}, timeout: time.Second}
	ev, _ := NewEvent(EventSwipe, "me", nil)
	err := p.Publish(context.Background(), ev)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "swipe")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
}
