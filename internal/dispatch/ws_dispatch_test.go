package dispatch

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsPair registers the server side of a fresh socket for userID and returns
// the client side plus the unregister func.
func wsPair(t *testing.T, reg *WSRegistry, userID string) (*websocket.Conn, func()) {
	t.Helper()
	removeCh := make(chan func(), 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		removeCh <- reg.Add(userID, conn)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	select {
	case remove := <-removeCh:
		return client, remove
	case <-time.After(2 * time.Second):
		t.Fatal("server never registered the socket")
		return nil, nil
	}
}

func readEvent(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]any
	require.NoError(t, c.ReadJSON(&got))
	return got
}

func TestWSRegistryPushToEverySocket(t *testing.T) {
	reg := NewWSRegistry(nil)
	a, _ := wsPair(t, reg, "u1")
	b, _ := wsPair(t, reg, "u1")

	require.NoError(t, reg.Push("u1", Event{Type: EventMatch, Payload: map[string]string{"candidate_id": "mock-2"}}))

	for _, c := range []*websocket.Conn{a, b} {
		got := readEvent(t, c)
		assert.Equal(t, "match", got["type"])
		assert.Equal(t, "mock-2", got["payload"].(map[string]any)["candidate_id"])
	}
}

func TestWSRegistryNoSession(t *testing.T) {
	reg := NewWSRegistry(nil)
	assert.ErrorIs(t, reg.Push("nobody", Event{Type: EventNotice}), ErrNoSession)

	_, remove := wsPair(t, reg, "u1")
	assert.True(t, reg.Connected("u1"))
	remove()
	remove()
	assert.False(t, reg.Connected("u1"))
	assert.ErrorIs(t, reg.Push("u1", Event{Type: EventNotice}), ErrNoSession)
}

func TestPushDispatcherFallsBackToWebhook(t *testing.T) {
	got := make(chan Event, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u9", r.Header.Get("X-Guilda-User"))
		body, _ := io.ReadAll(r.Body)
		var ev Event
		_ = json.Unmarshal(body, &ev)
		got <- ev
	}))
	defer hook.Close()

	p := NewPushDispatcher(hook.URL, NewWSRegistry(nil), nil)
	require.NoError(t, p.Push("u9", Event{Type: EventMessage, Payload: "oi"}))
	ev := <-got
	assert.Equal(t, EventMessage, ev.Type)
	assert.Equal(t, "oi", ev.Payload)
}

func TestPushDispatcherPrefersSocket(t *testing.T) {
	reg := NewWSRegistry(nil)
	c, _ := wsPair(t, reg, "u1")
	p := NewPushDispatcher("", reg, nil)

	require.NoError(t, p.Push("u1", Event{Type: EventNotice, Payload: "x"}))
	assert.Equal(t, "notice", readEvent(t, c)["type"])
	assert.ErrorIs(t, p.Push("u2", Event{Type: EventNotice}), ErrNoSession)
}
