package completion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenAIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Bem-vindo, aventureiro!"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGenAIClient(context.Background(), GenAIConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	reply, err := c.Complete(context.Background(), Request{
		System:   "merchant",
		Messages: []Message{{Role: RoleUser, Content: "oi"}, {Role: RoleAssistant, Content: "olá"}, {Role: RoleUser, Content: "preço?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bem-vindo, aventureiro!", reply)
}

func TestNewGenAIClientRequiresKey(t *testing.T) {
	_, err := NewGenAIClient(context.Background(), GenAIConfig{})
	assert.Error(t, err)
}
