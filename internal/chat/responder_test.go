package chat

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/example/guilda/internal/completion"
	"github.com/example/guilda/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateResponderPicksTemplate(t *testing.T) {
	r := NewTemplateResponder(0, rand.NewSource(7))
	for i := 0; i < 20; i++ {
		reply, err := r.Reply(context.Background(), Turn{})
		require.NoError(t, err)
		assert.Contains(t, Templates, reply)
	}
}

func TestTemplateResponderDeterministicWithSeed(t *testing.T) {
	a := NewTemplateResponder(0, rand.NewSource(42))
	b := NewTemplateResponder(0, rand.NewSource(42))
	for i := 0; i < 5; i++ {
		ra, _ := a.Reply(context.Background(), Turn{})
		rb, _ := b.Reply(context.Background(), Turn{})
		assert.Equal(t, ra, rb)
	}
}

func TestTemplateResponderDelayCancelled(t *testing.T) {
	r := NewTemplateResponder(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Reply(ctx, Turn{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompletionResponderRequest(t *testing.T) {
	var got completion.Request
	r := &CompletionResponder{Client: completion.ClientFunc(func(_ context.Context, req completion.Request) (string, error) {
		got = req
		return "Oi! Também amo Naruto 😄", nil
	})}

	reply, err := r.Reply(context.Background(), Turn{
		Persona:    Persona{Name: "Sakura", Gender: "women", Interests: []string{"Naruto", "Cosplay"}},
		Transcript: []completion.Message{{Role: completion.RoleUser, Content: "oi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Oi! Também amo Naruto 😄", reply)
	assert.InDelta(t, 0.9, got.Temperature, 1e-9)
	assert.Equal(t, 150, got.MaxTokens)
	assert.Contains(t, got.System, "Você é Sakura")
	assert.Contains(t, got.System, "uma garota animada")
	assert.Contains(t, got.System, "Naruto, Cosplay")
	require.Len(t, got.Messages, 1)
}

func TestPersonaPromptDefaults(t *testing.T) {
	p := PersonaPrompt(Persona{})
	assert.Contains(t, p, "Você é Usuário")
	assert.Contains(t, p, "anime, games")
	assert.Contains(t, p, "uma pessoa animada")
	assert.Contains(t, PersonaPrompt(Persona{Gender: "masculino"}), "um rapaz animado")
}

func TestTranscriptRoles(t *testing.T) {
	history := []models.Message{
		{SenderID: models.SystemSender, Content: "welcome", Type: models.MessageSystem},
		{SenderID: "me", Content: "oi", Type: models.MessageText},
		{SenderID: "mock-1", Content: "olá", Type: models.MessageText},
	}
	got := Transcript(history, "me")
	assert.Equal(t, []completion.Message{
		{Role: completion.RoleUser, Content: "oi"},
		{Role: completion.RoleAssistant, Content: "olá"},
	}, got)
}
