package chat

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/example/guilda/internal/completion"
	"github.com/example/guilda/internal/models"
)

// Templates are the canned replies of the offline responder.
var Templates = []string{
	"Que legal! Concordo totalmente 😄",
	"Nossa, também amo isso! Temos muito em comum",
	"Haha, verdade! Que coincidência",
	"Exato! Você tem bom gosto 😉",
	"Interessante! Me conta mais sobre isso",
}

// Persona is what the counterpart reply is written as.
type Persona struct {
	Name      string   `json:"name"`
	Gender    string   `json:"gender"`
	Interests []string `json:"interests"`
}

func PersonaOf(p models.Profile) Persona {
	return Persona{Name: p.DisplayName, Gender: string(p.Gender), Interests: p.Interests}
}

// Turn is the input of a responder: the counterpart persona and the
// transcript tagged from the viewer's side.
type Turn struct {
	Persona    Persona
	Transcript []completion.Message
}

// Responder produces the counterpart's next message.
type Responder interface {
	Reply(ctx context.Context, turn Turn) (string, error)
}

// TemplateResponder waits Delay and answers with a random template.
type TemplateResponder struct {
	Delay time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTemplateResponder(delay time.Duration, src rand.Source) *TemplateResponder {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &TemplateResponder{Delay: delay, rnd: rand.New(src)}
}

func (r *TemplateResponder) Reply(ctx context.Context, _ Turn) (string, error) {
	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	r.mu.Lock()
	i := r.rnd.Intn(len(Templates))
	r.mu.Unlock()
	return Templates[i], nil
}

const (
	personaTemperature = 0.9
	personaMaxTokens   = 150
)

// CompletionResponder asks a completion model to write as the persona.
type CompletionResponder struct {
	Client completion.Client
}

func (r *CompletionResponder) Reply(ctx context.Context, turn Turn) (string, error) {
	return r.Client.Complete(ctx, completion.Request{
		System:      PersonaPrompt(turn.Persona),
		Messages:    turn.Transcript,
		Temperature: personaTemperature,
		MaxTokens:   personaMaxTokens,
	})
}

// PersonaPrompt builds the system prompt for a dating-match persona.
func PersonaPrompt(p Persona) string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "Usuário"
	}
	interests := strings.Join(p.Interests, ", ")
	if interests == "" {
		interests = "anime, games"
	}
	return fmt.Sprintf(`Você é %s, uma pessoa otaku apaixonada por cultura geek.
Seus principais interesses são: %s.
Você é %s que adora conversar sobre seus hobbies favoritos.
Seja descontraído(a), use emojis ocasionalmente, e mostre entusiasmo genuíno ao falar sobre %s.
Responda de forma natural, como em um app de relacionamentos, demonstrando interesse na conversa.
Mantenha respostas curtas e envolventes (máximo 2-3 frases).
Seja autêntico(a) e carismático(a), fazendo perguntas sobre os gostos da outra pessoa também.`,
		name, interests, genderPhrase(p.Gender), interests)
}

func genderPhrase(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "masculino", string(models.GenderMen):
		return "um rapaz animado"
	case "feminino", string(models.GenderWomen):
		return "uma garota animada"
	}
	return "uma pessoa animada"
}

// Transcript tags history from viewerID's side: their messages are user
// turns, everything else is the assistant. System messages are dropped.
func Transcript(history []models.Message, viewerID string) []completion.Message {
	out := make([]completion.Message, 0, len(history))
	for _, m := range history {
		if m.Type == models.MessageSystem {
			continue
		}
		role := completion.RoleAssistant
		if m.SenderID == viewerID {
			role = completion.RoleUser
		}
		out = append(out, completion.Message{Role: role, Content: m.Content})
	}
	return out
}
