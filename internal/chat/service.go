// Package chat runs match conversations: it stores messages in order and
// asks a Responder for the counterpart's reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/guilda/internal/apperr"
	"github.com/example/guilda/internal/dispatch"
	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/observability"
	"github.com/example/guilda/internal/storage"
	"github.com/google/uuid"
)

const MaxMessageLen = 2000

type ProfileReader interface {
	Profile(ctx context.Context, id string) (models.Profile, error)
}

type Service struct {
	Store     storage.ConversationStore
	Profiles  ProfileReader
	Responder Responder
	Pusher    dispatch.Pusher // optional
	// Timeout bounds one responder call.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Result of Send. Sent is always persisted; exactly one of Reply and
// Notice is set.
type Result struct {
	Sent   models.Message  `json:"sent"`
	Reply  *models.Message `json:"reply,omitempty"`
	Notice *Notice         `json:"notice,omitempty"`
}

// Open returns the conversation between viewerID and counterpartID,
// creating it on first use.
func (s *Service) Open(ctx context.Context, viewerID, counterpartID string) (models.Conversation, error) {
	if viewerID == counterpartID {
		return models.Conversation{}, apperr.Validation("counterpart_id", "cannot open a conversation with yourself")
	}
	if _, err := s.Profiles.Profile(ctx, counterpartID); err != nil {
		return models.Conversation{}, fmt.Errorf("counterpart %s: %w", counterpartID, err)
	}
	conv, err := s.Store.CreateConversation(ctx, models.Conversation{
		ID:           uuid.NewString(),
		Participants: models.PairOf(viewerID, counterpartID),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("open conversation: %w", err)
	}
	return conv, nil
}

func (s *Service) Conversations(ctx context.Context, viewerID string) ([]models.Conversation, error) {
	return s.Store.ConversationsFor(ctx, viewerID)
}

// Messages lists the conversation in creation order for a participant.
func (s *Service) Messages(ctx context.Context, conversationID, viewerID string) ([]models.Message, error) {
	if _, err := s.member(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	return s.Store.Messages(ctx, conversationID, 0)
}

// Send appends the sender's message first, then asks the responder for the
// counterpart's reply. A responder failure never removes the sent message;
// it is reported as a Notice instead of an error.
func (s *Service) Send(ctx context.Context, conversationID, senderID, content string) (Result, error) {
	log := logging.OrDiscard(s.Logger)
	content = strings.TrimSpace(content)
	if content == "" {
		return Result{}, apperr.Validation("content", "message is empty")
	}
	if len([]rune(content)) > MaxMessageLen {
		return Result{}, apperr.Validation("content", fmt.Sprintf("message longer than %d characters", MaxMessageLen))
	}

	conv, err := s.member(ctx, conversationID, senderID)
	if err != nil {
		return Result{}, err
	}

	sent, err := s.Store.AppendMessage(ctx, models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		Type:           models.MessageText,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("append message: %w", err)
	}
	observability.MessagesTotal.WithLabelValues("user").Inc()
	s.push(conv, dispatch.Event{Type: dispatch.EventMessage, Payload: sent})

	res := Result{Sent: sent}
	reply, err := s.reply(ctx, conv, senderID)
	if err != nil {
		n := NoticeFor(err)
		observability.CompletionErrorsTotal.WithLabelValues(string(n.Kind)).Inc()
		log.Warn("responder failed", "conversation_id", conv.ID, "kind", n.Kind, "error", err)
		s.pushTo(senderID, dispatch.Event{Type: dispatch.EventNotice, Payload: n})
		res.Notice = &n
		return res, nil
	}

	msg, err := s.Store.AppendMessage(ctx, models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       conv.Other(senderID),
		Content:        reply,
		Type:           models.MessageText,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return res, fmt.Errorf("append reply: %w", err)
	}
	observability.MessagesTotal.WithLabelValues("reply").Inc()
	s.push(conv, dispatch.Event{Type: dispatch.EventMessage, Payload: msg})
	res.Reply = &msg
	return res, nil
}

func (s *Service) reply(ctx context.Context, conv models.Conversation, senderID string) (string, error) {
	if s.Responder == nil {
		return "", errors.New("no responder configured")
	}
	// Responders see the whole conversation.
	history, err := s.Store.Messages(ctx, conv.ID, 0)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	persona := Persona{}
	if p, err := s.Profiles.Profile(ctx, conv.Other(senderID)); err == nil {
		persona = PersonaOf(p)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() { observability.CompletionLatency.Observe(time.Since(start).Seconds()) }()
	return s.Responder.Reply(ctx, Turn{Persona: persona, Transcript: Transcript(history, senderID)})
}

func (s *Service) member(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	conv, err := s.Store.Conversation(ctx, conversationID)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("conversation %s: %w", conversationID, err)
	}
	if !conv.Has(userID) {
		return models.Conversation{}, apperr.ErrForbidden
	}
	return conv, nil
}

func (s *Service) push(conv models.Conversation, ev dispatch.Event) {
	for _, id := range conv.Participants {
		s.pushTo(id, ev)
	}
}

func (s *Service) pushTo(userID string, ev dispatch.Event) {
	if s.Pusher == nil {
		return
	}
	if err := s.Pusher.Push(userID, ev); err != nil && !errors.Is(err, dispatch.ErrNoSession) {
		logging.OrDiscard(s.Logger).Debug("push failed", "user_id", userID, "type", ev.Type, "error", err)
	}
}
