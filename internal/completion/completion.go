// Package completion talks to hosted chat-completion models.
package completion

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned when the provider throttles us (HTTP 429).
	ErrRateLimited = errors.New("completion: rate limited")
	// ErrQuotaExhausted is returned when the account is out of credits (HTTP 402).
	ErrQuotaExhausted = errors.New("completion: quota exhausted")
	// ErrEmptyReply is returned when the provider answered without text.
	ErrEmptyReply = errors.New("completion: empty reply")
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Client produces the next assistant turn for a transcript.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError is a non-2xx provider answer that is neither a rate limit nor
// a quota problem.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion: upstream status %d: %s", e.Status, e.Body)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
