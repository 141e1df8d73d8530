package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/guilda/internal/logging"
	"github.com/google/uuid"
)

type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Mailer delivers one email and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, e Email) (string, error)
}

// ResendMailer posts to the Resend HTTP API.
type ResendMailer struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewResendMailer(apiKey, baseURL string) *ResendMailer {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendMailer{apiKey: apiKey, baseURL: baseURL, client: &http.Client{Timeout: 10 * time.Second}}
}

func (m *ResendMailer) Send(ctx context.Context, e Email) (string, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("resend status %d: %s", resp.StatusCode, raw)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parse resend response: %w", err)
	}
	return out.ID, nil
}

// LogMailer logs emails instead of sending them. Used when no provider key
// is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(_ context.Context, e Email) (string, error) {
	id := "log-" + uuid.NewString()
	logging.OrDiscard(m.Logger).Info("email not sent, no provider configured", "id", id, "to", e.To, "subject", e.Subject)
	return id, nil
}
