package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/guilda/internal/logging"
)

// PushDispatcher delivers over websocket first and falls back to an HTTP
// webhook for users with no open socket.
type PushDispatcher struct {
	Endpoint string
	Client   *http.Client
	WS       *WSRegistry
	logger   *slog.Logger
}

func NewPushDispatcher(endpoint string, ws *WSRegistry, logger *slog.Logger) *PushDispatcher {
	return &PushDispatcher{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}, WS: ws, logger: logging.OrDiscard(logger)}
}

func (p *PushDispatcher) Push(userID string, ev Event) error {
	if p.WS != nil {
		err := p.WS.Push(userID, ev)
		if err == nil || !errors.Is(err, ErrNoSession) {
			return err
		}
	}
	if p.Endpoint == "" {
		return ErrNoSession
	}
	body, err := Encode(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.Client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guilda-User", userID)
	resp, err := p.Client.Do(req)
	if err != nil {
		p.logger.Warn("push webhook failed", "user_id", userID, "err", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push webhook status %d", resp.StatusCode)
	}
	return nil
}
