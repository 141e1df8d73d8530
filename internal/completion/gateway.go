package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GatewayClient calls an OpenAI-compatible /chat/completions endpoint.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	// Retries applies to transport errors and 5xx answers only.
	Retries int
	backoff time.Duration
}

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewGatewayClient(cfg GatewayConfig) *GatewayClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &GatewayClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		Retries:    1,
		backoff:    500 * time.Millisecond,
	}
}

type gatewayRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type gatewayResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *GatewayClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("completion: gateway API key not configured")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: req.System})
	}
	msgs = append(msgs, req.Messages...)
	body, err := json.Marshal(gatewayRequest{Model: c.model, Messages: msgs, Temperature: req.Temperature, MaxTokens: req.MaxTokens})
	if err != nil {
		return "", fmt.Errorf("completion: marshal request: %w", err)
	}

	var lastErr error
	for i := 0; i <= c.Retries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff * time.Duration(1<<uint(i-1))):
			}
		}
		reply, retry, err := c.do(ctx, body)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (c *GatewayClient) do(ctx context.Context, body []byte) (reply string, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("completion: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("completion: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, fmt.Errorf("completion: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", false, ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return "", false, ErrQuotaExhausted
	case resp.StatusCode >= 500:
		return "", true, &StatusError{Status: resp.StatusCode, Body: string(raw)}
	case resp.StatusCode/100 != 2:
		return "", false, &StatusError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out gatewayResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", false, fmt.Errorf("completion: parse response: %w", err)
	}
	if out.Error != nil {
		return "", false, fmt.Errorf("completion: provider error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", false, ErrEmptyReply
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), false, nil
}
