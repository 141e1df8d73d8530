package payments

import (
	"context"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// StripeTestProcessor places a manual-capture PaymentIntent with a test-mode
// key and cancels it right away, so the hold is never captured.
type StripeTestProcessor struct {
	api *client.API
}

// NewStripeTestProcessor refuses anything but an sk_test_ key. backendURL
// overrides the Stripe API endpoint when set.
func NewStripeTestProcessor(key, backendURL string) (*StripeTestProcessor, error) {
	if !strings.HasPrefix(key, "sk_test_") {
		return nil, fmt.Errorf("stripe: refusing non test-mode key")
	}
	var backends *stripe.Backends
	if backendURL != "" {
		cfg := &stripe.BackendConfig{URL: stripe.String(backendURL), MaxNetworkRetries: stripe.Int64(0)}
		backends = &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
		}
	}
	api := &client.API{}
	api.Init(key, backends)
	return &StripeTestProcessor{api: api}, nil
}

func (s *StripeTestProcessor) Process(ctx context.Context, c Charge) (string, error) {
	id, err := s.hold(ctx, c)
	if err != nil {
		return "", err
	}
	if err := s.cancel(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// hold creates a PaymentIntent with capture_method=manual.
func (s *StripeTestProcessor) hold(ctx context.Context, c Charge) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(c.Amount)),
		Currency: stripe.String(string(stripe.CurrencyBRL)),
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.Context = ctx
	params.AddMetadata("receipt_id", c.ReceiptID)
	params.AddMetadata("product_id", c.ProductID)
	params.AddMetadata("demo", "true")
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe hold: %w", err)
	}
	return pi.ID, nil
}

// cancel releases the hold.
func (s *StripeTestProcessor) cancel(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := s.api.PaymentIntents.Cancel(id, params); err != nil {
		return fmt.Errorf("stripe cancel %s: %w", id, err)
	}
	return nil
}
