package payments

import (
	"context"
	"time"

	"github.com/example/guilda/internal/models"
)

// Charge describes one simulated payment.
type Charge struct {
	ReceiptID string
	BuyerID   string
	ProductID string
	Amount    models.Cents
}

// Processor authorizes a charge and returns a processor reference.
type Processor interface {
	Process(ctx context.Context, c Charge) (string, error)
}

// SimulatedProcessor waits Delay and always succeeds.
type SimulatedProcessor struct {
	Delay time.Duration
}

func (p SimulatedProcessor) Process(ctx context.Context, c Charge) (string, error) {
	if p.Delay > 0 {
		t := time.NewTimer(p.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return "sim_" + c.ReceiptID, nil
}
