package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/guilda/internal/apperr"
	"github.com/example/guilda/internal/ingest"
	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/observability"
	"github.com/example/guilda/internal/storage"
	"github.com/google/uuid"
)

var ErrAlreadyPaid = fmt.Errorf("conversation already paid: %w", storage.ErrConflict)

// Store is what a payment touches.
type Store interface {
	Product(ctx context.Context, id string) (models.Product, error)
	VendorConversation(ctx context.Context, id string) (models.VendorConversation, error)
	SetVendorConversationStatus(ctx context.Context, id string, status models.ConversationStatus) error
	AppendMessage(ctx context.Context, m models.Message) (models.Message, error)
	CreateOrder(ctx context.Context, o models.DemoOrder) error
	DeleteOrder(ctx context.Context, receiptID string) error
}

type Request struct {
	ConversationID string
	ProductID      string
	BuyerID        string
	// ClaimedTotal is the total the client displayed. It must match the
	// server quote when set.
	ClaimedTotal *models.Cents
}

type Receipt struct {
	ReceiptID string           `json:"receiptId"`
	Message   string           `json:"message"`
	Order     models.DemoOrder `json:"order"`
	Quote     Quote            `json:"quote"`
	Reference string           `json:"-"`
}

type Service struct {
	store     Store
	processor Processor
	publisher ingest.Publisher
	freight   models.Cents
	now       func() time.Time
	logger    *slog.Logger

	mu        sync.Mutex
	checkouts map[string]*Checkout
}

func NewService(store Store, processor Processor, publisher ingest.Publisher, freight models.Cents, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = ingest.Nop{}
	}
	return &Service{
		store:     store,
		processor: processor,
		publisher: publisher,
		freight:   freight,
		now:       time.Now,
		logger:    logging.OrDiscard(logger),
		checkouts: make(map[string]*Checkout),
	}
}

func (s *Service) Freight() models.Cents { return s.freight }

// QuoteFor prices a vendor conversation, preferring a negotiated price.
func (s *Service) QuoteFor(conv models.VendorConversation, p models.Product) Quote {
	price := p.PriceCents
	if conv.NegotiatedPriceCents != nil {
		price = *conv.NegotiatedPriceCents
	}
	return NewQuote(price, s.freight)
}

// Checkout returns the state machine of a conversation.
func (s *Service) Checkout(conversationID string) *Checkout {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checkouts[conversationID]
	if !ok {
		c = &Checkout{}
		s.checkouts[conversationID] = c
	}
	return c
}

// Pay runs the simulated payment. Any failure before the confirmation
// message is stored leaves the conversation as it was and the checkout Idle.
func (s *Service) Pay(ctx context.Context, req Request) (Receipt, error) {
	conv, err := s.store.VendorConversation(ctx, req.ConversationID)
	if err != nil {
		return Receipt{}, fmt.Errorf("conversation %s: %w", req.ConversationID, err)
	}
	if conv.BuyerID != req.BuyerID {
		return Receipt{}, apperr.ErrForbidden
	}
	if req.ProductID != "" && req.ProductID != conv.ProductID {
		return Receipt{}, apperr.Validation("productId", "product does not belong to the conversation")
	}
	if conv.Status == models.StatusPaid {
		return Receipt{}, ErrAlreadyPaid
	}
	product, err := s.store.Product(ctx, conv.ProductID)
	if err != nil {
		return Receipt{}, fmt.Errorf("product %s: %w", conv.ProductID, err)
	}
	quote := s.QuoteFor(conv, product)
	if req.ClaimedTotal != nil && *req.ClaimedTotal != quote.Total {
		return Receipt{}, apperr.Validation("totalPrice", fmt.Sprintf("expected %s", quote.Total))
	}

	checkout := s.Checkout(conv.ID)
	if err := checkout.Begin(); err != nil {
		return Receipt{}, err
	}
	receipt, err := s.process(ctx, conv, product, quote)
	if err != nil {
		checkout.Fail()
		s.logger.Warn("demo payment failed", "conversation_id", conv.ID, "error", err)
		return Receipt{}, err
	}
	checkout.Succeed()
	return receipt, nil
}

func (s *Service) process(ctx context.Context, conv models.VendorConversation, product models.Product, quote Quote) (Receipt, error) {
	order, err := s.createOrder(ctx, conv, quote)
	if err != nil {
		return Receipt{}, err
	}

	ref, err := s.processor.Process(ctx, Charge{ReceiptID: order.ReceiptID, BuyerID: conv.BuyerID, ProductID: product.ID, Amount: quote.Total})
	if err != nil {
		s.rollback(order.ReceiptID)
		return Receipt{}, fmt.Errorf("process payment: %w", err)
	}

	_, err = s.store.AppendMessage(ctx, models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       conv.BuyerID,
		Content:        SystemMessage(product.Name, quote.Total, order.ReceiptID),
		Type:           models.MessageSystem,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		s.rollback(order.ReceiptID)
		return Receipt{}, fmt.Errorf("append payment message: %w", err)
	}

	if err := s.store.SetVendorConversationStatus(ctx, conv.ID, models.StatusPaid); err != nil {
		s.logger.Error("mark conversation paid", "conversation_id", conv.ID, "error", err)
	}
	observability.DemoOrdersTotal.Inc()
	if ev, err := ingest.NewEvent(ingest.EventDemoOrder, conv.ID, order); err == nil {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("publish demo order", "receipt_id", order.ReceiptID, "error", err)
		}
	}
	s.logger.Info("demo payment processed", "receipt_id", order.ReceiptID, "conversation_id", conv.ID, "total", quote.Total.String())

	return Receipt{
		ReceiptID: order.ReceiptID,
		Message:   BuyerMessage(quote.Total, order.ReceiptID),
		Order:     order,
		Quote:     quote,
		Reference: ref,
	}, nil
}

// createOrder stores a pending order under a GUILD-REC-<millis> receipt,
// stepping the millisecond on collision.
func (s *Service) createOrder(ctx context.Context, conv models.VendorConversation, quote Quote) (models.DemoOrder, error) {
	now := s.now().UTC()
	ms := now.UnixMilli()
	for attempt := 0; ; attempt++ {
		order := models.DemoOrder{
			ReceiptID:      fmt.Sprintf("GUILD-REC-%d", ms+int64(attempt)),
			BuyerID:        conv.BuyerID,
			ProductID:      conv.ProductID,
			ConversationID: conv.ID,
			TotalCents:     quote.Total,
			Status:         models.OrderPending,
			CreatedAt:      now,
		}
		err := s.store.CreateOrder(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, storage.ErrConflict) || attempt == 4 {
			return models.DemoOrder{}, fmt.Errorf("create order: %w", err)
		}
	}
}

func (s *Service) rollback(receiptID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.DeleteOrder(ctx, receiptID); err != nil {
		s.logger.Error("roll back demo order", "receipt_id", receiptID, "error", err)
	}
}

// SystemMessage is stored in the conversation after a demo payment.
func SystemMessage(productName string, total models.Cents, receiptID string) string {
	return fmt.Sprintf("🎫 Pagamento demo recebido!\n\nPedido: %s\nTotal: R$ %s\nRecibo: %s\n\n(Demonstração — não foi cobrado)\n\nO vendedor será notificado para confirmar envio.",
		productName, total, receiptID)
}

// BuyerMessage is shown to the buyer after a demo payment.
func BuyerMessage(total models.Cents, receiptID string) string {
	return fmt.Sprintf("🎉 Pagamento demo processado com sucesso!\n\nRecibo: %s\nTotal: R$ %s\n\n✨ Esta é uma demonstração. Nenhum valor foi cobrado.",
		receiptID, total)
}
