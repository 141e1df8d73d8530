// Package payments runs the simulated marketplace checkout. No real money
// moves: processors either sleep or place and release a test-mode hold.
package payments

import (
	"errors"
	"sync"

	"github.com/example/guilda/internal/models"
)

var ErrCheckoutBusy = errors.New("checkout already in progress")

type State int

const (
	StateIdle State = iota
	StateProcessing
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateSuccess:
		return "success"
	}
	return "unknown"
}

// Checkout is the per-conversation payment state machine:
// Idle -> Processing -> Success, and Processing -> Idle on failure.
type Checkout struct {
	mu    sync.Mutex
	state State
}

// Begin moves Idle to Processing. Any other state returns ErrCheckoutBusy.
func (c *Checkout) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrCheckoutBusy
	}
	c.state = StateProcessing
	return nil
}

func (c *Checkout) Fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateProcessing {
		c.state = StateIdle
	}
}

func (c *Checkout) Succeed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateProcessing {
		c.state = StateSuccess
	}
}

func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DefaultFreight is the flat shipping fee.
const DefaultFreight models.Cents = 1500

type Quote struct {
	Price   models.Cents `json:"price"`
	Freight models.Cents `json:"freight"`
	Total   models.Cents `json:"total"`
}

func NewQuote(price, freight models.Cents) Quote {
	return Quote{Price: price, Freight: freight, Total: price + freight}
}
