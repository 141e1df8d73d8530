package payments

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/example/guilda/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutTransitions(t *testing.T) {
	var c Checkout
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Begin())
	assert.Equal(t, StateProcessing, c.State())
	assert.ErrorIs(t, c.Begin(), ErrCheckoutBusy)

	c.Fail()
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Begin())
	c.Succeed()
	assert.Equal(t, StateSuccess, c.State())
	assert.ErrorIs(t, c.Begin(), ErrCheckoutBusy)

	c.Fail()
	assert.Equal(t, StateSuccess, c.State(), "fail only applies while processing")
	assert.Equal(t, "success", c.State().String())
}

func TestCheckoutSingleWinner(t *testing.T) {
	var c Checkout
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Begin() == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestQuote(t *testing.T) {
	q := NewQuote(5000, DefaultFreight)
	assert.Equal(t, models.Cents(6500), q.Total)
	assert.Equal(t, "65.00", q.Total.String())
	assert.Equal(t, "15.00", q.Freight.String())
}
