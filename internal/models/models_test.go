package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCentsString(t *testing.T) {
	assert.Equal(t, "65.00", Cents(6500).String())
	assert.Equal(t, "15.00", Cents(1500).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-1.50", Cents(-150).String())
}

func TestConversationPair(t *testing.T) {
	c := Conversation{Participants: PairOf("zed", "amy")}
	assert.Equal(t, [2]string{"amy", "zed"}, c.Participants)
	assert.Equal(t, "zed", c.Other("amy"))
	assert.Equal(t, "amy", c.Other("zed"))
	assert.True(t, c.Has("zed"))
	assert.False(t, c.Has("bob"))
}

func TestProductSellerFallback(t *testing.T) {
	assert.Equal(t, OfficialSellerID, Product{}.Seller())
	assert.Equal(t, "s1", Product{SellerID: "s1"}.Seller())
}
