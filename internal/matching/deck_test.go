package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/guilda/internal/models"
)

func TestDeckCycles(t *testing.T) {
	d := NewDeck([]models.Profile{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	var seen []string
	for i := 0; i < 5; i++ {
		c, ok := d.Current()
		require.True(t, ok)
		seen = append(seen, c.ID)
		d.Advance()
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b"}, seen)
	assert.Equal(t, 2, d.Index())
}

func TestDeckEmpty(t *testing.T) {
	d := NewDeck(nil)
	_, ok := d.Current()
	assert.False(t, ok)
	d.Advance()
	assert.Equal(t, 0, d.Index())
	assert.Equal(t, 0, d.Len())
}

func TestDeckOwnsItsCards(t *testing.T) {
	in := []models.Profile{{ID: "a"}}
	d := NewDeck(in)
	in[0].ID = "z"
	c, _ := d.Current()
	assert.Equal(t, "a", c.ID)

	_, ok := d.Find("a")
	assert.True(t, ok)
	_, ok = d.Find("z")
	assert.False(t, ok)
}
