package matching

import "github.com/example/guilda/internal/models"

// Deck is the ordered card list a viewer swipes through. The cursor wraps
// around after the last card. Not safe for concurrent use.
type Deck struct {
	cards []models.Profile
	index int
}

func NewDeck(cards []models.Profile) *Deck {
	return &Deck{cards: append([]models.Profile(nil), cards...)}
}

func (d *Deck) Len() int   { return len(d.cards) }
func (d *Deck) Index() int { return d.index }

// Current returns the card on top, false for an empty deck.
func (d *Deck) Current() (models.Profile, bool) {
	if len(d.cards) == 0 {
		return models.Profile{}, false
	}
	return d.cards[d.index], true
}

// Advance moves to the next card, cycling back to the first.
func (d *Deck) Advance() {
	if len(d.cards) == 0 {
		return
	}
	d.index = (d.index + 1) % len(d.cards)
}

// Find returns the card with the given id.
func (d *Deck) Find(id string) (models.Profile, bool) {
	for _, c := range d.cards {
		if c.ID == id {
			return c, true
		}
	}
	return models.Profile{}, false
}

func (d *Deck) Cards() []models.Profile {
	return append([]models.Profile(nil), d.cards...)
}
