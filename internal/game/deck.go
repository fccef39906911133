// internal/game/deck.go
package game

import "math/rand"

// Deck supplies cards to the game. Implementations must never run dry: when
// the draw pile is exhausted they restock from discards and reshuffle. Tests
// substitute stub decks that deal predetermined cards.
type Deck interface {
	Pop() Card
	PopMany(n int) []Card
	Shuffle()
}

// standardDeck is a 52-card deck with an internal trash pile. Every popped
// card is also appended to trash, so a reload recycles the full deck.
type standardDeck struct {
	cards []Card
	trash []Card
	rng   *rand.Rand
}

// NewDeck builds a shuffled 52-card deck using the given random source.
func NewDeck(rng *rand.Rand) Deck {
	d := &standardDeck{rng: rng}
	for _, suit := range Suits {
		for rank := Rank(1); rank <= MaxRank; rank++ {
			d.cards = append(d.cards, Card{Suit: suit, Rank: rank})
		}
	}
	d.Shuffle()
	return d
}

// Pop deals the top card, reloading from trash first if the pile is empty.
func (d *standardDeck) Pop() Card {
	if len(d.cards) == 0 {
		d.reloadFromTrash()
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	d.trash = append(d.trash, card)
	return card
}

func (d *standardDeck) PopMany(n int) []Card {
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = d.Pop()
	}
	return cards
}

func (d *standardDeck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

func (d *standardDeck) reloadFromTrash() {
	d.cards = append(d.cards, d.trash...)
	d.trash = d.trash[:0]
	d.Shuffle()
}
