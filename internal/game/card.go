// internal/game/card.go
package game

import "fmt"

// Suit is one of the four standard card suits.
type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Clubs    Suit = "clubs"
	Diamonds Suit = "diamonds"
)

// Suits lists every suit in deck-construction order.
var Suits = []Suit{Spades, Hearts, Clubs, Diamonds}

// Rank runs 1 (ace) through 13 (king). In Modi the king is the highest rank
// and blocks incoming swaps.
type Rank int

// MaxRank is the king. A player holding it cannot be swapped with.
const MaxRank Rank = 13

// Card is an immutable suit/rank pair. Cards are compared by value; two cards
// with the same suit and rank are the same card.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("%d of %s", c.Rank, c.Suit)
}
