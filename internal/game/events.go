// internal/game/events.go
package game

// EventType tags the kind of state change an Event carries.
type EventType string

const (
	EventDealtCards      EventType = "dealt_cards"
	EventRemoveCards     EventType = "remove_cards"
	EventPlayersTraded   EventType = "players_traded"
	EventSwapBlocked     EventType = "swap_blocked"
	EventPlayerStuck     EventType = "player_stuck"
	EventPlayerHitDeck   EventType = "player_hit_deck"
	EventHighcardWinners EventType = "highcard_winners"
	EventStartRound      EventType = "start_round"
	EventRoundLosers     EventType = "round_losers"
	EventGameOver        EventType = "game_over"
)

// DealtCard pairs a card with the player it was dealt to.
type DealtCard struct {
	Card     Card     `json:"card"`
	PlayerID PlayerID `json:"playerId"`
}

// Event is a single entry in the game's history. One struct covers the whole
// union; which payload fields are set depends on Type. Events are the only
// thing that ever mutates a GameState, and they do so exclusively through
// Reduce.
type Event struct {
	Type EventType `json:"type"`

	// dealt_cards
	Cards []DealtCard `json:"cards,omitempty"`

	// players_traded, swap_blocked
	FromPlayerID PlayerID `json:"fromPlayerId,omitempty"`
	ToPlayerID   PlayerID `json:"toPlayerId,omitempty"`

	// player_stuck, player_hit_deck
	PlayerID PlayerID `json:"playerId,omitempty"`
	Card     *Card    `json:"card,omitempty"`

	// highcard_winners, round_losers
	PlayerIDs []PlayerID `json:"playerIds,omitempty"`

	// start_round
	DealerID       PlayerID `json:"dealerId,omitempty"`
	ActivePlayerID PlayerID `json:"activePlayerId,omitempty"`

	// game_over
	WinnerID PlayerID `json:"winnerId,omitempty"`
}

// --- Event constructors ---

func dealtCards(cards []DealtCard) Event {
	return Event{Type: EventDealtCards, Cards: cards}
}

func removeCards() Event {
	return Event{Type: EventRemoveCards}
}

func playersTraded(from, to PlayerID) Event {
	return Event{Type: EventPlayersTraded, FromPlayerID: from, ToPlayerID: to}
}

func swapBlocked(from, to PlayerID) Event {
	return Event{Type: EventSwapBlocked, FromPlayerID: from, ToPlayerID: to}
}

func playerStuck(playerID PlayerID) Event {
	return Event{Type: EventPlayerStuck, PlayerID: playerID}
}

func playerHitDeck(playerID PlayerID, card Card) Event {
	return Event{Type: EventPlayerHitDeck, PlayerID: playerID, Card: &card}
}

func highcardWinners(playerIDs []PlayerID) Event {
	return Event{Type: EventHighcardWinners, PlayerIDs: playerIDs}
}

func startRound(dealerID, activePlayerID PlayerID) Event {
	return Event{Type: EventStartRound, DealerID: dealerID, ActivePlayerID: activePlayerID}
}

func roundLosers(playerIDs []PlayerID) Event {
	return Event{Type: EventRoundLosers, PlayerIDs: playerIDs}
}

func gameOver(winnerID PlayerID) Event {
	return Event{Type: EventGameOver, WinnerID: winnerID}
}
