// internal/game/game.go
package game

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MoveResult is the outcome of HandleMove. Rejections are results, not
// errors: a wrong-turn request is an expected condition that only the
// requesting connection hears about.
type MoveResult string

const (
	MoveSuccess MoveResult = "success"
	MoveFailed  MoveResult = "failed"
)

var (
	// ErrNotHighcardWinner rejects a choose-dealer request from anyone but
	// the sole winner of the most recent highcard.
	ErrNotHighcardWinner = errors.New("Unauthorized: only the highcard winner may choose the dealer")

	// ErrAlreadyStarted rejects a second highcard kickoff.
	ErrAlreadyStarted = errors.New("game already started")
)

// ModiGame owns the authoritative state for a single game: the deck, the
// event log, and the current reduced state. All mutation funnels through
// dispatch under Mu, which keeps the reducer single-writer. ModiGame never
// talks to connections; the room layer listens on the history and fans out.
type ModiGame struct {
	ID uuid.UUID

	// Mu serializes every mutating request. The room layer also holds it
	// while snapshotting history for catch-up replay, so admission can never
	// observe a half-applied mutation. Lock order: Mu before any room lock.
	Mu sync.Mutex

	deck    Deck
	history *History

	initialState GameState
	state        GameState

	// highcardWinnerID is the sole winner of the most recent completed
	// highcard, cleared once they have chosen a dealer.
	highcardWinnerID PlayerID

	started bool
	over    bool
}

// NewModiGame creates a game for the fixed, ordered set of authorized player
// ids. The id order establishes the seating ring and the game admin
// (playerIDs[0]).
func NewModiGame(playerIDs []PlayerID, usernames map[PlayerID]string, deck Deck) *ModiGame {
	initial := NewGameState(playerIDs, usernames)
	return &ModiGame{
		ID:           uuid.New(),
		deck:         deck,
		history:      NewHistory(),
		initialState: initial,
		state:        initial.Clone(),
	}
}

// History exposes the event log for listener registration and replay.
func (g *ModiGame) History() *History {
	return g.history
}

// InitialState returns the creation-time state (version 0).
func (g *ModiGame) InitialState() GameState {
	return g.initialState.Clone()
}

// State returns a copy of the current state.
func (g *ModiGame) State() GameState {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.state.Clone()
}

// AuthorizedPlayerIDs returns the fixed id set in authorization order.
func (g *ModiGame) AuthorizedPlayerIDs() []PlayerID {
	ids := make([]PlayerID, len(g.initialState.OrderedPlayerIDs))
	copy(ids, g.initialState.OrderedPlayerIDs)
	return ids
}

// AdminID is the player allowed to start the game.
func (g *ModiGame) AdminID() PlayerID {
	return g.initialState.OrderedPlayerIDs[0]
}

// IsAuthorized reports whether playerID belongs to the game.
func (g *ModiGame) IsAuthorized(playerID PlayerID) bool {
	_, ok := g.initialState.Players[playerID]
	return ok
}

// Started reports whether the opening highcard has been played.
func (g *ModiGame) Started() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.started
}

// Over reports whether a game_over event has been emitted.
func (g *ModiGame) Over() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.over
}

// dispatch reduces the state and then appends the event. Reduce-then-push
// means that by the time listeners run, the live state already reflects the
// event: a client that just received version N will see version >= N on any
// follow-up query.
func (g *ModiGame) dispatch(ev Event) {
	g.state = Reduce(g.state, ev)
	g.history.Push(ev)
}

// PlayHighcard runs the opening tie-break: deal one card to every candidate,
// take the highest-rank group, and re-deal among the tied players until a
// single winner remains. Each pass emits dealt_cards, highcard_winners and
// remove_cards. Returns the winner's id.
func (g *ModiGame) PlayHighcard() (PlayerID, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.started {
		return "", ErrAlreadyStarted
	}
	g.started = true

	candidates := g.state.AlivePlayerIDs()
	for {
		cards := g.deck.PopMany(len(candidates))
		dealt := make([]DealtCard, len(candidates))
		for i, id := range candidates {
			dealt[i] = DealtCard{Card: cards[i], PlayerID: id}
		}
		g.dispatch(dealtCards(dealt))

		// Ranks must be re-read from the freshly reduced state: every pass
		// deals new cards to the shrinking candidate set.
		groups := rankGroups(g.state, candidates)
		winners := groups[len(groups)-1]

		g.dispatch(highcardWinners(winners))
		g.dispatch(removeCards())

		if len(winners) == 1 {
			g.highcardWinnerID = winners[0]
			return winners[0], nil
		}
		candidates = winners
	}
}

// SetDealer lets the highcard winner pick the first dealer. On success it
// emits start_round and deals the opening round. Any other requester gets
// ErrNotHighcardWinner and no event is emitted.
func (g *ModiGame) SetDealer(requesterID, dealerID PlayerID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.highcardWinnerID == "" || requesterID != g.highcardWinnerID {
		return ErrNotHighcardWinner
	}
	dealer, ok := g.state.Players[dealerID]
	if !ok || !dealer.Alive() {
		return fmt.Errorf("cannot make %s the dealer", dealerID)
	}
	g.highcardWinnerID = ""

	g.dispatch(startRound(dealerID, g.state.NextAlivePlayerID(dealerID)))
	g.dealRound()
	return nil
}

// HandleMove applies a move for playerID. Requests from anyone but the
// active player fail with no event. Accepted moves always emit exactly one
// event; once the dealer (always last) has moved, the round resolves.
func (g *ModiGame) HandleMove(playerID PlayerID, move MoveKind) MoveResult {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.over || g.state.ActivePlayerID != playerID {
		return MoveFailed
	}

	if playerID == g.state.DealerID {
		switch move {
		case MoveSwap, MoveHitDeck:
			// The dealer has no neighbor to trade with; their swap draws a
			// replacement card from the deck.
			g.dispatch(playerHitDeck(playerID, g.deck.Pop()))
		case MoveStick:
			g.dispatch(playerStuck(playerID))
		default:
			return MoveFailed
		}
	} else {
		switch move {
		case MoveSwap:
			target := g.state.NextAlivePlayerID(playerID)
			if card := g.state.Players[target].Card; card != nil && card.Rank == MaxRank {
				g.dispatch(swapBlocked(playerID, target))
			} else {
				g.dispatch(playersTraded(playerID, target))
			}
		case MoveStick:
			g.dispatch(playerStuck(playerID))
		default:
			return MoveFailed
		}
	}

	if g.state.ActivePlayerID == "" {
		g.resolveRound()
	}
	return MoveSuccess
}

// resolveRound ends the move-collection phase: the lowest-rank group loses a
// life, cards are discarded, and either the game ends or the dealer button
// advances and the next round is dealt. Mu must be held.
func (g *ModiGame) resolveRound() {
	groups := rankGroups(g.state, g.state.OrderedPlayerIDs)
	g.dispatch(roundLosers(groups[0]))
	g.dispatch(removeCards())

	alive := g.state.AlivePlayerIDs()
	if len(alive) == 1 {
		g.dispatch(gameOver(alive[0]))
		g.over = true
		return
	}

	dealerID := g.state.NextAlivePlayerID(g.state.DealerID)
	g.dispatch(startRound(dealerID, g.state.NextAlivePlayerID(dealerID)))
	g.dealRound()
}

// dealRound deals one card to every alive player, in ring order starting
// left of the dealer and ending with the dealer. Mu must be held.
func (g *ModiGame) dealRound() {
	dealerID := g.state.DealerID
	order := []PlayerID{}
	for id := g.state.NextAlivePlayerID(dealerID); id != dealerID; id = g.state.NextAlivePlayerID(id) {
		order = append(order, id)
	}
	order = append(order, dealerID)

	cards := g.deck.PopMany(len(order))
	dealt := make([]DealtCard, len(order))
	for i, id := range order {
		dealt[i] = DealtCard{Card: cards[i], PlayerID: id}
	}
	g.dispatch(dealtCards(dealt))
}
