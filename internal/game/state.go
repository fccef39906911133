// internal/game/state.go
package game

import "fmt"

// InitialLives is how many lives every player starts with. A double game
// (everyone dying in the same round) resets all players back to this count.
const InitialLives = 3

// PlayerID is the stable identity of a player for the game's lifetime.
// Connections come and go; PlayerIDs never do.
type PlayerID string

// MoveKind is a player's recorded move for the current round.
type MoveKind string

const (
	MoveStick MoveKind = "stick"
	MoveSwap  MoveKind = "swap"
	// MoveAttemptedSwap records a swap that was blocked because the target
	// neighbor held a king. It consumes the turn like a real swap.
	MoveAttemptedSwap MoveKind = "attempted-swap"
	MoveHitDeck       MoveKind = "hit-deck"
)

// Player is one seat in the game. Dead players (Lives == 0) are skipped for
// turn order but never removed from the map; history still references them.
type Player struct {
	ID       PlayerID `json:"id"`
	Username string   `json:"username"`
	Lives    int      `json:"lives"`
	Card     *Card    `json:"card,omitempty"`
	Move     MoveKind `json:"move,omitempty"`
}

// Alive reports whether the player still has lives left.
func (p *Player) Alive() bool { return p.Lives > 0 }

// GameState is the complete authoritative state of one Modi game. It is only
// ever produced by NewGameState or Reduce; nothing mutates a state in place.
type GameState struct {
	Players          map[PlayerID]*Player `json:"players"`
	OrderedPlayerIDs []PlayerID           `json:"orderedPlayerIds"`
	DealerID         PlayerID             `json:"dealerId,omitempty"`
	ActivePlayerID   PlayerID             `json:"activePlayerId,omitempty"`
	Version          int                  `json:"version"`
}

// NewGameState builds the version-0 state for the given authorized player
// ids. The id order is the authorization order and fixes the seating ring for
// the whole game.
func NewGameState(playerIDs []PlayerID, usernames map[PlayerID]string) GameState {
	players := make(map[PlayerID]*Player, len(playerIDs))
	ordered := make([]PlayerID, len(playerIDs))
	for i, id := range playerIDs {
		players[id] = &Player{ID: id, Username: usernames[id], Lives: InitialLives}
		ordered[i] = id
	}
	return GameState{
		Players:          players,
		OrderedPlayerIDs: ordered,
	}
}

// Clone returns a structurally independent copy of the state.
func (s GameState) Clone() GameState {
	players := make(map[PlayerID]*Player, len(s.Players))
	for id, p := range s.Players {
		cp := *p
		if p.Card != nil {
			card := *p.Card
			cp.Card = &card
		}
		players[id] = &cp
	}
	ordered := make([]PlayerID, len(s.OrderedPlayerIDs))
	copy(ordered, s.OrderedPlayerIDs)
	return GameState{
		Players:          players,
		OrderedPlayerIDs: ordered,
		DealerID:         s.DealerID,
		ActivePlayerID:   s.ActivePlayerID,
		Version:          s.Version,
	}
}

// NextAlivePlayerID walks the seating ring starting after from and returns
// the first player with lives remaining. Panics if no other player is alive;
// callers only rotate turns while at least two players live.
func (s GameState) NextAlivePlayerID(from PlayerID) PlayerID {
	start := s.indexOf(from)
	for i := 1; i <= len(s.OrderedPlayerIDs); i++ {
		id := s.OrderedPlayerIDs[(start+i)%len(s.OrderedPlayerIDs)]
		if id != from && s.Players[id].Alive() {
			return id
		}
	}
	panic(fmt.Sprintf("game: no alive player after %s", from))
}

// AlivePlayerIDs returns the ids of living players in seating order.
func (s GameState) AlivePlayerIDs() []PlayerID {
	var alive []PlayerID
	for _, id := range s.OrderedPlayerIDs {
		if s.Players[id].Alive() {
			alive = append(alive, id)
		}
	}
	return alive
}

func (s GameState) indexOf(playerID PlayerID) int {
	for i, id := range s.OrderedPlayerIDs {
		if id == playerID {
			return i
		}
	}
	return -1
}

// Reduce applies one event to a state and returns the successor state with
// the version bumped by exactly one. The input state is never modified.
// Replaying a full event history over the initial state reproduces the live
// state, so the reducer must stay free of any outside input.
func Reduce(state GameState, ev Event) GameState {
	next := state.Clone()
	next.Version = state.Version + 1

	switch ev.Type {
	case EventDealtCards:
		for _, dealt := range ev.Cards {
			card := dealt.Card
			next.Players[dealt.PlayerID].Card = &card
		}

	case EventRemoveCards:
		for _, p := range next.Players {
			p.Card = nil
		}

	case EventPlayersTraded:
		from := next.Players[ev.FromPlayerID]
		to := next.Players[ev.ToPlayerID]
		from.Card, to.Card = to.Card, from.Card
		from.Move = MoveSwap
		next.advanceActiveAfter(ev.FromPlayerID)

	case EventSwapBlocked:
		// The king blocks the trade; the turn is still spent.
		next.Players[ev.FromPlayerID].Move = MoveAttemptedSwap
		next.advanceActiveAfter(ev.FromPlayerID)

	case EventPlayerStuck:
		next.Players[ev.PlayerID].Move = MoveStick
		next.advanceActiveAfter(ev.PlayerID)

	case EventPlayerHitDeck:
		p := next.Players[ev.PlayerID]
		card := *ev.Card
		p.Card = &card
		p.Move = MoveHitDeck
		next.advanceActiveAfter(ev.PlayerID)

	case EventHighcardWinners:
		// Informational marker; bumps the version and nothing else.

	case EventStartRound:
		next.DealerID = ev.DealerID
		next.ActivePlayerID = ev.ActivePlayerID
		for _, p := range next.Players {
			p.Move = ""
		}

	case EventRoundLosers:
		for _, id := range ev.PlayerIDs {
			p := next.Players[id]
			if !p.Alive() {
				panic(fmt.Sprintf("game: player %s has no lives left to lose", id))
			}
			p.Lives--
		}
		next.reviveAllIfWipedOut()

	case EventGameOver:
		next.ActivePlayerID = ""
	}

	return next
}

// advanceActiveAfter moves the turn to the next alive player who has not
// moved yet. The dealer always acts last, so a dealer move (or a fully moved
// ring) leaves no active player: the round is ready to resolve.
func (s *GameState) advanceActiveAfter(mover PlayerID) {
	if mover == s.DealerID {
		s.ActivePlayerID = ""
		return
	}
	start := s.indexOf(mover)
	for i := 1; i <= len(s.OrderedPlayerIDs); i++ {
		id := s.OrderedPlayerIDs[(start+i)%len(s.OrderedPlayerIDs)]
		p := s.Players[id]
		if p.Alive() && p.Move == "" {
			s.ActivePlayerID = id
			return
		}
	}
	s.ActivePlayerID = ""
}

// reviveAllIfWipedOut implements the double game: when the last alive players
// all lose their final life in the same round, everyone comes back with a
// fresh set of lives and play continues in the same dealer order.
func (s *GameState) reviveAllIfWipedOut() {
	for _, p := range s.Players {
		if p.Alive() {
			return
		}
	}
	for _, p := range s.Players {
		p.Lives = InitialLives
	}
}
