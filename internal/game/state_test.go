// internal/game/state_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(ids ...PlayerID) GameState {
	usernames := make(map[PlayerID]string, len(ids))
	for _, id := range ids {
		usernames[id] = "player " + string(id)
	}
	return NewGameState(ids, usernames)
}

func TestNewGameStateStartsAtVersionZero(t *testing.T) {
	s := newTestState("1", "2", "3")

	assert.Equal(t, 0, s.Version)
	assert.Equal(t, []PlayerID{"1", "2", "3"}, s.OrderedPlayerIDs)
	for _, p := range s.Players {
		assert.Equal(t, InitialLives, p.Lives)
		assert.Nil(t, p.Card)
	}
}

func TestReduceNeverMutatesInput(t *testing.T) {
	s := newTestState("1", "2")

	next := Reduce(s, dealtCards([]DealtCard{
		{Card: Card{Suit: Hearts, Rank: 7}, PlayerID: "1"},
	}))

	assert.Nil(t, s.Players["1"].Card)
	require.NotNil(t, next.Players["1"].Card)
	assert.Equal(t, Rank(7), next.Players["1"].Card.Rank)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, 0, s.Version)
}

func TestReduceDealtAndRemoveCards(t *testing.T) {
	s := newTestState("1", "2")
	s = Reduce(s, dealtCards([]DealtCard{
		{Card: Card{Suit: Spades, Rank: 3}, PlayerID: "1"},
		{Card: Card{Suit: Clubs, Rank: 9}, PlayerID: "2"},
	}))

	assert.Equal(t, Rank(3), s.Players["1"].Card.Rank)
	assert.Equal(t, Rank(9), s.Players["2"].Card.Rank)

	s = Reduce(s, removeCards())
	assert.Nil(t, s.Players["1"].Card)
	assert.Nil(t, s.Players["2"].Card)
	assert.Equal(t, 2, s.Version)
}

func TestReducePlayersTradedSwapsAtomically(t *testing.T) {
	s := newTestState("1", "2", "3")
	s = Reduce(s, startRound("3", "1"))
	s = Reduce(s, dealtCards([]DealtCard{
		{Card: Card{Suit: Spades, Rank: 4}, PlayerID: "1"},
		{Card: Card{Suit: Hearts, Rank: 11}, PlayerID: "2"},
	}))

	s = Reduce(s, playersTraded("1", "2"))

	assert.Equal(t, Rank(11), s.Players["1"].Card.Rank)
	assert.Equal(t, Rank(4), s.Players["2"].Card.Rank)
	assert.Equal(t, MoveSwap, s.Players["1"].Move)
	assert.Empty(t, s.Players["2"].Move)
	assert.Equal(t, PlayerID("2"), s.ActivePlayerID)
}

func TestReduceSwapBlockedConsumesTurn(t *testing.T) {
	s := newTestState("1", "2", "3")
	s = Reduce(s, startRound("3", "1"))
	s = Reduce(s, dealtCards([]DealtCard{
		{Card: Card{Suit: Spades, Rank: 4}, PlayerID: "1"},
		{Card: Card{Suit: Hearts, Rank: MaxRank}, PlayerID: "2"},
	}))

	s = Reduce(s, swapBlocked("1", "2"))

	// The king stays put but the attempt still spends the turn.
	assert.Equal(t, Rank(4), s.Players["1"].Card.Rank)
	assert.Equal(t, Rank(MaxRank), s.Players["2"].Card.Rank)
	assert.Equal(t, MoveAttemptedSwap, s.Players["1"].Move)
	assert.Equal(t, PlayerID("2"), s.ActivePlayerID)
}

func TestReducePlayerHitDeckReplacesCard(t *testing.T) {
	s := newTestState("1", "2")
	s = Reduce(s, startRound("1", "2"))
	s = Reduce(s, dealtCards([]DealtCard{
		{Card: Card{Suit: Spades, Rank: 4}, PlayerID: "1"},
	}))

	s = Reduce(s, playerHitDeck("1", Card{Suit: Diamonds, Rank: 10}))

	assert.Equal(t, Rank(10), s.Players["1"].Card.Rank)
	assert.Equal(t, MoveHitDeck, s.Players["1"].Move)
	// The dealer moved, so the round is ready to resolve.
	assert.Empty(t, s.ActivePlayerID)
}

func TestReduceActiveSkipsDeadAndMovedPlayers(t *testing.T) {
	s := newTestState("1", "2", "3", "4")
	s.Players["2"].Lives = 0
	s = Reduce(s, startRound("4", "1"))

	s = Reduce(s, playerStuck("1"))

	// Player 2 is dead, so the turn lands on player 3.
	assert.Equal(t, PlayerID("3"), s.ActivePlayerID)
}

func TestReduceStartRoundClearsMoves(t *testing.T) {
	s := newTestState("1", "2")
	s = Reduce(s, startRound("1", "2"))
	s = Reduce(s, playerStuck("2"))
	require.Equal(t, MoveStick, s.Players["2"].Move)

	s = Reduce(s, startRound("2", "1"))

	assert.Empty(t, s.Players["2"].Move)
	assert.Equal(t, PlayerID("2"), s.DealerID)
	assert.Equal(t, PlayerID("1"), s.ActivePlayerID)
}

func TestReduceRoundLosers(t *testing.T) {
	s := newTestState("1", "2", "3")

	s = Reduce(s, roundLosers([]PlayerID{"2", "3"}))

	assert.Equal(t, InitialLives, s.Players["1"].Lives)
	assert.Equal(t, InitialLives-1, s.Players["2"].Lives)
	assert.Equal(t, InitialLives-1, s.Players["3"].Lives)
}

func TestReduceRoundLosersPanicsOnDeadPlayer(t *testing.T) {
	s := newTestState("1", "2")
	s.Players["2"].Lives = 0

	assert.Panics(t, func() {
		Reduce(s, roundLosers([]PlayerID{"2"}))
	})
}

func TestReduceDoubleGameRevivesEveryone(t *testing.T) {
	s := newTestState("1", "2", "3")
	s.Players["1"].Lives = 0
	s.Players["2"].Lives = 1
	s.Players["3"].Lives = 1

	s = Reduce(s, roundLosers([]PlayerID{"2", "3"}))

	for _, p := range s.Players {
		assert.Equal(t, InitialLives, p.Lives)
	}
}

func TestReduceGameOverClearsActivePlayer(t *testing.T) {
	s := newTestState("1", "2")
	s = Reduce(s, startRound("1", "2"))
	require.Equal(t, PlayerID("2"), s.ActivePlayerID)

	s = Reduce(s, gameOver("1"))
	assert.Empty(t, s.ActivePlayerID)
}

func TestNextAlivePlayerIDWrapsAndSkipsDead(t *testing.T) {
	s := newTestState("1", "2", "3", "4")
	s.Players["4"].Lives = 0

	assert.Equal(t, PlayerID("2"), s.NextAlivePlayerID("1"))
	assert.Equal(t, PlayerID("1"), s.NextAlivePlayerID("3"))
	assert.Equal(t, PlayerID("1"), s.NextAlivePlayerID("4"))
}

// Replaying a recorded history over the initial state must land on the exact
// live state, version included.
func TestReduceReplayIsDeterministic(t *testing.T) {
	events := []Event{
		dealtCards([]DealtCard{
			{Card: Card{Suit: Diamonds, Rank: 13}, PlayerID: "1"},
			{Card: Card{Suit: Diamonds, Rank: 12}, PlayerID: "2"},
			{Card: Card{Suit: Diamonds, Rank: 11}, PlayerID: "3"},
		}),
		highcardWinners([]PlayerID{"1"}),
		removeCards(),
		startRound("2", "3"),
		dealtCards([]DealtCard{
			{Card: Card{Suit: Spades, Rank: 5}, PlayerID: "3"},
			{Card: Card{Suit: Spades, Rank: 9}, PlayerID: "1"},
			{Card: Card{Suit: Spades, Rank: 2}, PlayerID: "2"},
		}),
		playerStuck("3"),
		playersTraded("1", "2"),
		playerHitDeck("2", Card{Suit: Hearts, Rank: 6}),
		roundLosers([]PlayerID{"1"}),
		removeCards(),
	}

	replayOnce := func() GameState {
		s := newTestState("1", "2", "3")
		for _, ev := range events {
			s = Reduce(s, ev)
		}
		return s
	}

	a, b := replayOnce(), replayOnce()
	assert.Equal(t, a, b)
	assert.Equal(t, len(events), a.Version)
	assert.Equal(t, InitialLives-1, a.Players["1"].Lives)
}
