// internal/room/room_test.go
package room

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ModiApp/ModiServer/internal/game"
)

// stubDeck deals a predetermined sequence of cards.
type stubDeck struct {
	cards []game.Card
}

func (d *stubDeck) Pop() game.Card {
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card
}

func (d *stubDeck) PopMany(n int) []game.Card {
	cards := make([]game.Card, n)
	for i := range cards {
		cards[i] = d.Pop()
	}
	return cards
}

func (d *stubDeck) Shuffle() {}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestRoom builds a room over a three-player game. The deck is stacked so
// player "1" wins the opening highcard outright.
func newTestRoom() *Room {
	cards := []game.Card{
		{Suit: game.Diamonds, Rank: 13},
		{Suit: game.Diamonds, Rank: 12},
		{Suit: game.Diamonds, Rank: 11},
		// First round's deal.
		{Suit: game.Spades, Rank: 2},
		{Suit: game.Spades, Rank: 5},
		{Suit: game.Spades, Rank: 9},
		// Spare draws.
		{Suit: game.Hearts, Rank: 3},
		{Suit: game.Hearts, Rank: 4},
		{Suit: game.Hearts, Rank: 6},
	}
	usernames := map[game.PlayerID]string{"1": "alice", "2": "bob", "3": "carol"}
	g := game.NewModiGame([]game.PlayerID{"1", "2", "3"}, usernames, &stubDeck{cards: cards})
	return New(g, testLogger())
}

func newTestConn(playerID game.PlayerID, username string) (*Conn, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	return NewConn(playerID, username, cancel, testLogger()), ctx
}

// drain empties the connection's outbound queue. Fan-out is synchronous, so
// everything sent so far is already queued.
func drain(c *Conn) []Message {
	var msgs []Message
	for {
		select {
		case m := <-c.OutChan:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func filterType(msgs []Message, t MessageType) []Message {
	var out []Message
	for _, m := range msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func TestConnectRejectsUnknownPlayer(t *testing.T) {
	r := newTestRoom()
	conn, _ := newTestConn("intruder", "mallory")

	err := r.Connect(conn)
	assert.ErrorIs(t, err, ErrAccessDenied)

	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgError, msgs[0].Type)
	assert.Equal(t, "Authorization Error: Access token denied", msgs[0].Message)
}

func TestConnectionsRosterRetainsUsernames(t *testing.T) {
	r := newTestRoom()
	conn1, _ := newTestConn("1", "alice")
	conn2, _ := newTestConn("2", "bob")
	require.NoError(t, r.Connect(conn1))
	require.NoError(t, r.Connect(conn2))

	r.Disconnect(conn2)

	rosters := filterType(drain(conn1), MsgConnectionsChanged)
	require.NotEmpty(t, rosters)
	final := rosters[len(rosters)-1].Connections

	assert.Equal(t, ConnectionInfo{Username: "alice", Connected: true}, final["1"])
	assert.Equal(t, ConnectionInfo{Username: "bob", Connected: false}, final["2"])
	// Player 3 never connected; they still appear in the roster.
	assert.Equal(t, ConnectionInfo{Connected: false}, final["3"])
}

func TestLastConnectWinsEviction(t *testing.T) {
	r := newTestRoom()
	conn1, ctx1 := newTestConn("1", "alice")
	require.NoError(t, r.Connect(conn1))
	r.SubscribeLiveUpdates(conn1, 0)

	conn2, ctx2 := newTestConn("1", "alice")
	require.NoError(t, r.Connect(conn2))
	r.SubscribeLiveUpdates(conn2, 0)

	assert.Error(t, ctx1.Err(), "evicted connection's transport must be cancelled")
	assert.NoError(t, ctx2.Err())

	// The stale connection disconnecting must not unseat its replacement.
	r.Disconnect(conn1)
	drain(conn1)
	drain(conn2)

	r.HandleStartGame(conn2)
	assert.NotEmpty(t, filterType(drain(conn2), MsgStateChange), "replacement stays live")
	assert.Empty(t, filterType(drain(conn1), MsgStateChange), "evicted connection hears nothing")
}

func TestSubscribeReplaysBacklogThenGoesLive(t *testing.T) {
	r := newTestRoom()
	admin, _ := newTestConn("1", "alice")
	require.NoError(t, r.Connect(admin))
	r.HandleStartGame(admin)
	drain(admin)

	conn2, _ := newTestConn("2", "bob")
	require.NoError(t, r.Connect(conn2))
	drain(conn2)

	r.SubscribeLiveUpdates(conn2, 0)
	backlog := filterType(drain(conn2), MsgStateChange)
	require.Len(t, backlog, 3, "highcard produces exactly three events")
	for i, msg := range backlog {
		assert.Equal(t, i+1, msg.Version)
		require.NotNil(t, msg.Event)
	}
	assert.Equal(t, game.EventDealtCards, backlog[0].Event.Type)
	assert.Equal(t, game.EventHighcardWinners, backlog[1].Event.Type)
	assert.Equal(t, game.EventRemoveCards, backlog[2].Event.Type)

	// Subsequent events arrive live, continuing the version sequence.
	r.HandleChooseDealer(admin, "2")
	live := filterType(drain(conn2), MsgStateChange)
	require.Len(t, live, 2)
	assert.Equal(t, 4, live[0].Version)
	assert.Equal(t, game.EventStartRound, live[0].Event.Type)
	assert.Equal(t, 5, live[1].Version)
	assert.Equal(t, game.EventDealtCards, live[1].Event.Type)
}

func TestSubscribeFromVersionCursor(t *testing.T) {
	r := newTestRoom()
	admin, _ := newTestConn("1", "alice")
	require.NoError(t, r.Connect(admin))
	r.HandleStartGame(admin)
	drain(admin)

	// A client that already saw versions 1 and 2 resumes from its cursor.
	r.SubscribeLiveUpdates(admin, 2)
	msgs := filterType(drain(admin), MsgStateChange)
	require.Len(t, msgs, 1)
	assert.Equal(t, 3, msgs[0].Version)
}

func TestGetInitialState(t *testing.T) {
	r := newTestRoom()
	conn, _ := newTestConn("3", "carol")
	require.NoError(t, r.Connect(conn))
	drain(conn)

	r.HandleGetInitialState(conn)
	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgInitialState, msgs[0].Type)
	require.NotNil(t, msgs[0].State)
	assert.Equal(t, 0, msgs[0].State.Version)
	assert.Equal(t, []game.PlayerID{"1", "2", "3"}, msgs[0].State.OrderedPlayerIDs)
}

func TestStartGameAdminOnly(t *testing.T) {
	r := newTestRoom()
	conn2, _ := newTestConn("2", "bob")
	require.NoError(t, r.Connect(conn2))
	drain(conn2)

	r.HandleStartGame(conn2)
	msgs := filterType(drain(conn2), MsgError)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Only game admin can start the game", msgs[0].Message)
	assert.Equal(t, 0, r.Game().History().Len())

	admin, _ := newTestConn("1", "alice")
	require.NoError(t, r.Connect(admin))
	r.HandleStartGame(admin)
	assert.Equal(t, 3, r.Game().History().Len())

	drain(admin)
	r.HandleStartGame(admin)
	msgs = filterType(drain(admin), MsgError)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Game already started", msgs[0].Message)
}

func TestChooseDealerErrorGoesToRequesterOnly(t *testing.T) {
	r := newTestRoom()
	admin, _ := newTestConn("1", "alice")
	conn2, _ := newTestConn("2", "bob")
	require.NoError(t, r.Connect(admin))
	require.NoError(t, r.Connect(conn2))
	r.HandleStartGame(admin)
	drain(admin)
	drain(conn2)

	// Player 2 did not win the highcard.
	r.HandleChooseDealer(conn2, "3")

	assert.Len(t, filterType(drain(conn2), MsgError), 1)
	assert.Empty(t, filterType(drain(admin), MsgError))
}

func TestMakeMoveOutOfTurn(t *testing.T) {
	r := newTestRoom()
	admin, _ := newTestConn("1", "alice")
	require.NoError(t, r.Connect(admin))
	r.HandleStartGame(admin)
	r.HandleChooseDealer(admin, "1")
	drain(admin)

	// Dealer "1" acts last; it is not their turn yet.
	r.HandleMakeMove(admin, game.MoveStick)

	msgs := filterType(drain(admin), MsgError)
	require.Len(t, msgs, 1)
	assert.Equal(t, "It's not your turn", msgs[0].Message)
}

func TestIdleCleanupFiresAfterDelay(t *testing.T) {
	r := newTestRoom()
	r.cleanupDelay = 20 * time.Millisecond

	cleaned := make(chan uuid.UUID, 1)
	r.OnEmpty = func(id uuid.UUID) { cleaned <- id }

	conn, _ := newTestConn("1", "alice")
	require.NoError(t, r.Connect(conn))
	r.Disconnect(conn)

	select {
	case id := <-cleaned:
		assert.Equal(t, r.ID, id)
	case <-time.After(time.Second):
		t.Fatal("cleanup never fired for an empty room")
	}
}

func TestReconnectCancelsPendingCleanup(t *testing.T) {
	r := newTestRoom()
	r.cleanupDelay = 50 * time.Millisecond

	cleaned := make(chan uuid.UUID, 1)
	r.OnEmpty = func(id uuid.UUID) { cleaned <- id }

	conn, _ := newTestConn("1", "alice")
	require.NoError(t, r.Connect(conn))
	r.Disconnect(conn)

	conn2, _ := newTestConn("1", "alice")
	require.NoError(t, r.Connect(conn2))

	select {
	case <-cleaned:
		t.Fatal("cleanup fired despite reconnection within the window")
	case <-time.After(150 * time.Millisecond):
	}
}
