// internal/room/room.go
package room

import (
	"errors"
	"time"

	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ModiApp/ModiServer/internal/game"
)

// DefaultCleanupDelay is how long an empty room lingers before OnEmpty
// fires. Any reconnection within the window cancels the pending cleanup.
const DefaultCleanupDelay = 5 * time.Minute

var (
	// ErrAccessDenied rejects connections claiming a player id outside the
	// authorized set.
	ErrAccessDenied = errors.New("Authorization Error: Access token denied")

	// ErrNotAdmin rejects start requests from anyone but the first
	// authorized player.
	ErrNotAdmin = errors.New("Only game admin can start the game")

	// ErrAlreadyStarted rejects a second start request.
	ErrAlreadyStarted = errors.New("Game already started")
)

// Room is the synchronization boundary between one ModiGame and its
// connections. It is the only component that touches connections: it admits
// them against the authorized id set, replays missed history, fans out live
// events, and forwards game requests inward. The game itself never sees a
// connection.
type Room struct {
	ID uuid.UUID

	game   *game.ModiGame
	logger *logrus.Logger

	// mu guards the connection registry. Lock order is always game.Mu
	// before mu: live fan-out runs under game.Mu (push listeners are
	// synchronous) and then takes mu, so admission must do the same.
	mu        sync.Mutex
	conns     map[game.PlayerID]*Conn
	usernames map[game.PlayerID]string
	live      []*Conn

	cleanupDelay time.Duration
	cleanupTimer *time.Timer

	// OnEmpty is invoked after the room has had zero connections for the
	// full cleanup delay. Typically wired to the store's Delete.
	OnEmpty func(roomID uuid.UUID)

	sub *game.Subscription
}

// New wires a room to a game's event log. The returned room fans every
// pushed event out to its live subscribers in subscription order.
func New(g *game.ModiGame, logger *logrus.Logger) *Room {
	r := &Room{
		ID:           g.ID,
		game:         g,
		logger:       logger,
		conns:        make(map[game.PlayerID]*Conn),
		usernames:    make(map[game.PlayerID]string),
		cleanupDelay: DefaultCleanupDelay,
	}
	r.sub = g.History().AddListener(func(ev game.Event, index int) {
		r.mu.Lock()
		subscribers := make([]*Conn, len(r.live))
		copy(subscribers, r.live)
		r.mu.Unlock()

		msg := Message{Type: MsgStateChange, Event: &ev, Version: index + 1}
		for _, c := range subscribers {
			c.Write(msg)
		}
	})
	return r
}

// Game returns the room's game.
func (r *Room) Game() *game.ModiGame {
	return r.game
}

// Close detaches the room from the game's event log and stops any pending
// cleanup.
func (r *Room) Close() {
	r.sub.Remove()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleanupTimer != nil {
		r.cleanupTimer.Stop()
		r.cleanupTimer = nil
	}
}

// Connect admits a connection. Unknown player ids are rejected with
// ErrAccessDenied (reported to that connection only). A second connection
// for the same player wins: the previous transport is cancelled and
// replaced. Every admission cancels a pending idle cleanup and broadcasts
// the new roster.
func (r *Room) Connect(conn *Conn) error {
	if !r.game.IsAuthorized(conn.PlayerID) {
		conn.WriteError(ErrAccessDenied.Error())
		return ErrAccessDenied
	}

	r.mu.Lock()
	if r.cleanupTimer != nil {
		r.cleanupTimer.Stop()
		r.cleanupTimer = nil
	}
	old := r.conns[conn.PlayerID]
	r.conns[conn.PlayerID] = conn
	r.usernames[conn.PlayerID] = conn.Username
	if old != nil {
		r.dropLiveLocked(old)
	}
	r.mu.Unlock()

	if old != nil {
		r.logger.Infof("room %s: player %s reconnected, evicting previous connection", r.ID, conn.PlayerID)
		if old.Cancel != nil {
			old.Cancel()
		}
	}
	r.broadcastConnections()
	return nil
}

// SubscribeLiveUpdates replays every event from fromVersion onward to the
// connection, in order, and then registers it for live fan-out. The replay
// and the registration happen under the game's lock, so the connection sees
// each version exactly once even while moves are in flight.
func (r *Room) SubscribeLiveUpdates(conn *Conn, fromVersion int) {
	r.game.Mu.Lock()
	defer r.game.Mu.Unlock()

	backlog := r.game.History().Slice(fromVersion, -1)
	for _, entry := range backlog {
		ev := entry.Event
		conn.Write(Message{Type: MsgStateChange, Event: &ev, Version: entry.Index + 1})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// A stale connection may still issue requests after being evicted;
	// never subscribe it over its replacement.
	if r.conns[conn.PlayerID] != conn {
		return
	}
	r.dropLiveLocked(conn)
	r.live = append(r.live, conn)
}

// Disconnect removes the connection from the room. The player's username is
// retained so rosters can still display them, and the remaining connections
// get a roster broadcast. When the room empties, cleanup is scheduled after
// the debounce delay.
func (r *Room) Disconnect(conn *Conn) {
	r.mu.Lock()
	if r.conns[conn.PlayerID] != conn {
		// A newer connection already replaced this one; nothing to do.
		r.mu.Unlock()
		return
	}
	delete(r.conns, conn.PlayerID)
	r.dropLiveLocked(conn)
	empty := len(r.conns) == 0
	if empty && r.cleanupTimer == nil {
		r.cleanupTimer = time.AfterFunc(r.cleanupDelay, r.cleanupIfStillEmpty)
	}
	r.mu.Unlock()

	r.broadcastConnections()
}

func (r *Room) cleanupIfStillEmpty() {
	r.mu.Lock()
	stillEmpty := len(r.conns) == 0
	r.cleanupTimer = nil
	r.mu.Unlock()

	if stillEmpty && r.OnEmpty != nil {
		r.logger.Infof("room %s: idle for %s with no connections, cleaning up", r.ID, r.cleanupDelay)
		r.OnEmpty(r.ID)
	}
}

// dropLiveLocked removes conn from the live fan-out list. r.mu must be held.
func (r *Room) dropLiveLocked(conn *Conn) {
	for i, c := range r.live {
		if c == conn {
			r.live = append(r.live[:i], r.live[i+1:]...)
			return
		}
	}
}

// HandleGetInitialState sends the creation-time state to the requester.
func (r *Room) HandleGetInitialState(conn *Conn) {
	state := r.game.InitialState()
	conn.Write(Message{Type: MsgInitialState, State: &state})
}

// HandleStartGame kicks off the opening highcard. Only the game admin (the
// first authorized player) may start, and only once; rejections go to the
// requesting connection only.
func (r *Room) HandleStartGame(conn *Conn) {
	if conn.PlayerID != r.game.AdminID() {
		conn.WriteError(ErrNotAdmin.Error())
		return
	}
	if _, err := r.game.PlayHighcard(); err != nil {
		conn.WriteError(ErrAlreadyStarted.Error())
	}
}

// HandleChooseDealer forwards a dealer choice. Failures are surfaced to the
// requester only, never broadcast.
func (r *Room) HandleChooseDealer(conn *Conn, dealerID game.PlayerID) {
	if err := r.game.SetDealer(conn.PlayerID, dealerID); err != nil {
		conn.WriteError(err.Error())
	}
}

// HandleMakeMove forwards a move. A rejected move is reported to the
// requester only; an accepted one produces no direct reply, since the
// resulting event reaches the requester through live fan-out like everyone
// else.
func (r *Room) HandleMakeMove(conn *Conn, move game.MoveKind) {
	if r.game.HandleMove(conn.PlayerID, move) == game.MoveFailed {
		conn.WriteError("It's not your turn")
	}
}

// Connections reports the roster: every authorized player, their last-known
// username, and whether they are currently connected.
func (r *Room) Connections() map[game.PlayerID]ConnectionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	roster := make(map[game.PlayerID]ConnectionInfo)
	for _, id := range r.game.AuthorizedPlayerIDs() {
		_, connected := r.conns[id]
		roster[id] = ConnectionInfo{Username: r.usernames[id], Connected: connected}
	}
	return roster
}

// broadcastConnections pushes the current roster to every connection.
func (r *Room) broadcastConnections() {
	roster := r.Connections()

	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	msg := Message{Type: MsgConnectionsChanged, Connections: roster}
	for _, c := range conns {
		c.Write(msg)
	}
}
