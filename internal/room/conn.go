// internal/room/conn.go
package room

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ModiApp/ModiServer/internal/game"
)

// OutChanBuffer bounds a connection's outbound queue. It is sized to hold a
// full game's catch-up replay plus live traffic; a Modi game's history stays
// in the low hundreds of events even with double games.
const OutChanBuffer = 512

// MessageType tags outbound notifications to clients.
type MessageType string

const (
	MsgInitialState       MessageType = "initial_state"
	MsgStateChange        MessageType = "state_change"
	MsgConnectionsChanged MessageType = "connections_changed"
	MsgError              MessageType = "error"
	MsgPong               MessageType = "pong"
)

// ConnectionInfo is one roster entry in a connections_changed broadcast.
// Usernames outlive disconnections so rosters can still display the player.
type ConnectionInfo struct {
	Username  string `json:"username"`
	Connected bool   `json:"connected"`
}

// Message is a single outbound notification. One struct covers all
// notification kinds; which fields are set depends on Type.
type Message struct {
	Type MessageType `json:"type"`

	// initial_state
	State *game.GameState `json:"state,omitempty"`

	// state_change
	Event   *game.Event `json:"event,omitempty"`
	Version int         `json:"version,omitempty"`

	// connections_changed
	Connections map[game.PlayerID]ConnectionInfo `json:"connections,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// Conn is one player's presence in a room, decoupled from the underlying
// transport. The transport layer drains OutChan and calls Cancel's context
// when the socket dies; the room only ever holds the stable PlayerID.
type Conn struct {
	PlayerID game.PlayerID
	Username string

	// Cancel tears down the transport read/write loops, used when a newer
	// connection for the same player evicts this one.
	Cancel context.CancelFunc

	OutChan chan Message

	logger *logrus.Logger
}

// NewConn builds a connection handle for the given player.
func NewConn(playerID game.PlayerID, username string, cancel context.CancelFunc, logger *logrus.Logger) *Conn {
	return &Conn{
		PlayerID: playerID,
		Username: username,
		Cancel:   cancel,
		OutChan:  make(chan Message, OutChanBuffer),
		logger:   logger,
	}
}

// Write queues msg without blocking. A full or abandoned queue drops the
// message; the read loop will notice the dead socket and disconnect soon
// after.
func (c *Conn) Write(msg Message) {
	select {
	case c.OutChan <- msg:
	default:
		c.logger.Warnf("room: out channel for player %s full, dropped %s", c.PlayerID, msg.Type)
	}
}

// WriteError sends an error notification to this connection only.
func (c *Conn) WriteError(message string) {
	c.Write(Message{Type: MsgError, Message: message})
}
