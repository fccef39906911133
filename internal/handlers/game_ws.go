// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ModiApp/ModiServer/internal/auth"
	"github.com/ModiApp/ModiServer/internal/game"
	"github.com/ModiApp/ModiServer/internal/middleware"
	"github.com/ModiApp/ModiServer/internal/room"
)

// wsWriteTimeout bounds each individual WebSocket write.
const wsWriteTimeout = 3 * time.Second

// ClientMessage is the structure for incoming WebSocket messages. Which
// fields are set depends on Type.
type ClientMessage struct {
	Type string `json:"type"`

	// get_live_updates: the client's version cursor. Replay resumes from
	// this event index.
	FromVersion int `json:"from_version,omitempty"`

	// choose_dealer
	DealerID string `json:"dealer_id,omitempty"`

	// make_move: "swap", "stick" or "hit-deck".
	Move string `json:"move,omitempty"`
}

// GameWSHandler upgrades the HTTP connection to WebSocket for a specific game
// instance. It authenticates the access token, admits the connection to the
// game's room, and runs the read loop until the socket dies or the connection
// is evicted by a newer one.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// URL path: /game/ws/{game_id}
		gameIDStr := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/", 2)[0]
		gameID, err := uuid.Parse(gameIDStr)
		if err != nil {
			http.Error(w, "Invalid game_id format (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}

		rm, ok := gs.Rooms.Get(gameID)
		if !ok {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"modi"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		// The access token was minted at game creation and names both the
		// game and the seat it grants.
		tokenGameID, playerIDStr, err := auth.AuthenticateGameToken(r.URL.Query().Get("token"))
		if err != nil || tokenGameID != gameID.String() {
			logger.Warnf("Rejected WebSocket for game %s: %v", gameID, err)
			sendWsMessage(r.Context(), c, logger, room.Message{Type: room.MsgError, Message: "Authorization Error: Access token denied"})
			c.Close(websocket.StatusPolicyViolation, "Access token denied.")
			return
		}
		playerID := game.PlayerID(playerIDStr)
		username := r.URL.Query().Get("username")
		if username == "" {
			username = playerIDStr
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := room.NewConn(playerID, username, cancel, logger)
		if err := rm.Connect(conn); err != nil {
			// The denial notification is already queued on the conn; flush it
			// before closing.
			flushOutChan(ctx, c, conn, logger)
			c.Close(websocket.StatusPolicyViolation, "Access token denied.")
			return
		}

		// Writer goroutine: drains the room's outbound queue onto the socket.
		// It exits when the context dies, which also happens when a newer
		// connection for the same player evicts this one.
		go writePump(ctx, c, conn, logger)

		readClientMessages(ctx, c, rm, conn, logger)

		rm.Disconnect(conn)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// writePump serializes and writes every queued outbound message until ctx is
// cancelled. A failed write cancels the whole connection.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Conn, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Errorf("Failed to marshal %s message for player %s: %v", msg.Type, conn.PlayerID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write %s message to player %s: %v", msg.Type, conn.PlayerID, err)
				conn.Cancel()
				return
			}
		}
	}
}

// flushOutChan drains whatever is already queued on the conn straight onto
// the socket. Used for connections rejected before the write pump starts.
func flushOutChan(ctx context.Context, c *websocket.Conn, conn *room.Conn, logger *logrus.Logger) {
	for {
		select {
		case msg := <-conn.OutChan:
			sendWsMessage(ctx, c, logger, msg)
		default:
			return
		}
	}
}

// readClientMessages reads and routes client requests until the socket closes
// or the context is cancelled.
func readClientMessages(ctx context.Context, c *websocket.Conn, rm *room.Room, conn *room.Conn, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s in game %s.", conn.PlayerID, rm.ID)
			} else if ctx.Err() != nil {
				logger.Infof("WebSocket context canceled for player %s in game %s.", conn.PlayerID, rm.ID)
			} else {
				logger.Warnf("Error reading from WebSocket for player %s in game %s: %v", conn.PlayerID, rm.ID, err)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s in game %s. Ignoring.", msgType, conn.PlayerID, rm.ID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from player %s in game %s: %v", conn.PlayerID, rm.ID, err)
			conn.WriteError("Invalid JSON format.")
			continue
		}

		logger.Debugf("Received '%s' from player %s in game %s.", msg.Type, conn.PlayerID, rm.ID)

		switch msg.Type {
		case "get_initial_state":
			rm.HandleGetInitialState(conn)
		case "get_live_updates":
			rm.SubscribeLiveUpdates(conn, msg.FromVersion)
		case "start_game":
			rm.HandleStartGame(conn)
		case "choose_dealer":
			rm.HandleChooseDealer(conn, game.PlayerID(msg.DealerID))
		case "make_move":
			rm.HandleMakeMove(conn, game.MoveKind(msg.Move))
		case "ping":
			conn.Write(room.Message{Type: room.MsgPong})
		default:
			logger.Warnf("Unknown message type '%s' from player %s in game %s.", msg.Type, conn.PlayerID, rm.ID)
			conn.WriteError(fmt.Sprintf("Unknown message type: %s", msg.Type))
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// sendWsMessage marshals a message and writes it directly to the socket with
// a write timeout. Used outside the write pump.
func sendWsMessage(ctx context.Context, c *websocket.Conn, logger *logrus.Logger, msg room.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, data); err != nil {
		logger.Warnf("Error writing WebSocket message: %v", err)
	}
}
