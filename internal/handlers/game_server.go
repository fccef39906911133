// internal/handlers/game_server.go
package handlers

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ModiApp/ModiServer/internal/auth"
	"github.com/ModiApp/ModiServer/internal/database"
	"github.com/ModiApp/ModiServer/internal/game"
	"github.com/ModiApp/ModiServer/internal/historian"
	"github.com/ModiApp/ModiServer/internal/room"
)

// GameServer owns every live room and wires new games into the persistence
// pipeline.
type GameServer struct {
	Rooms  *room.Store
	Logger *logrus.Logger
}

// NewGameServer builds a GameServer with an empty room store.
func NewGameServer(logger *logrus.Logger) *GameServer {
	return &GameServer{
		Rooms:  room.NewStore(),
		Logger: logger,
	}
}

// CreateGame builds a game for the given seats, opens its room, and mints one
// access token per seat. Seat order is authorization order: playerIDs[0]
// becomes the game admin.
func (s *GameServer) CreateGame(playerIDs []game.PlayerID, usernames map[game.PlayerID]string) (*room.Room, map[game.PlayerID]string, error) {
	if len(playerIDs) < 2 {
		return nil, nil, errors.New("a game needs at least two players")
	}
	seen := make(map[game.PlayerID]bool, len(playerIDs))
	for _, id := range playerIDs {
		if id == "" || seen[id] {
			return nil, nil, errors.New("player ids must be non-empty and unique")
		}
		seen[id] = true
	}

	deck := game.NewDeck(rand.New(rand.NewSource(time.Now().UnixNano())))
	g := game.NewModiGame(playerIDs, usernames, deck)
	r := room.New(g, s.Logger)

	tokens := make(map[game.PlayerID]string, len(playerIDs))
	for _, id := range playerIDs {
		token, err := auth.CreateGameToken(g.ID.String(), string(id))
		if err != nil {
			return nil, nil, err
		}
		tokens[id] = token
	}

	// Events flow to Redis for the historian service whenever a client is
	// connected; the recorder shuts down with the room.
	if historian.Rdb != nil {
		recorder := historian.NewRecorder(g.ID, s.Logger)
		sub := g.History().AddListener(recorder.Listener())
		r.OnEmpty = func(roomID uuid.UUID) {
			s.Rooms.Delete(roomID)
			sub.Remove()
			recorder.Close()
		}
	} else {
		r.OnEmpty = s.Rooms.Delete
	}

	if database.DB != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := database.CreateGameRecord(ctx, g.ID, playerIDs, usernames); err != nil {
				s.Logger.Warnf("failed to record game %s: %v", g.ID, err)
			}
		}()
	}

	s.Rooms.Add(r)
	s.Logger.Infof("created game %s with %d players", g.ID, len(playerIDs))
	return r, tokens, nil
}
