// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ModiApp/ModiServer/internal/database"
	"github.com/ModiApp/ModiServer/internal/game"
)

// createGameRequest is the POST /game/create body: the ordered seat list.
type createGameRequest struct {
	Players []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"players"`
}

// ServeHTTP routes the non-WebSocket game endpoints. For WS, see game_ws.go's
// GameWSHandler.
func (s *GameServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/game/create" && r.Method == http.MethodPost {
		s.handleCreateGame(w, r)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/game/history/") && r.Method == http.MethodGet {
		s.handleGameHistory(w, r)
		return
	}

	http.Error(w, "unsupported route, use /game/ws/{id} for websockets", http.StatusNotFound)
}

// handleCreateGame creates a game for the posted seat list and returns the
// game id plus one access token per seat. The first seat is the game admin.
func (s *GameServer) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	playerIDs := make([]game.PlayerID, 0, len(req.Players))
	usernames := make(map[game.PlayerID]string, len(req.Players))
	for _, p := range req.Players {
		id := game.PlayerID(p.ID)
		playerIDs = append(playerIDs, id)
		usernames[id] = p.Username
	}

	rm, tokens, err := s.CreateGame(playerIDs, usernames)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"game_id": rm.ID,
		"tokens":  tokens,
	})
}

// handleGameHistory returns a finished game's persisted event log in replay
// order. Live games are served over WebSocket; this endpoint reads the
// historian's database copy.
func (s *GameServer) handleGameHistory(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		http.Error(w, "game history is not enabled", http.StatusNotImplemented)
		return
	}

	gameID, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/game/history/"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	events, err := database.LoadGameEvents(r.Context(), gameID)
	if err != nil {
		s.Logger.Warnf("failed to load events for game %s: %v", gameID, err)
		http.Error(w, "failed to load game history", http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"game_id": gameID,
		"events":  events,
	})
}
