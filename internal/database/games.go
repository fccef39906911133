package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ModiApp/ModiServer/internal/game"
	"github.com/ModiApp/ModiServer/internal/historian"
)

// CreateGameRecord inserts the games row for a freshly created game along with
// its seat assignments.
func CreateGameRecord(ctx context.Context, gameID uuid.UUID, playerIDs []game.PlayerID, usernames map[game.PlayerID]string) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, status, created_at)
			VALUES ($1, 'in_progress', NOW())
		`
		if _, err := tx.Exec(ctx, q, gameID); err != nil {
			return fmt.Errorf("insert game: %w", err)
		}

		seatQ := `
			INSERT INTO game_players (game_id, player_id, username, seat)
			VALUES ($1, $2, $3, $4)
		`
		for seat, pid := range playerIDs {
			if _, err := tx.Exec(ctx, seatQ, gameID, string(pid), usernames[pid], seat); err != nil {
				return fmt.Errorf("insert game player: %w", err)
			}
		}
		return nil
	})
}

// InsertGameEvents writes a batch of event records in one transaction. Records
// carry their log index, so inserts are idempotent per (game_id, event_index)
// and a replay of the table in index order reconstructs the game exactly. A
// game_over event finalizes the games row.
func InsertGameEvents(ctx context.Context, records []historian.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO game_events (game_id, event_index, event_type, event, recorded_at)
			VALUES ($1, $2, $3, $4, to_timestamp($5 / 1000.0))
			ON CONFLICT (game_id, event_index) DO NOTHING
		`
		for _, rec := range records {
			payload, err := json.Marshal(rec.Event)
			if err != nil {
				return fmt.Errorf("marshal event %d for game %s: %w", rec.Index, rec.GameID, err)
			}
			if _, err := tx.Exec(ctx, q, rec.GameID, rec.Index, string(rec.Event.Type), payload, rec.Timestamp); err != nil {
				return fmt.Errorf("insert game event: %w", err)
			}

			if rec.Event.Type == game.EventGameOver {
				finalizeQ := `
					UPDATE games
					SET status = 'completed', ended_at = NOW()
					WHERE id = $1 AND status = 'in_progress'
				`
				if _, err := tx.Exec(ctx, finalizeQ, rec.GameID); err != nil {
					return fmt.Errorf("finalize game: %w", err)
				}
			}
		}
		return nil
	})
}

// LoadGameEvents returns a game's persisted events in log order, ready to be
// replayed through the reducer.
func LoadGameEvents(ctx context.Context, gameID uuid.UUID) ([]game.Event, error) {
	q := `
		SELECT event
		FROM game_events
		WHERE game_id = $1
		ORDER BY event_index
	`
	rows, err := DB.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("query game events: %w", err)
	}
	defer rows.Close()

	var events []game.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan game event: %w", err)
		}
		var ev game.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal game event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkGameAbandoned flips an in-progress game to abandoned, used by the
// historian's inactivity sweep.
func MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error {
	q := `
		UPDATE games
		SET status = 'abandoned', ended_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	_, err := DB.Exec(ctx, q, gameID)
	return err
}
