// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ModiApp/ModiServer/internal/game"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for game event records.
var DefaultQueueName = "modi_events"

// EventRecord is one game event as it travels through the Redis queue to the
// historian service. Index is the event's position in the game's log, so the
// database copy replays in the same order the reducer saw.
type EventRecord struct {
	GameID    uuid.UUID  `json:"game_id"`
	Index     int        `json:"index"`
	Event     game.Event `json:"event"`
	Timestamp int64      `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := GetEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := GetEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishEvent serializes the record to JSON and pushes it onto the queue.
func PublishEvent(ctx context.Context, record EventRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal EventRecord: %w", err)
	}

	queueName := GetEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// Recorder forwards one game's events to the Redis queue. History listeners
// run synchronously under the game lock, so the listener only enqueues onto a
// buffered channel; a single worker goroutine does the network sends, which
// keeps queue order identical to log order without ever blocking a move.
type Recorder struct {
	gameID uuid.UUID
	logger *logrus.Logger
	ch     chan EventRecord
	done   chan struct{}
}

// NewRecorder starts a recorder for gameID and returns it. Call Listener to
// get the function to register on the game's history, and Close once the game
// is torn down.
func NewRecorder(gameID uuid.UUID, logger *logrus.Logger) *Recorder {
	rec := &Recorder{
		gameID: gameID,
		logger: logger,
		ch:     make(chan EventRecord, 256),
		done:   make(chan struct{}),
	}
	go rec.run()
	return rec
}

// Listener returns the history listener that feeds this recorder.
func (rec *Recorder) Listener() game.ListenerFunc {
	return func(ev game.Event, index int) {
		record := EventRecord{
			GameID:    rec.gameID,
			Index:     index,
			Event:     ev,
			Timestamp: time.Now().UnixMilli(),
		}
		select {
		case rec.ch <- record:
		default:
			rec.logger.Warnf("historian: queue for game %s full, dropping event %d (%s)", rec.gameID, index, ev.Type)
		}
	}
}

// Close stops the worker after it drains any queued records.
func (rec *Recorder) Close() {
	close(rec.ch)
	<-rec.done
}

func (rec *Recorder) run() {
	defer close(rec.done)
	for record := range rec.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := PublishEvent(ctx, record); err != nil {
			rec.logger.Warnf("historian: publish event %d for game %s: %v", record.Index, rec.gameID, err)
		}
		cancel()
	}
}

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as an integer, else a default value.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
