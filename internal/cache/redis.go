// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/models"
)

// DefaultQueueName is the Redis list the analytics consumer drains.
const DefaultQueueName = "guesshole_events"

// GuessRecord is the wire shape of one completed guess on the event queue.
type GuessRecord struct {
	Kind           string    `json:"kind"`
	GuessID        uuid.UUID `json:"guess_id"`
	PlayerID       uuid.UUID `json:"player_id"`
	RoundID        uuid.UUID `json:"round_id"`
	GameInstanceID uuid.UUID `json:"game_instance_id"`
	DistanceKm     float64   `json:"distance_km"`
	BaseScore      int       `json:"base_score"`
	Score          int       `json:"score"`
	GuessTime      int       `json:"guess_time"`
	Timestamp      int64     `json:"timestamp"`
}

// RoundEndRecord marks one round finishing, however it ended.
type RoundEndRecord struct {
	Kind           string    `json:"kind"`
	LobbyID        uuid.UUID `json:"lobby_id"`
	GameInstanceID uuid.UUID `json:"game_instance_id"`
	RoundID        uuid.UUID `json:"round_id"`
	Timestamp      int64     `json:"timestamp"`
}

// Queue pushes game events onto a Redis list for the analytics consumer.
// Publishing is best effort: failures are logged and never reach the game
// path. Implements game.EventSink.
type Queue struct {
	client *redis.Client
	name   string
	log    *logrus.Logger
}

// Connect builds the client and verifies the connection.
func Connect(addr string, db int, queueName string, log *logrus.Logger) (*Queue, error) {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return &Queue{client: client, name: queueName, log: log}, nil
}

// Close releases the client.
func (q *Queue) Close() error {
	return q.client.Close()
}

// PublishGuess pushes a completed-guess record.
func (q *Queue) PublishGuess(ctx context.Context, g *models.Guess) {
	q.push(ctx, GuessRecord{
		Kind:           "guess",
		GuessID:        g.ID,
		PlayerID:       g.PlayerID,
		RoundID:        g.RoundID,
		GameInstanceID: g.GameInstanceID,
		DistanceKm:     g.DistanceKm,
		BaseScore:      g.BaseScore,
		Score:          g.Score,
		GuessTime:      g.GuessTime,
		Timestamp:      time.Now().UnixMilli(),
	})
}

// PublishRoundEnd pushes a round-end record.
func (q *Queue) PublishRoundEnd(ctx context.Context, lobbyID, gameInstanceID, roundID uuid.UUID) {
	q.push(ctx, RoundEndRecord{
		Kind:           "round_end",
		LobbyID:        lobbyID,
		GameInstanceID: gameInstanceID,
		RoundID:        roundID,
		Timestamp:      time.Now().UnixMilli(),
	})
}

func (q *Queue) push(ctx context.Context, record interface{}) {
	data, err := json.Marshal(record)
	if err != nil {
		q.log.Warnf("marshal event record: %v", err)
		return
	}
	if err := q.client.RPush(ctx, q.name, data).Err(); err != nil {
		q.log.Warnf("push event to redis list %q: %v", q.name, err)
	}
}
