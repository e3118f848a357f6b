package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EventPhaseChanged    = "phase_changed"
	EventAnswerSubmitted = "answer_submitted"
	EventVoteSubmitted   = "vote_submitted"
	EventRoundResolved   = "round_resolved"
	EventTimerUpdate     = "timer_update"
	EventPlayerUpdate    = "player_update"
	EventGameEnd         = "game_end"
)

// Event is what every client of a room receives.
type Event struct {
	Type    string      `json:"type"`
	RoomID  string      `json:"room_id"`
	Payload interface{} `json:"payload"`
}

// Notifier delivers room events to whoever is listening.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// StateCache keeps the last known snapshot of a room for quick resyncs.
type StateCache interface {
	CacheState(ctx context.Context, state *RoomState) error
	LoadState(ctx context.Context, roomID string) (*RoomState, error)
}

const (
	eventsPattern = "room:*:events"
	stateTTL      = 2 * time.Hour
)

func eventsChannel(roomID string) string { return "room:" + roomID + ":events" }
func stateKey(roomID string) string      { return "room:" + roomID + ":state" }

// RedisNotifier publishes events over Redis pub/sub so every server
// instance can fan them out to its own sockets.
type RedisNotifier struct {
	redis *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{redis: client}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Type, err)
	}
	if err := n.redis.Publish(ctx, eventsChannel(ev.RoomID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Type, err)
	}
	return nil
}

func (n *RedisNotifier) CacheState(ctx context.Context, state *RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal room state: %w", err)
	}
	if err := n.redis.Set(ctx, stateKey(state.Room.ID), data, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}
	return nil
}

// LoadState returns nil without error when nothing is cached.
func (n *RedisNotifier) LoadState(ctx context.Context, roomID string) (*RoomState, error) {
	data, err := n.redis.Get(ctx, stateKey(roomID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room state: %w", err)
	}
	return &state, nil
}
