package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/marker"
)

// MarkerQueue buffers marker visibility events per session in a Redis
// list until the map layer drains them. This gives the map layer the
// replay-on-ready contract: events emitted before the map is ready are
// not lost.
type MarkerQueue struct {
	rdb       *redis.Client
	logger    *slog.Logger
	sessionID uuid.UUID
}

// MarkerQueue implements the engine's synchronizer collaborator.
var _ marker.Synchronizer = (*MarkerQueue)(nil)

// NewMarkerQueue creates a queue bound to one session.
func NewMarkerQueue(rdb *redis.Client, sessionID uuid.UUID, logger *slog.Logger) *MarkerQueue {
	return &MarkerQueue{rdb: rdb, logger: logger, sessionID: sessionID}
}

func markerKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("marker-events:%s", sessionID.String())
}

// Sync appends events to the session's buffer in emission order.
func (q *MarkerQueue) Sync(ctx context.Context, events []marker.Event) error {
	if len(events) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal marker event: %w", err)
		}
		values = append(values, data)
	}

	if err := q.rdb.RPush(ctx, markerKey(q.sessionID), values...).Err(); err != nil {
		return fmt.Errorf("failed to buffer marker events: %w", err)
	}

	q.logger.Debug("marker events buffered",
		"session_id", q.sessionID,
		"count", len(events))
	return nil
}

// Drain removes and returns all buffered events, oldest first.
func (q *MarkerQueue) Drain(ctx context.Context) ([]marker.Event, error) {
	key := markerKey(q.sessionID)

	raw, err := q.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to drain marker events: %w", err)
	}
	if len(raw) > 0 {
		if err := q.rdb.Del(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("failed to clear marker event buffer: %w", err)
		}
	}

	events := make([]marker.Event, 0, len(raw))
	for _, item := range raw {
		var e marker.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			q.logger.Warn("dropping malformed marker event", "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Depth returns the number of buffered events.
func (q *MarkerQueue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.rdb.LLen(ctx, markerKey(q.sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get marker buffer depth: %w", err)
	}
	return depth, nil
}

// Clear drops all buffered events without returning them.
func (q *MarkerQueue) Clear(ctx context.Context) error {
	if err := q.rdb.Del(ctx, markerKey(q.sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear marker event buffer: %w", err)
	}
	return nil
}
