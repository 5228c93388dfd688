package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeSessionCreated  EventType = "session.created"
	EventTypeSessionReset    EventType = "session.reset"
	EventTypeQuestTransition EventType = "quest.transition"
	EventTypeQuestIgnored    EventType = "quest.ignored"
	EventTypeSceneLoaded     EventType = "scene.loaded"
	EventTypeChoiceBlocked   EventType = "choice.blocked"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Broadcaster publishes engine events to Redis Pub/Sub so UI layers
// can subscribe per session.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishTransition publishes the outcome of a quest dispatch. Ignored
// dispatches (no transition defined) get their own event type so the
// UI can distinguish them from commits.
func (b *Broadcaster) PublishTransition(ctx context.Context, sessionID uuid.UUID, action quest.Action, res quest.Result) error {
	eventType := EventTypeQuestTransition
	if !res.Committed {
		eventType = EventTypeQuestIgnored
	}
	event := Event{
		Type:      eventType,
		SessionID: sessionID.String(),
		Data: map[string]interface{}{
			"action": action,
			"from":   res.From,
			"to":     res.To,
		},
	}
	return b.publishToSession(ctx, sessionID, event)
}

// PublishSceneLoaded publishes a scene.loaded event
func (b *Broadcaster) PublishSceneLoaded(ctx context.Context, sessionID uuid.UUID, sceneID string) error {
	event := Event{
		Type:      EventTypeSceneLoaded,
		SessionID: sessionID.String(),
		Data: map[string]interface{}{
			"scene_id": sceneID,
		},
	}
	return b.publishToSession(ctx, sessionID, event)
}

// PublishChoiceBlocked publishes a choice.blocked event with the
// choice's feedback text.
func (b *Broadcaster) PublishChoiceBlocked(ctx context.Context, sessionID uuid.UUID, reason string) error {
	event := Event{
		Type:      EventTypeChoiceBlocked,
		SessionID: sessionID.String(),
		Data: map[string]interface{}{
			"reason": reason,
		},
	}
	return b.publishToSession(ctx, sessionID, event)
}

// PublishSessionEvent publishes a lifecycle event (created / reset).
func (b *Broadcaster) PublishSessionEvent(ctx context.Context, sessionID uuid.UUID, eventType EventType) error {
	event := Event{
		Type:      eventType,
		SessionID: sessionID.String(),
	}
	return b.publishToSession(ctx, sessionID, event)
}

// publishToSession publishes an event to the session-specific channel
func (b *Broadcaster) publishToSession(ctx context.Context, sessionID uuid.UUID, event Event) error {
	channel := fmt.Sprintf("quest-events:%s", sessionID.String())

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)

	return nil
}
