// Package notifications publishes domain events to Redis channels for
// downstream consumers (cache warmers, analytics, mail digests).
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"pulsevote/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Event type constants prevent typos in event names.
const (
	EventSurveyPublished    = "survey_published"
	EventVoteRecorded       = "vote_recorded"
	EventReactionUpdated    = "reaction_updated"
	EventCommentCreated     = "comment_created"
	EventGroupMemberAdded   = "group_member_added"
	EventGroupMemberRemoved = "group_member_removed"
	EventPreferencesSaved   = "preferences_saved"
)

const (
	BroadcastChannel  = "events:broadcast"
	userChannelPrefix = "events:user:"
)

// Event is the envelope written to every channel.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Notifier provides helpers to publish events into Redis channels.
// A nil Redis client turns every publish into a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel is the channel carrying one user's events.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID string, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a payload to the broadcast channel.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

func encode(eventType string, payload map[string]any) (string, error) {
	b, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return string(b), nil
}

// Broadcast publishes an event on the broadcast channel. Failures are logged
// and never returned: events are best-effort.
func (n *Notifier) Broadcast(ctx context.Context, eventType string, payload map[string]any) {
	msg, err := encode(eventType, payload)
	if err == nil {
		err = n.PublishBroadcast(ctx, msg)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish broadcast event",
			slog.String("event", eventType), slog.String("error", err.Error()))
	}
}

// NotifyUser publishes an event to one user's channel, best-effort.
func (n *Notifier) NotifyUser(ctx context.Context, userID, eventType string, payload map[string]any) {
	msg, err := encode(eventType, payload)
	if err == nil {
		err = n.PublishUser(ctx, userID, msg)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish user event",
			slog.String("event", eventType), slog.String("error", err.Error()))
	}
}
