package service

import (
	"context"
	"errors"

	"pulsevote/internal/models"
)

// EventPublisher fans domain events out after a confirmed write.
// *notifications.Notifier satisfies it.
type EventPublisher interface {
	Broadcast(ctx context.Context, eventType string, payload map[string]any)
	NotifyUser(ctx context.Context, userID, eventType string, payload map[string]any)
}

type noopEvents struct{}

func (noopEvents) Broadcast(context.Context, string, map[string]any)         {}
func (noopEvents) NotifyUser(context.Context, string, string, map[string]any) {}

func eventsOrNoop(e EventPublisher) EventPublisher {
	if e == nil {
		return noopEvents{}
	}
	return e
}

// asAppError passes *models.AppError through and wraps anything else as an
// internal error.
func asAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}
