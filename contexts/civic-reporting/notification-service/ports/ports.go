package ports

import (
	"context"
	"time"

	"civicpulse/contexts/civic-reporting/notification-service/domain/entities"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// NotificationStore persists per-recipient notifications.
type NotificationStore interface {
	Insert(ctx context.Context, notification entities.Notification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]entities.Notification, error)
	UpdateStatus(ctx context.Context, notificationID string, status entities.Status) (entities.Notification, error)
}
