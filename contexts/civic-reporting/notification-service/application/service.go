package application

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"civicpulse/contexts/civic-reporting/notification-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/notification-service/domain/errors"
	"civicpulse/contexts/civic-reporting/notification-service/ports"
)

// RecordInput is the transport-agnostic input for a new notification.
type RecordInput struct {
	RecipientID string
	IssueID     string
	Type        entities.Type
	Title       string
	Message     string
	OccurredAt  time.Time
}

// Inbox is a recipient's notification list with summary counts.
type Inbox struct {
	Notifications []entities.Notification
	Total         int
	Unread        int
}

// Service owns the notification inbox: recording entries from lifecycle
// events and serving per-recipient reads.
type Service struct {
	Store       ports.NotificationStore
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (s Service) Record(ctx context.Context, input RecordInput) (entities.Notification, error) {
	logger := resolveLogger(s.Logger)

	input.RecipientID = strings.TrimSpace(input.RecipientID)
	input.Message = strings.TrimSpace(input.Message)
	if input.RecipientID == "" || input.Message == "" {
		return entities.Notification{}, domainerrors.ErrInvalidRequest
	}
	if input.Type != entities.TypeIssueReported && input.Type != entities.TypeStatusChanged {
		return entities.Notification{}, domainerrors.ErrInvalidRequest
	}

	notificationID, err := s.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Notification{}, err
	}
	createdAt := input.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	notification := entities.Notification{
		NotificationID: notificationID,
		RecipientID:    input.RecipientID,
		IssueID:        input.IssueID,
		Type:           input.Type,
		Title:          input.Title,
		Message:        input.Message,
		Status:         entities.StatusUnread,
		CreatedAt:      createdAt,
	}
	if err := s.Store.Insert(ctx, notification); err != nil {
		logger.Error("notification insert failed",
			"event", "notification_record_failed",
			"module", "civic-reporting/notification-service",
			"layer", "application",
			"recipient_id", input.RecipientID,
			"error", err.Error(),
		)
		return entities.Notification{}, err
	}

	logger.Info("notification recorded",
		"event", "notification_recorded",
		"module", "civic-reporting/notification-service",
		"layer", "application",
		"notification_id", notification.NotificationID,
		"recipient_id", notification.RecipientID,
		"type", string(notification.Type),
	)
	return notification, nil
}

// ListForUser returns the recipient's inbox, most recent first. An empty
// inbox is a valid result.
func (s Service) ListForUser(ctx context.Context, recipientID string) (Inbox, error) {
	if strings.TrimSpace(recipientID) == "" {
		return Inbox{}, domainerrors.ErrInvalidRequest
	}
	notifications, err := s.Store.ListByRecipient(ctx, recipientID)
	if err != nil {
		return Inbox{}, err
	}
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	inbox := Inbox{Notifications: notifications, Total: len(notifications)}
	for _, notification := range notifications {
		if notification.Status == entities.StatusUnread {
			inbox.Unread++
		}
	}
	return inbox, nil
}

func (s Service) MarkRead(ctx context.Context, notificationID string) (entities.Notification, error) {
	if strings.TrimSpace(notificationID) == "" {
		return entities.Notification{}, domainerrors.ErrInvalidRequest
	}
	return s.Store.UpdateStatus(ctx, notificationID, entities.StatusRead)
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
