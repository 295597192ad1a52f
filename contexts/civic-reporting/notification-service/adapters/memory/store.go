package memory

import (
	"context"
	"sync"

	"civicpulse/contexts/civic-reporting/notification-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/notification-service/domain/errors"
)

// Store is the in-memory notification store used for development and tests.
type Store struct {
	mu            sync.RWMutex
	notifications map[string]entities.Notification
}

func NewStore() *Store {
	return &Store{notifications: make(map[string]entities.Notification)}
}

func (s *Store) Insert(_ context.Context, notification entities.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[notification.NotificationID] = notification
	return nil
}

func (s *Store) ListByRecipient(_ context.Context, recipientID string) ([]entities.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []entities.Notification
	for _, notification := range s.notifications {
		if notification.RecipientID == recipientID {
			matched = append(matched, notification)
		}
	}
	return matched, nil
}

func (s *Store) UpdateStatus(_ context.Context, notificationID string, status entities.Status) (entities.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[notificationID]
	if !ok {
		return entities.Notification{}, domainerrors.ErrNotFound
	}
	notification.Status = status
	s.notifications[notificationID] = notification
	return notification, nil
}
