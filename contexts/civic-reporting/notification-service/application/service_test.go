package application

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"civicpulse/contexts/civic-reporting/notification-service/adapters/memory"
	"civicpulse/contexts/civic-reporting/notification-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/notification-service/domain/errors"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type sequenceIDs struct{ next int }

func (g *sequenceIDs) NewID(context.Context) (string, error) {
	g.next++
	return "notif-" + strconv.Itoa(g.next), nil
}

func newService(store *memory.Store) Service {
	return Service{
		Store:       store,
		Clock:       fixedClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		IDGenerator: &sequenceIDs{},
	}
}

func TestRecordCreatesUnreadNotification(t *testing.T) {
	store := memory.NewStore()
	service := newService(store)

	notification, err := service.Record(context.Background(), RecordInput{
		RecipientID: "user-7",
		IssueID:     "issue-1",
		Type:        entities.TypeStatusChanged,
		Title:       "Broken streetlight",
		Message:     "Your issue was verified.",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if notification.Status != entities.StatusUnread {
		t.Fatalf("status = %s, want unread", notification.Status)
	}
	if notification.NotificationID == "" {
		t.Fatal("expected generated notification id")
	}
}

func TestRecordValidatesInput(t *testing.T) {
	service := newService(memory.NewStore())
	cases := []struct {
		name  string
		input RecordInput
	}{
		{"missing recipient", RecordInput{Type: entities.TypeStatusChanged, Message: "m"}},
		{"missing message", RecordInput{RecipientID: "user-7", Type: entities.TypeStatusChanged}},
		{"unknown type", RecordInput{RecipientID: "user-7", Type: "broadcast", Message: "m"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Record(context.Background(), tc.input); !errors.Is(err, domainerrors.ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestListForUserNewestFirstWithCounts(t *testing.T) {
	store := memory.NewStore()
	service := newService(store)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := service.Record(context.Background(), RecordInput{
			RecipientID: "user-7",
			Type:        entities.TypeStatusChanged,
			Message:     "update",
			OccurredAt:  base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if _, err := service.MarkRead(context.Background(), "notif-1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	inbox, err := service.ListForUser(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if inbox.Total != 3 || inbox.Unread != 2 {
		t.Fatalf("total=%d unread=%d, want 3/2", inbox.Total, inbox.Unread)
	}
	for i := 1; i < len(inbox.Notifications); i++ {
		if inbox.Notifications[i].CreatedAt.After(inbox.Notifications[i-1].CreatedAt) {
			t.Fatal("notifications must be ordered newest first")
		}
	}
}

func TestListForUserEmptyInboxIsSuccess(t *testing.T) {
	service := newService(memory.NewStore())
	inbox, err := service.ListForUser(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if inbox.Total != 0 || inbox.Unread != 0 || len(inbox.Notifications) != 0 {
		t.Fatalf("inbox = %+v, want empty", inbox)
	}
}

func TestMarkReadUnknownIDIsNotFound(t *testing.T) {
	service := newService(memory.NewStore())
	if _, err := service.MarkRead(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
