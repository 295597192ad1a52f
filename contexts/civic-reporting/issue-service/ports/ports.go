package ports

import (
	"context"
	"time"

	"civicpulse/contexts/civic-reporting/issue-service/domain/entities"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// UpdateStatusInput is a compare-and-swap mutation: the store must only
// apply it when the record still carries FromStatus and ExpectedVersion,
// otherwise return ErrStoreConflict (record exists) or ErrNotFound.
type UpdateStatusInput struct {
	IssueID         string
	FromStatus      entities.Status
	ToStatus        entities.Status
	ExpectedVersion int64
	AdminFeedback   string
	UpdatedAt       time.Time
}

type StatusCountFilter struct {
	ReporterID string
	Ward       string
}

type StatusCounts struct {
	Total     int64
	Pending   int64
	Verified  int64
	Resolved  int64
	Cancelled int64
}

// IssueStore owns issue records. The application layer only ever holds
// short-lived copies.
type IssueStore interface {
	Create(ctx context.Context, issue entities.Issue) error
	FindByID(ctx context.Context, issueID string) (entities.Issue, error)
	FindByWardAndCategory(ctx context.Context, ward string, category string) ([]entities.Issue, error)
	FindByReporter(ctx context.Context, reporterID string) ([]entities.Issue, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (entities.Issue, error)
	CountByStatus(ctx context.Context, filter StatusCountFilter) (StatusCounts, error)
}

// LifecycleEvent is the notification-worthy fact a transition produces.
// Owned by the producer until handed to the dispatcher, then discarded.
type LifecycleEvent struct {
	EventID     string
	Type        string
	RecipientID string
	IssueID     string
	Category    string
	Title       string
	Ward        string
	Message     string
	OccurredAt  time.Time
}

// NotificationDispatcher delivers lifecycle events best-effort. Failures
// are logged by the caller, never surfaced as the transition's result.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event LifecycleEvent) error
}

// WardDirectory resolves the administrator responsible for a ward.
type WardDirectory interface {
	AdminFor(ctx context.Context, ward string) (string, bool, error)
}

// DuplicateAdvisory is the advisory verdict consulted before creation.
type DuplicateAdvisory struct {
	IsDuplicate bool
	Matches     []DuplicateMatch
}

type DuplicateMatch struct {
	IssueID       string
	Title         string
	Description   string
	Ward          string
	Images        []string
	SimilarityPct float64
}

type DuplicateChecker interface {
	CheckDuplicates(ctx context.Context, ward string, category string, description string) (DuplicateAdvisory, error)
}

type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	Status    string // pending, sent
	CreatedAt time.Time
}

type OutboxRepository interface {
	AppendOutbox(ctx context.Context, message OutboxMessage) error
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

type IdempotencyRecord struct {
	Key             string
	RequestHash     string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

type IdempotencyStore interface {
	GetRecord(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	PutRecord(ctx context.Context, record IdempotencyRecord) error
}
