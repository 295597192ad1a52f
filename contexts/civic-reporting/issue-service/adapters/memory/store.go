package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"civicpulse/contexts/civic-reporting/issue-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
)

// Store is the in-memory issue store used for development and tests. It
// provides the same per-record compare-and-swap guarantee as the postgres
// adapter: two concurrent transitions on one issue cannot both succeed.
type Store struct {
	mu          sync.RWMutex
	issues      map[string]entities.Issue
	outbox      []ports.OutboxMessage
	idempotency map[string]ports.IdempotencyRecord
}

func NewStore() *Store {
	return &Store{
		issues:      make(map[string]entities.Issue),
		idempotency: make(map[string]ports.IdempotencyRecord),
	}
}

func (s *Store) Create(_ context.Context, issue entities.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.issues[issue.IssueID]; exists {
		return domainerrors.ErrStoreConflict
	}
	s.issues[issue.IssueID] = cloneIssue(issue)
	return nil
}

func (s *Store) FindByID(_ context.Context, issueID string) (entities.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issue, ok := s.issues[issueID]
	if !ok {
		return entities.Issue{}, domainerrors.ErrNotFound
	}
	return cloneIssue(issue), nil
}

func (s *Store) FindByWardAndCategory(_ context.Context, ward string, category string) ([]entities.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []entities.Issue
	for _, issue := range s.issues {
		if issue.Ward == ward && issue.Category == category {
			matched = append(matched, cloneIssue(issue))
		}
	}
	sortIssues(matched)
	return matched, nil
}

func (s *Store) FindByReporter(_ context.Context, reporterID string) ([]entities.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []entities.Issue
	for _, issue := range s.issues {
		if issue.ReporterID == reporterID {
			matched = append(matched, cloneIssue(issue))
		}
	}
	sortIssues(matched)
	return matched, nil
}

func (s *Store) UpdateStatus(_ context.Context, input ports.UpdateStatusInput) (entities.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[input.IssueID]
	if !ok {
		return entities.Issue{}, domainerrors.ErrNotFound
	}
	if issue.Status != input.FromStatus || issue.Version != input.ExpectedVersion {
		return entities.Issue{}, domainerrors.ErrStoreConflict
	}
	issue.Status = input.ToStatus
	if input.AdminFeedback != "" {
		issue.AdminFeedback = input.AdminFeedback
	}
	issue.Version++
	issue.UpdatedAt = input.UpdatedAt
	s.issues[input.IssueID] = issue
	return cloneIssue(issue), nil
}

func (s *Store) CountByStatus(_ context.Context, filter ports.StatusCountFilter) (ports.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts ports.StatusCounts
	for _, issue := range s.issues {
		if filter.ReporterID != "" && issue.ReporterID != filter.ReporterID {
			continue
		}
		if filter.Ward != "" && issue.Ward != filter.Ward {
			continue
		}
		counts.Total++
		switch issue.Status {
		case entities.StatusPending:
			counts.Pending++
		case entities.StatusVerified:
			counts.Verified++
		case entities.StatusResolved:
			counts.Resolved++
		case entities.StatusCancelled:
			counts.Cancelled++
		}
	}
	return counts, nil
}

func (s *Store) AppendOutbox(_ context.Context, message ports.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, message)
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []ports.OutboxMessage
	for _, message := range s.outbox {
		if message.Status != "pending" {
			continue
		}
		pending = append(pending, message)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].OutboxID == outboxID {
			s.outbox[i].Status = "sent"
			return nil
		}
	}
	return domainerrors.ErrNotFound
}

func (s *Store) GetRecord(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.idempotency[key]
	if !ok || now.After(record.ExpiresAt) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) PutRecord(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idempotency[record.Key] = record
	return nil
}

func sortIssues(issues []entities.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if !issues[i].CreatedAt.Equal(issues[j].CreatedAt) {
			return issues[i].CreatedAt.After(issues[j].CreatedAt)
		}
		return issues[i].IssueID < issues[j].IssueID
	})
}

func cloneIssue(issue entities.Issue) entities.Issue {
	issue.Images = append([]string(nil), issue.Images...)
	return issue
}
