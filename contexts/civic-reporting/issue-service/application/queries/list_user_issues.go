package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"civicpulse/contexts/civic-reporting/issue-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
)

type ListUserIssuesUseCase struct {
	Store  ports.IssueStore
	Logger *slog.Logger
}

// Execute returns the reporter's issues, most recent first. An empty list
// is a valid result, not an error.
func (u ListUserIssuesUseCase) Execute(ctx context.Context, reporterID string) ([]entities.Issue, error) {
	if strings.TrimSpace(reporterID) == "" {
		return nil, domainerrors.ErrInvalidRequest
	}
	issues, err := u.Store.FindByReporter(ctx, reporterID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})
	return issues, nil
}
