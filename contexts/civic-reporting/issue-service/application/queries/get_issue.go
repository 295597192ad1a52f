package queries

import (
	"context"
	"log/slog"
	"strings"

	"civicpulse/contexts/civic-reporting/issue-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
)

type GetIssueUseCase struct {
	Store  ports.IssueStore
	Logger *slog.Logger
}

func (u GetIssueUseCase) Execute(ctx context.Context, issueID string) (entities.Issue, error) {
	if strings.TrimSpace(issueID) == "" {
		return entities.Issue{}, domainerrors.ErrInvalidRequest
	}
	return u.Store.FindByID(ctx, issueID)
}
