package queries

import (
	"context"
	"log/slog"
	"strings"

	domainerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
)

// UserStatsUseCase counts a reporter's issues per lifecycle state.
type UserStatsUseCase struct {
	Store  ports.IssueStore
	Logger *slog.Logger
}

func (u UserStatsUseCase) Execute(ctx context.Context, reporterID string) (ports.StatusCounts, error) {
	if strings.TrimSpace(reporterID) == "" {
		return ports.StatusCounts{}, domainerrors.ErrInvalidRequest
	}
	return u.Store.CountByStatus(ctx, ports.StatusCountFilter{ReporterID: reporterID})
}

// WardStatsUseCase counts a ward's issues per lifecycle state.
type WardStatsUseCase struct {
	Store  ports.IssueStore
	Logger *slog.Logger
}

func (u WardStatsUseCase) Execute(ctx context.Context, ward string) (ports.StatusCounts, error) {
	if strings.TrimSpace(ward) == "" {
		return ports.StatusCounts{}, domainerrors.ErrInvalidRequest
	}
	return u.Store.CountByStatus(ctx, ports.StatusCountFilter{Ward: ward})
}
