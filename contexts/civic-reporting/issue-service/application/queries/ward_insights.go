package queries

import (
	"context"
	"log/slog"
	"math"
	"strings"

	domainerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
)

type WardInsights struct {
	Ward           string
	Counts         ports.StatusCounts
	ResolutionRate float64
}

// WardInsightsUseCase is a derived, read-only reporting view over the
// issue store.
type WardInsightsUseCase struct {
	Store  ports.IssueStore
	Logger *slog.Logger
}

func (u WardInsightsUseCase) Execute(ctx context.Context, ward string) (WardInsights, error) {
	ward = strings.TrimSpace(ward)
	if ward == "" {
		return WardInsights{}, domainerrors.ErrInvalidRequest
	}
	counts, err := u.Store.CountByStatus(ctx, ports.StatusCountFilter{Ward: ward})
	if err != nil {
		return WardInsights{}, err
	}

	// Resolution rate measures resolved work against the still-actionable
	// backlog (verified + pending), not against the full historical total.
	rate := 0.0
	if denominator := counts.Verified + counts.Pending; denominator > 0 {
		rate = math.Round(float64(counts.Resolved)/float64(denominator)*10000) / 100
	}
	return WardInsights{Ward: ward, Counts: counts, ResolutionRate: rate}, nil
}
