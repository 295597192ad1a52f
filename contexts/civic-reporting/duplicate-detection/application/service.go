package application

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	domainerrors "civicpulse/contexts/civic-reporting/duplicate-detection/domain/errors"
	"civicpulse/contexts/civic-reporting/duplicate-detection/domain/similarity"
	"civicpulse/contexts/civic-reporting/duplicate-detection/ports"
)

// Service runs the duplicate-report check: fetch same-ward/category
// candidates, embed descriptions, score with cosine similarity, rank and
// cap. Read-only advisory; the caller decides whether to block creation.
type Service struct {
	Candidates ports.CandidateSource
	Embedder   ports.EmbeddingProvider
	Logger     *slog.Logger

	// Threshold is strict: a candidate scoring exactly Threshold is not a
	// match. Zero means the 0.75 default.
	Threshold        float64
	MaxMatches       int
	EmbedConcurrency int
	EmbedTimeout     time.Duration

	// FailOpen controls degradation when the provider cannot embed the new
	// description: true returns a no-duplicates verdict with a warning,
	// false surfaces ErrEmbeddingUnavailable.
	FailOpen bool
}

func (s Service) CheckDuplicates(ctx context.Context, input ports.DetectInput) (ports.DetectionResult, error) {
	logger := resolveLogger(s.Logger)

	ward := strings.TrimSpace(input.Ward)
	category := strings.TrimSpace(input.Category)
	description := strings.TrimSpace(input.Description)
	if ward == "" || category == "" || description == "" {
		return ports.DetectionResult{}, domainerrors.ErrInvalidRequest
	}

	candidates, err := s.Candidates.FindByWardAndCategory(ctx, ward, category)
	if err != nil {
		return ports.DetectionResult{}, err
	}
	if len(candidates) == 0 {
		return ports.DetectionResult{}, nil
	}

	newVector, err := s.embed(ctx, description)
	if err != nil {
		if s.FailOpen {
			logger.Warn("duplicate check degraded, proceeding without suppression",
				"event", "duplicate_check_degraded",
				"module", "civic-reporting/duplicate-detection",
				"layer", "application",
				"ward", ward,
				"category", category,
				"error", err.Error(),
			)
			return ports.DetectionResult{}, nil
		}
		logger.Error("embedding unavailable for new report",
			"event", "duplicate_check_embed_failed",
			"module", "civic-reporting/duplicate-detection",
			"layer", "application",
			"ward", ward,
			"category", category,
			"error", err.Error(),
		)
		return ports.DetectionResult{}, domainerrors.ErrEmbeddingUnavailable
	}

	vectors := s.embedCandidates(ctx, logger, description, newVector, candidates)

	threshold := s.threshold()
	scored := make([]scoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		vector, ok := vectors[candidate.Description]
		if !ok {
			continue
		}
		score := similarity.Cosine(newVector, vector)
		if score > threshold {
			scored = append(scored, scoredCandidate{candidate: candidate, score: score})
		}
	}
	if len(scored) == 0 {
		return ports.DetectionResult{}, nil
	}

	// Deterministic ranking regardless of embedding completion order:
	// score descending, then most recently created first.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].candidate.CreatedAt.After(scored[j].candidate.CreatedAt)
	})
	if limit := s.maxMatches(); len(scored) > limit {
		scored = scored[:limit]
	}

	matches := make([]ports.Match, 0, len(scored))
	for _, item := range scored {
		matches = append(matches, ports.Match{
			IssueID:       item.candidate.IssueID,
			Title:         item.candidate.Title,
			Description:   item.candidate.Description,
			Ward:          item.candidate.Ward,
			Images:        append([]string(nil), item.candidate.Images...),
			SimilarityPct: math.Round(item.score*10000) / 100,
		})
	}

	logger.Info("duplicate candidates found",
		"event", "duplicate_check_matched",
		"module", "civic-reporting/duplicate-detection",
		"layer", "application",
		"ward", ward,
		"category", category,
		"candidate_count", len(candidates),
		"match_count", len(matches),
	)
	return ports.DetectionResult{IsDuplicate: true, Matches: matches}, nil
}

type scoredCandidate struct {
	candidate ports.Candidate
	score     float64
}

// embedCandidates resolves one vector per distinct candidate description.
// Identical text reuses a vector within this call; nothing is cached across
// calls. Fan-out is bounded so a large partition cannot flood the provider,
// and per-candidate failures skip that candidate instead of failing the check.
func (s Service) embedCandidates(
	ctx context.Context,
	logger *slog.Logger,
	newDescription string,
	newVector []float64,
	candidates []ports.Candidate,
) map[string][]float64 {
	vectors := map[string][]float64{newDescription: newVector}

	distinct := make([]string, 0, len(candidates))
	seen := map[string]bool{newDescription: true}
	for _, candidate := range candidates {
		if seen[candidate.Description] {
			continue
		}
		seen[candidate.Description] = true
		distinct = append(distinct, candidate.Description)
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.embedConcurrency())
	for _, text := range distinct {
		group.Go(func() error {
			vector, err := s.embed(groupCtx, text)
			if err != nil {
				logger.Warn("candidate embedding skipped",
					"event", "duplicate_check_candidate_skipped",
					"module", "civic-reporting/duplicate-detection",
					"layer", "application",
					"error", err.Error(),
				)
				return nil
			}
			mu.Lock()
			vectors[text] = vector
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return vectors
}

func (s Service) embed(ctx context.Context, text string) ([]float64, error) {
	timeout := s.EmbedTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	embedCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Embedder.Embed(embedCtx, text)
}

func (s Service) threshold() float64 {
	if s.Threshold <= 0 {
		return 0.75
	}
	return s.Threshold
}

func (s Service) maxMatches() int {
	if s.MaxMatches <= 0 {
		return 3
	}
	return s.MaxMatches
}

func (s Service) embedConcurrency() int {
	if s.EmbedConcurrency <= 0 {
		return 8
	}
	return s.EmbedConcurrency
}
