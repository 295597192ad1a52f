package application

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	domainerrors "civicpulse/contexts/civic-reporting/duplicate-detection/domain/errors"
	"civicpulse/contexts/civic-reporting/duplicate-detection/domain/similarity"
	"civicpulse/contexts/civic-reporting/duplicate-detection/ports"
)

// CategorySuggester predicts a report category from the issue title by
// nearest-prototype classification: the title vector is compared against one
// exemplar text per category and the closest category wins. The suggestion is
// advisory; the reporter picks the final category.
type CategorySuggester struct {
	Embedder ports.EmbeddingProvider
	// Prototypes maps category name to its exemplar text.
	Prototypes   map[string]string
	EmbedTimeout time.Duration
	Logger       *slog.Logger
}

func (s CategorySuggester) Suggest(ctx context.Context, title string) (ports.CategorySuggestion, error) {
	logger := resolveLogger(s.Logger)

	title = strings.TrimSpace(title)
	if title == "" || len(s.Prototypes) == 0 {
		return ports.CategorySuggestion{}, domainerrors.ErrInvalidRequest
	}

	titleVector, err := s.embed(ctx, title)
	if err != nil {
		logger.Error("embedding unavailable for category suggestion",
			"event", "category_suggest_embed_failed",
			"module", "civic-reporting/duplicate-detection",
			"layer", "application",
			"error", err.Error(),
		)
		return ports.CategorySuggestion{}, domainerrors.ErrEmbeddingUnavailable
	}

	best := ports.CategorySuggestion{Confidence: math.Inf(-1)}
	for category, exemplar := range s.Prototypes {
		vector, err := s.embed(ctx, exemplar)
		if err != nil {
			logger.Warn("category prototype skipped",
				"event", "category_suggest_prototype_skipped",
				"module", "civic-reporting/duplicate-detection",
				"layer", "application",
				"category", category,
				"error", err.Error(),
			)
			continue
		}
		score := similarity.Cosine(titleVector, vector)
		// Ties break toward the lexically smaller category name so repeated
		// calls over an unordered map stay deterministic.
		if score > best.Confidence || (score == best.Confidence && category < best.Category) {
			best = ports.CategorySuggestion{Category: category, Confidence: score}
		}
	}
	if best.Category == "" {
		return ports.CategorySuggestion{}, domainerrors.ErrEmbeddingUnavailable
	}

	best.Confidence = math.Round(best.Confidence*10000) / 10000
	logger.Info("category suggested",
		"event", "category_suggested",
		"module", "civic-reporting/duplicate-detection",
		"layer", "application",
		"category", best.Category,
		"confidence", best.Confidence,
	)
	return best, nil
}

func (s CategorySuggester) embed(ctx context.Context, text string) ([]float64, error) {
	timeout := s.EmbedTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	embedCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Embedder.Embed(embedCtx, text)
}
