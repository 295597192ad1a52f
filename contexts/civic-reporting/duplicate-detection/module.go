package duplicatedetection

import (
	"log/slog"
	"time"

	httpadapter "civicpulse/contexts/civic-reporting/duplicate-detection/adapters/http"
	"civicpulse/contexts/civic-reporting/duplicate-detection/adapters/memory"
	"civicpulse/contexts/civic-reporting/duplicate-detection/application"
	"civicpulse/contexts/civic-reporting/duplicate-detection/ports"
)

// Module is the duplicate-detection composition root exposed to runtime wiring.
type Module struct {
	Handler   httpadapter.Handler
	Service   application.Service
	Suggester application.CategorySuggester
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Candidates       ports.CandidateSource
	Embedder         ports.EmbeddingProvider
	Threshold        float64
	MaxMatches       int
	EmbedConcurrency int
	EmbedTimeout     time.Duration
	FailOpen         bool
	// CategoryPrototypes maps category name to exemplar text for title-based
	// category suggestion. Nil falls back to the built-in civic set.
	CategoryPrototypes map[string]string
	Logger             *slog.Logger
}

// DefaultCategoryPrototypes are the exemplar texts the suggester classifies
// report titles against when no deployment-specific set is configured.
func DefaultCategoryPrototypes() map[string]string {
	return map[string]string{
		"pothole":     "pothole broken road damaged asphalt crater on the street",
		"garbage":     "garbage trash waste pile overflowing bin dump",
		"streetlight": "streetlight lamp pole light not working dark street at night",
		"water":       "water supply leaking pipe burst pipeline no drinking water",
		"sewage":      "sewage drain blocked overflowing gutter bad smell",
	}
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Candidates:       deps.Candidates,
		Embedder:         deps.Embedder,
		Threshold:        deps.Threshold,
		MaxMatches:       deps.MaxMatches,
		EmbedConcurrency: deps.EmbedConcurrency,
		EmbedTimeout:     deps.EmbedTimeout,
		FailOpen:         deps.FailOpen,
		Logger:           deps.Logger,
	}
	prototypes := deps.CategoryPrototypes
	if prototypes == nil {
		prototypes = DefaultCategoryPrototypes()
	}
	suggester := application.CategorySuggester{
		Embedder:     deps.Embedder,
		Prototypes:   prototypes,
		EmbedTimeout: deps.EmbedTimeout,
		Logger:       deps.Logger,
	}
	return Module{
		Handler:   httpadapter.Handler{Service: service, Suggester: suggester, Logger: deps.Logger},
		Service:   service,
		Suggester: suggester,
	}
}

// NewInMemoryModule builds a development/testing module with the hashed
// bag-of-words provider. Pass a different embedder to exercise scripted
// vectors.
func NewInMemoryModule(candidates ports.CandidateSource, embedder ports.EmbeddingProvider, logger *slog.Logger) Module {
	if embedder == nil {
		embedder = memory.NewProvider()
	}
	return NewModule(Dependencies{
		Candidates: candidates,
		Embedder:   embedder,
		FailOpen:   true,
		Logger:     logger,
	})
}
