package ports

import (
	"context"
	"time"
)

// EmbeddingProvider maps free text to a fixed-length vector. Implementations
// wrap remote or in-process models; callers treat failures as opaque.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Candidate is the slice of an issue record the detector needs for scoring.
type Candidate struct {
	IssueID     string
	Title       string
	Description string
	Ward        string
	Images      []string
	CreatedAt   time.Time
}

// CandidateSource yields existing issues in the same ward+category partition,
// regardless of status.
type CandidateSource interface {
	FindByWardAndCategory(ctx context.Context, ward string, category string) ([]Candidate, error)
}

type DetectInput struct {
	Ward        string
	Category    string
	Description string
}

type Match struct {
	IssueID       string
	Title         string
	Description   string
	Ward          string
	Images        []string
	SimilarityPct float64
}

type DetectionResult struct {
	IsDuplicate bool
	Matches     []Match
}

// CategorySuggestion is the advisory category prediction for a report title.
// Confidence is the cosine score against the winning category prototype.
type CategorySuggestion struct {
	Category   string
	Confidence float64
}
