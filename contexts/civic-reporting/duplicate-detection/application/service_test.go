package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainerrors "civicpulse/contexts/civic-reporting/duplicate-detection/domain/errors"
	"civicpulse/contexts/civic-reporting/duplicate-detection/ports"
)

type stubSource struct {
	candidates []ports.Candidate
	err        error
}

func (s stubSource) FindByWardAndCategory(ctx context.Context, ward string, category string) ([]ports.Candidate, error) {
	return s.candidates, s.err
}

type stubEmbedder struct {
	vectors map[string][]float64
	failOn  map[string]error

	mu    sync.Mutex
	calls int
}

// Embed is called from concurrent fan-out goroutines; the counter needs the
// same locking discipline as the service's own vector map.
func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err, ok := s.failOn[text]; ok {
		return nil, err
	}
	vector, ok := s.vectors[text]
	if !ok {
		return nil, errors.New("no vector configured for text")
	}
	return vector, nil
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func candidateAt(id string, description string, createdAt time.Time) ports.Candidate {
	return ports.Candidate{
		IssueID:     id,
		Title:       "title " + id,
		Description: description,
		Ward:        "W4",
		CreatedAt:   createdAt,
	}
}

func TestCheckDuplicatesValidatesInput(t *testing.T) {
	service := Service{Candidates: stubSource{}, Embedder: &stubEmbedder{}}
	_, err := service.CheckDuplicates(context.Background(), ports.DetectInput{Ward: "W4", Category: "", Description: "x"})
	if !errors.Is(err, domainerrors.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestCheckDuplicatesEmptyPartitionIsNoDuplicates(t *testing.T) {
	embedder := &stubEmbedder{}
	service := Service{Candidates: stubSource{}, Embedder: embedder}
	result, err := service.CheckDuplicates(context.Background(), ports.DetectInput{
		Ward: "W4", Category: "Pothole", Description: "deep pothole on main road",
	})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if result.IsDuplicate || len(result.Matches) != 0 {
		t.Fatalf("expected no duplicates, got %+v", result)
	}
	if got := embedder.callCount(); got != 0 {
		t.Fatalf("expected no embedding calls for empty partition, got %d", got)
	}
}

func TestCheckDuplicatesIdenticalTextMatchesAtFullScore(t *testing.T) {
	text := "garbage pile near bus stop"
	embedder := &stubEmbedder{vectors: map[string][]float64{
		text: {0.2, 0.8, -0.1},
	}}
	service := Service{
		Candidates: stubSource{candidates: []ports.Candidate{
			candidateAt("issue-1", text, time.Now().UTC()),
		}},
		Embedder: embedder,
	}
	result, err := service.CheckDuplicates(context.Background(), ports.DetectInput{
		Ward: "W4", Category: "Garbage", Description: text,
	})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !result.IsDuplicate || len(result.Matches) != 1 {
		t.Fatalf("expected one match, got %+v", result)
	}
	if result.Matches[0].SimilarityPct != 100 {
		t.Fatalf("expected 100%% similarity for identical text, got %v", result.Matches[0].SimilarityPct)
	}
	// Identical text reuses the request-scoped vector: one embed call only.
	if got := embedder.callCount(); got != 1 {
		t.Fatalf("expected a single embed call, got %d", got)
	}
}

func TestCheckDuplicatesThresholdIsStrict(t *testing.T) {
	// Vectors chosen so every intermediate is exact in float64:
	// |ones| = 4, |boundary| = 5, dot = 15, cosine = 15/20 = 0.75 exactly.
	ones := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	boundary := []float64{2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
	// dot = 10, |above| = sqrt(10), cosine ≈ 0.7906.
	above := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"new report":     ones,
		"at threshold":   boundary,
		"over threshold": above,
	}}
	service := Service{
		Candidates: stubSource{candidates: []ports.Candidate{
			candidateAt("issue-exact", "at threshold", time.Now().UTC()),
			candidateAt("issue-above", "over threshold", time.Now().UTC()),
		}},
		Embedder: embedder,
	}
	result, err := service.CheckDuplicates(context.Background(), ports.DetectInput{
		Ward: "W4", Category: "Pothole", Description: "new report",
	})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("expected exactly one match above the strict threshold, got %+v", result.Matches)
	}
	if result.Matches[0].IssueID != "issue-above" {
		t.Fatalf("expected the 0.7501 candidate to match, got %s", result.Matches[0].IssueID)
	}
}

func TestCheckDuplicatesRankingAndCap(t *testing.T) {
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"new report": {1, 0},
		"score-95":   {0.95, 0.3122498999199199},
		"tied-a":     {0.9, 0.4358898943540674},
		"tied-b":     {0.9, 0.4358898943540674},
		"score-80":   {0.8, 0.6},
	}}
	service := Service{
		Candidates: stubSource{candidates: []ports.Candidate{
			candidateAt("issue-old-tie", "tied-a", base),
			candidateAt("issue-80", "score-80", base.Add(3*time.Hour)),
			candidateAt("issue-95", "score-95", base.Add(time.Hour)),
			candidateAt("issue-new-tie", "tied-b", base.Add(2*time.Hour)),
		}},
		Embedder: embedder,
	}
	result, err := service.CheckDuplicates(context.Background(), ports.DetectInput{
		Ward: "W4", Category: "Pothole", Description: "new report",
	})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(result.Matches) != 3 {
		t.Fatalf("expected cap at 3 matches, got %d", len(result.Matches))
	}
	got := []string{result.Matches[0].IssueID, result.Matches[1].IssueID, result.Matches[2].IssueID}
	want := []string{"issue-95", "issue-new-tie", "issue-old-tie"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ranking %v, got %v", want, got)
		}
	}
}

func TestCheckDuplicatesSkipsFailingCandidates(t *testing.T) {
	embedder := &stubEmbedder{
		vectors: map[string][]float64{
			"new report": {1, 0},
			"healthy":    {1, 0.1},
		},
		failOn: map[string]error{
			"broken": errors.New("provider timeout"),
		},
	}
	service := Service{
		Candidates: stubSource{candidates: []ports.Candidate{
			candidateAt("issue-broken", "broken", time.Now().UTC()),
			candidateAt("issue-healthy", "healthy", time.Now().UTC()),
		}},
		Embedder: embedder,
	}
	result, err := service.CheckDuplicates(context.Background(), ports.DetectInput{
		Ward: "W4", Category: "Pothole", Description: "new report",
	})
	if err != nil {
		t.Fatalf("expected best-effort candidate handling, got %v", err)
	}
	if len(result.Matches) != 1 || result.Matches[0].IssueID != "issue-healthy" {
		t.Fatalf("expected the healthy candidate only, got %+v", result.Matches)
	}
}

func TestCheckDuplicatesFailClosedSurfacesEmbeddingUnavailable(t *testing.T) {
	embedder := &stubEmbedder{failOn: map[string]error{
		"new report": errors.New("connection refused"),
	}}
	service := Service{
		Candidates: stubSource{candidates: []ports.Candidate{
			candidateAt("issue-1", "anything", time.Now().UTC()),
		}},
		Embedder: embedder,
		FailOpen: false,
	}
	_, err := service.CheckDuplicates(context.Background(), ports.DetectInput{
		Ward: "W4", Category: "Pothole", Description: "new report",
	})
	if !errors.Is(err, domainerrors.ErrEmbeddingUnavailable) {
		t.Fatalf("expected embedding unavailable, got %v", err)
	}
}

func TestCheckDuplicatesFailOpenReturnsNoDuplicates(t *testing.T) {
	embedder := &stubEmbedder{failOn: map[string]error{
		"new report": errors.New("connection refused"),
	}}
	service := Service{
		Candidates: stubSource{candidates: []ports.Candidate{
			candidateAt("issue-1", "anything", time.Now().UTC()),
		}},
		Embedder: embedder,
		FailOpen: true,
	}
	result, err := service.CheckDuplicates(context.Background(), ports.DetectInput{
		Ward: "W4", Category: "Pothole", Description: "new report",
	})
	if err != nil {
		t.Fatalf("expected fail-open policy to swallow the provider failure, got %v", err)
	}
	if result.IsDuplicate {
		t.Fatalf("expected no-duplicates verdict under fail-open, got %+v", result)
	}
}
