package unit

import (
	"context"
	"errors"
	"testing"

	duplicatedetection "civicpulse/contexts/civic-reporting/duplicate-detection"
	dderrors "civicpulse/contexts/civic-reporting/duplicate-detection/domain/errors"
	ddhttp "civicpulse/contexts/civic-reporting/duplicate-detection/transport/http"
	issuehttp "civicpulse/contexts/civic-reporting/issue-service/transport/http"
)

// scriptedEmbedder returns fixed vectors per exact text, standing in for a
// real embedding model in end-to-end scenarios.
type scriptedEmbedder struct {
	vectors map[string][]float64
}

func (e scriptedEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vector, ok := e.vectors[text]
	if !ok {
		return nil, errors.New("no scripted vector for text")
	}
	return vector, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("model endpoint unreachable")
}

const (
	potholeExisting  = "Large pothole near market gate causing two-wheeler accidents"
	potholeNew       = "Big pothole near the market entrance causing bike accidents"
	unrelatedGarbage = "Garbage pile burning behind the vegetable market"
)

func TestCrossLanguageParaphraseRankedFirst(t *testing.T) {
	embedder := scriptedEmbedder{vectors: map[string][]float64{
		potholeNew:       {1, 0, 0},
		potholeExisting:  {9, 1, 0}, // near-parallel, well above threshold
		unrelatedGarbage: {0, 1, 0}, // orthogonal
	}}
	modules := newInMemoryModules(t, map[string]string{"W4": "admin-4"}, embedder)

	for _, seed := range []struct{ title, description string }{
		{"Market gate pothole", potholeExisting},
		{"Burning garbage", unrelatedGarbage},
	} {
		if _, err := modules.Issues.Handler.ReportIssueHandler(
			context.Background(), "user-1", "",
			issuehttp.ReportIssueRequest{
				Title:       seed.title,
				Category:    "pothole",
				Description: seed.description,
				Ward:        "W4",
				Location:    issuehttp.LocationPayload{Latitude: 12.9, Longitude: 77.5},
				Confirmed:   true,
			},
		); err != nil {
			t.Fatalf("seed %q: %v", seed.title, err)
		}
	}

	resp, err := modules.Duplicates.Handler.CheckDuplicatesHandler(
		context.Background(),
		ddhttp.CheckDuplicatesRequest{Ward: "W4", Category: "pothole", Description: potholeNew},
	)
	if err != nil {
		t.Fatalf("check duplicates: %v", err)
	}
	if !resp.Data.IsDuplicate {
		t.Fatal("paraphrased pothole report must be flagged as duplicate")
	}
	if len(resp.Data.Matches) != 1 {
		t.Fatalf("matches = %d, want 1 (orthogonal candidate excluded)", len(resp.Data.Matches))
	}
	top := resp.Data.Matches[0]
	if top.Description != potholeExisting {
		t.Fatalf("top match = %q, want the existing pothole report", top.Description)
	}
	if top.SimilarityPct <= 75 {
		t.Fatalf("similarity = %v, want above 75", top.SimilarityPct)
	}
}

func TestDuplicateMatchesCappedAtThreeRankedByScore(t *testing.T) {
	// Unnormalized 2D vectors give exact cosines against (1,0):
	// (24,7)/25=0.96, (12,5)/13≈0.923, (15,8)/17≈0.882, (4,3)/5=0.8, (3,4)/5=0.6.
	embedder := scriptedEmbedder{vectors: map[string][]float64{
		"query":  {1, 0},
		"cand-a": {24, 7},
		"cand-b": {12, 5},
		"cand-c": {15, 8},
		"cand-d": {4, 3},
		"cand-e": {3, 4},
	}}
	modules := newInMemoryModules(t, nil, embedder)

	for _, description := range []string{"cand-a", "cand-b", "cand-c", "cand-d", "cand-e"} {
		if _, err := modules.Issues.Handler.ReportIssueHandler(
			context.Background(), "user-1", "",
			issuehttp.ReportIssueRequest{
				Title:       "seed " + description,
				Category:    "garbage",
				Description: description,
				Ward:        "W2",
				Location:    issuehttp.LocationPayload{Latitude: 12.9, Longitude: 77.5},
				Confirmed:   true,
			},
		); err != nil {
			t.Fatalf("seed %q: %v", description, err)
		}
	}

	resp, err := modules.Duplicates.Handler.CheckDuplicatesHandler(
		context.Background(),
		ddhttp.CheckDuplicatesRequest{Ward: "W2", Category: "garbage", Description: "query"},
	)
	if err != nil {
		t.Fatalf("check duplicates: %v", err)
	}
	if len(resp.Data.Matches) != 3 {
		t.Fatalf("matches = %d, want cap of 3", len(resp.Data.Matches))
	}
	want := []string{"cand-a", "cand-b", "cand-c"}
	for i, match := range resp.Data.Matches {
		if match.Description != want[i] {
			t.Fatalf("rank %d = %q, want %q", i, match.Description, want[i])
		}
	}
}

func TestEmptyPartitionNeverFlagsDuplicates(t *testing.T) {
	modules := newInMemoryModules(t, nil, failingEmbedder{})

	resp, err := modules.Duplicates.Handler.CheckDuplicatesHandler(
		context.Background(),
		ddhttp.CheckDuplicatesRequest{Ward: "W1", Category: "garbage", Description: "anything"},
	)
	if err != nil {
		t.Fatalf("check duplicates: %v", err)
	}
	if resp.Data.IsDuplicate || len(resp.Data.Matches) != 0 {
		t.Fatalf("empty ward partition must short-circuit, got %+v", resp.Data)
	}
}

func TestDegradationFailOpenReturnsNoDuplicates(t *testing.T) {
	// Fail-open wiring is the in-memory default.
	modules := newInMemoryModules(t, nil, failingEmbedder{})

	if _, err := modules.Issues.Handler.ReportIssueHandler(
		context.Background(), "user-1", "",
		issuehttp.ReportIssueRequest{
			Title:       "Existing report",
			Category:    "garbage",
			Description: "overflowing bin on 5th cross",
			Ward:        "W3",
			Location:    issuehttp.LocationPayload{Latitude: 12.9, Longitude: 77.5},
			Confirmed:   true,
		},
	); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp, err := modules.Duplicates.Handler.CheckDuplicatesHandler(
		context.Background(),
		ddhttp.CheckDuplicatesRequest{Ward: "W3", Category: "garbage", Description: "overflowing bin"},
	)
	if err != nil {
		t.Fatalf("fail-open check must not error: %v", err)
	}
	if resp.Data.IsDuplicate {
		t.Fatal("fail-open degradation must report no duplicates")
	}
}

func TestDegradationFailClosedSurfacesError(t *testing.T) {
	source := newInMemoryModules(t, nil, nil)
	if _, err := source.Issues.Handler.ReportIssueHandler(
		context.Background(), "user-1", "",
		issuehttp.ReportIssueRequest{
			Title:       "Existing report",
			Category:    "garbage",
			Description: "overflowing bin on 5th cross",
			Ward:        "W3",
			Location:    issuehttp.LocationPayload{Latitude: 12.9, Longitude: 77.5},
			Confirmed:   true,
		},
	); err != nil {
		t.Fatalf("seed: %v", err)
	}

	strict := duplicatedetection.NewModule(duplicatedetection.Dependencies{
		Candidates: source.Duplicates.Service.Candidates,
		Embedder:   failingEmbedder{},
		FailOpen:   false,
	})
	_, err := strict.Handler.CheckDuplicatesHandler(
		context.Background(),
		ddhttp.CheckDuplicatesRequest{Ward: "W3", Category: "garbage", Description: "overflowing bin"},
	)
	if !errors.Is(err, dderrors.ErrEmbeddingUnavailable) {
		t.Fatalf("fail-closed err = %v, want ErrEmbeddingUnavailable", err)
	}
}
