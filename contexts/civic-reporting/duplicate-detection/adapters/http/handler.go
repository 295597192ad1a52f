package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"civicpulse/contexts/civic-reporting/duplicate-detection/application"
	"civicpulse/contexts/civic-reporting/duplicate-detection/ports"
	httptransport "civicpulse/contexts/civic-reporting/duplicate-detection/transport/http"
)

type Handler struct {
	Service   application.Service
	Suggester application.CategorySuggester
	Logger    *slog.Logger
}

func (h Handler) CheckDuplicatesHandler(
	ctx context.Context,
	req httptransport.CheckDuplicatesRequest,
) (httptransport.CheckDuplicatesResponse, error) {
	result, err := h.Service.CheckDuplicates(ctx, ports.DetectInput{
		Ward:        strings.TrimSpace(req.Ward),
		Category:    strings.TrimSpace(req.Category),
		Description: req.Description,
	})
	if err != nil {
		return httptransport.CheckDuplicatesResponse{}, err
	}

	resp := httptransport.CheckDuplicatesResponse{Status: "success"}
	resp.Data.IsDuplicate = result.IsDuplicate
	resp.Data.Matches = make([]httptransport.DuplicateMatch, 0, len(result.Matches))
	for _, match := range result.Matches {
		resp.Data.Matches = append(resp.Data.Matches, httptransport.DuplicateMatch{
			IssueID:       match.IssueID,
			Title:         match.Title,
			Description:   match.Description,
			Ward:          match.Ward,
			Images:        match.Images,
			SimilarityPct: match.SimilarityPct,
			Similarity:    fmt.Sprintf("%.2f%%", match.SimilarityPct),
		})
	}
	return resp, nil
}

func (h Handler) PredictCategoryHandler(
	ctx context.Context,
	req httptransport.PredictCategoryRequest,
) (httptransport.PredictCategoryResponse, error) {
	suggestion, err := h.Suggester.Suggest(ctx, req.Title)
	if err != nil {
		return httptransport.PredictCategoryResponse{}, err
	}

	resp := httptransport.PredictCategoryResponse{Status: "success"}
	resp.Data.Category = suggestion.Category
	resp.Data.Confidence = suggestion.Confidence
	return resp, nil
}
