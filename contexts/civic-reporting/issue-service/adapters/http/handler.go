package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"civicpulse/contexts/civic-reporting/issue-service/application/commands"
	"civicpulse/contexts/civic-reporting/issue-service/application/queries"
	"civicpulse/contexts/civic-reporting/issue-service/domain/entities"
	httptransport "civicpulse/contexts/civic-reporting/issue-service/transport/http"
)

type Handler struct {
	ReportIssue     commands.ReportIssueUseCase
	TransitionIssue commands.TransitionIssueUseCase
	GetIssue        queries.GetIssueUseCase
	ListUserIssues  queries.ListUserIssuesUseCase
	UserStats       queries.UserStatsUseCase
	WardStats       queries.WardStatsUseCase
	WardInsights    queries.WardInsightsUseCase
	Logger          *slog.Logger
}

func (h Handler) ReportIssueHandler(
	ctx context.Context,
	reporterID string,
	idempotencyKey string,
	req httptransport.ReportIssueRequest,
) (httptransport.ReportIssueResponse, error) {
	images := append([]string(nil), req.Images...)
	if len(images) == 0 && strings.TrimSpace(req.Image) != "" {
		images = []string{req.Image}
	}

	result, err := h.ReportIssue.Execute(ctx, commands.ReportIssueCommand{
		IdempotencyKey: idempotencyKey,
		Title:          req.Title,
		Category:       req.Category,
		Description:    req.Description,
		Ward:           req.Ward,
		Location: entities.Location{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
		},
		Images:     images,
		ReporterID: reporterID,
		Confirmed:  req.Confirmed,
	})
	if err != nil {
		return httptransport.ReportIssueResponse{}, err
	}

	resp := httptransport.ReportIssueResponse{Status: "success"}
	resp.Data.Created = result.Created
	resp.Data.Replayed = result.Replayed
	if result.Created {
		resp.Message = "Issue reported successfully"
		payload := toIssuePayload(result.Issue)
		resp.Data.Issue = &payload
		return resp, nil
	}

	resp.Message = "Similar issues found."
	resp.Data.Duplicates = make([]httptransport.DuplicateMatchPayload, 0, len(result.Duplicates))
	for _, match := range result.Duplicates {
		resp.Data.Duplicates = append(resp.Data.Duplicates, httptransport.DuplicateMatchPayload{
			IssueID:       match.IssueID,
			Title:         match.Title,
			Description:   match.Description,
			Ward:          match.Ward,
			Images:        match.Images,
			SimilarityPct: match.SimilarityPct,
		})
	}
	return resp, nil
}

func (h Handler) TransitionIssueHandler(
	ctx context.Context,
	issueID string,
	actorID string,
	req httptransport.TransitionIssueRequest,
) (httptransport.TransitionIssueResponse, error) {
	result, err := h.TransitionIssue.Execute(ctx, commands.TransitionIssueCommand{
		IssueID:  issueID,
		Action:   entities.Action(strings.ToLower(strings.TrimSpace(req.Action))),
		ActorID:  actorID,
		Feedback: req.Feedback,
	})
	if err != nil {
		return httptransport.TransitionIssueResponse{}, err
	}
	return httptransport.TransitionIssueResponse{
		Status:  "success",
		Message: result.Message,
		Data:    toIssuePayload(result.Issue),
	}, nil
}

func (h Handler) GetIssueHandler(ctx context.Context, issueID string) (httptransport.GetIssueResponse, error) {
	issue, err := h.GetIssue.Execute(ctx, issueID)
	if err != nil {
		return httptransport.GetIssueResponse{}, err
	}
	return httptransport.GetIssueResponse{Status: "success", Data: toIssuePayload(issue)}, nil
}

func (h Handler) ListUserIssuesHandler(ctx context.Context, reporterID string) (httptransport.ListIssuesResponse, error) {
	issues, err := h.ListUserIssues.Execute(ctx, reporterID)
	if err != nil {
		return httptransport.ListIssuesResponse{}, err
	}
	resp := httptransport.ListIssuesResponse{Status: "success"}
	resp.Data.Issues = make([]httptransport.IssuePayload, 0, len(issues))
	for _, issue := range issues {
		resp.Data.Issues = append(resp.Data.Issues, toIssuePayload(issue))
	}
	return resp, nil
}

func (h Handler) UserStatsHandler(ctx context.Context, reporterID string) (httptransport.StatsResponse, error) {
	counts, err := h.UserStats.Execute(ctx, reporterID)
	if err != nil {
		return httptransport.StatsResponse{}, err
	}
	resp := httptransport.StatsResponse{Status: "success"}
	resp.Data.Total = counts.Total
	resp.Data.Pending = counts.Pending
	resp.Data.Verified = counts.Verified
	resp.Data.Resolved = counts.Resolved
	resp.Data.Cancelled = counts.Cancelled
	return resp, nil
}

func (h Handler) WardStatsHandler(ctx context.Context, ward string) (httptransport.StatsResponse, error) {
	counts, err := h.WardStats.Execute(ctx, ward)
	if err != nil {
		return httptransport.StatsResponse{}, err
	}
	resp := httptransport.StatsResponse{Status: "success"}
	resp.Data.Total = counts.Total
	resp.Data.Pending = counts.Pending
	resp.Data.Verified = counts.Verified
	resp.Data.Resolved = counts.Resolved
	resp.Data.Cancelled = counts.Cancelled
	return resp, nil
}

func (h Handler) WardInsightsHandler(ctx context.Context, ward string) (httptransport.WardInsightsResponse, error) {
	insights, err := h.WardInsights.Execute(ctx, ward)
	if err != nil {
		return httptransport.WardInsightsResponse{}, err
	}
	resp := httptransport.WardInsightsResponse{Status: "success"}
	resp.Data.Ward = insights.Ward
	resp.Data.Total = insights.Counts.Total
	resp.Data.Pending = insights.Counts.Pending
	resp.Data.Verified = insights.Counts.Verified
	resp.Data.Resolved = insights.Counts.Resolved
	resp.Data.Cancelled = insights.Counts.Cancelled
	resp.Data.ResolutionRate = insights.ResolutionRate
	return resp, nil
}

func toIssuePayload(issue entities.Issue) httptransport.IssuePayload {
	return httptransport.IssuePayload{
		IssueID:     issue.IssueID,
		Title:       issue.Title,
		Category:    issue.Category,
		Description: issue.Description,
		Ward:        issue.Ward,
		Location: httptransport.LocationPayload{
			Latitude:  issue.Location.Latitude,
			Longitude: issue.Location.Longitude,
		},
		Images:        append([]string(nil), issue.Images...),
		ReporterID:    issue.ReporterID,
		Status:        string(issue.Status),
		AdminFeedback: issue.AdminFeedback,
		CreatedAt:     issue.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     issue.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
