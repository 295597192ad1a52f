package bootstrap

import (
	"context"

	ddapplication "civicpulse/contexts/civic-reporting/duplicate-detection/application"
	ddports "civicpulse/contexts/civic-reporting/duplicate-detection/ports"
	issueports "civicpulse/contexts/civic-reporting/issue-service/ports"
	notificationapp "civicpulse/contexts/civic-reporting/notification-service/application"
	"civicpulse/contexts/civic-reporting/notification-service/domain/entities"
	"civicpulse/internal/platform/metrics"
)

// Cross-context adapters live here so the modules stay decoupled; each
// context only sees its own ports.

// issueCandidateSource feeds duplicate detection from the issue store.
type issueCandidateSource struct {
	store issueports.IssueStore
}

func (s issueCandidateSource) FindByWardAndCategory(ctx context.Context, ward string, category string) ([]ddports.Candidate, error) {
	issues, err := s.store.FindByWardAndCategory(ctx, ward, category)
	if err != nil {
		return nil, err
	}
	candidates := make([]ddports.Candidate, 0, len(issues))
	for _, issue := range issues {
		candidates = append(candidates, ddports.Candidate{
			IssueID:     issue.IssueID,
			Title:       issue.Title,
			Description: issue.Description,
			Ward:        issue.Ward,
			Images:      issue.Images,
			CreatedAt:   issue.CreatedAt,
		})
	}
	return candidates, nil
}

// duplicateGate exposes the detection service as the issue-service
// advisory port and feeds the check counters.
type duplicateGate struct {
	service ddapplication.Service
	metrics *metrics.Metrics
}

func (g duplicateGate) CheckDuplicates(ctx context.Context, ward string, category string, description string) (issueports.DuplicateAdvisory, error) {
	result, err := g.service.CheckDuplicates(ctx, ddports.DetectInput{
		Ward:        ward,
		Category:    category,
		Description: description,
	})
	if g.metrics != nil {
		g.metrics.DuplicateChecks.Inc()
	}
	if err != nil {
		return issueports.DuplicateAdvisory{}, err
	}
	if g.metrics != nil && result.IsDuplicate {
		g.metrics.DuplicateMatches.Inc()
	}

	advisory := issueports.DuplicateAdvisory{IsDuplicate: result.IsDuplicate}
	for _, match := range result.Matches {
		advisory.Matches = append(advisory.Matches, issueports.DuplicateMatch{
			IssueID:       match.IssueID,
			Title:         match.Title,
			Description:   match.Description,
			Ward:          match.Ward,
			Images:        match.Images,
			SimilarityPct: match.SimilarityPct,
		})
	}
	return advisory, nil
}

// notificationDispatcher records lifecycle events as inbox notifications.
type notificationDispatcher struct {
	service notificationapp.Service
}

func (d notificationDispatcher) Dispatch(ctx context.Context, event issueports.LifecycleEvent) error {
	notificationType := entities.TypeStatusChanged
	if event.Type == "issue.reported" {
		notificationType = entities.TypeIssueReported
	}
	_, err := d.service.Record(ctx, notificationapp.RecordInput{
		RecipientID: event.RecipientID,
		IssueID:     event.IssueID,
		Type:        notificationType,
		Title:       event.Title,
		Message:     event.Message,
		OccurredAt:  event.OccurredAt,
	})
	return err
}

// lifecycleMetricsDispatcher counts committed transitions before handing
// the event to the inbox dispatcher.
type lifecycleMetricsDispatcher struct {
	inner   issueports.NotificationDispatcher
	metrics *metrics.Metrics
}

func (d lifecycleMetricsDispatcher) Dispatch(ctx context.Context, event issueports.LifecycleEvent) error {
	if d.metrics != nil {
		switch event.Type {
		case "issue.verified":
			d.metrics.LifecycleTransitions.WithLabelValues("verify").Inc()
		case "issue.cancelled":
			d.metrics.LifecycleTransitions.WithLabelValues("reject").Inc()
		case "issue.resolved":
			d.metrics.LifecycleTransitions.WithLabelValues("resolve").Inc()
		}
	}
	if d.inner == nil {
		return nil
	}
	return d.inner.Dispatch(ctx, event)
}
