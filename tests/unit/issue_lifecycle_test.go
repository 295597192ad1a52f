package unit

import (
	"context"
	"errors"
	"testing"

	ddports "civicpulse/contexts/civic-reporting/duplicate-detection/ports"
	issueerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	issuehttp "civicpulse/contexts/civic-reporting/issue-service/transport/http"
	"civicpulse/internal/app/bootstrap"
)

func newInMemoryModules(t *testing.T, wardAdmins map[string]string, embedder ddports.EmbeddingProvider) bootstrap.Modules {
	t.Helper()
	modules, err := bootstrap.BuildInMemoryModules(wardAdmins, embedder, nil)
	if err != nil {
		t.Fatalf("wire in-memory modules: %v", err)
	}
	return modules
}

func reportTestIssue(t *testing.T, modules bootstrap.Modules, title string) issuehttp.IssuePayload {
	t.Helper()
	resp, err := modules.Issues.Handler.ReportIssueHandler(
		context.Background(),
		"user-7",
		"",
		issuehttp.ReportIssueRequest{
			Title:       title,
			Category:    "pothole",
			Description: title + " needs urgent attention",
			Ward:        "W4",
			Location:    issuehttp.LocationPayload{Latitude: 12.97, Longitude: 77.59},
			Image:       "https://cdn.example/pothole.jpg",
			// Lifecycle tests are not about the advisory gate.
			Confirmed: true,
		},
	)
	if err != nil {
		t.Fatalf("report issue failed: %v", err)
	}
	if !resp.Data.Created || resp.Data.Issue == nil {
		t.Fatalf("expected created issue, got %+v", resp.Data)
	}
	return *resp.Data.Issue
}

func TestIssueLifecycleVerifyThenResolve(t *testing.T) {
	modules := newInMemoryModules(t, map[string]string{"W4": "admin-4"}, nil)
	issue := reportTestIssue(t, modules, "Deep pothole at school crossing")

	if issue.Status != "pending" {
		t.Fatalf("new issue status = %s, want pending", issue.Status)
	}
	if len(issue.Images) != 1 {
		t.Fatalf("images = %v, want the single image normalized to a list", issue.Images)
	}

	verify, err := modules.Issues.Handler.TransitionIssueHandler(
		context.Background(), issue.IssueID, "admin-4",
		issuehttp.TransitionIssueRequest{Action: "verify"},
	)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if verify.Data.Status != "verified" {
		t.Fatalf("status after verify = %s", verify.Data.Status)
	}

	resolve, err := modules.Issues.Handler.TransitionIssueHandler(
		context.Background(), issue.IssueID, "admin-4",
		issuehttp.TransitionIssueRequest{Action: "resolve"},
	)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolve.Data.Status != "resolved" {
		t.Fatalf("status after resolve = %s", resolve.Data.Status)
	}

	// The reporter's inbox sees both lifecycle events; the ward admin saw
	// the original report.
	reporterInbox, err := modules.Notifications.Handler.ListNotificationsHandler(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("list reporter notifications: %v", err)
	}
	if reporterInbox.Data.Total != 2 || reporterInbox.Data.Unread != 2 {
		t.Fatalf("reporter inbox total=%d unread=%d, want 2/2", reporterInbox.Data.Total, reporterInbox.Data.Unread)
	}

	adminInbox, err := modules.Notifications.Handler.ListNotificationsHandler(context.Background(), "admin-4")
	if err != nil {
		t.Fatalf("list admin notifications: %v", err)
	}
	if adminInbox.Data.Total != 1 || adminInbox.Data.Notifications[0].Type != "issue_reported" {
		t.Fatalf("admin inbox = %+v, want one issue_reported entry", adminInbox.Data)
	}
}

func TestIssueLifecycleRejectIsTerminal(t *testing.T) {
	modules := newInMemoryModules(t, map[string]string{"W4": "admin-4"}, nil)
	issue := reportTestIssue(t, modules, "Leaking water pipe")

	reject, err := modules.Issues.Handler.TransitionIssueHandler(
		context.Background(), issue.IssueID, "admin-4",
		issuehttp.TransitionIssueRequest{Action: "reject", Feedback: "Not a civic asset"},
	)
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if reject.Data.Status != "cancelled" {
		t.Fatalf("status after reject = %s", reject.Data.Status)
	}
	if reject.Data.AdminFeedback != "Not a civic asset" {
		t.Fatalf("feedback = %q", reject.Data.AdminFeedback)
	}

	for _, action := range []string{"verify", "resolve", "reject"} {
		_, err := modules.Issues.Handler.TransitionIssueHandler(
			context.Background(), issue.IssueID, "admin-4",
			issuehttp.TransitionIssueRequest{Action: action},
		)
		if !errors.Is(err, issueerrors.ErrInvalidTransition) {
			t.Fatalf("%s on cancelled issue: err = %v, want ErrInvalidTransition", action, err)
		}
	}
}

func TestIssueLifecycleStrictReVerifyRejected(t *testing.T) {
	modules := newInMemoryModules(t, map[string]string{"W4": "admin-4"}, nil)
	issue := reportTestIssue(t, modules, "Streetlight out on 3rd main")

	if _, err := modules.Issues.Handler.TransitionIssueHandler(
		context.Background(), issue.IssueID, "admin-4",
		issuehttp.TransitionIssueRequest{Action: "verify"},
	); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	_, err := modules.Issues.Handler.TransitionIssueHandler(
		context.Background(), issue.IssueID, "admin-4",
		issuehttp.TransitionIssueRequest{Action: "verify"},
	)
	if !errors.Is(err, issueerrors.ErrInvalidTransition) {
		t.Fatalf("re-verify err = %v, want ErrInvalidTransition", err)
	}
}

func TestIssueLifecycleForeignWardAdminForbidden(t *testing.T) {
	modules := newInMemoryModules(t, map[string]string{"W4": "admin-4", "W9": "admin-9"}, nil)
	issue := reportTestIssue(t, modules, "Fallen tree blocking lane")

	_, err := modules.Issues.Handler.TransitionIssueHandler(
		context.Background(), issue.IssueID, "admin-9",
		issuehttp.TransitionIssueRequest{Action: "verify"},
	)
	if !errors.Is(err, issueerrors.ErrForbidden) {
		t.Fatalf("foreign admin err = %v, want ErrForbidden", err)
	}
}

func TestIssueReportWithoutWardAdminStillSucceeds(t *testing.T) {
	modules := newInMemoryModules(t, nil, nil)
	issue := reportTestIssue(t, modules, "Open manhole near bus stop")

	stats, err := modules.Issues.Handler.UserStatsHandler(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("user stats: %v", err)
	}
	if stats.Data.Total != 1 || stats.Data.Pending != 1 {
		t.Fatalf("stats = %+v, want one pending issue", stats.Data)
	}
	if issue.Status != "pending" {
		t.Fatalf("status = %s", issue.Status)
	}
}

func TestWardStatsAndInsightsAcrossLifecycle(t *testing.T) {
	modules := newInMemoryModules(t, map[string]string{"W4": "admin-4"}, nil)

	first := reportTestIssue(t, modules, "Pothole one")
	second := reportTestIssue(t, modules, "Pothole two")
	reportTestIssue(t, modules, "Pothole three")

	for _, step := range []struct{ issueID, action string }{
		{first.IssueID, "verify"},
		{first.IssueID, "resolve"},
		{second.IssueID, "verify"},
	} {
		if _, err := modules.Issues.Handler.TransitionIssueHandler(
			context.Background(), step.issueID, "admin-4",
			issuehttp.TransitionIssueRequest{Action: step.action},
		); err != nil {
			t.Fatalf("%s %s: %v", step.action, step.issueID, err)
		}
	}

	stats, err := modules.Issues.Handler.WardStatsHandler(context.Background(), "W4")
	if err != nil {
		t.Fatalf("ward stats: %v", err)
	}
	if stats.Data.Total != 3 || stats.Data.Resolved != 1 || stats.Data.Verified != 1 || stats.Data.Pending != 1 {
		t.Fatalf("ward stats = %+v", stats.Data)
	}

	insights, err := modules.Issues.Handler.WardInsightsHandler(context.Background(), "W4")
	if err != nil {
		t.Fatalf("ward insights: %v", err)
	}
	// 1 resolved over 2 still-actionable issues.
	if insights.Data.ResolutionRate != 50 {
		t.Fatalf("resolution rate = %v, want 50", insights.Data.ResolutionRate)
	}
}
