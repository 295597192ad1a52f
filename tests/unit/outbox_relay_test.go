package unit

import (
	"context"
	"testing"
	"time"

	issuehttp "civicpulse/contexts/civic-reporting/issue-service/transport/http"
	"civicpulse/internal/shared/events"
)

func TestOutboxRelayPublishesLifecycleEnvelopes(t *testing.T) {
	modules := newInMemoryModules(t, map[string]string{"W4": "admin-4"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.Envelope, 8)
	if err := modules.Bus.Subscribe(ctx, "issue.lifecycle", "test-cg",
		func(_ context.Context, envelope events.Envelope) error {
			received <- envelope
			return nil
		},
	); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	report, err := modules.Issues.Handler.ReportIssueHandler(
		context.Background(), "user-7", "",
		issuehttp.ReportIssueRequest{
			Title:       "Pothole near gate",
			Category:    "pothole",
			Description: "Pothole near the north gate",
			Ward:        "W4",
			Location:    issuehttp.LocationPayload{Latitude: 12.9, Longitude: 77.5},
			Confirmed:   true,
		},
	)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := modules.Issues.Handler.TransitionIssueHandler(
		context.Background(), report.Data.Issue.IssueID, "admin-4",
		issuehttp.TransitionIssueRequest{Action: "verify"},
	); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := modules.Issues.OutboxRelay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay: %v", err)
	}

	want := map[string]bool{"issue.reported": false, "issue.verified": false}
	deadline := time.After(2 * time.Second)
	for i := 0; i < len(want); i++ {
		select {
		case envelope := <-received:
			if envelope.EntityID != report.Data.Issue.IssueID {
				t.Fatalf("envelope entity = %s, want %s", envelope.EntityID, report.Data.Issue.IssueID)
			}
			if _, ok := want[envelope.EventType]; !ok {
				t.Fatalf("unexpected event type %s", envelope.EventType)
			}
			want[envelope.EventType] = true
		case <-deadline:
			t.Fatalf("timed out waiting for envelopes, got %v", want)
		}
	}
	for eventType, seen := range want {
		if !seen {
			t.Fatalf("missing envelope for %s", eventType)
		}
	}

	// Second pass is a no-op: all rows are already sent.
	if err := modules.Issues.OutboxRelay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay pass: %v", err)
	}
	select {
	case envelope := <-received:
		t.Fatalf("unexpected redelivery of %s", envelope.EventType)
	case <-time.After(100 * time.Millisecond):
	}
}
