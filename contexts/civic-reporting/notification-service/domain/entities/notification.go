package entities

import "time"

type Type string

const (
	TypeIssueReported Type = "issue_reported"
	TypeStatusChanged Type = "status_changed"
)

type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusArchived Status = "archived"
)

// Notification is a per-recipient inbox entry derived from an issue
// lifecycle event.
type Notification struct {
	NotificationID string
	RecipientID    string
	IssueID        string
	Type           Type
	Title          string
	Message        string
	Status         Status
	CreatedAt      time.Time
}
