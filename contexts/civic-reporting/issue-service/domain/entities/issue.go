package entities

import "time"

// Status is the issue lifecycle state. Transitions are monotonic: an issue
// never re-enters Pending, and Resolved/Cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerified  Status = "verified"
	StatusResolved  Status = "resolved"
	StatusCancelled Status = "cancelled"
)

// Action is an admin-invoked lifecycle transition.
type Action string

const (
	ActionVerify  Action = "verify"
	ActionReject  Action = "reject"
	ActionResolve Action = "resolve"
)

// Transition describes one legal state-machine edge.
type Transition struct {
	From      Status
	To        Status
	EventType string
}

// transitions is the complete legal edge set. Anything else is rejected,
// including transitions whose target equals the current state.
var transitions = map[Action]Transition{
	ActionVerify:  {From: StatusPending, To: StatusVerified, EventType: "issue.verified"},
	ActionReject:  {From: StatusPending, To: StatusCancelled, EventType: "issue.cancelled"},
	ActionResolve: {From: StatusVerified, To: StatusResolved, EventType: "issue.resolved"},
}

// TransitionFor returns the edge for an action, or false for an unknown
// action.
func TransitionFor(action Action) (Transition, bool) {
	transition, ok := transitions[action]
	return transition, ok
}

type Location struct {
	Latitude  float64
	Longitude float64
}

type Issue struct {
	IssueID       string
	Title         string
	Category      string
	Description   string
	Ward          string
	Location      Location
	Images        []string
	ReporterID    string
	Status        Status
	AdminFeedback string
	CommentCount  int
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
