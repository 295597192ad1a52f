package httptransport

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LocationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type IssuePayload struct {
	IssueID       string          `json:"issue_id"`
	Title         string          `json:"title"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Ward          string          `json:"ward"`
	Location      LocationPayload `json:"location"`
	Images        []string        `json:"images"`
	ReporterID    string          `json:"reporter_id"`
	Status        string          `json:"status"`
	AdminFeedback string          `json:"admin_feedback,omitempty"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

type DuplicateMatchPayload struct {
	IssueID       string   `json:"issue_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Ward          string   `json:"ward"`
	Images        []string `json:"images"`
	SimilarityPct float64  `json:"similarity_pct"`
}

type ReportIssueRequest struct {
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Ward        string          `json:"ward"`
	Location    LocationPayload `json:"location"`
	// Image carries a single reference for older clients; Images is the
	// normalized form. Both are accepted.
	Image     string   `json:"image,omitempty"`
	Images    []string `json:"images,omitempty"`
	Confirmed bool     `json:"confirmed,omitempty"`
}

type ReportIssueResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Created    bool                    `json:"created"`
		Issue      *IssuePayload           `json:"issue,omitempty"`
		Duplicates []DuplicateMatchPayload `json:"duplicates,omitempty"`
		Replayed   bool                    `json:"replayed,omitempty"`
	} `json:"data"`
}

type TransitionIssueRequest struct {
	Action   string `json:"action"`
	Feedback string `json:"feedback,omitempty"`
}

type TransitionIssueResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    IssuePayload `json:"data"`
}

type ListIssuesResponse struct {
	Status string `json:"status"`
	Data   struct {
		Issues []IssuePayload `json:"issues"`
	} `json:"data"`
}

type GetIssueResponse struct {
	Status string       `json:"status"`
	Data   IssuePayload `json:"data"`
}

type StatsResponse struct {
	Status string `json:"status"`
	Data   struct {
		Total     int64 `json:"total"`
		Pending   int64 `json:"pending"`
		Verified  int64 `json:"verified"`
		Resolved  int64 `json:"resolved"`
		Cancelled int64 `json:"cancelled"`
	} `json:"data"`
}

type WardInsightsResponse struct {
	Status string `json:"status"`
	Data   struct {
		Ward           string  `json:"ward"`
		Total          int64   `json:"total"`
		Pending        int64   `json:"pending"`
		Verified       int64   `json:"verified"`
		Resolved       int64   `json:"resolved"`
		Cancelled      int64   `json:"cancelled"`
		ResolutionRate float64 `json:"resolution_rate"`
	} `json:"data"`
}
