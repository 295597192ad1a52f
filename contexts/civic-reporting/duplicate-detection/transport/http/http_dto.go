package httptransport

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CheckDuplicatesRequest struct {
	Ward        string `json:"ward"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type DuplicateMatch struct {
	IssueID       string   `json:"issue_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Ward          string   `json:"ward"`
	Images        []string `json:"images"`
	SimilarityPct float64  `json:"similarity_pct"`
	Similarity    string   `json:"similarity"`
}

type CheckDuplicatesResponse struct {
	Status string `json:"status"`
	Data   struct {
		IsDuplicate bool             `json:"is_duplicate"`
		Matches     []DuplicateMatch `json:"matches"`
	} `json:"data"`
}

type PredictCategoryRequest struct {
	Title string `json:"title"`
}

type PredictCategoryResponse struct {
	Status string `json:"status"`
	Data   struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	} `json:"data"`
}
