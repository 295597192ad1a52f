package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	duplicatedetection "civicpulse/contexts/civic-reporting/duplicate-detection"
	dderrors "civicpulse/contexts/civic-reporting/duplicate-detection/domain/errors"
	ddhttp "civicpulse/contexts/civic-reporting/duplicate-detection/transport/http"
	issueservice "civicpulse/contexts/civic-reporting/issue-service"
	issueerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	issuehttp "civicpulse/contexts/civic-reporting/issue-service/transport/http"
	notificationservice "civicpulse/contexts/civic-reporting/notification-service"
	notificationerrors "civicpulse/contexts/civic-reporting/notification-service/domain/errors"
	notificationhttp "civicpulse/contexts/civic-reporting/notification-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	addr          string
	duplicates    duplicatedetection.Module
	issues        issueservice.Module
	notifications notificationservice.Module
}

func New(
	duplicates duplicatedetection.Module,
	issues issueservice.Module,
	notifications notificationservice.Module,
	metricsHandler http.Handler,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:           http.NewServeMux(),
		logger:        logger,
		addr:          addr,
		duplicates:    duplicates,
		issues:        issues,
		notifications: notifications,
	}
	s.registerRoutes(metricsHandler)
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Mux exposes the route table for in-process tests.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

func (s *Server) registerRoutes(metricsHandler http.Handler) {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if metricsHandler != nil {
		s.mux.Handle("GET /metrics", metricsHandler)
	}

	s.mux.HandleFunc("POST /api/issues/check-duplicates", s.handleCheckDuplicates)
	s.mux.HandleFunc("POST /api/issues/predict-category", s.handlePredictCategory)
	s.mux.HandleFunc("POST /api/issues", s.handleReportIssue)
	s.mux.HandleFunc("GET /api/issues/user/{user_id}", s.handleListUserIssues)
	s.mux.HandleFunc("GET /api/issues/{issue_id}", s.handleGetIssue)
	s.mux.HandleFunc("POST /api/issues/{issue_id}/transition", s.handleTransitionIssue)

	s.mux.HandleFunc("GET /api/stats/user/{user_id}", s.handleUserStats)
	s.mux.HandleFunc("GET /api/stats/ward/{ward}", s.handleWardStats)
	s.mux.HandleFunc("GET /api/insights/ward/{ward}", s.handleWardInsights)

	s.mux.HandleFunc("GET /api/notifications/user/{user_id}", s.handleListNotifications)
	s.mux.HandleFunc("POST /api/notifications/{notification_id}/read", s.handleMarkNotificationRead)
}

func (s *Server) handleCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var req ddhttp.CheckDuplicatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDuplicatesError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.duplicates.Handler.CheckDuplicatesHandler(r.Context(), req)
	if err != nil {
		writeDuplicatesDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredictCategory(w http.ResponseWriter, r *http.Request) {
	var req ddhttp.PredictCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDuplicatesError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.duplicates.Handler.PredictCategoryHandler(r.Context(), req)
	if err != nil {
		writeDuplicatesDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReportIssue(w http.ResponseWriter, r *http.Request) {
	reporterID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if reporterID == "" {
		writeIssueError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req issuehttp.ReportIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeIssueError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.issues.Handler.ReportIssueHandler(
		r.Context(),
		reporterID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeIssueDomainError(w, err)
		return
	}
	status := http.StatusOK
	if resp.Data.Created && !resp.Data.Replayed {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListUserIssues(w http.ResponseWriter, r *http.Request) {
	resp, err := s.issues.Handler.ListUserIssuesHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeIssueDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	resp, err := s.issues.Handler.GetIssueHandler(r.Context(), r.PathValue("issue_id"))
	if err != nil {
		writeIssueDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransitionIssue(w http.ResponseWriter, r *http.Request) {
	actorID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if actorID == "" {
		writeIssueError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req issuehttp.TransitionIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeIssueError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.issues.Handler.TransitionIssueHandler(
		r.Context(),
		r.PathValue("issue_id"),
		actorID,
		req,
	)
	if err != nil {
		writeIssueDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.issues.Handler.UserStatsHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeIssueDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWardStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.issues.Handler.WardStatsHandler(r.Context(), r.PathValue("ward"))
	if err != nil {
		writeIssueDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWardInsights(w http.ResponseWriter, r *http.Request) {
	resp, err := s.issues.Handler.WardInsightsHandler(r.Context(), r.PathValue("ward"))
	if err != nil {
		writeIssueDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	resp, err := s.notifications.Handler.ListNotificationsHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	resp, err := s.notifications.Handler.MarkReadHandler(r.Context(), r.PathValue("notification_id"))
	if err != nil {
		writeNotificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeDuplicatesDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dderrors.ErrInvalidRequest):
		writeDuplicatesError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, dderrors.ErrEmbeddingRateLimited):
		writeDuplicatesError(w, http.StatusTooManyRequests, "embedding_rate_limited", err.Error())
	case errors.Is(err, dderrors.ErrEmbeddingUnavailable):
		writeDuplicatesError(w, http.StatusServiceUnavailable, "embedding_unavailable", err.Error())
	default:
		writeDuplicatesError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeIssueDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, issueerrors.ErrInvalidRequest):
		writeIssueError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, issueerrors.ErrNotFound):
		writeIssueError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, issueerrors.ErrForbidden):
		writeIssueError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, issueerrors.ErrInvalidTransition):
		writeIssueError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, issueerrors.ErrIdempotencyConflict):
		writeIssueError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, issueerrors.ErrStoreConflict):
		writeIssueError(w, http.StatusConflict, "store_conflict", err.Error())
	case errors.Is(err, dderrors.ErrEmbeddingRateLimited):
		writeIssueError(w, http.StatusTooManyRequests, "embedding_rate_limited", err.Error())
	case errors.Is(err, dderrors.ErrEmbeddingUnavailable):
		writeIssueError(w, http.StatusServiceUnavailable, "embedding_unavailable", err.Error())
	default:
		writeIssueError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeNotificationDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notificationerrors.ErrInvalidRequest):
		writeNotificationError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, notificationerrors.ErrNotFound):
		writeNotificationError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		writeNotificationError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDuplicatesError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ddhttp.ErrorResponse{Status: "error", Code: code, Message: message})
}

func writeIssueError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, issuehttp.ErrorResponse{Status: "error", Code: code, Message: message})
}

func writeNotificationError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, notificationhttp.ErrorResponse{Status: "error", Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
