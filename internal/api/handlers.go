package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
	"content-review-orchestrator/internal/storage"
)

const maxRequestBytes = 1 << 20

type Handler struct {
	coordinator *review.Coordinator
	creator     *review.JobCreator
	store       storage.Store
	logger      *slog.Logger
}

type createJobRequest struct {
	ContentID   string            `json:"content_id"`
	ContentType string            `json:"content_type"`
	ReviewMark  domain.ReviewMark `json:"review_mark,omitempty"`
}

type jobResponse struct {
	domain.ReviewJob
	Audit []storage.AuditEntry `json:"audit,omitempty"`
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

type claimRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

type reassignRequest struct {
	ReviewerID    string `json:"reviewer_id"`
	NewReviewerID string `json:"new_reviewer_id"`
	Reason        string `json:"reason,omitempty"`
}

type returnRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Reason     string `json:"reason,omitempty"`
}

type feedbackRequest struct {
	ReviewerID string `json:"reviewer_id"`
	domain.ReviewFeedback
}

type actionResponse struct {
	TaskID     string            `json:"task_id"`
	ReviewerID string            `json:"reviewer_id"`
	Action     domain.TaskAction `json:"action"`
	Allowed    bool              `json:"allowed"`
	Reason     string            `json:"reason,omitempty"`
}

func NewHandler(coordinator *review.Coordinator, creator *review.JobCreator, store storage.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{coordinator: coordinator, creator: creator, store: store, logger: logger}
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ref := domain.ContentRef{ID: req.ContentID, Type: req.ContentType}
	if err := validateContentRef(ref); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	// Inline automated review runs inside this call.
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	created, err := h.creator.CreateJob(ctx, ref, req.ReviewMark)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	job, err := h.coordinator.GetJob(ctx, jobID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	audit, err := h.store.AuditTrail(ctx, jobID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{ReviewJob: job, Audit: audit})
}

func (h *Handler) JobTasks(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tasks, err := h.coordinator.TasksForJob(ctx, jobID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(tasks)})
}

func (h *Handler) ContentJobs(w http.ResponseWriter, r *http.Request, contentType, contentID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	jobs, err := h.coordinator.JobsForContent(ctx, domain.ContentRef{ID: contentID, Type: contentType})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(jobs)})
}

func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	var req reasonRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	job, err := h.coordinator.CancelJob(r.Context(), jobID, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// RecomputeJob re-derives the job status from its current tasks, e.g. after
// every reviewer returned their task.
func (h *Handler) RecomputeJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.coordinator.RecomputeJobStatus(r.Context(), jobID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) RetriggerAutoReview(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := h.creator.RetriggerAutoReview(ctx, jobID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "status": "auto_review_dispatched"})
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := h.coordinator.GetTask(r.Context(), taskID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) ClaimTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req claimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.coordinator.ClaimTask(r.Context(), taskID, req.ReviewerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) ReassignTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req reassignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.coordinator.ReassignTask(r.Context(), taskID, req.ReviewerID, req.NewReviewerID, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) ReturnTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req returnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.coordinator.ReturnTask(r.Context(), taskID, req.ReviewerID, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request, taskID string) {
	var req feedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.coordinator.SubmitFeedback(r.Context(), taskID, req.ReviewerID, req.ReviewFeedback)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) CheckAction(w http.ResponseWriter, r *http.Request, taskID string, action domain.TaskAction) {
	reviewerID := r.URL.Query().Get("reviewer_id")
	resp := actionResponse{TaskID: taskID, ReviewerID: reviewerID, Action: action, Allowed: true}

	err := h.coordinator.CheckAction(r.Context(), taskID, reviewerID, action)
	var pe *domain.PreconditionError
	switch {
	case err == nil:
	case errors.As(err, &pe):
		resp.Allowed = false
		resp.Reason = pe.Reason
	default:
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ReviewerTasks(w http.ResponseWriter, r *http.Request, reviewerID string) {
	tasks, err := h.coordinator.TasksForReviewer(r.Context(), reviewerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(tasks)})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeError maps the engine's error taxonomy onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidFeedback):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrJobTerminal),
		errors.Is(err, domain.ErrJobAlreadyPending),
		errors.Is(err, domain.ErrPrecondition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return false
	}
	return true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
