package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"content-review-orchestrator/internal/domain"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/jobs", h.CreateJob)
		r.Route("/jobs/{jobId}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.GetJob(w, r, chi.URLParam(r, "jobId"))
			})
			r.Get("/tasks", func(w http.ResponseWriter, r *http.Request) {
				h.JobTasks(w, r, chi.URLParam(r, "jobId"))
			})
			r.Post("/cancel", func(w http.ResponseWriter, r *http.Request) {
				h.CancelJob(w, r, chi.URLParam(r, "jobId"))
			})
			r.Post("/recompute", func(w http.ResponseWriter, r *http.Request) {
				h.RecomputeJob(w, r, chi.URLParam(r, "jobId"))
			})
			r.Post("/auto-review", func(w http.ResponseWriter, r *http.Request) {
				h.RetriggerAutoReview(w, r, chi.URLParam(r, "jobId"))
			})
		})
		r.Route("/tasks/{taskId}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.GetTask(w, r, chi.URLParam(r, "taskId"))
			})
			r.Post("/claim", func(w http.ResponseWriter, r *http.Request) {
				h.ClaimTask(w, r, chi.URLParam(r, "taskId"))
			})
			r.Post("/reassign", func(w http.ResponseWriter, r *http.Request) {
				h.ReassignTask(w, r, chi.URLParam(r, "taskId"))
			})
			r.Post("/return", func(w http.ResponseWriter, r *http.Request) {
				h.ReturnTask(w, r, chi.URLParam(r, "taskId"))
			})
			r.Post("/feedback", func(w http.ResponseWriter, r *http.Request) {
				h.SubmitFeedback(w, r, chi.URLParam(r, "taskId"))
			})
			r.Get("/actions/{action}", func(w http.ResponseWriter, r *http.Request) {
				h.CheckAction(w, r, chi.URLParam(r, "taskId"), domain.TaskAction(chi.URLParam(r, "action")))
			})
		})
		r.Get("/reviewers/{reviewerId}/tasks", func(w http.ResponseWriter, r *http.Request) {
			h.ReviewerTasks(w, r, chi.URLParam(r, "reviewerId"))
		})
		r.Get("/content/{contentType}/{contentId}/jobs", func(w http.ResponseWriter, r *http.Request) {
			h.ContentJobs(w, r, chi.URLParam(r, "contentType"), chi.URLParam(r, "contentId"))
		})
	})

	return r
}
