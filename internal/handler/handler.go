// Package handler exposes the application over a JSON HTTP API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examdesk/examdesk/internal/analytics"
	"github.com/examdesk/examdesk/internal/config"
	"github.com/examdesk/examdesk/internal/exam"
	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	manager *exam.Manager
	config  config.Config
}

// New creates a new Handler.
func New(s *store.Store, m *exam.Manager, cfg config.Config) *Handler {
	return &Handler{store: s, manager: m, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)

		r.Post("/exam/start", h.handleStartExam)
		r.Get("/exam", h.handleExamState)
		r.Post("/exam/answer", h.handleAnswer)
		r.Post("/exam/navigate", h.handleNavigate)
		r.Post("/exam/submit", h.handleSubmit)

		r.Get("/results", h.handleResults)
		r.Get("/analytics", h.handleAnalytics)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/admin/stats", h.handleAdminStats)
			r.Get("/admin/students", h.handleListStudents)
			r.Post("/admin/students/{userID}/password", h.handleResetPassword)
			r.Get("/admin/questions", h.handleListQuestions)
			r.Post("/admin/questions", h.handleAddQuestion)
			r.Post("/admin/questions/upload", h.handleUploadQuestions)
			r.Get("/admin/questions/stats", h.handleQuestionStats)
			r.Post("/admin/export/{kind}", h.handleExport)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"username":  user.Username,
		"full_name": user.FullName,
		"is_admin":  user.IsAdmin,
	})
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	results, err := h.store.ResultsForUser(user.ID, 0)
	if err != nil {
		slog.Error("failed to load results", "user_id", user.ID, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	results, err := h.store.ResultsForUser(user.ID, 0)
	if err != nil {
		slog.Error("failed to load results", "user_id", user.ID, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(results))
}
