package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-chi/chi/v5"

	"github.com/examdesk/examdesk/internal/export"
	appI18n "github.com/examdesk/examdesk/internal/i18n"
	"github.com/examdesk/examdesk/internal/model"
)

func (h *Handler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.AdminStats()
	if err != nil {
		slog.Error("failed to compute admin stats", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents()
	if err != nil {
		slog.Error("failed to list students", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	type studentView struct {
		ID        int64     `json:"id"`
		Username  string    `json:"username"`
		FullName  string    `json:"full_name"`
		CreatedAt time.Time `json:"created_at"`
	}
	views := make([]studentView, len(students))
	for i, u := range students {
		views[i] = studentView{ID: u.ID, Username: u.Username, FullName: u.FullName, CreatedAt: u.CreatedAt}
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": views})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Password) < minPasswordLen {
		errorJSON(w, http.StatusBadRequest, appI18n.T(r.Context(), "PasswordTooShort"))
		return
	}

	user, err := h.store.GetUserByID(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		errorJSON(w, http.StatusNotFound, "user not found")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateUserPassword(id, string(hash)); err != nil {
		slog.Error("failed to reset password", "user_id", id, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("password reset", "user_id", id, "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "PasswordResetDone")})
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListQuestions()
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var qi model.QuestionImport
	if err := json.NewDecoder(r.Body).Decode(&qi); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if qi.Prompt == "" || qi.OptionA == "" || qi.OptionB == "" || qi.OptionC == "" || qi.OptionD == "" {
		errorJSON(w, http.StatusBadRequest, appI18n.T(r.Context(), "AllFieldsRequired"))
		return
	}
	if !qi.CorrectOption.Valid() {
		errorJSON(w, http.StatusBadRequest, "correct_option must be A, B, C or D")
		return
	}
	if qi.Points <= 0 {
		qi.Points = h.config.DefaultPoints(qi.Difficulty)
	}

	id, err := h.store.InsertQuestion(model.Question{
		Prompt:  qi.Prompt,
		OptionA: qi.OptionA, OptionB: qi.OptionB, OptionC: qi.OptionC, OptionD: qi.OptionD,
		CorrectOption: qi.CorrectOption,
		Category:      qi.Category,
		Difficulty:    qi.Difficulty,
		Points:        qi.Points,
		Explanation:   qi.Explanation,
	})
	if err != nil {
		slog.Error("failed to insert question", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// handleUploadQuestions imports a JSON question file. A file whose content
// hash matches a previous import is skipped.
func (h *Handler) handleUploadQuestions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		errorJSON(w, http.StatusBadRequest, "file too large")
		return
	}

	file, header, err := r.FormFile("questions_file")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])

	storedHash, err := h.store.GetImportedFileHash(header.Filename)
	if err != nil {
		slog.Error("failed to check import status", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if storedHash == hash {
		writeJSON(w, http.StatusOK, map[string]any{"imported": 0, "skipped": true})
		return
	}

	var questions []model.QuestionImport
	if err := json.Unmarshal(data, &questions); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	for _, qi := range questions {
		if qi.Points <= 0 {
			qi.Points = h.config.DefaultPoints(qi.Difficulty)
		}
		_, err := h.store.InsertQuestion(model.Question{
			Prompt:  qi.Prompt,
			OptionA: qi.OptionA, OptionB: qi.OptionB, OptionC: qi.OptionC, OptionD: qi.OptionD,
			CorrectOption: qi.CorrectOption,
			Category:      qi.Category,
			Difficulty:    qi.Difficulty,
			Points:        qi.Points,
			Explanation:   qi.Explanation,
		})
		if err != nil {
			slog.Error("failed to insert question", "error", err)
			errorJSON(w, http.StatusInternalServerError, "failed to insert question")
			return
		}
	}

	if err := h.store.SetImportedFileHash(header.Filename, hash); err != nil {
		slog.Error("failed to record import", "error", err)
	}

	slog.Info("uploaded questions", "filename", header.Filename, "count", len(questions))
	writeJSON(w, http.StatusOK, map[string]any{"imported": len(questions), "skipped": false})
}

func (h *Handler) handleQuestionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.QuestionStats()
	if err != nil {
		slog.Error("failed to compute question stats", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleExport writes a CSV export to the configured export directory and
// returns its path. Kind is one of results, questions, analytics.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	now := time.Now()

	if err := os.MkdirAll(h.config.ExportDir, 0o755); err != nil {
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	var path string
	var writeErr error
	switch kind {
	case "results":
		rows, err := h.store.AllResultRows()
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, "internal error")
			return
		}
		path = export.Filename(h.config.ExportDir, "student_results", now)
		writeErr = export.ToFile(path, func(out io.Writer) error {
			return export.StudentResults(out, rows)
		})
	case "questions":
		questions, err := h.store.ListQuestions()
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, "internal error")
			return
		}
		path = export.Filename(h.config.ExportDir, "question_bank", now)
		writeErr = export.ToFile(path, func(out io.Writer) error {
			return export.QuestionBank(out, questions)
		})
	case "analytics":
		stats, err := h.store.AdminStats()
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, "internal error")
			return
		}
		path = export.Filename(h.config.ExportDir, "analytics_report", now)
		writeErr = export.ToFile(path, func(out io.Writer) error {
			return export.AnalyticsReport(out, stats, now)
		})
	default:
		errorJSON(w, http.StatusBadRequest, fmt.Sprintf("unknown export kind %q", kind))
		return
	}

	if writeErr != nil {
		slog.Error("export failed", "kind", kind, "error", writeErr)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	slog.Info("export written", "kind", kind, "path", path)
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}
