package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/examdesk/examdesk/internal/exam"
	appI18n "github.com/examdesk/examdesk/internal/i18n"
	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/report"
)

// questionView is a question as shown during an exam: no correct option,
// no explanation.
type questionView struct {
	ID         int64  `json:"id"`
	Prompt     string `json:"question"`
	OptionA    string `json:"option_a"`
	OptionB    string `json:"option_b"`
	OptionC    string `json:"option_c"`
	OptionD    string `json:"option_d"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Points     int    `json:"points"`
}

func viewQuestions(questions []model.Question) []questionView {
	views := make([]questionView, len(questions))
	for i, q := range questions {
		views[i] = questionView{
			ID: q.ID, Prompt: q.Prompt,
			OptionA: q.OptionA, OptionB: q.OptionB, OptionC: q.OptionC, OptionD: q.OptionD,
			Category: q.Category, Difficulty: string(q.Difficulty), Points: q.Points,
		}
	}
	return views
}

func snapshotJSON(snap exam.Snapshot) map[string]any {
	answers := make(map[int]string, len(snap.Answers))
	for i, letter := range snap.Answers {
		answers[i] = string(letter)
	}
	return map[string]any{
		"position":  snap.Position,
		"remaining": snap.Remaining,
		"total":     snap.Total,
		"answered":  len(snap.Answers),
		"questions": viewQuestions(snap.Questions),
		"answers":   answers,
	}
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	if _, live := h.manager.Snapshot(user.ID); live {
		errorJSON(w, http.StatusConflict, appI18n.T(r.Context(), "ExamAlreadyActive"))
		return
	}

	_, err := h.manager.Start(user.ID)
	if errors.Is(err, exam.ErrEmptyQuestionSet) {
		errorJSON(w, http.StatusConflict, appI18n.T(r.Context(), "NoQuestionsAvailable"))
		return
	}
	if err != nil {
		slog.Error("failed to start exam", "user_id", user.ID, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	snap, _ := h.manager.Snapshot(user.ID)
	writeJSON(w, http.StatusCreated, snapshotJSON(snap))
}

func (h *Handler) handleExamState(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	snap, live := h.manager.Snapshot(user.ID)
	if !live {
		errorJSON(w, http.StatusNotFound, appI18n.T(r.Context(), "NoActiveExam"))
		return
	}
	writeJSON(w, http.StatusOK, snapshotJSON(snap))
}

type answerRequest struct {
	Position int    `json:"position"`
	Option   string `json:"option"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.manager.SelectAnswer(user.ID, req.Position, model.OptionLetter(req.Option))
	if err != nil {
		h.examError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type navigateRequest struct {
	Position int `json:"position"`
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.manager.Navigate(user.ID, req.Position); err != nil {
		h.examError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"position": req.Position})
}

type submitRequest struct {
	Force bool `json:"force"`
	// Report asks for a detailed PDF report alongside the JSON response.
	Report bool `json:"report"`
}

// reviewEntry is one question in the post-submission answer review, with
// the correct option and explanation revealed.
type reviewEntry struct {
	Prompt        string `json:"question"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	Category      string `json:"category"`
	Difficulty    string `json:"difficulty"`
	Points        int    `json:"points"`
	CorrectOption string `json:"correct_option"`
	YourAnswer    string `json:"your_answer,omitempty"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
}

func reviewEntries(questions []model.Question, answers map[int]model.OptionLetter) []reviewEntry {
	entries := make([]reviewEntry, len(questions))
	for i, q := range questions {
		entry := reviewEntry{
			Prompt:  q.Prompt,
			OptionA: q.OptionA, OptionB: q.OptionB, OptionC: q.OptionC, OptionD: q.OptionD,
			Category: q.Category, Difficulty: string(q.Difficulty), Points: q.Points,
			CorrectOption: string(q.CorrectOption),
			Explanation:   q.Explanation,
		}
		if letter, ok := answers[i]; ok {
			entry.YourAnswer = string(letter)
			entry.Correct = letter == q.CorrectOption
		}
		entries[i] = entry
	}
	return entries
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req submitRequest
	if r.Body != nil {
		// An empty body means a plain, unforced submit.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	outcome, err := h.manager.Submit(user.ID, req.Force)
	var unanswered *exam.UnansweredError
	if errors.As(err, &unanswered) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"confirm_required": true,
			"unanswered":       unanswered.Count,
			"message":          appI18n.Tp(r.Context(), "UnansweredQuestions", unanswered.Count),
		})
		return
	}
	if err != nil {
		h.examError(w, r, err)
		return
	}

	resp := map[string]any{
		"message": appI18n.T(r.Context(), "ExamSubmitted"),
		"result":  outcome.Record,
		"passed":  outcome.Record.Percentage() >= float64(h.config.PassingPercentage),
	}
	if h.config.AllowReview {
		resp["review"] = reviewEntries(outcome.Questions, outcome.Answers)
		if req.Report {
			if path, err := h.writeDetailedReport(*user, outcome); err != nil {
				slog.Error("failed to write exam report", "user_id", user.ID, "error", err)
			} else {
				resp["report_path"] = path
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeDetailedReport renders the detailed PDF for a just-submitted exam,
// the only moment the question set and answers are still available.
func (h *Handler) writeDetailedReport(user model.User, outcome *exam.Outcome) (string, error) {
	if err := os.MkdirAll(h.config.ExportDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(h.config.ExportDir, report.Filename("exam_report", user.Username, time.Now()))
	in := report.Input{
		User:      user,
		Result:    *outcome.Record,
		Questions: outcome.Questions,
		Answers:   outcome.Answers,
		Duration:  h.config.ExamDuration,
	}
	if err := report.Detailed(path, in); err != nil {
		return "", err
	}
	slog.Info("exam report written", "username", user.Username, "path", path)
	return path, nil
}

func (h *Handler) examError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, exam.ErrNotInProgress):
		errorJSON(w, http.StatusNotFound, appI18n.T(r.Context(), "NoActiveExam"))
	case errors.Is(err, exam.ErrPositionOutOfRange), errors.Is(err, exam.ErrInvalidOption):
		errorJSON(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("exam operation failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
	}
}
