package model

import (
	"context"
	"time"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	FullName     string
	IsAdmin      bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// OptionLetter identifies one of the four answer options.
type OptionLetter string

const (
	OptionA OptionLetter = "A"
	OptionB OptionLetter = "B"
	OptionC OptionLetter = "C"
	OptionD OptionLetter = "D"
)

// Valid reports whether the letter is one of A, B, C, D.
func (o OptionLetter) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Difficulty represents a question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Question represents a multiple-choice question.
// Questions are read-only while an exam is in progress.
type Question struct {
	ID            int64        `json:"id"`
	Prompt        string       `json:"question"`
	OptionA       string       `json:"option_a"`
	OptionB       string       `json:"option_b"`
	OptionC       string       `json:"option_c"`
	OptionD       string       `json:"option_d"`
	CorrectOption OptionLetter `json:"correct_option"`
	Category      string       `json:"category"`
	Difficulty    Difficulty   `json:"difficulty"`
	Points        int          `json:"points"`
	Explanation   string       `json:"explanation"`
}

// Option returns the text of the given option letter.
func (q Question) Option(letter OptionLetter) string {
	switch letter {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// Tally is a correct/total counter pair scoped to a category or difficulty.
type Tally struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Percentage returns correct/total as a percentage, or 0 for an empty tally.
func (t Tally) Percentage() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Total) * 100
}

// ExamResult is the persisted outcome of one completed attempt.
// Created exactly once per attempt, never mutated.
type ExamResult struct {
	ID               int64            `json:"id"`
	UserID           int64            `json:"user_id"`
	Score            int              `json:"score"`
	TotalQuestions   int              `json:"total_questions"`
	PointsEarned     int              `json:"points_earned"`
	TotalPoints      int              `json:"total_points"`
	TimeTaken        int              `json:"time_taken"`
	CategoryScores   map[string]Tally `json:"category_scores"`
	DifficultyScores map[string]Tally `json:"difficulty_scores"`
	ExamDate         time.Time        `json:"exam_date"`
}

// Percentage returns the score as a percentage of total questions.
func (r ExamResult) Percentage() float64 {
	if r.TotalQuestions == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.TotalQuestions) * 100
}

// QuestionImport is used for loading questions from JSON files.
type QuestionImport struct {
	Prompt        string       `json:"question"`
	OptionA       string       `json:"option_a"`
	OptionB       string       `json:"option_b"`
	OptionC       string       `json:"option_c"`
	OptionD       string       `json:"option_d"`
	CorrectOption OptionLetter `json:"correct_option"`
	Category      string       `json:"category"`
	Difficulty    Difficulty   `json:"difficulty"`
	Points        int          `json:"points"`
	Explanation   string       `json:"explanation"`
}

// QuestionStats summarizes the question bank.
type QuestionStats struct {
	Total        int            `json:"total"`
	ByCategory   map[string]int `json:"by_category"`
	ByDifficulty map[string]int `json:"by_difficulty"`
}

// AdminStats holds system-wide figures for the admin dashboard.
type AdminStats struct {
	TotalUsers      int     `json:"total_users"`
	TotalQuestions  int     `json:"total_questions"`
	TotalExams      int     `json:"total_exams"`
	AverageScore    float64 `json:"avg_score"`
	CategoriesCount int     `json:"categories_count"`
	TotalTimeMin    int     `json:"total_time"`
	BestScore       float64 `json:"best_score"`
}
