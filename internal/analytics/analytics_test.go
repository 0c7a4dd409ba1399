package analytics

import (
	"testing"
	"time"

	"github.com/examdesk/examdesk/internal/model"
)

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalExams != 0 {
		t.Errorf("total exams = %d, want 0", s.TotalExams)
	}
	if s.AverageScore != 0 || s.AveragePercentage != 0 || s.BestScore != 0 {
		t.Error("empty history should yield a zero summary")
	}
	if len(s.RecentPerformance) != 0 {
		t.Error("empty history should have no entries")
	}
}

func TestSummarize(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	results := []model.ExamResult{
		{
			Score: 8, TotalQuestions: 10, TimeTaken: 300,
			ExamDate: base.Add(48 * time.Hour),
			CategoryScores: map[string]model.Tally{
				"Mathematics": {Correct: 4, Total: 5},
				"Science":     {Correct: 4, Total: 5},
			},
			DifficultyScores: map[string]model.Tally{
				"Easy": {Correct: 8, Total: 10},
			},
		},
		{
			Score: 5, TotalQuestions: 10, TimeTaken: 450,
			ExamDate: base.Add(24 * time.Hour),
			CategoryScores: map[string]model.Tally{
				"Mathematics": {Correct: 5, Total: 10},
			},
		},
		{
			Score: 6, TotalQuestions: 12, TimeTaken: 0, // untimed result
			ExamDate: base,
		},
	}

	s := Summarize(results)

	if s.TotalExams != 3 {
		t.Errorf("total exams = %d, want 3", s.TotalExams)
	}
	wantAvgScore := (8.0 + 5.0 + 6.0) / 3.0
	if s.AverageScore != wantAvgScore {
		t.Errorf("average score = %f, want %f", s.AverageScore, wantAvgScore)
	}
	wantAvgPct := (80.0 + 50.0 + 50.0) / 3.0
	if s.AveragePercentage != wantAvgPct {
		t.Errorf("average percentage = %f, want %f", s.AveragePercentage, wantAvgPct)
	}
	if s.BestScore != 8 {
		t.Errorf("best score = %d, want 8", s.BestScore)
	}

	// History keeps the store's newest-first ordering.
	if len(s.RecentPerformance) != 3 {
		t.Fatalf("recent entries = %d, want 3", len(s.RecentPerformance))
	}
	if !s.RecentPerformance[0].Date.After(s.RecentPerformance[1].Date) {
		t.Error("recent performance not newest first")
	}

	// Untimed results are excluded from time figures.
	if s.AverageTime != 375 {
		t.Errorf("average time = %f, want 375", s.AverageTime)
	}
	if s.FastestTime != 300 {
		t.Errorf("fastest time = %d, want 300", s.FastestTime)
	}

	if got := len(s.CategoryHistory["Mathematics"]); got != 2 {
		t.Errorf("Mathematics history entries = %d, want 2", got)
	}
	if got := len(s.DifficultyHistory["Easy"]); got != 1 {
		t.Errorf("Easy history entries = %d, want 1", got)
	}
}
