// Package analytics computes per-user performance summaries from persisted
// exam results.
package analytics

import (
	"time"

	"github.com/examdesk/examdesk/internal/model"
)

// ExamEntry is one historical attempt in a summary.
type ExamEntry struct {
	Date       time.Time `json:"date"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage float64   `json:"percentage"`
	TimeTaken  int       `json:"time_taken"`
}

// Summary is a user's lifetime performance rollup.
type Summary struct {
	TotalExams        int                      `json:"total_exams"`
	AverageScore      float64                  `json:"average_score"`
	AveragePercentage float64                  `json:"average_percentage"`
	BestScore         int                      `json:"best_score"`
	RecentPerformance []ExamEntry              `json:"recent_performance"`
	CategoryHistory   map[string][]model.Tally `json:"category_performance"`
	DifficultyHistory map[string][]model.Tally `json:"difficulty_performance"`
	AverageTime       float64                  `json:"average_time"`
	FastestTime       int                      `json:"fastest_time"`
}

// Summarize builds a Summary from a user's results, which must be ordered
// newest first (as the store returns them). An empty history yields a zero
// Summary, not an error.
func Summarize(results []model.ExamResult) Summary {
	var s Summary
	if len(results) == 0 {
		return s
	}

	s.TotalExams = len(results)
	s.CategoryHistory = make(map[string][]model.Tally)
	s.DifficultyHistory = make(map[string][]model.Tally)

	var scoreSum int
	var pctSum float64
	var timeSum, timedCount int

	for _, r := range results {
		scoreSum += r.Score
		pctSum += r.Percentage()
		if r.Score > s.BestScore {
			s.BestScore = r.Score
		}

		s.RecentPerformance = append(s.RecentPerformance, ExamEntry{
			Date:       r.ExamDate,
			Score:      r.Score,
			Total:      r.TotalQuestions,
			Percentage: r.Percentage(),
			TimeTaken:  r.TimeTaken,
		})

		for category, tally := range r.CategoryScores {
			s.CategoryHistory[category] = append(s.CategoryHistory[category], tally)
		}
		for difficulty, tally := range r.DifficultyScores {
			s.DifficultyHistory[difficulty] = append(s.DifficultyHistory[difficulty], tally)
		}

		if r.TimeTaken > 0 {
			timeSum += r.TimeTaken
			timedCount++
			if s.FastestTime == 0 || r.TimeTaken < s.FastestTime {
				s.FastestTime = r.TimeTaken
			}
		}
	}

	s.AverageScore = float64(scoreSum) / float64(len(results))
	s.AveragePercentage = pctSum / float64(len(results))
	if timedCount > 0 {
		s.AverageTime = float64(timeSum) / float64(timedCount)
	}
	return s
}
