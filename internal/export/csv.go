// Package export writes one-way CSV artifacts: student results, the
// question bank, and the system analytics summary.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/store"
)

// Filename builds a timestamped file name like prefix_20250301_153000.csv
// inside dir.
func Filename(dir, prefix string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, now.Format("20060102_150405")))
}

// StudentResults writes every persisted result joined with user info.
func StudentResults(w io.Writer, rows []store.ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Username", "Full Name", "Score", "Total Questions", "Percentage", "Time (minutes)", "Date"}); err != nil {
		return err
	}
	for _, r := range rows {
		percentage := 0.0
		if r.TotalQuestions > 0 {
			percentage = float64(r.Score) / float64(r.TotalQuestions) * 100
		}
		record := []string{
			r.Username,
			r.FullName,
			fmt.Sprintf("%d", r.Score),
			fmt.Sprintf("%d", r.TotalQuestions),
			fmt.Sprintf("%.1f%%", percentage),
			fmt.Sprintf("%d", r.TimeTaken/60),
			r.ExamDate.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// QuestionBank writes all questions with answers and metadata.
func QuestionBank(w io.Writer, questions []model.Question) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Question", "Option A", "Option B", "Option C", "Option D", "Correct", "Category", "Difficulty", "Points", "Explanation"}); err != nil {
		return err
	}
	for _, q := range questions {
		record := []string{
			q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
			string(q.CorrectOption), q.Category, string(q.Difficulty),
			fmt.Sprintf("%d", q.Points), q.Explanation,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AnalyticsReport writes the system statistics as metric/value rows.
func AnalyticsReport(w io.Writer, stats model.AdminStats, now time.Time) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Metric", "Value"},
		{"Export Date", now.Format("2006-01-02 15:04:05")},
		{"Total Students", fmt.Sprintf("%d", stats.TotalUsers)},
		{"Total Questions", fmt.Sprintf("%d", stats.TotalQuestions)},
		{"Total Exams Taken", fmt.Sprintf("%d", stats.TotalExams)},
		{"Average Score", fmt.Sprintf("%.1f%%", stats.AverageScore)},
		{"Categories Available", fmt.Sprintf("%d", stats.CategoriesCount)},
		{"Total Exam Time", fmt.Sprintf("%d minutes", stats.TotalTimeMin)},
		{"Best Score", fmt.Sprintf("%.1f%%", stats.BestScore)},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToFile runs a writer function against a freshly created file.
func ToFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
