package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/store"
)

func parseCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	return records
}

func TestStudentResults(t *testing.T) {
	rows := []store.ResultRow{
		{
			Username: "student1", FullName: "John Doe",
			Score: 8, TotalQuestions: 10, TimeTaken: 330,
			ExamDate: time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC),
		},
		{
			Username: "student2", FullName: "Jane Smith",
			Score: 0, TotalQuestions: 0, TimeTaken: 0,
			ExamDate: time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := StudentResults(&buf, rows); err != nil {
		t.Fatalf("StudentResults: %v", err)
	}
	records := parseCSV(t, &buf)

	if len(records) != 3 {
		t.Fatalf("record count = %d, want 3 (header + 2 rows)", len(records))
	}
	if records[0][0] != "Username" || records[0][4] != "Percentage" {
		t.Errorf("unexpected header: %v", records[0])
	}

	got := records[1]
	want := []string{"student1", "John Doe", "8", "10", "80.0%", "5", "2025-03-01 15:30:00"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row 1 column %d = %q, want %q", i, got[i], want[i])
		}
	}

	// Zero total questions must not divide by zero.
	if records[2][4] != "0.0%" {
		t.Errorf("zero-total percentage = %q, want 0.0%%", records[2][4])
	}
}

func TestQuestionBank(t *testing.T) {
	questions := []model.Question{
		{
			Prompt: "What is 2 + 2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6",
			CorrectOption: model.OptionB, Category: "Mathematics",
			Difficulty: model.DifficultyEasy, Points: 1, Explanation: "Basic addition.",
		},
	}

	var buf bytes.Buffer
	if err := QuestionBank(&buf, questions); err != nil {
		t.Fatalf("QuestionBank: %v", err)
	}
	records := parseCSV(t, &buf)

	if len(records) != 2 {
		t.Fatalf("record count = %d, want 2", len(records))
	}
	got := records[1]
	if got[0] != "What is 2 + 2?" || got[5] != "B" || got[7] != "Easy" || got[8] != "1" {
		t.Errorf("unexpected question row: %v", got)
	}
}

func TestAnalyticsReport(t *testing.T) {
	stats := model.AdminStats{
		TotalUsers:      5,
		TotalQuestions:  40,
		TotalExams:      12,
		AverageScore:    67.5,
		CategoriesCount: 4,
		TotalTimeMin:    95,
		BestScore:       100,
	}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := AnalyticsReport(&buf, stats, now); err != nil {
		t.Fatalf("AnalyticsReport: %v", err)
	}
	records := parseCSV(t, &buf)

	byMetric := make(map[string]string)
	for _, row := range records[1:] {
		byMetric[row[0]] = row[1]
	}
	checks := map[string]string{
		"Export Date":          "2025-03-01 12:00:00",
		"Total Students":       "5",
		"Total Exams Taken":    "12",
		"Average Score":        "67.5%",
		"Categories Available": "4",
		"Total Exam Time":      "95 minutes",
		"Best Score":           "100.0%",
	}
	for metric, want := range checks {
		if got := byMetric[metric]; got != want {
			t.Errorf("%s = %q, want %q", metric, got, want)
		}
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC)
	got := Filename("/tmp/exports", "student_results", now)
	if !strings.HasSuffix(got, "student_results_20250301_153000.csv") {
		t.Errorf("Filename = %q", got)
	}
}
