// Package report renders exam results as PDF documents.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/examdesk/examdesk/internal/model"
)

// Input carries everything a detailed report needs: the student, the
// finalized result, and the question set with the student's answers.
type Input struct {
	User      model.User
	Result    model.ExamResult
	Questions []model.Question
	Answers   map[int]model.OptionLetter
	// Duration is the configured exam length in seconds, used for
	// time-management advice. Zero skips that advice.
	Duration int
}

// Filename builds a timestamped report name like
// exam_report_student1_20250301_153000.pdf.
func Filename(prefix, username string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.pdf", prefix, username, now.Format("20060102_150405"))
}

// Grade maps a percentage to a letter grade and performance label.
func Grade(percentage float64) (string, string) {
	switch {
	case percentage >= 90:
		return "A+", "Excellent"
	case percentage >= 80:
		return "A", "Very Good"
	case percentage >= 70:
		return "B", "Good"
	case percentage >= 60:
		return "C", "Satisfactory"
	}
	return "D", "Needs Improvement"
}

func formatTime(seconds int) string {
	if seconds <= 0 {
		return "Not recorded"
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Detailed writes the full exam report to path: student info, summary
// with grade, tally tables, per-question review, and recommendations.
func Detailed(path string, in Input) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(37, 99, 235)
	pdf.CellFormat(0, 10, "Exam Results Report", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	heading(pdf, "Student Information")
	body(pdf, fmt.Sprintf("Name: %s", in.User.FullName))
	body(pdf, fmt.Sprintf("Username: %s", in.User.Username))
	body(pdf, fmt.Sprintf("Exam Date: %s", in.Result.ExamDate.Format("January 2, 2006 at 3:04 PM")))
	body(pdf, fmt.Sprintf("Total Questions: %d", in.Result.TotalQuestions))
	body(pdf, fmt.Sprintf("Time Taken: %s", formatTime(in.Result.TimeTaken)))
	pdf.Ln(6)

	heading(pdf, "Exam Summary")
	percentage := in.Result.Percentage()
	grade, performance := Grade(percentage)
	body(pdf, fmt.Sprintf("Score: %d out of %d correct", in.Result.Score, in.Result.TotalQuestions))
	body(pdf, fmt.Sprintf("Percentage: %.2f%%", percentage))
	body(pdf, fmt.Sprintf("Points Earned: %d out of %d", in.Result.PointsEarned, in.Result.TotalPoints))
	body(pdf, fmt.Sprintf("Grade: %s", grade))
	body(pdf, fmt.Sprintf("Performance Level: %s", performance))
	pdf.Ln(6)

	if len(in.Result.CategoryScores) > 0 {
		heading(pdf, "Performance by Category")
		tallyTable(pdf, "Category", in.Result.CategoryScores)
		pdf.Ln(6)
	}
	if len(in.Result.DifficultyScores) > 0 {
		heading(pdf, "Performance by Difficulty Level")
		tallyTable(pdf, "Difficulty", in.Result.DifficultyScores)
		pdf.Ln(6)
	}

	heading(pdf, "Detailed Answer Review")
	for i, q := range in.Questions {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(100, 116, 139)
		pdf.MultiCell(0, 6, fmt.Sprintf("Question %d [%s - %s - %d points]", i+1, q.Category, q.Difficulty, q.Points), "", "L", false)

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 5, q.Prompt, "", "L", false)

		selected, answered := in.Answers[i]
		for _, letter := range []model.OptionLetter{model.OptionA, model.OptionB, model.OptionC, model.OptionD} {
			line := fmt.Sprintf("%s. %s", letter, q.Option(letter))
			style := ""
			switch {
			case letter == q.CorrectOption && answered && letter == selected:
				line += " (Your answer - Correct!)"
				style = "B"
				pdf.SetTextColor(22, 163, 74)
			case letter == q.CorrectOption:
				line += " (Correct answer)"
				style = "B"
				pdf.SetTextColor(22, 163, 74)
			case answered && letter == selected:
				line += " (Your answer - Incorrect)"
				pdf.SetTextColor(220, 38, 38)
			default:
				pdf.SetTextColor(0, 0, 0)
			}
			pdf.SetFont("Helvetica", style, 10)
			pdf.SetX(pdf.GetX() + 8)
			pdf.MultiCell(0, 5, line, "", "L", false)
		}

		if q.Explanation != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.SetTextColor(100, 116, 139)
			pdf.SetX(pdf.GetX() + 8)
			pdf.MultiCell(0, 5, "Explanation: "+q.Explanation, "", "L", false)
		}
		pdf.Ln(4)
	}

	heading(pdf, "Recommendations for Improvement")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, rec := range Recommendations(in.Result, in.Duration) {
		pdf.MultiCell(0, 6, "- "+rec, "", "L", false)
	}
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(100, 116, 139)
	pdf.CellFormat(0, 5, fmt.Sprintf("Report generated on %s", time.Now().Format("January 2, 2006 at 3:04 PM")), "", 1, "C", false, 0, "")

	return pdf.OutputFileAndClose(path)
}

// Recommendations builds study advice from the result breakdowns, the
// overall score, and pacing relative to the exam duration.
func Recommendations(r model.ExamResult, duration int) []string {
	var recs []string

	var weak []string
	for category, tally := range r.CategoryScores {
		if tally.Total > 0 && tally.Percentage() < 70 {
			weak = append(weak, category)
		}
	}
	sort.Strings(weak)
	if len(weak) > 0 {
		recs = append(recs, "Focus on improving in: "+strings.Join(weak, ", "))
	}

	var diffs []string
	for difficulty, tally := range r.DifficultyScores {
		if tally.Total > 0 && tally.Percentage() < 60 {
			diffs = append(diffs, difficulty)
		}
	}
	sort.Strings(diffs)
	for _, d := range diffs {
		recs = append(recs, fmt.Sprintf("Strengthen %s level concepts", strings.ToLower(d)))
	}

	if r.TimeTaken > 0 && duration > 0 {
		used := float64(r.TimeTaken) / float64(duration) * 100
		if used < 50 {
			recs = append(recs, "Consider taking more time to review answers")
		} else if used > 90 {
			recs = append(recs, "Work on time management and question comprehension speed")
		}
	}

	switch percentage := r.Percentage(); {
	case percentage < 60:
		recs = append(recs, "Review fundamental concepts and practice more questions")
	case percentage < 80:
		recs = append(recs, "Focus on areas of weakness and practice advanced problems")
	default:
		recs = append(recs, "Excellent performance! Continue practicing to maintain proficiency")
	}

	return recs
}

// Summary writes a one-page report with the student's score and a
// short performance message.
func Summary(path string, user model.User, r model.ExamResult) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Exam Results Summary", "", 1, "L", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Student Name: %s", user.FullName),
		fmt.Sprintf("Username: %s", user.Username),
		fmt.Sprintf("Date: %s", r.ExamDate.Format("January 2, 2006")),
		fmt.Sprintf("Score: %d out of %d", r.Score, r.TotalQuestions),
		fmt.Sprintf("Percentage: %.2f%%", r.Percentage()),
	}
	for _, line := range lines {
		pdf.CellFormat(0, 9, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	message := "Keep studying and practicing. You can do better!"
	switch percentage := r.Percentage(); {
	case percentage >= 80:
		message = "Excellent performance! Keep up the great work!"
	case percentage >= 60:
		message = "Good job! Continue practicing to improve further."
	}
	pdf.SetFont("Helvetica", "I", 11)
	pdf.CellFormat(0, 9, message, "", 1, "L", false, 0, "")

	return pdf.OutputFileAndClose(path)
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func body(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, text, "", 1, "L", false, 0, "")
}

func tallyTable(pdf *fpdf.Fpdf, label string, scores map[string]model.Tally) {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		if scores[k].Total > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return
	}

	widths := []float64{60, 30, 30, 40}
	headers := []string{label, "Correct", "Total", "Percentage"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(37, 99, 235)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetFillColor(248, 250, 252)
	pdf.SetTextColor(0, 0, 0)
	for _, k := range keys {
		tally := scores[k]
		cells := []string{
			k,
			fmt.Sprintf("%d", tally.Correct),
			fmt.Sprintf("%d", tally.Total),
			fmt.Sprintf("%.2f%%", tally.Percentage()),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 7, c, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
}
