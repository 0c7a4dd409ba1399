package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/examdesk/examdesk/internal/model"
)

// SaveResult persists a finalized exam result. The tally maps are stored
// as JSON columns.
func (s *Store) SaveResult(r model.ExamResult) (int64, error) {
	catJSON, err := json.Marshal(orEmpty(r.CategoryScores))
	if err != nil {
		return 0, fmt.Errorf("marshal category scores: %w", err)
	}
	diffJSON, err := json.Marshal(orEmpty(r.DifficultyScores))
	if err != nil {
		return 0, fmt.Errorf("marshal difficulty scores: %w", err)
	}

	examDate := r.ExamDate
	if examDate.IsZero() {
		examDate = time.Now()
	}

	res, err := s.db.Exec(
		`INSERT INTO exam_results
		 (user_id, score, total_questions, points_earned, total_points, time_taken,
		  category_scores, difficulty_scores, exam_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Score, r.TotalQuestions, r.PointsEarned, r.TotalPoints, r.TimeTaken,
		string(catJSON), string(diffJSON), examDate,
	)
	if err != nil {
		slog.Error("failed to save exam result", "user_id", r.UserID, "error", err)
		return 0, err
	}
	return res.LastInsertId()
}

func orEmpty(m map[string]model.Tally) map[string]model.Tally {
	if m == nil {
		return map[string]model.Tally{}
	}
	return m
}

// ResultsForUser returns a user's exam history, newest first. The limit
// caps the number of rows; 0 means no cap.
func (s *Store) ResultsForUser(userID int64, limit int) ([]model.ExamResult, error) {
	query := `SELECT id, user_id, score, total_questions, points_earned, total_points,
		time_taken, category_scores, difficulty_scores, exam_date
		FROM exam_results WHERE user_id = ? ORDER BY exam_date DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		var r model.ExamResult
		var catJSON, diffJSON string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Score, &r.TotalQuestions, &r.PointsEarned,
			&r.TotalPoints, &r.TimeTaken, &catJSON, &diffJSON, &r.ExamDate); err != nil {
			return nil, err
		}
		// Corrupt tally JSON loses the breakdown, not the whole row.
		if err := json.Unmarshal([]byte(catJSON), &r.CategoryScores); err != nil {
			slog.Warn("bad category scores JSON", "result_id", r.ID, "error", err)
			r.CategoryScores = map[string]model.Tally{}
		}
		if err := json.Unmarshal([]byte(diffJSON), &r.DifficultyScores); err != nil {
			slog.Warn("bad difficulty scores JSON", "result_id", r.ID, "error", err)
			r.DifficultyScores = map[string]model.Tally{}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// AdminStats computes system-wide dashboard figures. Admin accounts are
// excluded from the user count.
func (s *Store) AdminStats() (model.AdminStats, error) {
	var stats model.AdminStats

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE is_admin = 0`).Scan(&stats.TotalUsers); err != nil {
		return stats, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&stats.TotalQuestions); err != nil {
		return stats, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM exam_results`).Scan(&stats.TotalExams); err != nil {
		return stats, err
	}

	var avg, best *float64
	if err := s.db.QueryRow(
		`SELECT AVG(CAST(score AS FLOAT) / total_questions * 100),
		        MAX(CAST(score AS FLOAT) / total_questions * 100)
		 FROM exam_results WHERE total_questions > 0`,
	).Scan(&avg, &best); err != nil {
		return stats, err
	}
	if avg != nil {
		stats.AverageScore = *avg
	}
	if best != nil {
		stats.BestScore = *best
	}

	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT category) FROM questions`).Scan(&stats.CategoriesCount); err != nil {
		return stats, err
	}

	var totalSec *int
	if err := s.db.QueryRow(`SELECT SUM(time_taken) FROM exam_results WHERE time_taken > 0`).Scan(&totalSec); err != nil {
		return stats, err
	}
	if totalSec != nil {
		stats.TotalTimeMin = *totalSec / 60
	}

	return stats, nil
}

// ResultRow is one row of the student-results export: a result joined with
// its user.
type ResultRow struct {
	Username       string
	FullName       string
	Score          int
	TotalQuestions int
	TimeTaken      int
	ExamDate       time.Time
}

// AllResultRows returns every result joined with user info, newest first.
func (s *Store) AllResultRows() ([]ResultRow, error) {
	rows, err := s.db.Query(
		`SELECT u.username, u.full_name, er.score, er.total_questions, er.time_taken, er.exam_date
		 FROM exam_results er
		 JOIN users u ON er.user_id = u.id
		 ORDER BY er.exam_date DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(&r.Username, &r.FullName, &r.Score, &r.TotalQuestions, &r.TimeTaken, &r.ExamDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
