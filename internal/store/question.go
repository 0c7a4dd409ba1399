package store

import (
	"database/sql"

	"github.com/examdesk/examdesk/internal/model"
)

const questionCols = `id, question, option_a, option_b, option_c, option_d,
	correct_option, category, difficulty, points, explanation`

// InsertQuestion stores a question.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO questions (question, option_a, option_b, option_c, option_d,
		 correct_option, category, difficulty, points, explanation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		q.CorrectOption, q.Category, q.Difficulty, q.Points, q.Explanation,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanQuestions(rows *sql.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.Category, &q.Difficulty, &q.Points, &q.Explanation); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// PickQuestions returns up to limit questions matching the optional filters.
// Empty filter strings mean no filtering on that field. With randomize the
// selection and order come from ORDER BY RANDOM(); otherwise id order.
// Fewer matching rows than limit is not an error.
func (s *Store) PickQuestions(limit int, category string, difficulty model.Difficulty, randomize bool) ([]model.Question, error) {
	query := `SELECT ` + questionCols + ` FROM questions WHERE 1=1`
	var args []any
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	if difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, difficulty)
	}
	if randomize {
		query += ` ORDER BY RANDOM()`
	} else {
		query += ` ORDER BY id`
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// ListQuestions returns all questions in id order.
func (s *Store) ListQuestions() ([]model.Question, error) {
	rows, err := s.db.Query(`SELECT ` + questionCols + ` FROM questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT `+questionCols+` FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&q.CorrectOption, &q.Category, &q.Difficulty, &q.Points, &q.Explanation)
	return q, err
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// ListCategories returns the distinct categories in alphabetical order.
func (s *Store) ListCategories() ([]string, error) {
	return s.listDistinct("category")
}

// ListDifficulties returns the distinct difficulty levels in alphabetical order.
func (s *Store) ListDifficulties() ([]string, error) {
	return s.listDistinct("difficulty")
}

func (s *Store) listDistinct(col string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT ` + col + ` FROM questions ORDER BY ` + col)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// QuestionStats returns question counts overall and grouped by category
// and difficulty.
func (s *Store) QuestionStats() (model.QuestionStats, error) {
	stats := model.QuestionStats{
		ByCategory:   make(map[string]int),
		ByDifficulty: make(map[string]int),
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&stats.Total); err != nil {
		return stats, err
	}

	for _, g := range []struct {
		col  string
		dest map[string]int
	}{
		{"category", stats.ByCategory},
		{"difficulty", stats.ByDifficulty},
	} {
		rows, err := s.db.Query(`SELECT ` + g.col + `, COUNT(*) FROM questions GROUP BY ` + g.col)
		if err != nil {
			return stats, err
		}
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return stats, err
			}
			g.dest[key] = n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return stats, err
		}
		rows.Close()
	}
	return stats, nil
}
