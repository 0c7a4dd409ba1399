package store

import (
	"errors"
	"testing"
	"time"

	"github.com/examdesk/examdesk/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedQuestions(t *testing.T, s *Store) {
	t.Helper()
	questions := []model.Question{
		{Prompt: "Q1", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectOption: model.OptionB, Category: "Mathematics", Difficulty: model.DifficultyEasy, Points: 1},
		{Prompt: "Q2", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectOption: model.OptionC, Category: "Science", Difficulty: model.DifficultyMedium, Points: 2},
		{Prompt: "Q3", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectOption: model.OptionA, Category: "Mathematics", Difficulty: model.DifficultyHard, Points: 3},
	}
	for _, q := range questions {
		if _, err := s.InsertQuestion(q); err != nil {
			t.Fatalf("InsertQuestion: %v", err)
		}
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateUser(model.User{Username: "student1", PasswordHash: "x", FullName: "John Doe"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err := s.CreateUser(model.User{Username: "student1", PasswordHash: "y", FullName: "Someone Else"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate CreateUser = %v, want ErrUsernameTaken", err)
	}

	// The first account is untouched.
	u, err := s.GetUserByUsername("student1")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.FullName != "John Doe" || u.PasswordHash != "x" {
		t.Errorf("original account changed: %+v", u)
	}
	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)

	u, err := s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u != nil {
		t.Errorf("missing user = %+v, want nil", u)
	}

	u, err = s.GetUserByID(99)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u != nil {
		t.Errorf("missing user by ID = %+v, want nil", u)
	}
}

func TestListStudentsExcludesAdmins(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateUser(model.User{Username: "admin", PasswordHash: "x", IsAdmin: true}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.CreateUser(model.User{Username: "student1", PasswordHash: "x"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	students, err := s.ListStudents()
	if err != nil {
		t.Fatalf("ListStudents: %v", err)
	}
	if len(students) != 1 || students[0].Username != "student1" {
		t.Errorf("students = %+v", students)
	}
}

func TestPickQuestionsCategoryFilter(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)

	// Two Mathematics questions exist; asking for ten returns both, no error.
	got, err := s.PickQuestions(10, "Mathematics", "", true)
	if err != nil {
		t.Fatalf("PickQuestions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("matched questions = %d, want 2", len(got))
	}
	for _, q := range got {
		if q.Category != "Mathematics" {
			t.Errorf("question %d category = %q", q.ID, q.Category)
		}
	}
}

func TestPickQuestionsDifficultyFilter(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)

	got, err := s.PickQuestions(10, "", model.DifficultyHard, false)
	if err != nil {
		t.Fatalf("PickQuestions: %v", err)
	}
	if len(got) != 1 || got[0].Difficulty != model.DifficultyHard {
		t.Errorf("hard questions = %+v", got)
	}
}

func TestPickQuestionsLimit(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)

	got, err := s.PickQuestions(2, "", "", true)
	if err != nil {
		t.Fatalf("PickQuestions: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("limited pick = %d questions, want 2", len(got))
	}
}

func TestSaveAndLoadResult(t *testing.T) {
	s := newTestStore(t)
	userID, err := s.CreateUser(model.User{Username: "student1", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	saved := model.ExamResult{
		UserID: userID, Score: 2, TotalQuestions: 3,
		PointsEarned: 3, TotalPoints: 6, TimeTaken: 120,
		CategoryScores: map[string]model.Tally{
			"Mathematics": {Correct: 2, Total: 2},
			"Science":     {Correct: 0, Total: 1},
		},
		DifficultyScores: map[string]model.Tally{"Easy": {Correct: 2, Total: 3}},
		ExamDate:         time.Now(),
	}
	if _, err := s.SaveResult(saved); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	results, err := s.ResultsForUser(userID, 0)
	if err != nil {
		t.Fatalf("ResultsForUser: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	got := results[0]
	if got.Score != 2 || got.PointsEarned != 3 || got.TotalPoints != 6 || got.TimeTaken != 120 {
		t.Errorf("loaded result = %+v", got)
	}
	if got.CategoryScores["Mathematics"].Correct != 2 {
		t.Errorf("category scores = %+v", got.CategoryScores)
	}
	if got.DifficultyScores["Easy"].Total != 3 {
		t.Errorf("difficulty scores = %+v", got.DifficultyScores)
	}
}

func TestResultsForUserNewestFirst(t *testing.T) {
	s := newTestStore(t)
	userID, err := s.CreateUser(model.User{Username: "student1", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, score := range []int{5, 7, 9} {
		_, err := s.SaveResult(model.ExamResult{
			UserID: userID, Score: score, TotalQuestions: 10,
			ExamDate: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}

	results, err := s.ResultsForUser(userID, 2)
	if err != nil {
		t.Fatalf("ResultsForUser: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("limited results = %d, want 2", len(results))
	}
	if results[0].Score != 9 || results[1].Score != 7 {
		t.Errorf("order = %d, %d; want 9, 7", results[0].Score, results[1].Score)
	}
}

func TestAdminStats(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)

	if _, err := s.CreateUser(model.User{Username: "admin", PasswordHash: "x", IsAdmin: true}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	userID, err := s.CreateUser(model.User{Username: "student1", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	for _, r := range []model.ExamResult{
		{UserID: userID, Score: 5, TotalQuestions: 10, TimeTaken: 300},
		{UserID: userID, Score: 10, TotalQuestions: 10, TimeTaken: 600},
	} {
		if _, err := s.SaveResult(r); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}

	stats, err := s.AdminStats()
	if err != nil {
		t.Fatalf("AdminStats: %v", err)
	}
	if stats.TotalUsers != 1 {
		t.Errorf("total users = %d, want 1 (admins excluded)", stats.TotalUsers)
	}
	if stats.TotalQuestions != 3 || stats.TotalExams != 2 {
		t.Errorf("questions/exams = %d/%d, want 3/2", stats.TotalQuestions, stats.TotalExams)
	}
	if stats.AverageScore != 75 {
		t.Errorf("average score = %f, want 75", stats.AverageScore)
	}
	if stats.BestScore != 100 {
		t.Errorf("best score = %f, want 100", stats.BestScore)
	}
	if stats.CategoriesCount != 2 {
		t.Errorf("categories = %d, want 2", stats.CategoriesCount)
	}
	if stats.TotalTimeMin != 15 {
		t.Errorf("total time = %d minutes, want 15", stats.TotalTimeMin)
	}
}

func TestAdminStatsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.AdminStats()
	if err != nil {
		t.Fatalf("AdminStats: %v", err)
	}
	if stats.AverageScore != 0 || stats.BestScore != 0 || stats.TotalTimeMin != 0 {
		t.Errorf("empty stats = %+v, want zeros", stats)
	}
}

func TestAllResultRows(t *testing.T) {
	s := newTestStore(t)

	userID, err := s.CreateUser(model.User{Username: "student1", PasswordHash: "x", FullName: "John Doe"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.SaveResult(model.ExamResult{
		UserID: userID, Score: 8, TotalQuestions: 10, TimeTaken: 330, ExamDate: time.Now(),
	}); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	rows, err := s.AllResultRows()
	if err != nil {
		t.Fatalf("AllResultRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Username != "student1" || rows[0].FullName != "John Doe" || rows[0].Score != 8 {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestQuestionStats(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)

	stats, err := s.QuestionStats()
	if err != nil {
		t.Fatalf("QuestionStats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByCategory["Mathematics"] != 2 || stats.ByCategory["Science"] != 1 {
		t.Errorf("by category = %+v", stats.ByCategory)
	}
	if stats.ByDifficulty["Easy"] != 1 {
		t.Errorf("by difficulty = %+v", stats.ByDifficulty)
	}
}

func TestAuthSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	userID, err := s.CreateUser(model.User{Username: "student1", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := s.CreateAuthSession(userID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != userID {
		t.Fatalf("session = %+v", sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("session survives deletion")
	}
}

func TestAuthSessionExpiryAndRenewal(t *testing.T) {
	s := newTestStore(t)
	userID, err := s.CreateUser(model.User{Username: "student1", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	setExpiry := func(token string, at time.Time) {
		t.Helper()
		if _, err := s.db.Exec(`UPDATE auth_sessions SET expires_at = ? WHERE id = ?`, at, token); err != nil {
			t.Fatalf("set expiry: %v", err)
		}
	}

	// A session in the back half of its lifetime is renewed to the full TTL.
	token, err := s.CreateAuthSession(userID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	setExpiry(token, time.Now().Add(time.Hour))
	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil {
		t.Fatal("session missing before expiry")
	}
	if remaining := time.Until(sess.ExpiresAt); remaining < 23*time.Hour {
		t.Errorf("session not renewed, %v remaining", remaining)
	}

	// An expired session is gone and gets deleted on sight.
	setExpiry(token, time.Now().Add(-time.Minute))
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession expired: %v", err)
	}
	if sess != nil {
		t.Error("expired session still returned")
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash("questions/sample.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("unknown file hash = %q, want empty", hash)
	}

	if err := s.SetImportedFileHash("questions/sample.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, err = s.GetImportedFileHash("questions/sample.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "abc123" {
		t.Errorf("hash = %q, want abc123", hash)
	}

	// Re-import with a new hash replaces the record.
	if err := s.SetImportedFileHash("questions/sample.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("questions/sample.json")
	if hash != "def456" {
		t.Errorf("updated hash = %q, want def456", hash)
	}
}

func TestListCategories(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)

	categories, err := s.ListCategories()
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(categories) != 2 || categories[0] != "Mathematics" || categories[1] != "Science" {
		t.Errorf("categories = %v", categories)
	}
}
