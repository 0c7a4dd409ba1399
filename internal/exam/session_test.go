package exam

import (
	"errors"
	"testing"

	"github.com/examdesk/examdesk/internal/model"
)

func testQuestions() []model.Question {
	return []model.Question{
		{
			ID: 1, Prompt: "Q1", CorrectOption: model.OptionB,
			Category: "Mathematics", Difficulty: model.DifficultyEasy, Points: 1,
		},
		{
			ID: 2, Prompt: "Q2", CorrectOption: model.OptionC,
			Category: "Science", Difficulty: model.DifficultyMedium, Points: 2,
		},
		{
			ID: 3, Prompt: "Q3", CorrectOption: model.OptionA,
			Category: "Mathematics", Difficulty: model.DifficultyHard, Points: 3,
		},
	}
}

func startedSession(t *testing.T, duration int) *Session {
	t.Helper()
	s := NewSession()
	if err := s.Start(testQuestions(), duration); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func TestStartEmptyQuestionSet(t *testing.T) {
	s := NewSession()
	if err := s.Start(nil, 600); !errors.Is(err, ErrEmptyQuestionSet) {
		t.Errorf("Start(nil) = %v, want ErrEmptyQuestionSet", err)
	}
	if s.State() != StateNotStarted {
		t.Errorf("state = %q, want not_started", s.State())
	}
}

func TestStartInitializesTallies(t *testing.T) {
	s := startedSession(t, 600)

	result, err := s.Submit(true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	totalCat := 0
	for _, tally := range result.CategoryScores {
		totalCat += tally.Total
	}
	if totalCat != 3 {
		t.Errorf("category totals sum = %d, want 3", totalCat)
	}
	totalDiff := 0
	for _, tally := range result.DifficultyScores {
		totalDiff += tally.Total
	}
	if totalDiff != 3 {
		t.Errorf("difficulty totals sum = %d, want 3", totalDiff)
	}
	if got := result.CategoryScores["Mathematics"].Total; got != 2 {
		t.Errorf("Mathematics total = %d, want 2", got)
	}
}

func TestSelectAnswer(t *testing.T) {
	s := startedSession(t, 600)

	// Any position, not just the current one.
	if err := s.SelectAnswer(2, model.OptionA); err != nil {
		t.Fatalf("SelectAnswer(2): %v", err)
	}
	if letter, ok := s.Answer(2); !ok || letter != model.OptionA {
		t.Errorf("Answer(2) = %q, %v", letter, ok)
	}

	// Overwrite.
	if err := s.SelectAnswer(2, model.OptionD); err != nil {
		t.Fatalf("SelectAnswer overwrite: %v", err)
	}
	if letter, _ := s.Answer(2); letter != model.OptionD {
		t.Errorf("Answer(2) after overwrite = %q, want D", letter)
	}

	// Out of range and invalid letters are rejected.
	if err := s.SelectAnswer(3, model.OptionA); !errors.Is(err, ErrPositionOutOfRange) {
		t.Errorf("SelectAnswer(3) = %v, want ErrPositionOutOfRange", err)
	}
	if err := s.SelectAnswer(0, "E"); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("SelectAnswer(E) = %v, want ErrInvalidOption", err)
	}
}

func TestSelectAnswerIdempotent(t *testing.T) {
	s := startedSession(t, 600)

	if err := s.SelectAnswer(0, model.OptionB); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := s.SelectAnswer(0, model.OptionB); err != nil {
		t.Fatalf("SelectAnswer repeat: %v", err)
	}
	if s.AnsweredCount() != 1 {
		t.Errorf("answered count = %d, want 1", s.AnsweredCount())
	}

	result, err := s.Submit(true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 1 {
		t.Errorf("score = %d, want 1 (double-select must not double-count)", result.Score)
	}
	if got := result.CategoryScores["Mathematics"].Correct; got != 1 {
		t.Errorf("Mathematics correct = %d, want 1", got)
	}
}

func TestNavigate(t *testing.T) {
	s := startedSession(t, 600)

	if err := s.Navigate(2); err != nil {
		t.Fatalf("Navigate(2): %v", err)
	}
	if s.Position() != 2 {
		t.Errorf("position = %d, want 2", s.Position())
	}

	if err := s.Navigate(3); !errors.Is(err, ErrPositionOutOfRange) {
		t.Errorf("Navigate(3) = %v, want ErrPositionOutOfRange", err)
	}
	if s.Position() != 2 {
		t.Errorf("position changed on rejected navigation: %d", s.Position())
	}
	if err := s.Navigate(-1); !errors.Is(err, ErrPositionOutOfRange) {
		t.Errorf("Navigate(-1) = %v, want ErrPositionOutOfRange", err)
	}
}

func TestSubmitRequiresConfirmation(t *testing.T) {
	s := startedSession(t, 600)

	if err := s.SelectAnswer(0, model.OptionB); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	_, err := s.Submit(false)
	var unanswered *UnansweredError
	if !errors.As(err, &unanswered) {
		t.Fatalf("Submit(false) = %v, want UnansweredError", err)
	}
	if unanswered.Count != 2 {
		t.Errorf("unanswered count = %d, want 2", unanswered.Count)
	}
	if s.State() != StateInProgress {
		t.Errorf("state after refused submit = %q, want in_progress", s.State())
	}

	// Forcing proceeds.
	if _, err := s.Submit(true); err != nil {
		t.Fatalf("Submit(true): %v", err)
	}
	if s.State() != StateSubmitted {
		t.Errorf("state = %q, want submitted", s.State())
	}
}

func TestSubmitScoring(t *testing.T) {
	// 3 questions, 600s: answers {0: B correct, 1: A incorrect, 2: unanswered}.
	s := startedSession(t, 600)

	if err := s.SelectAnswer(0, model.OptionB); err != nil {
		t.Fatalf("SelectAnswer(0): %v", err)
	}
	if err := s.SelectAnswer(1, model.OptionA); err != nil {
		t.Fatalf("SelectAnswer(1): %v", err)
	}

	result, err := s.Submit(true)
	if err != nil {
		t.Fatalf("Submit(true): %v", err)
	}

	if result.Score != 1 {
		t.Errorf("score = %d, want 1", result.Score)
	}
	if result.TotalQuestions != 3 {
		t.Errorf("total questions = %d, want 3", result.TotalQuestions)
	}
	if result.PointsEarned != 1 {
		t.Errorf("points earned = %d, want 1", result.PointsEarned)
	}
	if result.TotalPoints != 6 {
		t.Errorf("total points = %d, want 6 (unanswered stay in the denominator)", result.TotalPoints)
	}

	sum := 0
	for _, tally := range result.CategoryScores {
		sum += tally.Total
		if tally.Correct > tally.Total {
			t.Errorf("tally correct %d exceeds total %d", tally.Correct, tally.Total)
		}
	}
	if sum != 3 {
		t.Errorf("category tallies sum = %d, want 3", sum)
	}
	if result.Score > result.TotalQuestions {
		t.Errorf("score %d exceeds total %d", result.Score, result.TotalQuestions)
	}
}

func TestSubmittedSessionIsTerminal(t *testing.T) {
	s := startedSession(t, 600)
	if _, err := s.Submit(true); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := s.SelectAnswer(0, model.OptionA); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("SelectAnswer after submit = %v, want ErrNotInProgress", err)
	}
	if err := s.Navigate(1); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("Navigate after submit = %v, want ErrNotInProgress", err)
	}
	if _, err := s.Tick(); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("Tick after submit = %v, want ErrNotInProgress", err)
	}
	if _, err := s.Submit(true); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("second Submit = %v, want ErrNotInProgress", err)
	}
}

func TestTickCountdown(t *testing.T) {
	s := startedSession(t, 3)

	for i := 0; i < 2; i++ {
		result, err := s.Tick()
		if err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
		if result != nil {
			t.Fatalf("Tick %d returned a result before time ran out", i)
		}
	}
	if s.Remaining() != 1 {
		t.Errorf("remaining = %d, want 1", s.Remaining())
	}

	// Final tick hits zero and force-submits, bypassing confirmation even
	// though every question is unanswered.
	result, err := s.Tick()
	if err != nil {
		t.Fatalf("final Tick: %v", err)
	}
	if result == nil {
		t.Fatal("final Tick returned no result")
	}
	if s.State() != StateSubmitted {
		t.Errorf("state = %q, want submitted", s.State())
	}
	if result.TimeTaken != 3 {
		t.Errorf("time taken = %d, want full duration 3", result.TimeTaken)
	}
	if result.Score != 0 {
		t.Errorf("score = %d, want 0", result.Score)
	}
}

func TestElapsedTime(t *testing.T) {
	s := startedSession(t, 600)
	for i := 0; i < 45; i++ {
		if _, err := s.Tick(); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	result, err := s.Submit(true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.TimeTaken != 45 {
		t.Errorf("time taken = %d, want 45", result.TimeTaken)
	}
}
