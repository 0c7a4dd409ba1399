// Package exam implements the exam attempt lifecycle: a session state
// machine holding one user's question set, answers, tallies and countdown,
// and a manager that owns the live sessions and the timer.
package exam

import (
	"errors"
	"fmt"
	"time"

	"github.com/examdesk/examdesk/internal/model"
)

// State is the lifecycle state of a session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
)

var (
	// ErrEmptyQuestionSet is returned by Start when no questions are given.
	ErrEmptyQuestionSet = errors.New("no questions available")
	// ErrNotInProgress is returned when an operation requires an active session.
	ErrNotInProgress = errors.New("exam is not in progress")
	// ErrPositionOutOfRange is returned for navigation or answers outside the set.
	ErrPositionOutOfRange = errors.New("question position out of range")
	// ErrInvalidOption is returned when the answer is not one of A, B, C, D.
	ErrInvalidOption = errors.New("invalid option letter")
)

// UnansweredError reports that Submit needs confirmation because questions
// remain unanswered. The caller decides whether to retry with force.
type UnansweredError struct {
	Count int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("%d unanswered questions, confirmation required", e.Count)
}

// Result is the finalized outcome of a session.
type Result struct {
	Score            int
	TotalQuestions   int
	PointsEarned     int
	TotalPoints      int
	TimeTaken        int
	CategoryScores   map[string]model.Tally
	DifficultyScores map[string]model.Tally
	Questions        []model.Question
	Answers          map[int]model.OptionLetter
}

// Session is the in-memory state of a single exam attempt. It is not safe
// for concurrent use; the Manager serializes access to it.
type Session struct {
	state     State
	questions []model.Question
	answers   map[int]model.OptionLetter
	position  int
	duration  int
	remaining int
	startedAt time.Time

	categoryScores   map[string]model.Tally
	difficultyScores map[string]model.Tally
}

// NewSession returns a session in the NotStarted state.
func NewSession() *Session {
	return &Session{state: StateNotStarted}
}

// Start initializes the attempt with an ordered, non-empty question set and
// a countdown of durationSeconds. Tally totals are seeded here so they sum
// to the question count no matter how many questions end up answered.
func (s *Session) Start(questions []model.Question, durationSeconds int) error {
	if len(questions) == 0 {
		return ErrEmptyQuestionSet
	}
	if s.state == StateInProgress {
		return errors.New("exam already in progress")
	}

	s.questions = questions
	s.answers = make(map[int]model.OptionLetter)
	s.position = 0
	s.duration = durationSeconds
	s.remaining = durationSeconds
	s.startedAt = time.Now()
	s.categoryScores = make(map[string]model.Tally)
	s.difficultyScores = make(map[string]model.Tally)

	for _, q := range questions {
		cat := s.categoryScores[q.Category]
		cat.Total++
		s.categoryScores[q.Category] = cat

		diff := s.difficultyScores[string(q.Difficulty)]
		diff.Total++
		s.difficultyScores[string(q.Difficulty)] = diff
	}

	s.state = StateInProgress
	return nil
}

// State returns the session's lifecycle state.
func (s *Session) State() State { return s.state }

// Position returns the current question index.
func (s *Session) Position() int { return s.position }

// Remaining returns the remaining seconds.
func (s *Session) Remaining() int { return s.remaining }

// Questions returns the attempt's question set in order.
func (s *Session) Questions() []model.Question { return s.questions }

// Answer returns the recorded answer for a position, if any.
func (s *Session) Answer(position int) (model.OptionLetter, bool) {
	letter, ok := s.answers[position]
	return letter, ok
}

// AnsweredCount returns the number of answered positions.
func (s *Session) AnsweredCount() int { return len(s.answers) }

// SelectAnswer records or overwrites the answer for the given position.
// The position does not need to be the current one. Re-selecting the same
// letter is a no-op.
func (s *Session) SelectAnswer(position int, letter model.OptionLetter) error {
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if position < 0 || position >= len(s.questions) {
		return ErrPositionOutOfRange
	}
	if !letter.Valid() {
		return ErrInvalidOption
	}
	s.answers[position] = letter
	return nil
}

// Navigate moves the current-position pointer. Out-of-range requests are
// rejected without side effects.
func (s *Session) Navigate(position int) error {
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if position < 0 || position >= len(s.questions) {
		return ErrPositionOutOfRange
	}
	s.position = position
	return nil
}

// Tick decrements the remaining time by one second. When the countdown
// reaches zero the session is force-submitted and the result returned;
// otherwise the result is nil.
func (s *Session) Tick() (*Result, error) {
	if s.state != StateInProgress {
		return nil, ErrNotInProgress
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return nil, nil
	}
	return s.Submit(true)
}

// Submit finalizes the attempt. Without force, unanswered questions make it
// return an UnansweredError and leave the session in progress. Scoring is a
// single pass: correct count, points earned and tally corrects are all
// computed together, and total points covers the full question set whether
// or not every question was answered.
func (s *Session) Submit(force bool) (*Result, error) {
	if s.state != StateInProgress {
		return nil, ErrNotInProgress
	}

	if unanswered := len(s.questions) - len(s.answers); unanswered > 0 && !force {
		return nil, &UnansweredError{Count: unanswered}
	}

	result := &Result{
		TotalQuestions:   len(s.questions),
		TimeTaken:        s.duration - s.remaining,
		CategoryScores:   s.categoryScores,
		DifficultyScores: s.difficultyScores,
		Questions:        s.questions,
		Answers:          s.answers,
	}

	for i, q := range s.questions {
		result.TotalPoints += q.Points
		answer, ok := s.answers[i]
		if !ok || answer != q.CorrectOption {
			continue
		}
		result.Score++
		result.PointsEarned += q.Points

		cat := s.categoryScores[q.Category]
		cat.Correct++
		s.categoryScores[q.Category] = cat

		diff := s.difficultyScores[string(q.Difficulty)]
		diff.Correct++
		s.difficultyScores[string(q.Difficulty)] = diff
	}

	s.state = StateSubmitted
	return result, nil
}
