package exam

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/examdesk/examdesk/internal/config"
	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/store"
)

// Manager owns at most one live exam session per user, drives the
// one-second countdown, and persists results on submission. The session
// map is mutex-guarded because the ticker goroutine and request handlers
// both reach it.
type Manager struct {
	store *store.Store
	cfg   config.Config

	mu      sync.Mutex
	active  map[int64]*Session
	timeout chan int64 // user IDs whose exams were auto-submitted
}

// NewManager creates a session manager.
func NewManager(s *store.Store, cfg config.Config) *Manager {
	return &Manager{
		store:   s,
		cfg:     cfg,
		active:  make(map[int64]*Session),
		timeout: make(chan int64, 16),
	}
}

// Timeouts delivers the user ID of every exam force-submitted by the
// countdown, so the presentation layer can notify the user.
func (m *Manager) Timeouts() <-chan int64 { return m.timeout }

// Start begins an attempt for the user: picks questions per the configured
// count, filters and randomization, and starts the countdown. Any session
// the user already has live is replaced unscored; callers that want to
// refuse a second start check Snapshot first.
func (m *Manager) Start(userID int64) (*Session, error) {
	questions, err := m.store.PickQuestions(
		m.cfg.QuestionsPerExam,
		m.cfg.Category,
		m.cfg.Difficulty,
		m.cfg.RandomizeQuestions,
	)
	if err != nil {
		return nil, err
	}

	sess := NewSession()
	if err := sess.Start(questions, m.cfg.ExamDuration); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.active[userID] = sess
	m.mu.Unlock()

	slog.Info("exam started", "user_id", userID, "questions", len(questions), "duration", m.cfg.ExamDuration)
	return sess, nil
}

// Session returns the user's live session, or nil.
func (m *Manager) Session(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[userID]
}

// Snapshot is a point-in-time view of a live session, safe to read after
// the lock is released.
type Snapshot struct {
	Position  int
	Remaining int
	Total     int
	Questions []model.Question
	Answers   map[int]model.OptionLetter
}

// Snapshot copies the user's live session state, or returns false when the
// user has no exam in progress.
func (m *Manager) Snapshot(userID int64) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.active[userID]
	if sess == nil {
		return Snapshot{}, false
	}
	answers := make(map[int]model.OptionLetter, len(sess.answers))
	for i, letter := range sess.answers {
		answers[i] = letter
	}
	return Snapshot{
		Position:  sess.position,
		Remaining: sess.remaining,
		Total:     len(sess.questions),
		Questions: sess.questions,
		Answers:   answers,
	}, true
}

// SelectAnswer records an answer in the user's live session.
func (m *Manager) SelectAnswer(userID int64, position int, letter model.OptionLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.active[userID]
	if sess == nil {
		return ErrNotInProgress
	}
	return sess.SelectAnswer(position, letter)
}

// Navigate moves the user's current-question pointer.
func (m *Manager) Navigate(userID int64, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.active[userID]
	if sess == nil {
		return ErrNotInProgress
	}
	return sess.Navigate(position)
}

// Outcome is what Submit hands back: the persisted record plus the
// session's question set and answers, which exist only in memory and are
// needed for the post-submission answer review.
type Outcome struct {
	Record    *model.ExamResult
	Questions []model.Question
	Answers   map[int]model.OptionLetter
}

// Submit finalizes the user's attempt and persists the result. Without
// force it propagates the UnansweredError for the caller to confirm.
func (m *Manager) Submit(userID int64, force bool) (*Outcome, error) {
	m.mu.Lock()
	sess := m.active[userID]
	if sess == nil {
		m.mu.Unlock()
		return nil, ErrNotInProgress
	}
	result, err := sess.Submit(force)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	delete(m.active, userID)
	m.mu.Unlock()

	record, err := m.persist(userID, result)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Record:    record,
		Questions: result.Questions,
		Answers:   result.Answers,
	}, nil
}

// Discard drops the user's live session without scoring it (logout).
func (m *Manager) Discard(userID int64) {
	m.mu.Lock()
	delete(m.active, userID)
	m.mu.Unlock()
}

func (m *Manager) persist(userID int64, result *Result) (*model.ExamResult, error) {
	record := model.ExamResult{
		UserID:           userID,
		Score:            result.Score,
		TotalQuestions:   result.TotalQuestions,
		PointsEarned:     result.PointsEarned,
		TotalPoints:      result.TotalPoints,
		TimeTaken:        result.TimeTaken,
		CategoryScores:   result.CategoryScores,
		DifficultyScores: result.DifficultyScores,
		ExamDate:         time.Now(),
	}
	id, err := m.store.SaveResult(record)
	if err != nil {
		return nil, err
	}
	record.ID = id
	slog.Info("exam submitted",
		"user_id", userID,
		"score", record.Score,
		"total", record.TotalQuestions,
		"points", record.PointsEarned,
		"time_taken", record.TimeTaken,
	)
	return &record, nil
}

// Run drives the countdown: every second each live session ticks down, and
// sessions that hit zero are force-submitted and persisted. Blocks until
// the context is canceled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tickAll()
		}
	}
}

func (m *Manager) tickAll() {
	type expired struct {
		userID int64
		result *Result
	}

	m.mu.Lock()
	var done []expired
	for userID, sess := range m.active {
		result, err := sess.Tick()
		if err != nil {
			slog.Warn("tick failed", "user_id", userID, "error", err)
			delete(m.active, userID)
			continue
		}
		if result != nil {
			done = append(done, expired{userID, result})
			delete(m.active, userID)
		}
	}
	m.mu.Unlock()

	for _, e := range done {
		if _, err := m.persist(e.userID, e.result); err != nil {
			slog.Error("failed to persist auto-submitted exam", "user_id", e.userID, "error", err)
		}
		select {
		case m.timeout <- e.userID:
		default:
		}
	}
}
