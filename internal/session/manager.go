// Package session owns the interview session lifecycle: the state machine,
// progress accounting, question pre-fetch, and the report at the end.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxprep/voxprep/internal/agent"
	"github.com/voxprep/voxprep/internal/interview"
	"github.com/voxprep/voxprep/internal/model"
	"github.com/voxprep/voxprep/internal/room"
)

// QuestionSource produces the next interview question. Implemented by
// interview.QuestionOrchestrator.
type QuestionSource interface {
	NextQuestion(ctx context.Context, cfg model.InterviewConfig, previousQuestions []model.GeneratedQuestion, previousResponses []model.InterviewResponse, questionNumber int) model.GeneratedQuestion
}

// Analyzer produces the end-of-interview report. Implemented by
// interview.AnalysisOrchestrator.
type Analyzer interface {
	Analyze(ctx context.Context, sessionID string, responses []model.InterviewResponse, cfg model.InterviewConfig, meta agent.SessionMeta) *interview.Report
}

// Archiver persists a completed session's report on teardown.
type Archiver interface {
	SaveReport(s *model.Session, report *interview.Report) error
}

// Manager owns all sessions. Mutating operations are serialized per
// session ID so a response submission racing a pause or reconnect cannot
// lose updates.
type Manager struct {
	store     Store
	questions QuestionSource
	analyzer  Analyzer
	rooms     room.Provider // nil means text mode: no media room
	archiver  Archiver      // optional

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithRooms enables media-room provisioning for new sessions.
func WithRooms(p room.Provider) Option {
	return func(m *Manager) { m.rooms = p }
}

// WithArchiver persists completed reports on interview end.
func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.archiver = a }
}

// NewManager creates a session manager over the given store and
// orchestrators.
func NewManager(store Store, questions QuestionSource, analyzer Analyzer, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		questions: questions,
		analyzer:  analyzer,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// StartResult is returned from Start: the initial session snapshot and,
// for audio sessions, the provisioned room with its credentials.
type StartResult struct {
	Session *model.Session `json:"session"`
	Room    *room.Room     `json:"room,omitempty"`
}

// Start validates the config, generates the first question, and creates
// the session. With a room provider the session waits for the transport
// readiness signal; in text mode it becomes active immediately.
func (m *Manager) Start(ctx context.Context, cfg model.InterviewConfig, participant string) (*StartResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	first := m.questions.NextQuestion(ctx, cfg, nil, nil, 1)

	s := &model.Session{
		ID:                   uuid.NewString(),
		Config:               cfg,
		Participant:          participant,
		StartedAt:            time.Now(),
		CurrentQuestionIndex: 1,
		Questions:            []model.GeneratedQuestion{first},
		Status:               model.StatusActive,
	}

	var rm *room.Room
	if m.rooms != nil {
		r, err := m.rooms.CreateRoom(ctx, cfg, participant)
		if err != nil {
			return nil, fmt.Errorf("provision media room: %w", err)
		}
		rm = &r
		s.RoomID = r.ID
		s.Status = model.StatusWaiting
	}

	if err := m.store.Create(s); err != nil {
		return nil, err
	}
	slog.Info("session started", "session", s.ID, "topic", cfg.Topic,
		"style", cfg.Style, "level", cfg.ExperienceLevel, "status", s.Status)

	m.prefetch(s.ID, cfg, s.Questions, nil)
	return &StartResult{Session: s.Clone(), Room: rm}, nil
}

// Activate moves a waiting session to active once the transport layer
// signals readiness. Text-mode sessions never need it.
func (m *Manager) Activate(sessionID string) error {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.store.Get(sessionID)
	if err != nil {
		return err
	}
	if s.Status != model.StatusWaiting {
		return stateErr(sessionID, "activate", s.Status, model.StatusWaiting)
	}
	s.Status = model.StatusActive
	return m.store.Update(s)
}

// SubmitMeta carries the transport-provided facts about one answer.
type SubmitMeta struct {
	DurationMs    int64
	AudioMetadata map[string]any
}

// Progress reports where the session stands after a submission.
type Progress struct {
	QuestionNumber    int `json:"question_number"`
	MaxQuestions      int `json:"max_questions"`
	ResponsesRecorded int `json:"responses_recorded"`
}

// SubmitResult is returned from SubmitResponse. NextQuestion is nil when
// the interview just completed.
type SubmitResult struct {
	NextQuestion   *model.GeneratedQuestion `json:"next_question,omitempty"`
	ShouldContinue bool                     `json:"should_continue"`
	Progress       Progress                 `json:"progress"`
}

// SubmitResponse records an answer to the current question. If the
// interview should continue it returns the next question, served from the
// one-question-ahead cache when the prefetch finished in time, otherwise
// computed synchronously. When time or question budget is exhausted the
// session completes.
func (m *Manager) SubmitResponse(ctx context.Context, sessionID, text string, meta SubmitMeta) (*SubmitResult, error) {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != model.StatusActive {
		return nil, stateErr(sessionID, "submit response", s.Status, model.StatusActive)
	}

	answered := s.Questions[len(s.Responses)]
	s.Responses = append(s.Responses, model.InterviewResponse{
		QuestionID:    answered.ID,
		QuestionText:  answered.Text,
		ResponseText:  text,
		Timestamp:     time.Now(),
		DurationMs:    meta.DurationMs,
		AudioMetadata: meta.AudioMetadata,
	})

	maxQ := MaxQuestions(s.Config.DurationMinutes, s.Config.ExperienceLevel, s.Config.Style)
	elapsed := time.Since(s.StartedAt) - s.PausedTotal
	budget := time.Duration(s.Config.DurationMinutes) * time.Minute
	shouldContinue := len(s.Responses) < maxQ && elapsed < budget

	result := &SubmitResult{ShouldContinue: shouldContinue}

	if shouldContinue {
		var next model.GeneratedQuestion
		if s.CachedNextQuestion != nil {
			next = *s.CachedNextQuestion
			s.CachedNextQuestion = nil
		} else {
			next = m.questions.NextQuestion(ctx, s.Config, s.Questions, s.Responses, len(s.Questions)+1)
		}
		s.Questions = append(s.Questions, next)
		s.CurrentQuestionIndex++
		result.NextQuestion = &next
	} else {
		now := time.Now()
		s.Status = model.StatusCompleted
		s.CompletedAt = &now
		s.CachedNextQuestion = nil
		slog.Info("session completed", "session", sessionID,
			"responses", len(s.Responses), "max_questions", maxQ)
	}

	result.Progress = Progress{
		QuestionNumber:    s.CurrentQuestionIndex,
		MaxQuestions:      maxQ,
		ResponsesRecorded: len(s.Responses),
	}

	if err := m.store.Update(s); err != nil {
		return nil, err
	}
	if shouldContinue {
		m.prefetch(sessionID, s.Config, s.Questions, s.Responses)
	}
	return result, nil
}

// prefetch computes the question after the one just handed out and caches
// it. Fire-and-forget: it must never block a response, and its result is
// cached or discarded. A cache miss just means the next submission
// computes synchronously.
func (m *Manager) prefetch(sessionID string, cfg model.InterviewConfig, questions []model.GeneratedQuestion, responses []model.InterviewResponse) {
	expected := len(questions)
	go func() {
		next := m.questions.NextQuestion(context.Background(), cfg, questions, responses, expected+1)

		l := m.lockFor(sessionID)
		l.Lock()
		defer l.Unlock()

		s, err := m.store.Get(sessionID)
		if err != nil {
			return // session torn down meanwhile; discard
		}
		// Only cache if the session still sits on the question we
		// prefetched for and nothing raced us here.
		if s.Status == model.StatusCompleted || s.CachedNextQuestion != nil || len(s.Questions) != expected {
			return
		}
		s.CachedNextQuestion = &next
		if err := m.store.Update(s); err != nil {
			slog.Warn("prefetch cache update failed", "session", sessionID, "error", err)
		}
	}()
}

// Pause suspends an active session. Pausing anything else is an error,
// not a silent success.
func (m *Manager) Pause(sessionID string) error {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.store.Get(sessionID)
	if err != nil {
		return err
	}
	if s.Status != model.StatusActive {
		return stateErr(sessionID, "pause", s.Status, model.StatusActive)
	}
	now := time.Now()
	s.Status = model.StatusPaused
	s.PausedAt = &now
	return m.store.Update(s)
}

// Resume reactivates a paused session and accounts the paused time so it
// does not count against the interview duration.
func (m *Manager) Resume(sessionID string) error {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.store.Get(sessionID)
	if err != nil {
		return err
	}
	if s.Status != model.StatusPaused {
		return stateErr(sessionID, "resume", s.Status, model.StatusPaused)
	}
	if s.PausedAt != nil {
		s.PausedTotal += time.Since(*s.PausedAt)
		s.PausedAt = nil
	}
	s.Status = model.StatusActive
	return m.store.Update(s)
}

// Result is the outcome of EndInterview: the full report plus completion
// metrics.
type Result struct {
	Report         *interview.Report `json:"report"`
	CompletionRate float64           `json:"completion_rate"`
	EndedEarly     bool              `json:"ended_early"`
}

// EndInterview forces the session to completed, runs the analysis
// orchestrator over all stored responses, and archives the report if an
// archiver is configured. Idempotent: ending twice returns the same
// cached report.
func (m *Manager) EndInterview(ctx context.Context, sessionID string) (*Result, error) {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if s.Status != model.StatusCompleted {
		now := time.Now()
		if s.PausedAt != nil {
			s.PausedTotal += now.Sub(*s.PausedAt)
			s.PausedAt = nil
		}
		s.Status = model.StatusCompleted
		s.CompletedAt = &now
		s.CachedNextQuestion = nil
		if err := m.store.Update(s); err != nil {
			return nil, err
		}
	}

	completedAt := time.Now()
	if s.CompletedAt != nil {
		completedAt = *s.CompletedAt
	}
	total := completedAt.Sub(s.StartedAt) - s.PausedTotal

	var avgMs int64
	if len(s.Responses) > 0 {
		var sum int64
		for _, r := range s.Responses {
			sum += r.DurationMs
		}
		avgMs = sum / int64(len(s.Responses))
	}

	report := m.analyzer.Analyze(ctx, sessionID, s.Responses, s.Config, agent.SessionMeta{
		Style:             s.Config.Style,
		ExperienceLevel:   s.Config.ExperienceLevel,
		TotalDuration:     total,
		AvgResponseMs:     avgMs,
		QuestionsAnswered: len(s.Responses),
	})

	maxQ := MaxQuestions(s.Config.DurationMinutes, s.Config.ExperienceLevel, s.Config.Style)
	result := &Result{
		Report:         report,
		CompletionRate: float64(len(s.Responses)) / float64(maxQ),
		EndedEarly:     len(s.Responses) < maxQ,
	}

	if m.archiver != nil {
		if err := m.archiver.SaveReport(s, report); err != nil {
			slog.Warn("report archive failed", "session", sessionID, "error", err)
		}
	}
	return result, nil
}

// Reconnect issues a fresh room credential for a session that is still
// running, without touching the question or response history.
func (m *Manager) Reconnect(ctx context.Context, sessionID, participant string) (string, error) {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.store.Get(sessionID)
	if err != nil {
		return "", err
	}
	if s.Status == model.StatusCompleted {
		return "", stateErr(sessionID, "reconnect", s.Status,
			model.StatusWaiting, model.StatusActive, model.StatusPaused)
	}
	if m.rooms == nil || s.RoomID == "" {
		return "", fmt.Errorf("%w: %s", ErrNoRoom, sessionID)
	}
	token, err := m.rooms.IssueReconnectToken(ctx, s.RoomID, participant)
	if err != nil {
		return "", fmt.Errorf("reissue room credential: %w", err)
	}
	return token, nil
}

// Status returns a read-only snapshot of the session.
func (m *Manager) Status(sessionID string) (*model.Session, error) {
	return m.store.Get(sessionID)
}

// Remove tears the session down, deleting it from the store. The report
// was archived on EndInterview; live state is gone after this.
func (m *Manager) Remove(sessionID string) error {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	if err := m.store.Delete(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.locks, sessionID)
	m.mu.Unlock()
	return nil
}
