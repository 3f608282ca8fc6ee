package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/voxprep/voxprep/internal/agent"
	"github.com/voxprep/voxprep/internal/interview"
	"github.com/voxprep/voxprep/internal/model"
	"github.com/voxprep/voxprep/internal/room"
)

// stubQuestions numbers questions by call order so tests can tell a
// prefetched question from a synchronously computed one.
type stubQuestions struct {
	mu    sync.Mutex
	calls int
}

func (s *stubQuestions) NextQuestion(_ context.Context, _ model.InterviewConfig, _ []model.GeneratedQuestion, _ []model.InterviewResponse, questionNumber int) model.GeneratedQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return model.GeneratedQuestion{
		ID:   fmt.Sprintf("q-%d", s.calls),
		Text: fmt.Sprintf("Tell me about topic aspect number %d in some depth.", questionNumber),
		Metadata: model.QuestionMetadata{
			Difficulty: model.DifficultyMedium,
			FocusArea:  "fundamentals",
		},
	}
}

func (s *stubQuestions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubAnalyzer struct {
	mu    sync.Mutex
	calls int
	meta  agent.SessionMeta
}

func (s *stubAnalyzer) Analyze(_ context.Context, sessionID string, responses []model.InterviewResponse, _ model.InterviewConfig, meta agent.SessionMeta) *interview.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.meta = meta
	return &interview.Report{
		SessionID: sessionID,
		Overall:   model.OverallAnalysis{OverallScore: 72, PerformanceLevel: model.PerformanceGood},
		Metadata:  interview.ReportMetadata{ResponsesAnalyzed: len(responses)},
	}
}

type stubRooms struct {
	createErr error
}

func (s *stubRooms) CreateRoom(_ context.Context, _ model.InterviewConfig, participant string) (room.Room, error) {
	if s.createErr != nil {
		return room.Room{}, s.createErr
	}
	return room.Room{ID: "room-1", ParticipantToken: "token-" + participant}, nil
}

func (s *stubRooms) IssueReconnectToken(_ context.Context, roomID, participant string) (string, error) {
	return "reissued-" + roomID + "-" + participant, nil
}

func testConfig() model.InterviewConfig {
	return model.InterviewConfig{
		Topic:           "Go concurrency",
		Style:           model.StyleTechnical,
		ExperienceLevel: model.LevelJunior,
		DurationMinutes: 30, // max questions = 5
	}
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *stubQuestions, *stubAnalyzer) {
	t.Helper()
	q := &stubQuestions{}
	a := &stubAnalyzer{}
	return NewManager(NewMemoryStore(), q, a, opts...), q, a
}

// waitForCache polls until the prefetch goroutine has parked the next
// question on the session.
func waitForCache(t *testing.T, m *Manager, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s, err := m.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if s.CachedNextQuestion != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("prefetched question never arrived")
}

func TestStartTextMode(t *testing.T) {
	m, _, _ := newTestManager(t)

	res, err := m.Start(context.Background(), testConfig(), "alex")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.Room != nil {
		t.Errorf("text mode returned a room: %+v", res.Room)
	}
	s := res.Session
	if s.Status != model.StatusActive {
		t.Errorf("status = %s, want active", s.Status)
	}
	if len(s.Questions) != 1 || s.CurrentQuestionIndex != 1 {
		t.Errorf("got %d questions at index %d, want 1 at 1", len(s.Questions), s.CurrentQuestionIndex)
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	m, _, _ := newTestManager(t)

	cfg := testConfig()
	cfg.Topic = ""
	if _, err := m.Start(context.Background(), cfg, "alex"); err == nil {
		t.Fatal("Start accepted an empty topic")
	}
}

func TestStartWithRoomWaitsForTransport(t *testing.T) {
	m, _, _ := newTestManager(t, WithRooms(&stubRooms{}))

	res, err := m.Start(context.Background(), testConfig(), "alex")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.Room == nil || res.Room.ID != "room-1" {
		t.Fatalf("room = %+v, want room-1", res.Room)
	}
	if res.Session.Status != model.StatusWaiting {
		t.Fatalf("status = %s, want waiting", res.Session.Status)
	}

	if err := m.Activate(res.Session.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	s, _ := m.Status(res.Session.ID)
	if s.Status != model.StatusActive {
		t.Errorf("status after activate = %s, want active", s.Status)
	}

	var stateErr *StateError
	if err := m.Activate(res.Session.ID); !errors.As(err, &stateErr) {
		t.Errorf("second Activate error = %v, want StateError", err)
	}
}

func TestStartRoomProvisioningFailure(t *testing.T) {
	m, _, _ := newTestManager(t, WithRooms(&stubRooms{createErr: errors.New("provider down")}))

	if _, err := m.Start(context.Background(), testConfig(), "alex"); err == nil {
		t.Fatal("Start succeeded despite room provisioning failure")
	}
}

func TestSubmitResponseLifecycle(t *testing.T) {
	m, _, _ := newTestManager(t)
	res, err := m.Start(context.Background(), testConfig(), "alex")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := res.Session.ID

	// max questions for this config is 5: four continuations, then done.
	for i := 1; i <= 4; i++ {
		sub, err := m.SubmitResponse(context.Background(), id, "an answer with a bit of substance", SubmitMeta{DurationMs: 40_000})
		if err != nil {
			t.Fatalf("SubmitResponse %d: %v", i, err)
		}
		if !sub.ShouldContinue {
			t.Fatalf("submission %d ended the interview early", i)
		}
		if sub.NextQuestion == nil || sub.NextQuestion.Text == "" {
			t.Fatalf("submission %d returned no next question", i)
		}
		if sub.Progress.ResponsesRecorded != i || sub.Progress.MaxQuestions != 5 {
			t.Fatalf("progress after %d = %+v", i, sub.Progress)
		}
	}

	final, err := m.SubmitResponse(context.Background(), id, "the closing answer", SubmitMeta{DurationMs: 40_000})
	if err != nil {
		t.Fatalf("final SubmitResponse: %v", err)
	}
	if final.ShouldContinue || final.NextQuestion != nil {
		t.Fatalf("final submission should complete the interview, got %+v", final)
	}

	s, _ := m.Status(id)
	if s.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", s.Status)
	}
	if s.CompletedAt == nil {
		t.Error("CompletedAt not set on completion")
	}
	if len(s.Questions) != 5 || len(s.Responses) != 5 {
		t.Errorf("got %d questions / %d responses, want 5 / 5", len(s.Questions), len(s.Responses))
	}

	var stateErr *StateError
	if _, err := m.SubmitResponse(context.Background(), id, "too late", SubmitMeta{}); !errors.As(err, &stateErr) {
		t.Errorf("submit after completion error = %v, want StateError", err)
	}
}

func TestSubmitResponseUnknownSession(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.SubmitResponse(context.Background(), "nope", "hi", SubmitMeta{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPrefetchServesCachedQuestion(t *testing.T) {
	m, q, _ := newTestManager(t)
	res, err := m.Start(context.Background(), testConfig(), "alex")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := res.Session.ID

	// Start issued question 1 and kicked off the prefetch for question 2.
	waitForCache(t, m, id)
	before := q.count()

	sub, err := m.SubmitResponse(context.Background(), id, "answer one", SubmitMeta{})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if sub.NextQuestion.ID != "q-2" {
		t.Errorf("next question = %s, want the prefetched q-2", sub.NextQuestion.ID)
	}

	// Serving from cache must not have computed a question inline; only
	// the follow-up prefetch for question 3 may add a call.
	waitForCache(t, m, id)
	if got := q.count(); got != before+1 {
		t.Errorf("question source calls = %d, want %d (prefetch only)", got, before+1)
	}
}

func TestPauseResume(t *testing.T) {
	m, _, _ := newTestManager(t)
	res, err := m.Start(context.Background(), testConfig(), "alex")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := res.Session.ID

	if _, err := m.SubmitResponse(context.Background(), id, "first answer", SubmitMeta{}); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if err := m.Pause(id); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	var stateErr *StateError
	if _, err := m.SubmitResponse(context.Background(), id, "while paused", SubmitMeta{}); !errors.As(err, &stateErr) {
		t.Fatalf("submit while paused error = %v, want StateError", err)
	}
	if err := m.Pause(id); !errors.As(err, &stateErr) {
		t.Fatalf("double pause error = %v, want StateError", err)
	}

	if err := m.Resume(id); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	s, _ := m.Status(id)
	if s.Status != model.StatusActive {
		t.Errorf("status after resume = %s, want active", s.Status)
	}
	if s.PausedAt != nil {
		t.Error("PausedAt still set after resume")
	}
	if s.CurrentQuestionIndex != 2 || len(s.Responses) != 1 {
		t.Errorf("pause/resume lost progress: index %d, %d responses", s.CurrentQuestionIndex, len(s.Responses))
	}

	if err := m.Resume(id); !errors.As(err, &stateErr) {
		t.Errorf("resume while active error = %v, want StateError", err)
	}
}

func TestEndInterviewEarly(t *testing.T) {
	m, _, a := newTestManager(t)
	res, err := m.Start(context.Background(), testConfig(), "alex")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := res.Session.ID

	for i := 0; i < 2; i++ {
		if _, err := m.SubmitResponse(context.Background(), id, "an answer", SubmitMeta{DurationMs: 30_000}); err != nil {
			t.Fatalf("SubmitResponse: %v", err)
		}
	}

	result, err := m.EndInterview(context.Background(), id)
	if err != nil {
		t.Fatalf("EndInterview: %v", err)
	}
	if !result.EndedEarly {
		t.Error("two of five answers should count as ended early")
	}
	if result.CompletionRate != 0.4 {
		t.Errorf("completion rate = %g, want 0.4", result.CompletionRate)
	}
	if result.Report == nil || result.Report.SessionID != id {
		t.Fatalf("report = %+v", result.Report)
	}
	if a.meta.QuestionsAnswered != 2 || a.meta.AvgResponseMs != 30_000 {
		t.Errorf("analyzer meta = %+v", a.meta)
	}

	s, _ := m.Status(id)
	if s.Status != model.StatusCompleted {
		t.Errorf("status after end = %s, want completed", s.Status)
	}

	// Ending again must not error; the orchestrator dedupes the report.
	if _, err := m.EndInterview(context.Background(), id); err != nil {
		t.Fatalf("second EndInterview: %v", err)
	}
}

func TestEndInterviewWhilePaused(t *testing.T) {
	m, _, _ := newTestManager(t)
	res, err := m.Start(context.Background(), testConfig(), "alex")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Pause(res.Session.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := m.EndInterview(context.Background(), res.Session.ID); err != nil {
		t.Fatalf("EndInterview from paused: %v", err)
	}
	s, _ := m.Status(res.Session.ID)
	if s.PausedAt != nil {
		t.Error("PausedAt still set after end")
	}
}

func TestReconnect(t *testing.T) {
	t.Run("audio session gets fresh token", func(t *testing.T) {
		m, _, _ := newTestManager(t, WithRooms(&stubRooms{}))
		res, err := m.Start(context.Background(), testConfig(), "alex")
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		token, err := m.Reconnect(context.Background(), res.Session.ID, "alex")
		if err != nil {
			t.Fatalf("Reconnect: %v", err)
		}
		if token != "reissued-room-1-alex" {
			t.Errorf("token = %q", token)
		}
	})

	t.Run("text mode has no room", func(t *testing.T) {
		m, _, _ := newTestManager(t)
		res, err := m.Start(context.Background(), testConfig(), "alex")
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := m.Reconnect(context.Background(), res.Session.ID, "alex"); !errors.Is(err, ErrNoRoom) {
			t.Errorf("error = %v, want ErrNoRoom", err)
		}
	})

	t.Run("completed session refuses", func(t *testing.T) {
		m, _, _ := newTestManager(t, WithRooms(&stubRooms{}))
		res, err := m.Start(context.Background(), testConfig(), "alex")
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := m.EndInterview(context.Background(), res.Session.ID); err != nil {
			t.Fatalf("EndInterview: %v", err)
		}
		var stateErr *StateError
		if _, err := m.Reconnect(context.Background(), res.Session.ID, "alex"); !errors.As(err, &stateErr) {
			t.Errorf("error = %v, want StateError", err)
		}
	})
}

type failingArchiver struct{ err error }

func (f *failingArchiver) SaveReport(*model.Session, *interview.Report) error { return f.err }

func TestEndInterviewSurvivesArchiveFailure(t *testing.T) {
	m, _, _ := newTestManager(t, WithArchiver(&failingArchiver{err: errors.New("disk full")}))
	res, err := m.Start(context.Background(), testConfig(), "alex")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.EndInterview(context.Background(), res.Session.ID); err != nil {
		t.Fatalf("EndInterview failed on archive error: %v", err)
	}
}

func TestRemove(t *testing.T) {
	m, _, _ := newTestManager(t)
	res, err := m.Start(context.Background(), testConfig(), "alex")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Remove(res.Session.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := m.Status(res.Session.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Status after Remove = %v, want ErrNotFound", err)
	}
}
