package archive

import (
	"database/sql"
	"testing"
	"time"

	"github.com/voxprep/voxprep/internal/interview"
	"github.com/voxprep/voxprep/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(id string) *model.Session {
	done := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)
	return &model.Session{
		ID:          id,
		Participant: "alex",
		Config: model.InterviewConfig{
			Topic:           "Go concurrency",
			Style:           model.StyleTechnical,
			ExperienceLevel: model.LevelJunior,
			DurationMinutes: 30,
		},
		Responses:   make([]model.InterviewResponse, 3),
		Status:      model.StatusCompleted,
		CompletedAt: &done,
	}
}

func testReport(id string, score float64) *interview.Report {
	return &interview.Report{
		SessionID: id,
		Overall: model.OverallAnalysis{
			OverallScore:     score,
			PerformanceLevel: model.PerformanceLevelForScore(score),
			ExecutiveSummary: "A solid showing overall.",
		},
		QuestionReviews: []interview.QuestionReview{
			{QuestionID: "q-1", Question: "What is a goroutine?", Score: score},
		},
		Metadata: interview.ReportMetadata{Method: "agentic", ResponsesAnalyzed: 3},
	}
}

func TestSaveAndGetReport(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveReport(testSession("sess-1"), testReport("sess-1", 78)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, err := s.GetReport("sess-1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.SessionID != "sess-1" || got.Overall.OverallScore != 78 {
		t.Errorf("got session %q score %g", got.SessionID, got.Overall.OverallScore)
	}
	if len(got.QuestionReviews) != 1 || got.QuestionReviews[0].Question != "What is a goroutine?" {
		t.Errorf("question reviews did not round-trip: %+v", got.QuestionReviews)
	}
	if got.Metadata.Method != "agentic" {
		t.Errorf("metadata method = %q", got.Metadata.Method)
	}
}

func TestGetReportNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetReport("missing"); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestSaveReportOverwrites(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveReport(testSession("sess-1"), testReport("sess-1", 60)); err != nil {
		t.Fatalf("first SaveReport: %v", err)
	}
	if err := s.SaveReport(testSession("sess-1"), testReport("sess-1", 82)); err != nil {
		t.Fatalf("second SaveReport: %v", err)
	}

	got, err := s.GetReport("sess-1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Overall.OverallScore != 82 {
		t.Errorf("score = %g, want the overwritten 82", got.Overall.OverallScore)
	}

	list, err := s.ListReports()
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected a single row after overwrite, got %d", len(list))
	}
}

func TestListReports(t *testing.T) {
	s := newTestStore(t)

	list, err := s.ListReports()
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty archive, got %d rows", len(list))
	}

	for i, id := range []string{"sess-a", "sess-b"} {
		sess := testSession(id)
		later := sess.CompletedAt.Add(time.Duration(i) * time.Hour)
		sess.CompletedAt = &later
		if err := s.SaveReport(sess, testReport(id, 70)); err != nil {
			t.Fatalf("SaveReport %s: %v", id, err)
		}
	}

	list, err = s.ListReports()
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
	if list[0].SessionID != "sess-b" {
		t.Errorf("expected most recent first, got %q", list[0].SessionID)
	}
	if list[0].Topic != "Go concurrency" || list[0].NumResponses != 3 {
		t.Errorf("summary fields off: %+v", list[0])
	}
	if list[0].PerformanceLevel != model.PerformanceGood {
		t.Errorf("performance level = %q", list[0].PerformanceLevel)
	}
}
