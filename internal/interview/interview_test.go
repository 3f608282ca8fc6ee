package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voxprep/voxprep/internal/agent"
	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/model"
)

// routedCaller dispatches on the agent role in the system prompt so one
// fake can serve every agent behind an orchestrator.
type routedCaller struct {
	mu     sync.Mutex
	counts map[string]int
	handle func(kind string, call int) (string, error)
}

func newRoutedCaller(handle func(kind string, call int) (string, error)) *routedCaller {
	return &routedCaller{counts: make(map[string]int), handle: handle}
}

func (r *routedCaller) Call(_ context.Context, _ []llm.Message, systemPrompt string) (string, error) {
	kind := kindOf(systemPrompt)
	r.mu.Lock()
	r.counts[kind]++
	n := r.counts[kind]
	r.mu.Unlock()
	return r.handle(kind, n)
}

func (r *routedCaller) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[kind]
}

func kindOf(systemPrompt string) string {
	switch {
	case strings.Contains(systemPrompt, "interview designer"):
		return "topic"
	case strings.Contains(systemPrompt, "professional interviewer"):
		return "generate"
	case strings.Contains(systemPrompt, "quality reviewer"):
		return "validate"
	case strings.Contains(systemPrompt, "interview strategist"):
		return "plan"
	case strings.Contains(systemPrompt, "reviewing one answer"):
		return "response"
	case strings.Contains(systemPrompt, "final report"):
		return "overall"
	}
	return "unknown"
}

const topicReply = `{"main_concepts": ["components", "hooks", "state", "rendering"],
	"skills": ["design"], "focus_areas": ["architecture", "performance"],
	"relevance_keywords": ["component", "state"], "complexity": "medium",
	"question_categories": ["conceptual", "practical"]}`

const questionReply = `{"question": "How does React decide when to re-render a component?", "topic_relevance": "high"}`

func testConfig() model.InterviewConfig {
	return model.InterviewConfig{
		Topic:           "React",
		Style:           model.StyleTechnical,
		ExperienceLevel: model.LevelJunior,
		DurationMinutes: 30,
	}
}

func TestFastPipelineCachesTopicAnalysis(t *testing.T) {
	caller := newRoutedCaller(func(kind string, _ int) (string, error) {
		switch kind {
		case "topic":
			return topicReply, nil
		case "generate":
			return questionReply, nil
		}
		return "", errors.New("unexpected agent: " + kind)
	})
	o := NewQuestionOrchestrator(caller, PipelineFast)
	cfg := testConfig()

	q1 := o.NextQuestion(context.Background(), cfg, nil, nil, 1)
	q2 := o.NextQuestion(context.Background(), cfg, []model.GeneratedQuestion{q1}, nil, 2)

	if q1.Text == "" || q2.Text == "" {
		t.Fatal("questions must never be empty")
	}
	if got := caller.count("topic"); got != 1 {
		t.Errorf("topic analysis should run once per session key, ran %d times", got)
	}
	if got := caller.count("generate"); got != 2 {
		t.Errorf("expected 2 generation calls, got %d", got)
	}
	if caller.count("plan") != 0 || caller.count("validate") != 0 {
		t.Error("fast pipeline must skip the planning and validation agents")
	}
}

func TestNextQuestionSurvivesTotalProviderFailure(t *testing.T) {
	caller := newRoutedCaller(func(string, int) (string, error) {
		return "", errors.New("provider down")
	})

	for _, mode := range []PipelineMode{PipelineFast, PipelineValidated} {
		t.Run(string(mode), func(t *testing.T) {
			o := NewQuestionOrchestrator(caller, mode)
			q := o.NextQuestion(context.Background(), testConfig(), nil, nil, 1)
			if strings.TrimSpace(q.Text) == "" {
				t.Error("caller must never see an empty question")
			}
		})
	}
}

func TestValidatedPipelineRegeneratesOnReject(t *testing.T) {
	caller := newRoutedCaller(func(kind string, call int) (string, error) {
		switch kind {
		case "topic":
			return topicReply, nil
		case "plan":
			return `{"category": "conceptual", "difficulty": "medium", "focus_area": "architecture", "concepts": ["state"]}`, nil
		case "generate":
			if call == 1 {
				return `{"question": "What is your favorite movie about programming and why?"}`, nil
			}
			return questionReply, nil
		case "validate":
			return `{"is_valid": false, "relevance_score": 20, "difficulty_score": 50, "clarity_score": 50, "uniqueness_score": 50, "decision": "reject", "reason": "off topic"}`, nil
		}
		return "", errors.New("unexpected agent: " + kind)
	})
	o := NewQuestionOrchestrator(caller, PipelineValidated)

	q := o.NextQuestion(context.Background(), testConfig(), nil, nil, 1)
	if !strings.Contains(q.Text, "re-render") {
		t.Errorf("expected the regenerated question, got %q", q.Text)
	}
	if got := caller.count("generate"); got != 2 {
		t.Errorf("expected exactly one regeneration, got %d generate calls", got)
	}
	if got := caller.count("validate"); got != 1 {
		t.Errorf("the retry must be accepted without re-validation, got %d validate calls", got)
	}
}

func testResponses(n int) []model.InterviewResponse {
	out := make([]model.InterviewResponse, n)
	for i := range out {
		out[i] = model.InterviewResponse{
			QuestionID:   "q" + string(rune('1'+i)),
			QuestionText: "Explain state management in React components",
			ResponseText: "First we lift state up, then we use a reducer, for example with context.",
			Timestamp:    time.Now(),
			DurationMs:   45000,
		}
	}
	return out
}

const responseReply = `{"clarity": 80, "structure": 75, "technical": 70, "communication": 80,
	"confidence": 85, "relevance": 90, "score": 80, "feedback": "Solid answer.",
	"strengths": ["clear"], "improvements": ["more depth"]}`

const overallReply = `{"overall_score": 78, "improvement": "improving", "consistency": "high",
	"adaptability": "moderate", "strengths": ["clear"], "improvements": ["depth"],
	"recommendations": ["practice"], "next_steps": ["review"], "executive_summary": "Good session."}`

func TestAnalyzeBuildsFullReport(t *testing.T) {
	caller := newRoutedCaller(func(kind string, _ int) (string, error) {
		switch kind {
		case "response":
			return responseReply, nil
		case "overall":
			return overallReply, nil
		}
		return "", errors.New("unexpected agent: " + kind)
	})
	o := NewAnalysisOrchestrator(caller)

	report := o.Analyze(context.Background(), "sess-1", testResponses(3), testConfig(), agent.SessionMeta{})
	if len(report.QuestionReviews) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(report.QuestionReviews))
	}
	if report.Overall.OverallScore != 78 {
		t.Errorf("expected overall score 78, got %v", report.Overall.OverallScore)
	}
	if report.Overall.PerformanceLevel != model.PerformanceGood {
		t.Errorf("expected good, got %q", report.Overall.PerformanceLevel)
	}
	if report.Metadata.Method != "agentic" || report.Metadata.ResponsesAnalyzed != 3 || report.Metadata.FallbackResponses != 0 {
		t.Errorf("unexpected metadata: %+v", report.Metadata)
	}
	if report.Metadata.GeneratedAt.IsZero() {
		t.Error("report must be timestamped")
	}
}

func TestAnalyzeIdempotentPerSession(t *testing.T) {
	caller := newRoutedCaller(func(kind string, _ int) (string, error) {
		switch kind {
		case "response":
			return responseReply, nil
		case "overall":
			return overallReply, nil
		}
		return "", errors.New("unexpected agent")
	})
	o := NewAnalysisOrchestrator(caller)

	r1 := o.Analyze(context.Background(), "sess-1", testResponses(2), testConfig(), agent.SessionMeta{})
	r2 := o.Analyze(context.Background(), "sess-1", testResponses(2), testConfig(), agent.SessionMeta{})
	if r1 != r2 {
		t.Error("second read must return the cached report")
	}
	if got := caller.count("overall"); got != 1 {
		t.Errorf("overall analysis should run once, ran %d times", got)
	}
}

func TestAnalyzePerResponseFailureDoesNotAbort(t *testing.T) {
	caller := newRoutedCaller(func(kind string, call int) (string, error) {
		switch kind {
		case "response":
			if call == 2 {
				return "", errors.New("transient failure")
			}
			return responseReply, nil
		case "overall":
			return overallReply, nil
		}
		return "", errors.New("unexpected agent")
	})
	o := NewAnalysisOrchestrator(caller)

	report := o.Analyze(context.Background(), "sess-2", testResponses(3), testConfig(), agent.SessionMeta{})
	if len(report.QuestionReviews) != 3 {
		t.Fatalf("one failed analysis must not shrink the report, got %d reviews", len(report.QuestionReviews))
	}
	if report.Metadata.FallbackResponses != 1 {
		t.Errorf("expected 1 fallback response, got %d", report.Metadata.FallbackResponses)
	}
	for i, r := range report.QuestionReviews {
		if r.Feedback == "" {
			t.Errorf("review %d has no feedback", i)
		}
		if r.Score < 0 || r.Score > 100 {
			t.Errorf("review %d score out of range: %v", i, r.Score)
		}
	}
}

func TestAnalyzeTotalFailureStillReports(t *testing.T) {
	caller := newRoutedCaller(func(string, int) (string, error) {
		return "", errors.New("provider down")
	})
	o := NewAnalysisOrchestrator(caller)

	report := o.Analyze(context.Background(), "sess-3", testResponses(2), testConfig(), agent.SessionMeta{})
	if report.Metadata.Method != "fallback" {
		t.Errorf("expected fallback method, got %q", report.Metadata.Method)
	}
	if report.Overall.OverallScore < 0 || report.Overall.OverallScore > 100 {
		t.Errorf("overall score out of range: %v", report.Overall.OverallScore)
	}
	if report.Overall.PerformanceLevel != model.PerformanceLevelForScore(report.Overall.OverallScore) {
		t.Error("performance level must match the threshold table")
	}
	if report.Overall.ExecutiveSummary == "" {
		t.Error("fallback report must include an executive summary")
	}
}
