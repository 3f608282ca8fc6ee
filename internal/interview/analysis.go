package interview

import (
	"context"
	"sync"
	"time"

	"github.com/voxprep/voxprep/internal/agent"
	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/model"
)

// QuestionReview pairs one question and answer with its assessment in the
// final report.
type QuestionReview struct {
	QuestionID   string   `json:"question_id"`
	Question     string   `json:"question"`
	Response     string   `json:"response"`
	Score        float64  `json:"score"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// ReportMetadata stamps how and when a report was produced.
type ReportMetadata struct {
	GeneratedAt       time.Time `json:"generated_at"`
	Method            string    `json:"method"` // "agentic" or "fallback"
	ResponsesAnalyzed int       `json:"responses_analyzed"`
	FallbackResponses int       `json:"fallback_responses"`
}

// Report is the full end-of-interview analysis.
type Report struct {
	SessionID       string                `json:"session_id"`
	Overall         model.OverallAnalysis `json:"overall"`
	QuestionReviews []QuestionReview      `json:"question_reviews"`
	Metadata        ReportMetadata        `json:"metadata"`
}

// AnalysisOrchestrator fans the response analyzer out over every stored
// response, synthesizes the overall analysis, and caches the finished
// report per session for idempotent re-reads.
type AnalysisOrchestrator struct {
	responses *agent.ResponseAnalyzer
	overall   *agent.OverallAnalyzer

	mu      sync.Mutex
	reports map[string]*Report
}

// NewAnalysisOrchestrator wires the analysis-side agents onto one LLM
// caller.
func NewAnalysisOrchestrator(c llm.Caller) *AnalysisOrchestrator {
	return &AnalysisOrchestrator{
		responses: agent.NewResponseAnalyzer(c),
		overall:   agent.NewOverallAnalyzer(c),
		reports:   make(map[string]*Report),
	}
}

// Analyze produces the report for a session. Asked twice for the same
// session ID within the process lifetime, it returns the cached report
// without recomputing. Per-response agent failures substitute that
// response's heuristic fallback; one failure never aborts the report.
func (o *AnalysisOrchestrator) Analyze(ctx context.Context, sessionID string, responses []model.InterviewResponse, cfg model.InterviewConfig, meta agent.SessionMeta) *Report {
	o.mu.Lock()
	if r, ok := o.reports[sessionID]; ok {
		o.mu.Unlock()
		return r
	}
	o.mu.Unlock()

	analyses := make([]model.ResponseAnalysis, len(responses))
	agentic := make([]bool, len(responses))

	// No ordering dependency between responses; analyze them concurrently.
	var wg sync.WaitGroup
	for i, resp := range responses {
		wg.Add(1)
		go func(i int, resp model.InterviewResponse) {
			defer wg.Done()
			analyses[i], agentic[i] = o.responses.Analyze(ctx, resp, cfg, i+1)
		}(i, resp)
	}
	wg.Wait()

	fallbacks := 0
	for _, ok := range agentic {
		if !ok {
			fallbacks++
		}
	}

	meta.QuestionsAnswered = len(responses)
	overall, overallAgentic := o.overall.Analyze(ctx, analyses, cfg, meta)

	reviews := make([]QuestionReview, len(responses))
	for i, resp := range responses {
		reviews[i] = QuestionReview{
			QuestionID:   resp.QuestionID,
			Question:     resp.QuestionText,
			Response:     resp.ResponseText,
			Score:        analyses[i].Score,
			Feedback:     analyses[i].Feedback,
			Strengths:    analyses[i].Strengths,
			Improvements: analyses[i].Improvements,
		}
	}

	method := "agentic"
	if !overallAgentic {
		method = "fallback"
	}
	report := &Report{
		SessionID:       sessionID,
		Overall:         overall,
		QuestionReviews: reviews,
		Metadata: ReportMetadata{
			GeneratedAt:       time.Now().UTC(),
			Method:            method,
			ResponsesAnalyzed: len(responses),
			FallbackResponses: fallbacks,
		},
	}

	o.mu.Lock()
	// A concurrent call may have finished first; keep whichever report won.
	if existing, ok := o.reports[sessionID]; ok {
		o.mu.Unlock()
		return existing
	}
	o.reports[sessionID] = report
	o.mu.Unlock()
	return report
}
