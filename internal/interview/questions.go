// Package interview contains the two orchestrators that compose the agents
// into higher-level operations: producing the next question for a running
// session and producing the end-of-interview report.
package interview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voxprep/voxprep/internal/agent"
	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/model"
)

// PipelineMode selects how the next question is produced. This is an
// explicit configuration choice, not hidden behavior.
type PipelineMode string

const (
	// PipelineFast builds the question spec directly and skips the
	// planning and validation agents: one model call per question,
	// minimal latency.
	PipelineFast PipelineMode = "fast"
	// PipelineValidated runs Plan, Generate, Validate with one
	// regeneration on a rejected question: slower, higher quality.
	PipelineValidated PipelineMode = "validated"
)

// ValidPipelineMode reports whether s names a pipeline mode.
func ValidPipelineMode(s string) bool {
	return PipelineMode(s) == PipelineFast || PipelineMode(s) == PipelineValidated
}

// QuestionOrchestrator sequences the agents that produce interview
// questions. Topic analyses are cached per session key so they are computed
// at most once per topic+style+level.
type QuestionOrchestrator struct {
	mode      PipelineMode
	topics    *agent.TopicAnalyzer
	planner   *agent.QuestionPlanner
	generator *agent.QuestionGenerator
	validator *agent.QuestionValidator

	mu         sync.Mutex
	topicCache map[string]model.TopicAnalysis
}

// NewQuestionOrchestrator wires the question-side agents onto one LLM
// caller.
func NewQuestionOrchestrator(c llm.Caller, mode PipelineMode) *QuestionOrchestrator {
	if mode == "" {
		mode = PipelineFast
	}
	return &QuestionOrchestrator{
		mode:       mode,
		topics:     agent.NewTopicAnalyzer(c),
		planner:    agent.NewQuestionPlanner(c),
		generator:  agent.NewQuestionGenerator(c),
		validator:  agent.NewQuestionValidator(c),
		topicCache: make(map[string]model.TopicAnalysis),
	}
}

// NextQuestion produces question number questionNumber (1-based) for the
// session. It never returns an empty question: any agent failure resolves
// through the deterministic fallbacks.
func (o *QuestionOrchestrator) NextQuestion(ctx context.Context, cfg model.InterviewConfig, previousQuestions []model.GeneratedQuestion, previousResponses []model.InterviewResponse, questionNumber int) model.GeneratedQuestion {
	analysis := o.topicAnalysis(ctx, cfg)

	asked := make([]string, 0, len(previousQuestions))
	for _, q := range previousQuestions {
		asked = append(asked, q.Text)
	}

	if o.mode == PipelineValidated {
		return o.validatedQuestion(ctx, cfg, analysis, previousQuestions, previousResponses, questionNumber, asked)
	}
	return o.fastQuestion(ctx, cfg, analysis, questionNumber, asked)
}

// fastQuestion builds the spec directly, skipping the planning and
// validation agents.
func (o *QuestionOrchestrator) fastQuestion(ctx context.Context, cfg model.InterviewConfig, analysis model.TopicAnalysis, questionNumber int, asked []string) model.GeneratedQuestion {
	spec := agent.FallbackSpec(analysis, questionNumber, cfg)
	q, agentic := o.generator.Generate(ctx, spec, analysis, cfg, asked)
	if !agentic {
		slog.Info("question produced by fallback", "question_number", questionNumber)
	}
	return q
}

// validatedQuestion runs the stricter pipeline: plan the spec, generate,
// validate, and regenerate once if the validator rejects.
func (o *QuestionOrchestrator) validatedQuestion(ctx context.Context, cfg model.InterviewConfig, analysis model.TopicAnalysis, previousQuestions []model.GeneratedQuestion, previousResponses []model.InterviewResponse, questionNumber int, asked []string) model.GeneratedQuestion {
	spec, _ := o.planner.Plan(ctx, analysis, previousQuestions, previousResponses, questionNumber, cfg)

	q, _ := o.generator.Generate(ctx, spec, analysis, cfg, asked)
	verdict, _ := o.validator.Validate(ctx, q, spec, analysis, cfg)
	if verdict.Decision != agent.DecisionReject {
		return q
	}

	slog.Info("question rejected by validator, regenerating",
		"question_number", questionNumber, "reason", verdict.Reason)
	// One retry, steering away from the rejected text. The second attempt
	// is accepted regardless; the generator's fallback already guarantees
	// a usable question.
	retry, _ := o.generator.Generate(ctx, spec, analysis, cfg, append(asked, q.Text))
	return retry
}

// topicAnalysis returns the cached analysis for the config's session key,
// computing it once on first use.
func (o *QuestionOrchestrator) topicAnalysis(ctx context.Context, cfg model.InterviewConfig) model.TopicAnalysis {
	key := cfg.CacheKey()

	o.mu.Lock()
	if ta, ok := o.topicCache[key]; ok {
		o.mu.Unlock()
		return ta
	}
	o.mu.Unlock()

	// Computed outside the lock: analysis may take a full model call and
	// concurrent sessions with other keys must not queue behind it. A
	// duplicate computation for the same key is harmless; last write wins
	// with an identical value shape.
	ta, agentic := o.topics.Analyze(ctx, cfg)
	if !agentic {
		slog.Info("topic analysis produced by fallback", "key", key)
	}

	o.mu.Lock()
	o.topicCache[key] = ta
	o.mu.Unlock()
	return ta
}
