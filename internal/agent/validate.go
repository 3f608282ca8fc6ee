package agent

import (
	"context"
	"strings"

	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/model"
)

const questionValidatorRole = "You are an interview quality reviewer. " +
	"You judge whether a proposed interview question is relevant, clear, well-calibrated, " +
	"and not a rehash of the requested ground, then decide whether to approve, revise, or reject it."

// Decision is the validator's verdict on a question.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionRevise  Decision = "revise"
)

// ValidationResult scores one question. All scores are in [0,100].
type ValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	RelevanceScore  float64  `json:"relevance_score"`
	DifficultyScore float64  `json:"difficulty_score"`
	ClarityScore    float64  `json:"clarity_score"`
	UniquenessScore float64  `json:"uniqueness_score"`
	Decision        Decision `json:"decision"`
	Reason          string   `json:"reason,omitempty"`
}

// QuestionValidator scores a generated question against its spec.
type QuestionValidator struct {
	llm llm.Caller
}

func NewQuestionValidator(c llm.Caller) *QuestionValidator {
	return &QuestionValidator{llm: c}
}

// Validate scores the question. The second return reports whether the model
// produced the verdict or the keyword heuristic did.
func (v *QuestionValidator) Validate(ctx context.Context, q model.GeneratedQuestion, spec model.QuestionSpec, analysis model.TopicAnalysis, cfg model.InterviewConfig) (ValidationResult, bool) {
	data, ok := callModel(ctx, v.llm, "question-validation", questionValidatorRole,
		validationPrompt(q, spec, analysis, cfg), SchemaQuestionValidation)
	if !ok {
		return fallbackValidation(q, cfg, analysis), false
	}

	res := ValidationResult{
		IsValid:         boolean(data, "is_valid", true),
		RelevanceScore:  num(data, "relevance_score", 60),
		DifficultyScore: num(data, "difficulty_score", 60),
		ClarityScore:    num(data, "clarity_score", 60),
		UniquenessScore: num(data, "uniqueness_score", 60),
		Decision:        parseDecision(str(data, "decision", "approve")),
		Reason:          str(data, "reason", ""),
	}
	return res, true
}

func validationPrompt(q model.GeneratedQuestion, spec model.QuestionSpec, analysis model.TopicAnalysis, cfg model.InterviewConfig) string {
	var sb strings.Builder
	sb.WriteString("Review this interview question.\n\n")
	sb.WriteString("QUESTION: " + q.Text + "\n\n")
	sb.WriteString("TOPIC: " + cfg.Topic + "\n")
	sb.WriteString("CANDIDATE LEVEL: " + string(cfg.ExperienceLevel) + "\n")
	sb.WriteString("REQUESTED DIFFICULTY: " + string(spec.Difficulty) + "\n")
	sb.WriteString("REQUESTED FOCUS AREA: " + spec.FocusArea + "\n")
	if len(analysis.RelevanceKeywords) > 0 {
		sb.WriteString("TOPIC KEYWORDS: " + strings.Join(analysis.RelevanceKeywords, ", ") + "\n")
	}
	sb.WriteString("\nScore relevance to the topic, difficulty calibration, clarity of wording, ")
	sb.WriteString("and uniqueness, each 0-100. Approve only questions scoring at least 50 everywhere.\n")
	sb.WriteString("Respond with a JSON object:\n")
	sb.WriteString(`{"is_valid": true/false, "relevance_score": 0-100, "difficulty_score": 0-100, ` +
		`"clarity_score": 0-100, "uniqueness_score": 0-100, "decision": "approve" | "revise" | "reject", "reason": "..."}`)
	sb.WriteString("\n")
	return sb.String()
}

func parseDecision(s string) Decision {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reject":
		return DecisionReject
	case "revise":
		return DecisionRevise
	default:
		return DecisionApprove
	}
}

// fallbackValidation scores by keyword overlap between the question text and
// the topic name plus relevance keywords.
func fallbackValidation(q model.GeneratedQuestion, cfg model.InterviewConfig, analysis model.TopicAnalysis) ValidationResult {
	text := strings.ToLower(q.Text)

	hits := 0
	if strings.Contains(text, strings.ToLower(cfg.Topic)) {
		hits += 2
	}
	for _, kw := range analysis.RelevanceKeywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			hits++
		}
	}

	relevance := clampScore(40 + float64(hits)*12)
	clarity := clampScore(50 + float64(len(q.Text))/4)
	res := ValidationResult{
		RelevanceScore:  relevance,
		DifficultyScore: 60,
		ClarityScore:    clarity,
		UniquenessScore: 60,
	}
	if relevance >= 50 && len(q.Text) >= minQuestionLen {
		res.IsValid = true
		res.Decision = DecisionApprove
	} else {
		res.Decision = DecisionRevise
		res.Reason = "question does not clearly reference the interview topic"
	}
	return res
}

func clampScore(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}
