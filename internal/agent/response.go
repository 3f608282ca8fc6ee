package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/model"
)

const responseAnalyzerRole = "You are an interview coach reviewing one answer. " +
	"You score clarity, structure, technical depth, communication, confidence, and relevance, " +
	"each 0-100, and give concrete, actionable feedback."

// ResponseAnalyzer scores a single interview answer.
type ResponseAnalyzer struct {
	llm llm.Caller
}

func NewResponseAnalyzer(c llm.Caller) *ResponseAnalyzer {
	return &ResponseAnalyzer{llm: c}
}

// Analyze scores one response. The second return reports whether the model
// produced the assessment or the length/keyword heuristic did.
func (a *ResponseAnalyzer) Analyze(ctx context.Context, resp model.InterviewResponse, cfg model.InterviewConfig, questionNumber int) (model.ResponseAnalysis, bool) {
	data, ok := callModel(ctx, a.llm, "response-analysis", responseAnalyzerRole,
		responsePrompt(resp, cfg, questionNumber), SchemaResponseAnalysis)
	if !ok {
		return FallbackResponseAnalysis(resp), false
	}

	scores := model.ScoreBreakdown{
		Clarity:       num(data, "clarity", 50),
		Structure:     num(data, "structure", 50),
		Technical:     num(data, "technical", 50),
		Communication: num(data, "communication", 50),
		Confidence:    num(data, "confidence", 50),
		Relevance:     num(data, "relevance", 50),
	}
	return model.ResponseAnalysis{
		Scores:       scores,
		Strengths:    strs(data, "strengths"),
		Improvements: strs(data, "improvements"),
		Score:        num(data, "score", aggregate(scores)),
		Feedback:     str(data, "feedback", "No detailed feedback available for this answer."),
	}, true
}

func responsePrompt(resp model.InterviewResponse, cfg model.InterviewConfig, questionNumber int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Assess the candidate's answer to question %d of a %s interview on %s (level: %s).\n\n",
		questionNumber, cfg.Style, cfg.Topic, cfg.ExperienceLevel)
	sb.WriteString("QUESTION: " + resp.QuestionText + "\n\n")
	sb.WriteString("ANSWER: " + resp.ResponseText + "\n\n")
	if resp.DurationMs > 0 {
		fmt.Fprintf(&sb, "ANSWER DURATION: %.0f seconds\n\n", float64(resp.DurationMs)/1000)
	}
	sb.WriteString("Score each dimension 0-100 and list 1-3 strengths and 1-3 improvements.\n")
	sb.WriteString("Respond with a JSON object:\n")
	sb.WriteString(`{"clarity": 0-100, "structure": 0-100, "technical": 0-100, "communication": 0-100, ` +
		`"confidence": 0-100, "relevance": 0-100, "score": 0-100, "feedback": "...", ` +
		`"strengths": [...], "improvements": [...]}`)
	sb.WriteString("\n")
	return sb.String()
}

func aggregate(s model.ScoreBreakdown) float64 {
	return (s.Clarity + s.Structure + s.Technical + s.Communication + s.Confidence + s.Relevance) / 6
}

// Hedging phrases cost confidence points in the heuristic fallback.
var hedgingPhrases = []string{
	"i think", "i guess", "maybe", "not sure", "i'm not certain",
	"probably", "i don't know", "kind of", "sort of",
}

// Structure markers reward organized answers.
var structureMarkers = []string{
	"first", "second", "then", "finally", "for example", "because", "therefore", "in summary",
}

// FallbackResponseAnalysis scores an answer with length and keyword
// heuristics: longer, structured answers score higher, hedging lowers
// confidence, and topical overlap with the question raises relevance.
func FallbackResponseAnalysis(resp model.InterviewResponse) model.ResponseAnalysis {
	text := strings.ToLower(resp.ResponseText)
	words := len(strings.Fields(text))

	// Base scores grow with answer length up to a plateau around 150 words.
	base := clampScore(35 + float64(words)/2)
	if base > 75 {
		base = 75
	}

	confidence := base
	for _, h := range hedgingPhrases {
		if strings.Contains(text, h) {
			confidence -= 8
		}
	}
	confidence = clampScore(confidence)

	structure := base
	for _, m := range structureMarkers {
		if strings.Contains(text, m) {
			structure += 4
		}
	}
	structure = clampScore(structure)

	relevance := base
	overlap := 0
	for _, w := range strings.Fields(strings.ToLower(resp.QuestionText)) {
		if len(w) > 4 && strings.Contains(text, w) {
			overlap++
		}
	}
	relevance = clampScore(relevance + float64(overlap)*3)

	scores := model.ScoreBreakdown{
		Clarity:       base,
		Structure:     structure,
		Technical:     base,
		Communication: base,
		Confidence:    confidence,
		Relevance:     relevance,
	}

	var strengths, improvements []string
	if words >= 80 {
		strengths = append(strengths, "Gave a substantial, detailed answer")
	} else {
		improvements = append(improvements, "Expand answers with more detail and concrete examples")
	}
	if structure > base {
		strengths = append(strengths, "Structured the answer with clear sequencing")
	} else {
		improvements = append(improvements, "Organize answers with a clear beginning, middle, and end")
	}
	if confidence < base {
		improvements = append(improvements, "Reduce hedging language to sound more confident")
	}
	if len(strengths) == 0 {
		strengths = append(strengths, "Attempted the question")
	}

	return model.ResponseAnalysis{
		Scores:       scores,
		Strengths:    strengths,
		Improvements: improvements,
		Score:        aggregate(scores),
		Feedback: fmt.Sprintf("Automated assessment: the answer was %d words long. "+
			"Aim for structured answers of 80-200 words with concrete examples tied to the question.", words),
	}
}
