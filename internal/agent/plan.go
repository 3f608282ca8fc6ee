package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/model"
)

const questionPlannerRole = "You are an interview strategist. " +
	"Given what has been asked and answered so far, you decide what the next question " +
	"should probe: its category, difficulty, focus area, and the concepts it must cover."

// QuestionPlanner decides the spec for the next question in the stricter
// validated pipeline.
type QuestionPlanner struct {
	llm llm.Caller
}

func NewQuestionPlanner(c llm.Caller) *QuestionPlanner {
	return &QuestionPlanner{llm: c}
}

// Plan produces the next QuestionSpec. questionNumber is 1-based. The
// second return reports whether the model produced the plan.
func (p *QuestionPlanner) Plan(ctx context.Context, analysis model.TopicAnalysis, previousQuestions []model.GeneratedQuestion, previousResponses []model.InterviewResponse, questionNumber int, cfg model.InterviewConfig) (model.QuestionSpec, bool) {
	data, ok := callModel(ctx, p.llm, "question-planning", questionPlannerRole,
		planningPrompt(analysis, previousQuestions, previousResponses, questionNumber, cfg), SchemaQuestionPlanning)
	if !ok {
		return FallbackSpec(analysis, questionNumber, cfg), false
	}

	spec := model.QuestionSpec{
		Category:     str(data, "category", ""),
		Difficulty:   ParseDifficulty(str(data, "difficulty", "medium")),
		FocusArea:    str(data, "focus_area", ""),
		Concepts:     strs(data, "concepts"),
		AvoidTopics:  strs(data, "avoid_topics"),
		QuestionType: str(data, "question_type", "conceptual"),
	}
	// Category, focus area, and concepts are required for generation to
	// have something to aim at.
	if spec.Category == "" || spec.FocusArea == "" || len(spec.Concepts) == 0 {
		return FallbackSpec(analysis, questionNumber, cfg), false
	}
	return spec, true
}

func planningPrompt(analysis model.TopicAnalysis, previousQuestions []model.GeneratedQuestion, previousResponses []model.InterviewResponse, questionNumber int, cfg model.InterviewConfig) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan interview question number %d.\n\n", questionNumber)
	sb.WriteString("CANDIDATE LEVEL: " + string(cfg.ExperienceLevel) + "\n")
	sb.WriteString("TOPIC COMPLEXITY: " + string(analysis.Complexity) + "\n")
	sb.WriteString("FOCUS AREAS: " + strings.Join(analysis.FocusAreas, ", ") + "\n")
	sb.WriteString("MAIN CONCEPTS: " + strings.Join(analysis.MainConcepts, ", ") + "\n")
	if len(analysis.QuestionCategories) > 0 {
		sb.WriteString("AVAILABLE CATEGORIES: " + strings.Join(analysis.QuestionCategories, ", ") + "\n")
	}
	if len(previousQuestions) > 0 {
		sb.WriteString("\nPREVIOUS QUESTIONS:\n")
		for _, q := range previousQuestions {
			sb.WriteString("- " + q.Text + "\n")
		}
	}
	if len(previousResponses) > 0 {
		sb.WriteString("\nPREVIOUS ANSWERS (condensed):\n")
		for _, r := range previousResponses {
			fmt.Fprintf(&sb, "- %s\n", condense(r.ResponseText, 200))
		}
	}
	sb.WriteString("\nPick an unexplored focus area, escalate difficulty as the interview progresses, ")
	sb.WriteString("and steer away from anything already covered well.\n")
	sb.WriteString("Respond with a JSON object:\n")
	sb.WriteString(`{"category": "...", "difficulty": "easy" | "medium" | "hard", "focus_area": "...", ` +
		`"concepts": [...], "avoid_topics": [...], "question_type": "..."}`)
	sb.WriteString("\n")
	return sb.String()
}

func condense(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// ParseDifficulty maps free-form difficulty text onto the enum, defaulting
// to medium.
func ParseDifficulty(s string) model.Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return model.DifficultyEasy
	case "hard":
		return model.DifficultyHard
	default:
		return model.DifficultyMedium
	}
}

// FallbackSpec builds the next spec deterministically: difficulty escalates
// with question number and experience, focus area and concepts are indexed
// from the analysis by question position.
func FallbackSpec(analysis model.TopicAnalysis, questionNumber int, cfg model.InterviewConfig) model.QuestionSpec {
	difficulty := EscalatedDifficulty(questionNumber, cfg.ExperienceLevel)

	focus := "fundamentals"
	if len(analysis.FocusAreas) > 0 {
		focus = analysis.FocusAreas[(questionNumber-1)%len(analysis.FocusAreas)]
	}

	concepts := analysis.MainConcepts
	if len(concepts) > 3 {
		start := (questionNumber - 1) % len(concepts)
		end := start + 3
		if end > len(concepts) {
			end = len(concepts)
		}
		concepts = concepts[start:end]
	}

	category := "conceptual"
	if len(analysis.QuestionCategories) > 0 {
		category = analysis.QuestionCategories[(questionNumber-1)%len(analysis.QuestionCategories)]
	}

	return model.QuestionSpec{
		Category:     category,
		Difficulty:   difficulty,
		FocusArea:    focus,
		Concepts:     concepts,
		QuestionType: category,
	}
}

// EscalatedDifficulty implements the shared escalation rule: everyone
// starts easy, question 2 moves to medium, and from question 3 on the
// ceiling depends on seniority.
func EscalatedDifficulty(questionNumber int, level model.ExperienceLevel) model.Difficulty {
	switch {
	case questionNumber <= 1:
		return model.DifficultyEasy
	case questionNumber == 2:
		return model.DifficultyMedium
	default:
		switch level {
		case model.LevelFresher, model.LevelJunior:
			return model.DifficultyMedium
		default:
			return model.DifficultyHard
		}
	}
}
