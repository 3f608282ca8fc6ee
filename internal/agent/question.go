package agent

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/model"
)

const questionGeneratorRole = "You are a professional interviewer. " +
	"You write one sharp, self-contained interview question at a time, " +
	"matched to the requested difficulty and focus area, never repeating ground already covered."

// minQuestionLen rejects fragments the model sometimes emits.
const minQuestionLen = 20

// QuestionGenerator produces one interview question per call.
type QuestionGenerator struct {
	llm llm.Caller
}

func NewQuestionGenerator(c llm.Caller) *QuestionGenerator {
	return &QuestionGenerator{llm: c}
}

// Generate returns a question matching the spec. asked carries the text of
// previously asked questions so neither the model nor the fallback repeats
// one. The second return reports whether the model produced it.
func (g *QuestionGenerator) Generate(ctx context.Context, spec model.QuestionSpec, analysis model.TopicAnalysis, cfg model.InterviewConfig, asked []string) (model.GeneratedQuestion, bool) {
	data, ok := callModel(ctx, g.llm, "question-generation", questionGeneratorRole,
		questionPrompt(spec, analysis, cfg, asked), SchemaQuestionGeneration)
	if ok {
		text := strings.TrimSpace(str(data, "question", ""))
		if len(text) >= minQuestionLen {
			return model.GeneratedQuestion{
				ID:   uuid.NewString(),
				Text: text,
				Metadata: model.QuestionMetadata{
					Difficulty:     spec.Difficulty,
					FocusArea:      str(data, "focus_area", spec.FocusArea),
					Concepts:       firstNonEmpty(strs(data, "concepts"), spec.Concepts),
					QuestionType:   str(data, "question_type", spec.QuestionType),
					TopicRelevance: parseRelevance(str(data, "topic_relevance", "medium")),
				},
			}, true
		}
	}
	return FallbackQuestion(spec, cfg, asked), false
}

func questionPrompt(spec model.QuestionSpec, analysis model.TopicAnalysis, cfg model.InterviewConfig, asked []string) string {
	var sb strings.Builder
	sb.WriteString("Write the next interview question.\n\n")
	sb.WriteString("TOPIC: " + cfg.Topic + "\n")
	sb.WriteString("STYLE: " + string(cfg.Style) + "\n")
	sb.WriteString("CANDIDATE LEVEL: " + string(cfg.ExperienceLevel) + "\n")
	if cfg.CompanyName != "" {
		sb.WriteString("TARGET COMPANY: " + cfg.CompanyName + "\n")
	}
	sb.WriteString("DIFFICULTY: " + string(spec.Difficulty) + "\n")
	sb.WriteString("FOCUS AREA: " + spec.FocusArea + "\n")
	if len(spec.Concepts) > 0 {
		sb.WriteString("CONCEPTS TO TOUCH: " + strings.Join(spec.Concepts, ", ") + "\n")
	}
	if len(spec.AvoidTopics) > 0 {
		sb.WriteString("AVOID: " + strings.Join(spec.AvoidTopics, ", ") + "\n")
	}
	if len(analysis.RelevanceKeywords) > 0 {
		sb.WriteString("TOPIC KEYWORDS: " + strings.Join(analysis.RelevanceKeywords, ", ") + "\n")
	}
	if len(asked) > 0 {
		sb.WriteString("\nALREADY ASKED (do not repeat or rephrase):\n")
		for _, q := range asked {
			sb.WriteString("- " + q + "\n")
		}
	}
	sb.WriteString("\nThe question must be answerable verbally in 2-4 minutes, at least 20 characters long, and end with a question mark.\n")
	sb.WriteString("Respond with a JSON object:\n")
	sb.WriteString(`{"question": "...", "difficulty": "...", "focus_area": "...", "concepts": [...], "question_type": "...", "topic_relevance": "high" | "medium"}`)
	sb.WriteString("\n")
	return sb.String()
}

func parseRelevance(s string) model.TopicRelevance {
	if strings.ToLower(strings.TrimSpace(s)) == "high" {
		return model.RelevanceHigh
	}
	return model.RelevanceMedium
}

func firstNonEmpty(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}

// cannedQuestions is the deterministic question bank, indexed by style then
// difficulty. Each entry is a template with a %s slot for the topic.
var cannedQuestions = map[model.InterviewStyle]map[model.Difficulty][]string{
	model.StyleTechnical: {
		model.DifficultyEasy: {
			"Can you walk me through the core concepts of %s as you would explain them to a new teammate?",
			"What first drew you to working with %s, and what did you build with it most recently?",
			"How do you usually set up a new %s project, and why that way?",
		},
		model.DifficultyMedium: {
			"Describe a tricky bug you hit while working with %s. How did you track it down?",
			"How would you review a colleague's %s code? What do you look for first?",
			"What trade-offs have you had to make in a %s project, and how did you decide?",
		},
		model.DifficultyHard: {
			"How would you design a %s system that has to handle ten times its current load?",
			"Tell me about the hardest performance problem you solved in %s. What made it hard?",
			"If you could change one fundamental thing about %s, what would it be and what would break?",
		},
	},
	model.StyleBehavioral: {
		model.DifficultyEasy: {
			"Tell me about a recent project involving %s that you are proud of.",
			"How do you keep your %s knowledge up to date?",
		},
		model.DifficultyMedium: {
			"Describe a time you disagreed with a teammate about a %s decision. How was it resolved?",
			"Tell me about a deadline you nearly missed on a %s project and what you learned.",
		},
		model.DifficultyHard: {
			"Tell me about a time a %s project failed. What was your part in the failure?",
			"Describe the most difficult feedback you have received about your %s work and what you did with it.",
		},
	},
	model.StyleHR: {
		model.DifficultyEasy: {
			"What attracts you to a role focused on %s?",
			"Where do you want your %s career to be in three years?",
		},
		model.DifficultyMedium: {
			"What kind of team environment helps you do your best %s work?",
			"How do you balance depth in %s with the breadth a growing role demands?",
		},
		model.DifficultyHard: {
			"What would make you leave a %s role within the first year?",
			"Tell me about a time your values conflicted with a decision at work on a %s project.",
		},
	},
	model.StyleSalaryNegotiation: {
		model.DifficultyEasy: {
			"How did you arrive at your salary expectations for a %s role?",
		},
		model.DifficultyMedium: {
			"If our budget is below your expectation for this %s role, what besides base salary matters to you?",
			"How do you weigh equity against cash for a %s position?",
		},
		model.DifficultyHard: {
			"You have a competing offer above our range for this %s role. Walk me through how you would decide.",
		},
	},
	model.StyleCaseStudy: {
		model.DifficultyEasy: {
			"A small team wants to adopt %s for a new product. What questions do you ask before recommending it?",
		},
		model.DifficultyMedium: {
			"Our %s system slows down every Monday morning. How do you investigate?",
			"You inherit a legacy %s codebase with no tests. What are your first two weeks like?",
		},
		model.DifficultyHard: {
			"Design a migration of a live %s system to a new architecture with zero planned downtime. Where are the risks?",
		},
	},
}

// FallbackQuestion picks an unasked canned question for the style and
// difficulty, randomly among the remaining ones. When the bank is exhausted
// it synthesizes a generic parametrized question rather than repeating.
func FallbackQuestion(spec model.QuestionSpec, cfg model.InterviewConfig, asked []string) model.GeneratedQuestion {
	askedSet := make(map[string]bool, len(asked))
	for _, q := range asked {
		askedSet[q] = true
	}

	var candidates []string
	for _, tmpl := range cannedQuestions[cfg.Style][spec.Difficulty] {
		q := fmt.Sprintf(tmpl, cfg.Topic)
		if !askedSet[q] {
			candidates = append(candidates, q)
		}
	}

	var text string
	if len(candidates) > 0 {
		text = candidates[rand.IntN(len(candidates))]
	} else {
		focus := spec.FocusArea
		if focus == "" {
			focus = "the fundamentals"
		}
		text = fmt.Sprintf("Thinking about %s in the context of %s, what aspect do you find most challenging in practice, and how have you dealt with it?", focus, cfg.Topic)
	}

	return model.GeneratedQuestion{
		ID:   uuid.NewString(),
		Text: text,
		Metadata: model.QuestionMetadata{
			Difficulty:     spec.Difficulty,
			FocusArea:      spec.FocusArea,
			Concepts:       spec.Concepts,
			QuestionType:   spec.QuestionType,
			TopicRelevance: model.RelevanceMedium,
		},
	}
}
