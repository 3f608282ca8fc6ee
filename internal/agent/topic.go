package agent

import (
	"context"
	"strings"
	"unicode"

	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/model"
)

const topicAnalyzerRole = "You are an expert interview designer. " +
	"You break an interview topic down into the concepts, skills, and focus areas " +
	"an interviewer should probe, calibrated to the candidate's experience level."

// TopicAnalyzer derives a TopicAnalysis for an interview config.
type TopicAnalyzer struct {
	llm llm.Caller
}

func NewTopicAnalyzer(c llm.Caller) *TopicAnalyzer {
	return &TopicAnalyzer{llm: c}
}

// Analyze returns the topic breakdown and whether it came from the model
// (true) or the deterministic fallback (false).
func (a *TopicAnalyzer) Analyze(ctx context.Context, cfg model.InterviewConfig) (model.TopicAnalysis, bool) {
	data, ok := callModel(ctx, a.llm, "topic-analysis", topicAnalyzerRole, topicAnalysisPrompt(cfg), SchemaTopicAnalysis)
	if !ok {
		return fallbackTopicAnalysis(cfg), false
	}

	ta := model.TopicAnalysis{
		MainConcepts:       strs(data, "main_concepts"),
		Skills:             strs(data, "skills"),
		Technologies:       strs(data, "technologies"),
		FocusAreas:         strs(data, "focus_areas"),
		RelevanceKeywords:  strs(data, "relevance_keywords"),
		Complexity:         parseComplexity(str(data, "complexity", "medium")),
		QuestionCategories: strs(data, "question_categories"),
	}
	// The contract requires non-empty concept/skill/focus/keyword lists.
	if len(ta.MainConcepts) == 0 || len(ta.Skills) == 0 || len(ta.FocusAreas) == 0 || len(ta.RelevanceKeywords) == 0 {
		return fallbackTopicAnalysis(cfg), false
	}
	return ta, true
}

func topicAnalysisPrompt(cfg model.InterviewConfig) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following interview topic.\n\n")
	sb.WriteString("TOPIC: " + cfg.Topic + "\n")
	sb.WriteString("INTERVIEW STYLE: " + string(cfg.Style) + "\n")
	sb.WriteString("CANDIDATE LEVEL: " + string(cfg.ExperienceLevel) + "\n")
	if cfg.CompanyName != "" {
		sb.WriteString("TARGET COMPANY: " + cfg.CompanyName + "\n")
	}
	sb.WriteString("\nProduce a JSON object with these fields:\n")
	sb.WriteString(`{"main_concepts": [5-8 core concepts], "skills": [5-8 skills to assess], ` +
		`"technologies": [related technologies], "focus_areas": [4-6 areas to focus questions on], ` +
		`"relevance_keywords": [8-12 keywords a good answer would touch], ` +
		`"complexity": "low" | "medium" | "high", "question_categories": [question categories]}`)
	sb.WriteString("\nAll lists must be non-empty.\n")
	return sb.String()
}

func parseComplexity(s string) model.Complexity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return model.ComplexityLow
	case "high":
		return model.ComplexityHigh
	default:
		return model.ComplexityMedium
	}
}

// cannedAnalyses is matched against the topic by substring. The generic
// entry is the final fallback for unknown topics.
var cannedAnalyses = []struct {
	match    []string
	analysis model.TopicAnalysis
}{
	{
		match: []string{"react", "frontend", "front-end"},
		analysis: model.TopicAnalysis{
			MainConcepts:       []string{"component model", "state management", "hooks", "rendering lifecycle", "props and data flow"},
			Skills:             []string{"component design", "state architecture", "performance tuning", "debugging", "testing UI code"},
			Technologies:       []string{"React", "JavaScript", "TypeScript", "Redux", "Next.js"},
			FocusAreas:         []string{"component architecture", "state management", "performance", "testing"},
			RelevanceKeywords:  []string{"component", "state", "props", "hook", "render", "effect", "virtual dom", "memo"},
			QuestionCategories: []string{"conceptual", "practical", "debugging", "design"},
		},
	},
	{
		match: []string{"go", "golang", "backend", "back-end"},
		analysis: model.TopicAnalysis{
			MainConcepts:       []string{"concurrency", "interfaces", "error handling", "memory model", "API design"},
			Skills:             []string{"goroutine coordination", "API implementation", "profiling", "testing", "code review"},
			Technologies:       []string{"Go", "gRPC", "PostgreSQL", "Docker", "Kubernetes"},
			FocusAreas:         []string{"concurrency", "service design", "error handling", "performance"},
			RelevanceKeywords:  []string{"goroutine", "channel", "interface", "context", "error", "mutex", "http", "service"},
			QuestionCategories: []string{"conceptual", "practical", "system design"},
		},
	},
	{
		match: []string{"python", "data", "machine learning", "ml"},
		analysis: model.TopicAnalysis{
			MainConcepts:       []string{"data structures", "iterators and generators", "typing", "packaging", "data processing"},
			Skills:             []string{"idiomatic coding", "data wrangling", "testing", "debugging", "library selection"},
			Technologies:       []string{"Python", "pandas", "NumPy", "pytest", "FastAPI"},
			FocusAreas:         []string{"language fundamentals", "data handling", "code quality", "tooling"},
			RelevanceKeywords:  []string{"list", "dict", "generator", "decorator", "dataframe", "typing", "async", "module"},
			QuestionCategories: []string{"conceptual", "practical", "debugging"},
		},
	},
	{
		match: []string{"sql", "database", "postgres", "mysql"},
		analysis: model.TopicAnalysis{
			MainConcepts:       []string{"query planning", "indexing", "transactions", "normalization", "joins"},
			Skills:             []string{"query writing", "schema design", "performance analysis", "data modeling"},
			Technologies:       []string{"PostgreSQL", "MySQL", "SQLite"},
			FocusAreas:         []string{"query optimization", "schema design", "transactions", "indexing"},
			RelevanceKeywords:  []string{"index", "join", "transaction", "query", "constraint", "normal form", "lock", "plan"},
			QuestionCategories: []string{"conceptual", "practical", "design"},
		},
	},
}

var genericAnalysis = model.TopicAnalysis{
	MainConcepts:       []string{"core principles", "common patterns", "trade-offs", "best practices", "real-world application"},
	Skills:             []string{"problem solving", "communication", "analytical thinking", "practical experience"},
	Technologies:       []string{},
	FocusAreas:         []string{"fundamentals", "practical experience", "problem solving", "collaboration"},
	RelevanceKeywords:  []string{"experience", "approach", "example", "challenge", "solution", "team", "result", "learn"},
	QuestionCategories: []string{"conceptual", "behavioral", "situational"},
}

// fallbackTopicAnalysis picks a canned analysis by topic substring, generic
// otherwise, with complexity derived from the experience level.
func fallbackTopicAnalysis(cfg model.InterviewConfig) model.TopicAnalysis {
	topic := strings.ToLower(cfg.Topic)

	ta := genericAnalysis
match:
	for _, c := range cannedAnalyses {
		for _, m := range c.match {
			if topicMatches(topic, m) {
				ta = c.analysis
				break match
			}
		}
	}

	// Keep the requested topic visible in the keyword set so keyword-based
	// heuristics downstream stay anchored to it.
	ta.RelevanceKeywords = append([]string{strings.ToLower(strings.TrimSpace(cfg.Topic))}, ta.RelevanceKeywords...)
	ta.Complexity = complexityForLevel(cfg.ExperienceLevel)
	if len(ta.QuestionCategories) == 0 {
		ta.QuestionCategories = []string{"conceptual", "practical"}
	}
	return ta
}

// topicMatches does whole-word matching for short terms so "go" does not
// match "django", substring matching otherwise.
func topicMatches(topic, term string) bool {
	if len(term) > 3 {
		return strings.Contains(topic, term)
	}
	for _, w := range strings.FieldsFunc(topic, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if w == term {
			return true
		}
	}
	return false
}

func complexityForLevel(level model.ExperienceLevel) model.Complexity {
	switch level {
	case model.LevelFresher, model.LevelJunior:
		return model.ComplexityLow
	case model.LevelMid:
		return model.ComplexityMedium
	case model.LevelSenior, model.LevelLeadManager:
		return model.ComplexityHigh
	default:
		return model.ComplexityMedium
	}
}
