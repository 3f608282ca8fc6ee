package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/model"
)

const overallAnalyzerRole = "You are a senior interview coach writing the final report. " +
	"Given per-answer assessments, you synthesize an overall score, performance trends, " +
	"and an executive summary with concrete next steps."

// SessionMeta carries the session facts the overall analysis needs beyond
// the per-response assessments.
type SessionMeta struct {
	Style             model.InterviewStyle
	ExperienceLevel   model.ExperienceLevel
	TotalDuration     time.Duration
	AvgResponseMs     int64
	QuestionsAnswered int
}

// OverallAnalyzer produces the end-of-interview synthesis.
type OverallAnalyzer struct {
	llm llm.Caller
}

func NewOverallAnalyzer(c llm.Caller) *OverallAnalyzer {
	return &OverallAnalyzer{llm: c}
}

// Analyze synthesizes all per-response analyses into one overall analysis.
// The second return reports whether the model produced it. The performance
// level is always recomputed from the score so it cannot disagree with the
// threshold table.
func (a *OverallAnalyzer) Analyze(ctx context.Context, analyses []model.ResponseAnalysis, cfg model.InterviewConfig, meta SessionMeta) (model.OverallAnalysis, bool) {
	if len(analyses) == 0 {
		return fallbackOverall(analyses, meta), false
	}

	data, ok := callModel(ctx, a.llm, "overall-analysis", overallAnalyzerRole,
		overallPrompt(analyses, cfg, meta), SchemaOverallAnalysis)
	if !ok {
		return fallbackOverall(analyses, meta), false
	}

	score := num(data, "overall_score", meanScore(analyses))
	return model.OverallAnalysis{
		OverallScore:     score,
		PerformanceLevel: model.PerformanceLevelForScore(score),
		Trends: model.Trends{
			Improvement:  str(data, "improvement", "steady"),
			Consistency:  str(data, "consistency", "moderate"),
			Adaptability: str(data, "adaptability", "moderate"),
		},
		Strengths:        strs(data, "strengths"),
		Improvements:     strs(data, "improvements"),
		Recommendations:  strs(data, "recommendations"),
		NextSteps:        strs(data, "next_steps"),
		ExecutiveSummary: str(data, "executive_summary", defaultSummary(score, meta)),
	}, true
}

func overallPrompt(analyses []model.ResponseAnalysis, cfg model.InterviewConfig, meta SessionMeta) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the final report for a %s interview on %s (candidate level: %s).\n",
		cfg.Style, cfg.Topic, cfg.ExperienceLevel)
	fmt.Fprintf(&sb, "The candidate answered %d questions in %.0f minutes (average answer: %.0f seconds).\n\n",
		meta.QuestionsAnswered, meta.TotalDuration.Minutes(), float64(meta.AvgResponseMs)/1000)

	sb.WriteString("PER-ANSWER ASSESSMENTS:\n")
	for i, an := range analyses {
		fmt.Fprintf(&sb, "%d. score %.0f (clarity %.0f, structure %.0f, technical %.0f, communication %.0f, confidence %.0f, relevance %.0f)\n",
			i+1, an.Score, an.Scores.Clarity, an.Scores.Structure, an.Scores.Technical,
			an.Scores.Communication, an.Scores.Confidence, an.Scores.Relevance)
		if an.Feedback != "" {
			sb.WriteString("   feedback: " + condense(an.Feedback, 200) + "\n")
		}
	}

	sb.WriteString("\nDescribe improvement across the session, consistency, and adaptability in a few words each.\n")
	sb.WriteString("Respond with a JSON object:\n")
	sb.WriteString(`{"overall_score": 0-100, "performance_level": "...", "improvement": "...", ` +
		`"consistency": "...", "adaptability": "...", "strengths": [...], "improvements": [...], ` +
		`"recommendations": [...], "next_steps": [...], "executive_summary": "..."}`)
	sb.WriteString("\n")
	return sb.String()
}

func meanScore(analyses []model.ResponseAnalysis) float64 {
	if len(analyses) == 0 {
		return 0
	}
	var sum float64
	for _, a := range analyses {
		sum += a.Score
	}
	return sum / float64(len(analyses))
}

func defaultSummary(score float64, meta SessionMeta) string {
	return fmt.Sprintf("The candidate answered %d questions with an overall score of %.0f/100 (%s).",
		meta.QuestionsAnswered, score, model.PerformanceLevelForScore(score))
}

// fallbackOverall is the arithmetic-mean synthesis: overall score is the
// mean of per-response scores, strengths and improvements are the top three
// deduplicated entries pooled across all responses, and trends come from
// comparing the first and second half of the session.
func fallbackOverall(analyses []model.ResponseAnalysis, meta SessionMeta) model.OverallAnalysis {
	score := meanScore(analyses)

	var strengths, improvements []string
	for _, a := range analyses {
		strengths = append(strengths, a.Strengths...)
		improvements = append(improvements, a.Improvements...)
	}
	strengths = dedupTop(strengths, 3)
	improvements = dedupTop(improvements, 3)

	return model.OverallAnalysis{
		OverallScore:     score,
		PerformanceLevel: model.PerformanceLevelForScore(score),
		Trends:           fallbackTrends(analyses),
		Strengths:        strengths,
		Improvements:     improvements,
		Recommendations: []string{
			"Practice answering questions aloud within a 2-3 minute window",
			"Prepare concrete examples from past work for common question patterns",
		},
		NextSteps: []string{
			"Review the per-question feedback below",
			"Schedule another rehearsal focusing on the weakest areas",
		},
		ExecutiveSummary: defaultSummary(score, meta),
	}
}

func fallbackTrends(analyses []model.ResponseAnalysis) model.Trends {
	t := model.Trends{Improvement: "steady", Consistency: "moderate", Adaptability: "moderate"}
	if len(analyses) < 2 {
		return t
	}

	half := len(analyses) / 2
	first := meanScore(analyses[:half])
	second := meanScore(analyses[half:])
	switch {
	case second > first+5:
		t.Improvement = "improving"
	case second < first-5:
		t.Improvement = "declining"
	}

	min, max := analyses[0].Score, analyses[0].Score
	for _, a := range analyses[1:] {
		if a.Score < min {
			min = a.Score
		}
		if a.Score > max {
			max = a.Score
		}
	}
	if max-min <= 10 {
		t.Consistency = "high"
	} else if max-min > 25 {
		t.Consistency = "low"
	}
	return t
}

// dedupTop keeps the first n distinct entries, comparing case-insensitively.
func dedupTop(items []string, n int) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, s := range items {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}
