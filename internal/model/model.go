package model

import (
	"fmt"
	"strings"
	"time"
)

// InterviewStyle selects the interviewer persona and question mix.
type InterviewStyle string

const (
	StyleTechnical         InterviewStyle = "technical"
	StyleHR                InterviewStyle = "hr"
	StyleBehavioral        InterviewStyle = "behavioral"
	StyleSalaryNegotiation InterviewStyle = "salary-negotiation"
	StyleCaseStudy         InterviewStyle = "case-study"
)

// ExperienceLevel is the candidate's seniority band.
type ExperienceLevel string

const (
	LevelFresher     ExperienceLevel = "fresher"
	LevelJunior      ExperienceLevel = "junior"
	LevelMid         ExperienceLevel = "mid-level"
	LevelSenior      ExperienceLevel = "senior"
	LevelLeadManager ExperienceLevel = "lead-manager"
)

// Difficulty represents question difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Complexity is the topic-level complexity estimate.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// TopicRelevance grades how closely a question tracks the requested topic.
type TopicRelevance string

const (
	RelevanceHigh   TopicRelevance = "high"
	RelevanceMedium TopicRelevance = "medium"
)

// SessionStatus represents the lifecycle state of an interview session.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
)

// PerformanceLevel buckets an overall score.
type PerformanceLevel string

const (
	PerformanceExcellent        PerformanceLevel = "excellent"
	PerformanceGood             PerformanceLevel = "good"
	PerformanceFair             PerformanceLevel = "fair"
	PerformanceNeedsImprovement PerformanceLevel = "needs_improvement"
)

// PerformanceLevelForScore maps an overall score to its performance bucket.
func PerformanceLevelForScore(score float64) PerformanceLevel {
	switch {
	case score >= 85:
		return PerformanceExcellent
	case score >= 70:
		return PerformanceGood
	case score >= 60:
		return PerformanceFair
	default:
		return PerformanceNeedsImprovement
	}
}

// InterviewConfig describes one interview attempt. Immutable for the life
// of a session.
type InterviewConfig struct {
	Topic           string          `json:"topic"`
	Style           InterviewStyle  `json:"style"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	CompanyName     string          `json:"company_name,omitempty"`
	DurationMinutes int             `json:"duration_minutes"`
}

var validStyles = map[InterviewStyle]bool{
	StyleTechnical:         true,
	StyleHR:                true,
	StyleBehavioral:        true,
	StyleSalaryNegotiation: true,
	StyleCaseStudy:         true,
}

var validLevels = map[ExperienceLevel]bool{
	LevelFresher:     true,
	LevelJunior:      true,
	LevelMid:         true,
	LevelSenior:      true,
	LevelLeadManager: true,
}

// Validate rejects configs before any model call is attempted.
func (c InterviewConfig) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("interview config: topic is required")
	}
	if !validStyles[c.Style] {
		return fmt.Errorf("interview config: unknown style %q", c.Style)
	}
	if !validLevels[c.ExperienceLevel] {
		return fmt.Errorf("interview config: unknown experience level %q", c.ExperienceLevel)
	}
	if c.DurationMinutes <= 0 {
		return fmt.Errorf("interview config: duration must be positive, got %d", c.DurationMinutes)
	}
	return nil
}

// CacheKey canonicalizes the parts of the config that determine a topic
// analysis. Two sessions with the same key share the same analysis.
func (c InterviewConfig) CacheKey() string {
	return strings.ToLower(strings.TrimSpace(c.Topic)) + "|" + string(c.Style) + "|" + string(c.ExperienceLevel)
}

// TopicAnalysis is the per-topic breakdown driving question planning.
// Derived once per cache key and never mutated afterwards.
type TopicAnalysis struct {
	MainConcepts       []string   `json:"main_concepts"`
	Skills             []string   `json:"skills"`
	Technologies       []string   `json:"technologies"`
	FocusAreas         []string   `json:"focus_areas"`
	RelevanceKeywords  []string   `json:"relevance_keywords"`
	Complexity         Complexity `json:"complexity"`
	QuestionCategories []string   `json:"question_categories"`
}

// QuestionSpec describes the next question to generate. Ephemeral, built
// fresh per request.
type QuestionSpec struct {
	Category     string     `json:"category"`
	Difficulty   Difficulty `json:"difficulty"`
	FocusArea    string     `json:"focus_area"`
	Concepts     []string   `json:"concepts"`
	AvoidTopics  []string   `json:"avoid_topics"`
	QuestionType string     `json:"question_type"`
}

// QuestionMetadata annotates a generated question.
type QuestionMetadata struct {
	Difficulty     Difficulty     `json:"difficulty"`
	FocusArea      string         `json:"focus_area"`
	Concepts       []string       `json:"concepts"`
	QuestionType   string         `json:"question_type"`
	TopicRelevance TopicRelevance `json:"topic_relevance"`
}

// GeneratedQuestion is one interview question plus its metadata.
type GeneratedQuestion struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Metadata QuestionMetadata `json:"metadata"`
}

// InterviewResponse records one candidate answer. Appended by the session
// manager and never mutated.
type InterviewResponse struct {
	QuestionID    string         `json:"question_id"`
	QuestionText  string         `json:"question_text"`
	ResponseText  string         `json:"response_text"`
	Timestamp     time.Time      `json:"timestamp"`
	DurationMs    int64          `json:"duration_ms"`
	AudioMetadata map[string]any `json:"audio_metadata,omitempty"`
}

// ScoreBreakdown holds the six per-response sub-scores, each in [0,100].
type ScoreBreakdown struct {
	Clarity       float64 `json:"clarity"`
	Structure     float64 `json:"structure"`
	Technical     float64 `json:"technical"`
	Communication float64 `json:"communication"`
	Confidence    float64 `json:"confidence"`
	Relevance     float64 `json:"relevance"`
}

// ResponseAnalysis is the assessment of a single answer. Computed once,
// immutable.
type ResponseAnalysis struct {
	Scores       ScoreBreakdown `json:"scores"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
	Score        float64        `json:"score"`
	Feedback     string         `json:"feedback"`
}

// Trends summarizes score movement across the session.
type Trends struct {
	Improvement  string `json:"improvement"`
	Consistency  string `json:"consistency"`
	Adaptability string `json:"adaptability"`
}

// OverallAnalysis is the end-of-interview synthesis over all responses.
type OverallAnalysis struct {
	OverallScore     float64          `json:"overall_score"`
	PerformanceLevel PerformanceLevel `json:"performance_level"`
	Trends           Trends           `json:"trends"`
	Strengths        []string         `json:"strengths"`
	Improvements     []string         `json:"improvements"`
	Recommendations  []string         `json:"recommendations"`
	NextSteps        []string         `json:"next_steps"`
	ExecutiveSummary string           `json:"executive_summary"`
}

// Session is the mutable record of one interview attempt. Owned exclusively
// by the session manager and mutated only through its operations.
type Session struct {
	ID                   string              `json:"id"`
	Config               InterviewConfig     `json:"config"`
	Participant          string              `json:"participant"`
	RoomID               string              `json:"room_id,omitempty"`
	StartedAt            time.Time           `json:"started_at"`
	CurrentQuestionIndex int                 `json:"current_question_index"`
	Questions            []GeneratedQuestion `json:"questions"`
	Responses            []InterviewResponse `json:"responses"`
	Status               SessionStatus       `json:"status"`
	CachedNextQuestion   *GeneratedQuestion  `json:"-"`
	PausedAt             *time.Time          `json:"paused_at,omitempty"`
	PausedTotal          time.Duration       `json:"paused_total"`
	CompletedAt          *time.Time          `json:"completed_at,omitempty"`
}

// Clone returns a deep-enough copy for read-only snapshots: slices are
// copied so callers cannot alter session history through the snapshot.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Questions = append([]GeneratedQuestion(nil), s.Questions...)
	cp.Responses = append([]InterviewResponse(nil), s.Responses...)
	if s.CachedNextQuestion != nil {
		q := *s.CachedNextQuestion
		cp.CachedNextQuestion = &q
	}
	return &cp
}
