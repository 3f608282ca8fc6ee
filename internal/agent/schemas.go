package agent

import "github.com/voxprep/voxprep/internal/normalize"

// Schema names, one per agent.
const (
	SchemaTopicAnalysis      = "topic_analysis"
	SchemaQuestionGeneration = "question_generation"
	SchemaQuestionValidation = "question_validation"
	SchemaQuestionPlanning   = "question_planning"
	SchemaResponseAnalysis   = "response_analysis"
	SchemaOverallAnalysis    = "overall_analysis"
)

func scoreRule(def float64) normalize.Rule {
	return normalize.Rule{
		Required: true,
		Type:     normalize.TypeNumber,
		Default:  def,
		Min:      normalize.Limit(0),
		Max:      normalize.Limit(100),
		Coerce:   true,
	}
}

func init() {
	normalize.Register(SchemaTopicAnalysis, normalize.Schema{
		"main_concepts":       {Required: true, Type: normalize.TypeArray, Coerce: true},
		"skills":              {Required: true, Type: normalize.TypeArray, Coerce: true},
		"technologies":        {Type: normalize.TypeArray, Default: []any{}, Coerce: true},
		"focus_areas":         {Required: true, Type: normalize.TypeArray, Coerce: true},
		"relevance_keywords":  {Required: true, Type: normalize.TypeArray, Coerce: true},
		"complexity":          {Required: true, Type: normalize.TypeString, Default: "medium", Coerce: true},
		"question_categories": {Type: normalize.TypeArray, Default: []any{}, Coerce: true},
	})

	normalize.Register(SchemaQuestionGeneration, normalize.Schema{
		"question":        {Required: true, Type: normalize.TypeString, Coerce: true},
		"difficulty":      {Type: normalize.TypeString, Default: "medium", Coerce: true},
		"focus_area":      {Type: normalize.TypeString, Default: "", Coerce: true},
		"concepts":        {Type: normalize.TypeArray, Default: []any{}, Coerce: true},
		"question_type":   {Type: normalize.TypeString, Default: "conceptual", Coerce: true},
		"topic_relevance": {Type: normalize.TypeString, Default: "medium", Coerce: true},
	})

	normalize.Register(SchemaQuestionValidation, normalize.Schema{
		"is_valid":         {Required: true, Type: normalize.TypeBool, Default: true, Coerce: true},
		"relevance_score":  scoreRule(60),
		"difficulty_score": scoreRule(60),
		"clarity_score":    scoreRule(60),
		"uniqueness_score": scoreRule(60),
		"decision":         {Required: true, Type: normalize.TypeString, Default: "approve", Coerce: true},
		"reason":           {Type: normalize.TypeString, Default: "", Coerce: true},
	})

	normalize.Register(SchemaQuestionPlanning, normalize.Schema{
		"category":      {Required: true, Type: normalize.TypeString, Coerce: true},
		"difficulty":    {Required: true, Type: normalize.TypeString, Default: "medium", Coerce: true},
		"focus_area":    {Required: true, Type: normalize.TypeString, Coerce: true},
		"concepts":      {Required: true, Type: normalize.TypeArray, Default: []any{}, Coerce: true},
		"avoid_topics":  {Type: normalize.TypeArray, Default: []any{}, Coerce: true},
		"question_type": {Type: normalize.TypeString, Default: "conceptual", Coerce: true},
	})

	normalize.Register(SchemaResponseAnalysis, normalize.Schema{
		"clarity":       scoreRule(50),
		"structure":     scoreRule(50),
		"technical":     scoreRule(50),
		"communication": scoreRule(50),
		"confidence":    scoreRule(50),
		"relevance":     scoreRule(50),
		"score":         scoreRule(50),
		"feedback":      {Required: true, Type: normalize.TypeString, Default: "No detailed feedback available for this answer.", Coerce: true},
		"strengths":     {Required: true, Type: normalize.TypeArray, Default: []any{}, Coerce: true},
		"improvements":  {Required: true, Type: normalize.TypeArray, Default: []any{}, Coerce: true},
	})

	normalize.Register(SchemaOverallAnalysis, normalize.Schema{
		"overall_score":     scoreRule(50),
		"performance_level": {Type: normalize.TypeString, Default: "", Coerce: true},
		"improvement":       {Type: normalize.TypeString, Default: "steady", Coerce: true},
		"consistency":       {Type: normalize.TypeString, Default: "moderate", Coerce: true},
		"adaptability":      {Type: normalize.TypeString, Default: "moderate", Coerce: true},
		"strengths":         {Required: true, Type: normalize.TypeArray, Default: []any{}, Coerce: true},
		"improvements":      {Required: true, Type: normalize.TypeArray, Default: []any{}, Coerce: true},
		"recommendations":   {Type: normalize.TypeArray, Default: []any{}, Coerce: true},
		"next_steps":        {Type: normalize.TypeArray, Default: []any{}, Coerce: true},
		"executive_summary": {Required: true, Type: normalize.TypeString, Default: "", Coerce: true},
	})
}
