package session

import "github.com/voxprep/voxprep/internal/model"

// Base minutes per question by seniority: senior answers take longer.
var minutesPerQuestion = map[model.ExperienceLevel]float64{
	model.LevelFresher:     4,
	model.LevelJunior:      5,
	model.LevelMid:         6,
	model.LevelSenior:      7,
	model.LevelLeadManager: 8,
}

// Style adjustment on top of the base: deep formats get more time per
// question, rapid formats less.
var styleAdjustment = map[model.InterviewStyle]float64{
	model.StyleTechnical:         1,
	model.StyleCaseStudy:         2,
	model.StyleBehavioral:        0.5,
	model.StyleHR:                -0.5,
	model.StyleSalaryNegotiation: -1,
}

// MaxQuestions computes how many questions fit in an interview of the
// given duration. The result is clamped to [3, min(15, max(8,
// duration/3))] so even short sessions ask a few questions and long ones
// stay bounded.
func MaxQuestions(durationMinutes int, level model.ExperienceLevel, style model.InterviewStyle) int {
	per, ok := minutesPerQuestion[level]
	if !ok {
		per = 6
	}
	per += styleAdjustment[style]

	n := int(float64(durationMinutes) / per)

	upper := durationMinutes / 3
	if upper < 8 {
		upper = 8
	}
	if upper > 15 {
		upper = 15
	}
	if n > upper {
		n = upper
	}
	if n < 3 {
		n = 3
	}
	return n
}
