package session

import (
	"testing"

	"github.com/voxprep/voxprep/internal/model"
)

func TestMaxQuestions(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		level    model.ExperienceLevel
		style    model.InterviewStyle
		want     int
	}{
		{"junior technical half hour", 30, model.LevelJunior, model.StyleTechnical, 5},
		{"fresher hr short", 15, model.LevelFresher, model.StyleHR, 4},
		{"senior case study floors at minimum", 10, model.LevelSenior, model.StyleCaseStudy, 3},
		{"fresher salary long caps at fifteen", 120, model.LevelFresher, model.StyleSalaryNegotiation, 15},
		{"mid behavioral hour", 60, model.LevelMid, model.StyleBehavioral, 9},
		{"lead manager technical hour", 60, model.LevelLeadManager, model.StyleTechnical, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxQuestions(tt.duration, tt.level, tt.style)
			if got != tt.want {
				t.Errorf("MaxQuestions(%d, %s, %s) = %d, want %d",
					tt.duration, tt.level, tt.style, got, tt.want)
			}
		})
	}
}

func TestMaxQuestionsMonotonicInDuration(t *testing.T) {
	prev := 0
	for d := 10; d <= 180; d += 5 {
		got := MaxQuestions(d, model.LevelJunior, model.StyleTechnical)
		if got < prev {
			t.Fatalf("MaxQuestions dropped from %d to %d at duration %d", prev, got, d)
		}
		if got < 3 || got > 15 {
			t.Fatalf("MaxQuestions(%d) = %d, outside [3, 15]", d, got)
		}
		prev = got
	}
}
