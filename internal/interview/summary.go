package interview

import (
	"math"

	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
)

// strengthPercent is the per-answer score at which an answer counts as a strength.
const strengthPercent = 70

// Grade labels an overall percentage.
type Grade string

const (
	GradeExcellent Grade = "Excellent"
	GradeGood      Grade = "Good"
	GradeFair      Grade = "Fair"
	GradeNeedsWork Grade = "Needs work"
)

// GradeFor maps a 0–100 percentage to its label.
func GradeFor(percent float64) Grade {
	switch {
	case percent >= 80:
		return GradeExcellent
	case percent >= 60:
		return GradeGood
	case percent >= 40:
		return GradeFair
	default:
		return GradeNeedsWork
	}
}

// SummaryItem is one row of the feedback report.
type SummaryItem struct {
	Question string
	Category questions.Category
	Status   Status
	Percent  int
	Feedback string
}

// Summary is the rendered feedback report for a finished session.
type Summary struct {
	Items        []SummaryItem
	Answered     int
	Skipped      int
	Strengths    int
	Improvements int
	Percent      int
	Grade        Grade
}

// Summarize builds the feedback report for r, aggregating under policy.
func Summarize(r Report, policy score.Policy) Summary {
	var s Summary
	for _, a := range r.Answers {
		pct := score.ToPercent(a.Score)
		s.Items = append(s.Items, SummaryItem{
			Question: a.Question,
			Category: a.Category,
			Status:   a.Status,
			Percent:  int(math.Round(pct)),
			Feedback: a.Feedback,
		})

		if a.Status == StatusSkipped {
			s.Skipped++
			s.Improvements++
			continue
		}
		s.Answered++
		if pct >= strengthPercent {
			s.Strengths++
		} else {
			s.Improvements++
		}
	}

	overall := score.ToPercent(score.Aggregate(r.Entries(), policy))
	s.Percent = int(math.Round(overall))
	s.Grade = GradeFor(overall)
	return s
}
