package interview

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyrily/hyrily/internal/score"
)

func TestGradeFor(t *testing.T) {
	require.Equal(t, GradeExcellent, GradeFor(80))
	require.Equal(t, GradeGood, GradeFor(79.9))
	require.Equal(t, GradeGood, GradeFor(60))
	require.Equal(t, GradeFair, GradeFor(40))
	require.Equal(t, GradeNeedsWork, GradeFor(39))
}

func TestSummarize(t *testing.T) {
	report := Report{Answers: []Answer{
		{Question: "a", Score: 4.5, Status: StatusAnswered, Feedback: "great"},
		{Question: "b", Score: 2, Status: StatusAnswered},
		{Question: "c", Score: 0, Status: StatusSkipped, Feedback: timeExpiredFeedback},
	}}

	s := Summarize(report, score.IncludeSkipped)
	require.Len(t, s.Items, 3)
	require.Equal(t, 90, s.Items[0].Percent)
	require.Equal(t, 2, s.Answered)
	require.Equal(t, 1, s.Skipped)
	require.Equal(t, 1, s.Strengths)
	require.Equal(t, 2, s.Improvements)
	require.Equal(t, 43, s.Percent)
	require.Equal(t, GradeFair, s.Grade)

	s = Summarize(report, score.AnsweredOnly)
	require.Equal(t, 65, s.Percent)
	require.Equal(t, GradeGood, s.Grade)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(Report{}, score.IncludeSkipped)
	require.Zero(t, s.Percent)
	require.Equal(t, GradeNeedsWork, s.Grade)
	require.Empty(t, s.Items)
}
