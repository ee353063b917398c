// Package score normalizes evaluator output onto the canonical 0–5 scale and
// aggregates per-answer scores.
package score

import "math"

// Max is the top of the canonical scale.
const Max = 5.0

// Scale is the range an evaluator reports in.
type Scale struct {
	Min float64
	Max float64
}

var (
	Canonical = Scale{Min: 0, Max: Max}
	Percent   = Scale{Min: 0, Max: 100}
)

// Midpoint is the neutral fallback on s.
func (s Scale) Midpoint() float64 {
	return s.Min + (s.Max-s.Min)/2
}

func (s Scale) valid() bool {
	return s.Max > s.Min
}

// Normalize converts v from s onto the canonical scale, clamped.
func Normalize(v float64, from Scale) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if !from.valid() {
		from = Canonical
	}
	ratio := (v - from.Min) / (from.Max - from.Min)
	return Clamp(ratio * Max)
}

// Clamp bounds v to [0, Max].
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(Max, v))
}

// ToPercent renders a canonical score as 0–100.
func ToPercent(v float64) float64 {
	return Clamp(v) / Max * 100
}

// Policy decides whether skipped answers count toward the aggregate.
type Policy string

const (
	IncludeSkipped Policy = "include_skipped"
	AnsweredOnly   Policy = "answered_only"
)

// Entry is the aggregate's view of one answer.
type Entry struct {
	Score   float64
	Skipped bool
}

// Aggregate is the mean under p. Zero when nothing counts.
func Aggregate(entries []Entry, p Policy) float64 {
	var (
		sum   float64
		count int
	)
	for _, e := range entries {
		if e.Skipped && p == AnsweredOnly {
			continue
		}
		sum += e.Score
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Round1 rounds to one decimal place for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
