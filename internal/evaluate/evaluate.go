// Package evaluate defines the answer-evaluation contract shared by the AI,
// gRPC and in-process evaluators.
package evaluate

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
)

var ErrMalformed = errors.New("malformed evaluation")

// Request is one answer to grade.
type Request struct {
	Question string
	Answer   string
	Category questions.Category
	Stack    string
}

// Result is the evaluator's verdict on its own scale.
type Result struct {
	Score    float64
	Scale    score.Scale
	Feedback string
}

// Canonical converts r onto the core 0–5 scale.
func (r Result) Canonical() float64 {
	return score.Normalize(r.Score, r.Scale)
}

// Evaluator grades answers. Implementations are best-effort; callers fall back on error.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// Func adapts a function to Evaluator.
type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Evaluate(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Validate rejects results that cannot be normalized.
func Validate(r Result) error {
	if r.Scale.Max <= r.Scale.Min {
		return fmt.Errorf("%w: scale [%v, %v]", ErrMalformed, r.Scale.Min, r.Scale.Max)
	}
	if r.Score < r.Scale.Min || r.Score > r.Scale.Max {
		return fmt.Errorf("%w: score %v outside [%v, %v]", ErrMalformed, r.Score, r.Scale.Min, r.Scale.Max)
	}
	return nil
}
