package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/hyrily/hyrily/internal/evaluate"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
)

// Evaluator grades answers on a 0–100 scale through a Completer.
type Evaluator struct {
	completer Completer
}

func NewEvaluator(c Completer) *Evaluator {
	return &Evaluator{completer: c}
}

type evaluation struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

func (e *Evaluator) Evaluate(ctx context.Context, req evaluate.Request) (evaluate.Result, error) {
	text, err := e.completer.Complete(ctx, evaluationPrompt(req))
	if err != nil {
		return evaluate.Result{}, fmt.Errorf("evaluate answer: %w", err)
	}

	raw, err := extractObject(text)
	if err != nil {
		return evaluate.Result{}, err
	}

	var parsed evaluation
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return evaluate.Result{}, fmt.Errorf("%w: %v", evaluate.ErrMalformed, err)
	}

	result := evaluate.Result{
		Score:    parsed.Score,
		Scale:    score.Percent,
		Feedback: strings.TrimSpace(parsed.Feedback),
	}
	if err := evaluate.Validate(result); err != nil {
		return evaluate.Result{}, err
	}
	return result, nil
}

// QuestionGenerator asks a Completer for a JSON list of typed questions.
type QuestionGenerator struct {
	completer Completer
	nonce     func() int
}

func NewQuestionGenerator(c Completer) *QuestionGenerator {
	return &QuestionGenerator{
		completer: c,
		nonce:     func() int { return rand.IntN(1_000_000) },
	}
}

type generated struct {
	Type     string `json:"type"`
	Question string `json:"question"`
}

func (g *QuestionGenerator) Generate(ctx context.Context, stack string, count int) ([]questions.Question, error) {
	if count <= 0 {
		count = 12
	}

	text, err := g.completer.Complete(ctx, questionPrompt(stack, count, g.nonce()))
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	raw, err := extractArray(text)
	if err != nil {
		return nil, err
	}

	var items []generated
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse generated questions: %w", err)
	}

	out := make([]questions.Question, 0, len(items))
	for _, item := range items {
		out = append(out, questions.Question{
			Category: questions.Category(strings.ToLower(strings.TrimSpace(item.Type))),
			Text:     item.Question,
		})
	}
	out = questions.Normalize(out)
	if len(out) == 0 {
		return nil, questions.ErrNoQuestions
	}
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}
