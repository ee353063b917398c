// Package ai adapts generative-text providers into the question generator and
// answer evaluator used by interviews.
package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Completer turns a prompt into model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	ErrNoJSON      = errors.New("no JSON in model response")
	ErrEmptyAnswer = errors.New("model returned no text")

	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	arrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
)

func extractObject(text string) ([]byte, error) {
	match := objectPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("%w: expected object", ErrNoJSON)
	}
	return []byte(match), nil
}

func extractArray(text string) ([]byte, error) {
	match := arrayPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("%w: expected array", ErrNoJSON)
	}
	return []byte(match), nil
}
