// Package tts speaks interview questions. Speak blocks until playback ends so
// the orchestrator can treat synthesis as a single awaited step.
package tts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Speaker plays text aloud. A returned error never blocks an interview; callers
// treat it as completion.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Func adapts a function to Speaker.
type Func func(ctx context.Context, text string) error

func (f Func) Speak(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Console writes the question to a terminal instead of speaking it.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "\n  %s\n\n", strings.TrimSpace(text))
	return err
}

// Chain runs each speaker in order, stopping at the first error.
type Chain []Speaker

func (c Chain) Speak(ctx context.Context, text string) error {
	for _, s := range c {
		if s == nil {
			continue
		}
		if err := s.Speak(ctx, text); err != nil {
			return err
		}
	}
	return nil
}
