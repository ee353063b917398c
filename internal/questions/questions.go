// Package questions holds interview question types, the built-in banks and the
// generator contract with its fallback policy.
package questions

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Category string

const (
	Technical      Category = "technical"
	Behavioral     Category = "behavioral"
	ProblemSolving Category = "problem-solving"
	SystemDesign   Category = "system-design"
)

// Question is immutable once presented.
type Question struct {
	ID       string   `json:"id" yaml:"id"`
	Category Category `json:"type" yaml:"type"`
	Text     string   `json:"question" yaml:"question"`
}

// Generator produces questions for a technology stack.
type Generator interface {
	Generate(ctx context.Context, stack string, count int) ([]Question, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, stack string, count int) ([]Question, error)

func (f GeneratorFunc) Generate(ctx context.Context, stack string, count int) ([]Question, error) {
	return f(ctx, stack, count)
}

var ErrNoQuestions = errors.New("no questions")

//go:embed banks/*.yaml
var banks embed.FS

type bankFile struct {
	Name      string     `yaml:"name"`
	Questions []Question `yaml:"questions"`
}

// Bank returns a built-in bank by name ("company" or "frontend").
func Bank(name string) ([]Question, error) {
	data, err := banks.ReadFile("banks/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown question bank %q", name)
	}
	return parseBank(data, name)
}

// Fallback is the fixed mixed-category list used when generation fails.
func Fallback() []Question {
	qs, err := Bank("company")
	if err != nil {
		panic(err)
	}
	return qs
}

// LoadBank reads a YAML bank from disk.
func LoadBank(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank %q: %w", path, err)
	}
	return parseBank(data, path)
}

func parseBank(data []byte, name string) ([]Question, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question bank %q: %w", name, err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("question bank %q: %w", name, ErrNoQuestions)
	}
	return Normalize(file.Questions), nil
}

// Normalize trims text, drops empty entries and assigns q1..qN ids where missing.
func Normalize(in []Question) []Question {
	out := make([]Question, 0, len(in))
	for _, q := range in {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			continue
		}
		q.Category = Category(strings.TrimSpace(string(q.Category)))
		if q.Category == "" {
			q.Category = Technical
		}
		out = append(out, q)
	}
	seen := make(map[string]bool, len(out))
	for i := range out {
		if out[i].ID == "" || seen[out[i].ID] {
			out[i].ID = fmt.Sprintf("q%d", i+1)
		}
		seen[out[i].ID] = true
	}
	return out
}

// Draw picks n questions from pool without replacement. n <= 0 or n >= len(pool)
// returns the whole pool in its original order.
func Draw(pool []Question, n int, rng *rand.Rand) []Question {
	if n <= 0 || n >= len(pool) {
		return append([]Question(nil), pool...)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	idx := rng.Perm(len(pool))[:n]
	out := make([]Question, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

// Take returns exactly count questions from list, cycling when it is shorter.
func Take(list []Question, count int) []Question {
	if count <= 0 || len(list) == 0 {
		return append([]Question(nil), list...)
	}
	out := make([]Question, 0, count)
	for i := 0; i < count; i++ {
		q := list[i%len(list)]
		if i >= len(list) {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		out = append(out, q)
	}
	return out
}

type fallbackGenerator struct {
	next     Generator
	fallback []Question
	onError  func(error)
}

// WithFallback wraps next so failures and empty results resolve to fallback.
func WithFallback(next Generator, fallback []Question, onError func(error)) Generator {
	return &fallbackGenerator{next: next, fallback: fallback, onError: onError}
}

func (g *fallbackGenerator) Generate(ctx context.Context, stack string, count int) ([]Question, error) {
	if g.next != nil {
		qs, err := g.next.Generate(ctx, stack, count)
		if err == nil && len(qs) > 0 {
			return Normalize(qs), nil
		}
		if err == nil {
			err = ErrNoQuestions
		}
		if g.onError != nil {
			g.onError(err)
		}
	}
	if len(g.fallback) == 0 {
		return nil, ErrNoQuestions
	}
	return Take(g.fallback, count), nil
}
