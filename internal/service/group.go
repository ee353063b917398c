// Package service runs cooperating long-lived components under one context.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Func is one long-lived component. It returns when ctx is cancelled or it
// fails; a nil return before cancellation is a normal finish.
type Func func(ctx context.Context) error

// Group runs named services and stops all of them when the first finishes.
type Group struct {
	names []string
	funcs []Func
}

// Add registers fn under name.
func (g *Group) Add(name string, fn Func) {
	g.names = append(g.names, name)
	g.funcs = append(g.funcs, fn)
}

// Run starts every service and waits for all of them. The first return
// cancels the rest; errors are combined.
func (g *Group) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result *multierror.Error
	)
	for i, fn := range g.funcs {
		name := g.names[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()

			if err := fn(ctx); err != nil {
				mu.Lock()
				result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return result.ErrorOrNil()
}
