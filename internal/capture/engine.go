// Package capture wraps a continuous speech recognizer behind a small, stable
// transcript contract with restart-on-end resilience.
package capture

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultRestartDelay masks platform session limits between recognizer runs.
const DefaultRestartDelay = 500 * time.Millisecond

// Result is one recognition hypothesis delivered since the previous result event.
type Result struct {
	Text  string
	Final bool
}

// Sink receives recognizer lifecycle callbacks. Engine implements it.
type Sink interface {
	OnStart()
	OnResult([]Result)
	OnError(ErrorCode)
	OnEnd()
}

// Recognizer is the platform speech-to-text primitive.
type Recognizer interface {
	Start(Sink) error
	Stop() error
}

// Snapshot is the observable transcript and listening state.
type Snapshot struct {
	Interim    string
	Final      string
	Transcript string
	Listening  bool
	Supported  bool
	Err        *Error
}

// Option configures an Engine.
type Option func(*Engine)

// WithRestartDelay overrides DefaultRestartDelay.
func WithRestartDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.restartDelay = d
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine is the continuous speech capture state machine.
type Engine struct {
	rec          Recognizer
	supported    bool
	restartDelay time.Duration
	logger       *slog.Logger

	mu         sync.Mutex
	want       bool
	listening  bool
	finals     []string
	interim    string
	err        *Error
	restart    *time.Timer
	generation uint64

	changes chan struct{}
}

// New builds an engine over rec. A nil recognizer yields an unsupported engine
// whose start and stop are no-ops.
func New(rec Recognizer, opts ...Option) *Engine {
	e := &Engine{
		rec:          rec,
		supported:    rec != nil,
		restartDelay: DefaultRestartDelay,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		changes:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supported reports whether a recognizer is available. Fixed at construction.
func (e *Engine) Supported() bool {
	return e.supported
}

// StartListening begins continuous capture. It is a no-op when already listening.
func (e *Engine) StartListening() error {
	if !e.supported {
		return nil
	}

	e.mu.Lock()
	if e.want {
		e.mu.Unlock()
		return nil
	}
	e.want = true
	e.err = nil
	e.generation++
	e.mu.Unlock()

	if err := e.rec.Start(e); err != nil {
		e.logger.Warn("recognizer start failed", "error", err.Error())
		e.OnError(codeOf(err))
		return err
	}
	return nil
}

// StopListening halts capture and cancels any pending restart.
func (e *Engine) StopListening() {
	if !e.supported {
		return
	}

	e.mu.Lock()
	e.want = false
	e.generation++
	e.cancelRestartLocked()
	e.listening = false
	e.mu.Unlock()

	if err := e.rec.Stop(); err != nil {
		e.logger.Debug("recognizer stop failed", "error", err.Error())
	}
	e.notify()
}

// ResetTranscript clears the transcript without touching listening state. A
// fault other than a denied microphone is cleared with it.
func (e *Engine) ResetTranscript() {
	e.mu.Lock()
	e.finals = nil
	e.interim = ""
	if !e.err.PermissionDenied() {
		e.err = nil
	}
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	final := strings.Join(e.finals, " ")
	return Snapshot{
		Interim:    e.interim,
		Final:      final,
		Transcript: joinText(final, e.interim),
		Listening:  e.listening,
		Supported:  e.supported,
		Err:        e.err,
	}
}

func (e *Engine) Transcript() string {
	return e.Snapshot().Transcript
}

func (e *Engine) FinalTranscript() string {
	return e.Snapshot().Final
}

func (e *Engine) Listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listening
}

// Err returns the last fatal fault, if any.
func (e *Engine) Err() *Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Changes fires after every observable state change. Notifications coalesce.
func (e *Engine) Changes() <-chan struct{} {
	return e.changes
}

func (e *Engine) OnStart() {
	e.mu.Lock()
	e.listening = true
	e.err = nil
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) OnResult(results []Result) {
	e.mu.Lock()
	var interim []string
	for _, result := range results {
		if result.Final {
			e.finals = appendFinal(e.finals, result.Text)
			continue
		}
		interim = append(interim, result.Text)
	}
	e.interim = joinText(interim...)
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) OnError(code ErrorCode) {
	disp, fault := classify(code)
	switch disp {
	case dispositionIgnore:
		return
	case dispositionRestart:
		e.logger.Info("recognizer transient fault", "code", string(code))
		e.mu.Lock()
		e.listening = false
		if e.want {
			e.scheduleRestartLocked()
		}
		e.mu.Unlock()
	case dispositionFatal:
		e.logger.Warn("recognizer fatal fault", "code", string(code), "message", fault.Message)
		e.mu.Lock()
		e.err = fault
		e.want = false
		e.listening = false
		e.generation++
		e.cancelRestartLocked()
		e.mu.Unlock()
	}
	e.notify()
}

func (e *Engine) OnEnd() {
	e.mu.Lock()
	e.listening = false
	if e.want && e.err == nil {
		e.scheduleRestartLocked()
	}
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) scheduleRestartLocked() {
	if e.restart != nil {
		return
	}
	generation := e.generation
	e.restart = time.AfterFunc(e.restartDelay, func() {
		e.fireRestart(generation)
	})
}

func (e *Engine) cancelRestartLocked() {
	if e.restart == nil {
		return
	}
	e.restart.Stop()
	e.restart = nil
}

func (e *Engine) fireRestart(generation uint64) {
	e.mu.Lock()
	if generation != e.generation || !e.want {
		e.mu.Unlock()
		return
	}
	e.restart = nil
	e.mu.Unlock()

	e.logger.Debug("restarting recognizer")
	if err := e.rec.Start(e); err != nil {
		e.logger.Warn("recognizer restart failed", "error", err.Error())
		e.OnError(codeOf(err))
		return
	}

	// StopListening may have run while Start was in flight.
	e.mu.Lock()
	stale := !e.want
	if stale {
		e.listening = false
	}
	e.mu.Unlock()
	if stale {
		if err := e.rec.Stop(); err != nil {
			e.logger.Debug("recognizer stop failed", "error", err.Error())
		}
		e.notify()
	}
}

func (e *Engine) notify() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}
