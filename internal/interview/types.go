package interview

import (
	"context"
	"errors"
	"time"

	"github.com/hyrily/hyrily/internal/capture"
	"github.com/hyrily/hyrily/internal/fsm"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
)

var (
	ErrVoiceUnavailable = errors.New("voice capture unavailable")
	ErrAlreadyScoring   = errors.New("answer already submitted")
	ErrEmptyAnswer      = errors.New("answer is empty")
	ErrNotRunning       = errors.New("interview is not running")
	ErrBusy             = errors.New("interview is busy")
)

// Modality is how the candidate answers.
type Modality string

const (
	ModalityTyped Modality = "typed"
	ModalityVoice Modality = "voice"
)

// Timing is the per-question clock policy.
type Timing string

const (
	// TimingUntimed has no per-question countdown.
	TimingUntimed Timing = "untimed"
	// TimingTimed counts down each question; recording is started by the candidate.
	TimingTimed Timing = "timed"
	// TimingContinuous counts down, records automatically and submits after a quiet period.
	TimingContinuous Timing = "continuous"
)

// Status marks whether an answer was given.
type Status string

const (
	StatusAnswered Status = "answered"
	StatusSkipped  Status = "skipped"
)

const (
	DefaultQuestionBudget  = 60 * time.Second
	DefaultQuietPeriod     = 2 * time.Second
	DefaultEvaluateTimeout = 30 * time.Second
	DefaultFallbackScore   = 3.0
	DefaultTick            = time.Second

	timeExpiredFeedback    = "Not attended - time expired"
	sessionExpiredFeedback = "Not attended - session time expired"
	fallbackFeedback       = "Good response, could use more specific examples."
)

// Answer is the immutable record of one question's outcome. Score is on the
// canonical 0–5 scale.
type Answer struct {
	QuestionID string             `json:"question_id"`
	Question   string             `json:"question"`
	Category   questions.Category `json:"category,omitempty"`
	Text       string             `json:"text,omitempty"`
	Score      float64            `json:"score"`
	Status     Status             `json:"status"`
	Feedback   string             `json:"feedback,omitempty"`
	Fallback   bool               `json:"fallback,omitempty"`
}

// State is a point-in-time view of a running session.
type State struct {
	Phase         fsm.State
	QuestionIndex int
	Question      questions.Question
	Total         int
	Elapsed       time.Duration
	Remaining     time.Duration
	Answers       map[string]Answer
}

// Report is the session outcome handed to observers and reporters.
type Report struct {
	Questions  []questions.Question
	Answers    []Answer
	Aggregate  float64
	Stack      string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Completed  bool
	Cancelled  bool
	Err        error
}

// Entries adapts answers for score.Aggregate.
func (r Report) Entries() []score.Entry {
	out := make([]score.Entry, 0, len(r.Answers))
	for _, a := range r.Answers {
		out = append(out, score.Entry{Score: a.Score, Skipped: a.Status == StatusSkipped})
	}
	return out
}

// Config parameterizes one session.
type Config struct {
	Modality        Modality
	Timing          Timing
	QuestionBudget  time.Duration
	SessionCap      time.Duration
	QuietPeriod     time.Duration
	Scale           score.Scale
	SkipPolicy      score.Policy
	FallbackScore   float64
	EvaluateTimeout time.Duration
	AdvanceDelay    time.Duration
	Stack           string
	Tick            time.Duration
}

func (c Config) withDefaults() Config {
	if c.Modality == "" {
		c.Modality = ModalityTyped
	}
	if c.Timing == "" {
		c.Timing = TimingUntimed
	}
	if c.QuestionBudget <= 0 {
		c.QuestionBudget = DefaultQuestionBudget
	}
	if c.QuietPeriod <= 0 {
		c.QuietPeriod = DefaultQuietPeriod
	}
	if c.Scale.Max <= c.Scale.Min {
		c.Scale = score.Canonical
	}
	if c.SkipPolicy == "" {
		c.SkipPolicy = score.IncludeSkipped
	}
	if c.FallbackScore <= 0 {
		c.FallbackScore = DefaultFallbackScore
	}
	c.FallbackScore = score.Clamp(c.FallbackScore)
	if c.EvaluateTimeout <= 0 {
		c.EvaluateTimeout = DefaultEvaluateTimeout
	}
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	return c
}

func (c Config) timed() bool {
	return c.Timing == TimingTimed || c.Timing == TimingContinuous
}

// Listener is the capture surface the orchestrator drives. *capture.Engine
// satisfies it.
type Listener interface {
	Supported() bool
	StartListening() error
	StopListening()
	ResetTranscript()
	Snapshot() capture.Snapshot
	Changes() <-chan struct{}
}

// Observer receives presentation updates. Calls arrive on the Run goroutine
// and must return promptly.
type Observer interface {
	Phase(State)
	Question(index int, q questions.Question)
	Transcript(capture.Snapshot)
	Countdown(remaining time.Duration)
	Scored(Answer)
	Notice(message string)
	Completed(Report)
}

// NopObserver ignores every update. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) Phase(State)                      {}
func (NopObserver) Question(int, questions.Question) {}
func (NopObserver) Transcript(capture.Snapshot)      {}
func (NopObserver) Countdown(time.Duration)          {}
func (NopObserver) Scored(Answer)                    {}
func (NopObserver) Notice(string)                    {}
func (NopObserver) Completed(Report)                 {}

// Reporter persists completed sessions.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r Report) error

func (f ReporterFunc) Report(ctx context.Context, r Report) error {
	return f(ctx, r)
}
