// Package interview drives question turn-taking: speak, capture, score and
// advance, under one parameterized orchestrator for every practice flow.
package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyrily/hyrily/internal/capture"
	"github.com/hyrily/hyrily/internal/evaluate"
	"github.com/hyrily/hyrily/internal/fsm"
	"github.com/hyrily/hyrily/internal/ipc"
	"github.com/hyrily/hyrily/internal/media"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
	"github.com/hyrily/hyrily/internal/tts"
)

type actionKind int

const (
	actionRecord actionKind = iota + 1
	actionStop
	actionSubmit
)

type action struct {
	kind  actionKind
	index int
	text  string
}

type spoken struct {
	index int
	err   error
}

type scored struct {
	index  int
	answer Answer
}

// Deps are the collaborators of one session. Nil fields fall back to
// no-op or unsupported implementations.
type Deps struct {
	Questions []questions.Question
	Speaker   tts.Speaker
	Capture   Listener
	Evaluator evaluate.Evaluator
	Reporter  Reporter
	Observer  Observer
	Media     media.Handle
	Logger    *slog.Logger
}

// Orchestrator runs one interview session. State mutation happens only on
// the Run goroutine; the request methods enqueue actions.
type Orchestrator struct {
	cfg       Config
	questions []questions.Question
	speaker   tts.Speaker
	capture   Listener
	evaluator evaluate.Evaluator
	reporter  Reporter
	observer  Observer
	media     media.Handle
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	state     fsm.State
	index     int
	submitted bool
	elapsed   time.Duration
	remaining time.Duration
	answers   map[string]Answer

	actions     chan action
	cancelled   chan struct{}
	cancelOnce  sync.Once
	releaseOnce sync.Once
	started     atomic.Bool

	// owned by Run
	spoken      chan spoken
	scored      chan scored
	done        chan struct{}
	speakCancel context.CancelFunc
	scoreCancel context.CancelFunc
	quiet       *time.Timer
	quietC      <-chan time.Time
	advance     *time.Timer
	advanceC    <-chan time.Time
	lastFinal   string
}

// New constructs an orchestrator with safe default fallbacks.
func New(cfg Config, deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	speaker := deps.Speaker
	if speaker == nil {
		speaker = tts.Func(func(context.Context, string) error { return nil })
	}
	listener := deps.Capture
	if listener == nil {
		listener = capture.New(nil)
	}
	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = evaluate.Func(func(context.Context, evaluate.Request) (evaluate.Result, error) {
			return evaluate.Result{}, errors.New("no evaluator configured")
		})
	}
	reporter := deps.Reporter
	if reporter == nil {
		reporter = ReporterFunc(func(context.Context, Report) error { return nil })
	}
	observer := deps.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	return &Orchestrator{
		cfg:       cfg.withDefaults(),
		questions: append([]questions.Question(nil), deps.Questions...),
		speaker:   speaker,
		capture:   listener,
		evaluator: evaluator,
		reporter:  reporter,
		observer:  observer,
		media:     deps.Media,
		logger:    logger,
		now:       time.Now,
		state:     fsm.StateIdle,
		answers:   make(map[string]Answer),
		actions:   make(chan action, 4),
		cancelled: make(chan struct{}),
		spoken:    make(chan spoken, 1),
		scored:    make(chan scored, 1),
		done:      make(chan struct{}),
	}
}

// State returns a snapshot for status displays.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()

	answers := make(map[string]Answer, len(o.answers))
	for id, a := range o.answers {
		answers[id] = a
	}
	var current questions.Question
	if o.index < len(o.questions) {
		current = o.questions[o.index]
	}
	return State{
		Phase:         o.state,
		QuestionIndex: o.index,
		Question:      current,
		Total:         len(o.questions),
		Elapsed:       o.elapsed,
		Remaining:     o.remaining,
		Answers:       answers,
	}
}

func (o *Orchestrator) phase() fsm.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) transition(event fsm.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next, err := fsm.Transition(o.state, event)
	if err != nil {
		return err
	}
	o.state = next
	return nil
}

// Run drives the session until it completes, is cancelled or ctx ends.
func (o *Orchestrator) Run(ctx context.Context) Report {
	report := Report{
		Questions: append([]questions.Question(nil), o.questions...),
		Stack:     o.cfg.Stack,
		StartedAt: o.now(),
	}
	if !o.started.CompareAndSwap(false, true) {
		report.Err = errors.New("interview already started")
		return report
	}
	defer close(o.done)
	defer o.releaseMedia()

	if len(o.questions) == 0 {
		report.Err = questions.ErrNoQuestions
		report.FinishedAt = o.now()
		return report
	}
	if err := o.transition(fsm.EventStart); err != nil {
		report.Err = err
		report.FinishedAt = o.now()
		return report
	}

	o.logger.Info("interview started",
		"questions", len(o.questions),
		"modality", string(o.cfg.Modality),
		"timing", string(o.cfg.Timing),
	)

	ticker := time.NewTicker(o.cfg.Tick)
	defer ticker.Stop()

	o.present(ctx)
	for {
		select {
		case <-ctx.Done():
			return o.abort(report)
		case <-o.cancelled:
			return o.abort(report)
		case a := <-o.actions:
			o.apply(ctx, a)
		case ev := <-o.spoken:
			o.onSpoken(ctx, ev)
		case ev := <-o.scored:
			o.onScored(ctx, ev)
		case <-o.capture.Changes():
			o.onTranscript(ctx)
		case <-o.quietC:
			o.onQuiet(ctx)
		case <-o.advanceC:
			o.next(ctx)
		case <-ticker.C:
			o.onTick(ctx)
		}

		if o.phase() == fsm.StateComplete {
			return o.complete(ctx, report)
		}
	}
}

// BeginRecording moves AwaitingResponse to Recording. It fails with
// ErrVoiceUnavailable when capture is unsupported or was denied.
func (o *Orchestrator) BeginRecording() error {
	o.mu.RLock()
	state, index := o.state, o.index
	o.mu.RUnlock()

	if !o.voiceAvailable() {
		return ErrVoiceUnavailable
	}
	if state != fsm.StateAwaitingResponse {
		return fmt.Errorf("cannot record from state %s", state)
	}
	return o.enqueue(action{kind: actionRecord, index: index})
}

// StopRecording submits the captured final transcript, or returns to
// AwaitingResponse when nothing was captured.
func (o *Orchestrator) StopRecording() error {
	o.mu.RLock()
	state, index, submitted := o.state, o.index, o.submitted
	o.mu.RUnlock()

	if state == fsm.StateScoring || submitted {
		return ErrAlreadyScoring
	}
	if state != fsm.StateRecording {
		return fmt.Errorf("cannot stop from state %s", state)
	}
	return o.enqueue(action{kind: actionStop, index: index})
}

// Submit records a typed answer for the current question. A second submit
// for the same question returns ErrAlreadyScoring.
func (o *Orchestrator) Submit(text string) error {
	text = strings.TrimSpace(text)

	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case fsm.StateScoring:
		return ErrAlreadyScoring
	case fsm.StateAwaitingResponse, fsm.StateRecording:
	case fsm.StateIdle, fsm.StateComplete, fsm.StateCancelled:
		return ErrNotRunning
	default:
		return fmt.Errorf("cannot submit from state %s", o.state)
	}
	if o.submitted {
		return ErrAlreadyScoring
	}
	if text == "" {
		return ErrEmptyAnswer
	}
	if err := o.enqueue(action{kind: actionSubmit, index: o.index, text: text}); err != nil {
		return err
	}
	o.submitted = true
	return nil
}

// Cancel ends the session without reporting it. Safe to call repeatedly.
func (o *Orchestrator) Cancel() {
	o.cancelOnce.Do(func() { close(o.cancelled) })
}

// Handle serves IPC commands for the running session.
func (o *Orchestrator) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		st := o.State()
		return ipc.Response{OK: true, State: string(st.Phase), Message: statusMessage(st)}
	case ipc.CommandRecord:
		return o.respond(o.BeginRecording(), "recording requested")
	case ipc.CommandStop:
		return o.respond(o.StopRecording(), "stop requested")
	case ipc.CommandSubmit:
		return o.respond(o.Submit(req.Text), "answer submitted")
	case ipc.CommandCancel:
		if fsm.Terminal(o.phase()) {
			return ipc.Response{OK: false, State: string(o.phase()), Error: ErrNotRunning.Error()}
		}
		o.Cancel()
		return ipc.Response{OK: true, State: string(o.phase()), Message: "cancel requested"}
	default:
		return ipc.Response{OK: false, State: string(o.phase()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (o *Orchestrator) respond(err error, message string) ipc.Response {
	state := string(o.phase())
	if err != nil {
		return ipc.Response{OK: false, State: state, Error: err.Error()}
	}
	return ipc.Response{OK: true, State: state, Message: message}
}

func statusMessage(st State) string {
	if st.Total == 0 || fsm.Terminal(st.Phase) || st.Phase == fsm.StateIdle {
		return string(st.Phase)
	}
	msg := fmt.Sprintf("question %d/%d", st.QuestionIndex+1, st.Total)
	if fsm.Active(st.Phase) && st.Remaining > 0 {
		msg += fmt.Sprintf(", %ds remaining", int(st.Remaining.Seconds()))
	}
	return msg
}

// enqueue must not block: callers may hold o.mu.
func (o *Orchestrator) enqueue(a action) error {
	select {
	case o.actions <- a:
		return nil
	default:
		return ErrBusy
	}
}

func (o *Orchestrator) voiceAvailable() bool {
	if o.cfg.Modality != ModalityVoice || !o.capture.Supported() {
		return false
	}
	fault := o.capture.Snapshot().Err
	return fault == nil || !fault.PermissionDenied()
}

// present begins the current question's turn from Speaking.
func (o *Orchestrator) present(ctx context.Context) {
	o.capture.ResetTranscript()
	o.lastFinal = ""

	o.mu.Lock()
	index := o.index
	o.submitted = false
	o.remaining = 0
	if o.cfg.timed() {
		o.remaining = o.cfg.QuestionBudget
	}
	o.mu.Unlock()

	q := o.questions[index]
	o.logger.Debug("presenting question", "index", index, "id", q.ID)
	o.observer.Question(index, q)
	o.emitPhase()

	speakCtx, cancel := context.WithCancel(ctx)
	o.speakCancel = cancel
	go func() {
		err := o.speaker.Speak(speakCtx, q.Text)
		select {
		case o.spoken <- spoken{index: index, err: err}:
		case <-o.done:
		}
	}()
}

func (o *Orchestrator) onSpoken(ctx context.Context, ev spoken) {
	o.mu.RLock()
	current, state := o.index, o.state
	o.mu.RUnlock()
	if ev.index != current || state != fsm.StateSpeaking {
		return
	}

	o.stopSpeaking()
	if ev.err != nil && !errors.Is(ev.err, context.Canceled) {
		o.logger.Warn("speech synthesis failed", "error", ev.err.Error())
	}
	if err := o.transition(fsm.EventSpeechDone); err != nil {
		o.logger.Error("speech transition failed", "error", err.Error())
		return
	}
	o.emitPhase()

	if o.cfg.Timing == TimingContinuous && o.cfg.Modality == ModalityVoice {
		if !o.voiceAvailable() {
			o.observer.Notice("Voice capture unavailable, type your answer")
			return
		}
		o.startRecording(ctx)
	}
}

func (o *Orchestrator) apply(ctx context.Context, a action) {
	o.mu.RLock()
	current, state := o.index, o.state
	o.mu.RUnlock()
	if a.index != current {
		return
	}

	switch a.kind {
	case actionRecord:
		if state != fsm.StateAwaitingResponse {
			return
		}
		if !o.voiceAvailable() {
			o.observer.Notice("Voice capture unavailable, type your answer")
			return
		}
		o.startRecording(ctx)
	case actionStop:
		if state != fsm.StateRecording {
			return
		}
		final := strings.TrimSpace(o.capture.Snapshot().Final)
		o.capture.StopListening()
		o.stopQuiet()
		if final == "" {
			if err := o.transition(fsm.EventStopEmpty); err != nil {
				o.logger.Error("stop transition failed", "error", err.Error())
				return
			}
			o.observer.Notice("No speech detected")
			o.emitPhase()
			return
		}
		o.submit(ctx, final)
	case actionSubmit:
		if state != fsm.StateAwaitingResponse && state != fsm.StateRecording {
			return
		}
		if state == fsm.StateRecording {
			o.capture.StopListening()
			o.stopQuiet()
		}
		o.submit(ctx, a.text)
	}
}

func (o *Orchestrator) startRecording(ctx context.Context) {
	if err := o.transition(fsm.EventRecord); err != nil {
		o.logger.Error("record transition failed", "error", err.Error())
		return
	}
	o.emitPhase()

	if err := o.capture.StartListening(); err != nil {
		o.logger.Warn("start listening failed", "error", err.Error())
	}
	if fault := o.capture.Snapshot().Err; fault != nil {
		o.voiceFailed(ctx, fault)
	}
}

// voiceFailed handles a fatal capture fault during Recording. Captured
// text is kept as the answer; otherwise the candidate falls back to typing.
func (o *Orchestrator) voiceFailed(ctx context.Context, fault *capture.Error) {
	o.observer.Notice(fault.Message)
	o.capture.StopListening()
	o.stopQuiet()

	if final := strings.TrimSpace(o.capture.Snapshot().Final); final != "" {
		o.submit(ctx, final)
		return
	}
	if err := o.transition(fsm.EventStopEmpty); err != nil {
		o.logger.Error("stop transition failed", "error", err.Error())
		return
	}
	o.emitPhase()
}

func (o *Orchestrator) submit(ctx context.Context, text string) {
	if err := o.transition(fsm.EventSubmit); err != nil {
		o.logger.Error("submit transition failed", "error", err.Error())
		return
	}

	o.mu.Lock()
	o.submitted = true
	index := o.index
	o.mu.Unlock()
	o.emitPhase()

	q := o.questions[index]
	scoreCtx, cancel := context.WithTimeout(ctx, o.cfg.EvaluateTimeout)
	o.scoreCancel = cancel
	go func() {
		answer := o.evaluate(scoreCtx, q, text)
		select {
		case o.scored <- scored{index: index, answer: answer}:
		case <-o.done:
		}
	}()
}

func (o *Orchestrator) evaluate(ctx context.Context, q questions.Question, text string) Answer {
	answer := Answer{
		QuestionID: q.ID,
		Question:   q.Text,
		Category:   q.Category,
		Text:       text,
		Status:     StatusAnswered,
	}

	res, err := o.evaluator.Evaluate(ctx, evaluate.Request{
		Question: q.Text,
		Answer:   text,
		Category: q.Category,
		Stack:    o.cfg.Stack,
	})
	if err == nil {
		if res.Scale == (score.Scale{}) {
			res.Scale = o.cfg.Scale
		}
		err = evaluate.Validate(res)
	}
	if err != nil {
		o.logger.Warn("evaluation failed, using fallback score", "question", q.ID, "error", err.Error())
		answer.Score = o.cfg.FallbackScore
		answer.Feedback = fallbackFeedback
		answer.Fallback = true
		return answer
	}

	answer.Score = res.Canonical()
	answer.Feedback = strings.TrimSpace(res.Feedback)
	return answer
}

func (o *Orchestrator) onScored(ctx context.Context, ev scored) {
	o.mu.RLock()
	current, state := o.index, o.state
	o.mu.RUnlock()
	if ev.index != current || state != fsm.StateScoring {
		o.logger.Debug("discarding stale evaluation", "index", ev.index)
		return
	}

	if o.scoreCancel != nil {
		o.scoreCancel()
		o.scoreCancel = nil
	}
	o.record(ev.answer)
	o.scheduleNext(ctx)
}

// record stores a once-per-question answer.
func (o *Orchestrator) record(a Answer) bool {
	o.mu.Lock()
	if _, exists := o.answers[a.QuestionID]; exists {
		o.mu.Unlock()
		return false
	}
	o.answers[a.QuestionID] = a
	o.mu.Unlock()

	o.observer.Scored(a)
	return true
}

func (o *Orchestrator) scheduleNext(ctx context.Context) {
	if o.cfg.AdvanceDelay <= 0 {
		o.next(ctx)
		return
	}
	o.advance = time.NewTimer(o.cfg.AdvanceDelay)
	o.advanceC = o.advance.C
}

// next leaves Scoring for the following question or completion.
func (o *Orchestrator) next(ctx context.Context) {
	o.stopAdvance()
	if o.phase() != fsm.StateScoring {
		return
	}

	o.mu.RLock()
	last := o.index == len(o.questions)-1
	o.mu.RUnlock()

	if last {
		if err := o.transition(fsm.EventFinish); err != nil {
			o.logger.Error("finish transition failed", "error", err.Error())
		}
		return
	}
	if err := o.transition(fsm.EventNext); err != nil {
		o.logger.Error("next transition failed", "error", err.Error())
		return
	}
	o.mu.Lock()
	o.index++
	o.mu.Unlock()
	o.present(ctx)
}

func (o *Orchestrator) onTranscript(ctx context.Context) {
	snap := o.capture.Snapshot()
	o.observer.Transcript(snap)
	if o.phase() != fsm.StateRecording {
		return
	}
	if snap.Err != nil {
		o.voiceFailed(ctx, snap.Err)
		return
	}
	if o.cfg.Timing != TimingContinuous || snap.Final == o.lastFinal {
		return
	}

	o.lastFinal = snap.Final
	o.stopQuiet()
	if strings.TrimSpace(snap.Final) != "" {
		o.quiet = time.NewTimer(o.cfg.QuietPeriod)
		o.quietC = o.quiet.C
	}
}

func (o *Orchestrator) onQuiet(ctx context.Context) {
	o.quiet, o.quietC = nil, nil
	if o.phase() != fsm.StateRecording {
		return
	}
	final := strings.TrimSpace(o.capture.Snapshot().Final)
	if final == "" {
		return
	}
	o.capture.StopListening()
	o.submit(ctx, final)
}

func (o *Orchestrator) onTick(ctx context.Context) {
	o.mu.Lock()
	o.elapsed += o.cfg.Tick
	counting := o.cfg.timed() && fsm.Active(o.state)
	if counting {
		o.remaining = max(o.remaining-o.cfg.Tick, 0)
	}
	elapsed, remaining := o.elapsed, o.remaining
	o.mu.Unlock()

	if o.cfg.SessionCap > 0 && elapsed >= o.cfg.SessionCap {
		o.expireSession()
		return
	}
	if !counting {
		return
	}
	o.observer.Countdown(remaining)
	if remaining <= 0 {
		o.expireQuestion(ctx)
	}
}

// expireQuestion records a skipped answer when the per-question budget runs out.
func (o *Orchestrator) expireQuestion(ctx context.Context) {
	if o.phase() == fsm.StateRecording {
		o.capture.StopListening()
		o.stopQuiet()
	}
	if err := o.transition(fsm.EventTimeout); err != nil {
		o.logger.Error("timeout transition failed", "error", err.Error())
		return
	}

	o.mu.Lock()
	o.submitted = true
	q := o.questions[o.index]
	o.mu.Unlock()
	o.emitPhase()

	o.logger.Info("question time expired", "question", q.ID)
	o.record(skippedAnswer(q, timeExpiredFeedback))
	o.scheduleNext(ctx)
}

// expireSession completes the session at the cap, skipping every
// unanswered question.
func (o *Orchestrator) expireSession() {
	o.halt()

	o.mu.RLock()
	pending := make([]questions.Question, 0, len(o.questions))
	for _, q := range o.questions {
		if _, ok := o.answers[q.ID]; !ok {
			pending = append(pending, q)
		}
	}
	o.mu.RUnlock()

	for _, q := range pending {
		o.record(skippedAnswer(q, sessionExpiredFeedback))
	}
	if err := o.transition(fsm.EventDeadline); err != nil {
		o.logger.Error("deadline transition failed", "error", err.Error())
		return
	}
	o.logger.Info("session time cap reached", "skipped", len(pending))
	o.observer.Notice("Session time is up")
}

func skippedAnswer(q questions.Question, feedback string) Answer {
	return Answer{
		QuestionID: q.ID,
		Question:   q.Text,
		Category:   q.Category,
		Score:      0,
		Status:     StatusSkipped,
		Feedback:   feedback,
	}
}

func (o *Orchestrator) complete(ctx context.Context, report Report) Report {
	o.halt()
	o.emitPhase()

	o.mu.RLock()
	report.Answers = make([]Answer, 0, len(o.questions))
	for _, q := range o.questions {
		report.Answers = append(report.Answers, o.answers[q.ID])
	}
	o.mu.RUnlock()

	report.Aggregate = score.Aggregate(report.Entries(), o.cfg.SkipPolicy)
	report.FinishedAt = o.now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)
	report.Completed = true

	o.logger.Info("interview complete",
		"answers", len(report.Answers),
		"aggregate", score.Round1(report.Aggregate),
		"duration_ms", report.Duration.Milliseconds(),
	)

	o.observer.Completed(report)
	if err := o.reporter.Report(ctx, report); err != nil {
		o.logger.Error("report session failed", "error", err.Error())
		report.Err = fmt.Errorf("report session: %w", err)
	}
	return report
}

// abort discards unscored state; late evaluations are dropped by the done channel.
func (o *Orchestrator) abort(report Report) Report {
	o.halt()
	if err := o.transition(fsm.EventCancel); err != nil {
		o.logger.Debug("cancel transition failed", "error", err.Error())
	}
	o.emitPhase()

	o.mu.RLock()
	for _, q := range o.questions {
		if a, ok := o.answers[q.ID]; ok {
			report.Answers = append(report.Answers, a)
		}
	}
	o.mu.RUnlock()

	report.FinishedAt = o.now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)
	report.Cancelled = true
	o.logger.Info("interview cancelled", "answered", len(report.Answers))
	return report
}

// halt stops capture, synthesis, scoring and every pending timer.
func (o *Orchestrator) halt() {
	o.capture.StopListening()
	o.stopSpeaking()
	if o.scoreCancel != nil {
		o.scoreCancel()
		o.scoreCancel = nil
	}
	o.stopQuiet()
	o.stopAdvance()
	o.releaseMedia()
}

func (o *Orchestrator) stopSpeaking() {
	if o.speakCancel != nil {
		o.speakCancel()
		o.speakCancel = nil
	}
}

func (o *Orchestrator) stopQuiet() {
	if o.quiet != nil {
		o.quiet.Stop()
	}
	o.quiet, o.quietC = nil, nil
}

func (o *Orchestrator) stopAdvance() {
	if o.advance != nil {
		o.advance.Stop()
	}
	o.advance, o.advanceC = nil, nil
}

func (o *Orchestrator) releaseMedia() {
	o.releaseOnce.Do(func() {
		if o.media == nil {
			return
		}
		if err := o.media.Release(); err != nil {
			o.logger.Warn("release media failed", "error", err.Error())
		}
	})
}

func (o *Orchestrator) emitPhase() {
	o.observer.Phase(o.State())
}
