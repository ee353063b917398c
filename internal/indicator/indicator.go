// Package indicator presents a running interview on a terminal and plays audio
// cues on recording and session transitions.
package indicator

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hyrily/hyrily/internal/capture"
	"github.com/hyrily/hyrily/internal/fsm"
	"github.com/hyrily/hyrily/internal/interview"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
)

// countdownMarks are the remaining-second values announced during a timed question.
var countdownMarks = []int{30, 10, 5}

// Presenter is an interview.Observer that writes progress lines to out.
type Presenter struct {
	out      io.Writer
	cues     *Cues
	total    int
	policy   score.Policy
	messages messages

	mu        sync.Mutex
	phase     fsm.State
	lastFinal string
	announced map[int]bool
}

var _ interview.Observer = (*Presenter)(nil)

// NewPresenter builds a presenter for a session of total questions. cues may be nil.
func NewPresenter(out io.Writer, cues *Cues, total int, policy score.Policy) *Presenter {
	return &Presenter{
		out:       out,
		cues:      cues,
		total:     total,
		policy:    policy,
		messages:  messagesFromEnv(),
		phase:     fsm.StateIdle,
		announced: map[int]bool{},
	}
}

func (p *Presenter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Phase plays cues on recording edges and prints the scoring line.
func (p *Presenter) Phase(s interview.State) {
	p.mu.Lock()
	prev := p.phase
	p.phase = s.Phase
	p.mu.Unlock()

	if prev == s.Phase {
		return
	}
	switch {
	case s.Phase == fsm.StateRecording:
		p.cues.emit(cueStart)
		p.printf("  %s\n", p.messages.recording)
	case prev == fsm.StateRecording:
		p.cues.emit(cueStop)
		p.printf("  %s\n", p.messages.stopped)
	}
	switch s.Phase {
	case fsm.StateScoring:
		p.printf("  %s\n", p.messages.scoring)
	case fsm.StateCancelled:
		p.cues.emit(cueCancel)
		p.printf("\n%s\n", p.messages.cancelled)
	}
}

// Question prints the heading for a new question. The text itself is
// delivered by the speaker.
func (p *Presenter) Question(index int, q questions.Question) {
	p.mu.Lock()
	p.lastFinal = ""
	p.announced = map[int]bool{}
	p.mu.Unlock()

	label := fmt.Sprintf("%s %d", p.messages.question, index+1)
	if p.total > 0 {
		label = fmt.Sprintf("%s %d/%d", p.messages.question, index+1, p.total)
	}
	if q.Category != "" {
		label += " [" + string(q.Category) + "]"
	}
	p.printf("\n%s\n", label)
}

// Transcript echoes newly finalized speech. Interim hypotheses are not printed.
func (p *Presenter) Transcript(snap capture.Snapshot) {
	p.mu.Lock()
	added := strings.TrimSpace(strings.TrimPrefix(snap.Final, p.lastFinal))
	p.lastFinal = snap.Final
	p.mu.Unlock()

	if added != "" {
		p.printf("  > %s\n", added)
	}
}

func (p *Presenter) Countdown(remaining time.Duration) {
	secs := int(remaining.Round(time.Second) / time.Second)

	p.mu.Lock()
	mark := 0
	for _, m := range countdownMarks {
		if secs == m && !p.announced[m] {
			p.announced[m] = true
			mark = m
		}
	}
	p.mu.Unlock()

	if mark > 0 {
		p.printf("  %ds %s\n", mark, p.messages.countdown)
	}
}

func (p *Presenter) Scored(a interview.Answer) {
	if a.Status == interview.StatusSkipped {
		p.printf("  %s: %s\n", p.messages.skipped, a.Feedback)
		return
	}
	p.printf("  %s: %.1f/%.0f (%.0f%%)\n", p.messages.scored, a.Score, score.Max, score.ToPercent(a.Score))
	if a.Feedback != "" {
		p.printf("  %s\n", a.Feedback)
	}
}

func (p *Presenter) Notice(message string) {
	p.printf("  ! %s\n", message)
}

// Completed prints the feedback summary for finished sessions.
func (p *Presenter) Completed(r interview.Report) {
	if r.Cancelled {
		return
	}
	p.cues.emit(cueComplete)
	p.printf("\n%s\n\n", p.messages.complete)
	RenderSummary(p.out, interview.Summarize(r, p.policy))
}
