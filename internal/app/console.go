package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyrily/hyrily/internal/fsm"
	"github.com/hyrily/hyrily/internal/interview"
)

const turnPoll = 25 * time.Millisecond

// controls is the orchestrator surface the console drives.
type controls interface {
	BeginRecording() error
	StopRecording() error
	Submit(text string) error
	Cancel()
	State() interview.State
}

// console turns stdin lines into session actions. Text lines are answers;
// slash commands drive recording. In voice modality an empty line toggles
// recording.
type console struct {
	in       io.Reader
	out      io.Writer
	session  controls
	modality interview.Modality

	answered int
}

func consoleHelp(modality interview.Modality) string {
	if modality == interview.ModalityVoice {
		return "Press Enter to start or stop recording, type an answer to submit it, /cancel to quit."
	}
	return "Type your answer and press Enter to submit it, /cancel to quit."
}

func (c *console) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.answered = -1
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			c.handle(ctx, line)
		}
	}
}

func (c *console) handle(ctx context.Context, line string) {
	text := strings.TrimSpace(line)
	var err error
	switch text {
	case "/cancel", "/quit":
		c.session.Cancel()
		return
	case "/record":
		err = c.session.BeginRecording()
	case "/stop":
		err = c.session.StopRecording()
	case "":
		if c.modality != interview.ModalityVoice {
			return
		}
		if c.session.State().Phase == fsm.StateRecording {
			err = c.session.StopRecording()
		} else {
			err = c.session.BeginRecording()
		}
	default:
		err = c.submit(ctx, text)
	}
	if err != nil {
		fmt.Fprintf(c.out, "  ! %v\n", err)
	}
}

// submit waits for the next unanswered question so typed-ahead lines are
// not lost while the previous answer is scored.
func (c *console) submit(ctx context.Context, text string) error {
	index, ok := c.awaitTurn(ctx)
	if !ok {
		return nil
	}
	err := c.session.Submit(text)
	if err == nil || errors.Is(err, interview.ErrAlreadyScoring) {
		c.answered = index
	}
	return err
}

func (c *console) awaitTurn(ctx context.Context) (int, bool) {
	ticker := time.NewTicker(turnPoll)
	defer ticker.Stop()
	for {
		st := c.session.State()
		if fsm.Terminal(st.Phase) {
			return 0, false
		}
		accepting := st.Phase == fsm.StateAwaitingResponse || st.Phase == fsm.StateRecording
		if accepting && st.QuestionIndex != c.answered {
			return st.QuestionIndex, true
		}
		select {
		case <-ctx.Done():
			return 0, false
		case <-ticker.C:
		}
	}
}
