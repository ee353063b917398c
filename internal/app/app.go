// Package app dispatches parsed hyrily invocations to the interview runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hyrily/hyrily/internal/cli"
	"github.com/hyrily/hyrily/internal/config"
	"github.com/hyrily/hyrily/internal/doctor"
	"github.com/hyrily/hyrily/internal/ipc"
	"github.com/hyrily/hyrily/internal/logging"
	"github.com/hyrily/hyrily/internal/version"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	controlTimeout = 400 * time.Millisecond
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
}

// invocation is one resolved command with its config and logger.
type invocation struct {
	parsed cli.Parsed
	loaded config.Loaded
	logger *slog.Logger
}

func (inv invocation) cfg() config.Config { return inv.loaded.Config }

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: os.Stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args, r.Stdout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText())
		return exitUsage
	}
	if parsed.Handled {
		return exitOK
	}
	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return exitOK
	}

	logger := r.Logger
	if logger == nil {
		opts := logging.Options{Debug: parsed.Verbose}
		if parsed.Verbose {
			opts.Console = r.Stderr
		}
		logRuntime, err := logging.New(opts)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
			return exitError
		}
		defer func() { _ = logRuntime.Close() }()
		logger = logRuntime.Logger
	}

	loaded, err := config.Load(parsed.ConfigPath, parsed.EnvFile)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return exitError
	}
	for _, w := range loaded.Warnings {
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
		if !reportsConfigWarnings(parsed.Command) {
			continue
		}
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
	}

	logger.Info("command start",
		"command", string(parsed.Command),
		"config", loaded.Path,
		"secrets", loaded.Config.Secrets.Redacted(),
	)

	inv := invocation{parsed: parsed, loaded: loaded, logger: logger}
	if err := r.dispatch(ctx, inv); err != nil {
		var exit exitCode
		if errors.As(err, &exit) {
			return int(exit)
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("command failed", "command", string(parsed.Command), "error", err.Error())
		return exitError
	}
	return exitOK
}

// reportsConfigWarnings is true for commands that build an interview engine
// from the configuration. Control forwarders and listings stay quiet.
func reportsConfigWarnings(cmd cli.Command) bool {
	switch cmd {
	case cli.CommandPractice, cli.CommandQuestions, cli.CommandCompanyCreate,
		cli.CommandCompanyInterview, cli.CommandEvaluatorServe, cli.CommandDoctor:
		return true
	default:
		return false
	}
}

// exitCode ends a command with a status after output was already written.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func (r Runner) dispatch(ctx context.Context, inv invocation) error {
	switch inv.parsed.Command {
	case cli.CommandPractice:
		return r.commandPractice(ctx, inv)
	case cli.CommandQuestions:
		return r.commandQuestions(ctx, inv)
	case cli.CommandSessionsList:
		return r.commandSessionsList(ctx, inv)
	case cli.CommandSessionsShow:
		return r.commandSessionsShow(ctx, inv)
	case cli.CommandCompanyCreate:
		return r.commandCompanyCreate(ctx, inv)
	case cli.CommandCompanyList:
		return r.commandCompanyList(ctx, inv)
	case cli.CommandCompanyShow:
		return r.commandCompanyShow(ctx, inv, false)
	case cli.CommandCompanyRank:
		return r.commandCompanyShow(ctx, inv, true)
	case cli.CommandCompanyInterview:
		return r.commandCompanyInterview(ctx, inv)
	case cli.CommandEvaluatorServe:
		return r.commandEvaluatorServe(ctx, inv)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandRecord:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandRecord})
	case cli.CommandStop:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandStop})
	case cli.CommandSubmit:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandSubmit, Text: inv.parsed.AnswerText()})
	case cli.CommandCancel:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandCancel})
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, inv.loaded, doctor.Probes{})
		fmt.Fprintln(r.Stdout, report.String())
		if !report.OK() {
			return exitCode(exitError)
		}
		return nil
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", inv.parsed.Command)
		return exitCode(exitUsage)
	}
}

func (r Runner) commandStatus(ctx context.Context) error {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return nil
	}
	resp, err := ipc.Call(ctx, path, ipc.Request{Command: ipc.CommandStatus}, controlTimeout)
	if errors.Is(err, ipc.ErrNoSession) {
		fmt.Fprintln(r.Stdout, "idle")
		return nil
	}
	if err != nil {
		return err
	}
	switch {
	case resp.State == "":
		fmt.Fprintln(r.Stdout, "idle")
	case resp.Message != "" && resp.Message != resp.State:
		fmt.Fprintf(r.Stdout, "%s (%s)\n", resp.State, resp.Message)
	default:
		fmt.Fprintln(r.Stdout, resp.State)
	}
	return nil
}

// forward relays a control command to the session that owns the socket.
func (r Runner) forward(ctx context.Context, req ipc.Request) error {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	resp, err := ipc.Call(ctx, path, req, controlTimeout)
	if err != nil {
		return err
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return nil
}

// lockedWriter serializes writes from the session goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
