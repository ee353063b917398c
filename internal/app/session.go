package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyrily/hyrily/internal/config"
	"github.com/hyrily/hyrily/internal/indicator"
	"github.com/hyrily/hyrily/internal/interview"
	"github.com/hyrily/hyrily/internal/ipc"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
	"github.com/hyrily/hyrily/internal/service"
	"github.com/hyrily/hyrily/internal/store"
)

const (
	socketProbeTimeout = 180 * time.Millisecond
	socketRetries      = 8
)

// sessionPlan is everything one terminal interview needs.
type sessionPlan struct {
	cfg       config.Config
	questions []questions.Question
	engine    engine
	reporter  interview.Reporter
	logger    *slog.Logger
}

// runSession drives one interview in this terminal. The orchestrator, the
// control socket and the console reader run as one service group; the
// interview finishing stops the other two.
func (r Runner) runSession(ctx context.Context, plan sessionPlan) (interview.Report, error) {
	cfg, logger := plan.cfg, plan.logger
	out := &lockedWriter{w: r.Stdout}

	var sock *ipc.Socket
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		logger.Warn("control socket disabled", "error", err.Error())
	} else {
		sock, err = ipc.Acquire(ctx, socketPath, socketProbeTimeout, socketRetries)
		if err != nil {
			return interview.Report{}, err
		}
		defer func() { _ = sock.Close() }()
	}

	v := buildVoice(ctx, cfg, out, logger)
	cues := indicator.NewCues(cfg.Cues, logger)
	defer cues.Wait()

	policy := score.Policy(cfg.Interview.SkipPolicy)
	orch := interview.New(sessionConfig(cfg), interview.Deps{
		Questions: plan.questions,
		Speaker:   v.speaker,
		Capture:   v.capture,
		Evaluator: plan.engine.evaluator,
		Reporter:  plan.reporter,
		Observer:  indicator.NewPresenter(out, cues, len(plan.questions), policy),
		Media:     v.closers,
		Logger:    logger,
	})

	fmt.Fprintln(out, consoleHelp(interview.Modality(cfg.Interview.Modality)))

	var report interview.Report
	var group service.Group
	group.Add("interview", func(ctx context.Context) error {
		report = orch.Run(ctx)
		return nil
	})
	if sock != nil {
		group.Add("ipc", func(ctx context.Context) error {
			return ipc.Serve(ctx, sock, orch)
		})
	}
	if r.Stdin != nil {
		c := console{
			in:       r.Stdin,
			out:      out,
			session:  orch,
			modality: interview.Modality(cfg.Interview.Modality),
		}
		group.Add("console", c.run)
	}

	if err := group.Run(ctx); err != nil {
		return report, err
	}
	logReport(logger, report)
	return report, report.Err
}

func logReport(logger *slog.Logger, report interview.Report) {
	fields := []any{
		"completed", report.Completed,
		"cancelled", report.Cancelled,
		"answers", len(report.Answers),
		"aggregate", score.Round1(report.Aggregate),
		"duration_ms", report.Duration.Milliseconds(),
	}
	if report.Err != nil {
		logger.Error("session failed", append(fields, "error", report.Err.Error())...)
		return
	}
	logger.Info("session finished", fields...)
}

func (r Runner) commandPractice(ctx context.Context, inv invocation) error {
	cfg := inv.cfg()
	opts := inv.parsed.Practice
	if err := applyPractice(&cfg, opts.Stack, opts.Count, opts.Modality, opts.Timing, opts.Bank, opts.QuestionSeconds, opts.SessionMinutes); err != nil {
		return err
	}

	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	eng, err := buildEngine(ctx, cfg, inv.logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.closers.Release() }()

	qs, err := pickQuestions(ctx, cfg, eng.generator, inv.logger)
	if err != nil {
		return err
	}

	reporter := store.NewSessionReporter(repo, store.KindPractice)
	report, err := r.runSession(ctx, sessionPlan{
		cfg:       cfg,
		questions: qs,
		engine:    eng,
		reporter:  reporter,
		logger:    inv.logger,
	})
	if err != nil {
		return err
	}
	if report.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return nil
	}
	if saved, ok := reporter.Last(); ok {
		fmt.Fprintf(r.Stdout, "Saved session %s\n", saved.ID)
	}
	return nil
}

func (r Runner) commandQuestions(ctx context.Context, inv invocation) error {
	cfg := inv.cfg()
	opts := inv.parsed.Practice
	if err := applyPractice(&cfg, opts.Stack, opts.Count, "", "", opts.Bank, 0, 0); err != nil {
		return err
	}

	eng, err := buildEngine(ctx, cfg, inv.logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.closers.Release() }()

	qs, err := pickQuestions(ctx, cfg, eng.generator, inv.logger)
	if err != nil {
		return err
	}
	renderQuestions(r.Stdout, qs)
	return nil
}

func (r Runner) commandSessionsList(ctx context.Context, inv invocation) error {
	repo, closeStore, err := openStore(ctx, inv.cfg())
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	sessions, err := repo.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(r.Stdout, "no saved sessions")
		return nil
	}
	renderSessions(r.Stdout, sessions, score.Policy(inv.cfg().Interview.SkipPolicy))
	return nil
}

func (r Runner) commandSessionsShow(ctx context.Context, inv invocation) error {
	repo, closeStore, err := openStore(ctx, inv.cfg())
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	id := inv.parsed.Args[0]
	s, err := repo.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(r.Stdout, "Session %s (%s, %s, %s)\n\n", s.ID, s.Kind, s.Stack, s.Status)
	report := interview.Report{Questions: s.Questions, Answers: s.Answers}
	indicator.RenderSummary(r.Stdout, interview.Summarize(report, score.Policy(inv.cfg().Interview.SkipPolicy)))
	return nil
}
