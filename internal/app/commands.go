package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hyrily/hyrily/internal/config"
	"github.com/hyrily/hyrily/internal/media"
	"github.com/hyrily/hyrily/internal/rpc"
)

func (r Runner) commandDevices(ctx context.Context) error {
	devices, err := media.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return exitCode(exitError)
	}
	renderDevices(r.Stdout, devices)
	return nil
}

// commandEvaluatorServe exposes the configured evaluator and question
// generator over gRPC for clients running with ai.provider=remote.
func (r Runner) commandEvaluatorServe(ctx context.Context, inv invocation) error {
	cfg := inv.cfg()
	if cfg.AI.Provider == config.ProviderRemote {
		return errors.New("evaluator serve needs a local ai.provider, not remote")
	}
	if cfg.AI.Provider == config.ProviderNone {
		return errors.New("evaluator serve needs ai.provider gemini or openai")
	}
	cfg.AI.GenerateQuestions = true

	eng, err := buildEngine(ctx, cfg, inv.logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.closers.Release() }()

	lis, err := net.Listen("tcp", inv.parsed.Listen)
	if err != nil {
		return err
	}
	srv := rpc.NewServer(eng.evaluator, eng.generator, inv.logger)

	inv.logger.Info("evaluator listening", "addr", lis.Addr().String(), "provider", cfg.AI.Provider)
	fmt.Fprintf(r.Stdout, "evaluator listening on %s\n", lis.Addr())
	return rpc.Serve(ctx, srv, lis)
}
