// Package rpc exposes answer evaluation and question generation over gRPC
// using structpb messages, so remote evaluators need no generated stubs.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hyrily/hyrily/internal/evaluate"
	"github.com/hyrily/hyrily/internal/questions"
)

const (
	serviceName    = "hyrily.evaluation.v1.Evaluation"
	methodEvaluate = "/" + serviceName + "/Evaluate"
	methodGenerate = "/" + serviceName + "/GenerateQuestions"

	defaultDialTimeout = 3 * time.Second
)

// ClientConfig controls the evaluator connection.
type ClientConfig struct {
	Endpoint    string
	DialTimeout time.Duration
}

// Client is a remote evaluate.Evaluator and questions.Generator.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to endpoint and waits for the channel to become ready.
func Dial(ctx context.Context, cfg ClientConfig, opts ...grpc.DialOption) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("evaluator endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial evaluator %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	conn.Connect()
	if err := awaitReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for evaluator %q: %w", endpoint, err)
	}
	return &Client{conn: conn}, nil
}

// awaitReady follows connectivity changes until Ready, Shutdown or ctx expiry.
func awaitReady(ctx context.Context, conn *grpc.ClientConn) error {
	for state := conn.GetState(); state != connectivity.Ready; state = conn.GetState() {
		if state == connectivity.Shutdown {
			return errors.New("connection shut down")
		}
		if !conn.WaitForStateChange(ctx, state) {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("still %s: %w", state, err)
			}
			return fmt.Errorf("still %s", state)
		}
	}
	return nil
}

func (c *Client) Evaluate(ctx context.Context, req evaluate.Request) (evaluate.Result, error) {
	in, err := encodeRequest(req)
	if err != nil {
		return evaluate.Result{}, fmt.Errorf("encode evaluation request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodEvaluate, in, out); err != nil {
		return evaluate.Result{}, fmt.Errorf("evaluate over rpc: %w", err)
	}
	return decodeResult(out)
}

func (c *Client) Generate(ctx context.Context, stack string, count int) ([]questions.Question, error) {
	in, err := encodeGenerate(stack, count)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodGenerate, in, out); err != nil {
		return nil, fmt.Errorf("generate questions over rpc: %w", err)
	}
	qs, err := decodeQuestions(out)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, questions.ErrNoQuestions
	}
	return qs, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
