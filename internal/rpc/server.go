package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hyrily/hyrily/internal/evaluate"
	"github.com/hyrily/hyrily/internal/questions"
)

type evaluationServer interface {
	evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	generate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*evaluationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: unaryHandler(methodEvaluate, evaluationServer.evaluate)},
		{MethodName: "GenerateQuestions", Handler: unaryHandler(methodGenerate, evaluationServer.generate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hyrily/evaluation/v1/evaluation.proto",
}

func unaryHandler(
	method string,
	call func(evaluationServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(evaluationServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		})
	}
}

type service struct {
	evaluator evaluate.Evaluator
	generator questions.Generator
}

func (s *service) evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.evaluator.Evaluate(ctx, req)
	if err != nil {
		return nil, statusFor(err)
	}
	return encodeResult(res)
}

func (s *service) generate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	stack, count, err := decodeGenerate(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if s.generator == nil {
		return nil, status.Error(codes.Unimplemented, "question generation is not configured")
	}
	qs, err := s.generator.Generate(ctx, stack, count)
	if err != nil {
		return nil, statusFor(err)
	}
	return encodeQuestions(qs)
}

func statusFor(err error) error {
	switch {
	case errors.Is(err, evaluate.ErrMalformed), errors.Is(err, questions.ErrNoQuestions):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// NewServer serves ev and gen. A nil generator answers GenerateQuestions
// with Unimplemented.
func NewServer(ev evaluate.Evaluator, gen questions.Generator, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(logCalls(logger)))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, &service{evaluator: ev, generator: gen})
	return srv
}

func logCalls(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"latency_ms", time.Since(started).Milliseconds(),
		}
		if err != nil {
			logger.Warn("rpc failed", append(attrs, "error", err.Error())...)
		} else {
			logger.Debug("rpc served", attrs...)
		}
		return resp, err
	}
}

// Serve runs srv on lis until ctx is cancelled, then stops gracefully.
func Serve(ctx context.Context, srv *grpc.Server, lis net.Listener) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		srv.GracefulStop()
	}()

	err := srv.Serve(lis)
	if ctx.Err() != nil {
		<-stopped
		return nil
	}
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}
