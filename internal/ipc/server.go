package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// requestDeadline bounds how long a client may take to send its request line.
const requestDeadline = 2 * time.Second

type Handler interface {
	Handle(context.Context, Request) Response
}

type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers clients on listener until ctx is cancelled or the listener is
// closed. In-flight exchanges finish before Serve returns.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		conn, err := listener.Accept()
		switch {
		case err == nil:
		case errors.Is(err, net.ErrClosed), ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("accept control connection: %w", err)
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			defer conn.Close()
			_ = writeLine(conn, exchange(ctx, conn, handler))
		}()
	}
}

func exchange(ctx context.Context, conn net.Conn, handler Handler) Response {
	_ = conn.SetReadDeadline(time.Now().Add(requestDeadline))

	var req Request
	if err := readLine(conn, maxRequestBytes, "request", &req); err != nil {
		return refuse("%v", err)
	}
	if !req.Known() {
		return refuse("unknown command: %q", req.Command)
	}
	return handler.Handle(ctx, req)
}
