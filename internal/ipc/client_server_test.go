package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveTest(t *testing.T, handler Handler) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), socketName)

	lis, err := net.Listen("unix", path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, lis, handler) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return path
}

// fakePeer accepts one connection and runs reply on it.
func fakePeer(t *testing.T, reply func(net.Conn)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), socketName)

	lis, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		reply(conn)
	}()
	return path
}

func rawExchange(t *testing.T, path string, payload string) Response {
	t.Helper()
	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	return resp
}

func TestRequestKnown(t *testing.T) {
	for _, cmd := range []string{"status", "record", "stop", "submit", "cancel"} {
		require.True(t, Request{Command: cmd}.Known(), cmd)
	}
	require.False(t, Request{Command: "toggle"}.Known())
	require.False(t, Request{}.Known())
}

func TestSendRoundTrip(t *testing.T) {
	received := make(chan Request, 1)
	path := serveTest(t, HandlerFunc(func(_ context.Context, req Request) Response {
		received <- req
		return Response{OK: true, State: "awaiting_response", Message: "question 1/5"}
	}))

	resp, err := Send(context.Background(), path, Request{Command: CommandSubmit, Text: "my answer"}, time.Second)
	require.NoError(t, err)
	require.Equal(t, Response{OK: true, State: "awaiting_response", Message: "question 1/5"}, resp)
	require.Equal(t, Request{Command: CommandSubmit, Text: "my answer"}, <-received)
}

func TestCallMapsRefusalAndMissingSession(t *testing.T) {
	path := serveTest(t, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command == CommandStatus {
			return Response{OK: true, State: "recording"}
		}
		return Response{Error: "answer already submitted"}
	}))

	resp, err := Call(context.Background(), path, Request{Command: CommandStatus}, time.Second)
	require.NoError(t, err)
	require.Equal(t, "recording", resp.State)

	_, err = Call(context.Background(), path, Request{Command: CommandStop}, time.Second)
	require.EqualError(t, err, "stop: answer already submitted")

	_, err = Call(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), Request{Command: CommandStatus}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSendReportsMalformedResponse(t *testing.T) {
	path := fakePeer(t, func(conn net.Conn) {
		_, _ = bufio.NewReader(conn).ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	})

	_, err := Send(context.Background(), path, Request{Command: CommandStatus}, time.Second)
	require.ErrorContains(t, err, "decode response")
}

func TestSendReportsHangup(t *testing.T) {
	path := fakePeer(t, func(conn net.Conn) {
		_, _ = bufio.NewReader(conn).ReadBytes('\n')
	})

	_, err := Send(context.Background(), path, Request{Command: CommandStatus}, time.Second)
	require.ErrorContains(t, err, "read response")
}

func TestServeRefusesMalformedRequest(t *testing.T) {
	path := serveTest(t, HandlerFunc(func(context.Context, Request) Response {
		return Response{OK: true}
	}))

	resp := rawExchange(t, path, "not-json\n")
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")
}

func TestServeRefusesUnknownCommandWithoutCallingHandler(t *testing.T) {
	called := make(chan struct{}, 1)
	path := serveTest(t, HandlerFunc(func(context.Context, Request) Response {
		called <- struct{}{}
		return Response{OK: true}
	}))

	resp := rawExchange(t, path, `{"command":"toggle"}`+"\n")
	require.False(t, resp.OK)
	require.Equal(t, `unknown command: "toggle"`, resp.Error)
	require.Empty(t, called)
}

func TestServeRefusesOversizedRequest(t *testing.T) {
	path := serveTest(t, HandlerFunc(func(context.Context, Request) Response {
		return Response{OK: true}
	}))

	resp := rawExchange(t, path, `{"command":"submit","text":"`+strings.Repeat("a", maxRequestBytes)+"\"}\n")
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "read request")
}

func TestProbe(t *testing.T) {
	path := filepath.Join(t.TempDir(), socketName)
	lis, err := net.Listen("unix", path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, lis, HandlerFunc(func(context.Context, Request) Response {
			return Response{OK: true, State: "idle"}
		}))
	}()

	alive, err := Probe(context.Background(), path, time.Second)
	require.NoError(t, err)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-done)

	alive, err = Probe(context.Background(), path, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}
