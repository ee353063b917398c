package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireReplacesStaleFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), socketName)
	require.NoError(t, os.WriteFile(path, []byte("left over"), 0o600))

	sock, err := Acquire(context.Background(), path, 50*time.Millisecond, 2)
	require.NoError(t, err)
	require.Equal(t, path, sock.Path())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.ModeSocket, info.Mode().Type())
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, sock.Close())
	require.NoError(t, sock.Close())
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestAcquireCreatesRuntimeDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "run", socketName)
	sock, err := Acquire(context.Background(), path, 50*time.Millisecond, 0)
	require.NoError(t, err)
	defer sock.Close()

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestAcquireRefusesLiveSession(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), socketName)
	owner, err := Acquire(context.Background(), path, 50*time.Millisecond, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, owner, HandlerFunc(func(context.Context, Request) Response {
			return Response{OK: true, State: "recording"}
		}))
	}()

	_, err = Acquire(context.Background(), path, 200*time.Millisecond, 1)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "closing the owned socket unlinks it")
}

func TestAcquireLeavesSocketWhenProbeInconclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), socketName)
	lis, err := net.Listen("unix", path)
	require.NoError(t, err)

	accepted := make(chan struct{})
	go func() {
		defer close(accepted)
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				time.Sleep(250 * time.Millisecond)
			}()
		}
	}()

	_, err = Acquire(context.Background(), path, 30*time.Millisecond, 0)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyRunning)
	require.Contains(t, err.Error(), "probe existing socket")

	_, err = os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, lis.Close())
	<-accepted
}

func TestRuntimeSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "  ")
	_, err := RuntimeSocketPath()
	require.Error(t, err)

	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	path, err := RuntimeSocketPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "hyrily.sock"), path)
}
