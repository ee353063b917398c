package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

var ErrAlreadyRunning = errors.New("hyrily practice session already running")

const (
	socketName   = "hyrily.sock"
	reclaimPause = 25 * time.Millisecond
)

// RuntimeSocketPath is the per-user control socket of a practice session.
func RuntimeSocketPath() (string, error) {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(dir, socketName), nil
}

// Socket is an owned control socket. Close stops listening and unlinks the
// socket file.
type Socket struct {
	net.Listener
	path string
	once sync.Once
	err  error
}

func (s *Socket) Path() string { return s.path }

func (s *Socket) Close() error {
	s.once.Do(func() {
		s.err = s.Listener.Close()
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) && s.err == nil {
			s.err = err
		}
	})
	return s.err
}

// Acquire claims path for this process. A socket left behind by a crashed
// session is unlinked and retried; one that still answers a status probe
// yields ErrAlreadyRunning.
func Acquire(ctx context.Context, path string, probeTimeout time.Duration, retries int) (*Socket, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		lis, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return &Socket{Listener: lis, path: path}, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		if err := reclaim(ctx, path, probeTimeout); err != nil {
			return nil, err
		}
		if attempt >= retries {
			return nil, fmt.Errorf("socket %s still busy after %d retries", path, retries)
		}

		pause := time.NewTimer(reclaimPause * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			pause.Stop()
			return nil, ctx.Err()
		case <-pause.C:
		}
	}
}

// reclaim unlinks path when nobody answers on it. An inconclusive probe
// leaves the file alone.
func reclaim(ctx context.Context, path string, probeTimeout time.Duration) error {
	alive, err := Probe(ctx, path, probeTimeout)
	switch {
	case alive:
		return ErrAlreadyRunning
	case err != nil:
		return fmt.Errorf("probe existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
