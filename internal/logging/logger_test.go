package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLogPathUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdgStateHome, "hyrily", "log.jsonl"), path)
}

func TestResolveLogPathFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "hyrily", "log.jsonl"), path)
}

func TestNewWritesJSONLines(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	runtime, err := New(Options{})
	require.NoError(t, err)

	runtime.Logger.Info("question presented", "component", "interview")
	runtime.Logger.Debug("hidden below info")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"msg":"question presented"`)
	require.Contains(t, string(contents), `"component":"interview"`)
	require.NotContains(t, string(contents), "hidden below info")

	stat, err := os.Stat(runtime.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestNewMirrorsToConsole(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	var console bytes.Buffer
	runtime, err := New(Options{Console: &console, Debug: true})
	require.NoError(t, err)

	runtime.Logger.With("session", "abc").Debug("recognizer restarted", "attempt", 2)
	require.NoError(t, runtime.Close())

	require.Contains(t, console.String(), "recognizer restarted")
	require.Contains(t, console.String(), "attempt")

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"session":"abc"`)
	require.Contains(t, string(contents), `"level":"DEBUG"`)
}

func TestDiscard(t *testing.T) {
	require.NotNil(t, Discard())
	Discard().Error("dropped")
}
