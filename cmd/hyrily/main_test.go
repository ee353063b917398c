package main

import (
	"errors"
	"os"
	"os/exec"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMainHelpListsCommands(t *testing.T) {
	output, err := runMain(t, "--help")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "Usage:")
	require.Contains(t, string(output), "practice")
	require.Contains(t, string(output), "company")
}

func TestMainVersion(t *testing.T) {
	output, err := runMain(t, "version")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "hyrily")
}

func TestMainInvalidCommandExitsWithUsage(t *testing.T) {
	output, err := runMain(t, "not-a-command")

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.ExitCode())
	require.Contains(t, string(output), "unknown command")
}

func TestMainHelperProcess(t *testing.T) {
	if os.Getenv("HYRILY_HELPER_PROCESS") != "1" {
		return
	}
	rest := []string{}
	if i := slices.Index(os.Args, "--"); i >= 0 {
		rest = os.Args[i+1:]
	}
	os.Args = append([]string{"hyrily"}, rest...)
	main()
}

func runMain(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()

	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestMainHelperProcess", "--"}, args...)...)
	cmd.Env = append(os.Environ(), "HYRILY_HELPER_PROCESS=1", "XDG_STATE_HOME="+t.TempDir())
	return cmd.CombinedOutput()
}
