package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (Parsed, string, error) {
	t.Helper()
	var out bytes.Buffer
	parsed, err := Parse(args, &out)
	return parsed, out.String(), err
}

func TestParseDefaultsToHelp(t *testing.T) {
	var out bytes.Buffer
	parsed, err := Parse(nil, &out)
	require.NoError(t, err)
	require.True(t, parsed.Handled)
	require.Contains(t, out.String(), "Usage:")
	require.Contains(t, out.String(), "practice")
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, _, err := parse(t, "--config", "/tmp/hyrily.jsonc", "doctor")
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/hyrily.jsonc", parsed.ConfigPath)
	require.Equal(t, ".env", parsed.EnvFile)
	require.False(t, parsed.Handled)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     string
		wantCmd     Command
		wantHandled bool
		wantArgs    []string
	}{
		{name: "help short flag", args: []string{"-h"}, wantHandled: true},
		{name: "help long flag", args: []string{"--help"}, wantHandled: true},
		{name: "version flag", args: []string{"--version"}, wantHandled: true},
		{name: "version command", args: []string{"version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantCmd: CommandStatus},
		{name: "missing config path", args: []string{"--config"}, wantErr: "flag needs an argument"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unknown command"},
		{name: "cancel", args: []string{"cancel"}, wantCmd: CommandCancel},
		{name: "submit joins words", args: []string{"submit", "I", "use", "channels"}, wantCmd: CommandSubmit, wantArgs: []string{"I", "use", "channels"}},
		{name: "submit without text", args: []string{"submit"}, wantErr: "requires at least 1 arg"},
		{name: "sessions show", args: []string{"sessions", "show", "abc"}, wantCmd: CommandSessionsShow, wantArgs: []string{"abc"}},
		{name: "sessions show without id", args: []string{"sessions", "show"}, wantErr: "accepts 1 arg"},
		{name: "sessions group prints help", args: []string{"sessions"}, wantHandled: true},
		{name: "company rank", args: []string{"company", "rank", "c1"}, wantCmd: CommandCompanyRank, wantArgs: []string{"c1"}},
		{name: "company create requires name", args: []string{"company", "create", "--stack", "Go"}, wantErr: "required flag"},
		{name: "evaluator serve", args: []string{"evaluator", "serve"}, wantCmd: CommandEvaluatorServe},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, _, err := parse(t, tc.args...)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHandled, parsed.Handled)
			if tc.wantArgs != nil {
				require.Equal(t, tc.wantArgs, parsed.Args)
			}
		})
	}
}

func TestParsePracticeOptions(t *testing.T) {
	parsed, _, err := parse(t, "practice", "--stack", "Go", "-n", "3", "--modality", "voice", "--timing", "continuous", "--minutes", "20", "-v")
	require.NoError(t, err)
	require.Equal(t, CommandPractice, parsed.Command)
	require.True(t, parsed.Verbose)
	require.Equal(t, PracticeOptions{Stack: "Go", Count: 3, Modality: "voice", Timing: "continuous", SessionMinutes: 20}, parsed.Practice)
}

func TestParseCompanyCreateOptions(t *testing.T) {
	parsed, _, err := parse(t, "company", "create", "--name", "Acme", "--stack", "React", "--candidates", "4", "--select", "1")
	require.NoError(t, err)
	require.Equal(t, CommandCompanyCreate, parsed.Command)
	require.Equal(t, CompanyOptions{Name: "Acme", Stack: "React", Candidates: 4, SelectCount: 1}, parsed.Company)
}

func TestParseVersionFlagPrints(t *testing.T) {
	_, out, err := parse(t, "--version")
	require.NoError(t, err)
	require.Contains(t, out, "hyrily ")
}

func TestParseEvaluatorListenDefault(t *testing.T) {
	parsed, _, err := parse(t, "evaluator", "serve")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7443", parsed.Listen)
}

func TestAnswerText(t *testing.T) {
	require.Equal(t, "a b", Parsed{Args: []string{" a", "b "}}.AnswerText())
}

func TestHelpText(t *testing.T) {
	text := HelpText()
	require.Contains(t, text, "Usage:")
	require.Contains(t, text, "company")
	require.Contains(t, text, "--config")
}
