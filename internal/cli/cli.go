// Package cli parses hyrily command lines into a Parsed invocation. Dispatch
// lives in package app.
package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyrily/hyrily/internal/version"
)

const binaryName = "hyrily"

type Command string

const (
	CommandPractice         Command = "practice"
	CommandQuestions        Command = "questions"
	CommandSessionsList     Command = "sessions list"
	CommandSessionsShow     Command = "sessions show"
	CommandCompanyCreate    Command = "company create"
	CommandCompanyList      Command = "company list"
	CommandCompanyShow      Command = "company show"
	CommandCompanyRank      Command = "company rank"
	CommandCompanyInterview Command = "company interview"
	CommandEvaluatorServe   Command = "evaluator serve"
	CommandStatus           Command = "status"
	CommandRecord           Command = "record"
	CommandStop             Command = "stop"
	CommandSubmit           Command = "submit"
	CommandCancel           Command = "cancel"
	CommandDevices          Command = "devices"
	CommandDoctor           Command = "doctor"
	CommandVersion          Command = "version"
)

// PracticeOptions override interview config for one run. Zero values keep config.
type PracticeOptions struct {
	Stack           string
	Count           int
	Modality        string
	Timing          string
	Bank            string
	QuestionSeconds int
	SessionMinutes  int
}

// CompanyOptions shape a new campaign. Zero values keep config.
type CompanyOptions struct {
	Name        string
	Stack       string
	Candidates  int
	SelectCount int
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	EnvFile    string
	Verbose    bool

	// Handled is set when cobra already answered (help, --version) and
	// nothing remains to run.
	Handled bool

	Practice PracticeOptions
	Company  CompanyOptions
	Listen   string
}

// Parse builds the command tree and resolves args. Help and version output is
// written to out.
func Parse(args []string, out io.Writer) (Parsed, error) {
	var parsed Parsed
	root := newRoot(&parsed)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)

	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	if parsed.Command == "" {
		parsed.Handled = true
	}
	return parsed, nil
}

// HelpText is the root usage block.
func HelpText() string {
	return newRoot(&Parsed{}).UsageString()
}

func leaf(parsed *Parsed, cmd Command) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		parsed.Command = cmd
		parsed.Args = args
		return nil
	}
}

func newRoot(parsed *Parsed) *cobra.Command {
	root := &cobra.Command{
		Use:           binaryName,
		Short:         "Practice technical interviews by voice or text",
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&parsed.ConfigPath, "config", "", "config file path (default $XDG_CONFIG_HOME/hyrily/config.jsonc)")
	flags.StringVar(&parsed.EnvFile, "env-file", ".env", "dotenv file with API keys")
	flags.BoolVarP(&parsed.Verbose, "verbose", "v", false, "log to stderr")

	practice := &cobra.Command{
		Use:   "practice",
		Short: "Run a practice interview in this terminal",
		Args:  cobra.NoArgs,
		RunE:  leaf(parsed, CommandPractice),
	}
	bindPractice(practice, &parsed.Practice)

	questions := &cobra.Command{
		Use:   "questions",
		Short: "Generate and print questions for a stack",
		Args:  cobra.NoArgs,
		RunE:  leaf(parsed, CommandQuestions),
	}
	questions.Flags().StringVar(&parsed.Practice.Stack, "stack", "", "technology stack")
	questions.Flags().IntVarP(&parsed.Practice.Count, "count", "n", 0, "number of questions")
	questions.Flags().StringVar(&parsed.Practice.Bank, "bank", "", "built-in bank name or YAML file")

	root.AddCommand(
		practice,
		questions,
		sessionsCommand(parsed),
		companyCommand(parsed),
		evaluatorCommand(parsed),
		control(parsed, CommandStatus, "Print the running session's state"),
		control(parsed, CommandRecord, "Start recording an answer"),
		control(parsed, CommandStop, "Stop recording and submit the transcript"),
		&cobra.Command{
			Use:   "submit TEXT...",
			Short: "Submit a typed answer",
			Args:  cobra.MinimumNArgs(1),
			RunE:  leaf(parsed, CommandSubmit),
		},
		control(parsed, CommandCancel, "End the running session"),
		&cobra.Command{
			Use:   "devices",
			Short: "List available input devices",
			Args:  cobra.NoArgs,
			RunE:  leaf(parsed, CommandDevices),
		},
		&cobra.Command{
			Use:   "doctor",
			Short: "Run configuration and environment checks",
			Args:  cobra.NoArgs,
			RunE:  leaf(parsed, CommandDoctor),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			RunE:  leaf(parsed, CommandVersion),
		},
	)
	return root
}

func bindPractice(cmd *cobra.Command, opts *PracticeOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.Stack, "stack", "", "technology stack to practice")
	f.IntVarP(&opts.Count, "count", "n", 0, "number of questions")
	f.StringVar(&opts.Modality, "modality", "", "typed or voice")
	f.StringVar(&opts.Timing, "timing", "", "untimed, timed or continuous")
	f.StringVar(&opts.Bank, "bank", "", "built-in bank name or YAML file instead of generated questions")
	f.IntVar(&opts.QuestionSeconds, "question-seconds", 0, "time budget per question")
	f.IntVar(&opts.SessionMinutes, "minutes", 0, "overall session cap")
}

func control(parsed *Parsed, cmd Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(cmd),
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  leaf(parsed, cmd),
	}
}

func sessionsCommand(parsed *Parsed) *cobra.Command {
	sessions := &cobra.Command{Use: "sessions", Short: "Inspect saved practice sessions"}
	sessions.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved sessions",
			Args:  cobra.NoArgs,
			RunE:  leaf(parsed, CommandSessionsList),
		},
		&cobra.Command{
			Use:   "show SESSION_ID",
			Short: "Show a session's feedback report",
			Args:  cobra.ExactArgs(1),
			RunE:  leaf(parsed, CommandSessionsShow),
		},
	)
	return sessions
}

func companyCommand(parsed *Parsed) *cobra.Command {
	company := &cobra.Command{Use: "company", Short: "Run company interview campaigns"}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a campaign with placeholder candidates",
		Args:  cobra.NoArgs,
		RunE:  leaf(parsed, CommandCompanyCreate),
	}
	f := create.Flags()
	f.StringVar(&parsed.Company.Name, "name", "", "company name")
	f.StringVar(&parsed.Company.Stack, "stack", "", "technology stack")
	f.IntVar(&parsed.Company.Candidates, "candidates", 0, "number of candidates")
	f.IntVar(&parsed.Company.SelectCount, "select", 0, "number of candidates to select")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("stack")

	interview := &cobra.Command{
		Use:   "interview CAMPAIGN_ID",
		Short: "Interview the next pending candidate in this terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  leaf(parsed, CommandCompanyInterview),
	}
	bindPractice(interview, &parsed.Practice)

	company.AddCommand(
		create,
		&cobra.Command{
			Use:   "list",
			Short: "List campaigns",
			Args:  cobra.NoArgs,
			RunE:  leaf(parsed, CommandCompanyList),
		},
		&cobra.Command{
			Use:   "show CAMPAIGN_ID",
			Short: "Show campaign progress",
			Args:  cobra.ExactArgs(1),
			RunE:  leaf(parsed, CommandCompanyShow),
		},
		&cobra.Command{
			Use:   "rank CAMPAIGN_ID",
			Short: "Show candidates ranked by score",
			Args:  cobra.ExactArgs(1),
			RunE:  leaf(parsed, CommandCompanyRank),
		},
		interview,
	)
	return company
}

func evaluatorCommand(parsed *Parsed) *cobra.Command {
	evaluator := &cobra.Command{Use: "evaluator", Short: "Answer evaluation service"}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured evaluator over gRPC",
		Args:  cobra.NoArgs,
		RunE:  leaf(parsed, CommandEvaluatorServe),
	}
	serve.Flags().StringVar(&parsed.Listen, "listen", "127.0.0.1:7443", "listen address")
	evaluator.AddCommand(serve)
	return evaluator
}

// AnswerText joins submit arguments into one answer.
func (p Parsed) AnswerText() string {
	return strings.TrimSpace(strings.Join(p.Args, " "))
}
