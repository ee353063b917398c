package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/hyrily/hyrily/internal/ai"
	"github.com/hyrily/hyrily/internal/capture"
	"github.com/hyrily/hyrily/internal/config"
	"github.com/hyrily/hyrily/internal/evaluate"
	"github.com/hyrily/hyrily/internal/interview"
	"github.com/hyrily/hyrily/internal/media"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/rpc"
	"github.com/hyrily/hyrily/internal/score"
	"github.com/hyrily/hyrily/internal/store"
	"github.com/hyrily/hyrily/internal/stt"
	"github.com/hyrily/hyrily/internal/tts"
)

// repository is what every store backend provides.
type repository interface {
	store.Repository
	store.CampaignRepository
}

// closers releases session-scoped clients once. It is handed to the
// orchestrator as its media handle.
type closers []io.Closer

func (c closers) Release() error {
	var result *multierror.Error
	for _, closer := range c {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ media.Handle = closers(nil)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// engine bundles the AI collaborators chosen by ai.provider.
type engine struct {
	evaluator evaluate.Evaluator
	generator questions.Generator
	closers   closers
}

// buildEngine wires the evaluator and question generator for cfg. Provider
// "none" yields neither; the orchestrator then scores with its fallback.
func buildEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) (engine, error) {
	var completer ai.Completer
	var out engine

	switch cfg.AI.Provider {
	case config.ProviderGemini:
		g, err := ai.NewGemini(ctx, cfg.Secrets.GeminiAPIKey, cfg.AI.Model)
		if err != nil {
			return engine{}, err
		}
		completer = g
		out.closers = append(out.closers, closerFunc(g.Close))
	case config.ProviderOpenAI:
		o, err := ai.NewOpenAI(cfg.Secrets.OpenAIAPIKey, cfg.AI.Model, cfg.AI.BaseURL)
		if err != nil {
			return engine{}, err
		}
		completer = o
	case config.ProviderRemote:
		if cfg.AI.Evaluator == "" {
			return engine{}, errors.New("ai.provider=remote needs ai.evaluator or HYRILY_EVALUATOR_ADDR")
		}
		client, err := rpc.Dial(ctx, rpc.ClientConfig{Endpoint: cfg.AI.Evaluator})
		if err != nil {
			return engine{}, err
		}
		out.evaluator = client
		out.generator = client
		out.closers = append(out.closers, closerFunc(client.Close))
	case config.ProviderNone:
	default:
		return engine{}, fmt.Errorf("unknown ai.provider %q", cfg.AI.Provider)
	}

	if completer != nil {
		out.evaluator = ai.NewEvaluator(completer)
		out.generator = ai.NewQuestionGenerator(completer)
	}
	if !cfg.AI.GenerateQuestions {
		out.generator = nil
	}
	logger.Debug("ai engine ready", "provider", cfg.AI.Provider, "generate_questions", out.generator != nil)
	return out, nil
}

// pickQuestions draws from a bank when one is named, else generates with the
// fixed mixed-category list as fallback.
func pickQuestions(ctx context.Context, cfg config.Config, gen questions.Generator, logger *slog.Logger) ([]questions.Question, error) {
	count := cfg.Interview.Questions
	if bank := cfg.Interview.Bank; bank != "" {
		pool, err := loadBank(bank)
		if err != nil {
			return nil, err
		}
		return questions.Normalize(questions.Draw(pool, count, nil)), nil
	}

	withFallback := questions.WithFallback(gen, questions.Fallback(), func(err error) {
		logger.Warn("question generation failed; using fallback list", "error", err.Error())
	})
	return withFallback.Generate(ctx, cfg.Interview.Stack, count)
}

func loadBank(name string) ([]questions.Question, error) {
	if strings.ContainsAny(name, "/.") {
		return questions.LoadBank(config.ExpandUser(name))
	}
	return questions.Bank(name)
}

// voice bundles the speech collaborators for one session.
type voice struct {
	speaker tts.Speaker
	capture interview.Listener
	closers closers
}

// buildVoice wires synthesis and recognition. Questions are always written to
// console; cloud failures degrade to silent questions and typed answers.
func buildVoice(ctx context.Context, cfg config.Config, console io.Writer, logger *slog.Logger) voice {
	out := voice{speaker: tts.NewConsole(console)}

	if cfg.Voice.Enable {
		speaker, err := tts.NewGoogle(ctx, tts.GoogleOptions{
			Language:     cfg.Voice.Language,
			Voice:        cfg.Voice.Name,
			SpeakingRate: cfg.Voice.SpeakingRate,
		})
		if err != nil {
			logger.Warn("text-to-speech unavailable", "error", err.Error())
		} else {
			out.speaker = tts.Chain{out.speaker, speaker}
			out.closers = append(out.closers, speaker)
		}
	}

	out.capture = capture.New(nil)
	if cfg.Interview.Modality == string(interview.ModalityVoice) && cfg.Speech.Enable {
		phrases, _, _ := config.BuildSpeechPhrases(cfg)
		hints := make([]stt.Phrase, 0, len(phrases))
		for _, p := range phrases {
			hints = append(hints, stt.Phrase{Text: p.Phrase, Boost: p.Boost})
		}
		recognizer, err := stt.NewGoogle(ctx, stt.GoogleOptions{
			Language:    cfg.Speech.Language,
			Constraints: media.Constraints{Device: cfg.Speech.Input, Fallback: cfg.Speech.Fallback},
			Phrases:     hints,
			Logger:      logger,
		})
		if err != nil {
			logger.Warn("speech recognition unavailable", "error", err.Error())
		} else {
			out.capture = capture.New(recognizer, capture.WithLogger(logger))
			out.closers = append(out.closers, recognizer)
		}
	}
	return out
}

// sessionConfig maps the interview config section onto orchestrator settings.
func sessionConfig(cfg config.Config) interview.Config {
	in := cfg.Interview
	return interview.Config{
		Modality:        interview.Modality(in.Modality),
		Timing:          interview.Timing(in.Timing),
		QuestionBudget:  time.Duration(in.QuestionSeconds) * time.Second,
		SessionCap:      time.Duration(in.SessionMinutes) * time.Minute,
		QuietPeriod:     time.Duration(in.QuietMS) * time.Millisecond,
		AdvanceDelay:    time.Duration(in.AdvanceMS) * time.Millisecond,
		EvaluateTimeout: time.Duration(in.EvaluateTimeoutSeconds) * time.Second,
		SkipPolicy:      score.Policy(in.SkipPolicy),
		FallbackScore:   in.FallbackScore,
		Stack:           in.Stack,
	}
}

// openStore opens the configured backend. The returned close func is never nil.
func openStore(ctx context.Context, cfg config.Config) (repository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemory(), noop, nil
	case config.BackendPostgres:
		if cfg.Secrets.DatabaseURL == "" {
			return nil, noop, errors.New("store.backend=postgres needs DATABASE_URL")
		}
		pg, err := store.OpenPostgres(ctx, cfg.Secrets.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return pg, pg.Close, nil
	default:
		dir, err := cfg.StoreDir()
		if err != nil {
			return nil, noop, err
		}
		files, err := store.NewFiles(dir)
		if err != nil {
			return nil, noop, err
		}
		return files, noop, nil
	}
}

// applyPractice layers command-line overrides onto the interview section.
func applyPractice(cfg *config.Config, stack string, count int, modality, timing, bank string, questionSeconds, minutes int) error {
	in := &cfg.Interview
	if stack != "" {
		in.Stack = stack
	}
	if count > 0 {
		in.Questions = count
	}
	if modality != "" {
		in.Modality = modality
	}
	if timing != "" {
		in.Timing = timing
	}
	if bank != "" {
		in.Bank = bank
	}
	if questionSeconds > 0 {
		in.QuestionSeconds = questionSeconds
	}
	if minutes > 0 {
		in.SessionMinutes = minutes
	}
	_, err := config.Validate(*cfg)
	return err
}
