// Package doctor runs readiness diagnostics for config, credentials, audio,
// the evaluator and the session store.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hyrily/hyrily/internal/config"
	"github.com/hyrily/hyrily/internal/media"
	"github.com/hyrily/hyrily/internal/rpc"
	"github.com/hyrily/hyrily/internal/store"
)

const probeTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Probes are the live checks doctor performs. Zero fields use the real implementations.
type Probes struct {
	SelectDevice  func(ctx context.Context, c media.Constraints) (media.Selection, error)
	DialEvaluator func(ctx context.Context, addr string) error
	PingDatabase  func(ctx context.Context, dsn string) error
}

func (p Probes) withDefaults() Probes {
	if p.SelectDevice == nil {
		p.SelectDevice = media.SelectDevice
	}
	if p.DialEvaluator == nil {
		p.DialEvaluator = dialEvaluator
	}
	if p.PingDatabase == nil {
		p.PingDatabase = store.Ping
	}
	return p
}

func dialEvaluator(ctx context.Context, addr string) error {
	client, err := rpc.Dial(ctx, rpc.ClientConfig{Endpoint: addr, DialTimeout: probeTimeout})
	if err != nil {
		return err
	}
	return client.Close()
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded, probes Probes) Report {
	probes = probes.withDefaults()
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", nonEmpty,
		"session control socket available", "XDG_RUNTIME_DIR is empty; status/record/stop/submit/cancel will not work"))

	checks = append(checks, checkProvider(ctx, cfg, probes))

	if cfg.Speech.Enable || cfg.Voice.Enable {
		checks = append(checks, checkGoogleCredentials())
	}
	if cfg.Speech.Enable {
		checks = append(checks, checkAudioSelection(ctx, cfg, probes))
	}
	if cfg.Cues.Enable && hasCueFiles(cfg.Cues) {
		checks = append(checks, checkBinary("pw-play", "cue files will play"))
	}

	checks = append(checks, checkStore(ctx, cfg, probes))
	return Report{Checks: checks}
}

func nonEmpty(v string) bool {
	return strings.TrimSpace(v) != ""
}

func checkConfig(loaded config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		message = fmt.Sprintf("%q not found; using defaults", loaded.Path)
	}
	if n := len(loaded.Warnings); n > 0 && loaded.Exists {
		message += fmt.Sprintf(" (%d warnings)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	if predicate(os.Getenv(name)) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkProvider(ctx context.Context, cfg config.Config, probes Probes) Check {
	const name = "ai.provider"
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		return secretCheck(name, "GEMINI_API_KEY", cfg.Secrets.GeminiAPIKey)
	case config.ProviderOpenAI:
		return secretCheck(name, "OPENAI_API_KEY", cfg.Secrets.OpenAIAPIKey)
	case config.ProviderRemote:
		addr := cfg.AI.Evaluator
		if addr == "" {
			return Check{Name: name, Pass: false, Message: "ai.evaluator or HYRILY_EVALUATOR_ADDR must be set"}
		}
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		if err := probes.DialEvaluator(ctx, addr); err != nil {
			return Check{Name: name, Pass: false, Message: fmt.Sprintf("evaluator %s unreachable: %v", addr, err)}
		}
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("evaluator ready at %s", addr)}
	default:
		return Check{Name: name, Pass: true, Message: "no evaluator; answers receive the fallback score"}
	}
}

func secretCheck(name, key, value string) Check {
	if value == "" {
		return Check{Name: name, Pass: false, Message: key + " is not set"}
	}
	return Check{Name: name, Pass: true, Message: key + " is set"}
}

func checkGoogleCredentials() Check {
	return checkEnv("GOOGLE_APPLICATION_CREDENTIALS", func(v string) bool {
		if !nonEmpty(v) {
			return false
		}
		_, err := os.Stat(v)
		return err == nil
	}, "Google Cloud credentials file present", "speech/voice need GOOGLE_APPLICATION_CREDENTIALS pointing at a readable file")
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config, probes Probes) Check {
	selection, err := probes.SelectDevice(ctx, media.Constraints{Device: cfg.Speech.Input, Fallback: cfg.Speech.Fallback})
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message += " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func hasCueFiles(c config.CuesConfig) bool {
	return c.StartFile != "" || c.StopFile != "" || c.CompleteFile != "" || c.CancelFile != ""
}

func checkStore(ctx context.Context, cfg config.Config, probes Probes) Check {
	const name = "store"
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		if cfg.Secrets.DatabaseURL == "" {
			return Check{Name: name, Pass: false, Message: "DATABASE_URL is not set"}
		}
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		if err := probes.PingDatabase(ctx, cfg.Secrets.DatabaseURL); err != nil {
			return Check{Name: name, Pass: false, Message: err.Error()}
		}
		return Check{Name: name, Pass: true, Message: "postgres reachable"}
	case config.BackendMemory:
		return Check{Name: name, Pass: true, Message: "in-memory; sessions are not kept"}
	default:
		dir, err := cfg.StoreDir()
		if err != nil {
			return Check{Name: name, Pass: false, Message: err.Error()}
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return Check{Name: name, Pass: false, Message: fmt.Sprintf("create %s: %v", dir, err)}
		}
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("files under %s", dir)}
	}
}
