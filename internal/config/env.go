package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Secrets are credentials and endpoints read from the environment.
type Secrets struct {
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	DatabaseURL   string `env:"DATABASE_URL"`
	EvaluatorAddr string `env:"HYRILY_EVALUATOR_ADDR"`
}

// LoadSecrets reads optional dotenv files, then the process environment.
// Values already set in the environment win over dotenv entries.
func LoadSecrets(dotenvFiles ...string) (Secrets, error) {
	for _, path := range dotenvFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Secrets{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var s Secrets
	if err := env.Parse(&s); err != nil {
		return Secrets{}, fmt.Errorf("parse environment: %w", err)
	}
	return s, nil
}

// Redacted reports which secrets are present without exposing them.
func (s Secrets) Redacted() map[string]bool {
	return map[string]bool{
		"GEMINI_API_KEY":        s.GeminiAPIKey != "",
		"OPENAI_API_KEY":        s.OpenAIAPIKey != "",
		"DATABASE_URL":          s.DatabaseURL != "",
		"HYRILY_EVALUATOR_ADDR": s.EvaluatorAddr != "",
	}
}
