package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the resolved configuration together with where it came from.
// Exists is false when defaults were used because no file was found.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration, then
// layers secrets from the environment and any dotenvFiles on top.
func Load(explicitPath string, dotenvFiles ...string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, err := Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config = cfg
		loaded.Warnings = warnings
		loaded.Exists = true
	}

	secrets, err := LoadSecrets(dotenvFiles...)
	if err != nil {
		return Loaded{}, err
	}
	loaded.Config.Secrets = secrets
	if loaded.Config.AI.Evaluator == "" {
		loaded.Config.AI.Evaluator = secrets.EvaluatorAddr
	}
	return loaded, nil
}
