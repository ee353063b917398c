package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestBuildSpeechPhrasesSortedAndHighestBoostWins(t *testing.T) {
	cfg := Default()
	cfg.Vocab.GlobalSets = []string{"core", "team"}
	cfg.Vocab.Sets["core"] = VocabSet{Name: "core", Boost: 10, Phrases: []string{"beta", "alpha"}}
	cfg.Vocab.Sets["team"] = VocabSet{Name: "team", Boost: 20, Phrases: []string{"alpha", "gamma"}}

	phrases, warnings, err := BuildSpeechPhrases(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, []SpeechPhrase{
		{Phrase: "alpha", Boost: 20},
		{Phrase: "beta", Boost: 10},
		{Phrase: "gamma", Boost: 20},
	}, phrases)
}

func TestBuildSpeechPhrasesLimits(t *testing.T) {
	cfg := Default()
	cfg.Vocab.GlobalSets = []string{"missing"}
	_, _, err := BuildSpeechPhrases(cfg)
	require.ErrorContains(t, err, "unknown set")

	cfg.Vocab.GlobalSets = []string{"core"}
	cfg.Vocab.Sets["core"] = VocabSet{Name: "core", Phrases: []string{"a", "b"}}
	cfg.Vocab.MaxPhrases = 1
	_, _, err = BuildSpeechPhrases(cfg)
	require.ErrorContains(t, err, "max_phrases")
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Interview.Timing = "continuous"
	cfg.AI.Provider = ProviderNone

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
}

func TestValidateRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "unknown modality", mutate: func(c *Config) { c.Interview.Modality = "video" }, wantErr: "interview.modality"},
		{name: "unknown timing", mutate: func(c *Config) { c.Interview.Timing = "" }, wantErr: "interview.timing"},
		{name: "unknown skip policy", mutate: func(c *Config) { c.Interview.SkipPolicy = "all" }, wantErr: "skip_policy"},
		{name: "no questions", mutate: func(c *Config) { c.Interview.Questions = 0 }, wantErr: "interview.questions"},
		{name: "no question budget", mutate: func(c *Config) { c.Interview.QuestionSeconds = 0 }, wantErr: "question_seconds"},
		{name: "negative session cap", mutate: func(c *Config) { c.Interview.SessionMinutes = -1 }, wantErr: "session_minutes"},
		{name: "negative quiet period", mutate: func(c *Config) { c.Interview.QuietMS = -5 }, wantErr: "quiet_ms"},
		{name: "no evaluate timeout", mutate: func(c *Config) { c.Interview.EvaluateTimeoutSeconds = 0 }, wantErr: "evaluate_timeout"},
		{name: "fallback off scale", mutate: func(c *Config) { c.Interview.FallbackScore = 7 }, wantErr: "fallback_score"},
		{name: "empty language", mutate: func(c *Config) { c.Speech.Language = " " }, wantErr: "speech.language"},
		{name: "voice without speech", mutate: func(c *Config) {
			c.Interview.Modality = "voice"
			c.Speech.Enable = false
		}, wantErr: "speech.enable"},
		{name: "speaking rate", mutate: func(c *Config) { c.Voice.SpeakingRate = 0 }, wantErr: "speaking_rate"},
		{name: "provider", mutate: func(c *Config) { c.AI.Provider = "claude" }, wantErr: "ai.provider"},
		{name: "store backend", mutate: func(c *Config) { c.Store.Backend = "sqlite" }, wantErr: "store.backend"},
		{name: "no candidates", mutate: func(c *Config) { c.Company.Candidates = 0 }, wantErr: "company.candidates"},
		{name: "select more than candidates", mutate: func(c *Config) { c.Company.SelectCount = 9 }, wantErr: "select_count"},
		{name: "no company questions", mutate: func(c *Config) { c.Company.Questions = 0 }, wantErr: "company.questions"},
		{name: "invalid max phrases", mutate: func(c *Config) { c.Vocab.MaxPhrases = 0 }, wantErr: "vocab.max_phrases"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
