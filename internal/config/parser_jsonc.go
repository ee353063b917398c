package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	Interview *jsoncInterview `json:"interview"`
	Speech    *jsoncSpeech    `json:"speech"`
	Voice     *jsoncVoice     `json:"voice"`
	AI        *jsoncAI        `json:"ai"`
	Store     *jsoncStore     `json:"store"`
	Company   *jsoncCompany   `json:"company"`
	Cues      *jsoncCues      `json:"cues"`
	Vocab     *jsoncVocab     `json:"vocab"`
}

type jsoncInterview struct {
	Modality               *string  `json:"modality"`
	Timing                 *string  `json:"timing"`
	Stack                  *string  `json:"stack"`
	Bank                   *string  `json:"bank"`
	Questions              *int     `json:"questions"`
	QuestionSeconds        *int     `json:"question_seconds"`
	SessionMinutes         *int     `json:"session_minutes"`
	QuietMS                *int     `json:"quiet_ms"`
	AdvanceMS              *int     `json:"advance_ms"`
	EvaluateTimeoutSeconds *int     `json:"evaluate_timeout_seconds"`
	SkipPolicy             *string  `json:"skip_policy"`
	FallbackScore          *float64 `json:"fallback_score"`
}

type jsoncSpeech struct {
	Enable   *bool   `json:"enable"`
	Language *string `json:"language"`
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncVoice struct {
	Enable       *bool    `json:"enable"`
	Language     *string  `json:"language"`
	Name         *string  `json:"name"`
	SpeakingRate *float64 `json:"speaking_rate"`
}

type jsoncAI struct {
	Provider          *string `json:"provider"`
	Model             *string `json:"model"`
	BaseURL           *string `json:"base_url"`
	Evaluator         *string `json:"evaluator"`
	GenerateQuestions *bool   `json:"generate_questions"`
}

type jsoncStore struct {
	Backend *string `json:"backend"`
	Path    *string `json:"path"`
}

type jsoncCompany struct {
	Candidates  *int    `json:"candidates"`
	SelectCount *int    `json:"select_count"`
	Questions   *int    `json:"questions"`
	JoinBaseURL *string `json:"join_base_url"`
}

type jsoncCues struct {
	Enable       *bool   `json:"enable"`
	StartFile    *string `json:"start_file"`
	StopFile     *string `json:"stop_file"`
	CompleteFile *string `json:"complete_file"`
	CancelFile   *string `json:"cancel_file"`
}

type jsoncVocab struct {
	Global     *jsoncStringList         `json:"global"`
	MaxPhrases *int                     `json:"max_phrases"`
	Sets       map[string]jsoncVocabSet `json:"sets"`
}

type jsoncVocabSet struct {
	Boost   *float64 `json:"boost"`
	Phrases []string `json:"phrases"`
}

// jsoncStringList accepts either a string array or a comma-delimited string.
type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("expected string array or comma-delimited string")
	}
	out := make([]string, 0)
	for _, part := range strings.Split(single, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l = out
	return nil
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	cfg.Vocab.Sets = cloneSets(base.Vocab.Sets)
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if in := payload.Interview; in != nil {
		setTrimmed(&cfg.Interview.Modality, in.Modality)
		setTrimmed(&cfg.Interview.Timing, in.Timing)
		setTrimmed(&cfg.Interview.Stack, in.Stack)
		setTrimmed(&cfg.Interview.Bank, in.Bank)
		set(&cfg.Interview.Questions, in.Questions)
		set(&cfg.Interview.QuestionSeconds, in.QuestionSeconds)
		set(&cfg.Interview.SessionMinutes, in.SessionMinutes)
		set(&cfg.Interview.QuietMS, in.QuietMS)
		set(&cfg.Interview.AdvanceMS, in.AdvanceMS)
		set(&cfg.Interview.EvaluateTimeoutSeconds, in.EvaluateTimeoutSeconds)
		setTrimmed(&cfg.Interview.SkipPolicy, in.SkipPolicy)
		set(&cfg.Interview.FallbackScore, in.FallbackScore)
	}

	if sp := payload.Speech; sp != nil {
		set(&cfg.Speech.Enable, sp.Enable)
		setTrimmed(&cfg.Speech.Language, sp.Language)
		setTrimmed(&cfg.Speech.Input, sp.Input)
		setTrimmed(&cfg.Speech.Fallback, sp.Fallback)
	}

	if v := payload.Voice; v != nil {
		set(&cfg.Voice.Enable, v.Enable)
		setTrimmed(&cfg.Voice.Language, v.Language)
		setTrimmed(&cfg.Voice.Name, v.Name)
		set(&cfg.Voice.SpeakingRate, v.SpeakingRate)
	}

	if a := payload.AI; a != nil {
		if a.Provider != nil {
			cfg.AI.Provider = strings.ToLower(strings.TrimSpace(*a.Provider))
		}
		setTrimmed(&cfg.AI.Model, a.Model)
		setTrimmed(&cfg.AI.BaseURL, a.BaseURL)
		setTrimmed(&cfg.AI.Evaluator, a.Evaluator)
		set(&cfg.AI.GenerateQuestions, a.GenerateQuestions)
	}

	if s := payload.Store; s != nil {
		if s.Backend != nil {
			cfg.Store.Backend = strings.ToLower(strings.TrimSpace(*s.Backend))
		}
		setTrimmed(&cfg.Store.Path, s.Path)
	}

	if c := payload.Company; c != nil {
		set(&cfg.Company.Candidates, c.Candidates)
		set(&cfg.Company.SelectCount, c.SelectCount)
		set(&cfg.Company.Questions, c.Questions)
		setTrimmed(&cfg.Company.JoinBaseURL, c.JoinBaseURL)
	}

	if c := payload.Cues; c != nil {
		set(&cfg.Cues.Enable, c.Enable)
		setTrimmed(&cfg.Cues.StartFile, c.StartFile)
		setTrimmed(&cfg.Cues.StopFile, c.StopFile)
		setTrimmed(&cfg.Cues.CompleteFile, c.CompleteFile)
		setTrimmed(&cfg.Cues.CancelFile, c.CancelFile)
	}

	if v := payload.Vocab; v != nil {
		if v.Global != nil {
			cfg.Vocab.GlobalSets = nil
			for _, name := range *v.Global {
				if name = strings.TrimSpace(name); name != "" {
					cfg.Vocab.GlobalSets = append(cfg.Vocab.GlobalSets, name)
				}
			}
		}
		set(&cfg.Vocab.MaxPhrases, v.MaxPhrases)
		for name, vs := range v.Sets {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" {
				return fmt.Errorf("vocab.sets contains an empty set name")
			}
			entry := VocabSet{Name: trimmed, Phrases: append([]string(nil), vs.Phrases...)}
			if vs.Boost != nil {
				entry.Boost = *vs.Boost
			}
			cfg.Vocab.Sets[trimmed] = entry
		}
	}

	return nil
}

func cloneSets(in map[string]VocabSet) map[string]VocabSet {
	out := make(map[string]VocabSet, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
