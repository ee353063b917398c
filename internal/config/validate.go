package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	in := cfg.Interview
	if err := oneOf("interview.modality", in.Modality, "typed", "voice"); err != nil {
		return nil, err
	}
	if err := oneOf("interview.timing", in.Timing, "untimed", "timed", "continuous"); err != nil {
		return nil, err
	}
	if err := oneOf("interview.skip_policy", in.SkipPolicy, "include_skipped", "answered_only"); err != nil {
		return nil, err
	}
	if in.Questions <= 0 {
		return nil, fmt.Errorf("interview.questions must be > 0")
	}
	if in.QuestionSeconds <= 0 {
		return nil, fmt.Errorf("interview.question_seconds must be > 0")
	}
	if in.SessionMinutes < 0 {
		return nil, fmt.Errorf("interview.session_minutes must be >= 0")
	}
	if in.QuietMS < 0 || in.AdvanceMS < 0 {
		return nil, fmt.Errorf("interview.quiet_ms and interview.advance_ms must be >= 0")
	}
	if in.EvaluateTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("interview.evaluate_timeout_seconds must be > 0")
	}
	if in.FallbackScore < 0 || in.FallbackScore > 5 {
		return nil, fmt.Errorf("interview.fallback_score must be within 0..5")
	}
	if in.Timing == "continuous" && in.Modality != "voice" {
		warnings = append(warnings, Warning{Message: "interview.timing=continuous only auto-records in voice modality"})
	}

	if strings.TrimSpace(cfg.Speech.Language) == "" {
		return nil, fmt.Errorf("speech.language must not be empty")
	}
	if in.Modality == "voice" && !cfg.Speech.Enable {
		return nil, fmt.Errorf("interview.modality=voice requires speech.enable=true")
	}
	if cfg.Voice.SpeakingRate < 0.25 || cfg.Voice.SpeakingRate > 4 {
		return nil, fmt.Errorf("voice.speaking_rate must be within 0.25..4")
	}

	if err := oneOf("ai.provider", cfg.AI.Provider, ProviderGemini, ProviderOpenAI, ProviderRemote, ProviderNone); err != nil {
		return nil, err
	}
	if cfg.AI.Provider == ProviderNone {
		warnings = append(warnings, Warning{Message: "ai.provider=none; answers receive the fallback score"})
	}

	if err := oneOf("store.backend", cfg.Store.Backend, BackendFiles, BackendMemory, BackendPostgres); err != nil {
		return nil, err
	}

	if cfg.Company.Candidates <= 0 {
		return nil, fmt.Errorf("company.candidates must be > 0")
	}
	if cfg.Company.SelectCount < 0 || cfg.Company.SelectCount > cfg.Company.Candidates {
		return nil, fmt.Errorf("company.select_count must be within 0..company.candidates")
	}
	if cfg.Company.Questions <= 0 {
		return nil, fmt.Errorf("company.questions must be > 0")
	}

	if cfg.Vocab.MaxPhrases <= 0 {
		return nil, fmt.Errorf("vocab.max_phrases must be > 0")
	}
	_, vocabWarnings, err := BuildSpeechPhrases(cfg)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, vocabWarnings...)

	return warnings, nil
}

func oneOf(key string, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of: %s", key, strings.Join(allowed, ", "))
}

// BuildSpeechPhrases merges enabled vocab sets into deterministic recognizer hints.
// A phrase present in several sets keeps the highest boost.
func BuildSpeechPhrases(cfg Config) ([]SpeechPhrase, []Warning, error) {
	if len(cfg.Vocab.GlobalSets) == 0 {
		return nil, nil, nil
	}

	type candidate struct {
		boost float64
		from  string
	}

	var warnings []Warning
	selected := make(map[string]candidate)

	for _, name := range cfg.Vocab.GlobalSets {
		vs, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range vs.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			existing, seen := selected[phrase]
			if !seen {
				selected[phrase] = candidate{boost: vs.Boost, from: name}
				continue
			}
			if vs.Boost > existing.boost {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("phrase %q present in %q and %q; using higher boost %.2f", phrase, existing.from, name, vs.Boost)})
				selected[phrase] = candidate{boost: vs.Boost, from: name}
			}
		}
	}

	if len(selected) > cfg.Vocab.MaxPhrases {
		return nil, nil, fmt.Errorf("vocabulary phrase count %d exceeds vocab.max_phrases=%d", len(selected), cfg.Vocab.MaxPhrases)
	}

	phrases := make([]SpeechPhrase, 0, len(selected))
	for phrase, c := range selected {
		phrases = append(phrases, SpeechPhrase{Phrase: phrase, Boost: float32(c.boost)})
	}
	sort.Slice(phrases, func(i, j int) bool { return phrases[i].Phrase < phrases[j].Phrase })

	return phrases, warnings, nil
}
