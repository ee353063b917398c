// Package config resolves, parses, validates, and defaults hyrily configuration.
package config

// Config is the fully materialized runtime configuration used by hyrily.
type Config struct {
	Interview InterviewConfig
	Speech    SpeechConfig
	Voice     VoiceConfig
	AI        AIConfig
	Store     StoreConfig
	Company   CompanyConfig
	Cues      CuesConfig
	Vocab     VocabConfig

	// Secrets is populated from the environment, never from the config file.
	Secrets Secrets
}

// InterviewConfig shapes a practice session.
type InterviewConfig struct {
	Modality               string
	Timing                 string
	Stack                  string
	Bank                   string
	Questions              int
	QuestionSeconds        int
	SessionMinutes         int
	QuietMS                int
	AdvanceMS              int
	EvaluateTimeoutSeconds int
	SkipPolicy             string
	FallbackScore          float64
}

// SpeechConfig controls the recognizer and microphone selection.
type SpeechConfig struct {
	Enable   bool
	Language string
	Input    string
	Fallback string
}

// VoiceConfig controls synthesized question playback.
type VoiceConfig struct {
	Enable       bool
	Language     string
	Name         string
	SpeakingRate float64
}

// AIConfig selects the evaluator and question generator.
type AIConfig struct {
	Provider          string
	Model             string
	BaseURL           string
	Evaluator         string
	GenerateQuestions bool
}

// StoreConfig selects the session store backend.
type StoreConfig struct {
	Backend string
	Path    string
}

// CompanyConfig holds campaign defaults.
type CompanyConfig struct {
	Candidates  int
	SelectCount int
	Questions   int
	JoinBaseURL string
}

// CuesConfig controls audio cues around recording.
type CuesConfig struct {
	Enable       bool
	StartFile    string
	StopFile     string
	CompleteFile string
	CancelFile   string
}

// VocabConfig controls enabled recognition phrase sets and dedupe limits.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group with a shared boost value.
type VocabSet struct {
	Name    string
	Boost   float64
	Phrases []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// SpeechPhrase is the normalized phrase payload sent to the recognizer.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderRemote = "remote"
	ProviderNone   = "none"

	BackendFiles    = "files"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)
