package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Interview: InterviewConfig{
			Modality:               "typed",
			Timing:                 "untimed",
			Stack:                  "general",
			Questions:              5,
			QuestionSeconds:        60,
			QuietMS:                2000,
			EvaluateTimeoutSeconds: 30,
			SkipPolicy:             "include_skipped",
			FallbackScore:          3,
		},
		Speech: SpeechConfig{
			Enable:   true,
			Language: "en-US",
			Input:    "default",
			Fallback: "default",
		},
		Voice: VoiceConfig{
			Enable:       true,
			Language:     "en-US",
			SpeakingRate: 0.9,
		},
		AI: AIConfig{
			Provider:          ProviderGemini,
			GenerateQuestions: true,
		},
		Store: StoreConfig{Backend: BackendFiles},
		Company: CompanyConfig{
			Candidates:  5,
			SelectCount: 2,
			Questions:   5,
			JoinBaseURL: "http://localhost:3000",
		},
		Cues: CuesConfig{Enable: true},
		Vocab: VocabConfig{
			Sets:       map[string]VocabSet{},
			MaxPhrases: 1024,
		},
	}
}
