package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	question  string
	recording string
	stopped   string
	scoring   string
	scored    string
	skipped   string
	countdown string
	cancelled string
	complete  string
}

func messagesFromEnv() messages {
	return messagesFor(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func messagesFor(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			question:  "Question",
			recording: "Recording… speak your answer",
			stopped:   "Recording stopped",
			scoring:   "Scoring your answer…",
			scored:    "Score",
			skipped:   "Skipped",
			countdown: "remaining",
			cancelled: "Interview cancelled",
			complete:  "Interview complete",
		}
	}
}
