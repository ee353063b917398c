package capture

import "strings"

// appendFinal adds a confirmed segment to the accumulated finals. Recognizers
// deliver each final once, so a repeat is new speech and is kept.
func appendFinal(finals []string, text string) []string {
	if text = normalize(text); text != "" {
		finals = append(finals, text)
	}
	return finals
}

func joinText(parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part = normalize(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

func normalize(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
