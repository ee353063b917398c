package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocaleDefaultsToEnglish(t *testing.T) {
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("fr_FR.UTF-8"))
}

func TestMessagesEnglish(t *testing.T) {
	msg := messagesFor(localeEnglish)
	require.Equal(t, "Recording… speak your answer", msg.recording)
	require.Equal(t, "Scoring your answer…", msg.scoring)
	require.Equal(t, "Interview complete", msg.complete)
}
