package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	saved := [3]string{Version, Commit, Date}
	t.Cleanup(func() { Version, Commit, Date = saved[0], saved[1], saved[2] })

	Version, Commit, Date = "0.4.0", "9f1c2e7", "2026-10-01"
	require.Equal(t, "hyrily 0.4.0 (commit=9f1c2e7, date=2026-10-01, go="+runtime.Version()+")", String())
}
