// Package version holds build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the line printed by `hyrily version`.
func String() string {
	return fmt.Sprintf("hyrily %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}
