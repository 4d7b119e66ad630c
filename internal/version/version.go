// Package version holds build metadata injected via ldflags:
//
//	-X github.com/kailas-cloud/crossref/internal/version.Version=v1.2.0
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for --version and the startup log.
func String() string {
	if Commit == "unknown" {
		return Version
	}
	short := Commit
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, short, Date)
}
