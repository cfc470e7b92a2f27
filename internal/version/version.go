// Package version holds build metadata, set at build time with
// -ldflags "-X github.com/kailas-cloud/vecquiz/internal/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
