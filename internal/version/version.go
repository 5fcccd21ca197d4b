// Package version holds build identity stamped at link time:
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.0 \
//	    -X .../internal/version.GitSHA=$(git rev-parse --short HEAD) \
//	    -X .../internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped builds identify as "dev".
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"
	// GitSHA is the short commit hash of the build.
	GitSHA = "unknown"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String renders the full build identity on one line.
func String() string {
	return fmt.Sprintf("%s (git %s, built %s)", Version, GitSHA, BuildTime)
}
