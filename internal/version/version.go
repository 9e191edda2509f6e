// Package version holds build metadata stamped in at link time via
// -ldflags "-X github.com/chalkline-data/edufinance.report/internal/version.Version=...".
package version

var (
	// Version is the release tag or "dev" for local builds.
	Version = "dev"

	// GitSHA is the short commit hash of the build.
	GitSHA = "unknown"

	// BuildTime is the UTC build timestamp in RFC 3339 form.
	BuildTime = "unknown"
)

// Info is the JSON shape served by the version endpoint.
type Info struct {
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha"`
	BuildTime string `json:"build_time"`
}

// Get returns the stamped build metadata.
func Get() Info {
	return Info{Version: Version, GitSHA: GitSHA, BuildTime: BuildTime}
}
