package build_info

import "fmt"

const (
	DefaultDevVersion = "0.0.0-localdev"
)

// set via ldflags, e.g. -X github.com/opsforge/infragen/internal/build_info.Version=1.2.3
var (
	Version = DefaultDevVersion
	Commit  = "unknown"
	Date    = "unknown"
)

func IsDevBuild() bool {
	return Version == "" || Version == DefaultDevVersion
}

func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", Version, Commit, Date)
}
