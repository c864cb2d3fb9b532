// Package buildinfo carries release metadata injected by the linker, e.g.
//
//	go build -ldflags "-X github.com/m3rciful/sprintbot/core/buildinfo.Version=v1.2.0"
package buildinfo

import "log/slog"

// Overridden at link time; the defaults mark a local build.
var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// Attrs returns the build metadata as log attributes.
func Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("build_version", Version),
		slog.String("build_commit", Commit),
		slog.String("build_time", Date),
	}
}
