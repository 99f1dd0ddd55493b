// Package version holds the build-time version variables for the dp binary.
// GoReleaser injects the real values via -ldflags at release time; a binary
// installed with go install falls back to its module version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are overridden by GoReleaser ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Resolved returns Version, or the main module version recorded in the build
// info when no ldflags were injected.
func Resolved() string {
	if Version != "dev" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return Version
}

// Info returns the formatted version string printed by dp version.
func Info() string {
	return fmt.Sprintf(
		"dp version %s\ncommit: %s\nbuilt: %s\ngo: %s %s/%s\n",
		Resolved(),
		Commit,
		Date,
		runtime.Version(), runtime.GOOS, runtime.GOARCH,
	)
}
