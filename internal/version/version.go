// Package version carries build metadata set through ldflags.
package version

import (
	"fmt"
	"runtime"
)

const Name = "nudge"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the short form used in the CLI and the HTTP health payload.
func String() string {
	return fmt.Sprintf("%s %s", Name, Version)
}

// Info adds commit, build date and platform.
func Info() string {
	if Version == "dev" {
		return fmt.Sprintf("%s dev (%s/%s)", Name, runtime.GOOS, runtime.GOARCH)
	}
	return fmt.Sprintf("%s %s (commit %s, built %s, %s/%s)",
		Name, Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
