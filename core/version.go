package core

import "fmt"

// Version is the application version, set at build time via ldflags:
//
//	go build -ldflags "-X diagramgen/core.Version=$(git describe --tags --always)" .
var Version = "dev"

// BuildTime is the build timestamp, set at build time via ldflags.
var BuildTime = "unknown"

// GitCommit is the git commit hash, set at build time via ldflags.
var GitCommit = "unknown"

// GetVersionInfo returns the one-line version string printed by --version.
func GetVersionInfo() string {
	return fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit)
}
