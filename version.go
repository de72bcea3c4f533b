package respkv

import "runtime"

// Version is the current version of respkv.
const Version = "0.1.0"

// Set with -ldflags "-X github.com/raniellyferreira/respkv.GitCommit=..."
var (
	GitCommit string
	BuildTime string
)

// VersionInfo returns the version, the Go runtime, and the build metadata
// when it was stamped in
func VersionInfo() map[string]string {
	info := map[string]string{
		"version": Version,
		"go":      runtime.Version(),
	}

	if GitCommit != "" {
		info["commit"] = GitCommit
	}
	if BuildTime != "" {
		info["build_time"] = BuildTime
	}

	return info
}
