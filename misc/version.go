// Package misc keeps program identification in one place.
package misc

import (
	"runtime/debug"
)

// set with -ldflags "-X chunkscan/misc.version=..." during release builds
var (
	version = "dev"
	gitHash = ""
)

const appName = "chunkscan"

// GetAppName returns program name used for logs, reports and temporary files.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns vcs revision program was built from.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				gitHash = s.Value
				return gitHash
			}
		}
	}
	return "unknown"
}
