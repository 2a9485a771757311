// Package misc provides program identification helpers.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "novel"

var (
	once    sync.Once
	version = "unknown"
	gitHash = "unknown"
)

func readBuildInfo() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if len(bi.Main.Version) != 0 && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) != 0 {
			gitHash = s.Value
		}
	}
}

// GetAppName returns short program name used for logs, temp files and reports.
func GetAppName() string {
	return appName
}

// GetVersion returns module version as recorded by the build system.
func GetVersion() string {
	once.Do(readBuildInfo)
	return version
}

// GetGitHash returns VCS revision the program was built from.
func GetGitHash() string {
	once.Do(readBuildInfo)
	return gitHash
}
