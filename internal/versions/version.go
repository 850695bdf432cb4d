// Package versions reports build information of the history sync binary.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const unknown = "unknown"

// Set at build time with -ldflags -X
var (
	Version   = "dev"
	Commit    = unknown
	BuildDate = unknown
)

// VersionInfo describes the running binary
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version of the running binary
func GetVersionInfo() VersionInfo {
	return versionInfo(Version, Commit, BuildDate, readVCS)
}

// readVCS returns the revision and commit time embedded by the go tool
func readVCS() (revision, at string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			at = s.Value
		}
	}
	return revision, at
}

func versionInfo(version, commit, buildDate string, vcs func() (string, string)) VersionInfo {
	if version == "dev" {
		rev, at := vcs()
		if commit == unknown && rev != "" {
			commit = rev
		}
		if buildDate == unknown && at != "" {
			buildDate = at
		}
		version = fmt.Sprintf("build-%.8s", commit)
	}

	if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
		buildDate = t.UTC().Format("2006-01-02 15:04:05 MST")
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
