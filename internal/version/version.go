package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/hisense/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/hisense/internal/version.Commit=abc123"
//
// Unset values come from the embedded VCS info, or fall back to "dev".
var (
	// Version is the semantic version of the application
	Version = ""
	// Commit is the git commit hash
	Commit = ""
	// BuildTime is the VCS commit time, when known
	BuildTime = ""
)

func init() {
	if Version == "" || Commit == "" {
		populateFromBuildInfo()
	}

	if Version == "" {
		Version = fmt.Sprintf("dev-%s", time.Now().Format("20060102-150405"))
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// populateFromBuildInfo reads vcs.* settings stamped by the go command
func populateFromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if Commit == "" {
		Commit = shortCommit(settings["vcs.revision"], settings["vcs.modified"] == "true")
	}

	if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
		if BuildTime == "" {
			BuildTime = t.UTC().Format(time.RFC3339)
		}
		if Version == "" {
			Version = fmt.Sprintf("dev-%s", t.Format("20060102"))
		}
	}
}

func shortCommit(revision string, dirty bool) string {
	if revision == "" {
		return ""
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Info returns the version details reported by the bridge health endpoint
func Info() map[string]string {
	info := map[string]string{
		"version": Version,
		"commit":  Commit,
		"go":      runtime.Version(),
	}
	if BuildTime != "" {
		info["build_time"] = BuildTime
	}
	return info
}
