// Package version reports the build identity of genius-monitor.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/hmbacher/genius-gateway/internal/version.Version=v0.3.0 \
//	                   -X github.com/hmbacher/genius-gateway/internal/version.Commit=abc1234"
//
// Missing values are filled from the embedded VCS info, then from "dev".
var (
	Version = ""
	Commit  = ""
)

// Info is the resolved build identity.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Dirty     bool   `json:"dirty,omitempty" yaml:"dirty,omitempty"`
	BuiltAt   string `json:"built_at,omitempty" yaml:"built_at,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info)
}

// vcs holds the vcs.* build settings.
type vcs struct {
	revision string
	modified bool
	time     time.Time
}

func readVCS(info *debug.BuildInfo) vcs {
	var v vcs
	if info == nil {
		return v
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.revision = setting.Value
		case "vcs.modified":
			v.modified = setting.Value == "true"
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				v.time = t
			}
		}
	}
	return v
}

// resolve fills empty version and commit values from build info.
func resolve(version, commit string, info *debug.BuildInfo) (string, string) {
	v := readVCS(info)

	if commit == "" && v.revision != "" {
		commit = v.revision
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if v.modified {
			commit += "-dirty"
		}
	}
	if version == "" && info != nil && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	if version == "" && !v.time.IsZero() {
		version = "dev-" + v.time.UTC().Format("20060102")
	}

	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	return version, commit
}

// Get returns the build identity of the running binary.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		v := readVCS(bi)
		info.Dirty = v.modified
		if !v.time.IsZero() {
			info.BuiltAt = v.time.UTC().Format(time.RFC3339)
		}
	}
	return info
}

// Full returns the version string including the commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
