package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func buildInfo(mainVersion string, settings ...string) *debug.BuildInfo {
	info := &debug.BuildInfo{Main: debug.Module{Version: mainVersion}}
	for i := 0; i+1 < len(settings); i += 2 {
		info.Settings = append(info.Settings, debug.BuildSetting{Key: settings[i], Value: settings[i+1]})
	}
	return info
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		info        *debug.BuildInfo
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "ldflags win",
			version:     "v1.0.0",
			commit:      "abc1234",
			info:        buildInfo("v0.9.0", "vcs.revision", "ffffffffffff"),
			wantVersion: "v1.0.0",
			wantCommit:  "abc1234",
		},
		{
			name:        "no build info",
			wantVersion: "dev",
			wantCommit:  "unknown",
		},
		{
			name:        "module version",
			info:        buildInfo("v0.2.1"),
			wantVersion: "v0.2.1",
			wantCommit:  "unknown",
		},
		{
			name: "vcs dirty",
			info: buildInfo("(devel)",
				"vcs.revision", "0123456789abcdef",
				"vcs.modified", "true",
				"vcs.time", "2024-05-01T10:00:00Z"),
			wantVersion: "dev-20240501",
			wantCommit:  "0123456-dirty",
		},
		{
			name:        "short revision",
			info:        buildInfo("(devel)", "vcs.revision", "abc"),
			wantVersion: "dev",
			wantCommit:  "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotVersion, gotCommit := resolve(tt.version, tt.commit, tt.info)
			if gotVersion != tt.wantVersion || gotCommit != tt.wantCommit {
				t.Errorf("resolve() = %q, %q, want %q, %q", gotVersion, gotCommit, tt.wantVersion, tt.wantCommit)
			}
		})
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version || info.Commit != Commit {
		t.Errorf("Get() = %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("Platform = %q", info.Platform)
	}
	if !strings.Contains(Full(), "commit: "+Commit) {
		t.Errorf("Full() = %q", Full())
	}
}
