package version

import (
	"strings"
	"testing"
)

func TestInfoString(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		want   string
	}{
		{"long commit is shortened", "0123456789abcdef", "(0123456,"},
		{"short commit kept", "abc", "(abc,"},
		{"unset commit", "unknown", "(unknown,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Info{Version: "1.2.0", GitCommit: tt.commit, BuildDate: "today", GoVersion: "go1.24.11", Platform: "linux/arm64"}
			s := info.String()
			if !strings.HasPrefix(s, "blinkd 1.2.0 "+tt.want) {
				t.Errorf("banner = %q", s)
			}
			if !strings.HasSuffix(s, "built today, go1.24.11 linux/arm64)") {
				t.Errorf("banner = %q", s)
			}
		})
	}
}

func TestGetReadsBuildVars(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "9.9.9"

	info := Get()
	if info.Version != "9.9.9" {
		t.Errorf("version = %q", info.Version)
	}
	if info.GoVersion == "" || !strings.Contains(info.Platform, "/") {
		t.Errorf("info = %+v", info)
	}
}
