package version

import "testing"

func restore(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	t.Cleanup(func() {
		Version = origVersion
		GitCommit = origCommit
		BuildTime = origBuildTime
	})
}

func TestVersionNotEmpty(t *testing.T) {
	// "dev" by default; ldflags may override it in CI.
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestFull(t *testing.T) {
	restore(t)

	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		want      string
	}{
		{"version only", "1.2.0", "", "", "1.2.0"},
		{"with commit", "1.2.0", "f00dcafe", "", "1.2.0-f00dcafe"},
		{"with build time", "1.2.0", "", "2026-08-01T00:00:00Z", "1.2.0 (2026-08-01T00:00:00Z)"},
		{"complete", "1.2.0", "f00dcafe", "2026-08-01T00:00:00Z", "1.2.0-f00dcafe (2026-08-01T00:00:00Z)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = tt.version
			GitCommit = tt.commit
			BuildTime = tt.buildTime
			if got := Full(); got != tt.want {
				t.Errorf("Full() = %q, want %q", got, tt.want)
			}
		})
	}
}
