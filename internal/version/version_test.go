package version_test

import (
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/lenticularis39/diffkemp/internal/version"
)

func override(t *testing.T, v, commit, date string) {
	t.Helper()
	ov, oc, od, nc := version.Version, version.GitCommit, version.BuildDate, color.NoColor
	version.Version, version.GitCommit, version.BuildDate = v, commit, date
	color.NoColor = true
	t.Cleanup(func() {
		version.Version, version.GitCommit, version.BuildDate, color.NoColor = ov, oc, od, nc
	})
}

func TestString(t *testing.T) {
	cases := []struct {
		version, commit, date string
		want                  string
	}{
		{"0.1.0-dev", "", "", "diffkemp 0.1.0-dev"},
		{"1.2.3", "abc123", "", "diffkemp 1.2.3 (abc123)"},
		{"1.2.3-rc.1", "abc123", "2026-01-15", "diffkemp 1.2.3-rc.1 (abc123) built 2026-01-15"},
		{"weird", "", "", "diffkemp weird"},
	}
	for _, tc := range cases {
		override(t, tc.version, tc.commit, tc.date)
		if got := version.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestColored(t *testing.T) {
	override(t, "1.2.3", "", "")
	color.NoColor = false
	got := version.Colored()
	if got == "1.2.3" {
		t.Fatalf("expected escape codes around version")
	}
	if !strings.Contains(got, "1") {
		t.Fatalf("colored version %q lost its digits", got)
	}
}
