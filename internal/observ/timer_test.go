package observ_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/lenticularis39/diffkemp/internal/observ"
)

func TestTimer_Report(t *testing.T) {
	tm := observ.NewTimer()
	if n := len(tm.Report().Phases); n != 0 {
		t.Fatalf("fresh timer has %d phases", n)
	}

	idx := tm.Begin("load")
	tm.End(idx, "2 modules")
	if err := tm.Measure("compare", func() error { return errors.New("boom") }); err == nil {
		t.Fatalf("Measure dropped the phase error")
	}
	tm.End(99, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Name != "load" || r.Phases[0].Note != "2 modules" {
		t.Fatalf("unexpected first phase %+v", r.Phases[0])
	}
	if r.Phases[1].Note != "failed" {
		t.Fatalf("failed phase note = %q", r.Phases[1].Note)
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatalf("total %v shorter than phase %v", r.TotalMS, r.Phases[0].DurationMS)
	}

	s := tm.Summary()
	if !strings.HasPrefix(s, "timings:\n") {
		t.Fatalf("summary header missing: %q", s)
	}
	for _, want := range []string{"// 2 modules", "total"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}
