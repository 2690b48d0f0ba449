package trace_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/lenticularis39/diffkemp/internal/trace"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "phase", "detail", "debug"} {
		l, err := trace.ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if l.String() != s {
			t.Fatalf("level %q round-trips as %q", s, l.String())
		}
	}
	if _, err := trace.ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestShouldEmit(t *testing.T) {
	cases := []struct {
		level trace.Level
		scope trace.Scope
		want  bool
	}{
		{trace.LevelPhase, trace.ScopePass, true},
		{trace.LevelPhase, trace.ScopeModule, false},
		{trace.LevelDetail, trace.ScopeModule, true},
		{trace.LevelDetail, trace.ScopeNode, false},
		{trace.LevelDebug, trace.ScopeNode, true},
		{trace.LevelOff, trace.ScopeDriver, false},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Fatalf("%v.ShouldEmit(%v) = %v", tc.level, tc.scope, got)
		}
	}
}

func TestStreamTracer_Text(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelDetail, trace.FormatText)

	root := trace.Begin(tr, trace.ScopePass, "compare", 0)
	pair := trace.Begin(tr, trace.ScopeModule, "pair:foo", root.ID())
	trace.Point(tr, trace.ScopeNode, "inline", "filtered out", pair.ID())
	pair.WithExtra("verdict", "equal").WithExtra("attempts", "1").End("")
	root.End("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	want := []string{"→ compare", "  → pair:foo", "← pair:foo {attempts=1, verdict=equal}", "← compare (done)"}
	for i, w := range want {
		if !strings.Contains(lines[i], w) {
			t.Fatalf("line %d = %q, want it to contain %q", i, lines[i], w)
		}
	}
}

func TestStreamTracer_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelDebug, trace.FormatNDJSON)
	trace.Point(tr, trace.ScopeNode, "missing-def", "@foo", 7)

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if ev["kind"] != "point" || ev["scope"] != "node" || ev["detail"] != "@foo" {
		t.Fatalf("unexpected event %v", ev)
	}
	if ev["parent_id"] != float64(7) {
		t.Fatalf("parent_id = %v", ev["parent_id"])
	}
}

func TestRingTracer_Wraps(t *testing.T) {
	r := trace.NewRingTracer(3, trace.LevelDebug)
	for _, name := range []string{"a", "b", "c", "d"} {
		trace.Point(r, trace.ScopeNode, name, "", 0)
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	if got := snap[0].Name + snap[1].Name + snap[2].Name; got != "bcd" {
		t.Fatalf("ring kept %q, want oldest dropped", got)
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf, trace.FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Fatalf("dump wrote %d lines", n)
	}
}

func TestNew(t *testing.T) {
	tr, err := trace.New(trace.Config{Level: trace.LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Fatalf("off tracer reports enabled")
	}

	var buf bytes.Buffer
	tr, err = trace.New(trace.Config{Level: trace.LevelPhase, Mode: trace.ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	multi, ok := tr.(*trace.MultiTracer)
	if !ok {
		t.Fatalf("ModeBoth built %T", tr)
	}
	trace.Begin(tr, trace.ScopeDriver, "run", 0).End("")
	if n := len(multi.Ring().Snapshot()); n != 2 {
		t.Fatalf("ring holds %d events, want 2", n)
	}
	if buf.Len() == 0 {
		t.Fatalf("stream output empty")
	}
}

func TestHeartbeat(t *testing.T) {
	r := trace.NewRingTracer(16, trace.LevelPhase)
	h := trace.StartHeartbeat(r, time.Millisecond)
	if h == nil {
		t.Fatalf("heartbeat not started")
	}
	deadline := time.Now().Add(time.Second)
	for len(r.Snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no heartbeat within a second")
		}
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	if k := r.Snapshot()[0].Kind; k != trace.KindHeartbeat {
		t.Fatalf("first event kind = %v", k)
	}

	if trace.StartHeartbeat(trace.Nop, time.Millisecond) != nil {
		t.Fatalf("nop tracer should not start a heartbeat")
	}
}
