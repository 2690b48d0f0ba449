package driver_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenticularis39/diffkemp/internal/cache"
	"github.com/lenticularis39/diffkemp/internal/config"
	"github.com/lenticularis39/diffkemp/internal/driver"
	"github.com/lenticularis39/diffkemp/internal/loader"
	"github.com/lenticularis39/diffkemp/internal/trace"
)

const moduleTemplate = `define i32 @helper() {
entry:
  ret i32 %s
}

define i32 @main() {
entry:
  %%r = call i32 @helper()
  ret i32 %%r
}

define i32 @same(i32 %%x) {
entry:
  %%y = add i32 %%x, 1
  ret i32 %%y
}
`

func writeModules(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	left := filepath.Join(dir, "left.ll")
	right := filepath.Join(dir, "right.ll")
	require.NoError(t, os.WriteFile(left, []byte(fmt.Sprintf(moduleTemplate, "1")), 0o600))
	require.NoError(t, os.WriteFile(right, []byte(fmt.Sprintf(moduleTemplate, "2")), 0o600))
	return left, right
}

func pair(t *testing.T, s string) config.FunctionPair {
	t.Helper()
	p, err := config.ParsePair(s)
	require.NoError(t, err)
	return p
}

func TestCompare_Verdicts(t *testing.T) {
	left, right := writeModules(t)
	opts := driver.Options{Config: config.Default(), Timings: true}
	ctx := context.Background()

	res, err := driver.Compare(ctx, left, right, pair(t, "main"), opts)
	require.NoError(t, err)
	assert.Equal(t, driver.VerdictNotEqual, res.Verdict)
	require.Len(t, res.Report.DiffFunctions, 1)
	assert.Equal(t, "helper", res.Report.DiffFunctions[0].First.Function)
	require.NotNil(t, res.Timings)
	assert.Len(t, res.Timings.Phases, 4)

	res, err = driver.Compare(ctx, left, right, pair(t, "same"), opts)
	require.NoError(t, err)
	assert.Equal(t, driver.VerdictEqual, res.Verdict)
	assert.True(t, res.Report.Equal())
}

func TestCompare_MissingFunction(t *testing.T) {
	left, right := writeModules(t)
	_, err := driver.Compare(context.Background(), left, right, pair(t, "nope"), driver.Options{Config: config.Default()})
	assert.True(t, errors.Is(err, loader.ErrFunctionNotFound))
}

func TestCompare_Cache(t *testing.T) {
	left, right := writeModules(t)
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	opts := driver.Options{Config: config.Default(), Cache: c}

	first, err := driver.Compare(context.Background(), left, right, pair(t, "main"), opts)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := driver.Compare(context.Background(), left, right, pair(t, "main"), opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.Report.DiffFunctions, second.Report.DiffFunctions)
}

func TestCompare_CacheKeyedBySettings(t *testing.T) {
	left, right := writeModules(t)
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := driver.Compare(ctx, left, right, pair(t, "main"), driver.Options{Config: config.Default(), Cache: c})
	require.NoError(t, err)
	assert.Equal(t, driver.VerdictNotEqual, first.Verdict)

	cfg := config.Default()
	cfg.AlwaysEqual = append(cfg.AlwaysEqual, "helper")
	res, err := driver.Compare(ctx, left, right, pair(t, "main"), driver.Options{Config: cfg, Cache: c})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, driver.VerdictEqual, res.Verdict)

	cfg = config.Default()
	cfg.PrintCallStacks = false
	res, err = driver.Compare(ctx, left, right, pair(t, "main"), driver.Options{Config: cfg, Cache: c})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	require.Len(t, res.Report.DiffFunctions, 1)
	assert.Empty(t, res.Report.DiffFunctions[0].First.CallStack)
}

func TestCompare_OutputLLVMIR(t *testing.T) {
	left, right := writeModules(t)
	cfg := config.Default()
	cfg.OutputLLVMIR = t.TempDir()

	_, err := driver.Compare(context.Background(), left, right, pair(t, "main"), driver.Options{Config: cfg})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.OutputLLVMIR, "main-left.ll"))
	assert.FileExists(t, filepath.Join(cfg.OutputLLVMIR, "main-right.ll"))
}

func TestCompare_Traced(t *testing.T) {
	left, right := writeModules(t)
	ring := trace.NewRingTracer(256, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)

	_, err := driver.Compare(ctx, left, right, pair(t, "main"), driver.Options{Config: config.Default()})
	require.NoError(t, err)

	scopes := map[trace.Scope]bool{}
	for _, ev := range ring.Snapshot() {
		scopes[ev.Scope] = true
	}
	assert.True(t, scopes[trace.ScopePass])
	assert.True(t, scopes[trace.ScopeModule])
}

func TestBatch(t *testing.T) {
	left, right := writeModules(t)
	cfg := config.Default()
	cfg.Jobs = 2

	var (
		mu   sync.Mutex
		last = map[string]driver.Event{}
	)
	sink := driver.SinkFunc(func(ev driver.Event) {
		mu.Lock()
		defer mu.Unlock()
		last[ev.Pair] = ev
	})

	pairs := []config.FunctionPair{pair(t, "main"), pair(t, "same"), pair(t, "nope")}
	out, err := driver.Batch(context.Background(), left, right, pairs, driver.Options{Config: cfg, Sink: sink})
	require.NoError(t, err)

	require.NotNil(t, out.Results[0])
	assert.Equal(t, driver.VerdictNotEqual, out.Results[0].Verdict)
	require.NotNil(t, out.Results[1])
	assert.Equal(t, driver.VerdictEqual, out.Results[1].Verdict)
	assert.Nil(t, out.Results[2])
	assert.Error(t, out.Errs[2])
	assert.Equal(t, 1, out.Failed())
	assert.Len(t, out.Merged().DiffFunctions, 1)

	assert.Equal(t, driver.StatusDone, last["same"].Status)
	assert.Equal(t, driver.VerdictEqual, last["same"].Verdict)
	assert.Equal(t, driver.StatusError, last["nope"].Status)
}

func TestBatch_Cancelled(t *testing.T) {
	left, right := writeModules(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := driver.Batch(ctx, left, right, []config.FunctionPair{pair(t, "main")}, driver.Options{Config: config.Default()})
	assert.ErrorIs(t, err, context.Canceled)
}
