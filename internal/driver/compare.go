// Package driver runs the comparison pipeline: load both modules, build
// the analysis tables, compare the requested pair and render the report.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/llir/llvm/ir"

	"github.com/lenticularis39/diffkemp/internal/analysis"
	"github.com/lenticularis39/diffkemp/internal/cache"
	"github.com/lenticularis39/diffkemp/internal/config"
	"github.com/lenticularis39/diffkemp/internal/loader"
	"github.com/lenticularis39/diffkemp/internal/modcmp"
	"github.com/lenticularis39/diffkemp/internal/observ"
	"github.com/lenticularis39/diffkemp/internal/report"
	"github.com/lenticularis39/diffkemp/internal/trace"
)

// Verdict is the outcome of a top-level pair.
type Verdict uint8

const (
	VerdictUnknown Verdict = iota
	VerdictEqual
	VerdictNotEqual
	VerdictInconclusive
)

func (v Verdict) String() string {
	switch v {
	case VerdictEqual:
		return "equal"
	case VerdictNotEqual:
		return "not-equal"
	case VerdictInconclusive:
		return "inconclusive"
	default:
		return "unknown"
	}
}

// Options configures a run.
type Options struct {
	Config config.Config
	// Cache is consulted before and filled after a comparison; nil skips it.
	Cache *cache.Cache
	Sink  ProgressSink
	// Timings enables the per-phase timer.
	Timings bool
}

// Result is the outcome of one pair.
type Result struct {
	Pair    config.FunctionPair
	Verdict Verdict
	Report  *report.Report
	Cached  bool
	Inlined int
	Timings *observ.Report
}

// run tracks the phases of one pair.
type run struct {
	pair  string
	sink  ProgressSink
	timer *observ.Timer
}

type phase struct {
	r       *run
	stage   Stage
	idx     int
	started time.Time
}

func (r *run) begin(stage Stage) phase {
	emit(r.sink, Event{Pair: r.pair, Stage: stage, Status: StatusWorking})
	p := phase{r: r, stage: stage, idx: -1, started: time.Now()}
	if r.timer != nil {
		p.idx = r.timer.Begin(string(stage))
	}
	return p
}

func (p phase) end(note string, err error) {
	if p.r.timer != nil {
		if err != nil && note == "" {
			note = "failed"
		}
		p.r.timer.End(p.idx, note)
	}
	if err != nil {
		emit(p.r.sink, Event{Pair: p.r.pair, Stage: p.stage, Status: StatusError, Err: err, Elapsed: time.Since(p.started)})
	}
}

func (r *run) finish(res *Result) *Result {
	if r.timer != nil {
		rep := r.timer.Report()
		res.Timings = &rep
	}
	emit(r.sink, Event{Pair: r.pair, Stage: StageReport, Status: StatusDone, Verdict: res.Verdict})
	return res
}

// Compare compares pair between the modules at left and right. The tracer
// and parent span come from ctx.
func Compare(ctx context.Context, left, right string, pair config.FunctionPair, opts Options) (res *Result, err error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "compare_pair", trace.ParentSpan(ctx))
	span.WithExtra("pair", pair.String())
	defer func() {
		if err != nil {
			span.End("error: " + err.Error())
			return
		}
		span.End(res.Verdict.String())
	}()
	ctx = trace.WithParent(ctx, span.ID())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := &run{pair: pair.String(), sink: opts.Sink}
	if opts.Timings {
		r.timer = observ.NewTimer()
	}

	ph := r.begin(StageLoad)
	key, cached, err := lookup(opts.Cache, left, right, pair, opts.Config)
	if err != nil {
		ph.end("", err)
		return nil, err
	}
	if cached != nil {
		ph.end("cached", nil)
		span.WithExtra("cached", "true")
		return r.finish(&Result{Pair: pair, Verdict: verdictOf(&cached.Report), Report: &cached.Report, Cached: true}), nil
	}
	ml, mr, err := loader.LoadPair(left, right)
	if err != nil {
		ph.end("", err)
		return nil, err
	}
	fl, err := loader.FindFunction(ml.IR, pair.Left)
	if err != nil {
		err = fmt.Errorf("left module %s: %w", left, err)
		ph.end("", err)
		return nil, err
	}
	fr, err := loader.FindFunction(mr.IR, pair.Right)
	if err != nil {
		err = fmt.Errorf("right module %s: %w", right, err)
		ph.end("", err)
		return nil, err
	}
	ph.end(fmt.Sprintf("funcs=%d/%d", len(ml.IR.Funcs), len(mr.IR.Funcs)), nil)

	return r.compare(ctx, ml, mr, fl, fr, pair, key, opts)
}

func (r *run) compare(ctx context.Context, ml, mr *loader.Module, fl, fr *ir.Func, pair config.FunctionPair, key cache.Key, opts Options) (*Result, error) {
	tracer := trace.FromContext(ctx)
	cfg := opts.Config

	ph := r.begin(StageAnalyse)
	resolver, sl, sr := analysis.Build(ml.IR, mr.IR)
	in := modcmp.Inputs{
		Resolver: resolver,
		Sizes:    [2]analysis.StructSizeTable{sl, sr},
		Layouts:  [2]analysis.Layout{analysis.LayoutOf(ml.IR), analysis.LayoutOf(mr.IR)},
	}
	note := analysis.Describe(resolver, sl, sr)
	trace.Point(tracer, trace.ScopePass, "analyse", note, trace.ParentSpan(ctx))
	ph.end(note, nil)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ph = r.begin(StageCompare)
	mc := modcmp.New(ml.IR, mr.IR, in, modcmp.Options{
		ControlFlowOnly: cfg.ControlFlowOnly,
		AlwaysEqual:     cfg.AlwaysEqual,
		MaxInlineDepth:  cfg.MaxInlineDepth,
		Tracer:          tracer,
		Parent:          trace.ParentSpan(ctx),
	})
	top := mc.Compare(fl, fr)
	inlined := len(mc.InlineLog())
	ph.end(top.Kind.String()+" inlined="+strconv.Itoa(inlined), nil)

	ph = r.begin(StageReport)
	rep, err := report.Build(mc, report.Options{CallStacks: cfg.PrintCallStacks})
	if err == nil && cfg.OutputLLVMIR != "" {
		err = writeSimplified(cfg.OutputLLVMIR, pair, mc)
	}
	if err == nil && opts.Cache != nil {
		err = opts.Cache.Put(key, &cache.Payload{
			Left:   ml.Path,
			Right:  mr.Path,
			Pair:   pair.String(),
			Report: *rep,
		})
	}
	ph.end("", err)
	if err != nil {
		return nil, err
	}

	return r.finish(&Result{Pair: pair, Verdict: verdictOf(rep), Report: rep, Inlined: inlined}), nil
}

func lookup(c *cache.Cache, left, right string, pair config.FunctionPair, cfg config.Config) (cache.Key, *cache.Payload, error) {
	if c == nil {
		return cache.Key{}, nil, nil
	}
	dl, err := loader.FileDigest(left)
	if err != nil {
		return cache.Key{}, nil, err
	}
	dr, err := loader.FileDigest(right)
	if err != nil {
		return cache.Key{}, nil, err
	}
	key := cache.NewKey(dl, dr, pair.String(), cache.Settings{
		ControlFlowOnly: cfg.ControlFlowOnly,
		MaxInlineDepth:  cfg.MaxInlineDepth,
		AlwaysEqual:     cfg.AlwaysEqual,
		CallStacks:      cfg.PrintCallStacks,
	})
	var p cache.Payload
	ok, err := c.Get(key, &p)
	switch {
	case errors.Is(err, cache.ErrSchema):
		// Stale entries are recomputed and overwritten.
		return key, nil, nil
	case err != nil:
		return key, nil, err
	case !ok:
		return key, nil, nil
	}
	return key, &p, nil
}

func verdictOf(r *report.Report) Verdict {
	switch {
	case r.Inconclusive():
		return VerdictInconclusive
	case r.Equal():
		return VerdictEqual
	default:
		return VerdictNotEqual
	}
}

func writeSimplified(dir string, pair config.FunctionPair, mc *modcmp.Comparator) error {
	ml, mr := mc.Modules()
	if err := loader.WriteModule(filepath.Join(dir, pair.Left+"-left.ll"), ml); err != nil {
		return err
	}
	return loader.WriteModule(filepath.Join(dir, pair.Right+"-right.ll"), mr)
}
