package driver

import (
	"context"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/lenticularis39/diffkemp/internal/config"
	"github.com/lenticularis39/diffkemp/internal/report"
	"github.com/lenticularis39/diffkemp/internal/trace"
)

// BatchResult is the outcome of a batch. Results follow the order of the
// requested pairs; a failed pair has a nil result and its error in Errs.
type BatchResult struct {
	Results []*Result
	Errs    []error
}

// Failed counts the pairs that ended with an error.
func (b *BatchResult) Failed() int {
	n := 0
	for _, err := range b.Errs {
		if err != nil {
			n++
		}
	}
	return n
}

// Merged joins the reports of every finished pair.
func (b *BatchResult) Merged() *report.Report {
	out := &report.Report{}
	for _, r := range b.Results {
		if r != nil {
			out.Merge(r.Report)
		}
	}
	return out
}

// Batch compares every pair in parallel, at most opts.Config.Jobs at a
// time. Each job loads its own copy of both modules, since inlining
// changes them. A pair that fails does not stop the others; only
// cancellation of ctx does.
func Batch(ctx context.Context, left, right string, pairs []config.FunctionPair, opts Options) (*BatchResult, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "batch", trace.ParentSpan(ctx))
	defer span.End("")
	ctx = trace.WithParent(ctx, span.ID())

	out := &BatchResult{
		Results: make([]*Result, len(pairs)),
		Errs:    make([]error, len(pairs)),
	}
	if len(pairs) == 0 {
		return out, nil
	}
	for _, p := range pairs {
		emit(opts.Sink, Event{Pair: p.String(), Stage: StageLoad, Status: StatusQueued})
	}

	jobs := opts.Config.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(pairs)))
	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Indices are unique per goroutine.
			out.Results[i], out.Errs[i] = Compare(gctx, left, right, p, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	span.WithExtra("failed", strconv.Itoa(out.Failed()))
	return out, nil
}
