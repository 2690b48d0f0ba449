// Package modcmp drives function-pair comparisons across a module pair.
//
// A Comparator owns the memo of compared pairs, the call stacks leading to
// each pair, the inline log and the list of globals defined on one side
// only. Nested pairs are compared synchronously when first reached; a pair
// that is still in progress is assumed equal by anything reaching it again.
package modcmp

import (
	"fmt"
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"github.com/lenticularis39/diffkemp/internal/analysis"
	"github.com/lenticularis39/diffkemp/internal/debuginfo"
	"github.com/lenticularis39/diffkemp/internal/funccmp"
	"github.com/lenticularis39/diffkemp/internal/irutil"
	"github.com/lenticularis39/diffkemp/internal/ledger"
	"github.com/lenticularis39/diffkemp/internal/trace"
)

// DefaultMaxInlineDepth bounds inline retries of one pair.
const DefaultMaxInlineDepth = 16

// Options configures a Comparator.
type Options struct {
	ControlFlowOnly bool
	// AlwaysEqual lists function names whose calls are equal without
	// recursion. Names are compared after suffix stripping.
	AlwaysEqual    []string
	MaxInlineDepth int
	Tracer         trace.Tracer
	// Parent is the trace span the per-pair spans hang under.
	Parent uint64
}

// Inputs are the read-only tables shared by every comparison.
type Inputs struct {
	Resolver *debuginfo.Resolver
	Sizes    [2]analysis.StructSizeTable
	Layouts  [2]analysis.Layout
}

// Kind is the memoized verdict of a pair.
type Kind uint8

const (
	Pending Kind = iota
	Equal
	NotEqual
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Equal:
		return "equal"
	case NotEqual:
		return "not-equal"
	default:
		return "unknown"
	}
}

// Frame is one call site on the way from a top-level pair.
type Frame struct {
	Function string
	File     string
	Line     int64
}

func (f Frame) String() string {
	if f.File == "" {
		return f.Function
	}
	return f.Function + " at " + f.File + ":" + strconv.FormatInt(f.Line, 10)
}

// CallStack lists frames outermost first.
type CallStack []Frame

func (s CallStack) push(f Frame) CallStack {
	out := make(CallStack, len(s), len(s)+1)
	copy(out, s)
	return append(out, f)
}

// Function identifies one side of a pair.
type Function struct {
	Name      string
	File      string
	CallStack CallStack
}

// Result is the verdict of a pair together with where it was first met.
type Result struct {
	Kind  Kind
	First Function
	// Second is the right-hand function.
	Second Function
	// Inconclusive is set when inlining gave up before a verdict.
	Inconclusive bool
	// Attempts counts the inline retries of the pair.
	Attempts int
}

// Pair keys the memo.
type Pair struct {
	Left, Right *ir.Func
}

// MissingDef names a global defined on one side only. The name is set on
// the side that lacks the definition.
type MissingDef struct {
	First, Second string
}

// InlineEntry records one inline request of the named pair.
type InlineEntry struct {
	First, Second string
	// Left and Right are the inlined callees, "" for a side left alone.
	Left, Right string
	Attempt     int
}

// Comparator compares function pairs of a module pair. It is not safe for
// concurrent use.
type Comparator struct {
	left, right *ir.Module
	in          Inputs
	opts        Options
	always      map[string]bool

	memo    map[Pair]*Result
	order   []*Result
	missing []MissingDef
	seen    map[MissingDef]bool
	inlines []InlineEntry
	tags    int

	stack  [2]CallStack
	parent uint64
}

// New prepares a comparator over the given modules.
func New(left, right *ir.Module, in Inputs, opts Options) *Comparator {
	if opts.MaxInlineDepth <= 0 {
		opts.MaxInlineDepth = DefaultMaxInlineDepth
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	always := make(map[string]bool, len(opts.AlwaysEqual))
	for _, n := range opts.AlwaysEqual {
		always[irutil.CanonicalName(n)] = true
	}
	return &Comparator{
		left:   left,
		right:  right,
		in:     in,
		opts:   opts,
		always: always,
		memo:   make(map[Pair]*Result),
		seen:   make(map[MissingDef]bool),
		parent: opts.Parent,
	}
}

// Modules returns the compared modules, changed in place by inlining.
func (m *Comparator) Modules() (left, right *ir.Module) {
	return m.left, m.right
}

// Compare compares a top-level pair. A pair already compared returns its
// memoized result.
func (m *Comparator) Compare(left, right *ir.Func) *Result {
	saved := m.stack
	m.stack = [2]CallStack{}
	defer func() { m.stack = saved }()
	return m.compare(left, right)
}

// Lookup returns the memoized result of a pair.
func (m *Comparator) Lookup(left, right *ir.Func) (*Result, bool) {
	res, ok := m.memo[Pair{left, right}]
	return res, ok
}

// Differences returns every non-equal pair in discovery order.
func (m *Comparator) Differences() []*Result {
	var out []*Result
	for _, res := range m.order {
		if res.Kind == NotEqual {
			out = append(out, res)
		}
	}
	return out
}

// MissingDefs returns the globals defined on one side only.
func (m *Comparator) MissingDefs() []MissingDef {
	return append([]MissingDef(nil), m.missing...)
}

// InlineLog returns every inline request in order.
func (m *Comparator) InlineLog() []InlineEntry {
	return append([]InlineEntry(nil), m.inlines...)
}

// AlwaysEqual implements funccmp.Host.
func (m *Comparator) AlwaysEqual(name string) bool {
	return m.always[irutil.CanonicalName(name)]
}

// CompareNested implements funccmp.Host. The nested pair is compared now
// unless it is memoized; its verdict does not change the caller's.
func (m *Comparator) CompareNested(left, right *ir.Func, siteL, siteR *ir.InstCall) {
	saved := m.stack
	m.stack = [2]CallStack{
		saved[ledger.Left].push(frameOf(left, siteL)),
		saved[ledger.Right].push(frameOf(right, siteR)),
	}
	defer func() { m.stack = saved }()
	m.compare(left, right)
}

// RecordMissing implements funccmp.Host.
func (m *Comparator) RecordMissing(left, right value.Value) {
	var d MissingDef
	if !defined(left) {
		d.First = irutil.Name(left)
	}
	if !defined(right) {
		d.Second = irutil.Name(right)
	}
	if d == (MissingDef{}) || m.seen[d] {
		return
	}
	m.seen[d] = true
	m.missing = append(m.missing, d)
	trace.Point(m.opts.Tracer, trace.ScopeNode, "missing-def", d.First+"|"+d.Second, m.parent)
}

func (m *Comparator) compare(l, r *ir.Func) *Result {
	key := Pair{l, r}
	if res, ok := m.memo[key]; ok {
		return res
	}
	res := &Result{
		Kind:   Pending,
		First:  function(l, m.stack[ledger.Left]),
		Second: function(r, m.stack[ledger.Right]),
	}
	m.memo[key] = res
	m.order = append(m.order, res)

	span := trace.Begin(m.opts.Tracer, trace.ScopeModule, res.First.Name, m.parent)
	outer := m.parent
	m.parent = span.ID()
	defer func() {
		m.parent = outer
		span.WithExtra("attempts", strconv.Itoa(res.Attempts))
		if res.Inconclusive {
			span.WithExtra("inconclusive", "true")
		}
		span.End(res.Kind.String())
	}()

	for {
		fc := funccmp.New(l, r, m.env())
		fc.Compare()
		switch fc.State() {
		case funccmp.StateEqual:
			res.Kind = Equal
			return res
		case funccmp.StateInlineRequested:
		default:
			res.Kind = NotEqual
			return res
		}

		if res.Attempts >= m.opts.MaxInlineDepth {
			res.Kind = NotEqual
			res.Inconclusive = true
			return res
		}
		res.Attempts++
		req := fc.InlineRequest()
		m.inlines = append(m.inlines, InlineEntry{
			First:   res.First.Name,
			Second:  res.Second.Name,
			Left:    calleeName(req.Left),
			Right:   calleeName(req.Right),
			Attempt: res.Attempts,
		})
		trace.Point(m.opts.Tracer, trace.ScopeNode, "inline",
			fmt.Sprintf("%s|%s", calleeName(req.Left), calleeName(req.Right)), m.parent)
		if err := m.inline(l, r, req); err != nil {
			trace.Point(m.opts.Tracer, trace.ScopeNode, "inline-failed", err.Error(), m.parent)
			res.Kind = NotEqual
			return res
		}
	}
}

func (m *Comparator) inline(l, r *ir.Func, req funccmp.InlineRequest) error {
	if req.Left != nil {
		m.tags++
		if err := irutil.InlineCall(l, req.Left, "inl"+strconv.Itoa(m.tags)); err != nil {
			return err
		}
	}
	if req.Right != nil {
		m.tags++
		if err := irutil.InlineCall(r, req.Right, "inl"+strconv.Itoa(m.tags)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Comparator) env() funccmp.Env {
	return funccmp.Env{
		Resolver:        m.in.Resolver,
		Sizes:           m.in.Sizes,
		Layouts:         m.in.Layouts,
		Host:            m,
		ControlFlowOnly: m.opts.ControlFlowOnly,
	}
}

func function(f *ir.Func, stack CallStack) Function {
	return Function{
		Name:      f.Name(),
		File:      debuginfo.FuncFile(f),
		CallStack: stack,
	}
}

func frameOf(callee *ir.Func, site *ir.InstCall) Frame {
	fr := Frame{Function: callee.Name()}
	if site == nil {
		fr.File = debuginfo.FuncFile(callee)
		fr.Line = debuginfo.FuncLine(callee)
		return fr
	}
	if loc, ok := debuginfo.InstLocation(site); ok {
		fr.File, fr.Line = loc.File, loc.Line
	}
	return fr
}

func calleeName(call *ir.InstCall) string {
	if call == nil {
		return ""
	}
	return irutil.CalleeName(call)
}

func defined(v value.Value) bool {
	switch v := v.(type) {
	case *ir.Func:
		return !irutil.IsDeclaration(v)
	case *ir.Global:
		return v.Init != nil
	default:
		return true
	}
}
