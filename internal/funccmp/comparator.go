// Package funccmp compares two versions of one function structurally.
//
// Every comparison returns a signed result: 0 when both sides are
// equivalent, 1 when the left side has something extra, -1 when the right
// side does. The sign tells the module comparator on which side inlining
// may reconcile the difference. Swapping the arguments negates the result.
package funccmp

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"github.com/lenticularis39/diffkemp/internal/analysis"
	"github.com/lenticularis39/diffkemp/internal/debuginfo"
	"github.com/lenticularis39/diffkemp/internal/irutil"
	"github.com/lenticularis39/diffkemp/internal/ledger"
)

// FieldAccessPrefix names the functions an upstream pass extracts from
// field-access chains.
const FieldAccessPrefix = "simpll__fieldaccess"

// State is the progress of one function-pair comparison.
type State uint8

const (
	StateStart State = iota
	StateSignatureCompare
	StateBodyCompare
	StateEqual
	StateNotEqual
	StateInlineRequested
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateSignatureCompare:
		return "signature"
	case StateBodyCompare:
		return "body"
	case StateEqual:
		return "equal"
	case StateNotEqual:
		return "not-equal"
	case StateInlineRequested:
		return "inline-requested"
	default:
		return "unknown"
	}
}

// InlineRequest names the call sites whose callees must be inlined before
// the comparison can proceed. A nil side means that side is not inlined.
type InlineRequest struct {
	Left, Right *ir.InstCall
}

// Empty reports whether nothing was requested.
func (r InlineRequest) Empty() bool {
	return r.Left == nil && r.Right == nil
}

// OneSided reports whether exactly one side is to be inlined.
func (r InlineRequest) OneSided() bool {
	return (r.Left == nil) != (r.Right == nil)
}

// Host is the view of the module comparator a function comparison needs.
type Host interface {
	// AlwaysEqual reports whether calls to name are equal without recursion.
	AlwaysEqual(name string) bool
	// CompareNested compares (or schedules) a nested function pair reached
	// through the given call sites, which may be nil.
	CompareNested(left, right *ir.Func, siteL, siteR *ir.InstCall)
	// RecordMissing notes a global defined on one side only.
	RecordMissing(left, right value.Value)
}

type nopHost struct{}

func (nopHost) AlwaysEqual(string) bool                        { return false }
func (nopHost) CompareNested(_, _ *ir.Func, _, _ *ir.InstCall) {}
func (nopHost) RecordMissing(_, _ value.Value)                 {}

// Env is the read-only context shared by all comparisons of a module pair.
type Env struct {
	Resolver        *debuginfo.Resolver
	Sizes           [2]analysis.StructSizeTable
	Layouts         [2]analysis.Layout
	Host            Host
	ControlFlowOnly bool
}

// Comparator compares one function pair. It is not safe for concurrent use.
type Comparator struct {
	fn      [2]*ir.Func
	env     Env
	sn      *ledger.Ledger
	index   [2]*irutil.Index
	aux     map[*ir.Func]*irutil.Index
	inline  InlineRequest
	state   State
	site    [2]*ir.InstCall
	globals map[[2]value.Value]bool
}

// New prepares a comparison of left against right.
func New(left, right *ir.Func, env Env) *Comparator {
	if env.Host == nil {
		env.Host = nopHost{}
	}
	if env.Resolver == nil {
		env.Resolver = debuginfo.NewResolver(nil, nil)
	}
	for i := range env.Layouts {
		if env.Layouts[i].PointerBits == 0 {
			env.Layouts[i].PointerBits = 64
		}
	}
	c := &Comparator{fn: [2]*ir.Func{left, right}, env: env}
	c.BeginCompare()
	return c
}

// BeginCompare resets the ledger and re-indexes both bodies. Compare calls
// it; tests that build IR after New call it directly.
func (c *Comparator) BeginCompare() {
	c.sn = ledger.New(0)
	c.index = [2]*irutil.Index{irutil.NewIndex(c.fn[ledger.Left]), irutil.NewIndex(c.fn[ledger.Right])}
	c.aux = make(map[*ir.Func]*irutil.Index)
	c.inline = InlineRequest{}
	c.state = StateStart
	c.site = [2]*ir.InstCall{}
	c.globals = make(map[[2]value.Value]bool)
}

// State returns where the last Compare stopped.
func (c *Comparator) State() State {
	return c.state
}

// InlineRequest returns the call sites the last Compare asked to inline.
func (c *Comparator) InlineRequest() InlineRequest {
	return c.inline
}

// Ledger exposes the serial numbering of the current session.
func (c *Comparator) Ledger() *ledger.Ledger {
	return c.sn
}

// Compare runs the whole comparison of the pair from a fresh ledger.
func (c *Comparator) Compare() int {
	c.BeginCompare()
	l, r := c.fn[ledger.Left], c.fn[ledger.Right]

	c.state = StateSignatureCompare
	if res := c.CompareSignature(); res != 0 {
		return c.finish(res)
	}
	for i := range l.Params {
		if res := c.CompareValues(l.Params[i], r.Params[i]); res != 0 {
			return c.finish(res)
		}
	}

	c.state = StateBodyCompare
	if len(l.Blocks) == 0 || len(r.Blocks) == 0 {
		return c.finish(ledger.CompareNumbers(int64(len(l.Blocks)), int64(len(r.Blocks))))
	}

	type pair struct{ l, r *ir.Block }
	stack := []pair{{l.Blocks[0], r.Blocks[0]}}
	visited := map[*ir.Block]bool{l.Blocks[0]: true}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if res := c.CompareValues(p.l, p.r); res != 0 {
			return c.finish(res)
		}
		if res := c.CompareBasicBlocks(p.l, p.r); res != 0 {
			return c.finish(res)
		}
		succL, succR := irutil.Successors(p.l.Term), irutil.Successors(p.r.Term)
		if len(succL) != len(succR) {
			return c.finish(ledger.CompareNumbers(int64(len(succL)), int64(len(succR))))
		}
		for i, s := range succL {
			if visited[s] {
				continue
			}
			visited[s] = true
			stack = append(stack, pair{s, succR[i]})
		}
	}
	return c.finish(0)
}

func (c *Comparator) finish(res int) int {
	switch {
	case res == 0:
		c.state = StateEqual
	case !c.inline.Empty():
		c.state = StateInlineRequested
	default:
		c.state = StateNotEqual
	}
	return res
}

// CompareSignature compares arity, return and parameter types.
func (c *Comparator) CompareSignature() int {
	l, r := c.fn[ledger.Left], c.fn[ledger.Right]
	if res := ledger.CompareNumbers(int64(len(l.Params)), int64(len(r.Params))); res != 0 {
		return res
	}
	if l.Sig == nil || r.Sig == nil {
		return 0
	}
	if res := c.CompareTypes(l.Sig.RetType, r.Sig.RetType); res != 0 {
		return res
	}
	for i := range l.Params {
		if res := c.CompareTypes(l.Params[i].Typ, r.Params[i].Typ); res != 0 {
			return res
		}
	}
	return compareBools(l.Sig.Variadic, r.Sig.Variadic)
}

func (c *Comparator) indexOf(side ledger.Side, f *ir.Func) *irutil.Index {
	if f == c.fn[side] {
		return c.index[side]
	}
	if x, ok := c.aux[f]; ok {
		return x
	}
	x := irutil.NewIndex(f)
	c.aux[f] = x
	return x
}

func compareBools(l, r bool) int {
	switch {
	case l == r:
		return 0
	case l:
		return 1
	default:
		return -1
	}
}
