package funccmp

import (
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/lenticularis39/diffkemp/internal/analysis"
	"github.com/lenticularis39/diffkemp/internal/irutil"
	"github.com/lenticularis39/diffkemp/internal/ledger"
)

func (c *Comparator) compareCall(l, r *ir.InstCall) int {
	c.site = [2]*ir.InstCall{l, r}
	res := c.CompareValues(l.Callee, r.Callee)
	c.site = [2]*ir.InstCall{}
	if res != 0 {
		return res
	}
	if name := irutil.CanonicalName(irutil.CalleeName(l)); name != "" && c.env.Host.AlwaysEqual(name) {
		return 0
	}

	switch {
	case isAlloc(l) && isAlloc(r):
		return c.CompareAllocs(l, r)
	case isMemset(l) && isMemset(r):
		return c.CompareMemset(l, r)
	case len(l.Args) != len(r.Args):
		return c.CompareCallsWithExtraArg(l, r)
	}
	return c.compareArgs(l.Args, r.Args)
}

func (c *Comparator) compareArgs(l, r []value.Value) int {
	if res := ledger.CompareNumbers(int64(len(l)), int64(len(r))); res != 0 {
		return res
	}
	for i := range l {
		if res := c.CompareValues(l[i], r[i]); res != 0 {
			return res
		}
	}
	return 0
}

// isAlloc recognises allocator calls by shape: a pointer result, one or
// two parameters of which the first is an integer size, and "alloc" in
// the callee name.
func isAlloc(call *ir.InstCall) bool {
	f := irutil.CalledFunction(call)
	if f == nil || f.Sig == nil || !strings.Contains(f.Name(), "alloc") {
		return false
	}
	if !isPointer(f.Sig.RetType) || len(f.Sig.Params) == 0 || len(f.Sig.Params) > 2 {
		return false
	}
	_, ok := f.Sig.Params[0].(*types.IntType)
	return ok && len(call.Args) == len(f.Sig.Params)
}

func isMemset(call *ir.InstCall) bool {
	switch irutil.CanonicalName(irutil.CalleeName(call)) {
	case "llvm.memset", "memset":
		return len(call.Args) >= 3
	default:
		return false
	}
}

// CompareAllocs compares allocator calls. The size argument is checked
// against the struct the result is cast to, so that sizeof of a struct
// whose layout changed still matches.
func (c *Comparator) CompareAllocs(l, r *ir.InstCall) int {
	stL, stR := c.castTarget(ledger.Left, l), c.castTarget(ledger.Right, r)
	if res := c.cmpSizes(l.Args[0], r.Args[0], stL, stR); res != 0 {
		return res
	}
	return c.compareArgs(l.Args[1:], r.Args[1:])
}

// CompareMemset compares memset calls: destination and fill byte exactly,
// the length with the struct-size tolerance of CompareAllocs.
func (c *Comparator) CompareMemset(l, r *ir.InstCall) int {
	if res := ledger.CompareNumbers(int64(len(l.Args)), int64(len(r.Args))); res != 0 {
		return res
	}
	if res := c.CompareValues(l.Args[0], r.Args[0]); res != 0 {
		return res
	}
	if res := c.CompareValues(l.Args[1], r.Args[1]); res != 0 {
		return res
	}
	stL, stR := pointeeStruct(l.Args[0]), pointeeStruct(r.Args[0])
	if res := c.cmpSizes(l.Args[2], r.Args[2], stL, stR); res != 0 {
		return res
	}
	return c.compareArgs(l.Args[3:], r.Args[3:])
}

// CompareCallsWithExtraArg compares calls to the same callee whose
// argument counts differ by one. A trailing literal zero is taken as a
// defaulted argument.
func (c *Comparator) CompareCallsWithExtraArg(l, r *ir.InstCall) int {
	nl, nr := len(l.Args), len(r.Args)
	if nl-nr != 1 && nr-nl != 1 {
		return ledger.CompareNumbers(int64(nl), int64(nr))
	}
	short := min(nl, nr)
	if res := c.compareArgs(l.Args[:short], r.Args[:short]); res != 0 {
		return res
	}
	extra := r.Args[short:]
	if nl > nr {
		extra = l.Args[short:]
	}
	if isZeroLiteral(extra[0]) {
		return 0
	}
	return compareBools(nl > nr, nr > nl)
}

// cmpSizes compares two size operands, given the structs they are meant
// to measure when known.
func (c *Comparator) cmpSizes(sl, sr value.Value, stL, stR *types.StructType) int {
	res := c.CompareValues(sl, sr)
	nameL, nameR := structName(stL), structName(stR)
	if stL != nil && stR != nil && nameL != "" && nameR != "" {
		if nameL != nameR {
			return strings.Compare(nameL, nameR)
		}
		if res == 0 {
			return 0
		}
		if c.sizeOf(ledger.Left, sl, stL) && c.sizeOf(ledger.Right, sr, stR) {
			return 0
		}
		return res
	}
	if res == 0 {
		return 0
	}
	xl, okL := constUint(sl)
	xr, okR := constUint(sr)
	if okL && okR {
		if _, ok := analysis.SharedName(c.env.Sizes[ledger.Left], c.env.Sizes[ledger.Right], xl, xr); ok {
			return 0
		}
	}
	return res
}

// sizeOf reports whether v is the literal byte size of st on side.
func (c *Comparator) sizeOf(side ledger.Side, v value.Value, st *types.StructType) bool {
	x, ok := constUint(v)
	return ok && x == c.env.Layouts[side].Size(st)
}

func constUint(v value.Value) (uint64, bool) {
	if cv, ok := v.(constant.Constant); ok {
		v = intCastLiteral(cv)
	}
	return constIndex(v)
}

// castTarget returns the struct an allocation result is used as: the
// pointee of the call's own type or of the first pointer cast applied to
// it.
func (c *Comparator) castTarget(side ledger.Side, call *ir.InstCall) *types.StructType {
	if st := structPointee(call.Type()); st != nil {
		return st
	}
	for _, u := range c.index[side].Users(call) {
		if bc, ok := u.(*ir.InstBitCast); ok {
			if st := structPointee(bc.To); st != nil {
				return st
			}
		}
	}
	return nil
}

// pointeeStruct returns the struct a pointer operand points to before
// any casts.
func pointeeStruct(v value.Value) *types.StructType {
	for range maxStrip {
		if st := structPointee(v.Type()); st != nil {
			return st
		}
		var (
			src value.Value
			ok  bool
		)
		if cv, isConst := v.(constant.Constant); isConst {
			src, ok = irutil.ConstCastSource(cv)
		} else {
			src, ok = irutil.CastSource(v)
		}
		if !ok {
			return nil
		}
		v = src
	}
	return nil
}

func structPointee(t types.Type) *types.StructType {
	p, ok := t.(*types.PointerType)
	if !ok {
		return nil
	}
	st, _ := p.ElemType.(*types.StructType)
	return st
}
