package funccmp

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/lenticularis39/diffkemp/internal/irutil"
	"github.com/lenticularis39/diffkemp/internal/ledger"
)

// maxStrip bounds cast stripping on malformed self-referencing IR.
const maxStrip = 64

// CompareValues compares two operands. Transparent casts are stripped
// first; constants compare by content, everything else by the position it
// was first met at, as recorded in the ledger.
func (c *Comparator) CompareValues(l, r value.Value) int {
	if l == nil || r == nil {
		return compareBools(l != nil, r != nil)
	}
	l, r = c.strip(ledger.Left, l), c.strip(ledger.Right, r)

	cl, constL := l.(constant.Constant)
	cr, constR := r.(constant.Constant)
	switch {
	case constL && constR:
		if known, crossed, texts := c.env.Resolver.MacroMatch(cl, cr); known {
			if crossed {
				return 0
			}
			if res := c.CompareConstants(cl, cr); res != 0 {
				return res
			}
			return texts
		}
		return c.CompareConstants(cl, cr)
	case constL:
		return 1
	case constR:
		return -1
	}

	al, asmL := l.(*ir.InlineAsm)
	ar, asmR := r.(*ir.InlineAsm)
	if asmL || asmR {
		if !asmL || !asmR {
			return compareBools(asmL, asmR)
		}
		if res := strings.Compare(al.Asm, ar.Asm); res != 0 {
			return res
		}
		return strings.Compare(al.Constraint, ar.Constraint)
	}

	snL, freshL := c.sn.AssignOrLookup(ledger.Left, l)
	snR, freshR := c.sn.AssignOrLookup(ledger.Right, r)
	if !ledger.SameCorrespondence(snL, snR) {
		return ledger.Compare(snL, snR)
	}
	if freshL && freshR {
		// Allocas are skipped in block walks and correspond through their
		// first use; their allocated types are checked here, once.
		if al, ok := l.(*ir.InstAlloca); ok {
			if ar, ok := r.(*ir.InstAlloca); ok {
				return c.compareAlloca(al, ar)
			}
		}
	}
	return 0
}

// strip removes every transparent cast around v.
func (c *Comparator) strip(side ledger.Side, v value.Value) value.Value {
	for range maxStrip {
		next, ok := c.transparentSource(side, v)
		if !ok {
			return v
		}
		v = next
	}
	return v
}

// transparentSource returns the operand of v when v is a cast that does
// not change what the value means for comparison.
func (c *Comparator) transparentSource(side ledger.Side, v value.Value) (value.Value, bool) {
	switch x := v.(type) {
	case *ir.InstBitCast:
		if m, ok := unionMember(x.From); ok {
			return m, true
		}
		return x.From, isPointer(x.From.Type()) && isPointer(x.To)
	case *ir.InstIntToPtr:
		return x.From, true
	case *ir.InstPtrToInt:
		return x.From, true
	case *ir.InstSExt:
		return x.From, !c.feedsArithmetic(side, x)
	case *ir.InstZExt:
		return x.From, !c.feedsArithmetic(side, x)
	case *ir.InstTrunc:
		return x.From, c.env.ControlFlowOnly
	case *constant.ExprBitCast:
		if m, ok := unionMember(x.From); ok {
			return m, true
		}
		return x.From, isPointer(x.From.Type()) && isPointer(x.To)
	case *constant.ExprIntToPtr:
		return x.From, true
	case *constant.ExprPtrToInt:
		return x.From, true
	case *constant.ExprSExt:
		return x.From, true
	case *constant.ExprZExt:
		return x.From, true
	case *constant.ExprTrunc:
		return x.From, c.env.ControlFlowOnly
	default:
		return nil, false
	}
}

func isPointer(t types.Type) bool {
	_, ok := t.(*types.PointerType)
	return ok
}

// unionMember returns the single member of a union-typed constant.
func unionMember(v value.Value) (value.Value, bool) {
	s, ok := v.(*constant.Struct)
	if !ok || len(s.Fields) != 1 || !isUnion(s.Typ) {
		return nil, false
	}
	return s.Fields[0], true
}

// feedsArithmetic reports whether an extension reaches a binary operation,
// directly or through further casts.
func (c *Comparator) feedsArithmetic(side ledger.Side, ext value.Value) bool {
	x := c.index[side]
	seen := map[value.Value]bool{ext: true}
	work := []value.Value{ext}
	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		for _, u := range x.Users(v) {
			if isBinary(u) {
				return true
			}
			if uv, ok := u.(value.Value); ok && irutil.IsCast(u) && !seen[uv] {
				seen[uv] = true
				work = append(work, uv)
			}
		}
	}
	return false
}

func isBinary(inst any) bool {
	switch inst.(type) {
	case *ir.InstAdd, *ir.InstSub, *ir.InstMul, *ir.InstUDiv, *ir.InstSDiv,
		*ir.InstURem, *ir.InstSRem, *ir.InstShl, *ir.InstLShr, *ir.InstAShr,
		*ir.InstAnd, *ir.InstOr, *ir.InstXor:
		return true
	default:
		return false
	}
}

func isGlobalValue(c constant.Constant) bool {
	switch c.(type) {
	case *ir.Func, *ir.Global, *ir.Alias, *ir.IFunc:
		return true
	default:
		return false
	}
}

// intCastLiteral unwraps integer-to-integer cast expressions around an
// integer literal.
func intCastLiteral(c constant.Constant) constant.Constant {
	for range maxStrip {
		src, ok := irutil.ConstCastSource(c)
		if !ok {
			return c
		}
		switch c.(type) {
		case *constant.ExprTrunc, *constant.ExprZExt, *constant.ExprSExt:
		default:
			return c
		}
		c = src
	}
	return c
}

// constKind orders constant categories that cannot be compared by content.
func constKind(c constant.Constant) int64 {
	switch c.(type) {
	case *constant.Int:
		return 1
	case *constant.Float:
		return 2
	case *constant.Null:
		return 3
	case *constant.ZeroInitializer:
		return 4
	case *constant.Undef:
		return 5
	case *constant.Array:
		return 6
	case *constant.CharArray:
		return 7
	case *constant.Struct:
		return 8
	case *constant.Vector:
		return 9
	case *constant.BlockAddress:
		return 10
	case *constant.ExprGetElementPtr:
		return 11
	default:
		return 12
	}
}

// CompareConstants compares literal and aggregate constants by content
// and global references through CompareGlobalValues.
func (c *Comparator) CompareConstants(l, r constant.Constant) int {
	if c.env.ControlFlowOnly {
		l, r = intCastLiteral(l), intCastLiteral(r)
	}
	if isGlobalValue(l) || isGlobalValue(r) {
		if isGlobalValue(l) && isGlobalValue(r) {
			return c.CompareGlobalValues(l, r)
		}
		return compareBools(isGlobalValue(l), isGlobalValue(r))
	}
	if res := c.CompareTypes(l.Type(), r.Type()); res != 0 {
		return res
	}
	if res := ledger.CompareNumbers(constKind(l), constKind(r)); res != 0 {
		return res
	}

	switch l := l.(type) {
	case *constant.Int:
		return l.X.Cmp(r.(*constant.Int).X)
	case *constant.Float:
		r := r.(*constant.Float)
		if res := compareBools(l.NaN, r.NaN); res != 0 || l.NaN {
			return res
		}
		return l.X.Cmp(r.X)
	case *constant.Null, *constant.ZeroInitializer, *constant.Undef:
		return 0
	case *constant.Array:
		return c.compareConstantLists(l.Elems, r.(*constant.Array).Elems)
	case *constant.CharArray:
		return bytes.Compare(l.X, r.(*constant.CharArray).X)
	case *constant.Struct:
		return c.compareConstantLists(l.Fields, r.(*constant.Struct).Fields)
	case *constant.Vector:
		return c.compareConstantLists(l.Elems, r.(*constant.Vector).Elems)
	case *constant.ExprGetElementPtr:
		return c.CompareGEPs(l, r)
	}

	if res := strings.Compare(fmt.Sprintf("%T", l), fmt.Sprintf("%T", r)); res != 0 {
		return res
	}
	if src, ok := irutil.ConstCastSource(l); ok {
		rsrc, _ := irutil.ConstCastSource(r)
		return c.CompareConstants(src, rsrc)
	}
	return strings.Compare(l.Ident(), r.Ident())
}

func (c *Comparator) compareConstantLists(l, r []constant.Constant) int {
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
