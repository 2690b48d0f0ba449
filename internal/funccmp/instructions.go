package funccmp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"

	"github.com/lenticularis39/diffkemp/internal/irutil"
	"github.com/lenticularis39/diffkemp/internal/ledger"
)

type opcode uint8

const (
	opOther opcode = iota
	opFNeg
	opAdd
	opFAdd
	opSub
	opFSub
	opMul
	opFMul
	opUDiv
	opSDiv
	opFDiv
	opURem
	opSRem
	opFRem
	opShl
	opLShr
	opAShr
	opAnd
	opOr
	opXor
	opExtractElement
	opInsertElement
	opShuffleVector
	opExtractValue
	opInsertValue
	opAlloca
	opLoad
	opStore
	opFence
	opCmpXchg
	opAtomicRMW
	opGetElementPtr
	opTrunc
	opZExt
	opSExt
	opFPTrunc
	opFPExt
	opFPToUI
	opFPToSI
	opUIToFP
	opSIToFP
	opPtrToInt
	opIntToPtr
	opBitCast
	opAddrSpaceCast
	opICmp
	opFCmp
	opPhi
	opSelect
	opCall
	opVAArg
	opRet
	opBr
	opCondBr
	opSwitch
	opIndirectBr
	opInvoke
	opResume
	opUnreachable
)

func opcodeOf(inst any) opcode {
	switch inst.(type) {
	case *ir.InstFNeg:
		return opFNeg
	case *ir.InstAdd:
		return opAdd
	case *ir.InstFAdd:
		return opFAdd
	case *ir.InstSub:
		return opSub
	case *ir.InstFSub:
		return opFSub
	case *ir.InstMul:
		return opMul
	case *ir.InstFMul:
		return opFMul
	case *ir.InstUDiv:
		return opUDiv
	case *ir.InstSDiv:
		return opSDiv
	case *ir.InstFDiv:
		return opFDiv
	case *ir.InstURem:
		return opURem
	case *ir.InstSRem:
		return opSRem
	case *ir.InstFRem:
		return opFRem
	case *ir.InstShl:
		return opShl
	case *ir.InstLShr:
		return opLShr
	case *ir.InstAShr:
		return opAShr
	case *ir.InstAnd:
		return opAnd
	case *ir.InstOr:
		return opOr
	case *ir.InstXor:
		return opXor
	case *ir.InstExtractElement:
		return opExtractElement
	case *ir.InstInsertElement:
		return opInsertElement
	case *ir.InstShuffleVector:
		return opShuffleVector
	case *ir.InstExtractValue:
		return opExtractValue
	case *ir.InstInsertValue:
		return opInsertValue
	case *ir.InstAlloca:
		return opAlloca
	case *ir.InstLoad:
		return opLoad
	case *ir.InstStore:
		return opStore
	case *ir.InstFence:
		return opFence
	case *ir.InstCmpXchg:
		return opCmpXchg
	case *ir.InstAtomicRMW:
		return opAtomicRMW
	case *ir.InstGetElementPtr:
		return opGetElementPtr
	case *ir.InstTrunc:
		return opTrunc
	case *ir.InstZExt:
		return opZExt
	case *ir.InstSExt:
		return opSExt
	case *ir.InstFPTrunc:
		return opFPTrunc
	case *ir.InstFPExt:
		return opFPExt
	case *ir.InstFPToUI:
		return opFPToUI
	case *ir.InstFPToSI:
		return opFPToSI
	case *ir.InstUIToFP:
		return opUIToFP
	case *ir.InstSIToFP:
		return opSIToFP
	case *ir.InstPtrToInt:
		return opPtrToInt
	case *ir.InstIntToPtr:
		return opIntToPtr
	case *ir.InstBitCast:
		return opBitCast
	case *ir.InstAddrSpaceCast:
		return opAddrSpaceCast
	case *ir.InstICmp:
		return opICmp
	case *ir.InstFCmp:
		return opFCmp
	case *ir.InstPhi:
		return opPhi
	case *ir.InstSelect:
		return opSelect
	case *ir.InstCall:
		return opCall
	case *ir.InstVAArg:
		return opVAArg
	case *ir.TermRet:
		return opRet
	case *ir.TermBr:
		return opBr
	case *ir.TermCondBr:
		return opCondBr
	case *ir.TermSwitch:
		return opSwitch
	case *ir.TermIndirectBr:
		return opIndirectBr
	case *ir.TermInvoke:
		return opInvoke
	case *ir.TermResume:
		return opResume
	case *ir.TermUnreachable:
		return opUnreachable
	default:
		return opOther
	}
}

// rule compares two instructions of the same opcode and result type.
type rule func(c *Comparator, l, r any) int

// rules holds the instruction kinds that need more than a pairwise operand
// comparison. Every other opcode uses compareOperands.
var rules = map[opcode]rule{
	opAlloca: func(c *Comparator, l, r any) int {
		return c.compareAlloca(l.(*ir.InstAlloca), r.(*ir.InstAlloca))
	},
	opLoad: func(c *Comparator, l, r any) int {
		ll, rl := l.(*ir.InstLoad), r.(*ir.InstLoad)
		if res := compareBools(ll.Volatile, rl.Volatile); res != 0 {
			return res
		}
		return c.CompareValues(ll.Src, rl.Src)
	},
	opStore: func(c *Comparator, l, r any) int {
		ls, rs := l.(*ir.InstStore), r.(*ir.InstStore)
		if res := compareBools(ls.Volatile, rs.Volatile); res != 0 {
			return res
		}
		if res := c.CompareValues(ls.Src, rs.Src); res != 0 {
			return res
		}
		return c.CompareValues(ls.Dst, rs.Dst)
	},
	opGetElementPtr: func(c *Comparator, l, r any) int {
		return c.CompareGEPs(l.(*ir.InstGetElementPtr), r.(*ir.InstGetElementPtr))
	},
	opExtractValue: func(c *Comparator, l, r any) int {
		le, re := l.(*ir.InstExtractValue), r.(*ir.InstExtractValue)
		if res := slices.Compare(le.Indices, re.Indices); res != 0 {
			return res
		}
		return c.CompareValues(le.X, re.X)
	},
	opInsertValue: func(c *Comparator, l, r any) int {
		li, ri := l.(*ir.InstInsertValue), r.(*ir.InstInsertValue)
		if res := slices.Compare(li.Indices, ri.Indices); res != 0 {
			return res
		}
		return compareOperands(c, l, r)
	},
	opICmp: func(c *Comparator, l, r any) int {
		li, ri := l.(*ir.InstICmp), r.(*ir.InstICmp)
		if res := ledger.CompareNumbers(c.predicate(li.Pred), c.predicate(ri.Pred)); res != 0 {
			return res
		}
		return compareOperands(c, l, r)
	},
	opFCmp: func(c *Comparator, l, r any) int {
		lf, rf := l.(*ir.InstFCmp), r.(*ir.InstFCmp)
		if res := strings.Compare(lf.Pred.String(), rf.Pred.String()); res != 0 {
			return res
		}
		return compareOperands(c, l, r)
	},
	opPhi: func(c *Comparator, l, r any) int {
		lp, rp := l.(*ir.InstPhi), r.(*ir.InstPhi)
		if res := ledger.CompareNumbers(int64(len(lp.Incs)), int64(len(rp.Incs))); res != 0 {
			return res
		}
		for i := range lp.Incs {
			if res := c.CompareValues(lp.Incs[i].Pred, rp.Incs[i].Pred); res != 0 {
				return res
			}
			if res := c.CompareValues(lp.Incs[i].X, rp.Incs[i].X); res != 0 {
				return res
			}
		}
		return 0
	},
	opCall: func(c *Comparator, l, r any) int {
		return c.compareCall(l.(*ir.InstCall), r.(*ir.InstCall))
	},
	opBr: func(c *Comparator, l, r any) int {
		return c.CompareValues(l.(*ir.TermBr).Target, r.(*ir.TermBr).Target)
	},
	opCondBr: func(c *Comparator, l, r any) int {
		lb, rb := l.(*ir.TermCondBr), r.(*ir.TermCondBr)
		if res := c.CompareValues(lb.Cond, rb.Cond); res != 0 {
			return res
		}
		if res := c.CompareValues(lb.TargetTrue, rb.TargetTrue); res != 0 {
			return res
		}
		return c.CompareValues(lb.TargetFalse, rb.TargetFalse)
	},
	opSwitch: func(c *Comparator, l, r any) int {
		ls, rs := l.(*ir.TermSwitch), r.(*ir.TermSwitch)
		if res := c.CompareValues(ls.X, rs.X); res != 0 {
			return res
		}
		if res := ledger.CompareNumbers(int64(len(ls.Cases)), int64(len(rs.Cases))); res != 0 {
			return res
		}
		if res := c.CompareValues(ls.TargetDefault, rs.TargetDefault); res != 0 {
			return res
		}
		for i := range ls.Cases {
			if res := c.CompareValues(ls.Cases[i].X, rs.Cases[i].X); res != 0 {
				return res
			}
			if res := c.CompareValues(ls.Cases[i].Target, rs.Cases[i].Target); res != 0 {
				return res
			}
		}
		return 0
	},
}

func compareOperands(c *Comparator, l, r any) int {
	ol, or := irutil.Operands(l), irutil.Operands(r)
	if res := ledger.CompareNumbers(int64(len(ol)), int64(len(or))); res != 0 {
		return res
	}
	for i := range ol {
		if res := c.CompareValues(ol[i], or[i]); res != 0 {
			return res
		}
	}
	return 0
}

// predicates numbers integer predicates the way LLVM does.
var predicates = map[enum.IPred]int64{
	enum.IPredEQ:  32,
	enum.IPredNE:  33,
	enum.IPredUGT: 34,
	enum.IPredUGE: 35,
	enum.IPredULT: 36,
	enum.IPredULE: 37,
	enum.IPredSGT: 38,
	enum.IPredSGE: 39,
	enum.IPredSLT: 40,
	enum.IPredSLE: 41,
}

func (c *Comparator) predicate(p enum.IPred) int64 {
	n := predicates[p]
	if c.env.ControlFlowOnly && n >= 34 && n <= 37 {
		n += 4
	}
	return n
}

// CompareOperations compares two instructions or terminators: the opcode,
// the result type and then the rule for the opcode.
func (c *Comparator) CompareOperations(l, r any) int {
	opL, opR := opcodeOf(l), opcodeOf(r)
	if res := ledger.CompareNumbers(int64(opL), int64(opR)); res != 0 {
		return res
	}
	if opL == opOther {
		if res := strings.Compare(fmt.Sprintf("%T", l), fmt.Sprintf("%T", r)); res != 0 {
			return res
		}
	}
	vl, okL := l.(value.Value)
	vr, okR := r.(value.Value)
	if okL && okR && opL != opAlloca {
		if res := c.CompareTypes(vl.Type(), vr.Type()); res != 0 {
			return res
		}
	}
	if match, ok := rules[opL]; ok {
		return match(c, l, r)
	}
	return compareOperands(c, l, r)
}

func (c *Comparator) compareAlloca(al, ar *ir.InstAlloca) int {
	if sameNamedStructs(al.ElemType, ar.ElemType) {
		return 0
	}
	if res := c.CompareTypes(al.ElemType, ar.ElemType); res != 0 {
		return res
	}
	return c.CompareValues(al.NElems, ar.NElems)
}

// ignorable reports whether a block walk steps over inst: allocas, debug
// and lifetime markers, and casts that values are compared through.
func (c *Comparator) ignorable(side ledger.Side, inst ir.Instruction) bool {
	switch inst := inst.(type) {
	case *ir.InstAlloca:
		return true
	case *ir.InstCall:
		name := irutil.CalleeName(inst)
		return strings.HasPrefix(name, "llvm.dbg.") || strings.HasPrefix(name, "llvm.lifetime.")
	case value.Value:
		_, ok := c.transparentSource(side, inst)
		return ok
	default:
		return false
	}
}

func (c *Comparator) nextInst(side ledger.Side, insts []ir.Instruction, i int) int {
	for i < len(insts) && c.ignorable(side, insts[i]) {
		i++
	}
	return i
}

// CompareBasicBlocks walks two blocks positionally. A mismatch involving a
// call is turned into an inline request, so the module comparator can
// retry after expanding the call.
func (c *Comparator) CompareBasicBlocks(bl, br *ir.Block) int {
	i, j := 0, 0
	for {
		i = c.nextInst(ledger.Left, bl.Insts, i)
		j = c.nextInst(ledger.Right, br.Insts, j)
		if i == len(bl.Insts) || j == len(br.Insts) {
			break
		}
		l, r := bl.Insts[i], br.Insts[j]
		if res := c.compareInstructions(l, r); res != 0 {
			return c.requestInline(l, r, res)
		}
		i++
		j++
	}

	switch {
	case i < len(bl.Insts):
		return c.requestInline(bl.Insts[i], br.Term, 1)
	case j < len(br.Insts):
		return c.requestInline(bl.Term, br.Insts[j], -1)
	}
	return c.compareInstructions(bl.Term, br.Term)
}

// compareInstructions compares a positional pair and records it in the
// ledger.
func (c *Comparator) compareInstructions(l, r any) int {
	if res := c.CompareOperations(l, r); res != 0 {
		return res
	}
	vl, okL := l.(value.Value)
	vr, okR := r.(value.Value)
	if !okL || !okR {
		return 0
	}
	snL, _ := c.sn.AssignOrLookup(ledger.Left, vl)
	snR, _ := c.sn.AssignOrLookup(ledger.Right, vr)
	if ledger.SameCorrespondence(snL, snR) {
		return 0
	}
	return ledger.Compare(snL, snR)
}

// requestInline records the calls among l and r whose callees can be
// inlined. A call facing a non-call makes the direction of the result.
func (c *Comparator) requestInline(l, r any, res int) int {
	cl, callL := l.(*ir.InstCall)
	cr, callR := r.(*ir.InstCall)
	inlinable := func(side ledger.Side, call *ir.InstCall) *ir.InstCall {
		if irutil.Inlinable(c.fn[side], call) && !c.env.Host.AlwaysEqual(irutil.CanonicalName(irutil.CalleeName(call))) {
			return call
		}
		return nil
	}
	switch {
	case callL && callR:
		req := InlineRequest{Left: inlinable(ledger.Left, cl), Right: inlinable(ledger.Right, cr)}
		if !req.Empty() {
			c.inline = req
		}
		return res
	case callL:
		if req := inlinable(ledger.Left, cl); req != nil {
			c.inline = InlineRequest{Left: req}
			return 1
		}
	case callR:
		if req := inlinable(ledger.Right, cr); req != nil {
			c.inline = InlineRequest{Right: req}
			return -1
		}
	}
	return res
}
