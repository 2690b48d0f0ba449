package irutil

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

type operandUser interface {
	Operands() []*value.Value
}

// OperandRefs returns mutable references to the value operands of an
// instruction or terminator, in a fixed order per instruction kind. Block
// operands of phis are not included; Successors covers block edges.
// References may point at nil values (e.g. the count of a scalar alloca).
func OperandRefs(inst any) []*value.Value {
	switch inst := inst.(type) {
	case *ir.InstAdd:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstFAdd:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstSub:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstFSub:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstMul:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstFMul:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstUDiv:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstSDiv:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstFDiv:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstURem:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstSRem:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstFRem:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstShl:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstLShr:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstAShr:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstAnd:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstOr:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstXor:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstFNeg:
		return []*value.Value{&inst.X}
	case *ir.InstExtractValue:
		return []*value.Value{&inst.X}
	case *ir.InstInsertValue:
		return []*value.Value{&inst.X, &inst.Elem}
	case *ir.InstAlloca:
		return []*value.Value{&inst.NElems}
	case *ir.InstLoad:
		return []*value.Value{&inst.Src}
	case *ir.InstStore:
		return []*value.Value{&inst.Src, &inst.Dst}
	case *ir.InstGetElementPtr:
		refs := []*value.Value{&inst.Src}
		for i := range inst.Indices {
			refs = append(refs, &inst.Indices[i])
		}
		return refs
	case *ir.InstTrunc:
		return []*value.Value{&inst.From}
	case *ir.InstZExt:
		return []*value.Value{&inst.From}
	case *ir.InstSExt:
		return []*value.Value{&inst.From}
	case *ir.InstFPTrunc:
		return []*value.Value{&inst.From}
	case *ir.InstFPExt:
		return []*value.Value{&inst.From}
	case *ir.InstFPToUI:
		return []*value.Value{&inst.From}
	case *ir.InstFPToSI:
		return []*value.Value{&inst.From}
	case *ir.InstUIToFP:
		return []*value.Value{&inst.From}
	case *ir.InstSIToFP:
		return []*value.Value{&inst.From}
	case *ir.InstPtrToInt:
		return []*value.Value{&inst.From}
	case *ir.InstIntToPtr:
		return []*value.Value{&inst.From}
	case *ir.InstBitCast:
		return []*value.Value{&inst.From}
	case *ir.InstAddrSpaceCast:
		return []*value.Value{&inst.From}
	case *ir.InstICmp:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstFCmp:
		return []*value.Value{&inst.X, &inst.Y}
	case *ir.InstPhi:
		refs := make([]*value.Value, 0, len(inst.Incs))
		for _, inc := range inst.Incs {
			refs = append(refs, &inc.X)
		}
		return refs
	case *ir.InstCall:
		refs := []*value.Value{&inst.Callee}
		for i := range inst.Args {
			refs = append(refs, &inst.Args[i])
		}
		return refs
	case *ir.TermRet:
		return []*value.Value{&inst.X}
	case *ir.TermBr:
		return nil
	case *ir.TermCondBr:
		return []*value.Value{&inst.Cond}
	case *ir.TermSwitch:
		return []*value.Value{&inst.X}
	case *ir.TermUnreachable:
		return nil
	case operandUser:
		return inst.Operands()
	default:
		return nil
	}
}

// Operands returns the non-nil value operands of inst.
func Operands(inst any) []value.Value {
	refs := OperandRefs(inst)
	out := make([]value.Value, 0, len(refs))
	for _, ref := range refs {
		if *ref != nil {
			out = append(out, *ref)
		}
	}
	return out
}

// AsBlock returns the basic block behind a block-typed operand.
func AsBlock(v value.Value) *ir.Block {
	b, _ := v.(*ir.Block)
	return b
}

// Successors returns the successor blocks of a terminator in operand order.
func Successors(term ir.Terminator) []*ir.Block {
	var out []*ir.Block
	add := func(v value.Value) {
		if b := AsBlock(v); b != nil {
			out = append(out, b)
		}
	}
	switch t := term.(type) {
	case *ir.TermBr:
		add(t.Target)
	case *ir.TermCondBr:
		add(t.TargetTrue)
		add(t.TargetFalse)
	case *ir.TermSwitch:
		add(t.TargetDefault)
		for _, c := range t.Cases {
			add(c.Target)
		}
	}
	return out
}
