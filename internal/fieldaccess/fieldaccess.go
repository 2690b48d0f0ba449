// Package fieldaccess recognises field-access idioms: chains of address
// computations, possibly crossing casts, that together denote one access
// to a struct field.
package fieldaccess

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/lenticularis39/diffkemp/internal/analysis"
	"github.com/lenticularis39/diffkemp/internal/irutil"
)

// FindStart walks back from v through casts and nested address
// computations and returns the outermost address computation of the
// chain, or nil when v is not part of one.
func FindStart(v value.Value) *ir.InstGetElementPtr {
	if src, ok := irutil.CastSource(v); ok {
		return FindStart(src)
	}
	if gep, ok := v.(*ir.InstGetElementPtr); ok {
		if inner := FindStart(gep.Src); inner != nil {
			return inner
		}
		return gep
	}
	return nil
}

// chainStep reports whether inst may continue an access chain: an address
// computation or any cast other than pointer-to-integer.
func chainStep(inst any) (value.Value, bool) {
	if gep, ok := inst.(*ir.InstGetElementPtr); ok {
		return gep.Src, true
	}
	if _, ok := inst.(*ir.InstPtrToInt); ok {
		return nil, false
	}
	return irutil.CastSource(inst)
}

// IsConstantMemoryAccessToPtr reports whether inst is a further address
// step applied directly to ptr. For address computations the added byte
// offset must be statically known; casts add none.
func IsConstantMemoryAccessToPtr(l analysis.Layout, inst any, ptr value.Value) (int64, bool) {
	base, ok := chainStep(inst)
	if !ok || base != ptr {
		return 0, false
	}
	gep, ok := inst.(*ir.InstGetElementPtr)
	if !ok {
		return 0, true
	}
	return AccumulateConstantOffset(l, gep.ElemType, gep.Indices)
}

// IsFollowing reports whether next continues the access chain that inst
// belongs to. Unlike IsConstantMemoryAccessToPtr the step need not be
// constant.
func IsFollowing(next, inst any) bool {
	base, ok := chainStep(next)
	if !ok {
		return false
	}
	v, ok := inst.(value.Value)
	return ok && base == v
}

// ChainOffset returns the byte offset that the access chain rooted at gep
// adds to its base pointer. Casts add nothing. The result is unknown when
// a step of the chain is not constant.
func ChainOffset(l analysis.Layout, x *irutil.Index, gep *ir.InstGetElementPtr) (int64, bool) {
	total, ok := AccumulateConstantOffset(l, gep.ElemType, gep.Indices)
	if !ok {
		return 0, false
	}
	var ptr value.Value = gep
	for inst := x.Next(gep); inst != nil; inst = x.Next(inst) {
		if _, isTerm := inst.(ir.Terminator); isTerm {
			break
		}
		if off, ok := IsConstantMemoryAccessToPtr(l, inst, ptr); ok {
			total += off
			ptr = inst.(value.Value)
			continue
		}
		if IsFollowing(inst, ptr) {
			return 0, false
		}
	}
	return total, true
}

// AccumulateConstantOffset sums the byte offset of a constant index list
// stepping through elem.
func AccumulateConstantOffset(l analysis.Layout, elem types.Type, indices []value.Value) (int64, bool) {
	var total int64
	cur := elem
	for i, idx := range indices {
		c, ok := idx.(*constant.Int)
		if !ok || !c.X.IsInt64() {
			return 0, false
		}
		n := c.X.Int64()
		if i == 0 {
			off, ok := l.Stride(cur, n)
			if !ok {
				return 0, false
			}
			total += off
			continue
		}
		off, ok := l.IndexOffset(cur, n)
		if !ok {
			return 0, false
		}
		total += off
		cur = stepInto(cur, n)
		if cur == nil {
			return 0, false
		}
	}
	return total, true
}

func stepInto(t types.Type, idx int64) types.Type {
	switch t := t.(type) {
	case *types.StructType:
		if idx < 0 || int(idx) >= len(t.Fields) {
			return nil
		}
		return t.Fields[idx]
	case *types.ArrayType:
		return t.ElemType
	case *types.VectorType:
		return t.ElemType
	default:
		return nil
	}
}

// SourceTypes reconstructs the ordered source element types touched by
// the access chain rooted at gep. It walks forward through the block,
// skipping instructions that do not continue the chain, up to the
// terminator. A constant address expression used as the base of a step
// contributes its own source type right after that step.
func SourceTypes(x *irutil.Index, gep *ir.InstGetElementPtr) []types.Type {
	var out []types.Type
	var last any
	for inst := any(gep); inst != nil; inst = x.Next(inst) {
		if _, isTerm := inst.(ir.Terminator); isTerm {
			break
		}
		if last != nil && !IsFollowing(inst, last) {
			continue
		}
		last = inst
		step, ok := inst.(*ir.InstGetElementPtr)
		if !ok {
			continue
		}
		out = append(out, step.ElemType)
		if inner, ok := step.Src.(*constant.ExprGetElementPtr); ok {
			out = append(out, inner.ElemType)
		}
	}
	return out
}

// Steps returns the address computations of the chain rooted at gep in
// the same order SourceTypes reports their types.
func Steps(x *irutil.Index, gep *ir.InstGetElementPtr) []*ir.InstGetElementPtr {
	var out []*ir.InstGetElementPtr
	var last any
	for inst := any(gep); inst != nil; inst = x.Next(inst) {
		if _, isTerm := inst.(ir.Terminator); isTerm {
			break
		}
		if last != nil && !IsFollowing(inst, last) {
			continue
		}
		last = inst
		if step, ok := inst.(*ir.InstGetElementPtr); ok {
			out = append(out, step)
		}
	}
	return out
}
