package funccmp

import (
	"strings"

	"github.com/llir/llvm/ir/types"

	"github.com/lenticularis39/diffkemp/internal/irutil"
	"github.com/lenticularis39/diffkemp/internal/ledger"
)

// typeKind orders type categories the way LLVM numbers its type IDs.
type typeKind int64

const (
	kindVoid     typeKind = 0
	kindFloat    typeKind = 1
	kindLabel    typeKind = 7
	kindMetadata typeKind = 8
	kindToken    typeKind = 10
	kindInt      typeKind = 11
	kindFunc     typeKind = 12
	kindStruct   typeKind = 13
	kindArray    typeKind = 14
	kindPointer  typeKind = 15
	kindVector   typeKind = 16
	kindOther    typeKind = 32
)

func kindOf(t types.Type) typeKind {
	switch t.(type) {
	case *types.VoidType:
		return kindVoid
	case *types.FloatType:
		return kindFloat
	case *types.LabelType:
		return kindLabel
	case *types.MetadataType:
		return kindMetadata
	case *types.TokenType:
		return kindToken
	case *types.IntType:
		return kindInt
	case *types.FuncType:
		return kindFunc
	case *types.StructType:
		return kindStruct
	case *types.ArrayType:
		return kindArray
	case *types.PointerType:
		return kindPointer
	case *types.VectorType:
		return kindVector
	default:
		return kindOther
	}
}

func structName(t types.Type) string {
	if st, ok := t.(*types.StructType); ok && st != nil {
		return irutil.StripSuffix(st.Name())
	}
	return ""
}

func isUnion(t types.Type) bool {
	return strings.HasPrefix(structName(t), "union.")
}

// sameNamedStructs reports whether both types are named structs sharing
// a name, whatever their layouts.
func sameNamedStructs(l, r types.Type) bool {
	nl, nr := structName(l), structName(r)
	return nl != "" && nl == nr
}

func isScalar(t types.Type) bool {
	switch t.(type) {
	case *types.IntType, *types.FloatType, *types.PointerType:
		return true
	default:
		return false
	}
}

// unionFits reports whether scalar fits in the widest member of union.
func (c *Comparator) unionFits(side ledger.Side, union, scalar types.Type) bool {
	st, ok := union.(*types.StructType)
	if !ok || !isUnion(st) || !isScalar(scalar) {
		return false
	}
	var widest uint64
	for _, f := range st.Fields {
		widest = max(widest, c.env.Layouts[side].BitWidth(f))
	}
	return c.env.Layouts[side.Other()].BitWidth(scalar) <= widest
}

// CompareTypes compares two types structurally. Pointers compare by
// address space only, which keeps recursive struct types finite.
func (c *Comparator) CompareTypes(l, r types.Type) int {
	if l == nil || r == nil {
		return compareBools(l != nil, r != nil)
	}
	if l == r {
		return 0
	}
	if c.unionFits(ledger.Left, l, r) || c.unionFits(ledger.Right, r, l) {
		return 0
	}
	kl, kr := kindOf(l), kindOf(r)
	if kl != kr {
		return ledger.CompareNumbers(int64(kl), int64(kr))
	}

	switch l := l.(type) {
	case *types.IntType:
		r := r.(*types.IntType)
		if c.env.ControlFlowOnly && (l.BitSize == 1) == (r.BitSize == 1) {
			return 0
		}
		return compareUints(l.BitSize, r.BitSize)
	case *types.FloatType:
		return ledger.CompareNumbers(int64(l.Kind), int64(r.(*types.FloatType).Kind))
	case *types.PointerType:
		return compareUints(uint64(l.AddrSpace), uint64(r.(*types.PointerType).AddrSpace))
	case *types.ArrayType:
		r := r.(*types.ArrayType)
		if !c.env.ControlFlowOnly {
			if res := compareUints(l.Len, r.Len); res != 0 {
				return res
			}
		}
		return c.CompareTypes(l.ElemType, r.ElemType)
	case *types.VectorType:
		r := r.(*types.VectorType)
		if !c.env.ControlFlowOnly {
			if res := compareUints(l.Len, r.Len); res != 0 {
				return res
			}
		}
		return c.CompareTypes(l.ElemType, r.ElemType)
	case *types.StructType:
		return c.compareStructTypes(l, r.(*types.StructType))
	case *types.FuncType:
		r := r.(*types.FuncType)
		if res := ledger.CompareNumbers(int64(len(l.Params)), int64(len(r.Params))); res != 0 {
			return res
		}
		if res := c.CompareTypes(l.RetType, r.RetType); res != 0 {
			return res
		}
		for i := range l.Params {
			if res := c.CompareTypes(l.Params[i], r.Params[i]); res != 0 {
				return res
			}
		}
		return compareBools(l.Variadic, r.Variadic)
	default:
		return 0
	}
}

func (c *Comparator) compareStructTypes(l, r *types.StructType) int {
	if sameNamedStructs(l, r) {
		return 0
	}
	if l.Opaque || r.Opaque {
		if res := compareBools(l.Opaque, r.Opaque); res != 0 {
			return res
		}
		return strings.Compare(structName(l), structName(r))
	}
	if res := compareBools(l.Packed, r.Packed); res != 0 {
		return res
	}
	if res := ledger.CompareNumbers(int64(len(l.Fields)), int64(len(r.Fields))); res != 0 {
		return res
	}
	for i := range l.Fields {
		if res := c.CompareTypes(l.Fields[i], r.Fields[i]); res != 0 {
			return res
		}
	}
	return 0
}

func compareUints(l, r uint64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}
