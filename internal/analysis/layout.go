// Package analysis computes the read-only tables the comparator consumes:
// struct sizes, struct field names from debug info, and macro-constant
// correspondences. They run once per loaded module before comparison.
package analysis

import (
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

const defaultPointerBits = 64

// Layout is the subset of a target data layout needed for sizes and
// offsets: pointer width and natural alignment of everything else.
type Layout struct {
	PointerBits uint64
}

// LayoutOf reads the pointer width from the module data layout string.
func LayoutOf(m *ir.Module) Layout {
	l := Layout{PointerBits: defaultPointerBits}
	if m == nil {
		return l
	}
	for _, field := range strings.Split(m.DataLayout, "-") {
		if !strings.HasPrefix(field, "p:") && !strings.HasPrefix(field, "p0:") {
			continue
		}
		parts := strings.Split(field, ":")
		if len(parts) < 2 {
			continue
		}
		if bits, err := strconv.ParseUint(parts[1], 10, 64); err == nil && bits > 0 {
			l.PointerBits = bits
		}
	}
	return l
}

// Size returns the allocation size of t in bytes.
func (l Layout) Size(t types.Type) uint64 {
	switch t := t.(type) {
	case *types.IntType:
		return intBytes(t.BitSize)
	case *types.FloatType:
		switch t.Kind {
		case types.FloatKindHalf:
			return 2
		case types.FloatKindFloat:
			return 4
		case types.FloatKindDouble:
			return 8
		default:
			return 16
		}
	case *types.PointerType:
		return l.PointerBits / 8
	case *types.ArrayType:
		return t.Len * l.Size(t.ElemType)
	case *types.VectorType:
		return t.Len * l.Size(t.ElemType)
	case *types.StructType:
		return l.structSize(t)
	default:
		return 0
	}
}

// Align returns the ABI alignment of t in bytes.
func (l Layout) Align(t types.Type) uint64 {
	switch t := t.(type) {
	case *types.ArrayType:
		return l.Align(t.ElemType)
	case *types.StructType:
		if t.Packed {
			return 1
		}
		a := uint64(1)
		for _, f := range t.Fields {
			a = max(a, l.Align(f))
		}
		return a
	default:
		if s := l.Size(t); s > 0 {
			return min(s, 8)
		}
		return 1
	}
}

// FieldOffset returns the byte offset of field idx of st.
func (l Layout) FieldOffset(st *types.StructType, idx int) uint64 {
	var off uint64
	for i, f := range st.Fields {
		if !st.Packed {
			off = alignTo(off, l.Align(f))
		}
		if i == idx {
			return off
		}
		off += l.Size(f)
	}
	return off
}

// BitWidth is the storage width of t in bits.
func (l Layout) BitWidth(t types.Type) uint64 {
	if it, ok := t.(*types.IntType); ok {
		return it.BitSize
	}
	return l.Size(t) * 8
}

// IndexOffset returns the byte offset a constant index contributes when
// stepping into t: element strides for arrays and pointers, field offsets
// for structs.
func (l Layout) IndexOffset(t types.Type, idx int64) (int64, bool) {
	switch t := t.(type) {
	case *types.StructType:
		if idx < 0 || int(idx) >= len(t.Fields) {
			return 0, false
		}
		off, err := safecast.Conv[int64](l.FieldOffset(t, int(idx)))
		return off, err == nil
	case *types.ArrayType:
		return l.Stride(t.ElemType, idx)
	case *types.VectorType:
		return l.Stride(t.ElemType, idx)
	default:
		return l.Stride(t, idx)
	}
}

// Stride returns idx times the allocation size of elem.
func (l Layout) Stride(elem types.Type, idx int64) (int64, bool) {
	size, err := safecast.Conv[int64](l.Size(elem))
	if err != nil {
		return 0, false
	}
	return size * idx, true
}

func (l Layout) structSize(st *types.StructType) uint64 {
	if st.Opaque {
		return 0
	}
	var off uint64
	for _, f := range st.Fields {
		if !st.Packed {
			off = alignTo(off, l.Align(f))
		}
		off += l.Size(f)
	}
	return alignTo(off, l.Align(st))
}

func intBytes(bits uint64) uint64 {
	b := (bits + 7) / 8
	p := uint64(1)
	for p < b {
		p *= 2
	}
	return p
}

func alignTo(off, align uint64) uint64 {
	if align <= 1 {
		return off
	}
	return (off + align - 1) / align * align
}
