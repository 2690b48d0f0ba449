package analysis

import (
	"slices"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/lenticularis39/diffkemp/internal/irutil"
)

// StructSizeTable maps a byte size to the names of the named structs of
// that size in one module.
type StructSizeTable map[uint64][]string

// StructSizes builds the size table of m.
func StructSizes(m *ir.Module) StructSizeTable {
	l := LayoutOf(m)
	out := make(StructSizeTable)
	for _, t := range m.TypeDefs {
		st, ok := t.(*types.StructType)
		if !ok || st.Opaque || st.Name() == "" {
			continue
		}
		size := l.Size(st)
		name := irutil.StripSuffix(st.Name())
		if !slices.Contains(out[size], name) {
			out[size] = append(out[size], name)
		}
	}
	for size := range out {
		slices.Sort(out[size])
	}
	return out
}

// Names returns the struct names of the given size.
func (t StructSizeTable) Names(size uint64) []string {
	return t[size]
}

// SharedName reports whether some struct name has size l in left and size
// r in right.
func SharedName(left, right StructSizeTable, l, r uint64) (string, bool) {
	for _, name := range left.Names(l) {
		if slices.Contains(right.Names(r), name) {
			return name, true
		}
	}
	return "", false
}

// namedStructs indexes the named struct types of m by stripped name.
func namedStructs(m *ir.Module) map[string][]*types.StructType {
	out := make(map[string][]*types.StructType)
	for _, t := range m.TypeDefs {
		if st, ok := t.(*types.StructType); ok && st.Name() != "" {
			name := irutil.StripSuffix(st.Name())
			out[name] = append(out[name], st)
		}
	}
	return out
}
