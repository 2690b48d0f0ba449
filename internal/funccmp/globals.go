package funccmp

import (
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"github.com/lenticularis39/diffkemp/internal/irutil"
	"github.com/lenticularis39/diffkemp/internal/ledger"
)

func globalKind(v value.Value) int64 {
	switch v.(type) {
	case *ir.Func:
		return 1
	case *ir.Global:
		return 2
	case *ir.Alias:
		return 3
	default:
		return 4
	}
}

// CompareGlobalValues compares references to functions and global
// variables.
func (c *Comparator) CompareGlobalValues(l, r value.Value) int {
	if res := ledger.CompareNumbers(globalKind(l), globalKind(r)); res != 0 {
		return res
	}
	switch l := l.(type) {
	case *ir.Func:
		return c.compareFunctionRefs(l, r.(*ir.Func))
	case *ir.Global:
		return c.compareGlobalVars(l, r.(*ir.Global))
	default:
		return strings.Compare(irutil.CanonicalName(irutil.Name(l)), irutil.CanonicalName(irutil.Name(r)))
	}
}

func (c *Comparator) compareFunctionRefs(l, r *ir.Func) int {
	nl, nr := irutil.CanonicalName(l.Name()), irutil.CanonicalName(r.Name())
	if res := strings.Compare(nl, nr); res != 0 {
		return res
	}
	if c.env.Host.AlwaysEqual(nl) {
		return 0
	}
	if strings.HasPrefix(nl, FieldAccessPrefix) {
		return c.CompareFieldAccess(l, r)
	}
	declL, declR := irutil.IsDeclaration(l), irutil.IsDeclaration(r)
	switch {
	case declL && declR:
		return 0
	case declL != declR:
		c.env.Host.RecordMissing(l, r)
		return compareBools(declR, declL)
	}
	if l == c.fn[ledger.Left] && r == c.fn[ledger.Right] {
		// Direct recursion into the pair under comparison.
		return 0
	}
	c.env.Host.CompareNested(l, r, c.site[ledger.Left], c.site[ledger.Right])
	return 0
}

func (c *Comparator) compareGlobalVars(l, r *ir.Global) int {
	nl, nr := irutil.CanonicalName(l.Name()), irutil.CanonicalName(r.Name())
	if !l.Immutable || !r.Immutable {
		if (l.Init == nil) != (r.Init == nil) {
			c.env.Host.RecordMissing(l, r)
		}
		return strings.Compare(nl, nr)
	}
	switch {
	case l.Init != nil && r.Init != nil:
		key := [2]value.Value{l, r}
		if c.globals[key] {
			return 0
		}
		c.globals[key] = true
		defer delete(c.globals, key)
		return c.CompareConstants(l.Init, r.Init)
	case l.Init == nil && r.Init == nil && nl == nr:
		return 0
	}
	c.env.Host.RecordMissing(l, r)
	if res := compareBools(l.Init != nil, r.Init != nil); res != 0 {
		return res
	}
	return strings.Compare(nl, nr)
}
