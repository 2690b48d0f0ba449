package funccmp

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/lenticularis39/diffkemp/internal/fieldaccess"
	"github.com/lenticularis39/diffkemp/internal/irutil"
	"github.com/lenticularis39/diffkemp/internal/ledger"
)

// gepView unifies address-computation instructions and expressions.
type gepView struct {
	elem    types.Type
	src     value.Value
	indices []value.Value
}

func viewGEP(v value.Value) (gepView, bool) {
	switch g := v.(type) {
	case *ir.InstGetElementPtr:
		return gepView{elem: g.ElemType, src: g.Src, indices: g.Indices}, true
	case *constant.ExprGetElementPtr:
		idx := make([]value.Value, len(g.Indices))
		for i, x := range g.Indices {
			idx[i] = x
		}
		return gepView{elem: g.ElemType, src: g.Src, indices: idx}, true
	default:
		return gepView{}, false
	}
}

func constIndex(v value.Value) (uint64, bool) {
	c, ok := v.(*constant.Int)
	if !ok || !c.X.IsUint64() {
		return 0, false
	}
	return c.X.Uint64(), true
}

func isZeroLiteral(v value.Value) bool {
	switch c := v.(type) {
	case *constant.Int:
		return c.X.Sign() == 0
	case *constant.Null, *constant.ZeroInitializer:
		return true
	default:
		return false
	}
}

// CompareGEPs compares two address computations: the base pointer, then
// each index. Struct steps into same-named structs match by field name
// when debug info names both fields. Array steps compare index values
// only, so array length and element width differences that this access
// never dereferences do not count.
func (c *Comparator) CompareGEPs(l, r value.Value) int {
	gl, okL := viewGEP(l)
	gr, okR := viewGEP(r)
	if !okL || !okR {
		return compareBools(okL, okR)
	}
	if res := c.CompareValues(gl.src, gr.src); res != 0 {
		return res
	}
	if res := ledger.CompareNumbers(int64(len(gl.indices)), int64(len(gr.indices))); res != 0 {
		return res
	}

	tl, tr := gl.elem, gr.elem
	for i := range gl.indices {
		il, jr := gl.indices[i], gr.indices[i]
		if i == 0 {
			if res := c.CompareValues(il, jr); res != 0 {
				return res
			}
			// A non-zero leading index strides over the whole source type.
			if !isZeroLiteral(il) {
				if res := c.CompareTypes(tl, tr); res != 0 {
					return res
				}
			}
			continue
		}

		sl, structL := tl.(*types.StructType)
		sr, structR := tr.(*types.StructType)
		if structL != structR {
			return c.CompareTypes(tl, tr)
		}
		if !structL {
			if res := c.CompareValues(il, jr); res != 0 {
				return res
			}
			tl, tr = elemType(tl), elemType(tr)
			if tl == nil || tr == nil {
				return compareBools(tl != nil, tr != nil)
			}
			continue
		}

		xl, constL := constIndex(il)
		xr, constR := constIndex(jr)
		if !constL || !constR || xl >= uint64(len(sl.Fields)) || xr >= uint64(len(sr.Fields)) {
			return c.CompareValues(il, jr)
		}
		if res := c.compareFieldStep(sl, sr, xl, xr, il, jr); res != 0 {
			return res
		}
		tl, tr = sl.Fields[xl], sr.Fields[xr]
	}
	return 0
}

func (c *Comparator) compareFieldStep(sl, sr *types.StructType, xl, xr uint64, il, jr value.Value) int {
	if sameNamedStructs(sl, sr) {
		nl, okL := c.env.Resolver.FieldName(ledger.Left, sl, xl)
		nr, okR := c.env.Resolver.FieldName(ledger.Right, sr, xr)
		if okL && okR {
			return strings.Compare(nl, nr)
		}
		return c.CompareValues(il, jr)
	}
	if res := c.CompareTypes(sl, sr); res != 0 {
		return res
	}
	return c.CompareValues(il, jr)
}

func elemType(t types.Type) types.Type {
	switch t := t.(type) {
	case *types.ArrayType:
		return t.ElemType
	case *types.VectorType:
		return t.ElemType
	default:
		return nil
	}
}

// fieldPath renders the field steps of an access chain, leaving out
// steps through unions, which do not move the address. named is false when
// a struct step has no field name.
func (c *Comparator) fieldPath(side ledger.Side, steps []*ir.InstGetElementPtr) (root types.Type, path []string, named bool) {
	named = true
	for _, step := range steps {
		if isUnion(step.ElemType) {
			continue
		}
		if root == nil {
			root = step.ElemType
		}
		if len(step.Indices) == 0 {
			continue
		}
		if x, ok := constIndex(step.Indices[0]); !ok || x != 0 {
			path = append(path, "+"+step.Indices[0].Ident())
		}
		cur := step.ElemType
		for _, idx := range step.Indices[1:] {
			switch t := cur.(type) {
			case *types.StructType:
				x, ok := constIndex(idx)
				if !ok || x >= uint64(len(t.Fields)) {
					return root, append(path, "?"), false
				}
				if name, ok := c.env.Resolver.FieldName(side, t, x); ok {
					path = append(path, name)
				} else {
					path = append(path, fmt.Sprintf("#%d", x))
				}
				cur = t.Fields[x]
			default:
				path = append(path, "["+idx.Ident()+"]")
				cur = elemType(cur)
			}
			if cur == nil {
				break
			}
		}
	}
	return root, path, named
}

// CompareFieldAccess compares two extracted field-access functions by the
// logical field they reach: the root struct type and the chain of field
// names, allowing the layouts in between to differ. Without debug names
// for every step the chains compare by the constant byte offset they add.
func (c *Comparator) CompareFieldAccess(l, r *ir.Func) int {
	if irutil.IsDeclaration(l) || irutil.IsDeclaration(r) {
		return compareBools(irutil.IsDeclaration(r), irutil.IsDeclaration(l))
	}
	startL, okL := firstGEP(l)
	startR, okR := firstGEP(r)
	if !okL || !okR {
		return compareBools(okL, okR)
	}
	xl, xr := c.indexOf(ledger.Left, l), c.indexOf(ledger.Right, r)

	typesL, typesR := fieldaccess.SourceTypes(xl, startL), fieldaccess.SourceTypes(xr, startR)
	stepsL, stepsR := fieldaccess.Steps(xl, startL), fieldaccess.Steps(xr, startR)
	if len(typesL) == 0 || len(typesR) == 0 {
		return ledger.CompareNumbers(int64(len(typesL)), int64(len(typesR)))
	}

	rootL, pathL, namedL := c.fieldPath(ledger.Left, stepsL)
	rootR, pathR, namedR := c.fieldPath(ledger.Right, stepsR)
	if res := c.CompareTypes(rootL, rootR); res != 0 {
		return res
	}
	if !namedL || !namedR {
		offL, okL := fieldaccess.ChainOffset(c.env.Layouts[ledger.Left], xl, startL)
		offR, okR := fieldaccess.ChainOffset(c.env.Layouts[ledger.Right], xr, startR)
		if okL && okR {
			return ledger.CompareNumbers(offL, offR)
		}
	}
	if res := ledger.CompareNumbers(int64(len(pathL)), int64(len(pathR))); res != 0 {
		return res
	}
	for i := range pathL {
		if res := strings.Compare(pathL[i], pathR[i]); res != 0 {
			return res
		}
	}
	return 0
}

func firstGEP(f *ir.Func) (*ir.InstGetElementPtr, bool) {
	entry := f.Blocks[0]
	if len(entry.Insts) == 0 {
		return nil, false
	}
	if start := fieldaccess.FindStart(asValue(entry.Insts[0])); start != nil {
		return start, true
	}
	return nil, false
}

func asValue(inst ir.Instruction) value.Value {
	v, _ := inst.(value.Value)
	return v
}
