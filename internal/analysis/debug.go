package analysis

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"

	"github.com/lenticularis39/diffkemp/internal/debuginfo"
	"github.com/lenticularis39/diffkemp/internal/irutil"
	"github.com/lenticularis39/diffkemp/internal/ledger"
)

func tupleFields(x any) []metadata.Field {
	if t, ok := x.(*metadata.Tuple); ok && t != nil {
		return t.Fields
	}
	return nil
}

// StructFieldNames fills t with the member names of every struct or union
// described by a DICompositeType record of m. Members are matched to IR
// fields by byte offset, falling back to declaration order when offsets
// do not line up (bitfields, packed layouts).
func StructFieldNames(m *ir.Module, t *debuginfo.Table) {
	l := LayoutOf(m)
	structs := namedStructs(m)
	for _, def := range m.MetadataDefs {
		ct, ok := def.(*metadata.DICompositeType)
		if !ok || ct.Name == "" {
			continue
		}
		var prefix string
		switch ct.Tag {
		case enum.DwarfTagStructureType:
			prefix = "struct."
		case enum.DwarfTagUnionType:
			prefix = "union."
		default:
			continue
		}
		var members []*metadata.DIDerivedType
		for _, f := range tupleFields(ct.Elements) {
			if dt, ok := f.(*metadata.DIDerivedType); ok && dt.Tag == enum.DwarfTagMember {
				members = append(members, dt)
			}
		}
		for _, st := range structs[prefix+ct.Name] {
			assignMembers(l, st, members, t)
		}
	}
}

func assignMembers(l Layout, st *types.StructType, members []*metadata.DIDerivedType, t *debuginfo.Table) {
	byOffset := make(map[uint64]int, len(st.Fields))
	for i := range st.Fields {
		off := l.FieldOffset(st, i)
		if _, seen := byOffset[off]; !seen {
			byOffset[off] = i
		}
	}
	for ord, mem := range members {
		if mem.Name == "" {
			continue
		}
		idx, ok := byOffset[mem.Offset/8]
		if !ok {
			if ord >= len(st.Fields) {
				continue
			}
			idx = ord
		}
		key := debuginfo.FieldKey{Struct: st, Index: uint64(idx)}
		if _, taken := t.FieldNames[key]; !taken {
			t.SetFieldName(st, uint64(idx), mem.Name)
		}
	}
}

// NumericMacros returns the object-like macros of m whose body is a plain
// integer literal.
func NumericMacros(m *ir.Module) map[string]*big.Int {
	out := make(map[string]*big.Int)
	for _, def := range m.MetadataDefs {
		mac, ok := def.(*metadata.DIMacro)
		if !ok || mac.Name == "" || strings.Contains(mac.Name, "(") {
			continue
		}
		if v, ok := parseLiteral(mac.Value); ok {
			out[mac.Name] = v
		}
	}
	return out
}

func parseLiteral(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	for len(s) > 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.TrimRight(s, "uUlL")
	if s == "" {
		return nil, false
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return big.NewInt(n), true
	}
	v, ok := new(big.Int).SetString(s, 0)
	return v, ok
}

// MacroConstants records, for every macro defined in both modules with
// different numeric values, the integer literals that originate from it:
// literals equal to the local value of the macro whose instruction's source
// line names the macro. Each is recorded under the text of the other
// module's value, so the two literals compare equal through
// debuginfo.Resolver. Literals without a readable source line are never
// recorded.
func MacroConstants(left, right *ir.Module, lt, rt *debuginfo.Table, src *Sources) {
	ml, mr := NumericMacros(left), NumericMacros(right)
	names := make([]string, 0, len(ml))
	for name := range ml {
		names = append(names, name)
	}
	sort.Strings(names)

	var litL, litR map[string][]literalUse
	for _, name := range names {
		vl, vr := ml[name], mr[name]
		if vr == nil || vl.Cmp(vr) == 0 {
			continue
		}
		if litL == nil {
			litL, litR = literals(left, src), literals(right, src)
		}
		mark(litL[vl.String()], name, lt, vr.String())
		mark(litR[vr.String()], name, rt, vl.String())
	}
}

// literalUse is an integer literal operand and the identifiers on the
// source line of its instruction.
type literalUse struct {
	c      constant.Constant
	idents map[string]bool
}

func mark(uses []literalUse, macro string, t *debuginfo.Table, text string) {
	for _, u := range uses {
		if !u.idents[macro] {
			continue
		}
		if _, taken := t.Macros[u.c]; !taken {
			t.SetMacro(u.c, text)
		}
	}
}

// literals groups the integer constant operands of all function bodies of
// m by decimal value. Instructions without a source line are skipped.
func literals(m *ir.Module, src *Sources) map[string][]literalUse {
	out := make(map[string][]literalUse)
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			for _, inst := range b.Insts {
				collect(out, inst, src)
			}
			collect(out, b.Term, src)
		}
	}
	return out
}

func collect(out map[string][]literalUse, inst any, src *Sources) {
	var idents map[string]bool
	for _, op := range irutil.Operands(inst) {
		c, ok := op.(*constant.Int)
		if !ok {
			continue
		}
		if idents == nil {
			path, line, ok := debuginfo.SourceLine(inst)
			if !ok {
				return
			}
			text, ok := src.Line(path, line)
			if !ok {
				return
			}
			idents = Identifiers(text)
		}
		out[c.X.String()] = append(out[c.X.String()], literalUse{c: c, idents: idents})
	}
}

// Build runs every analysis over a module pair and returns the resolver
// together with the size tables.
func Build(left, right *ir.Module) (*debuginfo.Resolver, StructSizeTable, StructSizeTable) {
	lt, rt := debuginfo.NewTable(), debuginfo.NewTable()
	StructFieldNames(left, lt)
	StructFieldNames(right, rt)
	MacroConstants(left, right, lt, rt, NewSources())
	return debuginfo.NewResolver(lt, rt), StructSizes(left), StructSizes(right)
}

// Describe summarises the tables for trace output.
func Describe(r *debuginfo.Resolver, sl, sr StructSizeTable) string {
	return fmt.Sprintf("fields=%d/%d macros=%d/%d sizes=%d/%d",
		len(r.Table(ledger.Left).FieldNames), len(r.Table(ledger.Right).FieldNames),
		len(r.Table(ledger.Left).Macros), len(r.Table(ledger.Right).Macros),
		len(sl), len(sr))
}
