// Package debuginfo exposes the read-only debug tables consulted by the
// comparator: struct field names, macro-origin texts of constants, and the
// source locations of instructions and functions.
package debuginfo

import (
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/lenticularis39/diffkemp/internal/ledger"
)

// FieldKey identifies one field of a struct type.
type FieldKey struct {
	Struct *types.StructType
	Index  uint64
}

// Table holds the tables built for one module. A table must be complete
// before the first comparison reads it and is never written afterwards.
type Table struct {
	FieldNames map[FieldKey]string
	Macros     map[constant.Constant]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		FieldNames: make(map[FieldKey]string),
		Macros:     make(map[constant.Constant]string),
	}
}

// SetFieldName records the source name of field idx of st.
func (t *Table) SetFieldName(st *types.StructType, idx uint64, name string) {
	t.FieldNames[FieldKey{Struct: st, Index: idx}] = name
}

// SetMacro records the macro-origin text of c.
func (t *Table) SetMacro(c constant.Constant, text string) {
	t.Macros[c] = text
}

// Resolver answers lookups for both sides.
type Resolver struct {
	tables [2]*Table
}

// NewResolver pairs the left and right tables. Nil tables are treated as empty.
func NewResolver(left, right *Table) *Resolver {
	if left == nil {
		left = NewTable()
	}
	if right == nil {
		right = NewTable()
	}
	return &Resolver{tables: [2]*Table{left, right}}
}

// Table returns the table of side.
func (r *Resolver) Table(side ledger.Side) *Table {
	return r.tables[side]
}

// FieldName returns the declared name of field idx of st on side.
func (r *Resolver) FieldName(side ledger.Side, st *types.StructType, idx uint64) (string, bool) {
	if r == nil || st == nil {
		return "", false
	}
	name, ok := r.tables[side].FieldNames[FieldKey{Struct: st, Index: idx}]
	return name, ok && name != ""
}

// MacroText returns the macro-origin text recorded for c on side.
func (r *Resolver) MacroText(side ledger.Side, c constant.Constant) (string, bool) {
	if r == nil {
		return "", false
	}
	text, ok := r.tables[side].Macros[c]
	return text, ok
}

// MacroMatch reports how the macro tables relate the constants l and r.
// known is false unless both constants have an entry. When known, crossed
// is true iff each side's text equals the other side's literal.
// texts orders the two recorded texts.
func (r *Resolver) MacroMatch(l, rc constant.Constant) (known, crossed bool, texts int) {
	textL, okL := r.MacroText(ledger.Left, l)
	textR, okR := r.MacroText(ledger.Right, rc)
	if !okL || !okR {
		return false, false, 0
	}
	crossed = textL == Literal(rc) && textR == Literal(l)
	return true, crossed, strings.Compare(textL, textR)
}

// Literal renders the numeric-literal form of a constant.
func Literal(c constant.Constant) string {
	switch c := c.(type) {
	case *constant.Int:
		return c.X.String()
	case *constant.Float:
		return c.X.Text('g', -1)
	default:
		return c.Ident()
	}
}
