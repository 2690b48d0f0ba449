package irutil

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// Position locates an instruction inside its function. The terminator of
// a block sits at Index == len(Block.Insts).
type Position struct {
	Block *ir.Block
	Index int
}

// Index is a side table over one function body: llir instructions carry no
// parent links, so positions and users are computed once per comparison.
// An Index is invalid after the function is mutated.
type Index struct {
	fn    *ir.Func
	pos   map[any]Position
	users map[value.Value][]any
}

// NewIndex indexes every instruction and terminator of f.
func NewIndex(f *ir.Func) *Index {
	x := &Index{
		fn:    f,
		pos:   make(map[any]Position),
		users: make(map[value.Value][]any),
	}
	if f == nil {
		return x
	}
	for _, b := range f.Blocks {
		for i, inst := range b.Insts {
			x.pos[inst] = Position{Block: b, Index: i}
			x.addUses(inst)
		}
		if b.Term != nil {
			x.pos[b.Term] = Position{Block: b, Index: len(b.Insts)}
			x.addUses(b.Term)
		}
	}
	return x
}

func (x *Index) addUses(user any) {
	for _, op := range Operands(user) {
		x.users[op] = append(x.users[op], user)
	}
}

// Func returns the indexed function.
func (x *Index) Func() *ir.Func {
	return x.fn
}

// Position returns where inst sits.
func (x *Index) Position(inst any) (Position, bool) {
	p, ok := x.pos[inst]
	return p, ok
}

// Contains reports whether inst belongs to the indexed function.
func (x *Index) Contains(inst any) bool {
	_, ok := x.pos[inst]
	return ok
}

// Next returns the instruction or terminator following inst, or nil after
// the terminator.
func (x *Index) Next(inst any) any {
	p, ok := x.pos[inst]
	if !ok {
		return nil
	}
	switch {
	case p.Index+1 < len(p.Block.Insts):
		return p.Block.Insts[p.Index+1]
	case p.Index+1 == len(p.Block.Insts):
		return p.Block.Term
	default:
		return nil
	}
}

// Users returns the instructions and terminators that use v as an operand.
func (x *Index) Users(v value.Value) []any {
	return x.users[v]
}

// HasUses reports whether anything in the function uses v.
func (x *Index) HasUses(v value.Value) bool {
	return len(x.users[v]) > 0
}
