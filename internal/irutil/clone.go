package irutil

import (
	"fmt"
	"reflect"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// shallowCopy duplicates the struct behind a pointer.
func shallowCopy[T any](v T) (T, error) {
	var zero T
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return zero, fmt.Errorf("%w: %T is not a pointer", ErrNotInlinable, v)
	}
	c := reflect.New(rv.Elem().Type())
	c.Elem().Set(rv.Elem())
	out, ok := c.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("%w: cannot copy %T", ErrNotInlinable, v)
	}
	return out, nil
}

// cloneInst copies an instruction so that rewriting the operands of the
// copy leaves the original untouched.
func cloneInst(inst ir.Instruction) (ir.Instruction, error) {
	c, err := shallowCopy(inst)
	if err != nil {
		return nil, err
	}
	switch c := c.(type) {
	case *ir.InstCall:
		c.Args = append([]value.Value(nil), c.Args...)
	case *ir.InstGetElementPtr:
		c.Indices = append([]value.Value(nil), c.Indices...)
	case *ir.InstPhi:
		incs := make([]*ir.Incoming, len(c.Incs))
		for i, inc := range c.Incs {
			cp := *inc
			incs[i] = &cp
		}
		c.Incs = incs
	}
	return c, nil
}

func cloneTerm(term ir.Terminator) (ir.Terminator, error) {
	switch term.(type) {
	case *ir.TermRet, *ir.TermBr, *ir.TermCondBr, *ir.TermSwitch, *ir.TermUnreachable:
	default:
		return nil, fmt.Errorf("%w: terminator %T", ErrNotInlinable, term)
	}
	c, err := shallowCopy(term)
	if err != nil {
		return nil, err
	}
	if sw, ok := c.(*ir.TermSwitch); ok {
		cases := make([]*ir.Case, len(sw.Cases))
		for i, cs := range sw.Cases {
			cp := *cs
			cases[i] = &cp
		}
		sw.Cases = cases
	}
	return c, nil
}

// remapper rewrites cloned operands and block edges through a value map.
type remapper map[value.Value]value.Value

func (m remapper) operands(inst any) {
	for _, ref := range OperandRefs(inst) {
		if *ref == nil {
			continue
		}
		if nv, ok := m[*ref]; ok {
			*ref = nv
		}
	}
	switch inst := inst.(type) {
	case *ir.InstPhi:
		for _, inc := range inst.Incs {
			m.block(&inc.Pred)
		}
	case *ir.TermBr:
		m.block(&inst.Target)
	case *ir.TermCondBr:
		m.block(&inst.TargetTrue)
		m.block(&inst.TargetFalse)
	case *ir.TermSwitch:
		m.block(&inst.TargetDefault)
		for _, cs := range inst.Cases {
			m.block(&cs.Target)
		}
	}
}

func (m remapper) block(ref *value.Value) {
	if nv, ok := m[*ref]; ok {
		*ref = nv
	}
}
