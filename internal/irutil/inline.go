package irutil

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// ErrNotInlinable is returned when a call site cannot be expanded.
var ErrNotInlinable = errors.New("call site cannot be inlined")

// Inlinable reports whether InlineCall could expand call inside caller.
func Inlinable(caller *ir.Func, call *ir.InstCall) bool {
	callee := CalledFunction(call)
	if callee == nil || IsDeclaration(callee) || callee == caller {
		return false
	}
	if callee.Sig != nil && callee.Sig.Variadic {
		return false
	}
	return len(call.Args) == len(callee.Params)
}

// InlineCall replaces call in caller by a copy of the callee body. The
// callee body of a single returning block is spliced in place of the call.
// Otherwise the block holding the call is split: the part after the call
// moves to a continuation block that every cloned return branches to. Only
// the caller body changes; the callee is read.
func InlineCall(caller *ir.Func, call *ir.InstCall, tag string) error {
	if !Inlinable(caller, call) {
		return fmt.Errorf("%w: %s in %s", ErrNotInlinable, CalleeName(call), caller.Name())
	}
	callee := CalledFunction(call)

	bi, ii := -1, -1
	for i, b := range caller.Blocks {
		for j, inst := range b.Insts {
			if inst == ir.Instruction(call) {
				bi, ii = i, j
			}
		}
	}
	if bi < 0 {
		return fmt.Errorf("%w: call to %s not found in %s", ErrNotInlinable, callee.Name(), caller.Name())
	}
	site := caller.Blocks[bi]

	n := 0
	fresh := func(base string) string {
		n++
		if base == "" {
			base = "v"
		}
		return fmt.Sprintf("%s.%s.%d", base, tag, n)
	}

	vmap := make(remapper)
	for i, p := range callee.Params {
		vmap[p] = call.Args[i]
	}
	if len(callee.Blocks) == 1 {
		if r, ok := callee.Blocks[0].Term.(*ir.TermRet); ok {
			return splice(caller, site, ii, call, callee.Blocks[0], r, vmap, fresh)
		}
	}

	clones := make([]*ir.Block, len(callee.Blocks))
	for i, cb := range callee.Blocks {
		nb := ir.NewBlock(fresh(cb.Name()))
		nb.Parent = caller
		clones[i] = nb
		vmap[cb] = nb
	}
	cont := ir.NewBlock(fresh(site.Name()))
	cont.Parent = caller

	for i, cb := range callee.Blocks {
		for _, inst := range cb.Insts {
			c, err := cloneInst(inst)
			if err != nil {
				return err
			}
			if v, ok := inst.(value.Value); ok {
				if cv, ok := c.(value.Value); ok {
					vmap[v] = cv
				}
			}
			if named, ok := c.(value.Named); ok {
				named.SetName(fresh(named.Name()))
			}
			clones[i].Insts = append(clones[i].Insts, c)
		}
		t, err := cloneTerm(cb.Term)
		if err != nil {
			return err
		}
		clones[i].Term = t
	}

	type ret struct {
		x     value.Value
		block *ir.Block
	}
	var rets []ret
	for _, nb := range clones {
		for _, inst := range nb.Insts {
			vmap.operands(inst)
		}
		vmap.operands(nb.Term)
		if r, ok := nb.Term.(*ir.TermRet); ok {
			rets = append(rets, ret{x: r.X, block: nb})
			nb.Term = ir.NewBr(cont)
		}
	}

	cont.Insts = append([]ir.Instruction(nil), site.Insts[ii+1:]...)
	cont.Term = site.Term
	site.Insts = site.Insts[:ii]
	site.Term = ir.NewBr(clones[0])

	var repl value.Value
	if !call.Type().Equal(types.Void) {
		switch len(rets) {
		case 0:
			// The continuation is unreachable; its uses of the call get undef.
			repl = constant.NewUndef(call.Type())
		case 1:
			repl = rets[0].x
		default:
			incs := make([]*ir.Incoming, 0, len(rets))
			for _, r := range rets {
				incs = append(incs, ir.NewIncoming(r.x, r.block))
			}
			phi := ir.NewPhi(incs...)
			phi.SetName(fresh(call.Name()))
			cont.Insts = append([]ir.Instruction{phi}, cont.Insts...)
			repl = phi
		}
	}

	blocks := make([]*ir.Block, 0, len(caller.Blocks)+len(clones)+1)
	blocks = append(blocks, caller.Blocks[:bi+1]...)
	blocks = append(blocks, clones...)
	blocks = append(blocks, cont)
	blocks = append(blocks, caller.Blocks[bi+1:]...)
	caller.Blocks = blocks

	for _, b := range caller.Blocks {
		for _, inst := range b.Insts {
			replaceUses(inst, call, repl)
			if phi, ok := inst.(*ir.InstPhi); ok && b != cont {
				for _, inc := range phi.Incs {
					if inc.Pred == value.Value(site) {
						inc.Pred = cont
					}
				}
			}
		}
		replaceUses(b.Term, call, repl)
	}
	return nil
}

func splice(caller *ir.Func, site *ir.Block, at int, call *ir.InstCall, body *ir.Block, r *ir.TermRet, vmap remapper, fresh func(string) string) error {
	insts := make([]ir.Instruction, 0, len(body.Insts))
	for _, inst := range body.Insts {
		c, err := cloneInst(inst)
		if err != nil {
			return err
		}
		if v, ok := inst.(value.Value); ok {
			if cv, ok := c.(value.Value); ok {
				vmap[v] = cv
			}
		}
		if named, ok := c.(value.Named); ok {
			named.SetName(fresh(named.Name()))
		}
		insts = append(insts, c)
	}
	for _, inst := range insts {
		vmap.operands(inst)
	}

	merged := make([]ir.Instruction, 0, len(site.Insts)+len(insts))
	merged = append(merged, site.Insts[:at]...)
	merged = append(merged, insts...)
	merged = append(merged, site.Insts[at+1:]...)
	site.Insts = merged

	if call.Type().Equal(types.Void) || r.X == nil {
		return nil
	}
	repl := r.X
	if nv, ok := vmap[repl]; ok {
		repl = nv
	}
	for _, b := range caller.Blocks {
		for _, inst := range b.Insts {
			replaceUses(inst, call, repl)
		}
		replaceUses(b.Term, call, repl)
	}
	return nil
}

func replaceUses(user any, old, repl value.Value) {
	if user == nil || repl == nil {
		return
	}
	for _, ref := range OperandRefs(user) {
		if *ref == old {
			*ref = repl
		}
	}
}
