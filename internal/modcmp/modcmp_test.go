package modcmp_test

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenticularis39/diffkemp/internal/modcmp"
	"github.com/lenticularis39/diffkemp/internal/trace"
)

func i32(v int64) *constant.Int {
	return constant.NewInt(types.I32, v)
}

// returning defines name() returning v.
func returning(m *ir.Module, name string, v int64) *ir.Func {
	f := m.NewFunc(name, types.I32)
	f.NewBlock("").NewRet(i32(v))
	return f
}

// caller defines name() returning the result of callee().
func caller(m *ir.Module, name string, callee *ir.Func) *ir.Func {
	f := m.NewFunc(name, types.I32)
	b := f.NewBlock("")
	b.NewRet(b.NewCall(callee))
	return f
}

func TestCompare_NestedDifference(t *testing.T) {
	ml, mr := ir.NewModule(), ir.NewModule()
	hl, hr := returning(ml, "helper", 1), returning(mr, "helper", 2)
	fl, fr := caller(ml, "main", hl), caller(mr, "main", hr)

	m := modcmp.New(ml, mr, modcmp.Inputs{}, modcmp.Options{})
	res := m.Compare(fl, fr)
	assert.Equal(t, modcmp.Equal, res.Kind)

	diffs := m.Differences()
	require.Len(t, diffs, 1)
	assert.Equal(t, "helper", diffs[0].First.Name)
	assert.Equal(t, "helper", diffs[0].Second.Name)
	require.Len(t, diffs[0].First.CallStack, 1)
	assert.Equal(t, "helper", diffs[0].First.CallStack[0].Function)
	assert.False(t, diffs[0].Inconclusive)

	nested, ok := m.Lookup(hl, hr)
	require.True(t, ok)
	assert.Same(t, diffs[0], nested)
}

func TestCompare_AlwaysEqualNotMemoized(t *testing.T) {
	ml, mr := ir.NewModule(), ir.NewModule()
	pl, pr := returning(ml, "printk", 1), returning(mr, "printk", 2)
	fl, fr := caller(ml, "main", pl), caller(mr, "main", pr)

	m := modcmp.New(ml, mr, modcmp.Inputs{}, modcmp.Options{AlwaysEqual: []string{"printk"}})
	res := m.Compare(fl, fr)
	assert.Equal(t, modcmp.Equal, res.Kind)
	assert.Empty(t, m.Differences())

	_, ok := m.Lookup(pl, pr)
	assert.False(t, ok)
}

func TestCompare_Idempotent(t *testing.T) {
	ml, mr := ir.NewModule(), ir.NewModule()
	hl := ml.NewFunc("helper", types.I32, ir.NewParam("x", types.I32))
	hb := hl.NewBlock("")
	hb.NewRet(hb.NewAdd(hl.Params[0], i32(1)))

	fl := ml.NewFunc("main", types.I32, ir.NewParam("x", types.I32))
	bl := fl.NewBlock("")
	bl.NewRet(bl.NewCall(hl, fl.Params[0]))

	fr := mr.NewFunc("main", types.I32, ir.NewParam("x", types.I32))
	br := fr.NewBlock("")
	br.NewRet(br.NewAdd(fr.Params[0], i32(1)))

	m := modcmp.New(ml, mr, modcmp.Inputs{}, modcmp.Options{})
	first := m.Compare(fl, fr)
	logged := len(m.InlineLog())

	second := m.Compare(fl, fr)
	assert.Same(t, first, second)
	assert.Len(t, m.InlineLog(), logged)
}

func TestCompare_InliningConverges(t *testing.T) {
	ml, mr := ir.NewModule(), ir.NewModule()
	hl := ml.NewFunc("helper", types.I32, ir.NewParam("x", types.I32))
	hb := hl.NewBlock("")
	hb.NewRet(hb.NewAdd(hl.Params[0], i32(1)))

	fl := ml.NewFunc("main", types.I32, ir.NewParam("x", types.I32))
	bl := fl.NewBlock("")
	bl.NewRet(bl.NewCall(hl, fl.Params[0]))

	fr := mr.NewFunc("main", types.I32, ir.NewParam("x", types.I32))
	br := fr.NewBlock("")
	br.NewRet(br.NewAdd(fr.Params[0], i32(1)))

	ring := trace.NewRingTracer(64, trace.LevelDebug)
	m := modcmp.New(ml, mr, modcmp.Inputs{}, modcmp.Options{Tracer: ring})
	res := m.Compare(fl, fr)

	assert.Equal(t, modcmp.Equal, res.Kind)
	assert.Equal(t, 1, res.Attempts)
	log := m.InlineLog()
	require.Len(t, log, 1)
	assert.Equal(t, "helper", log[0].Left)
	assert.Empty(t, log[0].Right)
	assert.Equal(t, "main", log[0].First)

	// The callee keeps its body; only the caller changed.
	require.Len(t, hl.Blocks, 1)
	assert.Len(t, hb.Insts, 1)
	_, isAdd := bl.Insts[0].(*ir.InstAdd)
	assert.True(t, isAdd)

	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, "inline")
	assert.Contains(t, names, "main")
}

func TestCompare_InlineBoundInconclusive(t *testing.T) {
	ml, mr := ir.NewModule(), ir.NewModule()
	rec := ml.NewFunc("rec", types.I32, ir.NewParam("x", types.I32))
	rb := rec.NewBlock("")
	rb.NewRet(rb.NewCall(rec, rec.Params[0]))

	fl := ml.NewFunc("main", types.I32, ir.NewParam("x", types.I32))
	bl := fl.NewBlock("")
	bl.NewRet(bl.NewCall(rec, fl.Params[0]))

	fr := mr.NewFunc("main", types.I32, ir.NewParam("x", types.I32))
	br := fr.NewBlock("")
	br.NewRet(br.NewAdd(fr.Params[0], i32(1)))

	m := modcmp.New(ml, mr, modcmp.Inputs{}, modcmp.Options{MaxInlineDepth: 3})
	res := m.Compare(fl, fr)

	assert.Equal(t, modcmp.NotEqual, res.Kind)
	assert.True(t, res.Inconclusive)
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, m.InlineLog(), 3)
	require.Len(t, m.Differences(), 1)
	assert.Same(t, res, m.Differences()[0])
}

func TestCompare_MissingDefinition(t *testing.T) {
	ml, mr := ir.NewModule(), ir.NewModule()
	dl := ml.NewFunc("foo", types.Void)
	dl.NewBlock("").NewRet(nil)
	dr := mr.NewFunc("foo", types.Void)

	fl := ml.NewFunc("main", types.Void)
	bl := fl.NewBlock("")
	bl.NewCall(dl)
	bl.NewRet(nil)
	fr := mr.NewFunc("main", types.Void)
	br := fr.NewBlock("")
	br.NewCall(dr)
	br.NewRet(nil)

	m := modcmp.New(ml, mr, modcmp.Inputs{}, modcmp.Options{})
	res := m.Compare(fl, fr)

	assert.Equal(t, modcmp.NotEqual, res.Kind)
	assert.False(t, res.Inconclusive)
	assert.Equal(t, []modcmp.MissingDef{{Second: "foo"}}, m.MissingDefs())
}

func TestCompare_MutualRecursion(t *testing.T) {
	build := func() (*ir.Module, *ir.Func, *ir.Func) {
		m := ir.NewModule()
		a := m.NewFunc("a", types.I32)
		b := m.NewFunc("b", types.I32)
		ab := a.NewBlock("")
		ab.NewRet(ab.NewCall(b))
		bb := b.NewBlock("")
		bb.NewRet(bb.NewCall(a))
		return m, a, b
	}
	ml, al, bl := build()
	mr, ar, br := build()

	m := modcmp.New(ml, mr, modcmp.Inputs{}, modcmp.Options{})
	res := m.Compare(al, ar)
	assert.Equal(t, modcmp.Equal, res.Kind)

	nested, ok := m.Lookup(bl, br)
	require.True(t, ok)
	assert.Equal(t, modcmp.Equal, nested.Kind)
	assert.Empty(t, m.Differences())
}

func TestFrameString(t *testing.T) {
	assert.Equal(t, "foo", modcmp.Frame{Function: "foo"}.String())
	assert.Equal(t, "foo at a.c:12", modcmp.Frame{Function: "foo", File: "a.c", Line: 12}.String())
}
