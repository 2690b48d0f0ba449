package funccmp_test

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenticularis39/diffkemp/internal/debuginfo"
	"github.com/lenticularis39/diffkemp/internal/funccmp"
	"github.com/lenticularis39/diffkemp/internal/ledger"
)

type recordingHost struct {
	always  map[string]bool
	nested  [][2]*ir.Func
	missing [][2]value.Value
}

func (h *recordingHost) AlwaysEqual(name string) bool { return h.always[name] }

func (h *recordingHost) CompareNested(l, r *ir.Func, _, _ *ir.InstCall) {
	h.nested = append(h.nested, [2]*ir.Func{l, r})
}

func (h *recordingHost) RecordMissing(l, r value.Value) {
	h.missing = append(h.missing, [2]value.Value{l, r})
}

// pair is a left and a right module, each with one function "f" and an
// entry block to build into.
type pair struct {
	ml, mr *ir.Module
	fl, fr *ir.Func
	bl, br *ir.Block
	tl, tr *debuginfo.Table
	host   *recordingHost
	cfo    bool
}

func newPair() *pair {
	p := &pair{
		ml:   ir.NewModule(),
		mr:   ir.NewModule(),
		tl:   debuginfo.NewTable(),
		tr:   debuginfo.NewTable(),
		host: &recordingHost{always: map[string]bool{"printk": true}},
	}
	p.fl = p.ml.NewFunc("f", types.Void)
	p.fr = p.mr.NewFunc("f", types.Void)
	p.bl = p.fl.NewBlock("")
	p.br = p.fr.NewBlock("")
	return p
}

func (p *pair) env(swap bool) funccmp.Env {
	res := debuginfo.NewResolver(p.tl, p.tr)
	if swap {
		res = debuginfo.NewResolver(p.tr, p.tl)
	}
	return funccmp.Env{Resolver: res, Host: p.host, ControlFlowOnly: p.cfo}
}

// cmp compares left against right; build all IR before calling it.
func (p *pair) cmp() *funccmp.Comparator {
	return funccmp.New(p.fl, p.fr, p.env(false))
}

// rev compares right against left.
func (p *pair) rev() *funccmp.Comparator {
	return funccmp.New(p.fr, p.fl, p.env(true))
}

func named(name string, fields ...types.Type) *types.StructType {
	st := types.NewStruct(fields...)
	st.SetName(name)
	return st
}

func i8(n int64) *constant.Int  { return constant.NewInt(types.I8, n) }
func i16(n int64) *constant.Int { return constant.NewInt(types.I16, n) }
func i32(n int64) *constant.Int { return constant.NewInt(types.I32, n) }

func TestCompareGEPs_Simple(t *testing.T) {
	p := newPair()
	stL := named("struct", types.I8, types.I16)
	stR := named("struct", types.I8, types.I16)
	varL, varR := p.bl.NewAlloca(stL), p.br.NewAlloca(stR)
	g1L := p.bl.NewGetElementPtr(stL, varL, i32(0), i32(0))
	g1R := p.br.NewGetElementPtr(stR, varR, i32(0), i32(0))
	g2L := p.bl.NewGetElementPtr(stL, varL, i32(0), i32(0))
	g2R := p.br.NewGetElementPtr(stR, varR, i32(0), i32(1))

	c := p.cmp()
	assert.Equal(t, 0, c.CompareGEPs(g1L, g1R))
	assert.Equal(t, -1, c.CompareGEPs(g2L, g2R))
}

func TestCompareGEPs_RenamedFields(t *testing.T) {
	p := newPair()
	stL := named("struct.test", types.I8, types.I8)
	stR := named("struct.test", types.I8, types.I8, types.I8)
	p.tl.SetFieldName(stL, 0, "attr1")
	p.tl.SetFieldName(stL, 1, "attr2")
	p.tr.SetFieldName(stR, 0, "attr1")
	p.tr.SetFieldName(stR, 1, "attr3")
	p.tr.SetFieldName(stR, 2, "attr2")

	varL, varR := p.bl.NewAlloca(stL), p.br.NewAlloca(stR)
	g1L := p.bl.NewGetElementPtr(stL, varL, i32(0), i32(1))
	g1R := p.br.NewGetElementPtr(stR, varR, i32(0), i32(2))
	g2L := p.bl.NewGetElementPtr(stL, varL, i32(0), i32(1))
	g2R := p.br.NewGetElementPtr(stR, varR, i32(0), i32(1))

	c := p.cmp()
	assert.Equal(t, 0, c.CompareGEPs(g1L, g1R))
	assert.NotEqual(t, 0, c.CompareGEPs(g2L, g2R))

	stL.SetName("struct.a")
	stR.SetName("struct.b")
	assert.NotEqual(t, 0, c.CompareGEPs(g1L, g1R))
}

func TestCompareGEPs_ArrayNotDereferenced(t *testing.T) {
	p := newPair()
	atL := types.NewArray(2, types.I8)
	atR := types.NewArray(3, types.I16)
	varL, varR := p.bl.NewAlloca(atL), p.br.NewAlloca(atR)
	g1L := p.bl.NewGetElementPtr(atL, varL, i32(0))
	g1R := p.br.NewGetElementPtr(atR, varR, i32(0))
	g2L := p.bl.NewGetElementPtr(atL, varL, i32(0))
	g2R := p.br.NewGetElementPtr(atR, varR, i32(1))

	c := p.cmp()
	// The buffers correspond; only the accesses are under test.
	c.Ledger().AssignOrLookup(ledger.Left, varL)
	c.Ledger().AssignOrLookup(ledger.Right, varR)
	assert.Equal(t, 0, c.CompareGEPs(g1L, g1R))
	assert.Equal(t, -1, c.CompareGEPs(g2L, g2R))
}

func TestCompareOperations_ICmpSignedness(t *testing.T) {
	p := newPair()
	gl := p.ml.NewGlobalDef("g", i32(6))
	gl.Immutable = true
	gr := p.mr.NewGlobalDef("g", i32(6))
	gr.Immutable = true
	cmpL := p.bl.NewICmp(enum.IPredUGT, gl, gl)
	cmpR := p.br.NewICmp(enum.IPredSGT, gr, gr)

	assert.Equal(t, -1, p.cmp().CompareOperations(cmpL, cmpR))
	assert.Equal(t, 1, p.rev().CompareOperations(cmpR, cmpL))

	p.cfo = true
	assert.Equal(t, 0, p.cmp().CompareOperations(cmpL, cmpR))
}

func TestCompareOperations_AllocasOfChangedStruct(t *testing.T) {
	p := newPair()
	allL := p.bl.NewAlloca(named("struct.test", types.I8, types.I8))
	allR := p.br.NewAlloca(named("struct.test", types.I8, types.I8, types.I8))
	assert.Equal(t, 0, p.cmp().CompareOperations(allL, allR))

	other := p.br.NewAlloca(named("struct.other", types.I8, types.I8, types.I8))
	assert.NotEqual(t, 0, p.cmp().CompareOperations(allL, other))
}

func TestCompareAllocs(t *testing.T) {
	p := newPair()
	allocL := p.ml.NewFunc("kmalloc", types.I8Ptr, ir.NewParam("size", types.I32))
	allocR := p.mr.NewFunc("kmalloc", types.I8Ptr, ir.NewParam("size", types.I32))

	sameL := p.bl.NewCall(allocL, i32(42))
	sameR := p.br.NewCall(allocR, i32(42))

	stL := named("struct.test", types.I8, types.I8)
	stR := named("struct.test", types.I8, types.I8, types.I8)
	sizedL := p.bl.NewCall(allocL, i32(2))
	sizedR := p.br.NewCall(allocR, i32(3))
	p.bl.NewBitCast(sizedL, types.NewPointer(stL))
	p.br.NewBitCast(sizedR, types.NewPointer(stR))

	stR2 := named("struct.test2", types.I8, types.I8, types.I8)
	otherL := p.bl.NewCall(allocL, i32(2))
	otherR := p.br.NewCall(allocR, i32(3))
	p.bl.NewBitCast(otherL, types.NewPointer(stL))
	p.br.NewBitCast(otherR, types.NewPointer(stR2))

	c := p.cmp()
	assert.Equal(t, 0, c.CompareAllocs(sameL, sameR))
	assert.Equal(t, 0, c.CompareAllocs(sizedL, sizedR))
	assert.NotEqual(t, 0, c.CompareAllocs(otherL, otherR))
}

func TestCompareMemset(t *testing.T) {
	p := newPair()
	params := func() []*ir.Param {
		return []*ir.Param{ir.NewParam("dst", types.I8Ptr), ir.NewParam("c", types.I32), ir.NewParam("n", types.I32)}
	}
	msL := p.ml.NewFunc("memset", types.I8Ptr, params()...)
	msR := p.mr.NewFunc("memset", types.I8Ptr, params()...)

	stL := named("struct.test", types.I8, types.I8)
	stR := named("struct.test", types.I8, types.I8, types.I8)
	allL, allR := p.bl.NewAlloca(stL), p.br.NewAlloca(stR)

	fillL := p.bl.NewCall(msL, allL, i32(5), i32(2))
	fillR := p.br.NewCall(msR, allR, i32(6), i32(3))
	sizeL := p.bl.NewCall(msL, allL, i32(5), i32(2))
	sizeR := p.br.NewCall(msR, allR, i32(5), i32(3))

	c := p.cmp()
	assert.Equal(t, -1, c.CompareMemset(fillL, fillR))
	assert.Equal(t, 0, c.CompareMemset(sizeL, sizeR))
}

func TestCompareCallsWithExtraArg(t *testing.T) {
	p := newPair()
	fnL := p.ml.NewFunc("aux", types.Void, ir.NewParam("a", types.I32), ir.NewParam("b", types.I32))
	fnR := p.mr.NewFunc("aux", types.Void, ir.NewParam("a", types.I32))

	nonZeroL := p.bl.NewCall(fnL, i32(5), i32(6))
	nonZeroR := p.br.NewCall(fnR, i32(5))
	zeroL := p.bl.NewCall(fnL, i32(5), i32(0))
	zeroR := p.br.NewCall(fnR, i32(5))

	c, r := p.cmp(), p.rev()
	assert.Equal(t, 1, c.CompareCallsWithExtraArg(nonZeroL, nonZeroR))
	assert.Equal(t, -1, r.CompareCallsWithExtraArg(nonZeroR, nonZeroL))
	assert.Equal(t, 0, c.CompareCallsWithExtraArg(zeroL, zeroR))
	assert.Equal(t, 0, r.CompareCallsWithExtraArg(zeroR, zeroL))
}

func TestCompareTypes(t *testing.T) {
	cases := []struct {
		name string
		l, r types.Type
		cfo  bool
		want int
	}{
		{"union fits scalar", named("union.test", types.I32), types.I16, false, 0},
		{"struct is not a union", named("struct.test", types.I32), types.I16, false, 1},
		{"union too small", named("union.test", types.I16), types.I32, false, 1},
		{"int widths", types.I16, types.I8, false, 1},
		{"array lengths", types.NewArray(10, types.I8), types.NewArray(11, types.I8), false, -1},
		{"int widths control flow", types.I16, types.I8, true, 0},
		{"array lengths control flow", types.NewArray(10, types.I8), types.NewArray(11, types.I8), true, 0},
		{"bool stays distinct", types.NewArray(10, types.I1), types.NewArray(11, types.I8), true, -1},
		{"pointers by address space", types.NewPointer(types.I8), types.NewPointer(types.I64), false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPair()
			p.cfo = tc.cfo
			assert.Equal(t, tc.want, p.cmp().CompareTypes(tc.l, tc.r))
			assert.Equal(t, -tc.want, p.rev().CompareTypes(tc.r, tc.l))
		})
	}
}

// withCallee defines "aux" taking one i32 in both modules.
func (p *pair) withCallee() (*ir.Func, *ir.Func) {
	def := func(m *ir.Module) *ir.Func {
		f := m.NewFunc("aux", types.Void, ir.NewParam("x", types.I32))
		f.NewBlock("").NewRet(nil)
		return f
	}
	return def(p.ml), def(p.mr)
}

func TestCompareBasicBlocks_InlineLeft(t *testing.T) {
	p := newPair()
	auxL, _ := p.withCallee()
	call := p.bl.NewCall(auxL, i32(1))
	p.bl.NewRet(nil)
	p.br.NewAlloca(types.I8)
	p.br.NewRet(nil)

	c := p.cmp()
	assert.Equal(t, 1, c.CompareBasicBlocks(p.bl, p.br))
	assert.Equal(t, funccmp.InlineRequest{Left: call}, c.InlineRequest())
	assert.True(t, c.InlineRequest().OneSided())
}

func TestCompareBasicBlocks_InlineRight(t *testing.T) {
	p := newPair()
	_, auxR := p.withCallee()
	p.bl.NewAlloca(types.I8)
	p.bl.NewRet(nil)
	call := p.br.NewCall(auxR, i32(1))
	p.br.NewRet(nil)

	c := p.cmp()
	assert.Equal(t, -1, c.CompareBasicBlocks(p.bl, p.br))
	assert.Equal(t, funccmp.InlineRequest{Right: call}, c.InlineRequest())
}

func TestCompareBasicBlocks_InlineBoth(t *testing.T) {
	p := newPair()
	auxL, auxR := p.withCallee()
	callL := p.bl.NewCall(auxL, i32(5))
	p.bl.NewRet(nil)
	callR := p.br.NewCall(auxR, i32(6))
	p.br.NewRet(nil)

	c := p.cmp()
	assert.NotEqual(t, 0, c.Compare())
	assert.Equal(t, funccmp.StateInlineRequested, c.State())
	assert.Equal(t, funccmp.InlineRequest{Left: callL, Right: callR}, c.InlineRequest())
}

func TestCompareBasicBlocks_IgnoresAllocas(t *testing.T) {
	p := newPair()
	p.bl.NewAlloca(types.I8)
	p.bl.NewRet(nil)
	p.br.NewAlloca(types.I8)
	p.br.NewAlloca(types.I8)
	p.br.NewRet(nil)

	assert.Equal(t, 0, p.cmp().CompareBasicBlocks(p.bl, p.br))
	assert.Equal(t, 0, p.rev().CompareBasicBlocks(p.br, p.bl))
}

func TestCompareBasicBlocks_DebugCallsIgnored(t *testing.T) {
	p := newPair()
	dbg := p.ml.NewFunc("llvm.dbg.value", types.Void, ir.NewParam("v", types.Metadata))
	p.bl.NewCall(dbg, i32(0))
	p.bl.NewRet(nil)
	p.br.NewRet(nil)

	c := p.cmp()
	assert.Equal(t, 0, c.CompareBasicBlocks(p.bl, p.br))
	assert.True(t, c.InlineRequest().Empty())
}

func TestCompareGlobalValues_ConstantVars(t *testing.T) {
	p := newPair()
	gl := p.ml.NewGlobalDef("", i32(6))
	gl.Immutable = true
	gr := p.mr.NewGlobalDef("", i32(6))
	gr.Immutable = true
	gr2 := p.mr.NewGlobalDef("", i32(5))
	gr2.Immutable = true

	c := p.cmp()
	assert.Equal(t, 0, c.CompareGlobalValues(gl, gr))
	assert.Equal(t, 1, c.CompareGlobalValues(gl, gr2))
	assert.Empty(t, p.host.missing)
}

func TestCompareGlobalValues_NonConstantVarsByName(t *testing.T) {
	p := newPair()
	gl := p.ml.NewGlobalDef("test.0", i32(6))
	gr := p.mr.NewGlobalDef("test.1", i32(6))
	gr2 := p.mr.NewGlobalDef("test2.1", i32(6))

	c := p.cmp()
	assert.Equal(t, 0, c.CompareGlobalValues(gl, gr))
	assert.NotEqual(t, 0, c.CompareGlobalValues(gl, gr2))
}

func TestCompareGlobalValues_MissingDefinition(t *testing.T) {
	p := newPair()
	gl := p.ml.NewGlobal("missing", types.I8)
	gl.Immutable = true
	gr := p.mr.NewGlobal("missing2", types.I8)
	gr.Immutable = true

	assert.NotEqual(t, 0, p.cmp().CompareGlobalValues(gl, gr))
	require.Len(t, p.host.missing, 1)
	assert.Equal(t, value.Value(gl), p.host.missing[0][0])
	assert.Equal(t, value.Value(gr), p.host.missing[0][1])
}

func TestCompareGlobalValues_NonConstantDefinedOnOneSide(t *testing.T) {
	p := newPair()
	gl := p.ml.NewGlobalDef("state", i32(0))
	gr := p.mr.NewGlobal("state", types.I32)
	both := p.mr.NewGlobalDef("state", i32(1))

	c := p.cmp()
	assert.Equal(t, 0, c.CompareGlobalValues(gl, gr))
	require.Len(t, p.host.missing, 1)
	assert.Equal(t, value.Value(gl), p.host.missing[0][0])
	assert.Equal(t, value.Value(gr), p.host.missing[0][1])

	assert.Equal(t, 0, c.CompareGlobalValues(gl, both))
	assert.Len(t, p.host.missing, 1)
}

func TestCompareGlobalValues_Functions(t *testing.T) {
	p := newPair()
	auxL, auxR := p.withCallee()
	printL := p.ml.NewFunc("printk", types.I32)
	printL.NewBlock("").NewRet(i32(0))
	printR := p.mr.NewFunc("printk", types.I32)
	printR.NewBlock("").NewRet(i32(1))

	c := p.cmp()
	assert.Equal(t, 0, c.CompareGlobalValues(auxL, auxR))
	assert.Equal(t, [][2]*ir.Func{{auxL, auxR}}, p.host.nested)

	assert.Equal(t, 0, c.CompareGlobalValues(printL, printR))
	assert.Len(t, p.host.nested, 1)
}

func TestCompareGlobalValues_FieldAccess(t *testing.T) {
	p := newPair()
	unionL := named("union.test", types.I8)
	stL := named("struct.test", unionL)
	stR := named("struct.test", types.I8)

	accL := p.ml.NewFunc(funccmp.FieldAccessPrefix+".0", types.I8Ptr, ir.NewParam("p", types.NewPointer(stL)))
	accR := p.mr.NewFunc(funccmp.FieldAccessPrefix+".0", types.I8Ptr, ir.NewParam("p", types.NewPointer(stR)))
	bl, br := accL.NewBlock(""), accR.NewBlock("")
	g1 := bl.NewGetElementPtr(stL, accL.Params[0], i32(0), i32(0))
	bl.NewGetElementPtr(unionL, g1, i32(0), i32(0))
	bl.NewRet(g1)
	gr := br.NewGetElementPtr(stR, accR.Params[0], i32(0), i32(0))
	br.NewRet(gr)

	c := p.cmp()
	assert.Equal(t, 0, c.CompareGlobalValues(accL, accR))
	assert.Empty(t, p.host.nested)

	accL.SetName("not_a_field_access")
	accR.SetName("not_a_field_access")
	assert.Equal(t, 0, c.CompareGlobalValues(accL, accR))
	assert.Len(t, p.host.nested, 1)
}

// accessor defines a field-access function of st returning a pointer to
// the field at path.
func accessor(m *ir.Module, st *types.StructType, path ...int64) *ir.Func {
	f := m.NewFunc(funccmp.FieldAccessPrefix+".1", types.I8Ptr, ir.NewParam("p", types.NewPointer(st)))
	b := f.NewBlock("")
	idx := []value.Value{i32(0)}
	for _, x := range path {
		idx = append(idx, i32(x))
	}
	g := b.NewGetElementPtr(st, f.Params[0], idx...)
	b.NewRet(b.NewBitCast(g, types.I8Ptr))
	return f
}

func TestCompareFieldAccess_UnnamedFieldsByOffset(t *testing.T) {
	p := newPair()
	stL := named("struct.s", types.I32, types.I32)
	stR := named("struct.s", types.I16, types.I16, types.I32)

	// Field 1 on the left and field 2 on the right both sit at byte 4.
	accL, accR := accessor(p.ml, stL, 1), accessor(p.mr, stR, 2)
	assert.Equal(t, 0, p.cmp().CompareFieldAccess(accL, accR))
	assert.Equal(t, 0, funccmp.New(accR, accL, p.env(true)).CompareFieldAccess(accR, accL))

	// Field 1 on the right sits at byte 2.
	other := accessor(p.mr, stR, 1)
	res := p.cmp().CompareFieldAccess(accL, other)
	assert.Equal(t, 1, res)
	assert.Equal(t, -res, funccmp.New(other, accL, p.env(true)).CompareFieldAccess(other, accL))
}

func TestCompareFieldAccess_NamesBeforeOffsets(t *testing.T) {
	p := newPair()
	stL := named("struct.s", types.I8, types.I8)
	stR := named("struct.s", types.I8, types.I8, types.I8)
	p.tl.SetFieldName(stL, 0, "attr1")
	p.tl.SetFieldName(stL, 1, "attr2")
	p.tr.SetFieldName(stR, 0, "attr1")
	p.tr.SetFieldName(stR, 1, "attr3")
	p.tr.SetFieldName(stR, 2, "attr2")

	accL := accessor(p.ml, stL, 1)
	assert.Equal(t, 0, p.cmp().CompareFieldAccess(accL, accessor(p.mr, stR, 2)))
	// Same offset as attr2 on the left, but a different field.
	assert.NotEqual(t, 0, p.cmp().CompareFieldAccess(accL, accessor(p.mr, stR, 1)))
}

func TestCompareValues_CorrespondenceBySerial(t *testing.T) {
	p := newPair()
	al, bl := p.bl.NewAdd(i32(1), i32(2)), p.bl.NewAdd(i32(3), i32(4))
	ar, br := p.br.NewAdd(i32(1), i32(2)), p.br.NewAdd(i32(3), i32(4))

	c := p.cmp()
	require.Equal(t, 0, c.CompareValues(al, ar))
	require.Equal(t, 0, c.CompareValues(bl, br))
	assert.Equal(t, -1, c.CompareValues(al, br))
	assert.Equal(t, 1, c.CompareValues(bl, ar))

	snL, okL := c.Ledger().Lookup(ledger.Left, bl)
	snR, okR := c.Ledger().Lookup(ledger.Right, br)
	require.True(t, okL && okR)
	assert.True(t, ledger.SameCorrespondence(snL, snR))
}

func TestCompareValues_PointerCasts(t *testing.T) {
	p := newPair()
	ptrL := p.bl.NewIntToPtr(i32(0), types.I8Ptr)
	ptrR := p.br.NewIntToPtr(i32(0), types.I8Ptr)
	castL := p.bl.NewBitCast(ptrL, types.NewPointer(types.I32))
	castR := p.br.NewBitCast(ptrR, types.NewPointer(types.I16))

	c := p.cmp()
	assert.Equal(t, 0, c.CompareValues(ptrL, ptrR))
	assert.Equal(t, 0, c.CompareValues(castL, castR))
	assert.Equal(t, 0, c.CompareValues(ptrL, castR))
	assert.Equal(t, 0, c.CompareValues(castL, ptrR))
}

func TestCompareValues_CastFromUnion(t *testing.T) {
	p := newPair()
	union := named("union.test", types.I8)
	castL := p.bl.NewBitCast(constant.NewStruct(union, i8(0)), types.I8)

	c, r := p.cmp(), p.rev()
	assert.Equal(t, 0, c.CompareValues(castL, i8(0)))
	assert.Equal(t, 0, r.CompareValues(i8(0), castL))

	res := c.CompareValues(castL, i8(1))
	assert.NotEqual(t, 0, res)
	assert.Equal(t, -res, r.CompareValues(i8(1), castL))
}

func TestCompareValues_IntTrunc(t *testing.T) {
	p := newPair()
	trunc := p.bl.NewTrunc(i16(0), types.I8)

	assert.Equal(t, -1, p.cmp().CompareValues(trunc, i16(0)))
	assert.Equal(t, 1, p.rev().CompareValues(i16(0), trunc))

	p.cfo = true
	assert.Equal(t, 0, p.cmp().CompareValues(trunc, i16(0)))
	assert.Equal(t, 0, p.rev().CompareValues(i16(0), trunc))
}

func TestCompareValues_IntExt(t *testing.T) {
	p := newPair()
	ext := p.bl.NewSExt(i16(0), types.I32)

	assert.Equal(t, 0, p.cmp().CompareValues(ext, i16(0)))
	assert.Equal(t, 0, p.rev().CompareValues(i16(0), ext))

	wide := p.bl.NewSExt(ext, types.I64)
	p.bl.NewAdd(wide, wide)

	assert.Equal(t, -1, p.cmp().CompareValues(ext, i16(0)))
	assert.Equal(t, 1, p.rev().CompareValues(i16(0), ext))
}

func TestCompareValues_MacroConstants(t *testing.T) {
	p := newPair()
	zero, one := i8(0), i8(1)

	assert.Equal(t, -1, p.cmp().CompareValues(zero, one))

	p.tl.SetMacro(zero, "1")
	p.tr.SetMacro(one, "0")
	assert.Equal(t, 0, p.cmp().CompareValues(zero, one))
	assert.Equal(t, 0, p.rev().CompareValues(one, zero))

	p.tl.SetMacro(zero, "42")
	p.tr.SetMacro(one, "93")
	assert.NotEqual(t, 0, p.cmp().CompareValues(zero, one))

	// Equal literals that come from different macros differ.
	a, b := i8(3), i8(3)
	p.tl.SetMacro(a, "FLAG_A")
	p.tr.SetMacro(b, "FLAG_B")
	assert.Equal(t, -1, p.cmp().CompareValues(a, b))
}

func TestCompareConstants_IntCastUnderControlFlowOnly(t *testing.T) {
	p := newPair()
	p.cfo = true
	zero, one := i8(0), i8(1)
	cast := constant.NewZExt(i8(0), types.I8)

	c, r := p.cmp(), p.rev()
	assert.Equal(t, 0, c.CompareConstants(zero, cast))
	assert.Equal(t, 0, r.CompareConstants(cast, zero))
	assert.Equal(t, 1, c.CompareConstants(one, cast))
	assert.Equal(t, -1, r.CompareConstants(cast, one))
}

// buildLoop defines loop(), which counts up to limit and returns the counter.
func buildLoop(m *ir.Module, limit int64) *ir.Func {
	f := m.NewFunc("loop", types.I32)
	entry, body, exit := f.NewBlock("entry"), f.NewBlock("body"), f.NewBlock("exit")
	entry.NewBr(body)
	phi := body.NewPhi(ir.NewIncoming(i32(0), entry), ir.NewIncoming(i32(0), body))
	next := body.NewAdd(phi, i32(1))
	phi.Incs[1].X = next
	cond := body.NewICmp(enum.IPredSLT, next, i32(limit))
	body.NewCondBr(cond, body, exit)
	exit.NewRet(phi)
	return f
}

func TestCompare_Loops(t *testing.T) {
	p := newPair()
	l, r := buildLoop(p.ml, 10), buildLoop(p.mr, 10)
	c := funccmp.New(l, r, p.env(false))
	assert.Equal(t, 0, c.Compare())
	assert.Equal(t, funccmp.StateEqual, c.State())

	other := buildLoop(ir.NewModule(), 11)
	c = funccmp.New(l, other, p.env(false))
	assert.Equal(t, -1, c.Compare())
	assert.Equal(t, funccmp.StateNotEqual, c.State())
	assert.True(t, c.InlineRequest().Empty())
}

func TestCompare_SignatureArity(t *testing.T) {
	p := newPair()
	l := p.ml.NewFunc("g", types.Void, ir.NewParam("a", types.I32))
	l.NewBlock("").NewRet(nil)
	r := p.mr.NewFunc("g", types.Void)
	r.NewBlock("").NewRet(nil)

	c := funccmp.New(l, r, p.env(false))
	assert.Equal(t, 1, c.Compare())
	assert.Equal(t, funccmp.StateNotEqual, c.State())
}
