package fieldaccess_test

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenticularis39/diffkemp/internal/analysis"
	"github.com/lenticularis39/diffkemp/internal/fieldaccess"
	"github.com/lenticularis39/diffkemp/internal/irutil"
)

func i32(n int64) *constant.Int { return constant.NewInt(types.I32, n) }

type chain struct {
	fn     *ir.Func
	st     types.Type
	g1     *ir.InstGetElementPtr
	cast   *ir.InstBitCast
	g2     *ir.InstGetElementPtr
	noise  *ir.InstAdd
	toInt  *ir.InstPtrToInt
	varGEP *ir.InstGetElementPtr
}

func buildChain() chain {
	m := ir.NewModule()
	st := m.NewTypeDef("struct.test", types.NewStruct(types.I32, types.I8))
	f := m.NewFunc("f", types.Void, ir.NewParam("arg", types.NewPointer(st)), ir.NewParam("n", types.I32))
	b := f.NewBlock("entry")
	c := chain{fn: f, st: st}
	c.g1 = b.NewGetElementPtr(st, f.Params[0], i32(0), i32(1))
	c.cast = b.NewBitCast(c.g1, types.NewPointer(types.I32))
	c.noise = b.NewAdd(i32(1), i32(2))
	c.g2 = b.NewGetElementPtr(types.I32, c.cast, i32(2))
	c.toInt = b.NewPtrToInt(c.g2, types.I64)
	c.varGEP = b.NewGetElementPtr(types.I32, c.cast, f.Params[1])
	b.NewRet(nil)
	return c
}

func TestFindStart(t *testing.T) {
	c := buildChain()
	assert.Same(t, c.g1, fieldaccess.FindStart(c.g1))
	assert.Same(t, c.g1, fieldaccess.FindStart(c.cast))
	assert.Same(t, c.g1, fieldaccess.FindStart(c.g2))
	assert.Nil(t, fieldaccess.FindStart(c.fn.Params[0]))
}

func TestIsConstantMemoryAccessToPtr(t *testing.T) {
	c := buildChain()
	l := analysis.Layout{PointerBits: 64}

	off, ok := fieldaccess.IsConstantMemoryAccessToPtr(l, c.g1, c.fn.Params[0])
	require.True(t, ok)
	assert.Equal(t, int64(4), off)

	off, ok = fieldaccess.IsConstantMemoryAccessToPtr(l, c.cast, c.g1)
	require.True(t, ok)
	assert.Zero(t, off)

	off, ok = fieldaccess.IsConstantMemoryAccessToPtr(l, c.g2, c.cast)
	require.True(t, ok)
	assert.Equal(t, int64(8), off)

	_, ok = fieldaccess.IsConstantMemoryAccessToPtr(l, c.g2, c.g1)
	assert.False(t, ok, "base pointer differs")
	_, ok = fieldaccess.IsConstantMemoryAccessToPtr(l, c.toInt, c.g2)
	assert.False(t, ok, "ptrtoint does not continue an access")
	_, ok = fieldaccess.IsConstantMemoryAccessToPtr(l, c.varGEP, c.cast)
	assert.False(t, ok, "non-constant index")
}

func TestIsFollowing(t *testing.T) {
	c := buildChain()
	assert.True(t, fieldaccess.IsFollowing(c.cast, c.g1))
	assert.True(t, fieldaccess.IsFollowing(c.g2, c.cast))
	assert.False(t, fieldaccess.IsFollowing(c.noise, c.cast))
	assert.False(t, fieldaccess.IsFollowing(c.toInt, c.g2))
}

func TestSourceTypes_SkipsUnchainedInstructions(t *testing.T) {
	c := buildChain()
	x := irutil.NewIndex(c.fn)
	got := fieldaccess.SourceTypes(x, c.g1)
	require.Len(t, got, 2)
	assert.Equal(t, c.st, got[0])
	assert.Equal(t, types.Type(types.I32), got[1])
	assert.Len(t, fieldaccess.Steps(x, c.g1), 2)
}

func TestSourceTypes_UnwrapsConstantExpression(t *testing.T) {
	m := ir.NewModule()
	outer := m.NewTypeDef("struct.outer", types.NewStruct(types.I32))
	union := m.NewTypeDef("union.u", types.NewStruct(outer))
	g := m.NewGlobalDef("g", constant.NewZeroInitializer(union))
	inner := constant.NewGetElementPtr(union, g, i32(0), i32(0))

	f := m.NewFunc("f", types.Void)
	b := f.NewBlock("entry")
	gep := b.NewGetElementPtr(outer, inner, i32(0), i32(0))
	b.NewRet(nil)

	got := fieldaccess.SourceTypes(irutil.NewIndex(f), gep)
	require.Len(t, got, 2)
	assert.Equal(t, outer, got[0])
	assert.Equal(t, union, got[1])
}
