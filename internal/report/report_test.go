package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenticularis39/diffkemp/internal/modcmp"
	"github.com/lenticularis39/diffkemp/internal/report"
)

// compared returns a comparator that found main to differ, with ext
// defined only on the left.
func compared(t *testing.T) *modcmp.Comparator {
	t.Helper()
	build := func(ret int64, extDefined bool) (*ir.Module, *ir.Func) {
		m := ir.NewModule()
		h := m.NewFunc("helper", types.I32)
		h.NewBlock("").NewRet(constant.NewInt(types.I32, ret))
		ext := m.NewFunc("ext", types.Void)
		if extDefined {
			ext.NewBlock("").NewRet(nil)
		}
		f := m.NewFunc("main", types.I32)
		b := f.NewBlock("")
		b.NewCall(ext)
		b.NewRet(b.NewCall(h))
		return m, f
	}
	ml, fl := build(1, true)
	mr, fr := build(2, false)
	m := modcmp.New(ml, mr, modcmp.Inputs{}, modcmp.Options{})
	m.Compare(fl, fr)
	return m
}

func TestBuildAndWrite(t *testing.T) {
	r, err := report.Build(compared(t), report.Options{CallStacks: true})
	require.NoError(t, err)
	require.NotEmpty(t, r.DiffFunctions)
	assert.False(t, r.Equal())
	assert.Equal(t, []report.MissingDef{{Second: "ext"}}, r.MissingDefs)

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "diff-functions:\n"), out)
	assert.Contains(t, out, "function: main")
	assert.Contains(t, out, "missing-defs:")
	assert.Contains(t, out, "second: ext")
	assert.NotContains(t, out, "@")

	back, err := report.Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestBuild_WithoutCallStacks(t *testing.T) {
	r, err := report.Build(compared(t), report.Options{})
	require.NoError(t, err)
	for _, d := range r.DiffFunctions {
		assert.Empty(t, d.First.CallStack)
		assert.Empty(t, d.Second.CallStack)
	}
}

func TestLoad_Empty(t *testing.T) {
	r, err := report.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, r.Equal())
	assert.False(t, r.Inconclusive())
}

func TestMerge(t *testing.T) {
	a := &report.Report{
		DiffFunctions: []report.DiffPair{{First: report.Function{Function: "f"}, Second: report.Function{Function: "f"}}},
	}
	b := &report.Report{
		DiffFunctions: []report.DiffPair{
			{First: report.Function{Function: "f"}, Second: report.Function{Function: "f"}},
			{First: report.Function{Function: "g"}, Second: report.Function{Function: "g"}, Inconclusive: true},
		},
		MissingDefs: []report.MissingDef{{First: "x"}},
	}
	a.Merge(b)
	assert.Len(t, a.DiffFunctions, 2)
	assert.Len(t, a.MissingDefs, 1)
	assert.True(t, a.Inconclusive())
}
