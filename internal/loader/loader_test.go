package loader_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenticularis39/diffkemp/internal/loader"
)

const sample = `define i32 @inc(i32 %x) {
entry:
  %y = add i32 %x, 1
  ret i32 %y
}

define i32 @helper.12() {
entry:
  ret i32 0
}
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.ll")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	return path
}

func TestLoadAndFind(t *testing.T) {
	path := writeSample(t)
	m, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path)

	f, err := loader.FindFunction(m.IR, "inc")
	require.NoError(t, err)
	assert.Equal(t, "inc", f.Name())

	f, err = loader.FindFunction(m.IR, "helper")
	require.NoError(t, err)
	assert.Equal(t, "helper.12", f.Name())

	_, err = loader.FindFunction(m.IR, "missing")
	assert.True(t, errors.Is(err, loader.ErrFunctionNotFound))

	d, err := loader.FileDigest(path)
	require.NoError(t, err)
	assert.Equal(t, m.Digest, d)
}

func TestLoad_SnapshotsAreIndependent(t *testing.T) {
	path := writeSample(t)
	a, b, err := loader.LoadPair(path, path)
	require.NoError(t, err)
	assert.NotSame(t, a.IR, b.IR)
	assert.Equal(t, a.Digest, b.Digest)
}

func TestLoad_Errors(t *testing.T) {
	_, err := loader.Load(filepath.Join(t.TempDir(), "none.ll"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.ll")
	require.NoError(t, os.WriteFile(bad, []byte("define i32 @f( {"), 0o600))
	_, err = loader.Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}

func TestWriteModule_RoundTrip(t *testing.T) {
	m, err := loader.Load(writeSample(t))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out", "a.ll")
	require.NoError(t, loader.WriteModule(out, m.IR))

	again, err := loader.Load(out)
	require.NoError(t, err)
	_, err = loader.FindFunction(again.IR, "inc")
	assert.NoError(t, err)
}
