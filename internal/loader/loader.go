// Package loader reads LLVM IR modules from .ll files and writes them back.
package loader

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"

	"github.com/lenticularis39/diffkemp/internal/irutil"
)

// ErrFunctionNotFound is returned when a module has no function of the
// requested name.
var ErrFunctionNotFound = errors.New("function not found")

// Digest is the SHA-256 of a module file.
type Digest [32]byte

// Module is one parsed file.
type Module struct {
	Path   string
	Digest Digest
	IR     *ir.Module
}

// Load parses the module at path. Each call returns an independent
// module, so callers that inline may load the same file again for a
// fresh snapshot.
func Load(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open module: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	src, err := io.ReadAll(io.TeeReader(f, h))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	m, err := asm.ParseBytes(path, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	out := &Module{Path: path, IR: m}
	copy(out.Digest[:], h.Sum(nil))
	return out, nil
}

// LoadPair loads both sides of a comparison.
func LoadPair(left, right string) (*Module, *Module, error) {
	l, err := Load(left)
	if err != nil {
		return nil, nil, err
	}
	r, err := Load(right)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// FileDigest hashes a module file without parsing it.
func FileDigest(path string) (Digest, error) {
	var d Digest
	f, err := os.Open(path)
	if err != nil {
		return d, fmt.Errorf("failed to open module: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return d, fmt.Errorf("failed to read %s: %w", path, err)
	}
	copy(d[:], h.Sum(nil))
	return d, nil
}

// FindFunction returns the function called name. A function whose name
// differs only by a renaming suffix is accepted when there is no exact
// match.
func FindFunction(m *ir.Module, name string) (*ir.Func, error) {
	var fallback *ir.Func
	for _, f := range m.Funcs {
		switch f.Name() {
		case name:
			return f, nil
		default:
			if fallback == nil && irutil.StripSuffix(f.Name()) == name {
				fallback = f
			}
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
}

// WriteModule writes m as .ll text, creating the directory.
func WriteModule(path string, m *ir.Module) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(m.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
