// Package irutil holds helpers over llir functions that the comparator and
// the module comparator share: name normalisation, operand access, a
// per-function position/user index, instruction cloning and call-site
// inlining.
package irutil

import (
	"regexp"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"
)

var (
	renameSuffix    = regexp.MustCompile(`\.[0-9]+$`)
	overloadSuffix  = regexp.MustCompile(`\.(p[0-9]+[a-z0-9]*|i[0-9]+|f[0-9]+|v[0-9]+[a-z0-9]+|s_[A-Za-z0-9_.]+)$`)
	intrinsicPrefix = "llvm."
)

// StripSuffix drops the numeric suffixes LLVM appends when it renames a
// global to avoid a clash ("foo.12" -> "foo").
func StripSuffix(name string) string {
	for {
		stripped := renameSuffix.ReplaceAllString(name, "")
		if stripped == name || stripped == "" {
			return name
		}
		name = stripped
	}
}

// IsIntrinsic reports whether name denotes an LLVM intrinsic.
func IsIntrinsic(name string) bool {
	return strings.HasPrefix(name, intrinsicPrefix)
}

// CanonicalName is the name two globals are matched by: rename suffixes
// are dropped and intrinsics lose their type-overload suffixes.
func CanonicalName(name string) string {
	if !IsIntrinsic(name) {
		return StripSuffix(name)
	}
	for {
		stripped := overloadSuffix.ReplaceAllString(name, "")
		if stripped == name {
			return name
		}
		name = stripped
	}
}

// Name returns the identifier of a named value without sigil, or "".
func Name(v value.Value) string {
	if n, ok := v.(value.Named); ok {
		return n.Name()
	}
	return ""
}

// CalledFunction resolves the direct callee of a call, looking through
// constant bitcasts of the callee. It returns nil for indirect calls.
func CalledFunction(call *ir.InstCall) *ir.Func {
	if call == nil {
		return nil
	}
	callee := call.Callee
	for {
		switch c := callee.(type) {
		case *ir.Func:
			return c
		case *constant.ExprBitCast:
			callee = c.From
		default:
			return nil
		}
	}
}

// CalleeName returns the name of the direct callee of call, or "".
func CalleeName(call *ir.InstCall) string {
	if f := CalledFunction(call); f != nil {
		return f.Name()
	}
	return ""
}

// IsDeclaration reports whether f has no body.
func IsDeclaration(f *ir.Func) bool {
	return len(f.Blocks) == 0
}
