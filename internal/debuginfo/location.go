package debuginfo

import (
	"path/filepath"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/metadata"
)

// Location is a source position taken from a !dbg attachment.
type Location struct {
	File string
	Line int64
}

type attachmentHolder interface {
	MDAttachments() []*metadata.Attachment
}

func dbgNode(v any) metadata.MDNode {
	h, ok := v.(attachmentHolder)
	if !ok {
		return nil
	}
	for _, a := range h.MDAttachments() {
		if a != nil && a.Name == "dbg" {
			return a.Node
		}
	}
	return nil
}

// InstLocation returns the source location of an instruction.
func InstLocation(inst any) (Location, bool) {
	loc, ok := dbgNode(inst).(*metadata.DILocation)
	if !ok || loc == nil {
		return Location{}, false
	}
	return Location{File: fileName(scopeFile(loc.Scope)), Line: loc.Line}, true
}

// SourceLine returns the path of the source file an instruction came from,
// joined with the file's directory, and its line.
func SourceLine(inst any) (path string, line int64, ok bool) {
	loc, isLoc := dbgNode(inst).(*metadata.DILocation)
	if !isLoc || loc == nil || loc.Line <= 0 {
		return "", 0, false
	}
	f := scopeFile(loc.Scope)
	if f == nil || f.Filename == "" {
		return "", 0, false
	}
	path = f.Filename
	if !filepath.IsAbs(path) && f.Directory != "" {
		path = filepath.Join(f.Directory, path)
	}
	return path, loc.Line, true
}

// FuncFile returns the file a function was defined in, or "" without
// debug info.
func FuncFile(f *ir.Func) string {
	if f == nil {
		return ""
	}
	sp, ok := dbgNode(f).(*metadata.DISubprogram)
	if !ok || sp == nil {
		return ""
	}
	return fileName(sp.File)
}

// FuncLine returns the declaration line of a function.
func FuncLine(f *ir.Func) int64 {
	if f == nil {
		return 0
	}
	if sp, ok := dbgNode(f).(*metadata.DISubprogram); ok && sp != nil {
		return sp.Line
	}
	return 0
}

func scopeFile(scope metadata.Field) *metadata.DIFile {
	for depth := 0; scope != nil && depth < 64; depth++ {
		switch s := scope.(type) {
		case *metadata.DISubprogram:
			return s.File
		case *metadata.DILexicalBlock:
			if s.File != nil {
				return s.File
			}
			scope = s.Scope
		case *metadata.DILexicalBlockFile:
			if s.File != nil {
				return s.File
			}
			scope = s.Scope
		case *metadata.DIFile:
			return s
		default:
			return nil
		}
	}
	return nil
}

func fileName(f *metadata.DIFile) string {
	if f == nil {
		return ""
	}
	return f.Filename
}
