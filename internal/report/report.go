// Package report renders comparison results as a YAML document:
//
//	diff-functions:
//	  - first:  {function, file, callstack}
//	    second: {function, file, callstack}
//	missing-defs:
//	  - first: name
//	    second: name
package report

import (
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"github.com/lenticularis39/diffkemp/internal/modcmp"
)

// Call is one call-stack entry.
type Call struct {
	Function string `yaml:"function" msgpack:"function"`
	File     string `yaml:"file" msgpack:"file"`
	Line     int    `yaml:"line" msgpack:"line"`
}

// Function is one side of a differing pair.
type Function struct {
	Function  string `yaml:"function" msgpack:"function"`
	File      string `yaml:"file,omitempty" msgpack:"file"`
	CallStack []Call `yaml:"callstack,omitempty" msgpack:"callstack"`
}

// DiffPair is a non-equal function pair.
type DiffPair struct {
	First        Function `yaml:"first" msgpack:"first"`
	Second       Function `yaml:"second" msgpack:"second"`
	Inconclusive bool     `yaml:"inconclusive,omitempty" msgpack:"inconclusive"`
}

// MissingDef names a global defined on one side only.
type MissingDef struct {
	First  string `yaml:"first,omitempty" msgpack:"first"`
	Second string `yaml:"second,omitempty" msgpack:"second"`
}

// Report is the whole document.
type Report struct {
	DiffFunctions []DiffPair   `yaml:"diff-functions,omitempty" msgpack:"diff_functions"`
	MissingDefs   []MissingDef `yaml:"missing-defs,omitempty" msgpack:"missing_defs"`
}

// Options selects what goes into a report.
type Options struct {
	CallStacks bool
}

// Build collects the results of m.
func Build(m *modcmp.Comparator, opts Options) (*Report, error) {
	r := &Report{}
	for _, d := range m.Differences() {
		first, err := function(d.First, opts)
		if err != nil {
			return nil, err
		}
		second, err := function(d.Second, opts)
		if err != nil {
			return nil, err
		}
		r.DiffFunctions = append(r.DiffFunctions, DiffPair{
			First:        first,
			Second:       second,
			Inconclusive: d.Inconclusive,
		})
	}
	for _, md := range m.MissingDefs() {
		r.MissingDefs = append(r.MissingDefs, MissingDef{First: md.First, Second: md.Second})
	}
	return r, nil
}

func function(f modcmp.Function, opts Options) (Function, error) {
	out := Function{Function: f.Name, File: f.File}
	if !opts.CallStacks {
		return out, nil
	}
	for _, fr := range f.CallStack {
		line, err := safecast.Conv[int](fr.Line)
		if err != nil {
			return Function{}, fmt.Errorf("call of %s: line %d: %w", fr.Function, fr.Line, err)
		}
		out.CallStack = append(out.CallStack, Call{Function: fr.Function, File: fr.File, Line: line})
	}
	return out, nil
}

// Equal reports whether no difference was found.
func (r *Report) Equal() bool {
	return r == nil || len(r.DiffFunctions) == 0
}

// Inconclusive reports whether any pair ran out of inline retries.
func (r *Report) Inconclusive() bool {
	if r == nil {
		return false
	}
	for _, d := range r.DiffFunctions {
		if d.Inconclusive {
			return true
		}
	}
	return false
}

// Merge appends the pairs and missing definitions of o not already in r.
func (r *Report) Merge(o *Report) {
	if o == nil {
		return
	}
	seen := make(map[[2]string]bool, len(r.DiffFunctions))
	for _, d := range r.DiffFunctions {
		seen[[2]string{d.First.Function, d.Second.Function}] = true
	}
	for _, d := range o.DiffFunctions {
		k := [2]string{d.First.Function, d.Second.Function}
		if !seen[k] {
			seen[k] = true
			r.DiffFunctions = append(r.DiffFunctions, d)
		}
	}
	missing := make(map[MissingDef]bool, len(r.MissingDefs))
	for _, md := range r.MissingDefs {
		missing[md] = true
	}
	for _, md := range o.MissingDefs {
		if !missing[md] {
			missing[md] = true
			r.MissingDefs = append(r.MissingDefs, md)
		}
	}
}

// Write encodes r as YAML.
func (r *Report) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// Load decodes a YAML report. An empty document is an empty report.
func Load(rd io.Reader) (*Report, error) {
	r := &Report{}
	if err := yaml.NewDecoder(rd).Decode(r); err != nil {
		if errors.Is(err, io.EOF) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return r, nil
}
