package analysis

import (
	"os"
	"strings"
	"sync"
)

// Sources reads source files named by debug locations, once per path.
// Files that cannot be read have no lines.
type Sources struct {
	mu    sync.Mutex
	files map[string][]string
}

func NewSources() *Sources {
	return &Sources{files: make(map[string][]string)}
}

// Line returns line n (1-based) of the file at path.
func (s *Sources) Line(path string, n int64) (string, bool) {
	s.mu.Lock()
	lines, ok := s.files[path]
	if !ok {
		if data, err := os.ReadFile(path); err == nil {
			lines = strings.Split(string(data), "\n")
		}
		s.files[path] = lines
	}
	s.mu.Unlock()
	if n <= 0 || n > int64(len(lines)) {
		return "", false
	}
	return lines[n-1], true
}

// Identifiers returns the C identifiers appearing in line.
func Identifiers(line string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(line, func(r rune) bool { return !isIdentRune(r) }) {
		if tok[0] >= '0' && tok[0] <= '9' {
			continue
		}
		out[tok] = true
	}
	return out
}

func isIdentRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}
