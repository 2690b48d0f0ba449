// Package config holds the comparison settings and loads them from
// diffkemp.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up from the working directory.
const FileName = "diffkemp.toml"

// DefaultMaxInlineDepth matches modcmp.DefaultMaxInlineDepth.
const DefaultMaxInlineDepth = 16

// ErrInvalidPair is returned for a malformed function pair.
var ErrInvalidPair = errors.New("invalid function pair")

// DefaultAlwaysEqual lists diagnostic helpers whose calls never make a
// difference.
var DefaultAlwaysEqual = []string{
	"printk",
	"_dev_info",
	"dev_warn",
	"dev_err",
	"dev_notice",
	"__warn_printk",
	"__dynamic_pr_debug",
	"__dynamic_dev_dbg",
	"dump_stack",
}

// FunctionPair names the function compared on each side.
type FunctionPair struct {
	Left, Right string
}

func (p FunctionPair) String() string {
	if p.Left == p.Right {
		return p.Left
	}
	return p.Left + "," + p.Right
}

// ParsePair parses "name" or "left,right".
func ParsePair(s string) (FunctionPair, error) {
	left, right, found := strings.Cut(strings.TrimSpace(s), ",")
	left, right = strings.TrimSpace(left), strings.TrimSpace(right)
	if !found {
		right = left
	}
	if left == "" || right == "" || strings.Contains(right, ",") {
		return FunctionPair{}, fmt.Errorf("%w: %q", ErrInvalidPair, s)
	}
	return FunctionPair{Left: left, Right: right}, nil
}

// Config is the settings bundle of one run.
type Config struct {
	// Path is the file the settings came from, "" for defaults.
	Path string

	Pairs           []FunctionPair
	ControlFlowOnly bool
	AlwaysEqual     []string
	MaxInlineDepth  int
	PrintCallStacks bool
	OutputLLVMIR    string
	CacheDir        string
	NoCache         bool
	Jobs            int
	Verbose         bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		AlwaysEqual:     append([]string(nil), DefaultAlwaysEqual...),
		MaxInlineDepth:  DefaultMaxInlineDepth,
		PrintCallStacks: true,
		CacheDir:        DefaultCacheDir(),
	}
}

// DefaultCacheDir returns $XDG_CACHE_HOME/diffkemp or the user cache
// directory equivalent.
func DefaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "diffkemp")
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "diffkemp")
	}
	return filepath.Join(os.TempDir(), "diffkemp-cache")
}

type fileConfig struct {
	Compare compareSection `toml:"compare"`
	Cache   cacheSection   `toml:"cache"`
	Batch   batchSection   `toml:"batch"`
}

type compareSection struct {
	ControlFlowOnly bool     `toml:"control-flow-only"`
	AlwaysEqual     []string `toml:"always-equal"`
	MaxInlineDepth  int      `toml:"max-inline-depth"`
	PrintCallStacks bool     `toml:"print-callstacks"`
	OutputLLVMIR    string   `toml:"output-llvm-ir"`
	Verbose         bool     `toml:"verbose"`
}

type cacheSection struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

type batchSection struct {
	Jobs  int      `toml:"jobs"`
	Pairs []string `toml:"pairs"`
}

// Find walks up from startDir to locate diffkemp.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	cfg.Path = path

	if meta.IsDefined("compare", "control-flow-only") {
		cfg.ControlFlowOnly = fc.Compare.ControlFlowOnly
	}
	if meta.IsDefined("compare", "always-equal") {
		cfg.AlwaysEqual = fc.Compare.AlwaysEqual
	}
	if meta.IsDefined("compare", "max-inline-depth") {
		if fc.Compare.MaxInlineDepth <= 0 {
			return Config{}, fmt.Errorf("%s: [compare].max-inline-depth must be positive", path)
		}
		cfg.MaxInlineDepth = fc.Compare.MaxInlineDepth
	}
	if meta.IsDefined("compare", "print-callstacks") {
		cfg.PrintCallStacks = fc.Compare.PrintCallStacks
	}
	if meta.IsDefined("compare", "output-llvm-ir") {
		cfg.OutputLLVMIR = resolve(path, fc.Compare.OutputLLVMIR)
	}
	if meta.IsDefined("compare", "verbose") {
		cfg.Verbose = fc.Compare.Verbose
	}
	if meta.IsDefined("cache", "dir") {
		if strings.TrimSpace(fc.Cache.Dir) == "" {
			return Config{}, fmt.Errorf("%s: [cache].dir is empty", path)
		}
		cfg.CacheDir = resolve(path, fc.Cache.Dir)
	}
	if meta.IsDefined("cache", "disabled") {
		cfg.NoCache = fc.Cache.Disabled
	}
	if meta.IsDefined("batch", "jobs") {
		if fc.Batch.Jobs < 0 {
			return Config{}, fmt.Errorf("%s: [batch].jobs must not be negative", path)
		}
		cfg.Jobs = fc.Batch.Jobs
	}
	for _, s := range fc.Batch.Pairs {
		p, err := ParsePair(s)
		if err != nil {
			return Config{}, fmt.Errorf("%s: [batch].pairs: %w", path, err)
		}
		cfg.Pairs = append(cfg.Pairs, p)
	}
	return cfg, nil
}

// Discover loads diffkemp.toml found from startDir, or the defaults when
// there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// resolve makes p relative to the directory of the config file.
func resolve(file, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(file), filepath.FromSlash(p))
}
