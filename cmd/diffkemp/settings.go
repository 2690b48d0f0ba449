package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lenticularis39/diffkemp/internal/cache"
	"github.com/lenticularis39/diffkemp/internal/config"
)

// addCompareFlags registers the flags that override diffkemp.toml.
func addCompareFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("control-flow-only", false, "compare control flow only, tolerating data representation changes")
	f.StringSlice("always-equal", nil, "function names whose calls are always equal (replaces the default list)")
	f.Int("max-inline-depth", config.DefaultMaxInlineDepth, "inline retries per function pair before giving up")
	f.Bool("print-callstacks", true, "include call stacks in the report")
	f.String("output-llvm-ir", "", "write both modules after inlining into this directory")
	f.String("cache-dir", "", "result cache directory")
	f.Bool("no-cache", false, "do not read or write the result cache")
	f.BoolP("verbose", "v", false, "print progress details to stderr")
}

// loadSettings reads the configuration file and applies flag overrides.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		wd, werr := os.Getwd()
		if werr != nil {
			return config.Config{}, fmt.Errorf("failed to get working directory: %w", werr)
		}
		cfg, err = config.Discover(wd)
	}
	if err != nil {
		return config.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("control-flow-only") {
		cfg.ControlFlowOnly, _ = f.GetBool("control-flow-only")
	}
	if f.Changed("always-equal") {
		cfg.AlwaysEqual, _ = f.GetStringSlice("always-equal")
	}
	if f.Changed("max-inline-depth") {
		depth, _ := f.GetInt("max-inline-depth")
		if depth <= 0 {
			return config.Config{}, fmt.Errorf("--max-inline-depth must be positive, got %d", depth)
		}
		cfg.MaxInlineDepth = depth
	}
	if f.Changed("print-callstacks") {
		cfg.PrintCallStacks, _ = f.GetBool("print-callstacks")
	}
	if f.Changed("output-llvm-ir") {
		cfg.OutputLLVMIR, _ = f.GetString("output-llvm-ir")
	}
	if f.Changed("cache-dir") {
		cfg.CacheDir, _ = f.GetString("cache-dir")
	}
	if f.Changed("no-cache") {
		cfg.NoCache, _ = f.GetBool("no-cache")
	}
	if f.Changed("verbose") {
		cfg.Verbose, _ = f.GetBool("verbose")
	}
	if f.Lookup("jobs") != nil && f.Changed("jobs") {
		cfg.Jobs, _ = f.GetInt("jobs")
	}
	return cfg, nil
}

func openCache(cfg config.Config) (*cache.Cache, error) {
	if cfg.NoCache || cfg.CacheDir == "" {
		return nil, nil
	}
	return cache.Open(cfg.CacheDir)
}

func timingsEnabled(cmd *cobra.Command) bool {
	on, _ := cmd.Root().PersistentFlags().GetBool("timings")
	return on
}
