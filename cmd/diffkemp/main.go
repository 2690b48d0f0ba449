package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lenticularis39/diffkemp/internal/version"
)

// errDiffers makes the process exit with status 2.
var errDiffers = errors.New("functions differ")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "diffkemp",
		Short: "Semantic difference of functions in two LLVM IR modules",
		Long: `diffkemp compares a function between two versions of an LLVM IR module.
Functions it calls are compared recursively, inlining calls where that
reconciles the two versions, and every differing function pair is reported.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupColor(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("config", "", "path to diffkemp.toml (default: searched upwards from the working directory)")
	flags.Bool("timings", false, "show timing information")
	flags.String("trace", "", "trace output file (\"-\" for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	flags.Duration("trace-heartbeat", time.Duration(0), "heartbeat interval, 0 to disable")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")

	root.AddCommand(newCompareCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if errors.Is(err, errDiffers) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
