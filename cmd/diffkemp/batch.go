package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lenticularis39/diffkemp/internal/config"
	"github.com/lenticularis39/diffkemp/internal/driver"
	"github.com/lenticularis39/diffkemp/internal/ui"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch LEFT.ll RIGHT.ll [FUNCTION[,FUNCTION]...]",
		Short: "Compare many functions between two modules",
		Long: `Compare several function pairs between two modules in parallel and print
the merged YAML report. Without pair arguments the [batch] pairs of
diffkemp.toml are compared.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runBatch,
	}
	addCompareFlags(cmd)
	cmd.Flags().IntP("jobs", "j", 0, "pairs compared in parallel (default: GOMAXPROCS)")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().Bool("exit-code", false, "exit with status 2 when any pair differs")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	uiValue, _ := cmd.Flags().GetString("ui")
	uiMode, err := readMode("ui", uiValue)
	if err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	pairs := cfg.Pairs
	if len(args) > 2 {
		pairs = pairs[:0:0]
		for _, a := range args[2:] {
			p, perr := config.ParsePair(a)
			if perr != nil {
				return perr
			}
			pairs = append(pairs, p)
		}
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no function pairs given on the command line or in %s", config.FileName)
	}
	c, err := openCache(cfg)
	if err != nil {
		return err
	}

	opts := driver.Options{Config: cfg, Cache: c, Timings: timingsEnabled(cmd)}
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.String()
	}

	var (
		out    *driver.BatchResult
		runErr error
	)
	if enabled(uiMode) {
		events := make(chan driver.Event, 64)
		opts.Sink = driver.ChannelSink{Ch: events}
		uiDone := make(chan error, 1)
		go func() {
			err := ui.RunProgress(os.Stderr, "comparing "+filepath.Base(args[0]), names, events)
			// Keep the batch unblocked if the UI quit early.
			for range events {
			}
			uiDone <- err
		}()
		out, runErr = driver.Batch(cmd.Context(), args[0], args[1], pairs, opts)
		close(events)
		if uerr := <-uiDone; uerr != nil && runErr == nil {
			runErr = uerr
		}
	} else {
		if cfg.Verbose {
			opts.Sink = lineSink(cmd.ErrOrStderr())
		}
		out, runErr = driver.Batch(cmd.Context(), args[0], args[1], pairs, opts)
	}
	if runErr != nil {
		return runErr
	}

	stderr := cmd.ErrOrStderr()
	differs := false
	for i, res := range out.Results {
		if err := out.Errs[i]; err != nil {
			fmt.Fprintf(stderr, "%s: %s %v\n", names[i], notEqualColor.Sprint("error"), err)
			differs = true
			continue
		}
		fmt.Fprintf(stderr, "%s: %s\n", names[i], verdictText(res.Verdict))
		if res.Verdict != driver.VerdictEqual {
			differs = true
		}
		if res.Timings != nil {
			if err := res.Timings.Write(stderr); err != nil {
				return err
			}
		}
	}
	if err := out.Merged().Write(cmd.OutOrStdout()); err != nil {
		return err
	}
	if n := out.Failed(); n > 0 {
		return fmt.Errorf("%d of %d pairs failed", n, len(pairs))
	}
	exitCode, _ := cmd.Flags().GetBool("exit-code")
	if exitCode && differs {
		return errDiffers
	}
	return nil
}
