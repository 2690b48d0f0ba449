package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lenticularis39/diffkemp/internal/config"
	"github.com/lenticularis39/diffkemp/internal/driver"
	"github.com/lenticularis39/diffkemp/internal/report"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare LEFT.ll RIGHT.ll FUNCTION[,FUNCTION]",
		Short: "Compare one function between two modules",
		Long: `Compare a function between two modules and print the YAML report of
every differing function pair reached from it. Give two names separated
by a comma when the function is named differently on the right.`,
		Args: cobra.ExactArgs(3),
		RunE: runCompare,
	}
	addCompareFlags(cmd)
	cmd.Flags().String("format", "yaml", "report format (yaml|text)")
	cmd.Flags().Bool("exit-code", false, "exit with status 2 when the functions differ")
	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
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

	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if format != "yaml" && format != "text" {
		return fmt.Errorf("unsupported format %q (must be yaml or text)", format)
	}
	pair, err := config.ParsePair(args[2])
	if err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	c, err := openCache(cfg)
	if err != nil {
		return err
	}

	opts := driver.Options{Config: cfg, Cache: c, Timings: timingsEnabled(cmd)}
	if cfg.Verbose {
		opts.Sink = lineSink(cmd.ErrOrStderr())
	}
	res, err := driver.Compare(cmd.Context(), args[0], args[1], pair, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "text" {
		printText(out, res)
	} else if err := res.Report.Write(out); err != nil {
		return err
	}
	if res.Timings != nil {
		if err := res.Timings.Write(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	exitCode, _ := cmd.Flags().GetBool("exit-code")
	if exitCode && res.Verdict != driver.VerdictEqual {
		return errDiffers
	}
	return nil
}

func verdictText(v driver.Verdict) string {
	switch v {
	case driver.VerdictEqual:
		return equalColor.Sprint(v.String())
	case driver.VerdictInconclusive:
		return inconclusiveColor.Sprint(v.String())
	default:
		return notEqualColor.Sprint(v.String())
	}
}

func printText(out io.Writer, res *driver.Result) {
	cached := ""
	if res.Cached {
		cached = dimColor.Sprint(" (cached)")
	}
	fmt.Fprintf(out, "%s: %s%s\n", res.Pair, verdictText(res.Verdict), cached)
	printDiffs(out, res.Report)
}

func printDiffs(out io.Writer, r *report.Report) {
	for _, d := range r.DiffFunctions {
		name := d.First.Function
		if d.Second.Function != name {
			name += "," + d.Second.Function
		}
		note := ""
		if d.Inconclusive {
			note = " " + inconclusiveColor.Sprint("[inconclusive]")
		}
		fmt.Fprintf(out, "  differs: %s%s\n", name, note)
		for _, c := range d.First.CallStack {
			fmt.Fprintf(out, "    %s\n", dimColor.Sprintf("%s at %s:%d", c.Function, c.File, c.Line))
		}
	}
	for _, md := range r.MissingDefs {
		fmt.Fprintf(out, "  missing definition: %s\n", missingName(md))
	}
}

func missingName(md report.MissingDef) string {
	switch {
	case md.First != "" && md.Second != "":
		return md.First + " (both)"
	case md.First != "":
		return md.First + " (left)"
	default:
		return md.Second + " (right)"
	}
}

// lineSink prints one line per finished stage.
func lineSink(w io.Writer) driver.ProgressSink {
	return driver.SinkFunc(func(ev driver.Event) {
		switch ev.Status {
		case driver.StatusDone:
			fmt.Fprintf(w, "%s: %s\n", ev.Pair, verdictText(ev.Verdict))
		case driver.StatusError:
			fmt.Fprintf(w, "%s: %s %v\n", ev.Pair, notEqualColor.Sprint("error"), ev.Err)
		case driver.StatusWorking:
			fmt.Fprintf(w, "%s: %s\n", ev.Pair, dimColor.Sprint(string(ev.Stage)))
		}
	})
}
