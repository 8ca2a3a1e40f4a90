package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/desim/sim"
	"github.com/inference-sim/desim/sim/scenario"
	"github.com/inference-sim/desim/sim/telemetry"
	"github.com/inference-sim/desim/sim/trace"
)

// runOptions collects the run command's flags.
type runOptions struct {
	Seed           *int64 // nil keeps the config file's seed
	Until          float64
	ConfigPath     string
	TraceLevel     string
	TraceMaxEvents int
	OtelOut        string
}

// runCmd executes one scenario using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run a scenario and print its transcript",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		opts := runOptions{
			Until:          until,
			ConfigPath:     configPath,
			TraceLevel:     traceLevel,
			TraceMaxEvents: traceMaxEvents,
			OtelOut:        otelOut,
		}
		if cmd.Flags().Changed("seed") || configPath == "" {
			opts.Seed = &seed
		}

		startTime := time.Now()
		if err := runScenario(cmd.OutOrStdout(), args[0], opts); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// runScenario loads the configuration, runs the named scenario and writes
// its transcript and results to w.
func runScenario(w io.Writer, name string, opts runOptions) error {
	if !trace.IsValidTraceLevel(opts.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid: none, processes, events", opts.TraceLevel)
	}
	if opts.Until < 0 {
		return fmt.Errorf("--until must not be negative, got %v", opts.Until)
	}

	cfg := scenario.DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := scenario.LoadConfig(opts.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.Seed != nil {
		cfg.Seed = *opts.Seed
	}
	if opts.Until > 0 {
		cfg.Until = opts.Until
	}

	var envOpts []sim.EnvOption
	var st *trace.SimulationTrace
	if lvl := trace.TraceLevel(opts.TraceLevel); lvl != "" && lvl != trace.TraceLevelNone {
		st = trace.NewSimulationTrace(trace.TraceConfig{Level: lvl, MaxEvents: opts.TraceMaxEvents})
		envOpts = append(envOpts, sim.WithTrace(st))
	}

	var exp *telemetry.Exporter
	var span *telemetry.Span
	if opts.OtelOut != "" {
		var err error
		exp, err = telemetry.NewFile("desim", version, opts.OtelOut)
		if err != nil {
			return err
		}
		defer func() {
			if err := exp.Shutdown(context.Background()); err != nil {
				logrus.Warnf("flushing telemetry: %v", err)
			}
		}()
		_, span = exp.StartRun(context.Background(), name, cfg.Seed)
	}

	res, err := scenario.Run(name, cfg, envOpts...)
	if err != nil {
		span.End(err)
		return err
	}
	span.RecordResult(res)
	if st != nil {
		span.RecordSummary(trace.Summarize(st))
	}
	span.End(nil)

	printResult(w, res)
	if st != nil {
		printTraceSummary(w, trace.Summarize(st))
	}
	return nil
}

func printResult(w io.Writer, res *scenario.Result) {
	for _, line := range res.Transcript {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "=== Scenario Results ===")
	fmt.Fprintf(w, "Scenario             : %s\n", res.Scenario)
	fmt.Fprintf(w, "Seed                 : %d\n", res.Seed)
	fmt.Fprintf(w, "End Time             : %.2f\n", res.EndTime)
	fmt.Fprintf(w, "Events Processed     : %d\n", res.Steps)
	for _, st := range res.Stats {
		fmt.Fprintf(w, "%-21s: %g\n", st.Name, st.Value)
	}
}

func printTraceSummary(w io.Writer, sum *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Run ID               : %s\n", sum.RunID)
	fmt.Fprintf(w, "Events Recorded      : %d\n", sum.TotalEvents)
	fmt.Fprintf(w, "Events Dropped       : %d\n", sum.DroppedEvents)
	fmt.Fprintf(w, "Failed Events        : %d\n", sum.FailedEvents)
	fmt.Fprintf(w, "Processes Started    : %d\n", sum.ProcessesStarted)
	fmt.Fprintf(w, "Processes Done       : %d\n", sum.ProcessesDone)
	fmt.Fprintf(w, "Processes Failed     : %d\n", sum.ProcessesFailed)
	for _, kind := range slices.Sorted(maps.Keys(sum.KindDistribution)) {
		fmt.Fprintf(w, "  %-19s: %d\n", kind, sum.KindDistribution[kind])
	}
}
