package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// version is reported on exported telemetry.
const version = "0.1.0"

var (
	// CLI flags for scenario runs
	seed           int64   // Seed for the scenario's RNG streams
	until          float64 // Simulation horizon override (0 = scenario default)
	configPath     string  // Optional YAML scenario configuration
	logLevel       string  // Log verbosity level
	traceLevel     string  // Kernel trace verbosity: none, processes, events
	traceMaxEvents int     // Cap on stored trace event records (0 = unlimited)
	otelOut        string  // File receiving OpenTelemetry spans
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "desim",
	Short: "Process-based discrete-event simulation kernel and example models",
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the scenario's random streams")
	runCmd.Flags().Float64Var(&until, "until", 0, "Simulation horizon; 0 keeps the scenario's own")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML file with scenario parameters")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Kernel trace level (none, processes, events); prints a summary")
	runCmd.Flags().IntVar(&traceMaxEvents, "trace-max-events", 0, "Maximum trace event records to keep (0 = unlimited)")
	runCmd.Flags().StringVar(&otelOut, "otel-out", "", "Write an OpenTelemetry span of the run to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
}
