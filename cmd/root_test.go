package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPtr(v int64) *int64 { return &v }

func TestRunScenario_Car_TranscriptThenResults(t *testing.T) {
	// GIVEN the default car scenario
	var buf bytes.Buffer

	// WHEN it is run through the CLI path
	err := runScenario(&buf, "car", runOptions{Seed: seedPtr(42), TraceLevel: "none"})
	require.NoError(t, err)

	// THEN the transcript is printed first, followed by the results block
	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "   0.00 start driving", lines[0])
	assert.Equal(t, "  14.00 start driving", lines[4])
	assert.Equal(t, "=== Scenario Results ===", lines[5])
	assert.Contains(t, out, "Scenario             : car")
	assert.Contains(t, out, "End Time             : 15.00")
	assert.Contains(t, out, "trips")
	assert.NotContains(t, out, "=== Trace Summary ===")
}

func TestRunScenario_UnknownScenario_Error(t *testing.T) {
	// GIVEN a name that is not registered
	var buf bytes.Buffer

	// WHEN it is run
	err := runScenario(&buf, "spaceship", runOptions{TraceLevel: "none"})

	// THEN the error lists the valid names and nothing is printed
	require.Error(t, err)
	assert.Contains(t, err.Error(), "car")
	assert.Empty(t, buf.String())
}

func TestRunScenario_InvalidTraceLevel_Error(t *testing.T) {
	var buf bytes.Buffer
	err := runScenario(&buf, "car", runOptions{TraceLevel: "verbose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbose")
}

func TestRunScenario_NegativeUntil_Error(t *testing.T) {
	var buf bytes.Buffer
	err := runScenario(&buf, "car", runOptions{Until: -1, TraceLevel: "none"})
	assert.Error(t, err)
}

func TestRunScenario_UntilOverride_ShortensTranscript(t *testing.T) {
	// GIVEN a horizon of 8 instead of the car scenario's 15
	var buf bytes.Buffer

	// WHEN run
	require.NoError(t, runScenario(&buf, "car", runOptions{Until: 8, TraceLevel: "none"}))

	// THEN only the first three transitions happen
	out := buf.String()
	assert.Contains(t, out, "   7.00 start driving")
	assert.NotContains(t, out, "   9.00 start parking")
	assert.Contains(t, out, "End Time             : 8.00")
}

func TestRunScenario_ConfigFile_OverridesScenarioParameters(t *testing.T) {
	// GIVEN a config file that ends the car scenario at t=9
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("car:\n  until: 9\n"), 0o644))
	var buf bytes.Buffer

	// WHEN run with that file and no explicit seed
	require.NoError(t, runScenario(&buf, "car", runOptions{ConfigPath: path, TraceLevel: "none"}))

	// THEN the transition at 9 is included and the one at 14 is not
	out := buf.String()
	assert.Contains(t, out, "   9.00 start parking")
	assert.NotContains(t, out, "  14.00 start driving")
	assert.Contains(t, out, "Seed                 : 42")
}

func TestRunScenario_BadConfigFile_Error(t *testing.T) {
	var buf bytes.Buffer
	err := runScenario(&buf, "car", runOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"), TraceLevel: "none"})
	assert.Error(t, err)
}

func TestRunScenario_SeedFlag_OverridesConfigSeed(t *testing.T) {
	// GIVEN a config file with seed 7 and an explicit seed 99
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 7\n"), 0o644))
	var buf bytes.Buffer

	// WHEN run
	require.NoError(t, runScenario(&buf, "car", runOptions{Seed: seedPtr(99), ConfigPath: path, TraceLevel: "none"}))

	// THEN the explicit seed wins
	assert.Contains(t, buf.String(), "Seed                 : 99")
}

func TestRunScenario_TraceEvents_PrintsSummary(t *testing.T) {
	// GIVEN event-level tracing
	var buf bytes.Buffer

	// WHEN the car scenario runs
	require.NoError(t, runScenario(&buf, "car", runOptions{TraceLevel: "events"}))

	// THEN a trace summary with per-kind counts follows the results
	out := buf.String()
	assert.Contains(t, out, "=== Trace Summary ===")
	assert.Contains(t, out, "Processes Started    : 1")
	assert.Contains(t, out, "  timeout")
	assert.Greater(t, strings.Index(out, "=== Trace Summary ==="), strings.Index(out, "=== Scenario Results ==="))
}

func TestRunScenario_OtelOut_WritesSpan(t *testing.T) {
	// GIVEN an OpenTelemetry output file
	path := filepath.Join(t.TempDir(), "spans.json")
	var buf bytes.Buffer

	// WHEN a scenario runs with it
	require.NoError(t, runScenario(&buf, "car", runOptions{TraceLevel: "processes", OtelOut: path}))

	// THEN the run span is flushed to the file
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scenario car")
	assert.Contains(t, string(data), "stat.trips")
}

func TestListScenarios_PrintsEveryScenario(t *testing.T) {
	// GIVEN the registered scenarios
	var buf bytes.Buffer

	// WHEN listed
	require.NoError(t, listScenarios(&buf))

	// THEN each name starts a line
	out := buf.String()
	for _, name := range []string{"car", "airplane", "bank-renege", "carwash", "event-latency", "fuel-container", "machine-shop", "movie-renege"} {
		assert.Contains(t, out, name+" ")
	}
}

func TestRootCmd_ListSubcommand_WritesToCommandOutput(t *testing.T) {
	// GIVEN the root command with captured output
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"list"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	// WHEN executed
	require.NoError(t, rootCmd.Execute())

	// THEN the scenario table is printed
	assert.Contains(t, buf.String(), "fuel-resource")
}
