package scenario

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/desim/sim"
	"github.com/inference-sim/desim/sim/internal/testutil"
	"github.com/inference-sim/desim/sim/trace"
)

func TestNames_ListsEveryScenarioSorted(t *testing.T) {
	assert.Equal(t, []string{
		"airplane", "bank-renege", "car", "carwash", "event-latency",
		"fuel-container", "fuel-resource", "fuel-store", "machine-shop", "movie-renege",
	}, Names())
	for _, name := range Names() {
		sc, ok := Lookup(name)
		require.True(t, ok)
		assert.NotEmpty(t, sc.Description, name)
	}
}

func TestRun_UnknownScenario_ReturnsError(t *testing.T) {
	_, err := Run("submarine", DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scenario")
	assert.Contains(t, err.Error(), "carwash")
}

func TestRun_InvalidConfig_ReturnsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Car.TripDuration = -1
	_, err := Run("car", cfg)
	assert.ErrorContains(t, err, "car.trip_duration")
}

// TestRun_DeterministicScenarios_MatchGolden pins the transcripts of the
// models that draw no random numbers.
func TestRun_DeterministicScenarios_MatchGolden(t *testing.T) {
	tests := []struct {
		name    string
		endTime float64
		stats   map[string]float64
	}{
		{"car", 15, map[string]float64{"trips": 3}},
		{"airplane", 15, map[string]float64{"charges_completed": 2, "interrupts": 1}},
		{"fuel-resource", 12, map[string]float64{"cars_served": 4, "mean_wait": 0.5}},
		{"fuel-store", 12, map[string]float64{"cars_left": 4, "cars_parked": 0}},
		{"fuel-container", 15, map[string]float64{"refills": 3, "fuel_delivered": 260, "level": 100}},
		{"event-latency", 100, map[string]float64{"sent": 20, "received": 18, "mean_latency": 10}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN the default configuration
			// WHEN the scenario runs
			res, err := Run(tc.name, DefaultConfig())
			require.NoError(t, err)

			// THEN the transcript matches the golden file
			testutil.AssertGolden(t, tc.name, res.Transcript)
			assert.Equal(t, tc.endTime, res.EndTime)
			for stat, want := range tc.stats {
				got, ok := res.Stat(stat)
				require.True(t, ok, "missing stat %s", stat)
				testutil.AssertFloat64Equal(t, stat, want, got, 1e-9)
			}
		})
	}
}

func TestRun_TranscriptTimesNeverDecrease(t *testing.T) {
	for _, name := range []string{"carwash", "bank-renege", "movie-renege"} {
		t.Run(name, func(t *testing.T) {
			res, err := Run(name, DefaultConfig())
			require.NoError(t, err)
			require.NotEmpty(t, res.Transcript)

			var times []float64
			for _, line := range res.Transcript {
				var at float64
				_, err := fmt.Sscan(line, &at)
				require.NoError(t, err, line)
				times = append(times, at)
			}
			testutil.AssertNonDecreasing(t, name, times)
		})
	}
}

func TestRun_SameSeed_IdenticalTranscripts(t *testing.T) {
	for _, name := range []string{"carwash", "bank-renege", "movie-renege"} {
		t.Run(name, func(t *testing.T) {
			first, err := Run(name, DefaultConfig())
			require.NoError(t, err)
			second, err := Run(name, DefaultConfig())
			require.NoError(t, err)

			assert.Equal(t, first.Transcript, second.Transcript)
			assert.Equal(t, first.Stats, second.Stats)
			assert.Equal(t, first.Steps, second.Steps)
		})
	}
}

func TestRun_DifferentSeed_DifferentTranscripts(t *testing.T) {
	cfg := DefaultConfig()
	first, err := Run("carwash", cfg)
	require.NoError(t, err)
	cfg.Seed++
	second, err := Run("carwash", cfg)
	require.NoError(t, err)

	assert.NotEqual(t, first.Transcript, second.Transcript)
}

func TestRun_UntilOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Until = 8

	res, err := Run("car", cfg)

	require.NoError(t, err)
	assert.Equal(t, 8.0, res.Until)
	assert.Equal(t, 8.0, res.EndTime)
	assert.Len(t, res.Transcript, 3)
}

func TestRun_WithTrace_RecordsKernelActivity(t *testing.T) {
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelEvents})

	res, err := Run("fuel-resource", DefaultConfig(), sim.WithTrace(st))

	require.NoError(t, err)
	assert.Len(t, st.Events, int(res.Steps))
	summary := trace.Summarize(st)
	assert.Equal(t, 0, summary.FailedEvents)
	assert.Equal(t, 4, summary.KindDistribution[string(sim.KindRequest)])
	// arrivals plus four cars
	assert.Equal(t, 5, summary.ProcessesStarted)
	assert.Equal(t, 5, summary.ProcessesDone)
}
