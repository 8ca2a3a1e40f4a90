package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/desim/sim/internal/testutil"
	"github.com/inference-sim/desim/sim/trace"
)

func TestNewEnvironment_StartsAtZeroWithEmptySchedule(t *testing.T) {
	env := NewEnvironment()

	assert.Equal(t, 0.0, env.Now())
	assert.True(t, math.IsInf(env.Peek(), 1))
	assert.Nil(t, env.ActiveProcess())
	assert.NoError(t, env.Run())
}

func TestNewEnvironment_WithInitialTime(t *testing.T) {
	env := NewEnvironment(WithInitialTime(10))
	ev := env.Timeout(5)

	_, err := env.RunUntilEvent(ev)

	require.NoError(t, err)
	assert.Equal(t, 15.0, env.Now())
}

func TestSchedule_RandomDelays_ProcessedInTimeThenInsertionOrder(t *testing.T) {
	// GIVEN many events scheduled with random delays, including duplicates
	env := NewEnvironment()
	rng := rand.New(rand.NewSource(7))
	type fired struct {
		at  float64
		idx int
	}
	var order []fired
	delays := make([]float64, 200)
	for i := range delays {
		delays[i] = float64(rng.Intn(20))
		ev := env.Event()
		idx := i
		ev.addCallback(func(*Event) { order = append(order, fired{env.Now(), idx}) })
		require.NoError(t, env.Schedule(ev, delays[i]))
	}

	// WHEN the environment runs to completion
	require.NoError(t, env.Run())

	// THEN events fire by due time, ties by scheduling order
	expected := make([]int, len(delays))
	for i := range expected {
		expected[i] = i
	}
	sort.SliceStable(expected, func(a, b int) bool { return delays[expected[a]] < delays[expected[b]] })
	require.Len(t, order, len(delays))
	for i, f := range order {
		assert.Equal(t, expected[i], f.idx, "position %d", i)
		assert.Equal(t, delays[f.idx], f.at, "event %d fired at wrong time", f.idx)
	}
}

func TestSchedule_SameSeed_ReproducibleOrder(t *testing.T) {
	run := func() []uint64 {
		env := NewEnvironment()
		rng := rand.New(rand.NewSource(99))
		var ids []uint64
		for i := 0; i < 50; i++ {
			ev := env.Event()
			ev.addCallback(func(e *Event) { ids = append(ids, e.ID()) })
			_ = env.Schedule(ev, rng.Float64()*10)
		}
		_ = env.Run()
		return ids
	}
	assert.Equal(t, run(), run())
}

func TestSchedule_ZeroDelay_FiresAfterEarlierZeroDelayEvents(t *testing.T) {
	env := NewEnvironment()
	var log testutil.Log
	first, second := env.NamedEvent("first"), env.NamedEvent("second")
	first.addCallback(func(*Event) {
		log.Add(env.Now(), "first")
		// Re-entrant scheduling: observed only on a later pop.
		third := env.NamedEvent("third")
		third.addCallback(func(*Event) { log.Add(env.Now(), "third") })
		require.NoError(t, env.Schedule(third, 0))
	})
	second.addCallback(func(*Event) { log.Add(env.Now(), "second") })
	require.NoError(t, env.Schedule(first, 0))
	require.NoError(t, env.Schedule(second, 0))

	require.NoError(t, env.Run())

	assert.Equal(t, []string{"first", "second", "third"}, log.Labels())
	assert.Equal(t, []float64{0, 0, 0}, log.Times())
}

func TestSchedule_AlreadyTriggered_ReturnsErrorAndLeavesQueueIntact(t *testing.T) {
	env := NewEnvironment()
	ev := env.Event()
	require.NoError(t, env.Schedule(ev, 1))

	err := env.Schedule(ev, 2)
	assert.ErrorIs(t, err, ErrEventTriggered)
	assert.Equal(t, 1, env.queue.Len())

	require.NoError(t, env.Run())
	err = env.Schedule(ev, 0)
	assert.ErrorIs(t, err, ErrEventTriggered)
	assert.Equal(t, 0, env.queue.Len())
	assert.Equal(t, 1.0, env.Now())
}

func TestSchedule_NegativeDelay_ReturnsError(t *testing.T) {
	env := NewEnvironment()
	err := env.Schedule(env.Event(), -1)
	assert.ErrorIs(t, err, ErrNegativeDelay)
	assert.Equal(t, 0, env.queue.Len())
}

func TestSchedule_ForeignEvent_ReturnsError(t *testing.T) {
	a, b := NewEnvironment(), NewEnvironment()
	assert.Error(t, b.Schedule(a.Event(), 0))
}

func TestEvent_SucceedTwice_ReturnsError(t *testing.T) {
	env := NewEnvironment()
	ev := env.Event()

	require.NoError(t, ev.Succeed(1))
	assert.ErrorIs(t, ev.Succeed(2), ErrEventTriggered)
	assert.ErrorIs(t, ev.Fail(errors.New("late")), ErrEventTriggered)

	require.NoError(t, env.Run())
	assert.Equal(t, StateProcessed, ev.State())
	assert.Equal(t, 1, ev.Value())
}

func TestEvent_StateTransitions(t *testing.T) {
	env := NewEnvironment()
	ev := env.Event()
	assert.Equal(t, StatePending, ev.State())
	assert.False(t, ev.Triggered())

	require.NoError(t, ev.Succeed("v"))
	assert.Equal(t, StateTriggered, ev.State())
	assert.True(t, ev.Triggered())
	assert.False(t, ev.Processed())

	require.NoError(t, env.Step())
	assert.Equal(t, StateProcessed, ev.State())
	assert.True(t, ev.OK())
}

func TestTimeout_NegativeDelay_Panics(t *testing.T) {
	env := NewEnvironment()
	assert.Panics(t, func() { env.Timeout(-0.5) })
}

func TestStep_EmptySchedule_ReturnsError(t *testing.T) {
	env := NewEnvironment()
	assert.ErrorIs(t, env.Step(), ErrEmptySchedule)
}

func TestRunUntil_StopsAtBoundAndKeepsLaterEvents(t *testing.T) {
	// GIVEN events due at 1, 5 (the bound) and 8
	env := NewEnvironment()
	var fired []float64
	for _, d := range []float64{1, 5, 8} {
		ev := env.Timeout(d)
		ev.addCallback(func(*Event) { fired = append(fired, env.Now()) })
	}

	// WHEN running until 5
	require.NoError(t, env.RunUntil(5))

	// THEN events due at or before the bound fire and the clock rests at it
	assert.Equal(t, []float64{1, 5}, fired)
	assert.Equal(t, 5.0, env.Now())
	assert.Equal(t, 8.0, env.Peek())

	// AND a later run picks up the rest
	require.NoError(t, env.Run())
	assert.Equal(t, []float64{1, 5, 8}, fired)
	assert.Equal(t, 8.0, env.Now())
}

func TestRunUntil_EmptyQueue_AdvancesClockToBound(t *testing.T) {
	env := NewEnvironment()
	env.Timeout(2)

	require.NoError(t, env.RunUntil(10))
	assert.Equal(t, 10.0, env.Now())
}

func TestRunUntil_BoundInPast_ReturnsError(t *testing.T) {
	env := NewEnvironment()
	env.Timeout(4)
	require.NoError(t, env.Run())

	assert.ErrorIs(t, env.RunUntil(3), ErrUntilInPast)
}

func TestRunUntilEvent_ReturnsValue(t *testing.T) {
	env := NewEnvironment()
	env.Timeout(10)
	ev := env.TimeoutWith(3, "ready")

	v, err := env.RunUntilEvent(ev)

	require.NoError(t, err)
	assert.Equal(t, "ready", v)
	assert.Equal(t, 3.0, env.Now())
}

func TestRunUntilEvent_NeverTriggered_ReturnsEmptySchedule(t *testing.T) {
	env := NewEnvironment()
	env.Timeout(1)

	_, err := env.RunUntilEvent(env.Event())
	assert.ErrorIs(t, err, ErrEmptySchedule)
}

func TestRunUntilEvent_Failure_ReturnedNotFatal(t *testing.T) {
	env := NewEnvironment()
	boom := errors.New("boom")
	ev := env.Event()
	require.NoError(t, ev.Fail(boom))

	_, err := env.RunUntilEvent(ev)

	assert.ErrorIs(t, err, boom)
	var fatal *FatalError
	assert.False(t, errors.As(err, &fatal))
}

func TestRun_UnhandledFailure_IsFatal(t *testing.T) {
	// GIVEN a failed event nobody waits for, and a later event
	env := NewEnvironment()
	boom := errors.New("boom")
	later := env.Timeout(10)
	ev := env.Event()
	require.NoError(t, env.Schedule(ev, 2))
	ev.err = boom

	// WHEN running
	err := env.Run()

	// THEN the run aborts at the failure and surfaces it
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2.0, fatal.Time)
	assert.Equal(t, 2.0, env.Now())
	assert.False(t, later.Processed())
}

func TestRun_DefusedFailure_IsNotFatal(t *testing.T) {
	env := NewEnvironment()
	ev := env.Event()
	require.NoError(t, ev.Fail(errors.New("boom")))
	ev.Defuse()

	assert.NoError(t, env.Run())
}

func TestRun_FromInsideProcess_ReturnsReentrantError(t *testing.T) {
	env := NewEnvironment()
	var inner error
	env.Process("p", func(p *Process) (any, error) {
		inner = env.Run()
		return nil, nil
	})

	require.NoError(t, env.Run())
	assert.ErrorIs(t, inner, ErrReentrantRun)
}

func TestClose_UnwindsParkedProcesses(t *testing.T) {
	// GIVEN a process parked forever on an event nobody triggers
	env := NewEnvironment()
	unwound := false
	never := env.Event()
	p := env.Process("stuck", func(p *Process) (any, error) {
		defer func() { unwound = true }()
		_, err := p.Wait(never)
		return nil, err
	})
	require.NoError(t, env.Run())
	require.Equal(t, StatusSuspended, p.Status())

	// WHEN the environment is closed
	require.NoError(t, env.Close())

	// THEN the body's deferred calls ran and the environment refuses more work
	assert.True(t, unwound)
	assert.ErrorIs(t, env.Run(), ErrClosed)
	assert.NoError(t, env.Close())
}

func TestClose_UnwindsInCreationOrder(t *testing.T) {
	// GIVEN many processes parked on the same untriggered event
	env := NewEnvironment()
	never := env.Event()
	var unwound, want []string
	for i := 0; i < 32; i++ {
		name := fmt.Sprintf("p%02d", i)
		want = append(want, name)
		env.Process(name, func(p *Process) (any, error) {
			defer func() { unwound = append(unwound, name) }()
			_, err := p.Wait(never)
			return nil, err
		})
	}
	require.NoError(t, env.Run())

	// WHEN the environment is closed
	require.NoError(t, env.Close())

	// THEN deferred calls ran in the order the processes were created
	assert.Equal(t, want, unwound)
}

func TestWithTrace_RecordsEventsAndProcesses(t *testing.T) {
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelEvents})
	env := NewEnvironment(WithTrace(st))
	env.Process("worker", func(p *Process) (any, error) {
		_, err := p.Wait(env.Timeout(2))
		return nil, err
	})

	require.NoError(t, env.Run())

	// init, timeout, process completion
	require.Len(t, st.Events, 3)
	assert.Equal(t, string(KindInit), st.Events[0].Kind)
	assert.Equal(t, string(KindTimeout), st.Events[1].Kind)
	assert.Equal(t, string(KindProcess), st.Events[2].Kind)
	assert.Equal(t, 2.0, st.Events[2].Time)
	require.Len(t, st.Processes, 2)
	assert.Equal(t, "running", st.Processes[0].Status)
	assert.Equal(t, "done", st.Processes[1].Status)
	assert.Equal(t, int64(3), env.Steps())
}
