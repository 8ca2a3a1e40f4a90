// sim/simulator.go
package sim

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/desim/sim/trace"
)

// Environment owns simulation time, the event schedule and every process
// started against it. All state lives here; there is no package-level clock.
//
// Thread-safety: NOT thread-safe. Exactly one goroutine (the one calling Run,
// or the process it resumed) touches the environment at any instant.
type Environment struct {
	now    float64
	queue  *EventHeap
	seq    uint64 // insertion counter for same-time tie-breaking
	nextID uint64 // event identity counter

	active  *Process
	running bool
	closed  bool

	// yield is how the running process hands control back to the scheduler.
	yield chan struct{}
	procs map[*Process]struct{}

	steps int64
	trace *trace.SimulationTrace
}

// EnvOption configures an Environment at construction.
type EnvOption func(*Environment)

// WithInitialTime starts the clock at t instead of zero.
func WithInitialTime(t float64) EnvOption {
	if t < 0 || math.IsNaN(t) {
		panic(fmt.Sprintf("WithInitialTime: invalid start time %v", t))
	}
	return func(env *Environment) { env.now = t }
}

// WithTrace records every processed event and process transition into st.
func WithTrace(st *trace.SimulationTrace) EnvOption {
	return func(env *Environment) { env.trace = st }
}

// NewEnvironment creates an empty environment at time zero.
func NewEnvironment(opts ...EnvOption) *Environment {
	env := &Environment{
		queue: NewEventHeap(),
		yield: make(chan struct{}),
		procs: make(map[*Process]struct{}),
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// Now returns the current simulation time.
func (env *Environment) Now() float64 { return env.now }

// ActiveProcess returns the process currently executing, or nil when the
// scheduler itself (or code outside any process) is running.
func (env *Environment) ActiveProcess() *Process { return env.active }

// Steps returns how many events have been processed so far.
func (env *Environment) Steps() int64 { return env.steps }

// Peek returns the due time of the next scheduled event, or +Inf if none.
func (env *Environment) Peek() float64 {
	if next := env.queue.Peek(); next != nil {
		return next.at
	}
	return math.Inf(1)
}

// Event creates a pending event that scenario code triggers later with
// Succeed or Fail.
func (env *Environment) Event() *Event {
	return newEvent(env, KindEvent, "")
}

// NamedEvent is Event with a label used in logs and traces.
func (env *Environment) NamedEvent(name string) *Event {
	return newEvent(env, KindEvent, name)
}

// Timeout returns an event that succeeds delay time units from now.
func (env *Environment) Timeout(delay float64) *Event {
	return env.TimeoutWith(delay, nil)
}

// TimeoutWith is Timeout carrying value as the event's outcome.
func (env *Environment) TimeoutWith(delay float64, value any) *Event {
	if delay < 0 || math.IsNaN(delay) {
		panic(fmt.Sprintf("Timeout: invalid delay %v", delay))
	}
	ev := newEvent(env, KindTimeout, "")
	ev.value = value
	ev.state = StateTriggered
	env.enqueue(ev, delay, priorityNormal)
	return ev
}

// Schedule queues a pending event to be processed delay time units from now.
// The event's value is whatever it carries (nil for a fresh event).
// Scheduling an event that already has an outcome is rejected and leaves
// the schedule untouched.
func (env *Environment) Schedule(ev *Event, delay float64) error {
	if ev == nil {
		panic("Schedule: ev must not be nil")
	}
	if ev.env != env {
		return fmt.Errorf("schedule %s: event belongs to another environment", ev)
	}
	if delay < 0 || math.IsNaN(delay) {
		return fmt.Errorf("schedule %s with delay %v: %w", ev, delay, ErrNegativeDelay)
	}
	if ev.state != StatePending {
		return fmt.Errorf("schedule %s: %w", ev, ErrEventTriggered)
	}
	ev.state = StateTriggered
	env.enqueue(ev, delay, priorityNormal)
	return nil
}

func (env *Environment) enqueue(ev *Event, delay float64, priority int) {
	env.seq++
	env.queue.Schedule(&scheduledEvent{
		at:       env.now + delay,
		priority: priority,
		seq:      env.seq,
		ev:       ev,
	})
}

// Step processes the next scheduled event: advances the clock to its due
// time, marks it processed and runs its callbacks in registration order.
// A failure nobody consumed is returned as a *FatalError.
func (env *Environment) Step() error {
	if err := env.checkIdle(); err != nil {
		return err
	}
	env.running = true
	defer func() { env.running = false }()
	return env.step()
}

func (env *Environment) step() error {
	next := env.queue.PopNext()
	if next == nil {
		return ErrEmptySchedule
	}
	ev := next.ev
	env.now = next.at
	env.steps++

	callbacks := ev.callbacks
	ev.callbacks = nil
	ev.state = StateProcessed
	logrus.Tracef("[t=%10.3f] processing %s (%d callbacks)", env.now, ev, len(callbacks))

	for _, cb := range callbacks {
		if cb.fn != nil {
			cb.fn(ev)
		}
	}
	failed := ev.err != nil
	if env.trace != nil {
		env.trace.RecordEvent(trace.EventRecord{
			Seq:    env.steps,
			Time:   env.now,
			Kind:   string(ev.kind),
			Name:   ev.String(),
			Failed: failed,
		})
	}
	if failed && !ev.defused {
		logrus.Errorf("[t=%10.3f] unhandled failure of %s: %v", env.now, ev, ev.err)
		return &FatalError{Event: ev.String(), Time: env.now, Err: ev.err}
	}
	return nil
}

// Run processes events until the schedule is empty.
func (env *Environment) Run() error {
	return env.run(math.Inf(1))
}

// RunUntil processes every event due at or before until, then sets the clock
// to until. Events due later stay queued for a subsequent run.
func (env *Environment) RunUntil(until float64) error {
	if math.IsNaN(until) || until < env.now {
		return fmt.Errorf("run until %v at t=%v: %w", until, env.now, ErrUntilInPast)
	}
	if err := env.run(until); err != nil {
		return err
	}
	if !math.IsInf(until, 1) {
		env.now = until
	}
	return nil
}

// RunUntilEvent processes events until a is processed and returns its
// outcome. A failure of a is returned as-is rather than aborting the run.
func (env *Environment) RunUntilEvent(a Awaitable) (any, error) {
	if a == nil {
		panic("RunUntilEvent: event must not be nil")
	}
	ev := a.base()
	if ev.env != env {
		panic("RunUntilEvent: event belongs to another environment")
	}
	if err := env.checkIdle(); err != nil {
		return nil, err
	}
	ev.defused = true
	env.running = true
	defer func() { env.running = false }()
	for ev.state != StateProcessed {
		if env.queue.Len() == 0 {
			return nil, fmt.Errorf("waiting for %s: %w", ev, ErrEmptySchedule)
		}
		if err := env.step(); err != nil {
			return nil, err
		}
	}
	return ev.value, ev.err
}

func (env *Environment) run(until float64) error {
	if err := env.checkIdle(); err != nil {
		return err
	}
	env.running = true
	defer func() { env.running = false }()

	logrus.Debugf("[t=%10.3f] run until %v, %d events queued", env.now, until, env.queue.Len())
	for env.queue.Len() > 0 {
		if env.queue.Peek().at > until {
			break
		}
		if err := env.step(); err != nil {
			return err
		}
	}
	logrus.Debugf("[t=%10.3f] run stopped after %d events", env.now, env.steps)
	return nil
}

func (env *Environment) checkIdle() error {
	if env.closed {
		return ErrClosed
	}
	if env.running || env.active != nil {
		return ErrReentrantRun
	}
	return nil
}

// Close unwinds the goroutines of every process still parked at a Wait, in
// creation order, and drops the schedule. Deferred calls in those bodies run;
// their completion events never fire. Close is idempotent.
func (env *Environment) Close() error {
	if env.closed {
		return nil
	}
	if env.running || env.active != nil {
		return ErrReentrantRun
	}
	env.closed = true
	parked := slices.SortedFunc(maps.Keys(env.procs), func(a, b *Process) int {
		return cmp.Compare(a.ev.id, b.ev.id)
	})
	for _, p := range parked {
		p.unwind()
	}
	env.procs = nil
	env.queue = NewEventHeap()
	return nil
}

func (env *Environment) recordProcess(p *Process) {
	if env.trace == nil {
		return
	}
	env.trace.RecordProcess(trace.ProcessRecord{
		Name:   p.name,
		Time:   env.now,
		Status: p.status.String(),
	})
}
