// Package sim provides a process-based discrete-event simulation kernel.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - event.go: Event lifecycle (pending → triggered → processed) and callbacks
//   - simulator.go: The Environment, its clock and the event loop (Run, RunUntil, Step)
//   - process.go: Processes, Wait and Interrupt
//
// Everything else is built from those pieces:
//   - condition.go: AnyOf / AllOf composition and ConditionValue
//   - resource.go: FIFO, priority and preemptive resources
//   - store.go: bounded FIFO of discrete items
//   - container.go: bounded continuous level
//
// # Ordering
//
// Events are processed by due time, then scheduling priority (process
// starts and interrupt deliveries first), then insertion order. The same
// program therefore produces the same trace on every run.
//
// # Concurrency
//
// Process bodies run on their own goroutines, but the Environment hands
// control to exactly one of them at a time and waits for it to park in Wait
// or return. Scenario code never needs locks. An Environment must not be
// shared across goroutines that are not its processes.
//
// # Sub-packages
//   - sim/trace/: Pure-data run trace (processed events, process lifecycle)
//   - sim/scenario/: Ready-made example models driven by seeded RNG streams
//   - sim/telemetry/: OpenTelemetry export of scenario runs
package sim
