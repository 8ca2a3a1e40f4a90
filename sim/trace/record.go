// Package trace provides event-trace recording for simulation runs.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// EventRecord captures a single processed event.
type EventRecord struct {
	Seq    int64   // position in processing order, starting at 1
	Time   float64 // simulation time at which it was processed
	Kind   string  // what produced it: timeout, request, store-get, ...
	Name   string
	Failed bool
}

// ProcessRecord captures a process lifecycle transition (start or finish).
type ProcessRecord struct {
	Name   string
	Time   float64
	Status string // "running" on start, "done" or "failed" on finish
}
