package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors for kernel misuse. Callers match them with errors.Is;
// the kernel always wraps them with the offending event, request or process.
var (
	// ErrEventTriggered is returned when an event that already has an outcome
	// is scheduled, succeeded or failed a second time.
	ErrEventTriggered = errors.New("event already triggered")

	// ErrNegativeDelay is returned by Schedule for delays below zero.
	ErrNegativeDelay = errors.New("negative delay")

	// ErrInvalidCapacity is returned by the Resource, Store and Container
	// constructors for a zero or negative capacity.
	ErrInvalidCapacity = errors.New("capacity must be positive")

	// ErrInvalidLevel is returned by NewContainer when the initial level is
	// outside [0, capacity].
	ErrInvalidLevel = errors.New("initial level out of range")

	// ErrNotHeld is returned when releasing a request that was already
	// released or cancelled.
	ErrNotHeld = errors.New("request not held")

	// ErrForeignRequest is returned when a request is released on a resource
	// other than the one that issued it.
	ErrForeignRequest = errors.New("request belongs to another resource")

	// ErrProcessNotSuspended is returned when interrupting a process that is
	// not parked at a Wait (finished, or not started yet).
	ErrProcessNotSuspended = errors.New("process is not suspended")

	// ErrInterruptSelf is returned when a process interrupts itself.
	ErrInterruptSelf = errors.New("process cannot interrupt itself")

	// ErrUntilInPast is returned by RunUntil for a bound earlier than Now.
	ErrUntilInPast = errors.New("until is earlier than the current time")

	// ErrReentrantRun is returned when Run, Step or Close is invoked from
	// inside a process body or while another Run is in progress.
	ErrReentrantRun = errors.New("environment is already running")

	// ErrEmptySchedule is returned by Step when no events are queued, and by
	// RunUntilEvent when the queue drains before the awaited event fires.
	ErrEmptySchedule = errors.New("no scheduled events")

	// ErrClosed is returned by Run and Step after Close.
	ErrClosed = errors.New("environment closed")
)

// FatalError aborts a run: an event failed and nothing consumed the failure.
type FatalError struct {
	Event string
	Time  float64
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("unhandled failure of %s at t=%g: %v", e.Event, e.Time, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Interrupt is the error a suspended process receives from Wait when another
// process interrupts it. Cause is whatever the interrupter passed, or a
// *Preempted when a preemptive resource reclaimed a unit.
type Interrupt struct {
	Cause any
}

func (e *Interrupt) Error() string {
	if e.Cause == nil {
		return "interrupted"
	}
	return fmt.Sprintf("interrupted: %v", e.Cause)
}

// Preempted is the interrupt cause delivered to a holder whose unit was
// seized by a higher-priority request.
type Preempted struct {
	By         *Request  // the request that took the unit
	UsageSince float64   // when the victim was granted the unit
	Resource   *Resource // the resource the unit belongs to
}

func (p *Preempted) String() string {
	return fmt.Sprintf("preempted by %s (held since t=%g)", p.By, p.UsageSince)
}

// ProcessPanic is the failure recorded for a process whose body panicked.
type ProcessPanic struct {
	Process string
	Value   any
	Stack   []byte
}

func (e *ProcessPanic) Error() string {
	return fmt.Sprintf("process %s panicked: %v", e.Process, e.Value)
}

// IsInterrupt reports whether err is (or wraps) an *Interrupt and returns it.
func IsInterrupt(err error) (*Interrupt, bool) {
	var intr *Interrupt
	if errors.As(err, &intr) {
		return intr, true
	}
	return nil, false
}
