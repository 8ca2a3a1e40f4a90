package sim

import "fmt"

// EventState is the lifecycle position of an Event.
// An event moves pending → triggered → processed exactly once.
type EventState int

const (
	// StatePending: no outcome yet, not in the schedule.
	StatePending EventState = iota
	// StateTriggered: outcome fixed and queued for processing.
	StateTriggered
	// StateProcessed: popped from the schedule, callbacks have run.
	StateProcessed
)

func (s EventState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateTriggered:
		return "triggered"
	case StateProcessed:
		return "processed"
	default:
		return fmt.Sprintf("EventState(%d)", int(s))
	}
}

// EventKind labels what produced an event. Used in logs and traces only.
type EventKind string

const (
	KindEvent        EventKind = "event"
	KindTimeout      EventKind = "timeout"
	KindInit         EventKind = "init"
	KindInterrupt    EventKind = "interrupt"
	KindProcess      EventKind = "process"
	KindCondition    EventKind = "condition"
	KindRequest      EventKind = "request"
	KindStorePut     EventKind = "store-put"
	KindStoreGet     EventKind = "store-get"
	KindContainerPut EventKind = "container-put"
	KindContainerGet EventKind = "container-get"
)

// Awaitable is anything a process can Wait on: plain events, timeouts,
// conditions, resource requests, store and container operations and
// processes themselves.
type Awaitable interface {
	base() *Event
}

// callback is a registration on an event. Identity is the pointer so a
// registration can be revoked (interrupts revoke the waiter's resume).
type callback struct {
	fn func(*Event)
}

// Event is a one-shot completion signal carrying a value or a failure.
// Callbacks run in registration order when the scheduler processes the event.
type Event struct {
	env       *Environment
	id        uint64
	kind      EventKind
	name      string
	state     EventState
	value     any
	err       error
	defused   bool
	callbacks []*callback
}

func newEvent(env *Environment, kind EventKind, name string) *Event {
	env.nextID++
	return &Event{env: env, id: env.nextID, kind: kind, name: name}
}

func (ev *Event) base() *Event { return ev }

// ID returns the event's creation sequence number within its environment.
func (ev *Event) ID() uint64 { return ev.id }

// Kind returns what produced the event.
func (ev *Event) Kind() EventKind { return ev.kind }

// State returns the lifecycle state.
func (ev *Event) State() EventState { return ev.state }

// Triggered reports whether the outcome is fixed (triggered or processed).
func (ev *Event) Triggered() bool { return ev.state != StatePending }

// Processed reports whether callbacks have already run.
func (ev *Event) Processed() bool { return ev.state == StateProcessed }

// OK reports whether the event triggered successfully.
func (ev *Event) OK() bool { return ev.state != StatePending && ev.err == nil }

// Value returns the success value; nil while pending or on failure.
func (ev *Event) Value() any { return ev.value }

// Err returns the failure reason, if any.
func (ev *Event) Err() error { return ev.err }

func (ev *Event) String() string {
	if ev.name != "" {
		return fmt.Sprintf("%s(%s)#%d", ev.kind, ev.name, ev.id)
	}
	return fmt.Sprintf("%s#%d", ev.kind, ev.id)
}

// Succeed fixes the event's value and schedules it for processing at the
// current time.
func (ev *Event) Succeed(value any) error {
	if ev.state != StatePending {
		return fmt.Errorf("succeed %s: %w", ev, ErrEventTriggered)
	}
	ev.value = value
	ev.state = StateTriggered
	ev.env.enqueue(ev, 0, priorityNormal)
	return nil
}

// Fail fixes the event's failure and schedules it for processing at the
// current time. If nothing consumes the failure the run aborts.
func (ev *Event) Fail(err error) error {
	if err == nil {
		panic("Fail: err must not be nil")
	}
	if ev.state != StatePending {
		return fmt.Errorf("fail %s: %w", ev, ErrEventTriggered)
	}
	ev.err = err
	ev.state = StateTriggered
	ev.env.enqueue(ev, 0, priorityNormal)
	return nil
}

// Defuse marks a failure as handled so processing it does not abort the run.
func (ev *Event) Defuse() { ev.defused = true }

// Or returns a condition that triggers when either event does.
func (ev *Event) Or(other Awaitable) *Condition { return AnyOf(ev.env, ev, other) }

// And returns a condition that triggers when both events have.
func (ev *Event) And(other Awaitable) *Condition { return AllOf(ev.env, ev, other) }

func (ev *Event) addCallback(fn func(*Event)) *callback {
	cb := &callback{fn: fn}
	ev.callbacks = append(ev.callbacks, cb)
	return cb
}

func (ev *Event) removeCallback(cb *callback) {
	if cb == nil {
		return
	}
	cb.fn = nil
	for i, c := range ev.callbacks {
		if c == cb {
			ev.callbacks = append(ev.callbacks[:i], ev.callbacks[i+1:]...)
			return
		}
	}
}

// eventView gives the primitives built on events (requests, store and
// container operations, processes, conditions) a read-only view of their
// underlying event, so only the owning primitive can trigger it.
type eventView struct {
	ev *Event
}

func (v eventView) base() *Event { return v.ev }

// ID returns the underlying event's sequence number.
func (v eventView) ID() uint64 { return v.ev.id }

// State returns the underlying event's lifecycle state.
func (v eventView) State() EventState { return v.ev.state }

// Triggered reports whether the outcome is fixed.
func (v eventView) Triggered() bool { return v.ev.Triggered() }

// Processed reports whether callbacks have already run.
func (v eventView) Processed() bool { return v.ev.Processed() }

// OK reports whether the event triggered successfully.
func (v eventView) OK() bool { return v.ev.OK() }

// Value returns the success value.
func (v eventView) Value() any { return v.ev.value }

// Err returns the failure reason, if any.
func (v eventView) Err() error { return v.ev.err }

// Or returns a condition that triggers when either event does.
func (v eventView) Or(other Awaitable) *Condition { return v.ev.Or(other) }

// And returns a condition that triggers when both events have.
func (v eventView) And(other Awaitable) *Condition { return v.ev.And(other) }

func (v eventView) String() string { return v.ev.String() }
