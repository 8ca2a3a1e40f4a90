package sim

import (
	"fmt"
	"slices"
)

// Evaluator decides whether a condition is met given its constituents and
// how many of them have succeeded so far.
type Evaluator func(events []*Event, count int) bool

// AllEvents is met once every constituent has succeeded.
func AllEvents(events []*Event, count int) bool { return count == len(events) }

// AnyEvent is met once at least one constituent has succeeded, or
// immediately when there are no constituents.
func AnyEvent(events []*Event, count int) bool { return count > 0 || len(events) == 0 }

// Condition is a derived event over a fixed set of constituents. It
// succeeds when its evaluator is met and fails as soon as any constituent
// fails. Its value is a *ConditionValue.
type Condition struct {
	eventView
	events   []*Event
	evaluate Evaluator
	count    int
	checks   []*callback
}

// AllOf returns a condition that succeeds when all events have succeeded.
func AllOf(env *Environment, events ...Awaitable) *Condition {
	return NewCondition(env, "all_of", AllEvents, events...)
}

// AnyOf returns a condition that succeeds when any event has succeeded.
func AnyOf(env *Environment, events ...Awaitable) *Condition {
	return NewCondition(env, "any_of", AnyEvent, events...)
}

// NewCondition builds a condition with a custom evaluator.
func NewCondition(env *Environment, name string, evaluate Evaluator, events ...Awaitable) *Condition {
	if evaluate == nil {
		panic("NewCondition: evaluate must not be nil")
	}
	c := &Condition{
		eventView: eventView{ev: newEvent(env, KindCondition, name)},
		events:    make([]*Event, 0, len(events)),
		evaluate:  evaluate,
	}
	for _, a := range events {
		if a == nil {
			panic("NewCondition: nil event")
		}
		ev := a.base()
		if ev.env != env {
			panic(fmt.Sprintf("NewCondition: %s belongs to another environment", ev))
		}
		c.events = append(c.events, ev)
	}

	// The value is assembled when the condition itself is processed, so it
	// includes every constituent that finished by then. This callback is
	// registered first so it runs before any waiter.
	c.ev.addCallback(c.collect)

	if len(c.events) == 0 {
		if evaluate(c.events, 0) {
			_ = c.ev.Succeed(nil)
		}
		return c
	}
	c.checks = make([]*callback, len(c.events))
	for i, ev := range c.events {
		if ev.state == StateProcessed {
			c.check(ev)
			continue
		}
		c.checks[i] = ev.addCallback(c.check)
	}
	return c
}

// Events returns the constituents in the order given.
func (c *Condition) Events() []*Event {
	return append([]*Event(nil), c.events...)
}

func (c *Condition) check(ev *Event) {
	if c.ev.state != StatePending {
		return
	}
	if ev.err != nil {
		ev.defused = true
		_ = c.ev.Fail(ev.err)
		return
	}
	c.count++
	if c.evaluate(c.events, c.count) {
		_ = c.ev.Succeed(nil)
	}
}

func (c *Condition) collect(*Event) {
	for i, cb := range c.checks {
		c.events[i].removeCallback(cb)
	}
	c.checks = nil
	if c.ev.err != nil {
		return
	}
	cv := &ConditionValue{}
	for _, ev := range c.events {
		cv.add(ev)
	}
	c.ev.value = cv
}

// ConditionValue is the outcome of a condition: the constituents that had
// succeeded when it was processed, in constituent order. Nested conditions
// are flattened, so the value of (a | b) & c holds a and c, never the inner
// condition itself.
type ConditionValue struct {
	events []*Event
}

func (cv *ConditionValue) add(ev *Event) {
	if ev.state != StateProcessed || ev.err != nil {
		return
	}
	if inner, ok := ev.value.(*ConditionValue); ok && ev.kind == KindCondition {
		for _, leaf := range inner.events {
			cv.add(leaf)
		}
		return
	}
	if !slices.Contains(cv.events, ev) {
		cv.events = append(cv.events, ev)
	}
}

// Contains reports whether a succeeded before the condition was processed.
func (cv *ConditionValue) Contains(a Awaitable) bool {
	_, ok := cv.Value(a)
	return ok
}

// Value returns a's value if it is part of the outcome.
func (cv *ConditionValue) Value(a Awaitable) (any, bool) {
	if cv == nil || a == nil {
		return nil, false
	}
	target := a.base()
	for _, ev := range cv.events {
		if ev == target {
			return ev.value, true
		}
	}
	return nil, false
}

// Events returns the succeeded constituents.
func (cv *ConditionValue) Events() []*Event {
	if cv == nil {
		return nil
	}
	return append([]*Event(nil), cv.events...)
}

// Values returns the succeeded constituents' values.
func (cv *ConditionValue) Values() []any {
	if cv == nil {
		return nil
	}
	out := make([]any, len(cv.events))
	for i, ev := range cv.events {
		out[i] = ev.value
	}
	return out
}

// Len returns how many constituents are part of the outcome.
func (cv *ConditionValue) Len() int {
	if cv == nil {
		return 0
	}
	return len(cv.events)
}
