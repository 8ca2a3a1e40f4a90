package sim

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// ProcessStatus is the lifecycle position of a Process.
type ProcessStatus int

const (
	// StatusSuspended: parked at a Wait (or not started yet).
	StatusSuspended ProcessStatus = iota
	// StatusRunning: the body is executing.
	StatusRunning
	// StatusInterrupted: an interrupt is queued and will resume the process.
	StatusInterrupted
	// StatusDone: the body returned a nil error.
	StatusDone
	// StatusFailed: the body returned an error or panicked.
	StatusFailed
)

func (s ProcessStatus) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusInterrupted:
		return "interrupted"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("ProcessStatus(%d)", int(s))
	}
}

// ProcessFunc is the body of a process. It suspends by calling p.Wait and
// finishes by returning; the return value becomes the outcome of the
// process's completion event.
type ProcessFunc func(p *Process) (any, error)

// resumption is what the scheduler hands a parked process.
type resumption struct {
	value    any
	err      error
	shutdown bool
}

// Process is a suspendable unit of scenario logic. Each body runs on its own
// goroutine, but control is handed back and forth over unbuffered channels
// so exactly one of {scheduler, some process} executes at any instant.
//
// A Process is itself Awaitable: waiting on it yields the body's return
// value, or its error.
type Process struct {
	eventView
	env  *Environment
	name string
	body ProcessFunc

	status    ProcessStatus
	started   bool
	unwinding bool

	// target is the event the process is parked on; resumeCb is its
	// registration there, revoked when an interrupt arrives first.
	target   *Event
	resumeCb *callback
	wake     chan resumption
}

// Process starts body as a new process. The start itself is an immediate
// event, so processes created at the same time begin in creation order.
func (env *Environment) Process(name string, body ProcessFunc) *Process {
	if body == nil {
		panic("Process: body must not be nil")
	}
	p := &Process{
		eventView: eventView{ev: newEvent(env, KindProcess, name)},
		env:       env,
		name:      name,
		body:      body,
		status:    StatusSuspended,
		wake:      make(chan resumption),
	}
	env.procs[p] = struct{}{}

	init := newEvent(env, KindInit, name)
	init.state = StateTriggered
	p.target = init
	p.resumeCb = init.addCallback(p.resume)
	env.enqueue(init, 0, priorityUrgent)

	logrus.Debugf("[t=%10.3f] process %s created", env.now, name)
	return p
}

// Name returns the label given at creation.
func (p *Process) Name() string { return p.name }

// Env returns the environment the process runs in.
func (p *Process) Env() *Environment { return p.env }

// Status returns the lifecycle status.
func (p *Process) Status() ProcessStatus { return p.status }

// IsAlive reports whether the body has not finished yet.
func (p *Process) IsAlive() bool {
	return p.status != StatusDone && p.status != StatusFailed
}

// Target returns the event the process is parked on, or nil.
func (p *Process) Target() *Event { return p.target }

func (p *Process) String() string { return fmt.Sprintf("process(%s)", p.name) }

// Wait suspends the calling process until a is processed and returns its
// value or failure. If another process interrupts the wait, Wait returns an
// *Interrupt instead and a remains valid for other waiters.
//
// Wait must be called from the process's own body.
func (p *Process) Wait(a Awaitable) (any, error) {
	if a == nil {
		panic("Wait: event must not be nil")
	}
	if p.unwinding {
		return nil, ErrClosed
	}
	if p.env.active != p {
		panic(fmt.Sprintf("Wait: %s is not the running process", p))
	}
	ev := a.base()
	if ev.env != p.env {
		panic("Wait: event belongs to another environment")
	}
	if ev == p.ev {
		panic(fmt.Sprintf("Wait: %s cannot wait for itself", p))
	}

	if ev.state == StateProcessed {
		if ev.err != nil {
			ev.defused = true
			return nil, ev.err
		}
		return ev.value, nil
	}

	p.target = ev
	p.resumeCb = ev.addCallback(p.resume)
	p.status = StatusSuspended
	p.env.yield <- struct{}{}

	r := <-p.wake
	if r.shutdown {
		p.unwinding = true
		runtime.Goexit()
	}
	return r.value, r.err
}

// Interrupt forces a suspended process to resume at the current time with
// an *Interrupt carrying cause, instead of the outcome it was waiting for.
// The awaited event is left intact. Interrupting a finished or not yet
// started process, or the running process itself, is rejected.
func (p *Process) Interrupt(cause any) error {
	if !p.IsAlive() {
		return fmt.Errorf("interrupt %s (%s): %w", p, p.status, ErrProcessNotSuspended)
	}
	if !p.started {
		return fmt.Errorf("interrupt %s (not started): %w", p, ErrProcessNotSuspended)
	}
	if p.env.active == p {
		return fmt.Errorf("interrupt %s: %w", p, ErrInterruptSelf)
	}

	p.status = StatusInterrupted
	ev := newEvent(p.env, KindInterrupt, p.name)
	ev.value = cause
	ev.state = StateTriggered
	ev.addCallback(func(*Event) { p.deliverInterrupt(cause) })
	p.env.enqueue(ev, 0, priorityUrgent)

	logrus.Debugf("[t=%10.3f] interrupt queued for %s: %v", p.env.now, p, cause)
	return nil
}

func (p *Process) deliverInterrupt(cause any) {
	if !p.IsAlive() {
		return
	}
	if p.target != nil {
		p.target.removeCallback(p.resumeCb)
		p.target, p.resumeCb = nil, nil
	}
	p.switchTo(resumption{err: &Interrupt{Cause: cause}})
}

// resume is the callback registered on the awaited event.
func (p *Process) resume(ev *Event) {
	p.target, p.resumeCb = nil, nil
	r := resumption{value: ev.value}
	if ev.err != nil {
		ev.defused = true
		r = resumption{err: ev.err}
	}
	p.switchTo(r)
}

// switchTo hands control to the process and blocks until it parks or ends.
func (p *Process) switchTo(r resumption) {
	env := p.env
	env.active = p
	p.status = StatusRunning
	if !p.started {
		p.started = true
		env.recordProcess(p)
		go p.run()
	} else {
		p.wake <- r
	}
	<-env.yield
	env.active = nil
}

func (p *Process) run() {
	var (
		value any
		err   error
	)
	defer func() {
		if p.unwinding {
			p.env.yield <- struct{}{}
			return
		}
		if r := recover(); r != nil {
			value, err = nil, &ProcessPanic{Process: p.name, Value: r, Stack: debug.Stack()}
		}
		p.finish(value, err)
		p.env.yield <- struct{}{}
	}()
	value, err = p.body(p)
}

func (p *Process) finish(value any, err error) {
	env := p.env
	delete(env.procs, p)
	done := p.ev
	done.state = StateTriggered
	if err != nil {
		p.status = StatusFailed
		done.err = err
		logrus.Debugf("[t=%10.3f] %s failed: %v", env.now, p, err)
	} else {
		p.status = StatusDone
		done.value = value
		logrus.Debugf("[t=%10.3f] %s done", env.now, p)
	}
	env.recordProcess(p)
	env.enqueue(done, 0, priorityNormal)
}

// unwind terminates a parked process goroutine during Environment.Close.
func (p *Process) unwind() {
	if !p.started || !p.IsAlive() {
		return
	}
	if p.target != nil {
		p.target.removeCallback(p.resumeCb)
		p.target, p.resumeCb = nil, nil
	}
	env := p.env
	env.active = p
	p.wake <- resumption{shutdown: true}
	<-env.yield
	env.active = nil
}
