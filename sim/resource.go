package sim

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// ResourceKind selects a resource's admission policy.
type ResourceKind int

const (
	// KindFIFO grants units in arrival order and ignores priorities.
	KindFIFO ResourceKind = iota
	// KindPriority grants the lowest priority value first, FIFO among equals.
	KindPriority
	// KindPreemptive is KindPriority plus seizing units from preemptible
	// holders of strictly lower priority.
	KindPreemptive
)

func (k ResourceKind) String() string {
	switch k {
	case KindFIFO:
		return "fifo"
	case KindPriority:
		return "priority"
	case KindPreemptive:
		return "preemptive"
	default:
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
}

// DefaultPriority is the priority of a request made without WithPriority.
const DefaultPriority = 0

type requestState int

const (
	requestWaiting requestState = iota
	requestGranted
	requestReleased
	requestCancelled
	requestPreempted
)

// Request is a claim on one unit of a Resource. It is Awaitable and
// succeeds when the unit is granted. Every request must be handed back with
// Release on every exit path, granted or not.
type Request struct {
	eventView
	resource    *Resource
	proc        *Process
	priority    int
	preemptible bool
	seq         uint64
	requestedAt float64
	grantedAt   float64
	state       requestState
}

// RequestOption customizes a request.
type RequestOption func(*Request)

// WithPriority sets the request priority; lower values are served first.
// Ignored by FIFO resources.
func WithPriority(priority int) RequestOption {
	return func(r *Request) { r.priority = priority }
}

// Preemptible marks the request so that, once granted, a preemptive
// resource may reclaim its unit for a higher-priority request.
func Preemptible() RequestOption {
	return func(r *Request) { r.preemptible = true }
}

// Resource is a capacity-limited, queued mutual-exclusion primitive.
//
// Invariant: len(users) <= capacity, and the queue is non-empty only while
// every unit is in use.
type Resource struct {
	env      *Environment
	name     string
	kind     ResourceKind
	capacity int
	users    []*Request // granted, in grant order
	queue    []*Request // waiting, in service order
	seq      uint64
}

// NewResource creates a FIFO resource.
func NewResource(env *Environment, capacity int) (*Resource, error) {
	return newResource(env, KindFIFO, capacity)
}

// NewPriorityResource creates a resource that serves requests by priority.
func NewPriorityResource(env *Environment, capacity int) (*Resource, error) {
	return newResource(env, KindPriority, capacity)
}

// NewPreemptiveResource creates a priority resource whose preemptible
// holders can lose their unit to strictly higher-priority requests.
func NewPreemptiveResource(env *Environment, capacity int) (*Resource, error) {
	return newResource(env, KindPreemptive, capacity)
}

func newResource(env *Environment, kind ResourceKind, capacity int) (*Resource, error) {
	if env == nil {
		panic("NewResource: env must not be nil")
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%s resource with capacity %d: %w", kind, capacity, ErrInvalidCapacity)
	}
	return &Resource{env: env, kind: kind, capacity: capacity}, nil
}

// SetName labels the resource in logs and errors.
func (r *Resource) SetName(name string) *Resource {
	r.name = name
	return r
}

// Kind returns the admission policy.
func (r *Resource) Kind() ResourceKind { return r.kind }

// Capacity returns the number of units.
func (r *Resource) Capacity() int { return r.capacity }

// Count returns the number of units currently in use.
func (r *Resource) Count() int { return len(r.users) }

// Users returns the granted requests in grant order.
func (r *Resource) Users() []*Request { return slices.Clone(r.users) }

// Queue returns the waiting requests in service order.
func (r *Resource) Queue() []*Request { return slices.Clone(r.queue) }

func (r *Resource) String() string {
	if r.name != "" {
		return fmt.Sprintf("resource(%s)", r.name)
	}
	return fmt.Sprintf("%s resource", r.kind)
}

// Request asks for one unit. The returned request succeeds once the unit is
// granted; it is granted immediately when a unit is free.
func (r *Resource) Request(opts ...RequestOption) *Request {
	r.seq++
	req := &Request{
		eventView:   eventView{ev: newEvent(r.env, KindRequest, r.name)},
		resource:    r,
		proc:        r.env.active,
		priority:    DefaultPriority,
		seq:         r.seq,
		requestedAt: r.env.now,
	}
	for _, opt := range opts {
		opt(req)
	}
	if r.kind == KindFIFO {
		req.priority = DefaultPriority
	}

	if len(r.users) < r.capacity {
		r.grant(req)
		return req
	}
	if r.kind == KindPreemptive {
		if victim := r.victimFor(req); victim != nil {
			r.preempt(victim, req)
			r.grant(req)
			return req
		}
	}
	r.enqueue(req)
	logrus.Tracef("[t=%10.3f] %s queued on %s (priority %d, %d waiting)", r.env.now, req, r, req.priority, len(r.queue))
	return req
}

// Release hands a request back. A granted unit is freed and the queue is
// re-evaluated; a waiting request is withdrawn (the reneging case); a
// preempted request is already settled and releasing it is a no-op.
// Releasing twice, or on the wrong resource, is an error.
func (r *Resource) Release(req *Request) error {
	if req == nil {
		panic("Release: req must not be nil")
	}
	if req.resource != r {
		return fmt.Errorf("release %s on %s: %w", req, r, ErrForeignRequest)
	}
	switch req.state {
	case requestGranted:
		r.users = slices.DeleteFunc(r.users, func(u *Request) bool { return u == req })
		req.state = requestReleased
		logrus.Tracef("[t=%10.3f] %s released on %s", r.env.now, req, r)
		r.admit()
		return nil
	case requestWaiting:
		r.queue = slices.DeleteFunc(r.queue, func(q *Request) bool { return q == req })
		req.state = requestCancelled
		return nil
	case requestPreempted:
		return nil
	default:
		return fmt.Errorf("release %s on %s: %w", req, r, ErrNotHeld)
	}
}

func (r *Resource) grant(req *Request) {
	r.users = append(r.users, req)
	req.state = requestGranted
	req.grantedAt = r.env.now
	_ = req.ev.Succeed(req)
	logrus.Tracef("[t=%10.3f] %s granted on %s (%d/%d in use)", r.env.now, req, r, len(r.users), r.capacity)
}

// admit grants queued requests while units are free.
func (r *Resource) admit() {
	for len(r.users) < r.capacity && len(r.queue) > 0 {
		head := r.queue[0]
		r.queue = r.queue[1:]
		r.grant(head)
	}
}

func (r *Resource) enqueue(req *Request) {
	if r.kind == KindFIFO {
		r.queue = append(r.queue, req)
		return
	}
	// Insert after every request with priority <= req.priority.
	i, _ := slices.BinarySearchFunc(r.queue, req, func(q, target *Request) int {
		if q.priority <= target.priority {
			return -1
		}
		return 1
	})
	r.queue = slices.Insert(r.queue, i, req)
}

// victimFor picks the holder to preempt for req: the preemptible holder with
// the largest priority value strictly above req's; among equals the one
// granted earliest.
func (r *Resource) victimFor(req *Request) *Request {
	var victim *Request
	for _, u := range r.users {
		if !u.preemptible || u.priority <= req.priority {
			continue
		}
		if victim == nil || u.priority > victim.priority {
			victim = u
		}
	}
	return victim
}

func (r *Resource) preempt(victim, by *Request) {
	r.users = slices.DeleteFunc(r.users, func(u *Request) bool { return u == victim })
	victim.state = requestPreempted
	logrus.Debugf("[t=%10.3f] %s preempts %s on %s", r.env.now, by, victim, r)
	if victim.proc == nil || !victim.proc.IsAlive() {
		return
	}
	cause := &Preempted{By: by, UsageSince: victim.grantedAt, Resource: r}
	if err := victim.proc.Interrupt(cause); err != nil {
		logrus.Warnf("[t=%10.3f] could not notify %s of preemption: %v", r.env.now, victim.proc, err)
	}
}

// Resource returns the resource that issued the request.
func (req *Request) Resource() *Resource { return req.resource }

// Process returns the process that made the request, or nil if it was made
// outside any process.
func (req *Request) Process() *Process { return req.proc }

// Priority returns the effective priority.
func (req *Request) Priority() int { return req.priority }

// IsPreemptible reports whether the unit may be reclaimed once granted.
func (req *Request) IsPreemptible() bool { return req.preemptible }

// RequestedAt returns when the request was made.
func (req *Request) RequestedAt() float64 { return req.requestedAt }

// GrantedAt returns when the unit was granted; meaningless before that.
func (req *Request) GrantedAt() float64 { return req.grantedAt }

// Granted reports whether the request currently holds a unit.
func (req *Request) Granted() bool { return req.state == requestGranted }

// Preempted reports whether the unit was reclaimed by a preemptive resource.
func (req *Request) Preempted() bool { return req.state == requestPreempted }

func (req *Request) String() string {
	owner := "-"
	if req.proc != nil {
		owner = req.proc.name
	}
	return fmt.Sprintf("request#%d(%s)", req.seq, owner)
}
