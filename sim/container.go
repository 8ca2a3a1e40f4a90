package sim

import (
	"fmt"
	"math"
	"slices"

	"github.com/sirupsen/logrus"
)

// Container is a bounded continuous quantity. Gets and puts block until the
// whole amount can be taken or added; queued requests are served strictly in
// arrival order, and a blocked head holds back everything behind it.
//
// Invariant: 0 <= level <= capacity.
type Container struct {
	env      *Environment
	name     string
	capacity float64
	level    float64
	puts     []*ContainerPut
	gets     []*ContainerGet
}

// ContainerPut is a pending or completed put of Amount.
type ContainerPut struct {
	eventView
	container *Container
	amount    float64
}

// ContainerGet is a pending or completed get of Amount.
type ContainerGet struct {
	eventView
	container *Container
	amount    float64
}

// NewContainer creates a container with the given capacity and initial level.
func NewContainer(env *Environment, capacity, initial float64) (*Container, error) {
	if env == nil {
		panic("NewContainer: env must not be nil")
	}
	if !(capacity > 0) {
		return nil, fmt.Errorf("container with capacity %v: %w", capacity, ErrInvalidCapacity)
	}
	if initial < 0 || initial > capacity || math.IsNaN(initial) {
		return nil, fmt.Errorf("container level %v of capacity %v: %w", initial, capacity, ErrInvalidLevel)
	}
	return &Container{env: env, capacity: capacity, level: initial}, nil
}

// SetName labels the container in logs.
func (c *Container) SetName(name string) *Container {
	c.name = name
	return c
}

// Capacity returns the maximum level.
func (c *Container) Capacity() float64 { return c.capacity }

// Level returns the current level.
func (c *Container) Level() float64 { return c.level }

func (c *Container) validAmount(op string, amount float64) {
	if !(amount > 0) || math.IsInf(amount, 1) {
		panic(fmt.Sprintf("%s: amount must be positive, got %v", op, amount))
	}
	if amount > c.capacity {
		panic(fmt.Sprintf("%s: amount %v exceeds capacity %v", op, amount, c.capacity))
	}
}

// Put adds amount once there is room for all of it.
func (c *Container) Put(amount float64) *ContainerPut {
	c.validAmount("Put", amount)
	p := &ContainerPut{
		eventView: eventView{ev: newEvent(c.env, KindContainerPut, c.name)},
		container: c,
		amount:    amount,
	}
	c.puts = append(c.puts, p)
	c.settle()
	return p
}

// Get removes amount once the level covers all of it.
func (c *Container) Get(amount float64) *ContainerGet {
	c.validAmount("Get", amount)
	g := &ContainerGet{
		eventView: eventView{ev: newEvent(c.env, KindContainerGet, c.name)},
		container: c,
		amount:    amount,
	}
	c.gets = append(c.gets, g)
	c.settle()
	return g
}

// settle serves queue heads until neither head fits.
func (c *Container) settle() {
	for {
		progressed := false
		for len(c.puts) > 0 && c.level+c.puts[0].amount <= c.capacity {
			p := c.puts[0]
			c.puts = c.puts[1:]
			c.level += p.amount
			_ = p.ev.Succeed(p.amount)
			progressed = true
		}
		for len(c.gets) > 0 && c.gets[0].amount <= c.level {
			g := c.gets[0]
			c.gets = c.gets[1:]
			c.level -= g.amount
			_ = g.ev.Succeed(g.amount)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	logrus.Tracef("[t=%10.3f] container %s level %v/%v (%d puts, %d gets waiting)",
		c.env.now, c.name, c.level, c.capacity, len(c.puts), len(c.gets))
}

// Amount returns the quantity being added.
func (p *ContainerPut) Amount() float64 { return p.amount }

// Cancel withdraws a put that is still waiting for room. Requests queued
// behind it are re-evaluated.
func (p *ContainerPut) Cancel() bool {
	if p.ev.state != StatePending {
		return false
	}
	c := p.container
	n := len(c.puts)
	c.puts = slices.DeleteFunc(c.puts, func(q *ContainerPut) bool { return q == p })
	if len(c.puts) == n {
		return false
	}
	c.settle()
	return true
}

// Amount returns the quantity being removed.
func (g *ContainerGet) Amount() float64 { return g.amount }

// Cancel withdraws a get that is still waiting for level. Requests queued
// behind it are re-evaluated.
func (g *ContainerGet) Cancel() bool {
	if g.ev.state != StatePending {
		return false
	}
	c := g.container
	n := len(c.gets)
	c.gets = slices.DeleteFunc(c.gets, func(q *ContainerGet) bool { return q == g })
	if len(c.gets) == n {
		return false
	}
	c.settle()
	return true
}
