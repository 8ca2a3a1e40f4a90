package sim

import (
	"fmt"
	"math"
	"slices"
)

// Unbounded is the capacity of a store with no practical limit.
const Unbounded = math.MaxInt

// Store is a bounded FIFO of discrete items with blocking put and get.
// Pending puts and gets are served strictly in arrival order.
//
// Invariant: 0 <= len(items) <= capacity.
type Store struct {
	env      *Environment
	name     string
	capacity int
	items    []any
	puts     []*StorePut
	gets     []*StoreGet
}

// StorePut is a pending or completed put. It succeeds once the item is in
// the store.
type StorePut struct {
	eventView
	store *Store
	item  any
}

// StoreGet is a pending or completed get. Its value is the removed item.
type StoreGet struct {
	eventView
	store *Store
}

// NewStore creates a store holding at most capacity items.
func NewStore(env *Environment, capacity int) (*Store, error) {
	if env == nil {
		panic("NewStore: env must not be nil")
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("store with capacity %d: %w", capacity, ErrInvalidCapacity)
	}
	return &Store{env: env, capacity: capacity}, nil
}

// SetName labels the store in logs.
func (s *Store) SetName(name string) *Store {
	s.name = name
	return s
}

// Capacity returns the maximum number of items.
func (s *Store) Capacity() int { return s.capacity }

// Len returns the number of items held.
func (s *Store) Len() int { return len(s.items) }

// Items returns a copy of the held items, oldest first.
func (s *Store) Items() []any { return slices.Clone(s.items) }

// Put offers item to the store.
func (s *Store) Put(item any) *StorePut {
	p := &StorePut{
		eventView: eventView{ev: newEvent(s.env, KindStorePut, s.name)},
		store:     s,
		item:      item,
	}
	s.puts = append(s.puts, p)
	s.settle()
	return p
}

// Get asks for the oldest item.
func (s *Store) Get() *StoreGet {
	g := &StoreGet{
		eventView: eventView{ev: newEvent(s.env, KindStoreGet, s.name)},
		store:     s,
	}
	s.gets = append(s.gets, g)
	s.settle()
	return g
}

// settle matches queued puts and gets until neither side can move.
func (s *Store) settle() {
	for {
		progressed := false
		for len(s.puts) > 0 && len(s.items) < s.capacity {
			p := s.puts[0]
			s.puts = s.puts[1:]
			s.items = append(s.items, p.item)
			_ = p.ev.Succeed(p.item)
			progressed = true
		}
		for len(s.gets) > 0 && len(s.items) > 0 {
			g := s.gets[0]
			s.gets = s.gets[1:]
			item := s.items[0]
			s.items[0] = nil
			s.items = s.items[1:]
			_ = g.ev.Succeed(item)
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

// Item returns the item being put.
func (p *StorePut) Item() any { return p.item }

// Cancel withdraws a put that is still waiting for space. It reports
// whether anything was withdrawn.
func (p *StorePut) Cancel() bool {
	if p.ev.state != StatePending {
		return false
	}
	n := len(p.store.puts)
	p.store.puts = slices.DeleteFunc(p.store.puts, func(q *StorePut) bool { return q == p })
	return len(p.store.puts) != n
}

// Cancel withdraws a get that is still waiting for an item. It reports
// whether anything was withdrawn.
func (g *StoreGet) Cancel() bool {
	if g.ev.state != StatePending {
		return false
	}
	n := len(g.store.gets)
	g.store.gets = slices.DeleteFunc(g.store.gets, func(q *StoreGet) bool { return q == g })
	return len(g.store.gets) != n
}
