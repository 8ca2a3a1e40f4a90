package sim

import "container/heap"

// Scheduling priorities for events due at the same time.
// Lower values are processed first.
const (
	priorityUrgent = 0 // process start, interrupt delivery
	priorityNormal = 1 // everything else
)

// scheduledEvent is an event sitting in the schedule.
type scheduledEvent struct {
	at       float64
	priority int
	seq      uint64
	ev       *Event
}

// EventHeap is the kernel's schedule, ordered by due time, then priority,
// then insertion sequence. Equal keys never occur because seq is unique.
type EventHeap struct {
	entries []*scheduledEvent
}

// NewEventHeap returns an empty schedule.
func NewEventHeap() *EventHeap {
	return &EventHeap{}
}

func (h *EventHeap) Len() int { return len(h.entries) }

func (h *EventHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if a.at != b.at {
		return a.at < b.at
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

func (h *EventHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

// Push is for container/heap; use Schedule.
func (h *EventHeap) Push(x any) { h.entries = append(h.entries, x.(*scheduledEvent)) }

// Pop is for container/heap; use PopNext.
func (h *EventHeap) Pop() any {
	n := len(h.entries)
	last := h.entries[n-1]
	h.entries[n-1] = nil
	h.entries = h.entries[:n-1]
	return last
}

// Schedule adds an entry.
func (h *EventHeap) Schedule(e *scheduledEvent) { heap.Push(h, e) }

// PopNext removes and returns the earliest entry, or nil when empty.
func (h *EventHeap) PopNext() *scheduledEvent {
	if len(h.entries) == 0 {
		return nil
	}
	return heap.Pop(h).(*scheduledEvent)
}

// Peek returns the earliest entry without removing it, or nil when empty.
func (h *EventHeap) Peek() *scheduledEvent {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[0]
}
