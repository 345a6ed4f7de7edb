package sim

import (
	"fmt"

	"github.com/milk9111/tilenav/ai"
	"github.com/milk9111/tilenav/navgrid"
)

type EventKind string

const (
	EventStateChanged EventKind = "state_changed"
	EventArrived      EventKind = "arrived"
)

// Event records something an agent did during a tick.
type Event struct {
	Tick   int
	Entity Entity
	Kind   EventKind
	From   ai.StateID
	To     ai.StateID
	Cell   navgrid.Cell
}

func (e Event) String() string {
	switch e.Kind {
	case EventStateChanged:
		return fmt.Sprintf("%d %s %s %s->%s at %s", e.Tick, e.Entity, e.Kind, e.From, e.To, e.Cell)
	default:
		return fmt.Sprintf("%d %s %s at %s", e.Tick, e.Entity, e.Kind, e.Cell)
	}
}

// EventQueue is a FIFO of events collected during an update.
type EventQueue struct {
	items []Event
}

func (q *EventQueue) Push(evt Event) {
	q.items = append(q.items, evt)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *EventQueue) Len() int {
	return len(q.items)
}
