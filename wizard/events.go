package wizard

import "github.com/sicko7947/walkflow"

// EventType identifies a controller state change
type EventType string

const (
	EventFieldChanged    EventType = "FIELD_CHANGED"
	EventUndoApplied     EventType = "UNDO_APPLIED"
	EventStepAdvanced    EventType = "STEP_ADVANCED"
	EventAdvanceBlocked  EventType = "ADVANCE_BLOCKED"
	EventStepRetreated   EventType = "STEP_RETREATED"
	EventCancelRequested EventType = "CANCEL_REQUESTED"
	EventCancelDismissed EventType = "CANCEL_DISMISSED"
	EventExited          EventType = "EXITED"
)

// Event is emitted after every state-changing operation
type Event struct {
	Type  EventType
	State walkflow.WorkflowState
	// Field is set for EventFieldChanged
	Field string
}

// Listener consumes controller events
type Listener func(Event)

// Subscribe registers a listener and returns a func that removes it.
// Listeners run synchronously in registration order.
func (c *Controller) Subscribe(l Listener) func() {
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: l})

	return func() {
		for i, entry := range c.listeners {
			if entry.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) emit(e Event) {
	e.State = c.state
	listeners := append([]listenerEntry(nil), c.listeners...)
	for _, entry := range listeners {
		entry.fn(e)
	}
}
