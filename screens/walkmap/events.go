package walkmap

// EventType identifies a view state change
type EventType string

const (
	EventViewChanged EventType = "VIEW_CHANGED"
	EventUndoApplied EventType = "UNDO_APPLIED"
)

// Event is emitted after every view change
type Event struct {
	Type EventType
	View View
	// Field is set for EventViewChanged
	Field string
}

// ViewListener consumes view events
type ViewListener func(Event)

type viewListenerEntry struct {
	id int
	fn ViewListener
}

// SubscribeView registers a view listener and returns a func that removes it.
// Listeners run synchronously in registration order.
func (s *Screen) SubscribeView(l ViewListener) func() {
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, viewListenerEntry{id: id, fn: l})

	return func() {
		for i, entry := range s.listeners {
			if entry.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Screen) emit(e Event) {
	e.View = s.View()
	listeners := append([]viewListenerEntry(nil), s.listeners...)
	for _, entry := range listeners {
		entry.fn(e)
	}
}
