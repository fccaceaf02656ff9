package walkflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is an immutable point-in-time copy of a workflow's undoable fields
type Snapshot struct {
	seq       uint64
	fields    map[string]json.RawMessage
	createdAt time.Time
}

func newSnapshot(fields map[string]json.RawMessage) Snapshot {
	return Snapshot{
		fields:    cloneFields(fields),
		createdAt: time.Now(),
	}
}

// Seq returns the sequence number assigned by the history stack (0 if never pushed)
func (s Snapshot) Seq() uint64 {
	return s.seq
}

// CreatedAt returns when the snapshot was taken
func (s Snapshot) CreatedAt() time.Time {
	return s.createdAt
}

// Field decodes a captured field into target
func (s Snapshot) Field(name string, target any) error {
	data, ok := s.fields[name]
	if !ok {
		return fmt.Errorf("field %s not captured in snapshot %d", name, s.seq)
	}
	return json.Unmarshal(data, target)
}

// Fields returns a deep copy of the captured fields
func (s Snapshot) Fields() map[string]json.RawMessage {
	return cloneFields(s.fields)
}

// HistoryStack is a bounded LIFO of snapshots.
// When a push exceeds capacity the oldest snapshot is dropped. There is no redo.
type HistoryStack struct {
	entries  []Snapshot // oldest first
	capacity int
	nextSeq  uint64
}

// NewHistoryStack creates a stack holding at most capacity snapshots.
// A non-positive capacity falls back to DefaultHistoryCapacity.
func NewHistoryStack(capacity int) *HistoryStack {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryStack{
		entries:  make([]Snapshot, 0, capacity),
		capacity: capacity,
	}
}

// Push stamps the snapshot with the next sequence number and appends it.
// It returns the stored snapshot.
func (h *HistoryStack) Push(s Snapshot) Snapshot {
	h.nextSeq++
	s.seq = h.nextSeq

	if len(h.entries) == h.capacity {
		// Evict oldest
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, s)
	return s
}

// Undo removes and returns the most recent snapshot.
// On an empty stack it returns false and callers must leave their state untouched.
func (h *HistoryStack) Undo() (Snapshot, bool) {
	if len(h.entries) == 0 {
		return Snapshot{}, false
	}
	last := h.entries[len(h.entries)-1]
	h.entries[len(h.entries)-1] = Snapshot{}
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}

// Peek returns the most recent snapshot without removing it
func (h *HistoryStack) Peek() (Snapshot, bool) {
	if len(h.entries) == 0 {
		return Snapshot{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Clear empties the stack; used on workflow exit
func (h *HistoryStack) Clear() {
	clear(h.entries)
	h.entries = h.entries[:0]
}

// Len returns the number of stored snapshots
func (h *HistoryStack) Len() int {
	return len(h.entries)
}

// Cap returns the stack capacity
func (h *HistoryStack) Cap() int {
	return h.capacity
}

// Snapshots returns the stored snapshots, oldest first
func (h *HistoryStack) Snapshots() []Snapshot {
	out := make([]Snapshot, len(h.entries))
	copy(out, h.entries)
	return out
}
