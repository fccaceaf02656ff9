package walkflow

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DraftFormState holds one workflow's in-progress input.
//
// Values are stored as JSON documents, so a Snapshot taken from the draft shares
// no memory with it and later edits cannot reach back into stored history.
type DraftFormState struct {
	fields  map[string]json.RawMessage
	initial map[string]json.RawMessage
}

// NewDraftFormState creates a draft seeded with initial values.
// The initial values define the "clean" state used by IsDirty.
func NewDraftFormState(initial map[string]any) (*DraftFormState, error) {
	fields := make(map[string]json.RawMessage, len(initial))
	for name, value := range initial {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal initial value for field %s: %w", name, err)
		}
		fields[name] = data
	}

	return &DraftFormState{
		fields:  fields,
		initial: cloneFields(fields),
	}, nil
}

// SetField stores a value for name
func (d *DraftFormState) SetField(name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for field %s: %w", name, err)
	}
	d.fields[name] = data
	return nil
}

// GetField decodes the value of name into target
func (d *DraftFormState) GetField(name string, target any) error {
	data, ok := d.fields[name]
	if !ok {
		return fmt.Errorf("field %s not set", name)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal field %s: %w", name, err)
	}
	return nil
}

// ClearField removes name from the draft
func (d *DraftFormState) ClearField(name string) {
	delete(d.fields, name)
}

// Has checks if a field is present
func (d *DraftFormState) Has(name string) bool {
	_, ok := d.fields[name]
	return ok
}

// IsBlank reports whether name is missing or holds null, "", [] or {}
func (d *DraftFormState) IsBlank(name string) bool {
	data, ok := d.fields[name]
	return !ok || isBlankJSON(data)
}

// Changes reports whether value differs from what is stored under name
func (d *DraftFormState) Changes(name string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value for field %s: %w", name, err)
	}
	current, ok := d.fields[name]
	return !ok || string(current) != string(data), nil
}

// IsDirty reports whether the draft differs from its initial value
func (d *DraftFormState) IsDirty() bool {
	return !equalFields(d.fields, d.initial)
}

// Names returns the set field names in sorted order
func (d *DraftFormState) Names() []string {
	names := make([]string, 0, len(d.fields))
	for name := range d.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode unmarshals the whole draft into target, typically a struct with json tags
func (d *DraftFormState) Decode(target any) error {
	data, err := json.Marshal(d.fields)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode draft: %w", err)
	}
	return nil
}

// Snapshot returns a deep copy of the current fields.
// The sequence number is assigned when the snapshot is pushed onto a HistoryStack.
func (d *DraftFormState) Snapshot() Snapshot {
	return newSnapshot(d.fields)
}

// Restore replaces the current fields with a copy of the snapshot's fields
func (d *DraftFormState) Restore(s Snapshot) {
	d.fields = cloneFields(s.fields)
}

// Fields returns a deep copy of the current fields
func (d *DraftFormState) Fields() map[string]json.RawMessage {
	return cloneFields(d.fields)
}

// GetTyped is a generic function for type-safe field retrieval
func GetTyped[T any](d *DraftFormState, name string) (T, error) {
	var result T
	err := d.GetField(name, &result)
	return result, err
}

// GetOrDefault returns the field value, or def when the field is missing or undecodable
func GetOrDefault[T any](d *DraftFormState, name string, def T) T {
	v, err := GetTyped[T](d, name)
	if err != nil {
		return def
	}
	return v
}
