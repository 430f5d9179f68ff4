package event

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Event is a path-addressed request to mutate a sketch.
//
// The zero value is an empty event with no payload. Fields are unexported so
// that a forward event and the reverse event built from it can never share
// a backing array.
type Event struct {
	path       []string
	payload    string
	hasPayload bool
}

// At creates an event without payload addressed at the given path.
func At(segments ...string) Event {
	return Event{path: slices.Clone(segments)}
}

// New creates an event at path carrying payload.
func New(payload string, segments ...string) Event {
	return Event{path: slices.Clone(segments), payload: payload, hasPayload: true}
}

// Path returns a copy of the path segments.
func (e Event) Path() []string {
	return slices.Clone(e.path)
}

// Len returns the number of path segments.
func (e Event) Len() int {
	return len(e.path)
}

// Segment returns the i-th path segment, or "" when out of range.
func (e Event) Segment(i int) string {
	if i < 0 || i >= len(e.path) {
		return ""
	}
	return e.path[i]
}

// Payload returns the payload and whether one is present.
func (e Event) Payload() (string, bool) {
	return e.payload, e.hasPayload
}

// HasPayload reports whether the event carries a payload.
func (e Event) HasPayload() bool {
	return e.hasPayload
}

// WithPayload returns a new event at the same path carrying payload.
func (e Event) WithPayload(payload string) Event {
	return Event{path: slices.Clone(e.path), payload: payload, hasPayload: true}
}

// WithoutPayload returns a new event at the same path with no payload.
func (e Event) WithoutPayload() Event {
	return Event{path: slices.Clone(e.path)}
}

// Equal reports whether two events have identical paths and payloads.
func (e Event) Equal(other Event) bool {
	return slices.Equal(e.path, other.path) &&
		e.hasPayload == other.hasPayload &&
		e.payload == other.payload
}

// String renders the event as "a/b/c" or "a/b/c <payload>".
func (e Event) String() string {
	p := strings.Join(e.path, "/")
	if !e.hasPayload {
		return p
	}
	return fmt.Sprintf("%s %s", p, e.payload)
}

// wireEvent is the JSON shape of an Event.
type wireEvent struct {
	Path    []string `json:"path"`
	Payload *string  `json:"payload,omitempty"`
}

// MarshalJSON encodes the event as {"path":[...],"payload":"..."}.
// The payload key is omitted when the event carries none.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Path: e.path}
	if w.Path == nil {
		w.Path = []string{}
	}
	if e.hasPayload {
		p := e.payload
		w.Payload = &p
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the JSON shape produced by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	e.path = slices.Clone(w.Path)
	e.payload = ""
	e.hasPayload = false
	if w.Payload != nil {
		e.payload = *w.Payload
		e.hasPayload = true
	}
	return nil
}

// StateChange is the broadcast description of an applied mutation.
//
// It is Event-shaped, but its path names only the action kind
// (e.g. model/variable/set_name); the affected identifiers travel in the
// payload so observers see a uniform shape per action kind.
type StateChange struct {
	Event
}

// Change creates a state change at path with payload.
func Change(payload string, segments ...string) StateChange {
	return StateChange{Event: New(payload, segments...)}
}

// ChangeFrom wraps an existing event as a state change.
// Used when an add event is already in broadcast shape.
func ChangeFrom(e Event) StateChange {
	return StateChange{Event: Event{path: slices.Clone(e.path), payload: e.payload, hasPayload: e.hasPayload}}
}
