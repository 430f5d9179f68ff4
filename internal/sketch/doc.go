// Package sketch holds the editable state of a Boolean-network sketch and
// the interpreters that mutate it.
//
// A Sketch is split into three components, each addressed by the first
// path segment of an event:
//
//	model/...          variables, regulations, layouts, functions
//	observations/...   datasets and their observation rows
//	properties/...     dynamic and static properties
//
// Every successful Perform returns an event.Consumed describing what
// happened. Reversible results carry the inverse event, so applying the
// reverse restores the previous state exactly. A Restart result means the
// sketch was left untouched and the caller must apply the listed events,
// in order, instead.
//
// Perform never leaves a component half-modified: all checks run before
// the first mutation. A Sketch is not safe for concurrent use; the session
// controller serializes access.
package sketch
