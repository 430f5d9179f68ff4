package sketch

import "github.com/roach88/sketchbook/internal/event"

// Perform applies a model event. at is the path below the "model" segment.
func (m *ModelState) Perform(ev event.Event, at []string) (event.Consumed, error) {
	if len(at) == 0 {
		return nil, event.UnknownPath(ComponentModel, at)
	}
	switch at[0] {
	case segVariable:
		return m.performVariableEvent(ev, at[1:])
	case segRegulation:
		return m.performRegulationEvent(ev, at[1:])
	case segLayout:
		return m.performLayoutEvent(ev, at[1:])
	case segFunction:
		return m.performFunctionEvent(ev, at[1:])
	default:
		return nil, event.UnknownPath(ComponentModel, at)
	}
}
