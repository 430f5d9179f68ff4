package sketch

import (
	"fmt"
	"strconv"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

// Top-level path segments.
const (
	ComponentModel        = "model"
	ComponentObservations = "observations"
	ComponentProperties   = "properties"
)

// Second-level segments.
const (
	segVariable   = "variable"
	segRegulation = "regulation"
	segLayout     = "layout"
	segFunction   = "function"
	segDynamic    = "dynamic"
	segStatic     = "static"
)

// Action segments.
const (
	actAdd            = "add"
	actRemove         = "remove"
	actSetName        = "set_name"
	actSetID          = "set_id"
	actSetUpdateFn    = "set_update_fn"
	actSetSign        = "set_sign"
	actSetEssential   = "set_essentiality"
	actUpdatePosition = "update_position"
	actSetArity       = "set_arity"
	actSetExpression  = "set_expression"
	actPushObs        = "push_obs"
	actPushEmptyObs   = "push_empty_obs"
	actPopObs         = "pop_obs"
	actSetContent     = "set_content"
)

// action is the parsed form of an action segment. Each collection
// switches over the actions it supports; everything else is an unknown
// path.
type action uint8

const (
	actionUnknown action = iota
	actionAdd
	actionRemove
	actionSetName
	actionSetID
	actionSetUpdateFn
	actionSetSign
	actionSetEssential
	actionUpdatePosition
	actionSetArity
	actionSetExpression
	actionPushObs
	actionPushEmptyObs
	actionPopObs
	actionSetContent
)

func parseAction(segment string) action {
	switch segment {
	case actAdd:
		return actionAdd
	case actRemove:
		return actionRemove
	case actSetName:
		return actionSetName
	case actSetID:
		return actionSetID
	case actSetUpdateFn:
		return actionSetUpdateFn
	case actSetSign:
		return actionSetSign
	case actSetEssential:
		return actionSetEssential
	case actUpdatePosition:
		return actionUpdatePosition
	case actSetArity:
		return actionSetArity
	case actSetExpression:
		return actionSetExpression
	case actPushObs:
		return actionPushObs
	case actPushEmptyObs:
		return actionPushEmptyObs
	case actPopObs:
		return actionPopObs
	case actSetContent:
		return actionSetContent
	default:
		return actionUnknown
	}
}

func (a action) String() string {
	switch a {
	case actionAdd:
		return actAdd
	case actionRemove:
		return actRemove
	case actionSetName:
		return actSetName
	case actionSetID:
		return actSetID
	case actionSetUpdateFn:
		return actSetUpdateFn
	case actionSetSign:
		return actSetSign
	case actionSetEssential:
		return actSetEssential
	case actionUpdatePosition:
		return actUpdatePosition
	case actionSetArity:
		return actSetArity
	case actionSetExpression:
		return actSetExpression
	case actionPushObs:
		return actPushObs
	case actionPushEmptyObs:
		return actPushEmptyObs
	case actionPopObs:
		return actPopObs
	case actionSetContent:
		return actSetContent
	default:
		return "unknown"
	}
}

// isAdd reports whether at is the single "add" segment that every
// collection accepts.
func isAdd(at []string) bool {
	return len(at) == 1 && parseAction(at[0]) == actionAdd
}

func requirePayload(ev event.Event, component string) (string, error) {
	payload, ok := ev.Payload()
	if !ok {
		return "", event.PayloadPresence(component, true)
	}
	return payload, nil
}

func requireNoPayload(ev event.Event, component string) error {
	if ev.HasPayload() {
		return event.PayloadPresence(component, false)
	}
	return nil
}

func decodePayload[T any](ev event.Event, component string) (T, error) {
	var zero T
	payload, err := requirePayload(ev, component)
	if err != nil {
		return zero, err
	}
	v, err := records.Decode[T](payload)
	if err != nil {
		return zero, event.MalformedPayload(component, err)
	}
	return v, nil
}

func encodePayload(v any) (string, error) {
	s, err := records.Encode(v)
	if err != nil {
		return "", fmt.Errorf("encode state change: %w", err)
	}
	return s, nil
}

// payloadID reads a raw payload as an identifier of category C.
func payloadID[C ids.Category](ev event.Event, component string) (ids.ID[C], error) {
	payload, err := requirePayload(ev, component)
	if err != nil {
		return ids.ID[C]{}, err
	}
	id, err := ids.Parse[C](payload)
	if err != nil {
		return ids.ID[C]{}, event.MalformedPayload(component, err)
	}
	return id, nil
}

func payloadInt(ev event.Event, component string) (int, error) {
	payload, err := requirePayload(ev, component)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(payload)
	if err != nil {
		return 0, event.MalformedPayload(component, err)
	}
	return n, nil
}

// existingID parses a path segment and reports UnknownID when the segment
// is not a valid identifier or names nothing.
func existingID[C ids.Category](segment string, exists func(ids.ID[C]) bool) (ids.ID[C], error) {
	id, err := ids.Parse[C](segment)
	if err != nil || !exists(id) {
		var c C
		return ids.ID[C]{}, event.UnknownID(c.Name(), segment)
	}
	return id, nil
}

func reversible(change event.StateChange, reverse event.Event) (event.Consumed, error) {
	return event.Reversible{Change: change, Reverse: reverse}, nil
}
