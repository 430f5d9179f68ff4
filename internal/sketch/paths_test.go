package sketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sketchbook/internal/event"
)

func TestParseAction(t *testing.T) {
	for _, segment := range []string{
		actAdd, actRemove, actSetName, actSetID, actSetUpdateFn, actSetSign,
		actSetEssential, actUpdatePosition, actSetArity, actSetExpression,
		actPushObs, actPushEmptyObs, actPopObs, actSetContent,
	} {
		a := parseAction(segment)
		assert.NotEqual(t, actionUnknown, a, segment)
		assert.Equal(t, segment, a.String())
	}

	for _, segment := range []string{"", "Add", "explode", "set-name", "remove "} {
		assert.Equal(t, actionUnknown, parseAction(segment), "%q", segment)
	}
}

func TestPerform_ActionFromAnotherCollection(t *testing.T) {
	tests := []struct {
		name string
		ev   event.Event
	}{
		{"variable sign", event.New("dual", "model", "variable", "a", "set_sign")},
		{"variable add with id", event.New("x", "model", "variable", "a", "add")},
		{"regulation name", event.New("x", "model", "regulation", "a", "b", "set_name")},
		{"layout id", event.New("l2", "model", "layout", "l1", "set_id")},
		{"function position", event.New("x", "model", "function", "f", "update_position")},
		{"dataset content", event.New("x", "observations", "d1", "set_content")},
		{"observation push", event.New("x", "observations", "d1", "o1", "push_obs")},
		{"observation name", event.New("x", "observations", "d1", "o1", "set_name")},
		{"property arity", event.New("2", "properties", "static", "s1", "set_arity")},
		{"property update fn", event.New("a", "properties", "dynamic", "p1", "set_update_fn")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scenarioSketch(t)
			before := s.Data()

			_, err := s.Perform(tt.ev)

			require.Error(t, err)
			assert.ErrorIs(t, err, event.ErrUnknownPath)
			assert.Equal(t, before, s.Data())
		})
	}
}
