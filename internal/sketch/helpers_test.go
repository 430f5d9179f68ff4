package sketch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/records"
)

func mustPerform(t *testing.T, s *Sketch, ev event.Event) event.Consumed {
	t.Helper()
	c, err := s.Perform(ev)
	require.NoError(t, err, "perform %s", ev)
	return c
}

func encode(t *testing.T, v any) string {
	t.Helper()
	s, err := records.Encode(v)
	require.NoError(t, err)
	return s
}

func addVariableEvent(t *testing.T, id, updateFn string) event.Event {
	return event.New(encode(t, records.VariableData{ID: id, Name: id, UpdateFn: updateFn}),
		"model", "variable", "add")
}

func positionEvent(t *testing.T, layout, variable string, x, y float64) event.Event {
	return event.New(encode(t, records.LayoutNodeData{Layout: layout, Variable: variable, X: x, Y: y}),
		"model", "layout", layout, "update_position")
}

// scenarioSketch builds the fixture most tests start from:
//
//	variables a, b, c with regulation a -> b (activation, essential)
//	a at (10, 20) in the default layout
//	layout l1 ("Second") with b at (3, 4)
//	function f/2 = var0 && !var1, unused
//	dataset d1 over [a, b] with rows o1 "01" and o2 "1*"
//	dynamic property p1 on d1, static property s1
func scenarioSketch(t *testing.T) *Sketch {
	t.Helper()
	s := New()
	for _, ev := range []event.Event{
		addVariableEvent(t, "a", ""),
		addVariableEvent(t, "b", ""),
		addVariableEvent(t, "c", ""),
		event.New(encode(t, records.RegulationData{
			Regulator: "a", Target: "b", Sign: "activation", Essential: "true",
		}), "model", "regulation", "add"),
		positionEvent(t, "default", "a", 10, 20),
		event.New(encode(t, records.LayoutData{ID: "l1", Name: "Second"}), "model", "layout", "add"),
		positionEvent(t, "l1", "b", 3, 4),
		event.New(encode(t, records.FunctionData{
			ID: "f", Name: "f", Arity: 2, Expression: "var0 && !var1",
		}), "model", "function", "add"),
		event.New(encode(t, records.DatasetData{
			ID:        "d1",
			Name:      "Dataset 1",
			Variables: []string{"a", "b"},
			Observations: []records.ObservationData{
				{ID: "o1", Name: "first", Values: "01"},
				{ID: "o2", Name: "second", Values: "1*"},
			},
		}), "observations", "add"),
		event.New(encode(t, records.PropertyData{
			ID: "p1", Name: "reach", Variant: "trajectory", Dataset: "d1", Formula: "d1 -> d1",
		}), "properties", "dynamic", "add"),
		event.New(encode(t, records.PropertyData{
			ID: "s1", Name: "monotone", Variant: "generic", Formula: "true",
		}), "properties", "static", "add"),
	} {
		mustPerform(t, s, ev)
	}
	return s
}
