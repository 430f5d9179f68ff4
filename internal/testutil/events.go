package testutil

import (
	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/records"
)

// MustEncode serializes a record payload. Record types always encode, so
// a failure means the test itself is broken.
func MustEncode(v any) string {
	s, err := records.Encode(v)
	if err != nil {
		panic(err)
	}
	return s
}

// AddVariable returns model/variable/add for a variable named after its id.
func AddVariable(id, updateFn string) event.Event {
	return event.New(MustEncode(records.VariableData{ID: id, Name: id, UpdateFn: updateFn}),
		"model", "variable", "add")
}

// RemoveVariable returns model/variable/<id>/remove.
func RemoveVariable(id string) event.Event {
	return event.At("model", "variable", id, "remove")
}

// SetVariableName returns model/variable/<id>/set_name.
func SetVariableName(id, name string) event.Event {
	return event.New(name, "model", "variable", id, "set_name")
}

// SetUpdateFn returns model/variable/<id>/set_update_fn.
func SetUpdateFn(id, expr string) event.Event {
	return event.New(expr, "model", "variable", id, "set_update_fn")
}

// AddRegulation returns model/regulation/add for an essential activation.
func AddRegulation(regulator, target string) event.Event {
	return event.New(MustEncode(records.RegulationData{
		Regulator: regulator,
		Target:    target,
		Sign:      records.SignActivation,
		Essential: records.EssentialTrue,
	}), "model", "regulation", "add")
}

// AddLayout returns model/layout/add for an empty layout.
func AddLayout(id, name string) event.Event {
	return event.New(MustEncode(records.LayoutData{ID: id, Name: name}), "model", "layout", "add")
}

// SetPosition returns model/layout/<layout>/update_position.
func SetPosition(layout, variable string, x, y float64) event.Event {
	return event.New(MustEncode(records.LayoutNodeData{Layout: layout, Variable: variable, X: x, Y: y}),
		"model", "layout", layout, "update_position")
}

// AddFunction returns model/function/add.
func AddFunction(id string, arity int, expr string) event.Event {
	return event.New(MustEncode(records.FunctionData{ID: id, Name: id, Arity: arity, Expression: expr}),
		"model", "function", "add")
}

// AddDataset returns observations/add for a dataset over variables whose
// observations are given as id → values pairs in order.
func AddDataset(id string, variables []string, rows ...[2]string) event.Event {
	data := records.DatasetData{ID: id, Name: id, Variables: variables, Observations: []records.ObservationData{}}
	for _, r := range rows {
		data.Observations = append(data.Observations, records.ObservationData{ID: r[0], Name: r[0], Values: r[1]})
	}
	return event.New(MustEncode(data), "observations", "add")
}

// RemoveObservation returns observations/<dataset>/<obs>/remove.
func RemoveObservation(dataset, obs string) event.Event {
	return event.At("observations", dataset, obs, "remove")
}

// AddDynamicProperty returns properties/dynamic/add.
func AddDynamicProperty(id, variant, dataset string) event.Event {
	return event.New(MustEncode(records.PropertyData{ID: id, Name: id, Variant: variant, Dataset: dataset}),
		"properties", "dynamic", "add")
}

// ReferenceEvents builds the sketch used by cascade tests: variables a, b
// and c, regulation a -> b, and a placed at (10, 20) in the default layout.
// Removing a then expands to exactly three events.
func ReferenceEvents() []event.Event {
	return []event.Event{
		AddVariable("a", ""),
		AddVariable("b", ""),
		AddVariable("c", ""),
		AddRegulation("a", "b"),
		SetPosition("default", "a", 10, 20),
	}
}
