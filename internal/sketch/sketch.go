package sketch

import (
	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

// Sketch is the complete editable state: model, observations and
// properties.
type Sketch struct {
	model        *ModelState
	observations *ObservationManager
	properties   *PropertyManager
}

// New returns an empty sketch.
func New() *Sketch {
	return &Sketch{
		model:        NewModel(),
		observations: NewObservationManager(),
		properties:   NewPropertyManager(),
	}
}

// Model returns the model component.
func (s *Sketch) Model() *ModelState { return s.model }

// Observations returns the observations component.
func (s *Sketch) Observations() *ObservationManager { return s.observations }

// Properties returns the properties component.
func (s *Sketch) Properties() *PropertyManager { return s.properties }

// Clone returns a deep copy that shares no mutable state with s.
func (s *Sketch) Clone() *Sketch {
	return &Sketch{
		model:        s.model.clone(),
		observations: s.observations.clone(),
		properties:   s.properties.clone(),
	}
}

// Data returns the serialized sketch. Two sketches with equal Data are
// indistinguishable through Perform.
func (s *Sketch) Data() records.SketchData {
	return records.SketchData{
		Model:          s.model.Data(),
		Datasets:       s.observations.Data(),
		DynProperties:  s.properties.DynamicData(),
		StatProperties: s.properties.StaticData(),
	}
}

// Perform routes ev by its first path segment and applies it. Errors are
// annotated with the full event path.
func (s *Sketch) Perform(ev event.Event) (event.Consumed, error) {
	c, err := s.perform(ev)
	if err != nil {
		return nil, event.WithPath(err, ev.Path())
	}
	return c, nil
}

func (s *Sketch) perform(ev event.Event) (event.Consumed, error) {
	path := ev.Path()
	if len(path) == 0 {
		return nil, event.UnknownPath("sketch", path)
	}
	in, ok := s.interpreter(path[0])
	if !ok {
		return nil, event.UnknownPath("sketch", path)
	}
	return in.Perform(ev, path[1:])
}

// Interpreter applies events addressed to one component. at is the event
// path below the component segment.
type Interpreter interface {
	Perform(ev event.Event, at []string) (event.Consumed, error)
}

// InterpreterFunc adapts a function to Interpreter.
type InterpreterFunc func(ev event.Event, at []string) (event.Consumed, error)

// Perform calls f.
func (f InterpreterFunc) Perform(ev event.Event, at []string) (event.Consumed, error) {
	return f(ev, at)
}

var (
	_ Interpreter = (*ModelState)(nil)
	_ Interpreter = (*ObservationManager)(nil)
)

func (s *Sketch) interpreter(component string) (Interpreter, bool) {
	switch component {
	case ComponentModel:
		return s.model, true
	case ComponentObservations:
		return InterpreterFunc(s.performObservationEvent), true
	case ComponentProperties:
		return InterpreterFunc(func(ev event.Event, at []string) (event.Consumed, error) {
			return s.properties.Perform(ev, at, s.observations.HasDataset)
		}), true
	default:
		return nil, false
	}
}

// performObservationEvent adds the cross-component rules for datasets:
// a dataset referenced by a dynamic property cannot be removed, and
// renaming a dataset updates those references.
func (s *Sketch) performObservationEvent(ev event.Event, at []string) (event.Consumed, error) {
	if len(at) != 2 {
		return s.observations.Perform(ev, at)
	}
	act := parseAction(at[1])
	if act != actionRemove && act != actionSetID {
		return s.observations.Perform(ev, at)
	}
	id, err := ids.Parse[ids.Dataset](at[0])
	if err != nil || !s.observations.HasDataset(id) {
		return s.observations.Perform(ev, at)
	}

	if act == actionRemove {
		if users := s.properties.datasetUsers(id); len(users) > 0 {
			return nil, event.InvariantViolation(
				"cannot remove dataset `%s`: it is used by %s", id, joinIDs(users))
		}
		return s.observations.Perform(ev, at)
	}

	c, err := s.observations.Perform(ev, at)
	if err != nil {
		return nil, err
	}
	if _, changed := c.(event.Reversible); changed {
		payload, _ := ev.Payload()
		s.properties.retargetDataset(id, ids.MustParse[ids.Dataset](payload))
	}
	return c, nil
}

// FromData builds a sketch from its serialized form. Every entity goes
// through the same checks as an interactive edit.
func FromData(data records.SketchData) (*Sketch, error) {
	if err := records.Validate(data); err != nil {
		return nil, event.MalformedPayload("sketch", err)
	}
	evs, err := loadEvents(data)
	if err != nil {
		return nil, err
	}
	s := New()
	for _, ev := range evs {
		c, err := s.Perform(ev)
		if err != nil {
			return nil, err
		}
		if c.Kind() == event.KindRestart {
			return nil, event.InvariantViolation("loading %s requires a cascade", ev)
		}
	}
	return s, nil
}

// loadEvents lists the events that recreate data on an empty sketch.
// Entities are created bare first so that expressions may reference
// entities declared later in the record.
func loadEvents(data records.SketchData) ([]event.Event, error) {
	var (
		evs      []event.Event
		firstErr error
	)
	add := func(v any, segments ...string) {
		payload, err := records.Encode(v)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		evs = append(evs, event.New(payload, segments...))
	}

	m := data.Model
	for _, v := range m.Variables {
		add(records.VariableData{ID: v.ID, Name: v.Name}, ComponentModel, segVariable, actAdd)
	}
	for _, f := range m.Functions {
		add(records.FunctionData{ID: f.ID, Name: f.Name, Arity: f.Arity}, ComponentModel, segFunction, actAdd)
	}
	for _, f := range m.Functions {
		if f.Expression != "" {
			evs = append(evs, event.New(f.Expression, ComponentModel, segFunction, f.ID, actSetExpression))
		}
	}
	for _, v := range m.Variables {
		if v.UpdateFn != "" {
			evs = append(evs, event.New(v.UpdateFn, ComponentModel, segVariable, v.ID, actSetUpdateFn))
		}
	}
	for _, r := range m.Regulations {
		add(r, ComponentModel, segRegulation, actAdd)
	}
	for _, l := range m.Layouts {
		if l.ID != DefaultLayoutID.String() {
			add(l, ComponentModel, segLayout, actAdd)
			continue
		}
		evs = append(evs, event.New(l.Name, ComponentModel, segLayout, l.ID, actSetName))
		for _, n := range l.Nodes {
			add(n, ComponentModel, segLayout, l.ID, actUpdatePosition)
		}
	}
	for _, d := range data.Datasets {
		add(d, ComponentObservations, actAdd)
	}
	for _, p := range data.DynProperties {
		add(p, ComponentProperties, segDynamic, actAdd)
	}
	for _, p := range data.StatProperties {
		add(p, ComponentProperties, segStatic, actAdd)
	}
	return evs, firstErr
}
