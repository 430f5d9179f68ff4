package sketch

import (
	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/fnexpr"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

const componentVariable = "model/variable"

type variableHandler func(*ModelState, event.Event, ids.VarID) (event.Consumed, error)

func variableAction(a action) variableHandler {
	switch a {
	case actionRemove:
		return (*ModelState).removeVariable
	case actionSetName:
		return (*ModelState).setVariableName
	case actionSetID:
		return (*ModelState).setVariableID
	case actionSetUpdateFn:
		return (*ModelState).setUpdateFn
	default:
		return nil
	}
}

func (m *ModelState) performVariableEvent(ev event.Event, at []string) (event.Consumed, error) {
	if isAdd(at) {
		return m.addVariable(ev)
	}
	if len(at) != 2 {
		return nil, event.UnknownPath(componentVariable, at)
	}
	handler := variableAction(parseAction(at[1]))
	if handler == nil {
		return nil, event.UnknownPath(componentVariable, at)
	}
	id, err := existingID(at[0], m.HasVariable)
	if err != nil {
		return nil, err
	}
	return handler(m, ev, id)
}

func (m *ModelState) addVariable(ev event.Event) (event.Consumed, error) {
	data, err := decodePayload[records.VariableData](ev, componentVariable)
	if err != nil {
		return nil, err
	}
	id := ids.MustParse[ids.Var](data.ID)
	if m.HasVariable(id) {
		return nil, event.DuplicateID("variable", data.ID)
	}
	if err := checkVariableID(id); err != nil {
		return nil, err
	}
	update, err := fnexpr.Parse(data.UpdateFn)
	if err != nil {
		return nil, event.MalformedPayload(componentVariable, err)
	}
	if err := m.checkUpdateFn(id, update); err != nil {
		return nil, err
	}
	data.UpdateFn = update.String()
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	m.variables[id] = Variable{Name: data.Name, Update: update}
	for _, l := range m.layouts {
		l.nodes[id] = Position{}
	}
	return reversible(
		event.Change(payload, ComponentModel, segVariable, actAdd),
		event.At(ComponentModel, segVariable, id.String(), actRemove),
	)
}

// removeVariable deletes a variable that has no dependents, or plans the
// cascade that clears them first.
func (m *ModelState) removeVariable(ev event.Event, id ids.VarID) (event.Consumed, error) {
	if err := requireNoPayload(ev, componentVariable); err != nil {
		return nil, err
	}
	plan, err := m.planVariableRemoval(id)
	if err != nil {
		return nil, err
	}
	if len(plan) > 0 {
		return event.Restart{Events: append(plan, ev)}, nil
	}

	payload, err := encodePayload(m.variableData(id))
	if err != nil {
		return nil, err
	}
	delete(m.variables, id)
	for _, l := range m.layouts {
		delete(l.nodes, id)
	}
	return reversible(
		event.Change(payload, ComponentModel, segVariable, actRemove),
		event.New(payload, ComponentModel, segVariable, actAdd),
	)
}

func (m *ModelState) setVariableName(ev event.Event, id ids.VarID) (event.Consumed, error) {
	name, err := requirePayload(ev, componentVariable)
	if err != nil {
		return nil, err
	}
	v := m.variables[id]
	if v.Name == name {
		return event.NoChange{}, nil
	}
	old := v.Name
	v.Name = name
	data := records.VariableData{ID: id.String(), Name: name, UpdateFn: v.Update.String()}
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	m.variables[id] = v
	return reversible(
		event.Change(payload, ComponentModel, segVariable, actSetName),
		event.New(old, ComponentModel, segVariable, id.String(), actSetName),
	)
}

// setVariableID renames a variable and rewrites every reference to it:
// update functions, regulations and layout nodes.
func (m *ModelState) setVariableID(ev event.Event, id ids.VarID) (event.Consumed, error) {
	newID, err := payloadID[ids.Var](ev, componentVariable)
	if err != nil {
		return nil, err
	}
	if newID == id {
		return event.NoChange{}, nil
	}
	if m.HasVariable(newID) {
		return nil, event.DuplicateID("variable", newID.String())
	}
	if err := checkVariableID(newID); err != nil {
		return nil, err
	}

	rewritten := make(map[ids.VarID]Variable)
	for vid, v := range m.variables {
		if !v.Update.UsesVariable(id.String()) {
			continue
		}
		update, err := v.Update.RenameVariable(id.String(), newID.String())
		if err != nil {
			return nil, event.InvariantViolation("cannot rewrite update function of `%s`: %v", vid, err)
		}
		v.Update = update
		rewritten[vid] = v
	}
	payload, err := encodePayload(records.ChangeIDData{Original: id.String(), New: newID.String()})
	if err != nil {
		return nil, err
	}

	for vid, v := range rewritten {
		m.variables[vid] = v
	}
	m.variables[newID] = m.variables[id]
	delete(m.variables, id)

	var moved []Regulation
	for key, r := range m.regulations {
		if key.Regulator == id || key.Target == id {
			moved = append(moved, r)
			delete(m.regulations, key)
		}
	}
	for _, r := range moved {
		if r.Regulator == id {
			r.Regulator = newID
		}
		if r.Target == id {
			r.Target = newID
		}
		m.regulations[r.RegulationKey] = r
	}

	for _, l := range m.layouts {
		l.nodes[newID] = l.nodes[id]
		delete(l.nodes, id)
	}
	return reversible(
		event.Change(payload, ComponentModel, segVariable, actSetID),
		event.New(id.String(), ComponentModel, segVariable, newID.String(), actSetID),
	)
}

func (m *ModelState) setUpdateFn(ev event.Event, id ids.VarID) (event.Consumed, error) {
	src, err := requirePayload(ev, componentVariable)
	if err != nil {
		return nil, err
	}
	update, err := fnexpr.Parse(src)
	if err != nil {
		return nil, event.MalformedPayload(componentVariable, err)
	}
	if err := m.checkUpdateFn(id, update); err != nil {
		return nil, err
	}
	v := m.variables[id]
	if v.Update.Equal(update) {
		return event.NoChange{}, nil
	}
	old := v.Update
	v.Update = update
	data := records.VariableData{ID: id.String(), Name: v.Name, UpdateFn: update.String()}
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	m.variables[id] = v
	return reversible(
		event.Change(payload, ComponentModel, segVariable, actSetUpdateFn),
		event.New(old.String(), ComponentModel, segVariable, id.String(), actSetUpdateFn),
	)
}
