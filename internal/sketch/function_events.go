package sketch

import (
	"fmt"
	"strconv"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/fnexpr"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

const componentFunction = "model/function"

// maxArity matches the bound enforced on FunctionData.
const maxArity = 64

type functionHandler func(*ModelState, event.Event, ids.FunctionID) (event.Consumed, error)

func functionAction(a action) functionHandler {
	switch a {
	case actionRemove:
		return (*ModelState).removeFunction
	case actionSetName:
		return (*ModelState).setFunctionName
	case actionSetID:
		return (*ModelState).setFunctionID
	case actionSetArity:
		return (*ModelState).setFunctionArity
	case actionSetExpression:
		return (*ModelState).setFunctionExpression
	default:
		return nil
	}
}

func (m *ModelState) performFunctionEvent(ev event.Event, at []string) (event.Consumed, error) {
	if isAdd(at) {
		return m.addFunction(ev)
	}
	if len(at) != 2 {
		return nil, event.UnknownPath(componentFunction, at)
	}
	handler := functionAction(parseAction(at[1]))
	if handler == nil {
		return nil, event.UnknownPath(componentFunction, at)
	}
	id, err := existingID(at[0], m.HasFunction)
	if err != nil {
		return nil, err
	}
	return handler(m, ev, id)
}

func (m *ModelState) addFunction(ev event.Event) (event.Consumed, error) {
	data, err := decodePayload[records.FunctionData](ev, componentFunction)
	if err != nil {
		return nil, err
	}
	id := ids.MustParse[ids.Function](data.ID)
	if m.HasFunction(id) {
		return nil, event.DuplicateID("function", data.ID)
	}
	if err := checkFunctionID(id); err != nil {
		return nil, err
	}
	expr, err := fnexpr.Parse(data.Expression)
	if err != nil {
		return nil, event.MalformedPayload(componentFunction, err)
	}
	if err := m.checkFunctionExpression(id, data.Arity, expr); err != nil {
		return nil, err
	}
	data.Expression = expr.String()
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	m.functions[id] = UninterpretedFn{Name: data.Name, Arity: data.Arity, Expression: expr}
	return reversible(
		event.Change(payload, ComponentModel, segFunction, actAdd),
		event.At(ComponentModel, segFunction, id.String(), actRemove),
	)
}

// removeFunction refuses while any update function or other function
// body still calls f.
func (m *ModelState) removeFunction(ev event.Event, id ids.FunctionID) (event.Consumed, error) {
	if err := requireNoPayload(ev, componentFunction); err != nil {
		return nil, err
	}
	if err := m.requireUnusedFunction(id, "remove"); err != nil {
		return nil, err
	}
	payload, err := encodePayload(m.functionData(id))
	if err != nil {
		return nil, err
	}

	delete(m.functions, id)
	return reversible(
		event.Change(payload, ComponentModel, segFunction, actRemove),
		event.New(payload, ComponentModel, segFunction, actAdd),
	)
}

func (m *ModelState) requireUnusedFunction(id ids.FunctionID, verb string) error {
	vars, fns := m.functionUsers(id)
	switch {
	case len(vars) > 0:
		return event.InvariantViolation(
			"cannot %s function `%s`: it is used in the update function of %s", verb, id, joinIDs(vars))
	case len(fns) > 0:
		return event.InvariantViolation(
			"cannot %s function `%s`: it is used in the expression of %s", verb, id, joinIDs(fns))
	}
	return nil
}

func (m *ModelState) setFunctionName(ev event.Event, id ids.FunctionID) (event.Consumed, error) {
	name, err := requirePayload(ev, componentFunction)
	if err != nil {
		return nil, err
	}
	f := m.functions[id]
	if f.Name == name {
		return event.NoChange{}, nil
	}
	old := f.Name
	f.Name = name
	payload, err := encodePayload(functionRecord(id, f))
	if err != nil {
		return nil, err
	}

	m.functions[id] = f
	return reversible(
		event.Change(payload, ComponentModel, segFunction, actSetName),
		event.New(old, ComponentModel, segFunction, id.String(), actSetName),
	)
}

// setFunctionID renames a function and redirects every call to it.
func (m *ModelState) setFunctionID(ev event.Event, id ids.FunctionID) (event.Consumed, error) {
	newID, err := payloadID[ids.Function](ev, componentFunction)
	if err != nil {
		return nil, err
	}
	if newID == id {
		return event.NoChange{}, nil
	}
	if m.HasFunction(newID) {
		return nil, event.DuplicateID("function", newID.String())
	}
	if err := checkFunctionID(newID); err != nil {
		return nil, err
	}

	from, to := id.String(), newID.String()
	vars := make(map[ids.VarID]Variable)
	for vid, v := range m.variables {
		if !v.Update.UsesFunction(from) {
			continue
		}
		update, err := v.Update.RenameFunction(from, to)
		if err != nil {
			return nil, event.InvariantViolation("cannot rewrite update function of `%s`: %v", vid, err)
		}
		v.Update = update
		vars[vid] = v
	}
	fns := make(map[ids.FunctionID]UninterpretedFn)
	for fid, f := range m.functions {
		if !f.Expression.UsesFunction(from) {
			continue
		}
		expr, err := f.Expression.RenameFunction(from, to)
		if err != nil {
			return nil, event.InvariantViolation("cannot rewrite expression of `%s`: %v", fid, err)
		}
		f.Expression = expr
		fns[fid] = f
	}
	payload, err := encodePayload(records.ChangeIDData{Original: from, New: to})
	if err != nil {
		return nil, err
	}

	for vid, v := range vars {
		m.variables[vid] = v
	}
	for fid, f := range fns {
		m.functions[fid] = f
	}
	m.functions[newID] = m.functions[id]
	delete(m.functions, id)
	return reversible(
		event.Change(payload, ComponentModel, segFunction, actSetID),
		event.New(from, ComponentModel, segFunction, to, actSetID),
	)
}

// setFunctionArity changes the arity of an unused function. The body may
// not reference arguments beyond the new arity.
func (m *ModelState) setFunctionArity(ev event.Event, id ids.FunctionID) (event.Consumed, error) {
	arity, err := payloadInt(ev, componentFunction)
	if err != nil {
		return nil, err
	}
	if arity < 0 || arity > maxArity {
		return nil, event.MalformedPayload(componentFunction, fmt.Errorf("arity %d out of range [0, %d]", arity, maxArity))
	}
	f := m.functions[id]
	if f.Arity == arity {
		return event.NoChange{}, nil
	}
	if err := m.requireUnusedFunction(id, "change the arity of"); err != nil {
		return nil, err
	}
	if err := m.checkFunctionExpression(id, arity, f.Expression); err != nil {
		return nil, err
	}
	old := f.Arity
	f.Arity = arity
	payload, err := encodePayload(functionRecord(id, f))
	if err != nil {
		return nil, err
	}

	m.functions[id] = f
	return reversible(
		event.Change(payload, ComponentModel, segFunction, actSetArity),
		event.New(strconv.Itoa(old), ComponentModel, segFunction, id.String(), actSetArity),
	)
}

func (m *ModelState) setFunctionExpression(ev event.Event, id ids.FunctionID) (event.Consumed, error) {
	src, err := requirePayload(ev, componentFunction)
	if err != nil {
		return nil, err
	}
	expr, err := fnexpr.Parse(src)
	if err != nil {
		return nil, event.MalformedPayload(componentFunction, err)
	}
	f := m.functions[id]
	if err := m.checkFunctionExpression(id, f.Arity, expr); err != nil {
		return nil, err
	}
	if f.Expression.Equal(expr) {
		return event.NoChange{}, nil
	}
	old := f.Expression
	f.Expression = expr
	payload, err := encodePayload(functionRecord(id, f))
	if err != nil {
		return nil, err
	}

	m.functions[id] = f
	return reversible(
		event.Change(payload, ComponentModel, segFunction, actSetExpression),
		event.New(old.String(), ComponentModel, segFunction, id.String(), actSetExpression),
	)
}
