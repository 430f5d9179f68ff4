package sketch

import (
	"fmt"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

const componentLayout = "model/layout"

type layoutHandler func(*ModelState, event.Event, ids.LayoutID) (event.Consumed, error)

func layoutAction(a action) layoutHandler {
	switch a {
	case actionRemove:
		return (*ModelState).removeLayout
	case actionSetName:
		return (*ModelState).setLayoutName
	case actionUpdatePosition:
		return (*ModelState).updatePosition
	default:
		return nil
	}
}

func (m *ModelState) performLayoutEvent(ev event.Event, at []string) (event.Consumed, error) {
	if isAdd(at) {
		return m.addLayout(ev)
	}
	if len(at) != 2 {
		return nil, event.UnknownPath(componentLayout, at)
	}
	handler := layoutAction(parseAction(at[1]))
	if handler == nil {
		return nil, event.UnknownPath(componentLayout, at)
	}
	id, err := existingID(at[0], m.HasLayout)
	if err != nil {
		return nil, err
	}
	return handler(m, ev, id)
}

// addLayout creates a layout. Variables without an explicit node start at
// the default position.
func (m *ModelState) addLayout(ev event.Event) (event.Consumed, error) {
	data, err := decodePayload[records.LayoutData](ev, componentLayout)
	if err != nil {
		return nil, err
	}
	id := ids.MustParse[ids.Layout](data.ID)
	if m.HasLayout(id) {
		return nil, event.DuplicateID("layout", data.ID)
	}
	nodes := make(map[ids.VarID]Position, len(m.variables))
	for v := range m.variables {
		nodes[v] = Position{}
	}
	seen := make(map[ids.VarID]bool, len(data.Nodes))
	for _, n := range data.Nodes {
		if n.Layout != data.ID {
			return nil, event.MalformedPayload(componentLayout,
				fmt.Errorf("node for `%s` belongs to layout `%s`, not `%s`", n.Variable, n.Layout, data.ID))
		}
		v := ids.MustParse[ids.Var](n.Variable)
		if !m.HasVariable(v) {
			return nil, event.UnknownID("variable", n.Variable)
		}
		if seen[v] {
			return nil, event.MalformedPayload(componentLayout, fmt.Errorf("duplicate node for `%s`", v))
		}
		seen[v] = true
		nodes[v] = Position{X: n.X, Y: n.Y}
	}
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	m.layouts[id] = &Layout{Name: data.Name, nodes: nodes}
	return reversible(
		event.Change(payload, ComponentModel, segLayout, actAdd),
		event.At(ComponentModel, segLayout, id.String(), actRemove),
	)
}

func (m *ModelState) removeLayout(ev event.Event, id ids.LayoutID) (event.Consumed, error) {
	if err := requireNoPayload(ev, componentLayout); err != nil {
		return nil, err
	}
	if id == DefaultLayoutID {
		return nil, event.InvariantViolation("the default layout cannot be removed")
	}
	payload, err := encodePayload(m.layoutData(id, true))
	if err != nil {
		return nil, err
	}

	delete(m.layouts, id)
	return reversible(
		event.Change(payload, ComponentModel, segLayout, actRemove),
		event.New(payload, ComponentModel, segLayout, actAdd),
	)
}

func (m *ModelState) setLayoutName(ev event.Event, id ids.LayoutID) (event.Consumed, error) {
	name, err := requirePayload(ev, componentLayout)
	if err != nil {
		return nil, err
	}
	l := m.layouts[id]
	if l.Name == name {
		return event.NoChange{}, nil
	}
	payload, err := encodePayload(records.LayoutData{ID: id.String(), Name: name})
	if err != nil {
		return nil, err
	}

	old := l.Name
	l.Name = name
	return reversible(
		event.Change(payload, ComponentModel, segLayout, actSetName),
		event.New(old, ComponentModel, segLayout, id.String(), actSetName),
	)
}

func (m *ModelState) updatePosition(ev event.Event, id ids.LayoutID) (event.Consumed, error) {
	data, err := decodePayload[records.LayoutNodeData](ev, componentLayout)
	if err != nil {
		return nil, err
	}
	if data.Layout != id.String() {
		return nil, event.MalformedPayload(componentLayout,
			fmt.Errorf("payload targets layout `%s`, path targets `%s`", data.Layout, id))
	}
	v := ids.MustParse[ids.Var](data.Variable)
	if !m.HasVariable(v) {
		return nil, event.UnknownID("variable", data.Variable)
	}
	l := m.layouts[id]
	old := l.nodes[v]
	pos := Position{X: data.X, Y: data.Y}
	if old == pos {
		return event.NoChange{}, nil
	}
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}
	reverse, err := encodePayload(layoutNodeData(id, v, old))
	if err != nil {
		return nil, err
	}

	l.nodes[v] = pos
	return reversible(
		event.Change(payload, ComponentModel, segLayout, actUpdatePosition),
		event.New(reverse, ComponentModel, segLayout, id.String(), actUpdatePosition),
	)
}
