package sketch

import (
	"fmt"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

// Perform applies a properties event. at is the path below the
// "properties" segment; datasetExists resolves dynamic property
// references to the observations component.
func (p *PropertyManager) Perform(ev event.Event, at []string, datasetExists func(ids.DatasetID) bool) (event.Consumed, error) {
	if len(at) == 0 {
		return nil, event.UnknownPath(ComponentProperties, at)
	}
	switch at[0] {
	case segDynamic:
		return performProperty(p.dynamic, ev, at[1:], datasetExists)
	case segStatic:
		return performProperty(p.static, ev, at[1:], nil)
	default:
		return nil, event.UnknownPath(ComponentProperties, at)
	}
}

// propertyEvent bundles what every property action needs.
type propertyEvent[C ids.Category] struct {
	table         *propertyTable[C]
	ev            event.Event
	id            ids.ID[C]
	component     string
	datasetExists func(ids.DatasetID) bool
}

func performProperty[C ids.Category](
	t *propertyTable[C],
	ev event.Event,
	at []string,
	datasetExists func(ids.DatasetID) bool,
) (event.Consumed, error) {
	pe := propertyEvent[C]{
		table:         t,
		ev:            ev,
		component:     ComponentProperties + "/" + t.kind,
		datasetExists: datasetExists,
	}
	if isAdd(at) {
		return pe.add()
	}
	if len(at) != 2 {
		return nil, event.UnknownPath(pe.component, at)
	}
	var handler func() (event.Consumed, error)
	switch parseAction(at[1]) {
	case actionRemove:
		handler = pe.remove
	case actionSetName:
		handler = pe.setName
	case actionSetID:
		handler = pe.setID
	case actionSetContent:
		handler = pe.setContent
	default:
		return nil, event.UnknownPath(pe.component, at)
	}
	id, err := existingID(at[0], t.has)
	if err != nil {
		return nil, err
	}
	pe.id = id
	return handler()
}

func (pe *propertyEvent[C]) changePath(action string) []string {
	return []string{ComponentProperties, pe.table.kind, action}
}

func (pe *propertyEvent[C]) pathOf(id ids.ID[C], action string) []string {
	return []string{ComponentProperties, pe.table.kind, id.String(), action}
}

// decode reads and checks a full property record.
func (pe *propertyEvent[C]) decode() (records.PropertyData, error) {
	data, err := decodePayload[records.PropertyData](pe.ev, pe.component)
	if err != nil {
		return data, err
	}
	if !pe.table.variants[data.Variant] {
		return data, event.MalformedPayload(pe.component, fmt.Errorf("unsupported variant %q", data.Variant))
	}
	if data.Dataset != "" {
		if pe.datasetExists == nil {
			return data, event.MalformedPayload(pe.component, fmt.Errorf("%s properties cannot reference datasets", pe.table.kind))
		}
		if !pe.datasetExists(ids.MustParse[ids.Dataset](data.Dataset)) {
			return data, event.UnknownID("dataset", data.Dataset)
		}
	}
	return data, nil
}

func (pe *propertyEvent[C]) add() (event.Consumed, error) {
	data, err := pe.decode()
	if err != nil {
		return nil, err
	}
	id := ids.MustParse[C](data.ID)
	if pe.table.has(id) {
		return nil, event.DuplicateID(id.CategoryName(), data.ID)
	}
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	pe.table.items[id] = Property{Name: data.Name, Variant: data.Variant, Dataset: data.Dataset, Formula: data.Formula}
	return reversible(
		event.Change(payload, pe.changePath(actAdd)...),
		event.At(pe.pathOf(id, actRemove)...),
	)
}

func (pe *propertyEvent[C]) remove() (event.Consumed, error) {
	if err := requireNoPayload(pe.ev, pe.component); err != nil {
		return nil, err
	}
	payload, err := encodePayload(pe.table.data(pe.id))
	if err != nil {
		return nil, err
	}

	delete(pe.table.items, pe.id)
	return reversible(
		event.Change(payload, pe.changePath(actRemove)...),
		event.New(payload, pe.changePath(actAdd)...),
	)
}

func (pe *propertyEvent[C]) setName() (event.Consumed, error) {
	name, err := requirePayload(pe.ev, pe.component)
	if err != nil {
		return nil, err
	}
	prop := pe.table.items[pe.id]
	if prop.Name == name {
		return event.NoChange{}, nil
	}
	old := prop.Name
	prop.Name = name
	payload, err := encodePayload(propertyRecord(pe.id.String(), prop))
	if err != nil {
		return nil, err
	}

	pe.table.items[pe.id] = prop
	return reversible(
		event.Change(payload, pe.changePath(actSetName)...),
		event.New(old, pe.pathOf(pe.id, actSetName)...),
	)
}

func (pe *propertyEvent[C]) setID() (event.Consumed, error) {
	newID, err := payloadID[C](pe.ev, pe.component)
	if err != nil {
		return nil, err
	}
	if newID == pe.id {
		return event.NoChange{}, nil
	}
	if pe.table.has(newID) {
		return nil, event.DuplicateID(newID.CategoryName(), newID.String())
	}
	payload, err := encodePayload(records.ChangeIDData{Original: pe.id.String(), New: newID.String()})
	if err != nil {
		return nil, err
	}

	pe.table.items[newID] = pe.table.items[pe.id]
	delete(pe.table.items, pe.id)
	return reversible(
		event.Change(payload, pe.changePath(actSetID)...),
		event.New(pe.id.String(), pe.pathOf(newID, actSetID)...),
	)
}

// setContent replaces name, variant, dataset and formula in one step.
func (pe *propertyEvent[C]) setContent() (event.Consumed, error) {
	data, err := pe.decode()
	if err != nil {
		return nil, err
	}
	if data.ID != pe.id.String() {
		return nil, event.MalformedPayload(pe.component,
			fmt.Errorf("payload describes `%s`, path targets `%s`", data.ID, pe.id))
	}
	prop := Property{Name: data.Name, Variant: data.Variant, Dataset: data.Dataset, Formula: data.Formula}
	old := pe.table.items[pe.id]
	if old == prop {
		return event.NoChange{}, nil
	}
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}
	reverse, err := encodePayload(propertyRecord(pe.id.String(), old))
	if err != nil {
		return nil, err
	}

	pe.table.items[pe.id] = prop
	return reversible(
		event.Change(payload, pe.changePath(actSetContent)...),
		event.New(reverse, pe.pathOf(pe.id, actSetContent)...),
	)
}
