package sketch

import (
	"fmt"
	"strings"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

// State-change actions that have no path counterpart.
const (
	changeRemoveObs     = "remove_obs"
	changeSetObsID      = "set_obs_id"
	changeSetObsContent = "set_obs_content"
)

type datasetHandler func(*ObservationManager, event.Event, ids.DatasetID) (event.Consumed, error)

func datasetAction(a action) datasetHandler {
	switch a {
	case actionRemove:
		return (*ObservationManager).removeDataset
	case actionSetName:
		return (*ObservationManager).setDatasetName
	case actionSetID:
		return (*ObservationManager).setDatasetID
	case actionPushObs:
		return (*ObservationManager).pushObservation
	case actionPushEmptyObs:
		return (*ObservationManager).pushEmptyObservation
	case actionPopObs:
		return (*ObservationManager).popObservation
	default:
		return nil
	}
}

type observationHandler func(*ObservationManager, event.Event, ids.DatasetID, ids.ObservationID) (event.Consumed, error)

func observationAction(a action) observationHandler {
	switch a {
	case actionRemove:
		return (*ObservationManager).removeObservation
	case actionSetID:
		return (*ObservationManager).setObservationID
	case actionSetContent:
		return (*ObservationManager).setObservationContent
	default:
		return nil
	}
}

// Perform applies an observations event. at is the path below the
// "observations" segment.
func (o *ObservationManager) Perform(ev event.Event, at []string) (event.Consumed, error) {
	switch {
	case isAdd(at):
		return o.addDataset(ev)
	case len(at) == 2:
		handler := datasetAction(parseAction(at[1]))
		if handler == nil {
			return nil, event.UnknownPath(ComponentObservations, at)
		}
		id, err := existingID(at[0], o.HasDataset)
		if err != nil {
			return nil, err
		}
		return handler(o, ev, id)
	case len(at) == 3:
		handler := observationAction(parseAction(at[2]))
		if handler == nil {
			return nil, event.UnknownPath(ComponentObservations, at)
		}
		id, err := existingID(at[0], o.HasDataset)
		if err != nil {
			return nil, err
		}
		obs, err := existingID(at[1], o.datasets[id].hasObservation)
		if err != nil {
			return nil, err
		}
		return handler(o, ev, id, obs)
	default:
		return nil, event.UnknownPath(ComponentObservations, at)
	}
}

// buildDataset validates a dataset record and converts it.
func buildDataset(data records.DatasetData) (*Dataset, error) {
	d := &Dataset{
		Name:      data.Name,
		variables: append(make([]string, 0, len(data.Variables)), data.Variables...),
		order:     make([]ids.ObservationID, 0, len(data.Observations)),
		rows:      make(map[ids.ObservationID]Observation, len(data.Observations)),
	}
	seenVars := make(map[string]bool, len(data.Variables))
	for _, v := range data.Variables {
		if seenVars[v] {
			return nil, event.MalformedPayload(ComponentObservations, fmt.Errorf("duplicate dataset variable `%s`", v))
		}
		seenVars[v] = true
	}
	for _, obs := range data.Observations {
		if obs.Dataset != "" && obs.Dataset != data.ID {
			return nil, event.MalformedPayload(ComponentObservations,
				fmt.Errorf("observation `%s` belongs to dataset `%s`, not `%s`", obs.ID, obs.Dataset, data.ID))
		}
		if err := checkWidth(obs, len(d.variables)); err != nil {
			return nil, err
		}
		id := ids.MustParse[ids.Observation](obs.ID)
		if d.hasObservation(id) {
			return nil, event.DuplicateID("observation", obs.ID)
		}
		d.order = append(d.order, id)
		d.rows[id] = Observation{Name: obs.Name, Values: obs.Values}
	}
	return d, nil
}

func checkWidth(obs records.ObservationData, width int) error {
	if len(obs.Values) != width {
		return event.MalformedPayload(ComponentObservations,
			fmt.Errorf("observation `%s` has %d values, dataset has %d variables", obs.ID, len(obs.Values), width))
	}
	return nil
}

func (o *ObservationManager) addDataset(ev event.Event) (event.Consumed, error) {
	data, err := decodePayload[records.DatasetData](ev, ComponentObservations)
	if err != nil {
		return nil, err
	}
	id := ids.MustParse[ids.Dataset](data.ID)
	if o.HasDataset(id) {
		return nil, event.DuplicateID("dataset", data.ID)
	}
	d, err := buildDataset(data)
	if err != nil {
		return nil, err
	}

	payload, err := encodePayload(d.data(id))
	if err != nil {
		return nil, err
	}

	o.datasets[id] = d
	return reversible(
		event.Change(payload, ComponentObservations, actAdd),
		event.At(ComponentObservations, id.String(), actRemove),
	)
}

func (o *ObservationManager) removeDataset(ev event.Event, id ids.DatasetID) (event.Consumed, error) {
	if err := requireNoPayload(ev, ComponentObservations); err != nil {
		return nil, err
	}
	payload, err := encodePayload(o.datasetData(id))
	if err != nil {
		return nil, err
	}

	delete(o.datasets, id)
	return reversible(
		event.Change(payload, ComponentObservations, actRemove),
		event.New(payload, ComponentObservations, actAdd),
	)
}

func (o *ObservationManager) setDatasetName(ev event.Event, id ids.DatasetID) (event.Consumed, error) {
	name, err := requirePayload(ev, ComponentObservations)
	if err != nil {
		return nil, err
	}
	d := o.datasets[id]
	if d.Name == name {
		return event.NoChange{}, nil
	}
	renamed := d.clone()
	renamed.Name = name
	payload, err := encodePayload(renamed.data(id))
	if err != nil {
		return nil, err
	}

	old := d.Name
	d.Name = name
	return reversible(
		event.Change(payload, ComponentObservations, actSetName),
		event.New(old, ComponentObservations, id.String(), actSetName),
	)
}

func (o *ObservationManager) setDatasetID(ev event.Event, id ids.DatasetID) (event.Consumed, error) {
	newID, err := payloadID[ids.Dataset](ev, ComponentObservations)
	if err != nil {
		return nil, err
	}
	if newID == id {
		return event.NoChange{}, nil
	}
	if o.HasDataset(newID) {
		return nil, event.DuplicateID("dataset", newID.String())
	}
	payload, err := encodePayload(records.ChangeIDData{Original: id.String(), New: newID.String()})
	if err != nil {
		return nil, err
	}

	o.datasets[newID] = o.datasets[id]
	delete(o.datasets, id)
	return reversible(
		event.Change(payload, ComponentObservations, actSetID),
		event.New(id.String(), ComponentObservations, newID.String(), actSetID),
	)
}

func (o *ObservationManager) pushObservation(ev event.Event, id ids.DatasetID) (event.Consumed, error) {
	data, err := decodePayload[records.ObservationData](ev, ComponentObservations)
	if err != nil {
		return nil, err
	}
	if data.Dataset != "" && data.Dataset != id.String() {
		return nil, event.MalformedPayload(ComponentObservations,
			fmt.Errorf("observation targets dataset `%s`, path targets `%s`", data.Dataset, id))
	}
	d := o.datasets[id]
	if err := checkWidth(data, len(d.variables)); err != nil {
		return nil, err
	}
	obs := ids.MustParse[ids.Observation](data.ID)
	if d.hasObservation(obs) {
		return nil, event.DuplicateID("observation", data.ID)
	}
	return o.push(id, obs, Observation{Name: data.Name, Values: data.Values})
}

// pushEmptyObservation appends a row with every value unspecified and a
// generated id.
func (o *ObservationManager) pushEmptyObservation(ev event.Event, id ids.DatasetID) (event.Consumed, error) {
	if err := requireNoPayload(ev, ComponentObservations); err != nil {
		return nil, err
	}
	d := o.datasets[id]
	obs := ids.Generate(fmt.Sprintf("new_obs_%d", d.Len()), ids.TakenIn(d.rows))
	return o.push(id, obs, Observation{
		Name:   obs.String(),
		Values: strings.Repeat(string(ValueUnspecified), len(d.variables)),
	})
}

func (o *ObservationManager) push(id ids.DatasetID, obs ids.ObservationID, row Observation) (event.Consumed, error) {
	payload, err := encodePayload(records.ObservationData{
		ID:      obs.String(),
		Name:    row.Name,
		Dataset: id.String(),
		Values:  row.Values,
	})
	if err != nil {
		return nil, err
	}

	d := o.datasets[id]
	d.order = append(d.order, obs)
	d.rows[obs] = row
	return reversible(
		event.Change(payload, ComponentObservations, actPushObs),
		event.At(ComponentObservations, id.String(), actPopObs),
	)
}

// popObservation removes the last row. Popping an empty dataset is a no-op.
func (o *ObservationManager) popObservation(ev event.Event, id ids.DatasetID) (event.Consumed, error) {
	if err := requireNoPayload(ev, ComponentObservations); err != nil {
		return nil, err
	}
	d := o.datasets[id]
	if d.Len() == 0 {
		return event.NoChange{}, nil
	}
	last := d.order[len(d.order)-1]
	payload, err := encodePayload(d.observationData(id, last))
	if err != nil {
		return nil, err
	}

	d.order = d.order[:len(d.order)-1]
	delete(d.rows, last)
	return reversible(
		event.Change(payload, ComponentObservations, actPopObs),
		event.New(payload, ComponentObservations, id.String(), actPushObs),
	)
}

// removeObservation deletes a row from the middle of a dataset. Row order
// cannot be restored by the push/pop reversal pair, so the change is
// irreversible and resets history.
func (o *ObservationManager) removeObservation(ev event.Event, id ids.DatasetID, obs ids.ObservationID) (event.Consumed, error) {
	if err := requireNoPayload(ev, ComponentObservations); err != nil {
		return nil, err
	}
	d := o.datasets[id]
	payload, err := encodePayload(d.observationData(id, obs))
	if err != nil {
		return nil, err
	}

	delete(d.rows, obs)
	for i, oid := range d.order {
		if oid == obs {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
	return event.Irreversible{
		Change: event.Change(payload, ComponentObservations, changeRemoveObs),
		Reset:  true,
	}, nil
}

func (o *ObservationManager) setObservationID(ev event.Event, id ids.DatasetID, obs ids.ObservationID) (event.Consumed, error) {
	newID, err := payloadID[ids.Observation](ev, ComponentObservations)
	if err != nil {
		return nil, err
	}
	if newID == obs {
		return event.NoChange{}, nil
	}
	d := o.datasets[id]
	if d.hasObservation(newID) {
		return nil, event.DuplicateID("observation", newID.String())
	}
	payload, err := encodePayload(records.ChangeIDData{
		Original: obs.String(),
		New:      newID.String(),
		Metadata: id.String(),
	})
	if err != nil {
		return nil, err
	}

	d.rows[newID] = d.rows[obs]
	delete(d.rows, obs)
	for i, oid := range d.order {
		if oid == obs {
			d.order[i] = newID
			break
		}
	}
	return reversible(
		event.Change(payload, ComponentObservations, changeSetObsID),
		event.New(obs.String(), ComponentObservations, id.String(), newID.String(), actSetID),
	)
}

// setObservationContent replaces the name and values of a row.
func (o *ObservationManager) setObservationContent(ev event.Event, id ids.DatasetID, obs ids.ObservationID) (event.Consumed, error) {
	data, err := decodePayload[records.ObservationData](ev, ComponentObservations)
	if err != nil {
		return nil, err
	}
	if data.ID != obs.String() {
		return nil, event.MalformedPayload(ComponentObservations,
			fmt.Errorf("payload describes observation `%s`, path targets `%s`", data.ID, obs))
	}
	if data.Dataset != "" && data.Dataset != id.String() {
		return nil, event.MalformedPayload(ComponentObservations,
			fmt.Errorf("observation targets dataset `%s`, path targets `%s`", data.Dataset, id))
	}
	d := o.datasets[id]
	if err := checkWidth(data, len(d.variables)); err != nil {
		return nil, err
	}
	row := Observation{Name: data.Name, Values: data.Values}
	if d.rows[obs] == row {
		return event.NoChange{}, nil
	}
	reverse, err := encodePayload(d.observationData(id, obs))
	if err != nil {
		return nil, err
	}
	data.Dataset = id.String()
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	d.rows[obs] = row
	return reversible(
		event.Change(payload, ComponentObservations, changeSetObsContent),
		event.New(reverse, ComponentObservations, id.String(), obs.String(), actSetContent),
	)
}
