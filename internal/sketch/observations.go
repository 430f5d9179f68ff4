package sketch

import (
	"maps"
	"slices"

	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

// Observation values.
const (
	ValueFalse       = '0'
	ValueTrue        = '1'
	ValueUnspecified = '*'
)

// Observation is one row of a dataset: a value per dataset variable.
type Observation struct {
	Name   string
	Values string
}

// Dataset is an ordered list of observations over a fixed set of
// variable names. Dataset variables are free identifiers, independent of
// the model's variables.
type Dataset struct {
	Name      string
	variables []string
	order     []ids.ObservationID
	rows      map[ids.ObservationID]Observation
}

// Variables returns the column names.
func (d *Dataset) Variables() []string { return slices.Clone(d.variables) }

// ObservationIDs returns observation ids in insertion order.
func (d *Dataset) ObservationIDs() []ids.ObservationID { return slices.Clone(d.order) }

// Observation returns the row with the given id.
func (d *Dataset) Observation(id ids.ObservationID) (Observation, bool) {
	o, ok := d.rows[id]
	return o, ok
}

// Len returns the number of observations.
func (d *Dataset) Len() int { return len(d.order) }

func (d *Dataset) hasObservation(id ids.ObservationID) bool {
	_, ok := d.rows[id]
	return ok
}

func (d *Dataset) clone() *Dataset {
	return &Dataset{
		Name:      d.Name,
		variables: slices.Clone(d.variables),
		order:     slices.Clone(d.order),
		rows:      maps.Clone(d.rows),
	}
}

func (d *Dataset) data(id ids.DatasetID) records.DatasetData {
	data := records.DatasetData{
		ID:           id.String(),
		Name:         d.Name,
		Variables:    append(make([]string, 0, len(d.variables)), d.variables...),
		Observations: make([]records.ObservationData, 0, len(d.order)),
	}
	for _, oid := range d.order {
		o := d.rows[oid]
		data.Observations = append(data.Observations, records.ObservationData{
			ID:     oid.String(),
			Name:   o.Name,
			Values: o.Values,
		})
	}
	return data
}

func (d *Dataset) observationData(dataset ids.DatasetID, id ids.ObservationID) records.ObservationData {
	o := d.rows[id]
	return records.ObservationData{
		ID:      id.String(),
		Name:    o.Name,
		Dataset: dataset.String(),
		Values:  o.Values,
	}
}

// ObservationManager owns every dataset of a sketch.
type ObservationManager struct {
	datasets map[ids.DatasetID]*Dataset
}

// NewObservationManager returns a manager without datasets.
func NewObservationManager() *ObservationManager {
	return &ObservationManager{datasets: make(map[ids.DatasetID]*Dataset)}
}

func (o *ObservationManager) clone() *ObservationManager {
	out := make(map[ids.DatasetID]*Dataset, len(o.datasets))
	for id, d := range o.datasets {
		out[id] = d.clone()
	}
	return &ObservationManager{datasets: out}
}

// Dataset returns the dataset with the given id.
func (o *ObservationManager) Dataset(id ids.DatasetID) (*Dataset, bool) {
	d, ok := o.datasets[id]
	return d, ok
}

// HasDataset reports whether id names a dataset.
func (o *ObservationManager) HasDataset(id ids.DatasetID) bool {
	_, ok := o.datasets[id]
	return ok
}

// DatasetIDs returns all dataset ids in sorted order.
func (o *ObservationManager) DatasetIDs() []ids.DatasetID {
	return slices.SortedFunc(maps.Keys(o.datasets), ids.Compare[ids.Dataset])
}

// GenerateDatasetID returns a fresh dataset id derived from ideal.
func (o *ObservationManager) GenerateDatasetID(ideal string, taken ...ids.DatasetID) ids.DatasetID {
	return generateID(ideal, o.datasets, taken, nil)
}

func (o *ObservationManager) datasetData(id ids.DatasetID) records.DatasetData {
	return o.datasets[id].data(id)
}

// Data returns every dataset sorted by id. Observations keep their order.
func (o *ObservationManager) Data() []records.DatasetData {
	out := make([]records.DatasetData, 0, len(o.datasets))
	for _, id := range o.DatasetIDs() {
		out = append(out, o.datasetData(id))
	}
	return out
}
