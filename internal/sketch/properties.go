package sketch

import (
	"maps"
	"slices"

	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

// Property is a dynamic or static property. Formula is opaque text; only
// dynamic properties may reference a dataset.
type Property struct {
	Name    string
	Variant string
	Dataset string
	Formula string
}

var (
	dynamicVariants = map[string]bool{
		"generic":           true,
		"trajectory":        true,
		"attractor_count":   true,
		"has_attractor":     true,
		"fixed_point":       true,
		"exists_trap_space": true,
	}
	staticVariants = map[string]bool{
		"generic":                  true,
		"regulation_essential":     true,
		"regulation_monotonic":     true,
		"function_input_essential": true,
		"function_monotonic":       true,
	}
)

type propertyTable[C ids.Category] struct {
	kind     string
	variants map[string]bool
	items    map[ids.ID[C]]Property
}

func newPropertyTable[C ids.Category](kind string, variants map[string]bool) *propertyTable[C] {
	return &propertyTable[C]{kind: kind, variants: variants, items: make(map[ids.ID[C]]Property)}
}

func (t *propertyTable[C]) clone() *propertyTable[C] {
	return &propertyTable[C]{kind: t.kind, variants: t.variants, items: maps.Clone(t.items)}
}

func (t *propertyTable[C]) has(id ids.ID[C]) bool {
	_, ok := t.items[id]
	return ok
}

func (t *propertyTable[C]) sortedIDs() []ids.ID[C] {
	return slices.SortedFunc(maps.Keys(t.items), ids.Compare[C])
}

func (t *propertyTable[C]) data(id ids.ID[C]) records.PropertyData {
	return propertyRecord(id.String(), t.items[id])
}

func propertyRecord(id string, p Property) records.PropertyData {
	return records.PropertyData{
		ID:      id,
		Name:    p.Name,
		Variant: p.Variant,
		Dataset: p.Dataset,
		Formula: p.Formula,
	}
}

func (t *propertyTable[C]) all() []records.PropertyData {
	out := make([]records.PropertyData, 0, len(t.items))
	for _, id := range t.sortedIDs() {
		out = append(out, t.data(id))
	}
	return out
}

// PropertyManager owns dynamic and static properties.
type PropertyManager struct {
	dynamic *propertyTable[ids.DynProperty]
	static  *propertyTable[ids.StatProperty]
}

// NewPropertyManager returns a manager without properties.
func NewPropertyManager() *PropertyManager {
	return &PropertyManager{
		dynamic: newPropertyTable[ids.DynProperty](segDynamic, dynamicVariants),
		static:  newPropertyTable[ids.StatProperty](segStatic, staticVariants),
	}
}

func (p *PropertyManager) clone() *PropertyManager {
	return &PropertyManager{dynamic: p.dynamic.clone(), static: p.static.clone()}
}

// Dynamic returns the dynamic property with the given id.
func (p *PropertyManager) Dynamic(id ids.DynPropertyID) (Property, bool) {
	prop, ok := p.dynamic.items[id]
	return prop, ok
}

// Static returns the static property with the given id.
func (p *PropertyManager) Static(id ids.StatPropertyID) (Property, bool) {
	prop, ok := p.static.items[id]
	return prop, ok
}

// GenerateDynamicID returns a fresh dynamic property id derived from ideal.
func (p *PropertyManager) GenerateDynamicID(ideal string, taken ...ids.DynPropertyID) ids.DynPropertyID {
	return generateID(ideal, p.dynamic.items, taken, nil)
}

// GenerateStaticID returns a fresh static property id derived from ideal.
func (p *PropertyManager) GenerateStaticID(ideal string, taken ...ids.StatPropertyID) ids.StatPropertyID {
	return generateID(ideal, p.static.items, taken, nil)
}

// datasetUsers returns the dynamic properties referencing dataset d.
func (p *PropertyManager) datasetUsers(d ids.DatasetID) []ids.DynPropertyID {
	var users []ids.DynPropertyID
	for _, id := range p.dynamic.sortedIDs() {
		if p.dynamic.items[id].Dataset == d.String() {
			users = append(users, id)
		}
	}
	return users
}

// retargetDataset points every reference to dataset from at dataset to.
func (p *PropertyManager) retargetDataset(from, to ids.DatasetID) {
	for id, prop := range p.dynamic.items {
		if prop.Dataset == from.String() {
			prop.Dataset = to.String()
			p.dynamic.items[id] = prop
		}
	}
}

// DynamicData returns every dynamic property sorted by id.
func (p *PropertyManager) DynamicData() []records.PropertyData { return p.dynamic.all() }

// StaticData returns every static property sorted by id.
func (p *PropertyManager) StaticData() []records.PropertyData { return p.static.all() }
