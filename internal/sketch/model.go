package sketch

import (
	"maps"
	"slices"

	"github.com/roach88/sketchbook/internal/fnexpr"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

// DefaultLayoutID names the layout every model starts with. It can be
// renamed but never removed.
var DefaultLayoutID = ids.MustParse[ids.Layout]("default")

// DefaultLayoutName is the initial name of the default layout.
const DefaultLayoutName = "Default layout"

// Variable is a network variable and its update function.
type Variable struct {
	Name   string
	Update fnexpr.Expression
}

// RegulationKey identifies a regulation: at most one per ordered pair.
type RegulationKey struct {
	Regulator ids.VarID
	Target    ids.VarID
}

// Regulation is a directed influence between two variables.
type Regulation struct {
	RegulationKey
	Sign      string
	Essential string
}

// Position is a node position inside a layout. The zero value is the
// default position.
type Position struct {
	X, Y float64
}

// IsDefault reports whether p is the origin.
func (p Position) IsDefault() bool { return p == Position{} }

// Layout assigns a position to every variable of the model.
type Layout struct {
	Name  string
	nodes map[ids.VarID]Position
}

// Position returns the position of v, or the default for unknown variables.
func (l *Layout) Position(v ids.VarID) Position { return l.nodes[v] }

func (l *Layout) clone() *Layout {
	return &Layout{Name: l.Name, nodes: maps.Clone(l.nodes)}
}

// UninterpretedFn is a named function symbol usable inside update
// functions. Its optional expression may refer to its arguments as
// var0, var1, ... and to other functions.
type UninterpretedFn struct {
	Name       string
	Arity      int
	Expression fnexpr.Expression
}

// ModelState is the regulatory-network part of a sketch.
type ModelState struct {
	variables   map[ids.VarID]Variable
	regulations map[RegulationKey]Regulation
	layouts     map[ids.LayoutID]*Layout
	functions   map[ids.FunctionID]UninterpretedFn
}

// NewModel returns an empty model containing only the default layout.
func NewModel() *ModelState {
	return &ModelState{
		variables:   make(map[ids.VarID]Variable),
		regulations: make(map[RegulationKey]Regulation),
		layouts: map[ids.LayoutID]*Layout{
			DefaultLayoutID: {Name: DefaultLayoutName, nodes: make(map[ids.VarID]Position)},
		},
		functions: make(map[ids.FunctionID]UninterpretedFn),
	}
}

func (m *ModelState) clone() *ModelState {
	layouts := make(map[ids.LayoutID]*Layout, len(m.layouts))
	for id, l := range m.layouts {
		layouts[id] = l.clone()
	}
	return &ModelState{
		variables:   maps.Clone(m.variables),
		regulations: maps.Clone(m.regulations),
		layouts:     layouts,
		functions:   maps.Clone(m.functions),
	}
}

// Variable returns the variable with the given id.
func (m *ModelState) Variable(id ids.VarID) (Variable, bool) {
	v, ok := m.variables[id]
	return v, ok
}

// HasVariable reports whether id names a variable.
func (m *ModelState) HasVariable(id ids.VarID) bool {
	_, ok := m.variables[id]
	return ok
}

// VariableIDs returns all variable ids in sorted order.
func (m *ModelState) VariableIDs() []ids.VarID {
	return slices.SortedFunc(maps.Keys(m.variables), ids.Compare[ids.Var])
}

// Regulation returns the regulation between regulator and target.
func (m *ModelState) Regulation(regulator, target ids.VarID) (Regulation, bool) {
	r, ok := m.regulations[RegulationKey{regulator, target}]
	return r, ok
}

// Regulations returns every regulation ordered by (regulator, target).
func (m *ModelState) Regulations() []Regulation {
	out := slices.Collect(maps.Values(m.regulations))
	slices.SortFunc(out, compareRegulations)
	return out
}

func compareRegulations(a, b Regulation) int {
	if c := ids.Compare(a.Regulator, b.Regulator); c != 0 {
		return c
	}
	return ids.Compare(a.Target, b.Target)
}

// Layout returns the layout with the given id.
func (m *ModelState) Layout(id ids.LayoutID) (*Layout, bool) {
	l, ok := m.layouts[id]
	return l, ok
}

// HasLayout reports whether id names a layout.
func (m *ModelState) HasLayout(id ids.LayoutID) bool {
	_, ok := m.layouts[id]
	return ok
}

// LayoutIDs returns all layout ids in sorted order.
func (m *ModelState) LayoutIDs() []ids.LayoutID {
	return slices.SortedFunc(maps.Keys(m.layouts), ids.Compare[ids.Layout])
}

// Function returns the uninterpreted function with the given id.
func (m *ModelState) Function(id ids.FunctionID) (UninterpretedFn, bool) {
	f, ok := m.functions[id]
	return f, ok
}

// HasFunction reports whether id names a function.
func (m *ModelState) HasFunction(id ids.FunctionID) bool {
	_, ok := m.functions[id]
	return ok
}

// FunctionIDs returns all function ids in sorted order.
func (m *ModelState) FunctionIDs() []ids.FunctionID {
	return slices.SortedFunc(maps.Keys(m.functions), ids.Compare[ids.Function])
}

// GenerateVarID returns a fresh variable id derived from ideal that is
// not in taken and that update functions can reference.
func (m *ModelState) GenerateVarID(ideal string, taken ...ids.VarID) ids.VarID {
	return generateID(ideal, m.variables, taken, fnexpr.CanBeOperand)
}

// GenerateLayoutID returns a fresh layout id derived from ideal.
func (m *ModelState) GenerateLayoutID(ideal string, taken ...ids.LayoutID) ids.LayoutID {
	return generateID(ideal, m.layouts, taken, nil)
}

// GenerateFunctionID returns a fresh function id derived from ideal that
// expressions can call.
func (m *ModelState) GenerateFunctionID(ideal string, taken ...ids.FunctionID) ids.FunctionID {
	return generateID(ideal, m.functions, taken, fnexpr.CanBeCalled)
}

// generateID runs the allocator against a collection plus extra taken ids.
// usable, when set, rules out ids the collection would refuse.
func generateID[C ids.Category, V any](ideal string, existing map[ids.ID[C]]V, taken []ids.ID[C], usable func(string) bool) ids.ID[C] {
	inUse := ids.TakenIn(existing)
	return ids.Generate(ideal, func(id ids.ID[C]) bool {
		if inUse(id) || slices.Contains(taken, id) {
			return true
		}
		return usable != nil && !usable(id.String())
	})
}

func (m *ModelState) variableData(id ids.VarID) records.VariableData {
	v := m.variables[id]
	return records.VariableData{ID: id.String(), Name: v.Name, UpdateFn: v.Update.String()}
}

func regulationData(r Regulation) records.RegulationData {
	return records.RegulationData{
		Regulator: r.Regulator.String(),
		Target:    r.Target.String(),
		Sign:      r.Sign,
		Essential: r.Essential,
	}
}

func layoutNodeData(l ids.LayoutID, v ids.VarID, p Position) records.LayoutNodeData {
	return records.LayoutNodeData{Layout: l.String(), Variable: v.String(), X: p.X, Y: p.Y}
}

// layoutData describes a layout; withNodes adds every node in variable order.
func (m *ModelState) layoutData(id ids.LayoutID, withNodes bool) records.LayoutData {
	l := m.layouts[id]
	data := records.LayoutData{ID: id.String(), Name: l.Name}
	if withNodes {
		data.Nodes = make([]records.LayoutNodeData, 0, len(l.nodes))
		for _, v := range m.VariableIDs() {
			data.Nodes = append(data.Nodes, layoutNodeData(id, v, l.nodes[v]))
		}
	}
	return data
}

func (m *ModelState) functionData(id ids.FunctionID) records.FunctionData {
	return functionRecord(id, m.functions[id])
}

func functionRecord(id ids.FunctionID, f UninterpretedFn) records.FunctionData {
	return records.FunctionData{
		ID:         id.String(),
		Name:       f.Name,
		Arity:      f.Arity,
		Expression: f.Expression.String(),
	}
}

// Data returns the serialized model with every collection sorted by id.
func (m *ModelState) Data() records.ModelData {
	data := records.ModelData{
		Variables:   make([]records.VariableData, 0, len(m.variables)),
		Regulations: make([]records.RegulationData, 0, len(m.regulations)),
		Layouts:     make([]records.LayoutData, 0, len(m.layouts)),
		Functions:   make([]records.FunctionData, 0, len(m.functions)),
	}
	for _, id := range m.VariableIDs() {
		data.Variables = append(data.Variables, m.variableData(id))
	}
	for _, r := range m.Regulations() {
		data.Regulations = append(data.Regulations, regulationData(r))
	}
	for _, id := range m.LayoutIDs() {
		data.Layouts = append(data.Layouts, m.layoutData(id, true))
	}
	for _, id := range m.FunctionIDs() {
		data.Functions = append(data.Functions, m.functionData(id))
	}
	return data
}
