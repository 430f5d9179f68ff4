package records

// VariableData describes a variable together with its update function.
type VariableData struct {
	ID       string `json:"id" validate:"identifier"`
	Name     string `json:"name"`
	UpdateFn string `json:"update_fn"`
}

// Regulation signs.
const (
	SignActivation = "activation"
	SignInhibition = "inhibition"
	SignDual       = "dual"
	SignUnknown    = "unknown"
)

// Regulation essentiality values.
const (
	EssentialTrue    = "true"
	EssentialFalse   = "false"
	EssentialUnknown = "unknown"
)

// RegulationData describes a directed regulation between two variables.
type RegulationData struct {
	Regulator string `json:"regulator" validate:"identifier"`
	Target    string `json:"target" validate:"identifier"`
	Sign      string `json:"sign" validate:"oneof=activation inhibition dual unknown"`
	Essential string `json:"essential" validate:"oneof=true false unknown"`
}

// LayoutNodeData describes the position of one variable in one layout.
type LayoutNodeData struct {
	Layout   string  `json:"layout" validate:"identifier"`
	Variable string  `json:"variable" validate:"identifier"`
	X        float64 `json:"x" validate:"finite"`
	Y        float64 `json:"y" validate:"finite"`
}

// LayoutData describes a layout. Nodes may be omitted when adding a layout,
// in which case every variable starts at the default position.
type LayoutData struct {
	ID    string           `json:"id" validate:"identifier"`
	Name  string           `json:"name"`
	Nodes []LayoutNodeData `json:"nodes,omitempty" validate:"dive"`
}

// FunctionData describes an uninterpreted function.
type FunctionData struct {
	ID         string `json:"id" validate:"identifier"`
	Name       string `json:"name"`
	Arity      int    `json:"arity" validate:"gte=0,lte=64"`
	Expression string `json:"expression"`
}

// ObservationData describes one observation row. Values holds one
// character per dataset variable: '0', '1' or '*' (unspecified).
type ObservationData struct {
	ID      string `json:"id" validate:"identifier"`
	Name    string `json:"name"`
	Dataset string `json:"dataset,omitempty" validate:"omitempty,identifier"`
	Values  string `json:"values" validate:"obsvalues"`
}

// DatasetData describes a dataset with all of its observations.
type DatasetData struct {
	ID           string            `json:"id" validate:"identifier"`
	Name         string            `json:"name"`
	Variables    []string          `json:"variables" validate:"dive,identifier"`
	Observations []ObservationData `json:"observations" validate:"dive"`
}

// PropertyData describes a dynamic or static property. Dataset is only
// meaningful for dynamic properties.
type PropertyData struct {
	ID      string `json:"id" validate:"identifier"`
	Name    string `json:"name"`
	Variant string `json:"variant" validate:"required"`
	Dataset string `json:"dataset,omitempty" validate:"omitempty,identifier"`
	Formula string `json:"formula"`
}

// ChangeIDData describes an identifier change. Metadata carries the id of
// the owning collection when the changed id is nested (e.g. the dataset of
// an observation).
type ChangeIDData struct {
	Original string `json:"original" validate:"identifier"`
	New      string `json:"new" validate:"identifier"`
	Metadata string `json:"metadata,omitempty"`
}

// ModelData is the serialized form of the regulatory model.
type ModelData struct {
	Variables   []VariableData   `json:"variables" validate:"dive"`
	Regulations []RegulationData `json:"regulations" validate:"dive"`
	Layouts     []LayoutData     `json:"layouts" validate:"dive"`
	Functions   []FunctionData   `json:"functions" validate:"dive"`
}

// SketchData is the serialized form of a whole sketch.
type SketchData struct {
	Model          ModelData      `json:"model"`
	Datasets       []DatasetData  `json:"datasets" validate:"dive"`
	DynProperties  []PropertyData `json:"dyn_properties" validate:"dive"`
	StatProperties []PropertyData `json:"stat_properties" validate:"dive"`
}
