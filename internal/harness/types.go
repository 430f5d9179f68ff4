package harness

import "github.com/roach88/sketchbook/internal/records"

// KindError marks a trace entry for a step that was rejected.
const KindError = "error"

// TraceEvent is one leaf outcome, or one rejected step, of a scenario run.
type TraceEvent struct {
	Step   int    `json:"step"`
	Seq    int64  `json:"seq"` // 0 for no_change and errors
	Origin string `json:"origin"`
	Path   string `json:"path,omitempty"`
	Kind   string `json:"kind"`
	Reset  bool   `json:"reset,omitempty"`
	Code   string `json:"code,omitempty"` // error code when Kind is "error"
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists what each step did, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the sketch after the last step.
	State records.SketchData `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a trace entry.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
