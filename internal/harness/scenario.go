package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sketchbook/internal/event"
)

// Scenario is a scripted editing session with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sketch is an optional sketch file (.cue, .json, .yaml) to start
	// from. LoadScenario resolves it relative to the scenario file.
	Sketch string `yaml:"sketch,omitempty"`

	// SessionID fixes the journal session id. Defaults to DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DefaultSessionID is the session id used when a scenario names none.
const DefaultSessionID = "scenario"

// Step is one action of a scenario: exactly one of Apply, Undo or Redo.
type Step struct {
	// Apply is a slash-separated event path, e.g. "model/variable/a/remove".
	Apply string `yaml:"apply,omitempty"`

	// Payload is the event payload. Mappings and lists are sent as JSON.
	Payload any `yaml:"payload,omitempty"`

	Undo bool `yaml:"undo,omitempty"`
	Redo bool `yaml:"redo,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step only has to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected step behavior.
type ExpectClause struct {
	// Outcome is the kind every leaf outcome must have:
	// no_change, reversible or irreversible.
	Outcome string `yaml:"outcome,omitempty"`

	// Events is the expected number of leaf outcomes. A cascade counts
	// each event it expanded to.
	Events *int `yaml:"events,omitempty"`

	// Error is the expected error code. The step must fail with it.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check a path was applied (optionally with origin)
	// - "trace_order": Check paths were first applied in order
	// - "trace_count": Check a path was applied exactly Count times
	// - "final_state": Find a row of a collection and verify its fields
	Type string `yaml:"type"`

	// Path is a slash-separated event path (trace_contains, trace_count).
	Path string `yaml:"path,omitempty"`

	// Origin restricts trace_contains to apply, undo or redo outcomes.
	Origin string `yaml:"origin,omitempty"`

	// Paths is the expected order (trace_order).
	Paths []string `yaml:"paths,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Collection names the rows searched by final_state.
	Collection string `yaml:"collection,omitempty"`

	// Where selects rows (final_state). All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Absent asserts that no row matches Where (final_state).
	Absent bool `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

var validOutcomes = map[string]bool{
	string(event.KindNoChange):     true,
	string(event.KindReversible):   true,
	string(event.KindIrreversible): true,
}

// Event builds the event an apply step sends.
func (s Step) Event() (event.Event, error) {
	segments := strings.Split(s.Apply, "/")
	if s.Payload == nil {
		return event.At(segments...), nil
	}
	payload, err := payloadText(s.Payload)
	if err != nil {
		return event.Event{}, err
	}
	return event.New(payload, segments...), nil
}

// payloadText renders a YAML-decoded payload: strings as-is, everything
// else as compact JSON.
func payloadText(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// LoadScenario reads and parses a scenario YAML file. The sketch path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the sketch path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Sketch != "" && !filepath.IsAbs(scenario.Sketch) && basePath != "" {
		scenario.Sketch = filepath.Join(basePath, scenario.Sketch)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns every .yaml and .yml file under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Sketch != "" {
		if _, err := os.Stat(s.Sketch); os.IsNotExist(err) {
			return fmt.Errorf("sketch file not found: %s", s.Sketch)
		}
	}

	for i, step := range s.Steps {
		if err := ValidateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStep checks that a step names exactly one action and that its
// expectations are consistent. index is used in error messages.
func ValidateStep(index int, step Step) error {
	actions := 0
	if step.Apply != "" {
		actions++
	}
	if step.Undo {
		actions++
	}
	if step.Redo {
		actions++
	}
	if actions != 1 {
		return fmt.Errorf("steps[%d]: exactly one of apply, undo or redo is required", index)
	}
	if step.Payload != nil && step.Apply == "" {
		return fmt.Errorf("steps[%d]: payload is only valid with apply", index)
	}
	if step.Apply != "" {
		for _, seg := range strings.Split(step.Apply, "/") {
			if seg == "" {
				return fmt.Errorf("steps[%d]: path %q has an empty segment", index, step.Apply)
			}
		}
	}

	exp := step.Expect
	if exp == nil {
		return nil
	}
	if exp.Outcome != "" && !validOutcomes[exp.Outcome] {
		return fmt.Errorf("steps[%d].expect: unknown outcome %q", index, exp.Outcome)
	}
	if exp.Error != "" && (exp.Outcome != "" || exp.Events != nil) {
		return fmt.Errorf("steps[%d].expect: error cannot be combined with outcome or events", index)
	}
	if exp.Events != nil && *exp.Events < 0 {
		return fmt.Errorf("steps[%d].expect: events must be non-negative", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Paths) == 0 {
			return fmt.Errorf("assertions[%d]: paths list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if _, ok := collections[a.Collection]; !ok {
			return fmt.Errorf("assertions[%d]: unknown collection %q for final_state", index, a.Collection)
		}
		if !a.Absent && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		if a.Absent && len(a.Expect) > 0 {
			return fmt.Errorf("assertions[%d]: absent cannot be combined with expect", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
