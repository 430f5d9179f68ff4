package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/sketchbook/internal/records"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, formatTraceLine(ev))
		}
	}
	return buf.String()
}

// applied reports whether a trace entry is an outcome rather than a
// rejected step.
func applied(ev TraceEvent) bool {
	return ev.Kind != KindError
}

// assertTraceContains checks if the trace contains an outcome for the
// path, with the given origin when one is specified.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, ev := range trace {
		if applied(ev) && ev.Path == assertion.Path && (assertion.Origin == "" || ev.Origin == assertion.Origin) {
			return nil
		}
	}

	expected := assertion.Path
	if assertion.Origin != "" {
		expected = fmt.Sprintf("%s (origin %s)", assertion.Path, assertion.Origin)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that paths were first applied in the listed order.
// Paths don't need to be consecutive (intervening outcomes are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// 1-indexed positions; 0 means not found
	positions := make(map[string]int)
	for i, ev := range trace {
		if applied(ev) && positions[ev.Path] == 0 {
			positions[ev.Path] = i + 1
		}
	}

	for _, path := range assertion.Paths {
		if positions[path] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all paths present: %v", assertion.Paths),
				Actual:   fmt.Sprintf("missing path: %s", path),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Paths); i++ {
		prev := assertion.Paths[i-1]
		curr := assertion.Paths[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("paths in order: %v", assertion.Paths),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the path was applied exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if applied(ev) && ev.Path == assertion.Path {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s applied %d times", assertion.Path, assertion.Count),
			Actual:   fmt.Sprintf("applied %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// collections maps final_state collection names to row extractors over
// the JSON form of a sketch.
var collections = map[string]func(doc map[string]any) []map[string]any{
	"variables":       modelRows("variables"),
	"regulations":     modelRows("regulations"),
	"layouts":         modelRows("layouts"),
	"functions":       modelRows("functions"),
	"datasets":        topRows("datasets"),
	"dyn_properties":  topRows("dyn_properties"),
	"stat_properties": topRows("stat_properties"),
	"layout_nodes":    nestedRows(modelRows("layouts"), "nodes", ""),
	"observations":    nestedRows(topRows("datasets"), "observations", "dataset"),
}

func topRows(key string) func(map[string]any) []map[string]any {
	return func(doc map[string]any) []map[string]any {
		return asRows(doc[key])
	}
}

func modelRows(key string) func(map[string]any) []map[string]any {
	return func(doc map[string]any) []map[string]any {
		model, _ := doc["model"].(map[string]any)
		return asRows(model[key])
	}
}

// nestedRows flattens a list held by each parent row. When parentKey is
// set, every child gets the parent's id under that key.
func nestedRows(parents func(map[string]any) []map[string]any, key, parentKey string) func(map[string]any) []map[string]any {
	return func(doc map[string]any) []map[string]any {
		var out []map[string]any
		for _, parent := range parents(doc) {
			for _, child := range asRows(parent[key]) {
				if parentKey != "" {
					child[parentKey] = parent["id"]
				}
				out = append(out, child)
			}
		}
		return out
	}
}

func asRows(v any) []map[string]any {
	list, _ := v.([]any)
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// assertFinalState finds the rows of a collection matching Where and
// checks the first one against Expect, or checks that none exist when
// Absent is set.
func assertFinalState(state records.SketchData, assertion Assertion) error {
	extract, ok := collections[assertion.Collection]
	if !ok {
		return fmt.Errorf("final_state: unknown collection %q", assertion.Collection)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("final_state: %w", err)
	}

	var matches []map[string]any
	for _, row := range extract(doc) {
		if matchFields(row, assertion.Where) {
			matches = append(matches, row)
		}
	}

	if assertion.Absent {
		if len(matches) > 0 {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("no %s where %s", assertion.Collection, formatFields(assertion.Where)),
				Actual:   fmt.Sprintf("%d matching rows", len(matches)),
			}
		}
		return nil
	}

	if len(matches) == 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s where %s", assertion.Collection, formatFields(assertion.Where)),
			Actual:   "no matching rows",
		}
	}

	row := matches[0]
	for key, want := range assertion.Expect {
		got, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, want),
				Actual:   fmt.Sprintf("field %q not present in %s", key, assertion.Collection),
			}
		}
		if !valuesEqual(got, want) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s = %v (where %s)", key, want, formatFields(assertion.Where)),
				Actual:   fmt.Sprintf("%s = %v", key, got),
			}
		}
	}
	return nil
}

// formatFields creates a human-readable description of field conditions.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "(no conditions)"
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchFields checks if actual contains all expected fields (subset match).
// Extra keys in actual are ignored.
func matchFields(actual map[string]any, expected map[string]any) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares a JSON-decoded value with a YAML-decoded one.
// Numbers compare by value, so YAML 3 matches JSON 3.0.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	if a, ok := toFloat(actual); ok {
		e, ok := toFloat(expected)
		return ok && a == e
	}
	return reflect.DeepEqual(actual, expected)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
