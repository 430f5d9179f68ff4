package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestRun_Scenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_CascadeState(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/cascade_remove.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, strings.Join(result.Errors, "\n"))

	require.Len(t, result.Trace, 7)
	assert.Equal(t, int64(7), result.Trace[6].Seq)
	assert.Equal(t, "redo", result.Trace[6].Origin)
	assert.Len(t, result.State.Model.Variables, 3)
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing",
		Description: "every expectation is wrong",
		Steps: []Step{
			{
				Apply:   "model/variable/add",
				Payload: map[string]any{"id": "a", "name": "a", "update_fn": ""},
				Expect:  &ExpectClause{Outcome: "no_change", Events: intPtr(2)},
			},
			{Apply: "model/variable/zz/remove"},
			{Undo: true, Expect: &ExpectClause{Error: "NOTHING_TO_UNDO"}},
			{
				Apply:   "model/variable/add",
				Payload: map[string]any{"id": "a", "name": "a", "update_fn": ""},
				Expect:  &ExpectClause{Error: "UNKNOWN_ID"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, "step 0: expected 2 events, got 1")
	assert.Contains(t, joined, "step 0: expected outcome no_change, got reversible")
	assert.Contains(t, joined, "step 1: unexpected error")
	assert.Contains(t, joined, "step 2: expected error NOTHING_TO_UNDO, got success")
	assert.Contains(t, joined, "step 3: expected error UNKNOWN_ID, got DUPLICATE_ID")
}

func TestRun_FailedAssertion(t *testing.T) {
	scenario := &Scenario{
		Name:        "assertion",
		Description: "final state does not match",
		Steps: []Step{
			{Apply: "model/variable/add", Payload: map[string]any{"id": "a", "name": "a", "update_fn": ""}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Collection: "variables", Where: map[string]any{"id": "a"}, Expect: map[string]any{"name": "b"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "name = b")
}

func TestRun_MissingSketch(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing",
		Description: "sketch file is gone",
		Sketch:      "testdata/sketches/nope.yaml",
		Steps:       []Step{{Undo: true}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load sketch")
}
