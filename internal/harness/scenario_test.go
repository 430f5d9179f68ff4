package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ResolvesSketchPath(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/cascade_remove.yaml")
	require.NoError(t, err)

	assert.Equal(t, "cascade_remove", s.Name)
	assert.Equal(t, filepath.Join("testdata", "sketches", "reference.yaml"), s.Sketch)
	require.Len(t, s.Steps, 5)
	assert.Equal(t, "model/variable/a/remove", s.Steps[0].Apply)
	require.NotNil(t, s.Steps[0].Expect.Events)
	assert.Equal(t, 3, *s.Steps[0].Expect.Events)
	assert.True(t, s.Steps[1].Undo)
	assert.True(t, s.Steps[4].Redo)
	assert.Len(t, s.Assertions, 6)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/typo.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_RejectsTwoActions(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/two_actions.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of apply, undo or redo")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nsteps:\n  - undo: true\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsteps:\n  - undo: true\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name:    "missing sketch",
			content: "name: n\ndescription: d\nsketch: nothing.yaml\nsteps:\n  - undo: true\n",
			wantErr: "sketch file not found",
		},
		{
			name:    "payload on undo",
			content: "name: n\ndescription: d\nsteps:\n  - undo: true\n    payload: x\n",
			wantErr: "payload is only valid with apply",
		},
		{
			name:    "empty segment",
			content: "name: n\ndescription: d\nsteps:\n  - apply: model//add\n",
			wantErr: "empty segment",
		},
		{
			name:    "unknown outcome",
			content: "name: n\ndescription: d\nsteps:\n  - undo: true\n    expect: {outcome: restart}\n",
			wantErr: "unknown outcome",
		},
		{
			name:    "error with outcome",
			content: "name: n\ndescription: d\nsteps:\n  - undo: true\n    expect: {outcome: reversible, error: X}\n",
			wantErr: "error cannot be combined",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nsteps:\n  - undo: true\nassertions:\n  - type: trace_everything\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "trace_contains without path",
			content: "name: n\ndescription: d\nsteps:\n  - undo: true\nassertions:\n  - type: trace_contains\n",
			wantErr: "path is required for trace_contains",
		},
		{
			name:    "unknown collection",
			content: "name: n\ndescription: d\nsteps:\n  - undo: true\nassertions:\n  - type: final_state\n    collection: genes\n    expect: {id: a}\n",
			wantErr: "unknown collection",
		},
		{
			name:    "final_state without expect",
			content: "name: n\ndescription: d\nsteps:\n  - undo: true\nassertions:\n  - type: final_state\n    collection: variables\n",
			wantErr: "expect is required for final_state",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStep_Event(t *testing.T) {
	tests := []struct {
		name string
		step Step
		want string
	}{
		{"no payload", Step{Apply: "model/variable/a/remove"}, "model/variable/a/remove"},
		{"string payload", Step{Apply: "model/variable/a/set_name", Payload: "Gene A"}, "model/variable/a/set_name Gene A"},
		{"empty payload", Step{Apply: "model/variable/a/set_update_fn", Payload: ""}, "model/variable/a/set_update_fn "},
		{"integer payload", Step{Apply: "model/function/f/set_arity", Payload: 2}, "model/function/f/set_arity 2"},
		{
			"mapping payload",
			Step{Apply: "model/variable/add", Payload: map[string]any{"id": "a", "update_fn": "a && b"}},
			`model/variable/add {"id":"a","update_fn":"a && b"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := tt.step.Event()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.String())
		})
	}
}

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "cascade_remove.yaml"),
		filepath.Join("testdata", "scenarios", "hard_block.yaml"),
		filepath.Join("testdata", "scenarios", "observations_reset.yaml"),
	}, files)
}
