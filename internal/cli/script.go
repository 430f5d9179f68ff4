package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sketchbook/internal/harness"
)

// Script is a list of edits read by the apply command:
//
//	steps:
//	  - apply: model/variable/add
//	    payload: {id: a, name: a, update_fn: ""}
//	  - apply: model/variable/a/set_name
//	    payload: Gene A
//	  - undo: true
//
// Steps use the scenario step syntax; expectations are ignored.
type Script struct {
	Steps []harness.Step `yaml:"steps"`
}

// LoadScript reads and validates an event script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	var script Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("script %s has no steps", path)
	}
	for i, step := range script.Steps {
		if err := harness.ValidateStep(i, step); err != nil {
			return nil, fmt.Errorf("script %s: %w", path, err)
		}
	}
	return &script, nil
}
