// Package harness runs scripted editing sessions against a sketch and
// checks what happened.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	sketch: ../sketches/reference.yaml   # optional, relative to the scenario
//	steps:
//	  - apply: model/variable/a/remove
//	    expect:
//	      outcome: reversible
//	      events: 3
//	  - apply: model/variable/add
//	    payload: {id: d, name: d, update_fn: ""}
//	  - undo: true
//	  - apply: model/variable/zz/remove
//	    expect:
//	      error: UNKNOWN_ID
//	assertions:
//	  - type: trace_order
//	    paths: [model/regulation/a/b/remove, model/variable/a/remove]
//	  - type: final_state
//	    collection: variables
//	    where: {id: a}
//	    absent: true
//
// A payload given as a YAML mapping or list is sent as compact JSON; a
// scalar is sent as its text. Omit payload for events that take none.
//
// # Assertion Types
//
//   - trace_contains: a leaf event with the path (and origin, if given) was applied
//   - trace_order: the paths were first applied in the listed order
//   - trace_count: the path was applied exactly count times
//   - final_state: a row of the final sketch matches where and expect
//
// final_state collections are variables, regulations, layouts,
// layout_nodes, functions, datasets, observations, dyn_properties and
// stat_properties. Rows use the JSON field names of the sketch records.
//
// # Determinism
//
// Each scenario runs in a fresh in-memory journal under a fixed session
// id, so seqs and traces are identical across runs. After the last step
// the journal is replayed and must rebuild the same sketch.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/cascade_remove.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
