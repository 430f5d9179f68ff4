// Package session drives a sketch through a sequence of events.
//
// A Controller owns exactly one *sketch.Sketch and is its only writer.
// Every event goes through Controller.Apply, which:
//
//   - interprets the event via sketch.Sketch.Perform
//   - expands Restart outcomes, after checking on a clone that the whole
//     expansion applies cleanly
//   - stamps each state-changing outcome with a seq from its Clock
//   - records reversible outcomes in the undo History
//   - appends the outcome to the journal, when one is configured
//   - broadcasts the StateChange to subscribers
//
// Seq numbers are logical. Wall-clock time is never used for ordering, so
// replaying a journal reproduces the same sequence exactly.
package session
