// Package event provides the foundational value types of the sketch engine.
//
// This package contains only value types and their constructors. All other
// internal packages import event; event imports nothing internal.
//
// Key design constraints:
//   - Event is immutable: path segments are copied in and out, and every
//     "modification" returns a fresh value
//   - Consumed is a sealed interface with exactly four variants
//   - StateChange carries identifiers in its payload, never in its path
//   - All errors carry a Code so callers can branch with errors.Is
package event
