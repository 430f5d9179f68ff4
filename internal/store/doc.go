// Package store provides the SQLite-backed session journal.
//
// A journal records, per session:
//   - Events: every applied leaf event with its state change and reverse
//   - Snapshots: serialized sketches taken at a given seq, with a digest
//
// Replaying a session loads the latest snapshot and re-applies the events
// recorded after it, in seq order.
//
// # Ordering
//
//   - All ordering uses seq INTEGER (logical clock), never timestamps
//   - All queries include ORDER BY seq ASC
//
// # Database Configuration
//
//   - WAL mode for file journals (WithoutWAL opts out, MemoryPath never uses it)
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: 5 seconds unless set with WithBusyTimeout
//   - foreign_keys=ON: Enforce referential integrity
//
// Snapshot digests are computed in hash.go with SHA-256 and domain
// separation.
package store
