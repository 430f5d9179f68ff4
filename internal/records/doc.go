// Package records defines the payload records exchanged through events.
//
// Records are flat, string-typed carriers: identifiers travel as plain
// strings and are validated against the identifier grammar on decode. The
// sketch package converts them to and from its type-safe entities.
//
// Every payload is JSON. Decode rejects unknown fields and runs struct-tag
// validation, so a record that decodes successfully is structurally valid;
// referential checks (does this variable exist?) belong to the sketch.
package records
