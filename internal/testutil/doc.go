// Package testutil builds the events and fixtures shared by tests across
// packages: event constructors for every entity record, a temp-dir
// journal, and the reference sketch used in cascade tests.
package testutil
