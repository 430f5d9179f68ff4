// Package snapshot defines the port for whole-sketch checkpoints and the
// helpers shared by its adapters (see memory and redis).
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/sketchbook/internal/records"
)

// ErrNotFound is returned by Load when a session has no checkpoint.
var ErrNotFound = errors.New("snapshot not found")

// Checkpoint is a serialized sketch taken after journal entry Seq.
type Checkpoint struct {
	SessionID string             `json:"session_id"`
	Seq       int64              `json:"seq"`
	Digest    string             `json:"digest"`
	Data      records.SketchData `json:"data"`
}

// Store keeps the most recent checkpoint of each session.
type Store interface {
	// Save replaces the session's checkpoint.
	Save(ctx context.Context, cp Checkpoint) error
	// Load returns the session's checkpoint or ErrNotFound.
	Load(ctx context.Context, sessionID string) (Checkpoint, error)
	// Delete removes the session's checkpoint. Deleting a missing one is not an error.
	Delete(ctx context.Context, sessionID string) error
	// List returns the ids of sessions with a checkpoint, sorted.
	List(ctx context.Context) ([]string, error)
}

// Encode serializes a checkpoint for adapters that store bytes.
func Encode(cp Checkpoint) ([]byte, error) {
	if cp.SessionID == "" {
		return nil, fmt.Errorf("encode checkpoint: empty session id")
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return data, nil
}

// Decode parses and validates a checkpoint produced by Encode.
func Decode(data []byte) (Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	if err := records.Validate(cp.Data); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", cp.SessionID, err)
	}
	return cp, nil
}
