package store

import (
	"context"
	"fmt"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/records"
)

// Origin records why an entry was applied.
type Origin string

const (
	OriginApply Origin = "apply"
	OriginUndo  Origin = "undo"
	OriginRedo  Origin = "redo"
)

// Entry is one journaled leaf event.
type Entry struct {
	SessionID string
	Seq       int64
	Event     event.Event
	Kind      event.Kind
	Change    event.StateChange
	Reverse   *event.Event // nil for irreversible entries
	Reset     bool
	Origin    Origin
}

// CreateSession registers a session. baseDigest identifies the sketch the
// session started from. Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateSession(ctx context.Context, id, label, baseDigest string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, base_digest)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, label, baseDigest)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// AppendEvent inserts a journal entry. Only state-changing kinds are
// accepted; a duplicate (session, seq) pair is an error because seq is
// allocated by a single writer.
func (s *Store) AppendEvent(ctx context.Context, e Entry) error {
	switch e.Kind {
	case event.KindReversible:
		if e.Reverse == nil {
			return fmt.Errorf("append event: reversible entry at seq %d has no reverse", e.Seq)
		}
	case event.KindIrreversible:
	default:
		return fmt.Errorf("append event: kind %q is not journaled", e.Kind)
	}
	if e.Origin == "" {
		e.Origin = OriginApply
	}

	pathJSON, err := marshalPath(e.Event.Path())
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	changeJSON, err := marshalEvent(e.Change.Event)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	var reverseJSON *string
	if e.Reverse != nil {
		r, err := marshalEvent(*e.Reverse)
		if err != nil {
			return fmt.Errorf("append event: %w", err)
		}
		reverseJSON = &r
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(session_id, seq, path, payload, kind, change, reverse, reset, origin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.SessionID,
		e.Seq,
		pathJSON,
		marshalPayload(e.Event),
		string(e.Kind),
		changeJSON,
		reverseJSON,
		e.Reset,
		string(e.Origin),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// WriteSnapshot stores a serialized sketch taken after seq and returns its
// digest. Rewriting the same (session, seq) replaces the stored snapshot.
func (s *Store) WriteSnapshot(ctx context.Context, sessionID string, seq int64, data records.SketchData) (string, error) {
	encoded, err := records.Encode(data)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	digest, err := Digest(data)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (session_id, seq, data, digest)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO UPDATE SET data = excluded.data, digest = excluded.digest
	`, sessionID, seq, encoded, digest)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return digest, nil
}
