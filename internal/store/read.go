package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/records"
)

// ErrSessionNotFound is returned when a session id has no journal.
var ErrSessionNotFound = errors.New("session not found")

// Session describes a journaled session.
type Session struct {
	ID         string
	Label      string
	BaseDigest string
	Events     int
	LastSeq    int64
}

// Snapshot is a stored sketch taken after Seq.
type Snapshot struct {
	SessionID string
	Seq       int64
	Data      records.SketchData
	Digest    string
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetSession returns the session with the given id.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.label, s.base_digest, COUNT(e.seq), COALESCE(MAX(e.seq), 0)
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		WHERE s.id = ?
		GROUP BY s.id
	`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %q: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %q: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns every session ordered by id.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.label, s.base_digest, COUNT(e.seq), COALESCE(MAX(e.seq), 0)
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Label, &sess.BaseDigest, &sess.Events, &sess.LastSeq); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ReadEvents returns the entries of a session with seq > afterSeq, ordered
// by seq.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadEvents(ctx context.Context, sessionID string, afterSeq int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, path, payload, kind, change, reverse, reset, origin
		FROM events
		WHERE session_id = ? AND seq > ?
		ORDER BY seq ASC
	`, sessionID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return entries, nil
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e          Entry
		pathJSON   string
		payload    sql.NullString
		kind       string
		changeJSON string
		reverse    sql.NullString
		origin     string
	)
	if err := row.Scan(&e.SessionID, &e.Seq, &pathJSON, &payload, &kind, &changeJSON, &reverse, &e.Reset, &origin); err != nil {
		return Entry{}, fmt.Errorf("scan event: %w", err)
	}
	ev, err := rebuildEvent(pathJSON, payload)
	if err != nil {
		return Entry{}, fmt.Errorf("scan event %d: %w", e.Seq, err)
	}
	change, err := unmarshalEvent(changeJSON)
	if err != nil {
		return Entry{}, fmt.Errorf("scan event %d: %w", e.Seq, err)
	}
	e.Event = ev
	e.Kind = event.Kind(kind)
	e.Change = event.ChangeFrom(change)
	e.Origin = Origin(origin)
	if reverse.Valid {
		r, err := unmarshalEvent(reverse.String)
		if err != nil {
			return Entry{}, fmt.Errorf("scan event %d: %w", e.Seq, err)
		}
		e.Reverse = &r
	}
	return e, nil
}

// LatestSnapshot returns the snapshot with the highest seq not above
// atOrBefore. ok is false when the session has no such snapshot.
func (s *Store) LatestSnapshot(ctx context.Context, sessionID string, atOrBefore int64) (snap Snapshot, ok bool, err error) {
	var encoded string
	err = s.db.QueryRowContext(ctx, `
		SELECT session_id, seq, data, digest
		FROM snapshots
		WHERE session_id = ? AND seq <= ?
		ORDER BY seq DESC
		LIMIT 1
	`, sessionID, atOrBefore).Scan(&snap.SessionID, &snap.Seq, &encoded, &snap.Digest)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	snap.Data, err = records.Decode[records.SketchData](encoded)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read snapshot %d: %w", snap.Seq, err)
	}
	return snap, true, nil
}
