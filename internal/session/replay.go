package session

import (
	"context"
	"fmt"

	"github.com/roach88/sketchbook/internal/sketch"
	"github.com/roach88/sketchbook/internal/store"
)

// Replayed is a sketch rebuilt from a journal.
type Replayed struct {
	Sketch *sketch.Sketch
	// Seq is the seq of the last entry applied (or of the snapshot).
	Seq int64
	// Applied counts the journal entries applied on top of the snapshot.
	Applied int
	// Digest is the digest of the rebuilt sketch.
	Digest string
}

// Replay rebuilds the sketch of a journaled session as it was after seq
// upTo (everything when upTo <= 0).
//
// Replay starts from the latest snapshot at or before upTo and reapplies
// the entries after it through the same interpreter as the original edits.
// Each entry must produce the outcome kind that was journaled; anything
// else is a REPLAY_DIVERGED error.
func Replay(ctx context.Context, st *store.Store, sessionID string, upTo int64) (Replayed, error) {
	plan, err := st.PlanReplay(ctx, sessionID, upTo)
	if err != nil {
		return Replayed{}, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	sk, err := replayBase(plan)
	if err != nil {
		return Replayed{}, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	out := Replayed{Sketch: sk, Seq: plan.FromSeq()}
	for _, e := range plan.Entries {
		consumed, err := sk.Perform(e.Event)
		if err != nil {
			return Replayed{}, &Error{
				Code:    ErrCodeReplayDiverged,
				Message: fmt.Sprintf("entry %d was rejected", e.Seq),
				Event:   e.Event.String(),
				Err:     err,
			}
		}
		if consumed.Kind() != e.Kind {
			return Replayed{}, &Error{
				Code:    ErrCodeReplayDiverged,
				Message: fmt.Sprintf("entry %d produced %s, journal has %s", e.Seq, consumed.Kind(), e.Kind),
				Event:   e.Event.String(),
			}
		}
		out.Seq = e.Seq
		out.Applied++
	}

	out.Digest, err = store.Digest(sk.Data())
	if err != nil {
		return Replayed{}, fmt.Errorf("replay %s: %w", sessionID, err)
	}
	return out, nil
}

// replayBase returns the sketch replay starts from: the plan's snapshot,
// or an empty sketch when the session started empty and has no snapshot.
func replayBase(plan store.ReplayPlan) (*sketch.Sketch, error) {
	if plan.Snapshot != nil {
		return sketch.FromData(plan.Snapshot.Data)
	}
	empty := sketch.New()
	digest, err := store.Digest(empty.Data())
	if err != nil {
		return nil, err
	}
	if plan.Session.BaseDigest != "" && plan.Session.BaseDigest != digest {
		return nil, fmt.Errorf("no snapshot at or before the requested seq and the session did not start empty")
	}
	return empty, nil
}

// Resume replays a session and returns a controller that continues it,
// journaling into st. opts are applied after the journal, session id and
// clock options.
func Resume(ctx context.Context, st *store.Store, sessionID string, opts ...Option) (*Controller, error) {
	r, err := Replay(ctx, st, sessionID, 0)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithJournal(st),
		WithSessionID(sessionID),
		WithClock(NewClockAt(r.Seq)),
	}
	return New(ctx, r.Sketch, append(base, opts...)...)
}
