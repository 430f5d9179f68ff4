package store

import (
	"context"
	"fmt"
	"math"
)

// ReplayPlan is everything needed to rebuild a session's sketch: the
// latest usable snapshot (if any) and the entries recorded after it.
type ReplayPlan struct {
	Session  Session
	Snapshot *Snapshot
	Entries  []Entry
}

// FromSeq returns the seq the plan's entries continue from: the snapshot
// seq, or 0 when replay starts from the session's base sketch.
func (p ReplayPlan) FromSeq() int64 {
	if p.Snapshot == nil {
		return 0
	}
	return p.Snapshot.Seq
}

// PlanReplay assembles a ReplayPlan for a session up to and including
// upTo. Pass upTo <= 0 to replay everything.
//
// Entries are ordered by seq, so applying them in slice order reproduces
// the original application order.
func (s *Store) PlanReplay(ctx context.Context, sessionID string, upTo int64) (ReplayPlan, error) {
	if upTo <= 0 {
		upTo = math.MaxInt64
	}
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return ReplayPlan{}, fmt.Errorf("plan replay: %w", err)
	}
	plan := ReplayPlan{Session: sess}

	snap, ok, err := s.LatestSnapshot(ctx, sessionID, upTo)
	if err != nil {
		return ReplayPlan{}, fmt.Errorf("plan replay: %w", err)
	}
	if ok {
		plan.Snapshot = &snap
	}

	entries, err := s.ReadEvents(ctx, sessionID, plan.FromSeq())
	if err != nil {
		return ReplayPlan{}, fmt.Errorf("plan replay: %w", err)
	}
	for i, e := range entries {
		if e.Seq > upTo {
			entries = entries[:i]
			break
		}
	}
	plan.Entries = entries
	return plan, nil
}
