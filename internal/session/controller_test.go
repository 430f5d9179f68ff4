package session

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/logging"
	"github.com/roach88/sketchbook/internal/metrics"
	"github.com/roach88/sketchbook/internal/records"
	"github.com/roach88/sketchbook/internal/sketch"
	"github.com/roach88/sketchbook/internal/snapshot"
	"github.com/roach88/sketchbook/internal/snapshot/memory"
	"github.com/roach88/sketchbook/internal/store"
	fixtures "github.com/roach88/sketchbook/internal/testutil"
)

func newTestController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	base := []Option{
		WithLogger(logging.NewNop()),
		WithIDGenerator(NewFixedGenerator("session-1")),
	}
	c, err := New(context.Background(), nil, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func mustApply(t *testing.T, c *Controller, evs ...event.Event) []Outcome {
	t.Helper()
	var all []Outcome
	for _, ev := range evs {
		outs, err := c.Apply(context.Background(), ev)
		require.NoError(t, err, "apply %s", ev)
		all = append(all, outs...)
	}
	return all
}

func variableNames(data records.SketchData) []string {
	names := []string{}
	for _, v := range data.Model.Variables {
		names = append(names, v.Name)
	}
	return names
}

func TestNew_Defaults(t *testing.T) {
	c := newTestController(t)

	assert.Equal(t, "session-1", c.ID())
	assert.Equal(t, int64(0), c.Seq())
	assert.False(t, c.CanUndo())
	assert.False(t, c.CanRedo())
	assert.Equal(t, sketch.New().Data(), c.Data())
}

func TestApply_ReversibleAssignsSeq(t *testing.T) {
	c := newTestController(t)

	outs := mustApply(t, c, fixtures.AddVariable("a", ""), fixtures.AddVariable("b", ""))

	require.Len(t, outs, 2)
	assert.Equal(t, int64(1), outs[0].Seq)
	assert.Equal(t, int64(2), outs[1].Seq)
	assert.Equal(t, event.KindReversible, outs[0].Consumed.Kind())
	assert.Equal(t, store.OriginApply, outs[0].Origin)
	assert.Equal(t, int64(2), c.Seq())
	assert.True(t, c.CanUndo())
}

func TestApply_NoChangeSkipsSeqAndHistory(t *testing.T) {
	c := newTestController(t)
	mustApply(t, c, fixtures.AddVariable("a", ""))

	outs := mustApply(t, c, fixtures.SetVariableName("a", "a"))

	require.Len(t, outs, 1)
	assert.Equal(t, event.KindNoChange, outs[0].Consumed.Kind())
	assert.Equal(t, int64(0), outs[0].Seq)
	assert.Equal(t, int64(1), c.Seq())

	_, err := c.Undo(context.Background())
	require.NoError(t, err)
	assert.False(t, c.CanUndo(), "NoChange must not be recorded")
}

func TestApply_ErrorLeavesSketchUnchanged(t *testing.T) {
	c := newTestController(t)
	mustApply(t, c, fixtures.AddVariable("a", ""))
	before := c.Data()

	_, err := c.Apply(context.Background(), fixtures.RemoveVariable("x"))

	require.Error(t, err)
	assert.ErrorIs(t, err, event.ErrUnknownID)
	assert.Equal(t, before, c.Data())
	assert.Equal(t, int64(1), c.Seq())
}

func TestApply_CascadeExpandsInOrder(t *testing.T) {
	c := newTestController(t)
	mustApply(t, c, fixtures.ReferenceEvents()...)
	before := c.Data()

	outs := mustApply(t, c, fixtures.RemoveVariable("a"))

	require.Len(t, outs, 3)
	assert.Equal(t, []string{"model", "layout", "default", "update_position"}, outs[0].Event.Path())
	assert.Equal(t, []string{"model", "regulation", "a", "b", "remove"}, outs[1].Event.Path())
	assert.Equal(t, []string{"model", "variable", "a", "remove"}, outs[2].Event.Path())
	for i, o := range outs {
		assert.Equal(t, event.KindReversible, o.Consumed.Kind())
		assert.Equal(t, int64(6+i), o.Seq)
	}
	assert.Equal(t, []string{"b", "c"}, variableNames(c.Data()))
	assert.Empty(t, c.Data().Model.Regulations)

	// Each cascade step is its own undo step.
	for i := 0; i < 3; i++ {
		_, err := c.Undo(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, before, c.Data())
}

func TestApply_HardBlockedRemoval(t *testing.T) {
	c := newTestController(t)
	mustApply(t, c, fixtures.ReferenceEvents()...)
	mustApply(t, c, fixtures.SetUpdateFn("c", "a"))
	before := c.Data()

	outs, err := c.Apply(context.Background(), fixtures.RemoveVariable("a"))

	assert.Empty(t, outs)
	assert.ErrorIs(t, err, event.ErrInvariantViolation)
	assert.Equal(t, before, c.Data())
}

func TestUndoRedo(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t)
	mustApply(t, c, fixtures.AddVariable("a", ""), fixtures.SetVariableName("a", "Alpha"))

	outs, err := c.Undo(ctx)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, store.OriginUndo, outs[0].Origin)
	assert.Equal(t, []string{"a"}, variableNames(c.Data()))
	assert.True(t, c.CanRedo())

	outs, err = c.Redo(ctx)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, store.OriginRedo, outs[0].Origin)
	assert.Equal(t, []string{"Alpha"}, variableNames(c.Data()))
	assert.False(t, c.CanRedo())

	// Redo again after another undo, then a fresh edit discards it.
	_, err = c.Undo(ctx)
	require.NoError(t, err)
	mustApply(t, c, fixtures.SetVariableName("a", "Beta"))
	assert.False(t, c.CanRedo())
	assert.Equal(t, []string{"Beta"}, variableNames(c.Data()))
}

func TestUndo_Empty(t *testing.T) {
	c := newTestController(t)

	_, err := c.Undo(context.Background())
	assert.True(t, IsHistoryEmpty(err))

	_, err = c.Redo(context.Background())
	assert.True(t, IsHistoryEmpty(err))
}

func TestIrreversibleResetClearsHistory(t *testing.T) {
	c := newTestController(t)
	mustApply(t, c,
		fixtures.AddVariable("a", ""),
		fixtures.AddDataset("d1", []string{"a"}, [2]string{"o1", "1"}, [2]string{"o2", "0"}),
	)
	require.True(t, c.CanUndo())

	var notes []Notification
	c.Subscribe(func(n Notification) { notes = append(notes, n) })

	outs := mustApply(t, c, fixtures.RemoveObservation("d1", "o1"))

	require.Len(t, outs, 1)
	assert.Equal(t, event.KindIrreversible, outs[0].Consumed.Kind())
	assert.Equal(t, int64(3), outs[0].Seq)
	assert.False(t, c.CanUndo())
	require.Len(t, notes, 1)
	assert.True(t, notes[0].Reset)
}

func TestHistoryLimit(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, WithHistoryLimit(2))
	mustApply(t, c, fixtures.AddVariable("a", ""), fixtures.AddVariable("b", ""), fixtures.AddVariable("c", ""))

	for i := 0; i < 2; i++ {
		_, err := c.Undo(ctx)
		require.NoError(t, err)
	}
	_, err := c.Undo(ctx)
	assert.True(t, IsHistoryEmpty(err))
	assert.Equal(t, []string{"a"}, variableNames(c.Data()))
}

func TestSubscribe(t *testing.T) {
	c := newTestController(t)

	var got []Notification
	unsubscribe := c.Subscribe(func(n Notification) { got = append(got, n) })

	mustApply(t, c, fixtures.AddVariable("a", ""), fixtures.SetVariableName("a", "a"))
	require.Len(t, got, 1, "NoChange is not broadcast")
	assert.Equal(t, "session-1", got[0].SessionID)
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, event.KindReversible, got[0].Kind)
	assert.Equal(t, []string{"model", "variable", "add"}, got[0].Change.Path())

	unsubscribe()
	mustApply(t, c, fixtures.AddVariable("b", ""))
	assert.Len(t, got, 1)
}

func TestSubscribe_RegistrationOrder(t *testing.T) {
	c := newTestController(t)

	var order []string
	c.Subscribe(func(Notification) { order = append(order, "first") })
	c.Subscribe(func(Notification) { order = append(order, "second") })

	mustApply(t, c, fixtures.AddVariable("a", ""))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestJournal_RecordsEveryLeaf(t *testing.T) {
	ctx := context.Background()
	st := fixtures.OpenStore(t)
	c := newTestController(t, WithJournal(st), WithLabel("draft"))

	mustApply(t, c, fixtures.ReferenceEvents()...)
	mustApply(t, c, fixtures.RemoveVariable("a"))
	_, err := c.Undo(ctx)
	require.NoError(t, err)

	sess, err := st.GetSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "draft", sess.Label)
	emptyDigest, err := store.Digest(sketch.New().Data())
	require.NoError(t, err)
	assert.Equal(t, emptyDigest, sess.BaseDigest)
	assert.Equal(t, 9, sess.Events)

	entries, err := st.ReadEvents(ctx, "session-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 9)
	assert.Equal(t, []string{"model", "variable", "a", "remove"}, entries[7].Event.Path())
	assert.Equal(t, store.OriginUndo, entries[8].Origin)
	assert.Equal(t, []string{"model", "variable", "add"}, entries[8].Event.Path())

	snap, ok, err := st.LatestSnapshot(ctx, "session-1", 0)
	require.NoError(t, err)
	require.True(t, ok, "base snapshot is written on creation")
	assert.Equal(t, int64(0), snap.Seq)
}

func TestCheckpointEvery(t *testing.T) {
	ctx := context.Background()
	snaps := memory.NewStore()
	c := newTestController(t, WithSnapshots(snaps), WithCheckpointEvery(2))

	mustApply(t, c, fixtures.AddVariable("a", ""))
	_, err := snaps.Load(ctx, "session-1")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)

	mustApply(t, c, fixtures.AddVariable("b", ""))
	cp, err := snaps.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cp.Seq)
	assert.Equal(t, []string{"a", "b"}, variableNames(cp.Data))

	digest, err := store.Digest(c.Data())
	require.NoError(t, err)
	assert.Equal(t, digest, cp.Digest)
}

func TestCheckpoint_ReturnsDigest(t *testing.T) {
	ctx := context.Background()
	st := fixtures.OpenStore(t)
	c := newTestController(t, WithJournal(st))
	mustApply(t, c, fixtures.AddVariable("a", ""))

	digest, err := c.Checkpoint(ctx)
	require.NoError(t, err)

	snap, ok, err := st.LatestSnapshot(ctx, "session-1", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), snap.Seq)
	assert.Equal(t, digest, snap.Digest)
}

func TestMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := newTestController(t, WithMetrics(m))
	mustApply(t, c, fixtures.ReferenceEvents()...)
	mustApply(t, c, fixtures.RemoveVariable("a"))
	_, _ = c.Apply(context.Background(), fixtures.RemoveVariable("zz"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsApplied.WithLabelValues("model", "restart")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.EventsApplied.WithLabelValues("model", "reversible")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventErrors.WithLabelValues("UNKNOWN_ID")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.HistoryDepth))
}

func TestExpand_StopsAtFirstError(t *testing.T) {
	sk := sketch.New()
	err := expand(sk, []event.Event{
		fixtures.AddVariable("a", ""),
		fixtures.AddVariable("a", ""),
		fixtures.AddVariable("b", ""),
	}, newCascadeQuota(DefaultMaxCascadeSteps))

	assert.ErrorIs(t, err, event.ErrDuplicateID)
	assert.True(t, sk.Model().HasVariable(ids.MustParse[ids.Var]("a")))
	assert.False(t, sk.Model().HasVariable(ids.MustParse[ids.Var]("b")))
}

func TestExpand_Quota(t *testing.T) {
	err := expand(sketch.New(), []event.Event{
		fixtures.AddVariable("a", ""),
		fixtures.AddVariable("b", ""),
	}, newCascadeQuota(1))

	assert.True(t, IsCascadeError(err))
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ErrCodeCascadeLimit, se.Code)
}

func TestApply_CascadeQuotaRejectsWithoutMutation(t *testing.T) {
	c := newTestController(t, WithMaxCascadeSteps(2))
	mustApply(t, c, fixtures.ReferenceEvents()...)
	before := c.Data()

	_, err := c.Apply(context.Background(), fixtures.RemoveVariable("a"))

	assert.True(t, IsCascadeError(err))
	assert.Equal(t, before, c.Data())
	assert.Equal(t, int64(5), c.Seq())
}

func TestApplyRestart_FailingStepRejectsWithoutMutation(t *testing.T) {
	ctx := context.Background()
	st := fixtures.OpenStore(t)
	m := metrics.New(prometheus.NewRegistry())
	c := newTestController(t, WithJournal(st), WithMetrics(m))
	mustApply(t, c, fixtures.ReferenceEvents()...)
	var notes []Notification
	c.Subscribe(func(n Notification) { notes = append(notes, n) })
	before := c.Data()

	// The nested removal of a expands cleanly on the clone; re-adding b
	// then fails as a duplicate.
	trigger := fixtures.RemoveVariable("c")
	outs, err := c.applyRestart(ctx, trigger, event.Restart{Events: []event.Event{
		fixtures.RemoveVariable("a"),
		fixtures.AddVariable("b", ""),
	}}, store.OriginApply)

	assert.Empty(t, outs)
	require.Error(t, err)
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ErrCodeCascadeRejected, se.Code)
	assert.Equal(t, trigger.String(), se.Event)
	assert.ErrorIs(t, err, event.ErrDuplicateID)
	assert.Equal(t, string(ErrCodeCascadeRejected), CodeOf(err))

	assert.Equal(t, before, c.Data())
	assert.Equal(t, int64(5), c.Seq())
	assert.Empty(t, notes)
	assert.False(t, c.CanRedo())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventErrors.WithLabelValues("CASCADE_REJECTED")))

	entries, err := st.ReadEvents(ctx, "session-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, []string{"model", "layout", "default", "update_position"}, entries[4].Event.Path())

	// History is intact: the last journaled step is still the one undone.
	outs, err = c.Undo(ctx)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, int64(6), outs[0].Seq)
	assert.Equal(t, []string{"model", "layout", "default", "update_position"}, outs[0].Event.Path())
}

func TestRun_DrainsQueueThenStops(t *testing.T) {
	c := newTestController(t)

	require.True(t, c.Submit(fixtures.AddVariable("a", "")))
	require.True(t, c.Submit(fixtures.RemoveVariable("missing")))
	require.True(t, c.Submit(fixtures.AddVariable("b", "")))
	c.Stop()
	assert.False(t, c.Submit(fixtures.AddVariable("c", "")), "submit after stop")

	err := c.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, variableNames(c.Data()))
}

func TestRun_ContextCancelled(t *testing.T) {
	c := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.Submit(fixtures.AddVariable("a", "")))
}
