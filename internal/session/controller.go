package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/metrics"
	"github.com/roach88/sketchbook/internal/records"
	"github.com/roach88/sketchbook/internal/sketch"
	"github.com/roach88/sketchbook/internal/snapshot"
	"github.com/roach88/sketchbook/internal/store"
)

// Outcome is the result of one interpreted leaf event.
type Outcome struct {
	// Seq is the journal sequence number, or 0 for NoChange.
	Seq      int64
	Event    event.Event
	Consumed event.Consumed
	Origin   store.Origin
}

// Notification is broadcast to subscribers after each state change.
type Notification struct {
	SessionID string
	Seq       int64
	Origin    store.Origin
	Kind      event.Kind
	Change    event.StateChange
	// Reset is true when the change discarded the undo history.
	Reset bool
}

// Listener receives notifications. Listeners run synchronously on the
// writer goroutine and must not call back into the Controller.
type Listener func(Notification)

// Controller is the single writer of a sketch.
//
// Thread-safety model:
//   - Apply, Undo, Redo, Checkpoint: serialized by an internal mutex
//   - Submit: safe from any goroutine; events are applied by Run
//   - Run: must be called from exactly one goroutine
type Controller struct {
	mu sync.Mutex

	id      string
	label   string
	sketch  *sketch.Sketch
	clock   *Clock
	idGen   IDGenerator
	history *History
	queue   *eventQueue

	journal         *store.Store
	snapshots       snapshot.Store
	checkpointEvery int64

	logger          *slog.Logger
	metrics         *metrics.Metrics
	maxCascadeSteps int
	historyLimit    int

	listeners    map[int]Listener
	nextListener int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithJournal appends every state-changing outcome to st.
func WithJournal(st *store.Store) Option {
	return func(c *Controller) {
		c.journal = st
	}
}

// WithSnapshots mirrors checkpoints into a snapshot store.
func WithSnapshots(s snapshot.Store) Option {
	return func(c *Controller) {
		c.snapshots = s
	}
}

// WithCheckpointEvery writes a checkpoint after every n-th seq.
// Default: 0 (only explicit Checkpoint calls).
func WithCheckpointEvery(n int64) Option {
	return func(c *Controller) {
		c.checkpointEvery = n
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithClock sets the seq clock. Use NewClockAt to resume a journal.
func WithClock(clock *Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithHistoryLimit bounds the undo stack. Default: DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(c *Controller) {
		c.historyLimit = n
	}
}

// WithIDGenerator sets the session id source. Default: UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Controller) {
		c.idGen = gen
	}
}

// WithSessionID reuses an existing session id instead of generating one.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.id = id
	}
}

// WithLabel sets the human-readable session label stored in the journal.
func WithLabel(label string) Option {
	return func(c *Controller) {
		c.label = label
	}
}

// WithMaxCascadeSteps bounds Restart expansion. Default: DefaultMaxCascadeSteps.
func WithMaxCascadeSteps(n int) Option {
	return func(c *Controller) {
		c.maxCascadeSteps = n
	}
}

// New creates a controller owning sk (an empty sketch when nil).
//
// With a journal configured, New registers the session and stores the
// starting sketch as the snapshot at the clock's current seq, so the
// journal alone is enough to replay the session.
func New(ctx context.Context, sk *sketch.Sketch, opts ...Option) (*Controller, error) {
	if sk == nil {
		sk = sketch.New()
	}
	c := &Controller{
		sketch:          sk,
		clock:           NewClock(),
		idGen:           UUIDv7Generator{},
		queue:           newEventQueue(),
		logger:          slog.Default(),
		maxCascadeSteps: DefaultMaxCascadeSteps,
		historyLimit:    DefaultHistoryLimit,
		listeners:       make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.history = NewHistory(c.historyLimit)
	if c.id == "" {
		c.id = c.idGen.Generate()
	}
	c.logger = c.logger.With("session", c.id)

	if c.journal != nil {
		data := sk.Data()
		digest, err := store.Digest(data)
		if err != nil {
			return nil, fmt.Errorf("new session: %w", err)
		}
		if err := c.journal.CreateSession(ctx, c.id, c.label, digest); err != nil {
			return nil, fmt.Errorf("new session: %w", err)
		}
		if _, err := c.journal.WriteSnapshot(ctx, c.id, c.clock.Current(), data); err != nil {
			return nil, fmt.Errorf("new session: %w", err)
		}
	}
	return c, nil
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Seq returns the seq of the last state change.
func (c *Controller) Seq() int64 { return c.clock.Current() }

// Data returns the serialized sketch.
func (c *Controller) Data() records.SketchData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sketch.Data()
}

// CanUndo reports whether Undo has a step to revert.
func (c *Controller) CanUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.UndoLen() > 0
}

// CanRedo reports whether Redo has a step to reapply.
func (c *Controller) CanRedo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.RedoLen() > 0
}

// Subscribe registers l and returns a function that removes it.
// Listeners are called in registration order.
func (c *Controller) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.nextListener
	c.nextListener++
	c.listeners[key] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, key)
	}
}

// Apply interprets ev and returns one Outcome per leaf event applied.
//
// A Restart is expanded only after its full expansion has been applied
// successfully to a clone; if any step fails there, Apply returns a
// CASCADE_REJECTED error wrapping the step's error and the sketch is
// unchanged. On any other error the sketch is unchanged as well, except
// for a JOURNAL_FAILED error, which reports an applied outcome that could
// not be recorded.
func (c *Controller) Apply(ctx context.Context, ev event.Event) ([]Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(ctx, ev, store.OriginApply)
}

// Undo reverts the most recent undoable step.
func (c *Controller) Undo(ctx context.Context) ([]Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	step, ok := c.history.popUndo()
	if !ok {
		return nil, &Error{Code: ErrCodeNothingToUndo, Message: "undo stack is empty"}
	}
	outcomes, err := c.apply(ctx, step.Reverse, store.OriginUndo)
	if err != nil && len(outcomes) == 0 {
		c.history.pushUndo(step)
	}
	return outcomes, err
}

// Redo reapplies the most recently undone step.
func (c *Controller) Redo(ctx context.Context) ([]Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	step, ok := c.history.popRedo()
	if !ok {
		return nil, &Error{Code: ErrCodeNothingToRedo, Message: "redo stack is empty"}
	}
	outcomes, err := c.apply(ctx, step.Forward, store.OriginRedo)
	if err != nil && len(outcomes) == 0 {
		c.history.pushRedo(step)
	}
	return outcomes, err
}

// Checkpoint stores the current sketch in the journal and the snapshot
// store, whichever are configured, and returns its digest.
func (c *Controller) Checkpoint(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpoint(ctx)
}

func (c *Controller) checkpoint(ctx context.Context) (string, error) {
	data := c.sketch.Data()
	seq := c.clock.Current()
	digest, err := store.Digest(data)
	if err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	if c.journal != nil {
		if _, err := c.journal.WriteSnapshot(ctx, c.id, seq, data); err != nil {
			return "", fmt.Errorf("checkpoint: %w", err)
		}
	}
	if c.snapshots != nil {
		cp := snapshot.Checkpoint{SessionID: c.id, Seq: seq, Digest: digest, Data: data}
		if err := c.snapshots.Save(ctx, cp); err != nil {
			return "", fmt.Errorf("checkpoint: %w", err)
		}
	}
	c.logger.Debug("checkpoint written", "seq", seq, "digest", digest)
	return digest, nil
}

// Submit queues ev for Run. Returns false once the controller is stopped.
func (c *Controller) Submit(ev event.Event) bool {
	return c.queue.Enqueue(ev)
}

// Run applies submitted events in FIFO order until ctx is cancelled or
// Stop is called and the queue has drained.
//
// A rejected event is logged by Apply and Run moves on to the next one,
// the same way an interactive caller would simply see the error.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("session running")

	for {
		if ev, ok := c.queue.TryDequeue(); ok {
			_, _ = c.Apply(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			c.logger.Info("session stopping: context cancelled")
			c.queue.Close()
			return ctx.Err()

		case <-c.queue.Wait():
			if c.queue.Drained() {
				c.logger.Info("session stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the submission queue. Run returns once it has drained.
func (c *Controller) Stop() {
	c.queue.Close()
}

func (c *Controller) apply(ctx context.Context, ev event.Event, origin store.Origin) ([]Outcome, error) {
	consumed, err := c.sketch.Perform(ev)
	if err != nil {
		c.reject(ev, err)
		return nil, err
	}

	restart, ok := consumed.(event.Restart)
	if !ok {
		out, err := c.commit(ctx, ev, consumed, origin)
		return []Outcome{out}, err
	}
	return c.applyRestart(ctx, ev, restart, origin)
}

// applyRestart dry-runs the expansion of ev on a clone, then applies each
// step to the live sketch as its own leaf.
func (c *Controller) applyRestart(ctx context.Context, ev event.Event, restart event.Restart, origin store.Origin) ([]Outcome, error) {
	c.metrics.ObserveOutcome(ev.Segment(0), string(restart.Kind()))
	if err := expand(c.sketch.Clone(), restart.Events, newCascadeQuota(c.maxCascadeSteps)); err != nil {
		if !IsCascadeError(err) {
			err = newCascadeError(ev, err)
		}
		c.reject(ev, err)
		return nil, err
	}
	c.metrics.ObserveCascade(len(restart.Events))
	c.logger.Info("expanding cascade", "path", ev.String(), "steps", len(restart.Events))

	var outcomes []Outcome
	for _, step := range restart.Events {
		outs, err := c.apply(ctx, step, origin)
		outcomes = append(outcomes, outs...)
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// expand applies evs to sk, expanding nested Restarts, and stops at the
// first error.
func expand(sk *sketch.Sketch, evs []event.Event, quota *cascadeQuota) error {
	for _, ev := range evs {
		if err := quota.check(ev); err != nil {
			return err
		}
		consumed, err := sk.Perform(ev)
		if err != nil {
			return err
		}
		if r, ok := consumed.(event.Restart); ok {
			if err := expand(sk, r.Events, quota); err != nil {
				return err
			}
		}
	}
	return nil
}

// commit records a leaf outcome: seq, history, journal, subscribers.
func (c *Controller) commit(ctx context.Context, ev event.Event, consumed event.Consumed, origin store.Origin) (Outcome, error) {
	c.metrics.ObserveOutcome(ev.Segment(0), string(consumed.Kind()))
	out := Outcome{Event: ev, Consumed: consumed, Origin: origin}

	entry := store.Entry{SessionID: c.id, Event: ev, Kind: consumed.Kind(), Origin: origin}
	switch r := consumed.(type) {
	case event.NoChange:
		c.logger.Debug("event applied", "path", ev.String(), "outcome", r.Kind())
		return out, nil

	case event.Reversible:
		entry.Change = r.Change
		reverse := r.Reverse
		entry.Reverse = &reverse
		c.recordStep(ev, r, origin)

	case event.Irreversible:
		entry.Change = r.Change
		entry.Reset = r.Reset
		if r.Reset {
			c.history.Clear()
			c.logger.Info("history reset", "path", ev.String())
		}

	default:
		return out, fmt.Errorf("commit %s: unexpected outcome %T", ev, consumed)
	}

	out.Seq = c.clock.Next()
	entry.Seq = out.Seq
	c.metrics.SetHistoryDepth(c.history.UndoLen())
	c.logger.Debug("event applied", "path", ev.String(), "outcome", consumed.Kind(), "seq", out.Seq)

	var err error
	if c.journal != nil {
		if jerr := c.journal.AppendEvent(ctx, entry); jerr != nil {
			err = newJournalError(ev, out.Seq, jerr)
			c.reject(ev, err)
		}
	}

	c.notify(Notification{
		SessionID: c.id,
		Seq:       out.Seq,
		Origin:    origin,
		Kind:      consumed.Kind(),
		Change:    entry.Change,
		Reset:     entry.Reset,
	})

	if err == nil && c.checkpointEvery > 0 && out.Seq%c.checkpointEvery == 0 {
		if _, cerr := c.checkpoint(ctx); cerr != nil {
			c.logger.Warn("periodic checkpoint failed", "seq", out.Seq, "error", cerr)
		}
	}
	return out, err
}

// recordStep updates the history for a reversible outcome according to
// why the event was applied.
func (c *Controller) recordStep(ev event.Event, r event.Reversible, origin store.Origin) {
	switch origin {
	case store.OriginUndo:
		c.history.pushRedo(Step{Forward: r.Reverse, Reverse: ev})
	case store.OriginRedo:
		c.history.pushUndo(Step{Forward: ev, Reverse: r.Reverse})
	default:
		c.history.Record(Step{Forward: ev, Reverse: r.Reverse})
	}
}

func (c *Controller) notify(n Notification) {
	keys := make([]int, 0, len(c.listeners))
	for k := range c.listeners {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		c.listeners[k](n)
	}
}

func (c *Controller) reject(ev event.Event, err error) {
	c.metrics.ObserveError(CodeOf(err))
	c.logger.Warn("event rejected", "path", ev.String(), "error", err)
}

// CodeOf returns the most specific code carried by err: the session
// code if there is one, else the event code. It is empty for errors that
// carry neither.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return string(event.CodeOf(err))
}
