package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/loader"
	"github.com/roach88/sketchbook/internal/logging"
	"github.com/roach88/sketchbook/internal/session"
	"github.com/roach88/sketchbook/internal/sketch"
	"github.com/roach88/sketchbook/internal/store"
)

// Harness is the test execution engine for one scenario run.
type Harness struct {
	store      *store.Store
	controller *session.Controller
	logger     *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the starting sketch, if any
// 3. Execute steps with expect validation
// 4. Replay the journal and compare it with the live sketch
// 5. Evaluate assertions against the trace and final sketch
//
// An error is returned only when the run itself cannot be set up;
// failed expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, logging.NewNop())
}

// RunWithLogger is Run with controller logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	sk := sketch.New()
	if scenario.Sketch != "" {
		sk, err = loader.Load(scenario.Sketch)
		if err != nil {
			return nil, fmt.Errorf("failed to load sketch: %w", err)
		}
	}

	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	ctx := context.Background()
	c, err := session.New(ctx, sk,
		session.WithJournal(st),
		session.WithSessionID(sessionID),
		session.WithLabel(scenario.Name),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	h := &Harness{store: st, controller: c, logger: logger}
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	result.State = c.Data()

	h.verifyReplay(ctx, result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step, traces what it did and checks its
// expectations.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	var (
		outcomes []session.Outcome
		err      error
		origin   store.Origin
		path     string
	)
	switch {
	case step.Undo:
		origin = store.OriginUndo
		outcomes, err = h.controller.Undo(ctx)
	case step.Redo:
		origin = store.OriginRedo
		outcomes, err = h.controller.Redo(ctx)
	default:
		origin = store.OriginApply
		ev, evErr := step.Event()
		if evErr != nil {
			return evErr
		}
		path = strings.Join(ev.Path(), "/")
		outcomes, err = h.controller.Apply(ctx, ev)
	}

	for _, out := range outcomes {
		te := TraceEvent{
			Step:   index,
			Seq:    out.Seq,
			Origin: string(out.Origin),
			Path:   strings.Join(out.Event.Path(), "/"),
			Kind:   string(out.Consumed.Kind()),
		}
		if irr, ok := out.Consumed.(event.Irreversible); ok {
			te.Reset = irr.Reset
		}
		result.AddTrace(te)
	}
	if err != nil {
		result.AddTrace(TraceEvent{
			Step:   index,
			Origin: string(origin),
			Path:   path,
			Kind:   KindError,
			Code:   errorCode(err),
		})
	}

	h.checkExpect(index, step.Expect, outcomes, err, result)
	h.logger.Info("step completed",
		"step", index,
		"origin", origin,
		"path", path,
		"outcomes", len(outcomes),
		"error", err,
	)
	return nil
}

func (h *Harness) checkExpect(index int, exp *ExpectClause, outcomes []session.Outcome, err error, result *Result) {
	if exp != nil && exp.Error != "" {
		switch {
		case err == nil:
			result.AddError(fmt.Sprintf("step %d: expected error %s, got success", index, exp.Error))
		case errorCode(err) != exp.Error:
			result.AddError(fmt.Sprintf("step %d: expected error %s, got %s (%v)", index, exp.Error, errorCode(err), err))
		}
		return
	}
	if err != nil {
		result.AddError(fmt.Sprintf("step %d: unexpected error: %v", index, err))
		return
	}
	if exp == nil {
		return
	}
	if exp.Events != nil && len(outcomes) != *exp.Events {
		result.AddError(fmt.Sprintf("step %d: expected %d events, got %d", index, *exp.Events, len(outcomes)))
	}
	if exp.Outcome != "" {
		for _, out := range outcomes {
			if kind := string(out.Consumed.Kind()); kind != exp.Outcome {
				result.AddError(fmt.Sprintf("step %d: expected outcome %s, got %s for %s",
					index, exp.Outcome, kind, strings.Join(out.Event.Path(), "/")))
			}
		}
	}
}

// verifyReplay rebuilds the sketch from the journal and compares digests
// with the live sketch.
func (h *Harness) verifyReplay(ctx context.Context, result *Result) {
	replayed, err := session.Replay(ctx, h.store, h.controller.ID(), 0)
	if err != nil {
		result.AddError(fmt.Sprintf("replay: %v", err))
		return
	}
	live, err := store.Digest(result.State)
	if err != nil {
		result.AddError(fmt.Sprintf("replay: %v", err))
		return
	}
	if replayed.Digest != live {
		result.AddError(fmt.Sprintf("replay: journal rebuilds digest %s, live sketch has %s", replayed.Digest, live))
	}
}

// errorCode is session.CodeOf with a fallback for uncoded errors.
func errorCode(err error) string {
	if code := session.CodeOf(err); code != "" {
		return code
	}
	return "INTERNAL"
}
