package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/harness"
	"github.com/roach88/sketchbook/internal/loader"
	"github.com/roach88/sketchbook/internal/logging"
	"github.com/roach88/sketchbook/internal/metrics"
	"github.com/roach88/sketchbook/internal/session"
	"github.com/roach88/sketchbook/internal/sketch"
	"github.com/roach88/sketchbook/internal/snapshot/redis"
	"github.com/roach88/sketchbook/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Sketch          string // starting sketch file; empty sketch when unset
	Database        string // SQLite journal
	Session         string // session id; resumed when it exists in the journal
	Label           string
	Out             string // write the final sketch here
	Redis           string // redis address for checkpoint mirroring
	CheckpointEvery int64
	KeepGoing       bool
}

// AppliedEvent is one leaf outcome reported by apply.
type AppliedEvent struct {
	Step   int    `json:"step"`
	Seq    int64  `json:"seq"`
	Origin string `json:"origin"`
	Kind   string `json:"kind"`
	Event  string `json:"event"`
	Reset  bool   `json:"reset,omitempty"`
}

// StepError is a rejected script step.
type StepError struct {
	Step    int    `json:"step"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ApplyResult holds the outcome of an apply run.
type ApplyResult struct {
	SessionID string         `json:"session_id"`
	Resumed   bool           `json:"resumed,omitempty"`
	Seq       int64          `json:"seq"`
	Digest    string         `json:"digest"`
	Events    []AppliedEvent `json:"events"`
	Errors    []StepError    `json:"errors,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <script.yaml>",
		Short: "Apply an event script to a sketch",
		Long: `Apply a YAML event script to a sketch and report every leaf outcome.

Removals that cascade are expanded and reported one event per line.
With --db the session is journaled to SQLite; if --session names a
session already in the journal, it is replayed and continued instead of
starting from --sketch.

Exit codes:
  0 - Every step applied
  1 - A step was rejected
  2 - Command error (unreadable sketch or script, database error, etc.)

Examples:
  sketchbook apply edits.yaml --sketch model.cue --out model.json
  sketchbook apply edits.yaml --db ./sketchbook.db --session draft-1
  sketchbook apply edits.yaml --db ./sketchbook.db --redis localhost:6379 --checkpoint-every 50`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sketch, "sketch", "", "starting sketch file (.cue, .json, .yaml)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (resumed if journaled)")
	cmd.Flags().StringVar(&opts.Label, "label", "", "session label stored in the journal")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the final sketch to this file")
	cmd.Flags().StringVar(&opts.Redis, "redis", "", "redis address for checkpoint mirroring")
	cmd.Flags().Int64Var(&opts.CheckpointEvery, "checkpoint-every", 0, "write a checkpoint every n events")
	cmd.Flags().BoolVar(&opts.KeepGoing, "keep-going", false, "continue after a rejected step")

	return cmd
}

func runApply(opts *ApplyOptions, scriptPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := logging.NewWriter(cmd.ErrOrStderr(), logging.Level(opts.Verbose))

	script, err := LoadScript(scriptPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load script", err)
	}

	reg := prometheus.NewRegistry()
	sessOpts := []session.Option{
		session.WithLogger(logger),
		session.WithMetrics(metrics.New(reg)),
		session.WithCheckpointEvery(opts.CheckpointEvery),
	}
	if opts.Label != "" {
		sessOpts = append(sessOpts, session.WithLabel(opts.Label))
	}
	if opts.Redis != "" {
		snaps := redis.New(opts.Redis, "", 0)
		defer snaps.Close()
		sessOpts = append(sessOpts, session.WithSnapshots(snaps))
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	c, resumed, err := openSession(ctx, opts, st, sessOpts)
	if err != nil {
		var le *loader.LoadError
		if errors.As(err, &le) {
			return outputLoadError(formatter, err)
		}
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	formatter.VerboseLog("Session %s at seq %d (resumed: %v)", c.ID(), c.Seq(), resumed)

	result := ApplyResult{SessionID: c.ID(), Resumed: resumed, Events: []AppliedEvent{}}
	for i, step := range script.Steps {
		outcomes, err := applyStep(ctx, c, step)
		for _, out := range outcomes {
			result.Events = append(result.Events, toAppliedEvent(i, out))
		}
		if err != nil {
			result.Errors = append(result.Errors, StepError{Step: i, Code: stepErrorCode(err), Message: err.Error()})
			if !opts.KeepGoing {
				break
			}
		}
	}

	data := c.Data()
	result.Seq = c.Seq()
	if result.Digest, err = store.Digest(data); err != nil {
		return WrapExitError(ExitCommandError, "failed to digest sketch", err)
	}
	if opts.Out != "" {
		if err := loader.Save(opts.Out, data); err != nil {
			return outputLoadError(formatter, err)
		}
		formatter.VerboseLog("Wrote sketch to %s", opts.Out)
	}
	logMetrics(formatter, reg)

	return outputApply(formatter, result)
}

// openSession resumes opts.Session from the journal when it is there, and
// otherwise starts a new session from opts.Sketch.
func openSession(ctx context.Context, opts *ApplyOptions, st *store.Store, sessOpts []session.Option) (*session.Controller, bool, error) {
	if st != nil {
		sessOpts = append(sessOpts, session.WithJournal(st))
		if opts.Session != "" {
			_, err := st.GetSession(ctx, opts.Session)
			switch {
			case err == nil:
				if opts.Sketch != "" {
					return nil, false, fmt.Errorf("session %s is already journaled; drop --sketch to resume it", opts.Session)
				}
				c, err := session.Resume(ctx, st, opts.Session, sessOpts...)
				return c, true, err
			case !errors.Is(err, store.ErrSessionNotFound):
				return nil, false, err
			}
		}
	}
	if opts.Session != "" {
		sessOpts = append(sessOpts, session.WithSessionID(opts.Session))
	}

	sk := sketch.New()
	if opts.Sketch != "" {
		var err error
		if sk, err = loader.Load(opts.Sketch); err != nil {
			return nil, false, err
		}
	}
	c, err := session.New(ctx, sk, sessOpts...)
	return c, false, err
}

func applyStep(ctx context.Context, c *session.Controller, step harness.Step) ([]session.Outcome, error) {
	switch {
	case step.Undo:
		return c.Undo(ctx)
	case step.Redo:
		return c.Redo(ctx)
	default:
		ev, err := step.Event()
		if err != nil {
			return nil, err
		}
		return c.Apply(ctx, ev)
	}
}

func toAppliedEvent(step int, out session.Outcome) AppliedEvent {
	ae := AppliedEvent{
		Step:   step,
		Seq:    out.Seq,
		Origin: string(out.Origin),
		Kind:   string(out.Consumed.Kind()),
		Event:  out.Event.String(),
	}
	if irr, ok := out.Consumed.(event.Irreversible); ok {
		ae.Reset = irr.Reset
	}
	return ae
}

// stepErrorCode is the error code reported for a rejected step.
func stepErrorCode(err error) string {
	if code := session.CodeOf(err); code != "" {
		return code
	}
	return loader.ErrCodeGeneric
}

// logMetrics prints the session counters in verbose mode.
func logMetrics(formatter *OutputFormatter, reg *prometheus.Registry) {
	if !formatter.Verbose {
		return
	}
	families, err := reg.Gather()
	if err != nil {
		formatter.VerboseLog("metrics unavailable: %v", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				formatter.VerboseLog("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				formatter.VerboseLog("%s %g", mf.GetName(), m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				formatter.VerboseLog("%s count=%d sum=%g", mf.GetName(), m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum())
			}
		}
	}
}

func outputApply(formatter *OutputFormatter, result ApplyResult) error {
	var failure error
	if len(result.Errors) > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d step(s) rejected", len(result.Errors)))
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			first := result.Errors[0]
			resp.Status = "error"
			resp.Error = &CLIError{Code: first.Code, Message: first.Message}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	errIdx := 0
	for _, ev := range result.Events {
		for errIdx < len(result.Errors) && result.Errors[errIdx].Step < ev.Step {
			writeStepError(formatter, result.Errors[errIdx])
			errIdx++
		}
		fmt.Fprintln(w, formatAppliedEvent(ev))
	}
	for ; errIdx < len(result.Errors); errIdx++ {
		writeStepError(formatter, result.Errors[errIdx])
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Session %s at seq %d (%d event(s))\n", result.SessionID, result.Seq, len(result.Events))
	if failure != nil {
		fmt.Fprintf(w, "✗ %d step(s) rejected\n", len(result.Errors))
		return failure
	}
	fmt.Fprintln(w, "✓ All steps applied")
	return nil
}

func formatAppliedEvent(ev AppliedEvent) string {
	seq := "-"
	if ev.Seq > 0 {
		seq = fmt.Sprint(ev.Seq)
	}
	line := fmt.Sprintf("%s %s %s %s", seq, ev.Origin, ev.Kind, ev.Event)
	if ev.Reset {
		line += " (history reset)"
	}
	return line
}

func writeStepError(formatter *OutputFormatter, e StepError) {
	fmt.Fprintf(formatter.Writer, "✗ step %d: %s\n", e.Step, e.Message)
}
