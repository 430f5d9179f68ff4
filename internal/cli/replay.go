package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sketchbook/internal/loader"
	"github.com/roach88/sketchbook/internal/session"
	"github.com/roach88/sketchbook/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
	UpTo     int64
	Out      string // requires Session
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID     string `json:"session_id"`
	Label         string `json:"label,omitempty"`
	Seq           int64  `json:"seq"`
	Applied       int    `json:"applied"`
	Digest        string `json:"digest,omitempty"`
	Deterministic bool   `json:"deterministic"`
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild sketches from the journal",
		Long: `Rebuild journaled sessions and verify that the journal replays cleanly.

Each session is rebuilt twice from its latest snapshot and the events
after it. A session fails when an entry is rejected, produces a
different outcome kind than the one journaled, or the two rebuilds
disagree.

Exit codes:
  0 - Every session replayed deterministically
  1 - A session diverged
  2 - Command error (database not found, etc.)

Examples:
  sketchbook replay --db ./sketchbook.db
  sketchbook replay --db ./sketchbook.db --session draft-1 --upto 40 --out draft.json
  sketchbook replay --db ./sketchbook.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")
	cmd.Flags().Int64Var(&opts.UpTo, "upto", 0, "stop after this seq (0 replays everything)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the rebuilt sketch (requires --session)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Out != "" && opts.Session == "" {
		return NewExitError(ExitCommandError, "--out requires --session")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var sessions []store.Session
	if opts.Session != "" {
		sess, err := st.GetSession(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read session %s", opts.Session), err)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}
	if len(sessions) == 0 {
		if formatter.IsJSON() {
			return outputReplayJSON(formatter, result)
		}
		fmt.Fprintln(formatter.Writer, "No sessions found in database.")
		return nil
	}

	for _, sess := range sessions {
		formatter.VerboseLog("Replaying session %s (%d event(s))", sess.ID, sess.Events)
		sr, rebuilt := replayAndVerify(ctx, st, sess, opts.UpTo)
		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
			continue
		}
		if opts.Out != "" {
			if err := loader.Save(opts.Out, rebuilt.Sketch.Data()); err != nil {
				return outputLoadError(formatter, err)
			}
			formatter.VerboseLog("Wrote sketch to %s", opts.Out)
		}
	}

	if formatter.IsJSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayAndVerify replays a session twice and compares the rebuilds.
func replayAndVerify(ctx context.Context, st *store.Store, sess store.Session, upTo int64) (ReplaySessionResult, session.Replayed) {
	sr := ReplaySessionResult{SessionID: sess.ID, Label: sess.Label}

	first, err := session.Replay(ctx, st, sess.ID, upTo)
	if err != nil {
		sr.Error = err.Error()
		return sr, session.Replayed{}
	}
	second, err := session.Replay(ctx, st, sess.ID, upTo)
	if err != nil {
		sr.Error = fmt.Sprintf("second replay failed: %v", err)
		return sr, session.Replayed{}
	}

	sr.Seq = first.Seq
	sr.Applied = first.Applied
	sr.Digest = first.Digest
	sr.Deterministic = first.Digest == second.Digest && first.Seq == second.Seq
	if !sr.Deterministic {
		sr.Error = fmt.Sprintf("rebuilds disagree: %s at seq %d, %s at seq %d", first.Digest, first.Seq, second.Digest, second.Seq)
	}
	return sr, first
}

func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if !result.AllDeterministic {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    string(session.ErrCodeReplayDiverged),
			Message: "replay verification failed",
		}
	}
	if err := formatter.Respond(resp); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		status := "✓"
		if !s.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Session: %s\n", status, s.SessionID)
		if s.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", s.Error)
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "  Seq: %d (%d event(s) after snapshot)\n", s.Seq, s.Applied)
		if formatter.Verbose {
			fmt.Fprintf(w, "  Digest: %s\n", s.Digest)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions replayed")
		return nil
	}
	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
