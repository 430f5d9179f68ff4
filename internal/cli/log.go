package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sketchbook/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
	Session  string
	After    int64
	Origin   string // optional - filter to apply, undo or redo
}

// LogEntry is one journaled event.
type LogEntry struct {
	Seq     int64  `json:"seq"`
	Origin  string `json:"origin"`
	Kind    string `json:"kind"`
	Event   string `json:"event"`
	Reverse string `json:"reverse,omitempty"`
	Reset   bool   `json:"reset,omitempty"`
	Digest  string `json:"digest"`
}

// LogResult holds the journal of one session.
type LogResult struct {
	SessionID string     `json:"session_id"`
	Label     string     `json:"label,omitempty"`
	Entries   []LogEntry `json:"entries"`
	Stats     LogStats   `json:"stats"`
}

// LogStats counts entries by origin.
type LogStats struct {
	Total   int `json:"total"`
	Applied int `json:"applied"`
	Undone  int `json:"undone"`
	Redone  int `json:"redone"`
	Resets  int `json:"resets"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the journal of a session",
		Long: `List the journaled events of a session in seq order.

Each line shows the seq, why the event was applied (apply, undo or redo),
its outcome kind and the event itself. With --verbose the reverse event
recorded for undo and the entry digest are shown as well.

Examples:
  sketchbook log --db ./sketchbook.db --session draft-1
  sketchbook log --db ./sketchbook.db --session draft-1 --origin undo
  sketchbook log --db ./sketchbook.db --session draft-1 --after 40 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to show (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only show entries after this seq")
	cmd.Flags().StringVar(&opts.Origin, "origin", "", "filter to one origin (apply|undo|redo)")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	switch store.Origin(opts.Origin) {
	case "", store.OriginApply, store.OriginUndo, store.OriginRedo:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid origin %q: must be apply, undo or redo", opts.Origin))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sess, err := st.GetSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read session %s", opts.Session), err)
	}
	entries, err := st.ReadEvents(ctx, opts.Session, opts.After)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := buildLog(sess, entries, store.Origin(opts.Origin))
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	return outputLogText(formatter, result)
}

func buildLog(sess store.Session, entries []store.Entry, origin store.Origin) LogResult {
	result := LogResult{SessionID: sess.ID, Label: sess.Label, Entries: []LogEntry{}}
	for _, e := range entries {
		if origin != "" && e.Origin != origin {
			continue
		}
		le := LogEntry{
			Seq:    e.Seq,
			Origin: string(e.Origin),
			Kind:   string(e.Kind),
			Event:  e.Event.String(),
			Reset:  e.Reset,
			Digest: store.EventDigest(e),
		}
		if e.Reverse != nil {
			le.Reverse = e.Reverse.String()
		}
		result.Entries = append(result.Entries, le)

		result.Stats.Total++
		switch e.Origin {
		case store.OriginUndo:
			result.Stats.Undone++
		case store.OriginRedo:
			result.Stats.Redone++
		default:
			result.Stats.Applied++
		}
		if e.Reset {
			result.Stats.Resets++
		}
	}
	return result
}

func outputLogText(formatter *OutputFormatter, result LogResult) error {
	w := formatter.Writer

	header := result.SessionID
	if result.Label != "" {
		header = fmt.Sprintf("%s (%s)", result.SessionID, result.Label)
	}
	fmt.Fprintf(w, "Session: %s\n", header)
	fmt.Fprintln(w)

	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No journal entries.")
		return nil
	}
	for _, e := range result.Entries {
		line := fmt.Sprintf("[%d] %s %s %s", e.Seq, e.Origin, e.Kind, e.Event)
		if e.Reset {
			line += " (history reset)"
		}
		fmt.Fprintln(w, line)
		if !formatter.Verbose {
			continue
		}
		if e.Reverse != "" {
			fmt.Fprintf(w, "      reverse: %s\n", e.Reverse)
		}
		fmt.Fprintf(w, "      digest:  %s\n", e.Digest)
	}

	fmt.Fprintln(w)
	s := result.Stats
	fmt.Fprintf(w, "Total: %d (applied %d, undone %d, redone %d, resets %d)\n", s.Total, s.Applied, s.Undone, s.Redone, s.Resets)
	return nil
}
