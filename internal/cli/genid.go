package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/loader"
	"github.com/roach88/sketchbook/internal/sketch"
)

// GenIDOptions holds flags for the genid command.
type GenIDOptions struct {
	*RootOptions
	Category string
	Taken    []string
	Sketch   string // ids of Category in this sketch count as taken
}

// GenIDResult is a generated identifier.
type GenIDResult struct {
	Ideal    string `json:"ideal"`
	Category string `json:"category"`
	ID       string `json:"id"`
}

// Categories lists the identifier categories genid accepts.
var Categories = []string{"variable", "layout", "function", "dataset", "observation", "dyn_property", "stat_property"}

// NewGenIDCommand creates the genid command.
func NewGenIDCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenIDOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "genid <ideal>",
		Short: "Generate a fresh identifier",
		Long: `Derive a valid identifier from an arbitrary string.

The ideal string is used as-is when it is a valid identifier and not
taken. Otherwise diacritics and invalid characters are removed, a leading
digit gets the category prefix, and _0, _1, ... are appended until the
result is free. Words that update functions read as literals or
operators (true, not, in, ...) are never free for variables, and
builtins (len, max, ...) are never free for functions.

Examples:
  sketchbook genid "Gène A"
  sketchbook genid 3x --category function
  sketchbook genid a --taken a,a_0
  sketchbook genid a --sketch model.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenID(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "variable", "identifier category ("+strings.Join(Categories, "|")+")")
	cmd.Flags().StringSliceVar(&opts.Taken, "taken", nil, "identifiers already in use")
	cmd.Flags().StringVar(&opts.Sketch, "sketch", "", "treat identifiers in this sketch as taken")

	return cmd
}

func runGenID(opts *GenIDOptions, ideal string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if !slices.Contains(Categories, opts.Category) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown category %q: must be one of %v", opts.Category, Categories))
	}

	sk := sketch.New()
	if opts.Sketch != "" {
		loaded, err := loader.Load(opts.Sketch)
		if err != nil {
			return outputLoadError(formatter, err)
		}
		sk = loaded
	}
	formatter.VerboseLog("%d identifier(s) passed as taken", len(opts.Taken))

	result := GenIDResult{Ideal: ideal, Category: opts.Category, ID: generateID(sk, opts.Category, ideal, opts.Taken)}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, result.ID)
	return nil
}

// generateID allocates through the sketch, so ids the sketch would refuse
// (existing ones, reserved words for variables and functions) are skipped.
func generateID(sk *sketch.Sketch, category, ideal string, taken []string) string {
	switch category {
	case "layout":
		return sk.Model().GenerateLayoutID(ideal, parseTaken[ids.Layout](taken)...).String()
	case "function":
		return sk.Model().GenerateFunctionID(ideal, parseTaken[ids.Function](taken)...).String()
	case "dataset":
		return sk.Observations().GenerateDatasetID(ideal, parseTaken[ids.Dataset](taken)...).String()
	case "observation":
		return generateObservationID(sk, ideal, taken)
	case "dyn_property":
		return sk.Properties().GenerateDynamicID(ideal, parseTaken[ids.DynProperty](taken)...).String()
	case "stat_property":
		return sk.Properties().GenerateStaticID(ideal, parseTaken[ids.StatProperty](taken)...).String()
	default:
		return sk.Model().GenerateVarID(ideal, parseTaken[ids.Var](taken)...).String()
	}
}

// parseTaken keeps the entries of taken that are valid ids of category C;
// anything else could never collide.
func parseTaken[C ids.Category](taken []string) []ids.ID[C] {
	out := make([]ids.ID[C], 0, len(taken))
	for _, s := range taken {
		if id, err := ids.Parse[C](s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// generateObservationID avoids observation ids of every dataset, so the
// result can be pushed into any of them.
func generateObservationID(sk *sketch.Sketch, ideal string, taken []string) string {
	used := make(map[ids.ObservationID]struct{})
	for _, id := range parseTaken[ids.Observation](taken) {
		used[id] = struct{}{}
	}
	for _, d := range sk.Data().Datasets {
		for _, o := range d.Observations {
			used[ids.MustParse[ids.Observation](o.ID)] = struct{}{}
		}
	}
	return ids.Generate(ideal, ids.TakenIn(used)).String()
}
