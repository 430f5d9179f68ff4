package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sketchbook/internal/loader"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Output string // output file path; its extension picks the format
	To     string // output format when writing to stdout
}

// ConvertResult describes a written sketch.
type ConvertResult struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Format string `json:"format"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <sketch-file>",
		Short: "Convert a sketch definition to JSON or YAML",
		Long: `Load a sketch definition and write it back in canonical form.

The sketch is built before it is written, so schema defaults are filled
in and the default layout is always present. CUE is accepted as input
only.

Examples:
  sketchbook convert model.cue -o model.json
  sketchbook convert model.json --to yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.To, "to", "json", "output format when writing to stdout (json|yaml)")

	return cmd
}

func runConvert(opts *ConvertOptions, input string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sk, err := loader.Load(input)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	data := sk.Data()

	if opts.Output == "" {
		out, err := loader.Marshal(data, loader.Format(opts.To))
		if err != nil {
			return outputLoadError(formatter, err)
		}
		_, err = formatter.Writer.Write(out)
		return err
	}

	format, err := loader.FormatOf(opts.Output)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if err := loader.Save(opts.Output, data); err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Wrote %d variable(s) to %s", len(data.Model.Variables), opts.Output)

	result := ConvertResult{Input: input, Output: opts.Output, Format: string(format)}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote %s (%s)\n", opts.Output, format)
	return nil
}

// outputLoadError reports a loader failure as a command error.
func outputLoadError(formatter *OutputFormatter, err error) error {
	code, message := loader.ErrCodeGeneric, err.Error()
	var le *loader.LoadError
	if errors.As(err, &le) {
		code, message = le.Code, le.Error()
	}
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, code, err)
}
