package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rcvtab CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rcvtab",
		Short: "rcvtab - deterministic ranked-choice tabulation",
		Long:  "A single-threaded, deterministic instant-runoff/STV tabulation engine compatible with RCVTab's configuration schema.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewTabulateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))

	return cmd, opts
}

// Execute runs the rcvtab CLI to completion and returns the process exit
// code. A command failure is funneled through OutputFormatter.ReportError
// on stderr instead of the bare error string main used to print directly,
// so --format=json callers get a structured CLIResponse even for errors
// that never ran their command's own success path.
func Execute() int {
	cmd, opts := newRootCommand()
	if err := cmd.Execute(); err != nil {
		formatter := &OutputFormatter{Format: opts.Format, Writer: os.Stderr, ErrWriter: os.Stderr, Verbose: opts.Verbose}
		return formatter.ReportError(err)
	}
	return ExitSuccess
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
