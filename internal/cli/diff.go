package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearvote/rcvtab/internal/report"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Got  string
	Want string
}

// NewDiffCommand creates the diff command: a standalone structural
// comparison of two report documents, independent of running a
// tabulation in the same invocation.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare two report JSON documents, ignoring presentation-only differences",
		Long: `Compare a generated report against an expected one.
tallyResults ordering, empty-transfer elimination entries, and zero-valued
Undeclared Write-ins entries are normalized away before comparison.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Got, "got", "", "generated report JSON path (required)")
	cmd.Flags().StringVar(&opts.Want, "want", "", "expected report JSON path (required)")
	_ = cmd.MarkFlagRequired("got")
	_ = cmd.MarkFlagRequired("want")

	return cmd
}

func runDiff(opts *DiffOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	formatter.VerboseLog("reading --got %s", opts.Got)
	gotBytes, err := os.ReadFile(opts.Got)
	if err != nil {
		return WrapExitError(ExitInputOrConfigError, "reading --got file", err)
	}
	formatter.VerboseLog("reading --want %s", opts.Want)
	wantBytes, err := os.ReadFile(opts.Want)
	if err != nil {
		return WrapExitError(ExitInputOrConfigError, "reading --want file", err)
	}

	var got, want map[string]any
	if err := json.Unmarshal(gotBytes, &got); err != nil {
		return WrapExitError(ExitInputOrConfigError, "decoding --got file", err)
	}
	if err := json.Unmarshal(wantBytes, &want); err != nil {
		return WrapExitError(ExitInputOrConfigError, "decoding --want file", err)
	}

	equal, diff := report.Compare(got, want)
	if !equal {
		if opts.Format == "json" {
			_ = formatter.Error("E_REPORTS_DIFFER", "reports differ", diff)
			return NewExitError(ExitReferenceMismatch, "reports differ")
		}
		fmt.Fprintln(cmd.ErrOrStderr(), diff)
		return NewExitError(ExitReferenceMismatch, "reports differ")
	}

	return formatter.Success("reports match")
}
