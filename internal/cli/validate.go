package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearvote/rcvtab/internal/config"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ConfigPath string
}

// NewValidateCommand creates the validate command: checks a rules document
// against the closed schema without running any tabulation.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "validate",
		Short:         "Validate a rules configuration file",
		Long:          "Check a JSON rules document against the closed rules schema and report the first rejection, if any.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "JSON rules file path (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	formatter.VerboseLog("reading rules document %s", opts.ConfigPath)
	data, err := os.ReadFile(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitInputOrConfigError, "reading config file", err)
	}

	rules, err := config.LoadRules(data)
	if err != nil {
		if opts.Format == "json" {
			_ = formatter.Error("E_RULES_REJECTED", err.Error(), nil)
			return NewExitError(ExitInputOrConfigError, "rules document rejected")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "rules document rejected: %v\n", err)
		return NewExitError(ExitInputOrConfigError, "rules document rejected")
	}

	formatter.VerboseLog("schema accepted: %d candidates, mode %s, %d winner(s)",
		len(rules.CandidateNames), rules.WinnerElectionMode, rules.NumberOfWinners)
	return formatter.Success(fmt.Sprintf("rules document valid: %d candidates, %s, %d winner(s)",
		len(rules.CandidateNames), rules.WinnerElectionMode, rules.NumberOfWinners))
}
