package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clearvote/rcvtab/internal/config"
	"github.com/clearvote/rcvtab/internal/decode"
	"github.com/clearvote/rcvtab/internal/engine"
	"github.com/clearvote/rcvtab/internal/ir"
	"github.com/clearvote/rcvtab/internal/normalize"
	"github.com/clearvote/rcvtab/internal/report"
)

// TabulateOptions holds flags for the tabulate command.
type TabulateOptions struct {
	*RootOptions
	Input      string
	FormatArg  string
	ConfigPath string
	Out        string
	Reference  string
}

// NewTabulateCommand creates the tabulate command: the engine's sole
// driver, running the full decode → normalize → aggregate → round-engine
// → report pipeline once and exiting.
func NewTabulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TabulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tabulate",
		Short: "Run a ranked-choice tabulation and emit a round-by-round report",
		Long: `Decode a ballot file, validate a rules configuration, and run the
deterministic round engine to completion.

Example:
  rcvtab tabulate --input ballots.csv --format csv --config rules.json --out report.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTabulate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "ballot file path (required)")
	cmd.Flags().StringVar(&opts.FormatArg, "format", "csv", "ballot file format")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "JSON rules file path (required)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "report output path, or /dev/null")
	cmd.Flags().StringVar(&opts.Reference, "reference", "", "optional expected-summary JSON file for regression checking")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runTabulate(opts *TabulateOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	rulesBytes, err := os.ReadFile(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitInputOrConfigError, "reading config file", err)
	}
	rules, err := config.LoadRules(rulesBytes)
	if err != nil {
		return WrapExitError(ExitInputOrConfigError, "loading rules", err)
	}

	dec, ok := decode.Lookup(opts.FormatArg)
	if !ok {
		return NewExitError(ExitInputOrConfigError, fmt.Sprintf("unrecognized --format %q (supported: %v)", opts.FormatArg, decode.SupportedFormats()))
	}

	f, err := os.Open(opts.Input)
	if err != nil {
		return WrapExitError(ExitInputOrConfigError, "opening ballot file", err)
	}
	defer f.Close()

	source, err := dec.Decode(f)
	if err != nil {
		return WrapExitError(ExitInputOrConfigError, "decoding ballot file", err)
	}
	for _, w := range source.Warnings {
		slog.Warn("decode warning", "detail", w)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, cancelling tabulation", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("starting tabulation", "ballots", len(source.Ballots), "candidates", len(rules.CandidateNames))
	result, err := engine.Tabulate(ctx, rules, source.Ballots)
	if err != nil {
		return WrapExitError(GetExitCode(err), "tabulation failed", err)
	}
	slog.Info("tabulation complete", "rounds", len(result.Rounds), "winners", result.Winners)

	registry := normalize.NewRegistry(rules.CandidateNames, rules.ExcludedCandidates)
	names := make(map[ir.CandidateID]string, len(registry.Candidates()))
	for _, c := range registry.Candidates() {
		names[c.ID] = c.Name
	}

	doc := report.BuildDocument(result, names)
	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return WrapExitError(ExitInvariantViolation, "marshaling report", err)
	}

	if opts.Out != "" {
		if err := os.WriteFile(opts.Out, docJSON, 0644); err != nil {
			return WrapExitError(ExitInputOrConfigError, "writing report output", err)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), string(docJSON))
	}

	if opts.Reference != "" {
		return compareAgainstReference(cmd, docJSON, opts.Reference)
	}

	return nil
}

func compareAgainstReference(cmd *cobra.Command, gotJSON []byte, referencePath string) error {
	wantBytes, err := os.ReadFile(referencePath)
	if err != nil {
		return WrapExitError(ExitInputOrConfigError, "reading reference file", err)
	}

	var got, want map[string]any
	if err := json.Unmarshal(gotJSON, &got); err != nil {
		return WrapExitError(ExitInvariantViolation, "re-decoding generated report", err)
	}
	if err := json.Unmarshal(wantBytes, &want); err != nil {
		return WrapExitError(ExitInputOrConfigError, "decoding reference file", err)
	}

	equal, diff := report.Compare(got, want)
	if !equal {
		fmt.Fprintln(cmd.ErrOrStderr(), diff)
		return NewExitError(ExitReferenceMismatch, "report does not match reference")
	}

	fmt.Fprintln(cmd.OutOrStdout(), "report matches reference")
	return nil
}
