package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/clearvote/rcvtab/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess               = 0 // Successful tabulation
	ExitInputOrConfigError    = 1 // Bad ballot file, malformed or rejected rules document
	ExitReferenceMismatch     = 2 // --reference comparison found a structural divergence
	ExitTieRequiresResolution = 3 // stop_counting_and_ask tie hit with no resolution supplied
	ExitInvariantViolation    = 4 // engine bug indicator, not malformed input
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code — one of the Exit* constants above
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error, mapping the engine's
// closed VotingError set to the documented exit codes when err is not
// already an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var ve *ir.VotingError
	if errors.As(err, &ve) {
		switch ve.Code {
		case ir.ErrCodeTieRequiresExternalResolution:
			return ExitTieRequiresResolution
		case ir.ErrCodeInvariantViolation:
			return ExitInvariantViolation
		default:
			return ExitInputOrConfigError
		}
	}

	return ExitInputOrConfigError
}

// exitCodeLabel maps an Exit* constant to the CLIError.Code the JSON error
// path reports, so --format=json consumers get a stable string instead of
// the bare integer.
func exitCodeLabel(code int) string {
	switch code {
	case ExitSuccess:
		return "E_NONE"
	case ExitInputOrConfigError:
		return "E_INPUT_OR_CONFIG"
	case ExitReferenceMismatch:
		return "E_REFERENCE_MISMATCH"
	case ExitTieRequiresResolution:
		return "E_TIE_REQUIRES_RESOLUTION"
	case ExitInvariantViolation:
		return "E_INVARIANT_VIOLATION"
	default:
		return "E_UNKNOWN"
	}
}

// ReportError turns a command's top-level failure into its final
// user-visible error line: every RunE in this package returns a plain
// error (usually an *ExitError) and the root command's Execute wrapper
// calls this on it. validate and diff also print their own rejection
// details before returning that error. The
// trace id ties a single CLI invocation's JSON error back to whatever
// --verbose diagnostics were emitted on ErrWriter during the same run.
func (f *OutputFormatter) ReportError(err error) int {
	code := GetExitCode(err)
	traceID := uuid.NewString()

	if f.Format == "json" {
		_ = json.NewEncoder(f.GetErrWriter()).Encode(CLIResponse{
			Status:  "error",
			TraceID: traceID,
			Error: &CLIError{
				Code:    exitCodeLabel(code),
				Message: err.Error(),
			},
		})
		return code
	}

	fmt.Fprintf(f.GetErrWriter(), "error [%s] (trace %s): %v\n", exitCodeLabel(code), traceID, err)
	return code
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string      `json:"status"`            // "ok" or "error"
	Data    interface{} `json:"data,omitempty"`    // success payload
	Error   *CLIError   `json:"error,omitempty"`   // error details
	TraceID string      `json:"trace_id,omitempty"` // optional trace correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E_INPUT_OR_CONFIG", "E_RULES_REJECTED", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
