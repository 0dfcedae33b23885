package ir

import (
	"errors"
	"fmt"
)

// VotingErrorCode enumerates the closed set of error kinds the engine and
// its collaborators can raise. No other code is ever constructed.
type VotingErrorCode string

const (
	ErrCodeInputDecode                   VotingErrorCode = "INPUT_DECODE_ERROR"
	ErrCodeUnknownCandidate              VotingErrorCode = "UNKNOWN_CANDIDATE"
	ErrCodeDuplicateCandidateOnBallot    VotingErrorCode = "DUPLICATE_CANDIDATE_ON_BALLOT"
	ErrCodeUnknownRuleOption             VotingErrorCode = "UNKNOWN_RULE_OPTION"
	ErrCodeInconsistentRules             VotingErrorCode = "INCONSISTENT_RULES"
	ErrCodeTieRequiresExternalResolution VotingErrorCode = "TIE_REQUIRES_EXTERNAL_RESOLUTION"
	ErrCodeCancelled                     VotingErrorCode = "CANCELLED"
	ErrCodeInvariantViolation            VotingErrorCode = "INVARIANT_VIOLATION"
)

// VotingError is the structured error type every collaborator and the
// engine itself raises. It carries enough detail for a CLI layer to
// choose an exit code without string-matching the message.
type VotingError struct {
	Code    VotingErrorCode
	Message string

	// Round is set for errors that occur mid-tabulation (tie resolution,
	// invariant violations); zero otherwise.
	Round int

	// Candidates carries the candidate set relevant to the error — the
	// tied set for TieRequiresExternalResolution, or a length-1 slice for
	// UnknownCandidate/DuplicateCandidateOnBallot.
	Candidates []CandidateID

	// Details holds any remaining context (ballot id, rule option name).
	Details map[string]string
}

func (e *VotingError) Error() string {
	if e.Round > 0 {
		return fmt.Sprintf("%s: %s (round=%d)", e.Code, e.Message, e.Round)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match on code alone, so callers can write
// errors.Is(err, &VotingError{Code: ErrCodeCancelled}) without constructing
// the full error value.
func (e *VotingError) Is(target error) bool {
	var t *VotingError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func NewInputDecodeError(detail string) *VotingError {
	return &VotingError{Code: ErrCodeInputDecode, Message: detail}
}

func NewUnknownCandidateError(name, ballotID string) *VotingError {
	details := map[string]string{"name": name}
	if ballotID != "" {
		details["ballot_id"] = ballotID
	}
	return &VotingError{
		Code:    ErrCodeUnknownCandidate,
		Message: fmt.Sprintf("%q is not a registered candidate", name),
		Details: details,
	}
}

func NewDuplicateCandidateError(candidate CandidateID, ballotID string) *VotingError {
	details := map[string]string{}
	if ballotID != "" {
		details["ballot_id"] = ballotID
	}
	return &VotingError{
		Code:       ErrCodeDuplicateCandidateOnBallot,
		Message:    "candidate appears more than once on the same ballot",
		Candidates: []CandidateID{candidate},
		Details:    details,
	}
}

func NewUnknownRuleOptionError(name string) *VotingError {
	return &VotingError{
		Code:    ErrCodeUnknownRuleOption,
		Message: fmt.Sprintf("unrecognized rule option %q", name),
		Details: map[string]string{"name": name},
	}
}

func NewInconsistentRulesError(detail string) *VotingError {
	return &VotingError{Code: ErrCodeInconsistentRules, Message: detail}
}

func NewTieRequiresExternalResolutionError(round int, candidates []CandidateID) *VotingError {
	return &VotingError{
		Code:       ErrCodeTieRequiresExternalResolution,
		Message:    "tie cannot be resolved without external input",
		Round:      round,
		Candidates: candidates,
	}
}

func NewCancelledError() *VotingError {
	return &VotingError{Code: ErrCodeCancelled, Message: "tabulation cancelled by caller"}
}

func NewInvariantViolationError(detail string) *VotingError {
	return &VotingError{Code: ErrCodeInvariantViolation, Message: detail}
}

// IsInvariantViolation reports whether err is (or wraps) an
// InvariantViolation VotingError.
func IsInvariantViolation(err error) bool {
	var ve *VotingError
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeInvariantViolation
	}
	return false
}

// IsTieRequiresExternalResolution reports whether err is (or wraps) a
// TieRequiresExternalResolution VotingError.
func IsTieRequiresExternalResolution(err error) bool {
	var ve *VotingError
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeTieRequiresExternalResolution
	}
	return false
}

// IsCancelled reports whether err is (or wraps) a Cancelled VotingError.
func IsCancelled(err error) bool {
	var ve *VotingError
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeCancelled
	}
	return false
}
