// Package config loads and validates the RCVTab-compatible JSON rules
// document into the engine's VoteRules struct.
package config

// WinnerElectionMode selects the threshold/quota computation and how many
// seats a tabulation fills.
type WinnerElectionMode string

const (
	ModeSingleWinnerMajority  WinnerElectionMode = "single_winner_majority"
	ModeSingleWinnerPlurality WinnerElectionMode = "single_winner_plurality"
	ModeMultiSeatHare         WinnerElectionMode = "multi_seat_hare"
	ModeMultiSeatDroop        WinnerElectionMode = "multi_seat_droop"
)

// OvervoteRule controls what happens when a ballot's rank names two or
// more candidates at once.
type OvervoteRule string

const (
	OvervoteExhaustImmediately   OvervoteRule = "exhaust_immediately"
	OvervoteAlwaysSkipToNextRank OvervoteRule = "always_skip_to_next_rank"
)

// DuplicateCandidateMode controls what happens when a candidate appears
// more than once on the same ballot.
type DuplicateCandidateMode string

const (
	DuplicateSkip    DuplicateCandidateMode = "skip_duplicate"
	DuplicateExhaust DuplicateCandidateMode = "exhaust_ballot"
	DuplicateError   DuplicateCandidateMode = "error"
)

// TiebreakMode selects the Tie-Break Arbiter strategy.
type TiebreakMode string

const (
	TiebreakRandom                        TiebreakMode = "random"
	TiebreakStopCountingAndAsk            TiebreakMode = "stop_counting_and_ask"
	TiebreakPreviousRoundCountsThenRandom TiebreakMode = "previous_round_counts_then_random"
	TiebreakUsePermutation                TiebreakMode = "use_permutation"
	TiebreakGeneratePermutation           TiebreakMode = "generate_permutation"
)

// VoteRules is the fully validated, immutable rule configuration for one
// tabulation. MaxRankingsAllowed and MaxSkippedRanksAllowed are nil when
// the corresponding option is absent or set to "unlimited" in the source
// document.
type VoteRules struct {
	TabulatorVersion   string
	CandidateNames     []string
	ExcludedCandidates []string

	WinnerElectionMode WinnerElectionMode
	NumberOfWinners    int

	MaxRankingsAllowed     *int
	MaxSkippedRanksAllowed *int

	OvervoteRule           OvervoteRule
	DuplicateCandidateMode DuplicateCandidateMode

	// TreatBlankAsUndeclaredWriteIn is the JSON document's
	// treatBlankAsUndeclaredWriteIn option: when true, an empty
	// (undervoted/skipped) rank is rewritten to UndeclaredWriteIn instead
	// of Blank before it reaches the round engine.
	TreatBlankAsUndeclaredWriteIn bool

	// TreatUnrecognizedAsUndeclaredWriteIn governs a name that does not
	// resolve against the candidate registry. The reference tool's rules
	// schema has no JSON key for this — an unrecognized name is always
	// fatal there — so this stays an engine-internal default rather than
	// something a rules document can set.
	TreatUnrecognizedAsUndeclaredWriteIn bool
	UndeclaredWriteInLabel               string

	TiebreakMode TiebreakMode
	RandomSeed   int64
	// TiebreakPermutation is the explicit candidate ordering consulted
	// under TiebreakUsePermutation; unused otherwise.
	TiebreakPermutation []string

	BatchElimination                 bool
	ContinueUntilTwoCandidatesRemain bool
}

// DefaultRules mirrors the reference tabulator's single-winner majority
// defaults: no batch elimination, no skipped-rank limit, overvotes
// exhaust immediately, duplicate candidates exhaust the ballot at the
// second occurrence.
var DefaultRules = VoteRules{
	WinnerElectionMode:     ModeSingleWinnerMajority,
	NumberOfWinners:        1,
	OvervoteRule:           OvervoteExhaustImmediately,
	DuplicateCandidateMode: DuplicateExhaust,
	TiebreakMode:           TiebreakPreviousRoundCountsThenRandom,
	UndeclaredWriteInLabel: "Undeclared Write-ins",
}
