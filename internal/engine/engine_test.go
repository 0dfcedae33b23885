package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearvote/rcvtab/internal/config"
	"github.com/clearvote/rcvtab/internal/ir"
)

func candidateSlot(name string) ir.RawSlot { return ir.RawSlotCandidate{Name: name} }

func ballot(id string, names ...string) ir.RawBallot {
	slots := make([]ir.RawSlot, len(names))
	for i, n := range names {
		if n == "" {
			slots[i] = ir.RawSlotBlank{}
			continue
		}
		slots[i] = candidateSlot(n)
	}
	return ir.RawBallot{ID: id, Multiplicity: 1, Slots: slots}
}

func baseRules(candidates ...string) *config.VoteRules {
	r := config.DefaultRules
	r.CandidateNames = candidates
	r.TiebreakMode = config.TiebreakUsePermutation
	r.TiebreakPermutation = candidates // last listed loses elimination ties by default
	return &r
}

// Immediate majority: a landslide winner is elected in round 1 with
// no elimination phase at all.
func TestTabulateImmediateMajority(t *testing.T) {
	rules := baseRules("X", "Y")
	var raw []ir.RawBallot
	for i := 0; i < 10; i++ {
		raw = append(raw, ballot("", "X", "Y"))
	}
	for i := 0; i < 3; i++ {
		raw = append(raw, ballot("", "Y", "X"))
	}

	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	require.Len(t, report.Rounds, 1)
	assert.Equal(t, uint64(7), report.Rounds[0].Threshold)
	assert.ElementsMatch(t, []ir.CandidateID{1}, report.Winners)
}

// Overvote policy: exhaust_immediately drops the ballot entirely;
// always_skip_to_next_rank falls through to the next rank instead.
func TestTabulateOvervotePolicy(t *testing.T) {
	rules := baseRules("A", "B", "C")
	raw := []ir.RawBallot{
		{ID: "b1", Multiplicity: 1, Slots: []ir.RawSlot{
			ir.RawSlotOvervote{Names: []string{"A", "B"}},
			candidateSlot("C"),
		}},
	}

	rules.OvervoteRule = config.OvervoteExhaustImmediately
	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), report.Rounds[0].Exhausted.Overvote)
	assert.Equal(t, uint64(0), report.Rounds[0].PerCandidateTally[3])

	rules.OvervoteRule = config.OvervoteAlwaysSkipToNextRank
	report, err = Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), report.Rounds[0].PerCandidateTally[3])
}

// Skipped ranks: two consecutive blanks exceed a budget of 1, so the
// ballot exhausts instead of reaching its third-ranked choice.
func TestTabulateSkippedRankBudgetExhausts(t *testing.T) {
	rules := baseRules("A", "B", "C")
	limit := 1
	rules.MaxSkippedRanksAllowed = &limit

	raw := []ir.RawBallot{ballot("b1", "A", "", "", "B")}
	for i := 0; i < 2; i++ {
		raw = append(raw, ballot("", "B"))
	}
	for i := 0; i < 2; i++ {
		raw = append(raw, ballot("", "C"))
	}

	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)

	// Round 1: A=1, B=2, C=2, threshold = floor(5/2)+1 = 3. Nobody crosses
	// and A is eliminated. In round 2 A's ballot walks two blanks, over the
	// budget of 1, so it exhausts and B stays at 2.
	require.True(t, len(report.Rounds) >= 2)
	assert.ElementsMatch(t, []ir.CandidateID{1}, report.Rounds[0].EliminatedThisRound)
	assert.Equal(t, uint64(1), report.Rounds[1].Exhausted.SkippedRank)
	assert.Equal(t, uint64(2), report.Rounds[1].PerCandidateTally[2])
}

// Duplicate candidate handling: the three documented policies produce
// three different effective ballots from [A, B, A].
func TestTabulateDuplicateCandidateModes(t *testing.T) {
	rules := baseRules("A", "B")

	rules.DuplicateCandidateMode = config.DuplicateSkip
	raw := []ir.RawBallot{ballot("b1", "A", "B", "A")}
	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), report.Rounds[0].PerCandidateTally[1])

	rules.DuplicateCandidateMode = config.DuplicateExhaust
	report, err = Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), report.Rounds[0].PerCandidateTally[1])

	rules.DuplicateCandidateMode = config.DuplicateError
	_, err = Tabulate(context.Background(), rules, raw)
	require.Error(t, err)
	assert.True(t, ir.IsInvariantViolation(err) == false)
}

// Duplicate-exhaust attribution: a ballot truncated by the duplicate
// policy must book its eventual exhaustion under DuplicateExhaust, not the
// generic CursorPastEnd bucket, once its lone remaining choice is
// eliminated and the cursor runs off the truncated tail.
func TestTabulateDuplicateExhaustAttributedSeparately(t *testing.T) {
	rules := baseRules("A", "B", "C")
	rules.DuplicateCandidateMode = config.DuplicateExhaust

	raw := []ir.RawBallot{
		{ID: "dup", Multiplicity: 1, Slots: []ir.RawSlot{candidateSlot("A"), candidateSlot("A")}},
	}
	for i := 0; i < 3; i++ {
		raw = append(raw, ballot("", "B"))
	}
	for i := 0; i < 3; i++ {
		raw = append(raw, ballot("", "C"))
	}

	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	require.True(t, len(report.Rounds) >= 2, "A must be eliminated before B/C reach a majority")

	assert.Equal(t, ir.CandidateID(1), report.Rounds[0].EliminatedThisRound[0])
	assert.Equal(t, uint64(1), report.Rounds[1].Exhausted.DuplicateExhaust)
	assert.Equal(t, uint64(0), report.Rounds[1].Exhausted.CursorPastEnd)
}

// Multi-seat Droop: a held-constant threshold fills the first seat
// in round 1; the second seat goes to the last continuing candidate once
// elimination narrows the field down to one.
func TestTabulateMultiSeatDroopSecondSeatByElimination(t *testing.T) {
	rules := baseRules("A", "B", "C")
	rules.WinnerElectionMode = config.ModeMultiSeatDroop
	rules.NumberOfWinners = 2

	var raw []ir.RawBallot
	for i := 0; i < 40; i++ {
		raw = append(raw, ballot("", "A"))
	}
	for i := 0; i < 30; i++ {
		raw = append(raw, ballot("", "B"))
	}
	for i := 0; i < 30; i++ {
		raw = append(raw, ballot("", "C", "B"))
	}

	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(34), report.Rounds[0].Threshold)
	require.Len(t, report.Rounds, 2)
	assert.ElementsMatch(t, []ir.CandidateID{1}, report.Rounds[0].ElectedThisRound)
	assert.ElementsMatch(t, []ir.CandidateID{3}, report.Rounds[0].EliminatedThisRound)
	assert.ElementsMatch(t, []ir.CandidateID{2}, report.Rounds[1].ElectedThisRound)
	assert.ElementsMatch(t, []ir.CandidateID{1, 2}, report.Winners)
}

// Multi-seat fallback: once continuing candidates narrow to exactly the
// number of open seats, they are declared winners outright instead of
// being narrowed by one more elimination round first.
func TestTabulateMultiSeatFallbackStopsNarrowingAtOpenSeatCount(t *testing.T) {
	rules := baseRules("A", "B", "C", "D")
	rules.WinnerElectionMode = config.ModeMultiSeatDroop
	rules.NumberOfWinners = 2

	var raw []ir.RawBallot
	for i := 0; i < 28; i++ {
		raw = append(raw, ballot("", "A"))
	}
	for i := 0; i < 28; i++ {
		raw = append(raw, ballot("", "B"))
	}
	for i := 0; i < 22; i++ {
		raw = append(raw, ballot("", "C"))
	}
	for i := 0; i < 22; i++ {
		raw = append(raw, ballot("", "D"))
	}

	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	require.Len(t, report.Rounds, 3)

	assert.ElementsMatch(t, []ir.CandidateID{4}, report.Rounds[0].EliminatedThisRound)
	assert.ElementsMatch(t, []ir.CandidateID{3}, report.Rounds[1].EliminatedThisRound)

	// The third round must declare both remaining candidates winners in
	// one step, not eliminate one of them first.
	assert.Empty(t, report.Rounds[2].EliminatedThisRound)
	assert.ElementsMatch(t, []ir.CandidateID{1, 2}, report.Rounds[2].ElectedThisRound)
	assert.ElementsMatch(t, []ir.CandidateID{1, 2}, report.Winners)
}

// Vote conservation: every round's assigned tally plus cumulative
// exhaustion equals total ballot weight, after excluding pre-round-0
// discards.
func TestVoteConservationAcrossRounds(t *testing.T) {
	rules := baseRules("A", "B", "C", "D")
	raw := []ir.RawBallot{
		ballot("", "A", "B", "", "D"),
		ballot("", "A", "C", "B"),
		ballot("", "B", "A", "D", "C"),
		ballot("", "B", "C", "A", "D"),
		ballot("", "C", "A", "B", "D"),
		ballot("", "D", "B", "A", "C"),
	}

	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)

	var cumulativeExhausted uint64
	for _, round := range report.Rounds {
		var active uint64
		for _, c := range round.PerCandidateTally {
			active += c
		}
		cumulativeExhausted += round.ExhaustedCount()
		assert.Equal(t, uint64(len(raw)), active+cumulativeExhausted,
			"round %d: active(%d) + cumulative exhausted(%d) must equal total ballots", round.RoundNumber, active, cumulativeExhausted)
	}
}

// Monotone status and round bound: every round eliminates or elects at
// least one candidate, and the tabulation never runs past |candidates|
// rounds.
func TestRoundBoundAndMonotoneProgress(t *testing.T) {
	rules := baseRules("A", "B", "C", "D")
	raw := []ir.RawBallot{
		ballot("", "A", "B", "", "D"),
		ballot("", "A", "C", "B"),
		ballot("", "B", "A", "D", "C"),
		ballot("", "B", "C", "A", "D"),
		ballot("", "C", "A", "B", "D"),
		ballot("", "D", "B", "A", "C"),
	}

	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(report.Rounds), len(rules.CandidateNames))

	for _, round := range report.Rounds {
		changed := len(round.ElectedThisRound) + len(round.EliminatedThisRound)
		assert.Greater(t, changed, 0, "round %d made no progress", round.RoundNumber)
	}
}

// Determinism and permutation idempotence: identical inputs always
// produce an identical report, and reordering the raw ballot slice does
// not change the outcome.
func TestDeterminismAndInputOrderIndependence(t *testing.T) {
	rules := baseRules("A", "B", "C")
	raw := []ir.RawBallot{
		ballot("", "A", "B", "C"),
		ballot("", "B", "A", "C"),
		ballot("", "C", "A", "B"),
		ballot("", "A", "C", "B"),
	}
	reversed := make([]ir.RawBallot, len(raw))
	for i, b := range raw {
		reversed[len(raw)-1-i] = b
	}

	r1, err1 := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err1)
	r2, err2 := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err2)
	r3, err3 := Tabulate(context.Background(), rules, reversed)
	require.NoError(t, err3)

	assert.Equal(t, r1, r2)
	assert.Equal(t, r1.Winners, r3.Winners)
	assert.Equal(t, len(r1.Rounds), len(r3.Rounds))
}

// Plurality mode: the highest round-1 tally wins outright with no
// elimination phase and no threshold applied.
func TestTabulatePluralityNoElimination(t *testing.T) {
	rules := baseRules("A", "B", "C")
	rules.WinnerElectionMode = config.ModeSingleWinnerPlurality
	raw := []ir.RawBallot{
		ballot("", "A"),
		ballot("", "A"),
		ballot("", "B"),
		ballot("", "C"),
	}

	report, err := Tabulate(context.Background(), rules, raw)
	require.NoError(t, err)
	require.Len(t, report.Rounds, 1)
	assert.Equal(t, uint64(0), report.Rounds[0].Threshold)
	assert.Equal(t, []ir.CandidateID{1}, report.Winners)
}

// Cancellation: a context cancelled before the first round returns
// Cancelled rather than a partial report.
func TestTabulateRespectsCancellation(t *testing.T) {
	rules := baseRules("A", "B")
	raw := []ir.RawBallot{ballot("", "A"), ballot("", "B")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Tabulate(ctx, rules, raw)
	require.Error(t, err)
	assert.True(t, ir.IsCancelled(err))
}

// UnknownCandidate: a name absent from the registry is fatal unless the
// unrecognized-as-write-in policy is set.
func TestTabulateUnknownCandidateFails(t *testing.T) {
	rules := baseRules("A", "B")
	raw := []ir.RawBallot{ballot("b1", "Z")}

	_, err := Tabulate(context.Background(), rules, raw)
	require.Error(t, err)

	var ve *ir.VotingError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ir.ErrCodeUnknownCandidate, ve.Code)
}
