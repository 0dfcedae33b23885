package engine

import (
	"sort"

	"github.com/clearvote/rcvtab/internal/config"
	"github.com/clearvote/rcvtab/internal/ir"
)

// arbiter is the Tie-Break Arbiter: consulted only when a round cannot
// resolve an elimination (or a simultaneous-winner ordering) without
// breaking a tie among candidates with equal tallies.
type arbiter struct {
	rules       *config.VoteRules
	permutation map[string]int // candidate name -> position in an explicit config-supplied order
}

func newArbiter(rules *config.VoteRules) *arbiter {
	a := &arbiter{rules: rules}
	if len(rules.TiebreakPermutation) > 0 {
		a.permutation = make(map[string]int, len(rules.TiebreakPermutation))
		for i, name := range rules.TiebreakPermutation {
			a.permutation[name] = i
		}
	}
	return a
}

// resolveElimination picks exactly one candidate out of a tied-lowest set
// to eliminate, and returns the TieBreakEvent to append to the round
// record. WinnerOfTiebreak holds the candidate the arbiter selected: for
// an elimination tie that is the candidate chosen to be eliminated.
func (a *arbiter) resolveElimination(round int, tied []ir.CandidateID, names map[ir.CandidateID]string, history []ir.RoundRecord) (ir.CandidateID, ir.TieBreakEvent, error) {
	sorted := sortedCopy(tied)

	switch a.rules.TiebreakMode {
	case config.TiebreakStopCountingAndAsk:
		return 0, ir.TieBreakEvent{}, ir.NewTieRequiresExternalResolutionError(round, sorted)

	case config.TiebreakUsePermutation:
		loser := a.leastFavoredByPermutation(sorted, names)
		return loser, ir.TieBreakEvent{
			Round: round, CandidatesInTie: sorted, WinnerOfTiebreak: loser, Method: string(config.TiebreakUsePermutation),
		}, nil

	case config.TiebreakPreviousRoundCountsThenRandom:
		if loser, ok := a.leastByRoundHistory(sorted, history); ok {
			return loser, ir.TieBreakEvent{
				Round: round, CandidatesInTie: sorted, WinnerOfTiebreak: loser,
				Method: string(config.TiebreakPreviousRoundCountsThenRandom),
			}, nil
		}
		loser := a.leastFavoredBySeededDigest(round, sorted, names)
		return loser, ir.TieBreakEvent{
			Round: round, CandidatesInTie: sorted, WinnerOfTiebreak: loser,
			Method: string(config.TiebreakPreviousRoundCountsThenRandom) + "/random",
		}, nil

	default: // TiebreakRandom, TiebreakGeneratePermutation
		loser := a.leastFavoredBySeededDigest(round, sorted, names)
		return loser, ir.TieBreakEvent{
			Round: round, CandidatesInTie: sorted, WinnerOfTiebreak: loser, Method: string(a.rules.TiebreakMode),
		}, nil
	}
}

// resolveWinnerOrder orders a set of candidates by the arbiter's
// preference alone, without looking at tallies. Tabulate stable-sorts
// simultaneous threshold winners by descending tally afterward, so this
// order decides only among equal tallies.
func (a *arbiter) resolveWinnerOrder(round int, tied []ir.CandidateID, names map[ir.CandidateID]string) []ir.CandidateID {
	sorted := sortedCopy(tied)
	switch a.rules.TiebreakMode {
	case config.TiebreakUsePermutation:
		sort.Slice(sorted, func(i, j int) bool {
			return a.permutation[names[sorted[i]]] < a.permutation[names[sorted[j]]]
		})
	default:
		digests := make(map[ir.CandidateID]string, len(sorted))
		for _, id := range sorted {
			digests[id] = ir.TiebreakDigest(a.rules.RandomSeed, round, names[id])
		}
		sort.Slice(sorted, func(i, j int) bool { return digests[sorted[i]] < digests[sorted[j]] })
	}
	return sorted
}

func (a *arbiter) leastFavoredByPermutation(tied []ir.CandidateID, names map[ir.CandidateID]string) ir.CandidateID {
	worst := tied[0]
	worstPos := a.permutation[names[worst]]
	for _, id := range tied[1:] {
		if pos := a.permutation[names[id]]; pos > worstPos {
			worst, worstPos = id, pos
		}
	}
	return worst
}

func (a *arbiter) leastFavoredBySeededDigest(round int, tied []ir.CandidateID, names map[ir.CandidateID]string) ir.CandidateID {
	worst := tied[0]
	worstDigest := ir.TiebreakDigest(a.rules.RandomSeed, round, names[worst])
	for _, id := range tied[1:] {
		if d := ir.TiebreakDigest(a.rules.RandomSeed, round, names[id]); d > worstDigest {
			worst, worstDigest = id, d
		}
	}
	return worst
}

// leastByRoundHistory walks backward through prior rounds' tallies,
// looking for the first round where the tied candidates' tallies differ.
// If found, the candidate with the lowest tally in that round loses the
// tie. If every prior round (down to round 1) had them exactly tied,
// ok is false and the caller falls back to the seeded digest.
func (a *arbiter) leastByRoundHistory(tied []ir.CandidateID, history []ir.RoundRecord) (ir.CandidateID, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		tally := history[i].PerCandidateTally
		var worst ir.CandidateID
		var worstCount uint64
		distinct := false
		for j, id := range tied {
			count := tally[id]
			if j == 0 {
				worst, worstCount = id, count
				continue
			}
			if count != worstCount {
				distinct = true
			}
			if count < worstCount {
				worst, worstCount = id, count
			}
		}
		if distinct {
			return worst, true
		}
	}
	return 0, false
}

func sortedCopy(ids []ir.CandidateID) []ir.CandidateID {
	out := make([]ir.CandidateID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
