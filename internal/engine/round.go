package engine

import (
	"github.com/clearvote/rcvtab/internal/config"
	"github.com/clearvote/rcvtab/internal/ir"
)

// exhaustCause names why a ballot stopped contributing to any candidate.
// exhaustNone means the walk stopped on an assignable candidate instead.
type exhaustCause int

const (
	exhaustNone exhaustCause = iota
	exhaustOvervote
	exhaustSkippedRank
	exhaustUndeclaredWriteIn
	exhaustCursorPastEnd
)

// walkBallot advances through choices starting at startCursor until it
// either lands on a continuing candidate or the ballot exhausts. It never
// mutates its inputs, which is what lets the transfer bookkeeping reuse it
// to peek at where an eliminated candidate's ballots would land next round
// without touching real cursor state.
func walkBallot(choices []ir.Choice, startCursor int, states map[ir.CandidateID]*ir.CandidateState, rules *config.VoteRules) (endCursor int, assigned ir.CandidateID, cause exhaustCause) {
	cursor := startCursor
	consecutiveBlanks := 0

	for {
		if cursor >= len(choices) {
			return cursor, 0, exhaustCursorPastEnd
		}

		switch c := choices[cursor].(type) {
		case ir.ChoiceBlank:
			consecutiveBlanks++
			cursor++
			if rules.MaxSkippedRanksAllowed != nil && consecutiveBlanks > *rules.MaxSkippedRanksAllowed {
				return cursor, 0, exhaustSkippedRank
			}

		case ir.ChoiceOvervote:
			if rules.OvervoteRule == config.OvervoteAlwaysSkipToNextRank {
				consecutiveBlanks = 0 // a non-blank rank, even an overvote, breaks the skipped-rank run
				cursor++
				continue
			}
			return cursor + 1, 0, exhaustOvervote

		case ir.ChoiceUndeclaredWriteIn:
			return cursor + 1, 0, exhaustUndeclaredWriteIn

		case ir.ChoiceCandidate:
			st, ok := states[c.ID]
			if !ok {
				return cursor + 1, 0, exhaustCursorPastEnd
			}
			switch st.Status {
			case ir.StatusContinuing:
				return cursor, c.ID, exhaustNone
			default: // Elected, Eliminated, Excluded: skip without counting as a blank
				consecutiveBlanks = 0
				cursor++
			}

		default:
			consecutiveBlanks = 0
			cursor++
		}
	}
}

// assignBallot runs walkBallot from the ballot's current cursor, updating
// the ballot's cursor in place and folding the outcome into either tally
// or exhaustion. A ballot already marked Exhausted is skipped entirely —
// it was already counted in a previous round's exhaustion total.
func assignBallot(b *ir.AggregatedBallot, states map[ir.CandidateID]*ir.CandidateState, rules *config.VoteRules, tally map[ir.CandidateID]uint64, exhaustion *ir.ExhaustionBreakdown) {
	if b.Exhausted {
		return
	}

	endCursor, assigned, cause := walkBallot(b.Choices, b.Cursor, states, rules)
	b.Cursor = endCursor

	if cause == exhaustNone {
		tally[assigned] += b.Count
		return
	}

	b.Exhausted = true
	switch cause {
	case exhaustOvervote:
		exhaustion.Overvote += b.Count
	case exhaustSkippedRank:
		exhaustion.SkippedRank += b.Count
	case exhaustUndeclaredWriteIn:
		exhaustion.UndeclaredWriteIn += b.Count
	case exhaustCursorPastEnd:
		if b.TruncatedByDuplicate {
			exhaustion.DuplicateExhaust += b.Count
		} else {
			exhaustion.CursorPastEnd += b.Count
		}
	}
}

// findEliminated selects the candidates to eliminate this round: the
// tied-lowest set, widened by batch elimination when enabled, collapsed
// to a single candidate via the arbiter when a tie survives and batch
// elimination is off.
func findEliminated(round int, tally map[ir.CandidateID]uint64, continuing []ir.CandidateID, rules *config.VoteRules, names map[ir.CandidateID]string, history []ir.RoundRecord, a *arbiter) ([]ir.CandidateID, []ir.TieBreakEvent, error) {
	if len(continuing) <= 1 {
		return nil, nil, nil
	}

	ordered := sortByTallyAscending(continuing, tally)
	minTally := tally[ordered[0]]

	tied := []ir.CandidateID{}
	for _, id := range ordered {
		if tally[id] == minTally {
			tied = append(tied, id)
		}
	}

	if rules.BatchElimination {
		batch := batchEliminationSet(ordered, tally)
		if len(batch) > len(tied) {
			// Never eliminate every continuing candidate in one round;
			// keep the last one standing for the next round's check.
			if len(batch) >= len(continuing) {
				batch = batch[:len(continuing)-1]
			}
			return batch, nil, nil
		}
	}

	if len(tied) == 1 {
		return tied, nil, nil
	}

	// Never eliminate every continuing candidate at once even without
	// batch elimination: if the whole continuing set tied, eliminate only
	// the arbiter's pick and leave everyone else for the next round.
	loser, event, err := a.resolveElimination(round, tied, names, history)
	if err != nil {
		return nil, nil, err
	}
	return []ir.CandidateID{loser}, []ir.TieBreakEvent{event}, nil
}

// batchEliminationSet returns the largest prefix of the ascending-tally
// list that cannot mathematically catch up to the next-lowest tally even
// if every vote in the prefix transferred to one member of it.
func batchEliminationSet(ascending []ir.CandidateID, tally map[ir.CandidateID]uint64) []ir.CandidateID {
	var cumulative uint64
	end := 0
	for i, id := range ascending {
		cumulative += tally[id]
		if i+1 >= len(ascending) {
			break
		}
		nextTally := tally[ascending[i+1]]
		if cumulative < nextTally {
			end = i + 1
		}
	}
	return append([]ir.CandidateID{}, ascending[:end]...)
}

func sortByTallyAscending(ids []ir.CandidateID, tally map[ir.CandidateID]uint64) []ir.CandidateID {
	out := make([]ir.CandidateID, len(ids))
	copy(out, ids)
	// Simple insertion sort: candidate counts are small and this keeps
	// ties in a stable, input-order-independent arrangement (ties are
	// then re-sorted by candidate id below).
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && tally[out[j]] < tally[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	sortStableByID(out, tally)
	return out
}

// sortStableByID breaks ties within equal-tally runs by candidate id, so
// the ascending order is fully deterministic regardless of map iteration.
func sortStableByID(ids []ir.CandidateID, tally map[ir.CandidateID]uint64) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && tally[ids[j]] == tally[ids[j-1]] && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// computeTransfers speculatively re-runs assignment for each
// just-eliminated ballot, one step past its current position, against the
// post-elimination status table, to report where that ballot's weight
// lands next round without mutating any real ballot state.
func computeTransfers(ballots []ir.AggregatedBallot, eliminated map[ir.CandidateID]bool, states map[ir.CandidateID]*ir.CandidateState, rules *config.VoteRules) []ir.TransferRecord {
	type key struct {
		source ir.CandidateID
		dest   ir.Destination
	}
	totals := make(map[key]uint64)
	order := []key{}

	for _, b := range ballots {
		if b.Exhausted || b.Cursor >= len(b.Choices) {
			continue
		}
		cand, ok := b.Choices[b.Cursor].(ir.ChoiceCandidate)
		if !ok || !eliminated[cand.ID] {
			continue
		}

		_, nextAssigned, cause := walkBallot(b.Choices, b.Cursor+1, states, rules)

		var dest ir.Destination
		if cause == exhaustNone {
			dest = ir.DestinationCandidate{ID: nextAssigned}
		} else {
			dest = ir.DestinationExhausted{}
		}

		k := key{source: cand.ID, dest: dest}
		if _, seen := totals[k]; !seen {
			order = append(order, k)
		}
		totals[k] += b.Count
	}

	records := make([]ir.TransferRecord, 0, len(order))
	for _, k := range order {
		records = append(records, ir.TransferRecord{Source: k.source, Destination: k.dest, Count: totals[k]})
	}
	return records
}
