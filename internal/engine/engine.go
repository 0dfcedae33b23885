// Package engine implements the Round Engine: the single-threaded,
// deterministic pipeline that turns raw ballots into a round-by-round
// tabulation report.
package engine

import (
	"context"
	"log/slog"
	"sort"

	"github.com/clearvote/rcvtab/internal/aggregate"
	"github.com/clearvote/rcvtab/internal/config"
	"github.com/clearvote/rcvtab/internal/ir"
	"github.com/clearvote/rcvtab/internal/normalize"
)

// Tabulate is the engine's sole entry point: a pure, synchronous function
// from (rules, ballots) to a report or an error. It never blocks on I/O,
// spawns no goroutines, and shares no mutable state beyond its own call
// frame — the candidate registry, cursor array, and tallies all live and
// die within this one call.
//
// Cancellation is cooperative: ctx is checked once per round boundary,
// never mid-round, so a cancelled tabulation returns Cancelled instead of
// a partial report.
func Tabulate(ctx context.Context, rules *config.VoteRules, raw []ir.RawBallot) (*ir.TabulationReport, error) {
	logger := slog.Default()

	registry := normalize.NewRegistry(rules.CandidateNames, rules.ExcludedCandidates)
	normalizer := normalize.NewNormalizer(registry, rules)

	normalized := make([]ir.NormalizedBallot, 0, len(raw))
	for _, b := range raw {
		nb, err := normalizer.Normalize(b)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, nb)
	}

	agg := aggregate.Aggregate(normalized)
	ballots := agg.Ballots
	states := registry.InitialStates()
	names := make(map[ir.CandidateID]string, len(states))
	for id, st := range states {
		names[id] = st.Name
	}

	if rules.WinnerElectionMode == config.ModeSingleWinnerPlurality {
		report, err := tabulatePlurality(ballots, agg.PreRoundExhausted, states, names, rules, logger)
		if err != nil {
			return nil, err
		}
		report.UndeclaredWriteInNames = normalizer.WriteInNames()
		return report, nil
	}

	tb := newArbiter(rules)
	budget := newRoundBudget(len(registry.Candidates()))

	var (
		rounds                []ir.RoundRecord
		winners               []ir.CandidateID
		firstRoundActiveVotes uint64
		heldThreshold         uint64
		seatsElected          int
	)

	for round := 1; ; round++ {
		if err := budget.check(); err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ir.NewCancelledError()
		default:
		}

		tally := make(map[ir.CandidateID]uint64)
		exhaustion := ir.ExhaustionBreakdown{}
		if round == 1 {
			exhaustion.CursorPastEnd = agg.PreRoundExhausted
		}
		for i := range ballots {
			assignBallot(&ballots[i], states, rules, tally, &exhaustion)
		}

		var activeVotes uint64
		for _, c := range tally {
			activeVotes += c
		}
		if round == 1 {
			firstRoundActiveVotes = activeVotes
		}

		threshold := heldThreshold
		if round == 1 || !thresholdIsHeldConstant(rules.WinnerElectionMode) {
			threshold = computeThreshold(rules.WinnerElectionMode, activeVotes, firstRoundActiveVotes, rules.NumberOfWinners)
			heldThreshold = threshold
		}

		continuing := continuingCandidates(states)

		crossedThreshold := candidatesAtOrAboveThreshold(continuing, tally, threshold)
		crossedThreshold = tb.resolveWinnerOrder(round, crossedThreshold, names)
		sort.SliceStable(crossedThreshold, func(i, j int) bool {
			return tally[crossedThreshold[i]] > tally[crossedThreshold[j]]
		})

		lastOneStanding := len(continuing) == 1
		suppressEarlyWin := rules.ContinueUntilTwoCandidatesRemain && len(continuing) > 2

		var electedThisRound []ir.CandidateID
		switch {
		case lastOneStanding:
			electedThisRound = []ir.CandidateID{continuing[0]}
		case suppressEarlyWin:
			electedThisRound = nil
		default:
			electedThisRound = crossedThreshold
		}

		for _, id := range electedThisRound {
			states[id].Status = ir.StatusElected
			states[id].ElectedRound = round
			winners = append(winners, id)
			seatsElected++
		}

		var eliminatedThisRound []ir.CandidateID
		var tieEvents []ir.TieBreakEvent

		// Eliminate only if seats remain open AND more candidates are still
		// continuing than there are seats left to fill — once those two
		// counts are equal, every remaining candidate wins by
		// checkTermination's fallback below instead of being narrowed
		// further.
		remainingContinuing := continuingCandidates(states)
		openSeats := rules.NumberOfWinners - seatsElected
		needsElimination := openSeats > 0 && len(remainingContinuing) > openSeats

		if needsElimination {
			var err error
			eliminatedThisRound, tieEvents, err = findEliminated(round, tally, remainingContinuing, rules, names, rounds, tb)
			if err != nil {
				return nil, err
			}
			for _, id := range eliminatedThisRound {
				states[id].Status = ir.StatusEliminated
				states[id].EliminatedRound = round
			}
		}

		eliminatedSet := make(map[ir.CandidateID]bool, len(eliminatedThisRound))
		for _, id := range eliminatedThisRound {
			eliminatedSet[id] = true
		}
		transfers := computeTransfers(ballots, eliminatedSet, states, rules)

		rounds = append(rounds, ir.RoundRecord{
			RoundNumber:         round,
			Threshold:           threshold,
			PerCandidateTally:   tally,
			Exhausted:           exhaustion,
			Transfers:           transfers,
			ElectedThisRound:    electedThisRound,
			EliminatedThisRound: eliminatedThisRound,
			TieBreakEvents:      tieEvents,
		})

		logger.Debug("round complete",
			"round", round, "threshold", threshold,
			"elected", electedThisRound, "eliminated", eliminatedThisRound)

		// A round that eliminated someone passes their ballots on to a
		// fresh round before any fallback winners are declared.
		if len(eliminatedThisRound) > 0 && seatsElected < rules.NumberOfWinners {
			continue
		}

		done, fallbackWinners, err := checkTermination(rules, states, seatsElected)
		if err != nil {
			return nil, err
		}
		if len(fallbackWinners) > 0 {
			ordered := tb.resolveWinnerOrder(round, fallbackWinners, names)
			for _, id := range ordered {
				states[id].Status = ir.StatusElected
				states[id].ElectedRound = round
				winners = append(winners, id)
			}
			rounds[len(rounds)-1].ElectedThisRound = append(rounds[len(rounds)-1].ElectedThisRound, ordered...)
		}
		if done {
			break
		}
	}

	sort.SliceStable(winners, func(i, j int) bool { return states[winners[i]].ElectedRound < states[winners[j]].ElectedRound })

	return &ir.TabulationReport{
		Rounds:                 rounds,
		Winners:                winners,
		UndeclaredWriteInNames: normalizer.WriteInNames(),
	}, nil
}

// tabulatePlurality handles single_winner_plurality: the highest-tally
// candidate in round 1 wins outright. There is no threshold and no
// elimination phase, since plurality by definition does not require a
// majority runoff.
func tabulatePlurality(ballots []ir.AggregatedBallot, preExhausted uint64, states map[ir.CandidateID]*ir.CandidateState, names map[ir.CandidateID]string, rules *config.VoteRules, logger *slog.Logger) (*ir.TabulationReport, error) {
	tally := make(map[ir.CandidateID]uint64)
	exhaustion := ir.ExhaustionBreakdown{CursorPastEnd: preExhausted}
	for i := range ballots {
		assignBallot(&ballots[i], states, rules, tally, &exhaustion)
	}

	continuing := continuingCandidates(states)
	if len(continuing) == 0 {
		return nil, ir.NewInvariantViolationError("plurality tabulation found no continuing candidates")
	}

	ordered := sortByTallyAscending(continuing, tally)
	top := ordered[len(ordered)-1]
	tied := []ir.CandidateID{}
	for _, id := range ordered {
		if tally[id] == tally[top] {
			tied = append(tied, id)
		}
	}

	var tieEvents []ir.TieBreakEvent
	if len(tied) > 1 {
		tb := newArbiter(rules)
		winnerOrder := tb.resolveWinnerOrder(1, tied, names)
		top = winnerOrder[0]
		tieEvents = []ir.TieBreakEvent{{Round: 1, CandidatesInTie: tied, WinnerOfTiebreak: top, Method: string(rules.TiebreakMode)}}
	}

	states[top].Status = ir.StatusElected
	states[top].ElectedRound = 1

	logger.Debug("plurality round complete", "winner", top, "tally", tally[top])

	return &ir.TabulationReport{
		Rounds: []ir.RoundRecord{{
			RoundNumber:       1,
			Threshold:         0,
			PerCandidateTally: tally,
			Exhausted:         exhaustion,
			ElectedThisRound:  []ir.CandidateID{top},
			TieBreakEvents:    tieEvents,
		}},
		Winners: []ir.CandidateID{top},
	}, nil
}

func continuingCandidates(states map[ir.CandidateID]*ir.CandidateState) []ir.CandidateID {
	out := []ir.CandidateID{}
	for id, st := range states {
		if st.Continuing() {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func candidatesAtOrAboveThreshold(continuing []ir.CandidateID, tally map[ir.CandidateID]uint64, threshold uint64) []ir.CandidateID {
	out := []ir.CandidateID{}
	for _, id := range continuing {
		if tally[id] >= threshold {
			out = append(out, id)
		}
	}
	return out
}

// checkTermination reports whether the tabulation is complete. It stops
// once every seat is filled. While seats are open and some continuing
// candidates remain, but no more of them than there are open seats, it
// stops and returns all of them via fallbackWinners for the caller to
// elect and append to the round record before breaking. If no continuing
// candidates remain, it stops, or fails with InvariantViolation when no
// winner was declared at all.
func checkTermination(rules *config.VoteRules, states map[ir.CandidateID]*ir.CandidateState, seatsElected int) (done bool, fallbackWinners []ir.CandidateID, err error) {
	if seatsElected >= rules.NumberOfWinners {
		return true, nil, nil
	}
	remaining := continuingCandidates(states)
	if len(remaining) == 0 {
		if seatsElected == 0 {
			return false, nil, ir.NewInvariantViolationError("no continuing candidates remain and no winner was declared")
		}
		return true, nil, nil
	}
	if len(remaining) <= rules.NumberOfWinners-seatsElected {
		return true, remaining, nil
	}
	return false, nil, nil
}
