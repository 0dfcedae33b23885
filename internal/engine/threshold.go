package engine

import (
	"github.com/clearvote/rcvtab/internal/config"
)

// computeThreshold implements the rule-selected winner threshold. For
// single-seat majority it is recomputed every round from that round's
// active votes. For multi-seat Hare/Droop it is computed once, from round
// 1's active votes, and held constant afterward — those modes read only
// firstRoundActiveVotes, and majority reads only activeVotes.
//
// single_winner_plurality has no threshold at all: the highest tally in
// round 1 wins outright, so this function is never consulted under that
// mode (see engine.go's special-cased plurality path).
func computeThreshold(mode config.WinnerElectionMode, activeVotes, firstRoundActiveVotes uint64, seats int) uint64 {
	switch mode {
	case config.ModeMultiSeatHare:
		return firstRoundActiveVotes/uint64(seats) + 1
	case config.ModeMultiSeatDroop:
		return firstRoundActiveVotes/uint64(seats+1) + 1
	default: // ModeSingleWinnerMajority
		return activeVotes/2 + 1
	}
}

// thresholdIsHeldConstant reports whether a mode computes its threshold
// once in round 1 (multi-seat quotas) rather than every round.
func thresholdIsHeldConstant(mode config.WinnerElectionMode) bool {
	return mode == config.ModeMultiSeatHare || mode == config.ModeMultiSeatDroop
}
