package engine

import "github.com/clearvote/rcvtab/internal/ir"

// roundBudget enforces the round-count safety bound: a tabulation that has
// not produced a winner within |candidates| rounds has a bug, since every
// round eliminates at least one candidate (or batch-eliminates several)
// and a single-seat tabulation cannot outlast the candidate count.
//
// This is the same "increment, then compare against a limit, return a
// typed error" shape as any bounded-retry guard: cheap to check, cheap
// to reason about, and immune to an off-by-one turning into a hang.
type roundBudget struct {
	limit   int
	current int
}

func newRoundBudget(limit int) *roundBudget {
	return &roundBudget{limit: limit}
}

// check increments the round counter and fails with InvariantViolation if
// the bound is exceeded.
func (b *roundBudget) check() error {
	b.current++
	if b.current > b.limit {
		return ir.NewInvariantViolationError(
			"round count exceeded the number of candidates; this signals a bug in round progression, not malformed input",
		)
	}
	return nil
}
