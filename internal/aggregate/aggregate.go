// Package aggregate implements the Aggregator: grouping identical
// normalized ballots into a single weighted record, shrinking the
// working set the Round Engine iterates over.
package aggregate

import (
	"sort"

	"github.com/clearvote/rcvtab/internal/ir"
)

// Result is the Aggregator's output: the deduplicated ballot set plus the
// ballots that were entirely blank and never entered the active pool.
type Result struct {
	Ballots           []ir.AggregatedBallot
	PreRoundExhausted uint64
}

// Aggregate hashes each ballot's canonical choice sequence and sums
// multiplicities across ballots that hash identically. All-blank ballots
// are set aside into PreRoundExhausted rather than given a zero-length
// entry in Ballots, since they can never be assigned to anyone.
//
// The returned slice is sorted by signature so that repeated runs, and
// runs given the same ballots in a different input order, produce an
// identical iteration order — the property the round engine's tie-break
// log reproducibility depends on.
func Aggregate(ballots []ir.NormalizedBallot) Result {
	bySignature := make(map[string]*ir.AggregatedBallot)
	var preExhausted uint64

	for _, b := range ballots {
		if allBlank(b.Choices) {
			preExhausted += b.Multiplicity
			continue
		}

		sig := ir.MustBallotSignature(ir.CanonicalChoiceArray(b.Choices))
		if existing, ok := bySignature[sig]; ok {
			existing.Count += b.Multiplicity
			continue
		}
		bySignature[sig] = &ir.AggregatedBallot{
			Signature:            sig,
			Choices:              b.Choices,
			Count:                b.Multiplicity,
			TruncatedByDuplicate: b.TruncatedByDuplicate,
		}
	}

	out := make([]ir.AggregatedBallot, 0, len(bySignature))
	for _, ab := range bySignature {
		out = append(out, *ab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signature < out[j].Signature })

	return Result{Ballots: out, PreRoundExhausted: preExhausted}
}

func allBlank(choices []ir.Choice) bool {
	if len(choices) == 0 {
		return true
	}
	for _, c := range choices {
		if _, isBlank := c.(ir.ChoiceBlank); !isBlank {
			return false
		}
	}
	return true
}
