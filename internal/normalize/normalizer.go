package normalize

import (
	"github.com/google/uuid"

	"github.com/clearvote/rcvtab/internal/config"
	"github.com/clearvote/rcvtab/internal/ir"
)

// Normalizer folds RawBallots into NormalizedBallots against a closed
// Registry and a fixed VoteRules. Skipped-rank policy is deliberately not
// applied here — see the Round Engine, which is the only component that
// knows how many blanks are actually traversed during transfer.
type Normalizer struct {
	registry *Registry
	rules    *config.VoteRules

	writeInNames map[string]bool
	discarded    int
}

// NewNormalizer builds a Normalizer over a closed candidate registry.
func NewNormalizer(registry *Registry, rules *config.VoteRules) *Normalizer {
	return &Normalizer{
		registry:     registry,
		rules:        rules,
		writeInNames: make(map[string]bool),
	}
}

// DiscardedCount is how many raw ballots failed normalization and were
// dropped rather than fatally erroring. Currently always zero, since
// every failure mode below returns a fatal error instead.
func (n *Normalizer) DiscardedCount() int {
	return n.discarded
}

// WriteInNames returns every undeclared write-in label observed, in no
// particular order, for the report's audit trail.
func (n *Normalizer) WriteInNames() []string {
	names := make([]string, 0, len(n.writeInNames))
	for name := range n.writeInNames {
		names = append(names, name)
	}
	return names
}

// Normalize walks one RawBallot's slots in rank order and produces a
// NormalizedBallot, or a fatal *ir.VotingError.
func (n *Normalizer) Normalize(raw ir.RawBallot) (ir.NormalizedBallot, error) {
	multiplicity := raw.Multiplicity
	if multiplicity == 0 {
		multiplicity = 1
	}
	if raw.ID == "" {
		raw.ID = uuid.New().String()
	}

	choices := make([]ir.Choice, 0, len(raw.Slots))
	seen := make(map[ir.CandidateID]bool)

	for _, slot := range raw.Slots {
		if n.rules.MaxRankingsAllowed != nil && len(choices) >= *n.rules.MaxRankingsAllowed {
			break
		}

		switch v := slot.(type) {
		case ir.RawSlotCandidate:
			id, ok := n.registry.Resolve(v.Name)
			if !ok {
				if n.rules.TreatUnrecognizedAsUndeclaredWriteIn {
					n.writeInNames[v.Name] = true
					choices = append(choices, ir.ChoiceUndeclaredWriteIn{})
					continue
				}
				return ir.NormalizedBallot{}, ir.NewUnknownCandidateError(v.Name, raw.ID)
			}

			if seen[id] {
				switch n.rules.DuplicateCandidateMode {
				case config.DuplicateSkip:
					choices = append(choices, ir.ChoiceBlank{})
					continue
				case config.DuplicateExhaust:
					// Truncate: stop consuming further slots. The round
					// engine sees a cursor run off the end, which is the
					// "exhausts after use" behavior the rule calls for;
					// TruncatedByDuplicate lets it attribute that to the
					// duplicate-candidate cause instead of a plain
					// end-of-ballot.
					return ir.NormalizedBallot{ID: raw.ID, Multiplicity: multiplicity, Choices: choices, TruncatedByDuplicate: true}, nil
				case config.DuplicateError:
					return ir.NormalizedBallot{}, ir.NewDuplicateCandidateError(id, raw.ID)
				}
			}

			seen[id] = true
			choices = append(choices, ir.ChoiceCandidate{ID: id})

		case ir.RawSlotOvervote:
			choices = append(choices, ir.ChoiceOvervote{})

		case ir.RawSlotBlank:
			if n.rules.TreatBlankAsUndeclaredWriteIn {
				choices = append(choices, ir.ChoiceUndeclaredWriteIn{})
				continue
			}
			choices = append(choices, ir.ChoiceBlank{})

		case ir.RawSlotUndeclaredWriteIn:
			if v.Name != "" {
				n.writeInNames[v.Name] = true
			}
			choices = append(choices, ir.ChoiceUndeclaredWriteIn{})

		default:
			return ir.NormalizedBallot{}, ir.NewInvariantViolationError("normalize: unhandled RawSlot variant")
		}
	}

	return ir.NormalizedBallot{ID: raw.ID, Multiplicity: multiplicity, Choices: choices}, nil
}
