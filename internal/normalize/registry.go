// Package normalize implements the Ballot Normalizer: folding raw
// per-voter rank lists into the engine's canonical Choice sequences.
package normalize

import (
	"golang.org/x/text/unicode/norm"

	"github.com/clearvote/rcvtab/internal/ir"
)

// Registry is the closed candidate list a tabulation validates ballots
// against. It is built once from the rule configuration's candidateNames
// and excludedCandidates before round 1 and never mutated afterward.
type Registry struct {
	candidates []ir.Candidate
	byName     map[string]ir.CandidateID
	excluded   map[ir.CandidateID]bool
}

// NewRegistry assigns small-integer ids to names in the order they appear
// in candidateNames, then marks every name in excludedCandidates as
// Excluded. Names are matched after NFC normalization so a write-in typed
// with a different Unicode normalization form than the registered name
// still resolves to the same candidate.
func NewRegistry(candidateNames, excludedCandidates []string) *Registry {
	r := &Registry{
		byName:   make(map[string]ir.CandidateID, len(candidateNames)),
		excluded: make(map[ir.CandidateID]bool),
	}

	for i, name := range candidateNames {
		id := ir.CandidateID(i + 1)
		r.candidates = append(r.candidates, ir.Candidate{ID: id, Name: name})
		r.byName[normalizeName(name)] = id
	}

	for _, name := range excludedCandidates {
		if id, ok := r.Resolve(name); ok {
			r.excluded[id] = true
		}
	}

	return r
}

// Resolve looks up a candidate by name, NFC-normalized before comparison.
func (r *Registry) Resolve(name string) (ir.CandidateID, bool) {
	id, ok := r.byName[normalizeName(name)]
	return id, ok
}

// Excluded reports whether a candidate was forced Excluded before round 1.
func (r *Registry) Excluded(id ir.CandidateID) bool {
	return r.excluded[id]
}

// Candidates returns the registered candidates in registration order.
func (r *Registry) Candidates() []ir.Candidate {
	return r.candidates
}

// InitialStates builds the per-candidate status table for round 1:
// Excluded for forced exclusions, Continuing for everyone else.
func (r *Registry) InitialStates() map[ir.CandidateID]*ir.CandidateState {
	states := make(map[ir.CandidateID]*ir.CandidateState, len(r.candidates))
	for _, c := range r.candidates {
		status := ir.StatusContinuing
		if r.excluded[c.ID] {
			status = ir.StatusExcluded
		}
		states[c.ID] = &ir.CandidateState{ID: c.ID, Name: c.Name, Status: status}
	}
	return states
}

func normalizeName(name string) string {
	return norm.NFC.String(name)
}
