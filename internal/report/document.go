// Package report renders an ir.TabulationReport into the RCVTab-schema
// -compatible JSON document the CLI writes to --out and the --reference
// flag compares against.
package report

import (
	"sort"
	"strconv"

	"github.com/clearvote/rcvtab/internal/ir"
)

// Document is the top-level RCVTab-compatible report shape: a config
// echo, the ordered per-round results, and the threshold applied.
// Vote counts are serialized as decimal strings, matching the reference
// tool's JSON shape even though this engine never produces fractional
// counts.
type Document struct {
	Config  ConfigEcho    `json:"config"`
	Results []RoundResult `json:"results"`
}

// ConfigEcho names the handful of config fields the reference summary
// JSON echoes back for human readability; the full rules document is not
// reproduced.
type ConfigEcho struct {
	Threshold string `json:"threshold"`
}

// RoundResult is one round's entry in the results array.
type RoundResult struct {
	Round        int               `json:"round"`
	Tally        map[string]string `json:"tally"`
	TallyResults []TallyResultItem `json:"tallyResults"`
}

// TallyResultItem is either an elimination (with its transfer
// breakdown) or an election (transfers always empty, since an elected
// candidate's remaining ballots are not transferred away).
type TallyResultItem struct {
	Eliminated string            `json:"eliminated,omitempty"`
	Elected    string            `json:"elected,omitempty"`
	Transfers  map[string]string `json:"transfers"`
}

// BuildDocument renders a TabulationReport into the RCVTab-compatible
// shape, given the candidate id-to-name map the report's ids reference.
// The last round's eliminated-candidate entries are dropped entirely
// (they carried no further transfers once the tabulation ended), matching
// the reference tool's result_stats_to_json behavior.
func BuildDocument(rep *ir.TabulationReport, names map[ir.CandidateID]string) Document {
	doc := Document{Results: make([]RoundResult, 0, len(rep.Rounds))}

	if len(rep.Rounds) > 0 {
		doc.Config.Threshold = strconv.FormatUint(rep.Rounds[0].Threshold, 10)
	}

	lastRound := len(rep.Rounds) - 1
	for i, round := range rep.Rounds {
		rr := RoundResult{
			Round: round.RoundNumber,
			Tally: make(map[string]string, len(round.PerCandidateTally)),
		}
		for id, count := range round.PerCandidateTally {
			rr.Tally[names[id]] = strconv.FormatUint(count, 10)
		}

		transfersByCandidate := make(map[ir.CandidateID]map[string]string)
		for _, t := range round.Transfers {
			m, ok := transfersByCandidate[t.Source]
			if !ok {
				m = make(map[string]string)
				transfersByCandidate[t.Source] = m
			}
			switch d := t.Destination.(type) {
			case ir.DestinationCandidate:
				m[names[d.ID]] = strconv.FormatUint(t.Count, 10)
			case ir.DestinationExhausted:
				m["exhausted"] = strconv.FormatUint(t.Count, 10)
			}
		}

		if i < lastRound {
			eliminated := sortedNames(round.EliminatedThisRound, names)
			for _, name := range eliminated {
				id := nameToID(round.EliminatedThisRound, names, name)
				transfers := transfersByCandidate[id]
				if transfers == nil {
					transfers = map[string]string{}
				}
				rr.TallyResults = append(rr.TallyResults, TallyResultItem{Eliminated: name, Transfers: transfers})
			}
		}

		for _, name := range sortedNames(round.ElectedThisRound, names) {
			rr.TallyResults = append(rr.TallyResults, TallyResultItem{Elected: name, Transfers: map[string]string{}})
		}

		doc.Results = append(doc.Results, rr)
	}

	return doc
}

func sortedNames(ids []ir.CandidateID, names map[ir.CandidateID]string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = names[id]
	}
	sort.Strings(out)
	return out
}

func nameToID(ids []ir.CandidateID, names map[ir.CandidateID]string, name string) ir.CandidateID {
	for _, id := range ids {
		if names[id] == name {
			return id
		}
	}
	return 0
}
