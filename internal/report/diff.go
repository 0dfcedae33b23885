package report

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Normalize applies the reference tool's own read_summary normalization
// to a generic decoded report JSON value before comparison: it sorts each
// round's tallyResults by its elected/eliminated candidate name, drops
// eliminated-candidate entries whose transfers are empty, and removes a
// zero-valued "Undeclared Write-ins" tally entry. This lets --reference
// comparisons tolerate map key reordering and zero-count bookkeeping
// differences that carry no tabulation meaning.
func Normalize(doc map[string]any) map[string]any {
	results, ok := doc["results"].([]any)
	if !ok {
		return doc
	}

	normalized := make([]any, len(results))
	for i, r := range results {
		round, ok := r.(map[string]any)
		if !ok {
			normalized[i] = r
			continue
		}
		normalized[i] = normalizeRound(round)
	}

	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	out["results"] = normalized
	return out
}

func normalizeRound(round map[string]any) map[string]any {
	out := make(map[string]any, len(round))
	for k, v := range round {
		out[k] = v
	}

	if tallyResults, ok := round["tallyResults"].([]any); ok {
		kept := make([]any, 0, len(tallyResults))
		for _, item := range tallyResults {
			obj, ok := item.(map[string]any)
			if !ok {
				kept = append(kept, item)
				continue
			}
			if _, isElim := obj["eliminated"]; isElim {
				if transfers, ok := obj["transfers"].(map[string]any); ok && len(transfers) == 0 {
					continue
				}
			}
			kept = append(kept, obj)
		}
		sort.SliceStable(kept, func(i, j int) bool {
			return tallyResultKey(kept[i]) < tallyResultKey(kept[j])
		})
		out["tallyResults"] = kept
	}

	if tally, ok := round["tally"].(map[string]any); ok {
		t := make(map[string]any, len(tally))
		for k, v := range tally {
			t[k] = v
		}
		if v, ok := t["Undeclared Write-ins"]; ok && fmt.Sprint(v) == "0" {
			delete(t, "Undeclared Write-ins")
		}
		out["tally"] = t
	}

	return out
}

func tallyResultKey(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	if v, ok := obj["elected"]; ok {
		return fmt.Sprint(v)
	}
	if v, ok := obj["eliminated"]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

// Compare normalizes both JSON documents and reports whether they are
// structurally equal; when they are not, diff holds both normalized
// documents for the caller to inspect.
func Compare(got, want map[string]any) (equal bool, diff string) {
	normGot, err1 := json.Marshal(Normalize(got))
	normWant, err2 := json.Marshal(Normalize(want))
	if err1 != nil || err2 != nil {
		return false, "failed to re-marshal normalized documents for comparison"
	}

	var a, b any
	_ = json.Unmarshal(normGot, &a)
	_ = json.Unmarshal(normWant, &b)

	if deepEqual(a, b) {
		return true, ""
	}
	return false, fmt.Sprintf("got:\n%s\n\nwant:\n%s", normGot, normWant)
}

func deepEqual(a, b any) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}
