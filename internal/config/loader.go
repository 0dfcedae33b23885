package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/clearvote/rcvtab/internal/ir"
)

//go:embed schema.cue
var schemaFS embed.FS

// rawRulesDoc mirrors the JSON rules document field-for-field, using
// json.RawMessage for the one field (maxSkippedRanksAllowed) whose type
// is either an integer or the literal string "unlimited".
type rawRulesDoc struct {
	TabulatorVersion   string   `json:"tabulatorVersion"`
	CandidateNames     []string `json:"candidateNames"`
	ExcludedCandidates []string `json:"excludedCandidates"`

	WinnerElectionMode string `json:"winnerElectionMode"`
	NumberOfWinners    int    `json:"numberOfWinners"`

	MaxRankingsAllowed     int             `json:"maxRankingsAllowed"`
	MaxSkippedRanksAllowed json.RawMessage `json:"maxSkippedRanksAllowed"`

	OvervoteRule           string `json:"overvoteRule"`
	DuplicateCandidateMode string `json:"duplicateCandidateMode"`

	TreatBlankAsUndeclaredWriteIn bool   `json:"treatBlankAsUndeclaredWriteIn"`
	UndeclaredWriteInLabel        string `json:"undeclaredWriteInLabel"`

	TiebreakMode        string   `json:"tiebreakMode"`
	RandomSeed          int64    `json:"randomSeed"`
	TiebreakPermutation []string `json:"tiebreakPermutation"`

	BatchElimination                 bool `json:"batchElimination"`
	ContinueUntilTwoCandidatesRemain bool `json:"continueUntilTwoCandidatesRemain"`
}

// LoadRules validates a JSON rules document against the #Rules CUE schema
// and decodes it into a VoteRules. Unknown top-level fields fail with
// ir.ErrCodeUnknownRuleOption; any other schema violation fails with
// ir.ErrCodeInconsistentRules.
func LoadRules(data []byte) (*VoteRules, error) {
	schemaSrc, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("config: reading embedded schema: %w", err)
	}

	ctx := cuecontext.New()

	schemaVal := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("config: compiling schema: %w", err)
	}
	rulesDef := schemaVal.LookupPath(cue.ParsePath("#Rules"))

	dataVal := ctx.CompileBytes(data, cue.Filename("rules.json"))
	if err := dataVal.Err(); err != nil {
		return nil, ir.NewInputDecodeError(fmt.Sprintf("rules document is not valid JSON: %v", err))
	}

	unified := rulesDef.Unify(dataVal)
	if verr := unified.Validate(cue.Concrete(true), cue.All()); verr != nil {
		if name, ok := unknownFieldName(verr); ok {
			return nil, ir.NewUnknownRuleOptionError(name)
		}
		return nil, ir.NewInconsistentRulesError(formatCUEErrors(verr))
	}

	var raw rawRulesDoc
	if err := unified.Decode(&raw); err != nil {
		return nil, ir.NewInconsistentRulesError(fmt.Sprintf("decoding validated rules: %v", err))
	}

	return translate(raw)
}

// unknownFieldName inspects a CUE validation error and, if it reports a
// field disallowed by a closed struct, returns that field's name.
func unknownFieldName(err error) (string, bool) {
	for _, e := range errors.Errors(err) {
		msg := e.Error()
		if !strings.Contains(msg, "not allowed") {
			continue
		}
		path := e.Path()
		if len(path) == 0 {
			continue
		}
		return path[len(path)-1], true
	}
	return "", false
}

func formatCUEErrors(err error) string {
	var b strings.Builder
	for i, e := range errors.Errors(err) {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Error())
	}
	return b.String()
}

func translate(raw rawRulesDoc) (*VoteRules, error) {
	rules := DefaultRules
	rules.TabulatorVersion = raw.TabulatorVersion
	rules.CandidateNames = raw.CandidateNames
	rules.ExcludedCandidates = raw.ExcludedCandidates

	rules.WinnerElectionMode = WinnerElectionMode(raw.WinnerElectionMode)
	if raw.NumberOfWinners > 0 {
		rules.NumberOfWinners = raw.NumberOfWinners
	}

	if raw.MaxRankingsAllowed > 0 {
		v := raw.MaxRankingsAllowed
		rules.MaxRankingsAllowed = &v
	}

	if len(raw.MaxSkippedRanksAllowed) > 0 {
		var asString string
		if err := json.Unmarshal(raw.MaxSkippedRanksAllowed, &asString); err == nil {
			if asString != "unlimited" {
				return nil, ir.NewInconsistentRulesError(fmt.Sprintf("maxSkippedRanksAllowed: unrecognized string %q", asString))
			}
			rules.MaxSkippedRanksAllowed = nil
		} else {
			var asInt int
			if err := json.Unmarshal(raw.MaxSkippedRanksAllowed, &asInt); err != nil {
				return nil, ir.NewInconsistentRulesError("maxSkippedRanksAllowed must be an integer or \"unlimited\"")
			}
			rules.MaxSkippedRanksAllowed = &asInt
		}
	}

	if raw.OvervoteRule != "" {
		rules.OvervoteRule = OvervoteRule(raw.OvervoteRule)
	}
	if raw.DuplicateCandidateMode != "" {
		rules.DuplicateCandidateMode = DuplicateCandidateMode(raw.DuplicateCandidateMode)
	}

	rules.TreatBlankAsUndeclaredWriteIn = raw.TreatBlankAsUndeclaredWriteIn
	if raw.UndeclaredWriteInLabel != "" {
		rules.UndeclaredWriteInLabel = raw.UndeclaredWriteInLabel
	}

	if raw.TiebreakMode != "" {
		rules.TiebreakMode = TiebreakMode(raw.TiebreakMode)
	}
	rules.RandomSeed = raw.RandomSeed
	rules.TiebreakPermutation = raw.TiebreakPermutation

	rules.BatchElimination = raw.BatchElimination
	rules.ContinueUntilTwoCandidatesRemain = raw.ContinueUntilTwoCandidatesRemain

	if err := validateConsistency(&rules); err != nil {
		return nil, err
	}
	return &rules, nil
}

// validateConsistency catches combinations the CUE schema cannot express
// because they cross fields (e.g. numberOfWinners depends on
// winnerElectionMode).
func validateConsistency(rules *VoteRules) error {
	singleSeat := rules.WinnerElectionMode == ModeSingleWinnerMajority || rules.WinnerElectionMode == ModeSingleWinnerPlurality
	if singleSeat && rules.NumberOfWinners != 1 {
		return ir.NewInconsistentRulesError("numberOfWinners must be 1 under a single-winner election mode")
	}
	if !singleSeat && rules.NumberOfWinners < 1 {
		return ir.NewInconsistentRulesError("numberOfWinners must be at least 1 under a multi-seat election mode")
	}
	if rules.TiebreakMode == TiebreakUsePermutation && len(rules.TiebreakPermutation) == 0 {
		return ir.NewInconsistentRulesError("tiebreakMode=use_permutation requires a non-empty tiebreakPermutation")
	}
	return nil
}
