package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainBallotSignature     = "rcvtab/ballot-signature/v1"
	DomainTiebreakPermutation = "rcvtab/tiebreak-permutation/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BallotSignature computes the content-addressed key the Aggregator groups
// identical normalized ballots under. Two ballots with the same ranked
// choice sequence produce the same signature regardless of input order,
// which is what lets the Aggregator collapse them into one AggregatedBallot
// with a combined weight.
func BallotSignature(choices IRArray) (string, error) {
	canonical, err := MarshalCanonical(choices)
	if err != nil {
		return "", fmt.Errorf("BallotSignature: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBallotSignature, canonical), nil
}

// MustBallotSignature is like BallotSignature but panics on error.
// Use only when choices is known to be canonically marshalable (it always
// is, since normalized choices are built from IRObject/IRInt/IRBool already).
func MustBallotSignature(choices IRArray) string {
	sig, err := BallotSignature(choices)
	if err != nil {
		panic(err)
	}
	return sig
}

// TiebreakDigest computes the deterministic per-candidate digest the
// Tie-Break Arbiter sorts on when generating a seeded permutation. The
// round number is folded in so a candidate tied in round 3 does not get
// the same relative ordering it would have had if the tie had occurred in
// round 1, which would otherwise make the permutation predictable across
// rounds for repeat-eliminated-candidate names.
func TiebreakDigest(seed int64, round int, candidateName string) string {
	obj := IRObject{
		"seed":      IRInt(seed),
		"round":     IRInt(round),
		"candidate": IRString(candidateName),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		// seed/round/candidateName are always canonically marshalable;
		// even an invalid UTF-8 sequence in candidateName is replaced by
		// the JSON encoder rather than reported, so this is not reached.
		panic(fmt.Errorf("TiebreakDigest: failed to marshal: %w", err))
	}
	return hashWithDomain(DomainTiebreakPermutation, canonical)
}
