package ir

// RawSlot is the sealed tagged union one rank position on a RawBallot can
// hold, before normalization resolves names against the candidate
// registry. Only RawSlotCandidate, RawSlotOvervote, RawSlotBlank, and
// RawSlotUndeclaredWriteIn implement it.
type RawSlot interface {
	rawSlot()
}

// RawSlotCandidate names exactly one candidate at this rank.
type RawSlotCandidate struct {
	Name string
}

func (RawSlotCandidate) rawSlot() {}

// RawSlotOvervote names two or more candidates marked at the same rank.
type RawSlotOvervote struct {
	Names []string
}

func (RawSlotOvervote) rawSlot() {}

// RawSlotBlank is an explicit undervote/skipped rank.
type RawSlotBlank struct{}

func (RawSlotBlank) rawSlot() {}

// RawSlotUndeclaredWriteIn is a write-in marker the decoder already
// recognized as a write-in (as opposed to a name that merely fails to
// match the registry and gets rewritten during normalization).
type RawSlotUndeclaredWriteIn struct {
	Name string
}

func (RawSlotUndeclaredWriteIn) rawSlot() {}

// RawBallot is one voter's ranking exactly as decoded, before any
// candidate-registry lookups or policy resolution.
type RawBallot struct {
	// ID is the decoder-supplied ballot identifier, if any. Normalization
	// assigns a generated one when empty.
	ID string

	// Multiplicity is how many physical ballots this record represents.
	// Defaults to 1; vendor formats that pre-aggregate identical ballots
	// use this to avoid re-expanding them.
	Multiplicity uint64

	Slots []RawSlot
}

// NormalizedBallot is a RawBallot after registry lookup and ballot-level
// policy resolution (unrecognized-name rewriting, duplicate-candidate
// handling, truncation to max rank). Length is at most
// VoteRules.MaxRankingsAllowed. Skipped-rank policy is deliberately not
// applied here — it depends on how many blanks are traversed during
// transfer, which only the round engine knows.
type NormalizedBallot struct {
	ID           string
	Multiplicity uint64
	Choices      []Choice

	// TruncatedByDuplicate marks a ballot whose Choices were cut short by
	// the exhaust_ballot duplicate-candidate policy rather than by running
	// out of marked ranks naturally. The round engine consults this to
	// attribute the eventual cursor-past-end exhaustion to the right cause.
	TruncatedByDuplicate bool
}

// AggregatedBallot groups every NormalizedBallot with an identical choice
// sequence into one count. Signature is the canonical-hash key the
// Aggregator grouped on; it also gives the round engine a stable sort key
// for deterministic iteration order.
type AggregatedBallot struct {
	Signature string
	Choices   []Choice
	Count     uint64

	// TruncatedByDuplicate carries NormalizedBallot.TruncatedByDuplicate
	// through aggregation; see its doc comment there.
	TruncatedByDuplicate bool

	// Cursor is the index of the current active choice. It starts at 0
	// and only ever advances, round over round; it is state owned by the
	// round engine, not part of the ballot's identity. While Cursor points
	// at a choice assigned to a still-continuing candidate it does not
	// move; it advances again only once that candidate stops being
	// continuing (elected or eliminated).
	Cursor int

	// Exhausted marks a ballot that has already been counted into some
	// round's exhaustion total. Once true the round engine skips it for
	// the rest of the tabulation — an exhausted ballot cannot un-exhaust.
	Exhausted bool
}
