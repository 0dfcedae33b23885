package ir

// Choice is the sealed tagged union a normalized ballot slot resolves to.
// Only ChoiceCandidate, ChoiceOvervote, ChoiceBlank, and
// ChoiceUndeclaredWriteIn implement it — callers are expected to switch
// exhaustively on the concrete type rather than add new variants.
type Choice interface {
	choice()
}

// ChoiceCandidate names a continuing, eliminated, excluded, or elected
// candidate at this rank. Which of those the id currently resolves to is
// looked up against round state, not carried on the choice itself.
type ChoiceCandidate struct {
	ID CandidateID
}

func (ChoiceCandidate) choice() {}

// ChoiceOvervote marks a rank where two or more candidate names were
// marked simultaneously.
type ChoiceOvervote struct{}

func (ChoiceOvervote) choice() {}

// ChoiceBlank marks an empty (undervoted/skipped) rank.
type ChoiceBlank struct{}

func (ChoiceBlank) choice() {}

// ChoiceUndeclaredWriteIn marks a write-in name that does not match any
// registered candidate.
type ChoiceUndeclaredWriteIn struct{}

func (ChoiceUndeclaredWriteIn) choice() {}
