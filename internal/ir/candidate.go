package ir

// CandidateID is the small-integer identity assigned to a candidate at
// registration time. Assignment order follows the order candidates appear
// in the rule configuration's candidateNames list.
type CandidateID int

// CandidateStatus is a candidate's current standing in the tabulation.
// Transitions are monotone: Continuing moves to Elected or Eliminated and
// never moves again; Excluded is set before round 1 and never changes.
type CandidateStatus string

const (
	StatusContinuing CandidateStatus = "continuing"
	StatusElected    CandidateStatus = "elected"
	StatusEliminated CandidateStatus = "eliminated"
	StatusExcluded   CandidateStatus = "excluded"
)

// Candidate is the closed, registered identity a ballot slot resolves
// against. The candidate list is closed once round 1 begins.
type Candidate struct {
	ID   CandidateID
	Name string
}

// CandidateState tracks one candidate's standing across the tabulation.
// ElectedRound and EliminatedRound are zero until the corresponding
// transition happens; at most one of them is ever non-zero for a given
// candidate.
type CandidateState struct {
	ID              CandidateID
	Name            string
	Status          CandidateStatus
	ElectedRound    int
	EliminatedRound int
}

// Continuing reports whether the candidate can still receive votes this
// round: neither elected, eliminated, nor excluded.
func (s CandidateState) Continuing() bool {
	return s.Status == StatusContinuing
}
