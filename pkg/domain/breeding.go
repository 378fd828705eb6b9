package domain

import "time"

// AttemptStage is the explicit state of a breeding attempt.
type AttemptStage string

// Breeding attempt stages.
const (
	StageInseminated       AttemptStage = "inseminated"
	StageConfirmedPregnant AttemptStage = "confirmed_pregnant"
	StageClosed            AttemptStage = "closed"
)

// CloseReason explains why an attempt left the open stages.
type CloseReason string

// Attempt close reasons.
const (
	CloseNegative     CloseReason = "negative_result"
	CloseInconclusive CloseReason = "inconclusive_result"
	CloseBirth        CloseReason = "birth"
	CloseSuperseded   CloseReason = "superseded"
)

// BreedingAttempt tracks one insemination through diagnosis and birth.
// At most one attempt per animal is in a non-closed stage.
type BreedingAttempt struct {
	Base
	AnimalID       string       `json:"animal_id"`
	InseminationID string       `json:"insemination_id"`
	Stage          AttemptStage `json:"stage"`
	DiagnosisID    string       `json:"diagnosis_id,omitempty"`
	BirthID        string       `json:"birth_id,omitempty"`
	CloseReason    CloseReason  `json:"close_reason,omitempty"`
	ClosedOn       *time.Time   `json:"closed_on,omitempty"`
}

// Open reports whether the attempt still awaits an outcome.
func (a BreedingAttempt) Open() bool { return a.Stage != StageClosed }

// BreedingStateKind tags the BreedingState variant.
type BreedingStateKind string

// Breeding state variants.
const (
	BreedingNone      BreedingStateKind = "none"
	BreedingOpen      BreedingStateKind = "open"
	BreedingConfirmed BreedingStateKind = "confirmed"
	BreedingClosed    BreedingStateKind = "closed"
)

// BreedingState is the current breeding position of a female. Only the
// identifiers relevant to Kind are populated.
type BreedingState struct {
	Kind           BreedingStateKind
	AttemptID      string
	InseminationID string
	DiagnosisID    string
	BirthID        string
	CloseReason    CloseReason
}

// StateOf projects an attempt onto the tagged state.
func StateOf(a BreedingAttempt) BreedingState {
	st := BreedingState{AttemptID: a.ID, InseminationID: a.InseminationID}
	switch a.Stage {
	case StageInseminated:
		st.Kind = BreedingOpen
	case StageConfirmedPregnant:
		st.Kind = BreedingConfirmed
		st.DiagnosisID = a.DiagnosisID
	default:
		st.Kind = BreedingClosed
		st.DiagnosisID = a.DiagnosisID
		st.BirthID = a.BirthID
		st.CloseReason = a.CloseReason
	}
	return st
}
