package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"herdcore/pkg/domain"
)

// InseminationDraft carries the input for RecordInsemination.
type InseminationDraft struct {
	AnimalID   string
	Date       time.Time
	Method     domain.InseminationMethod
	SireID     string
	SemenBatch string
	SeasonID   string
	ProtocolID string
	Notes      string
}

// OffspringDraft registers a calf together with its birth record. Species,
// property, birth date and mother come from the birth; the breed defaults to
// the mother's, the father to the sire and the group to the mother's group.
type OffspringDraft struct {
	Tag      string
	Name     string
	Sex      domain.Sex
	Category string
	BreedID  string
	FatherID string
	GroupID  string
}

// BirthDraft carries the input for RecordBirth. Offspring lists new animals;
// OffspringIDs references animals registered beforehand.
type BirthDraft struct {
	MotherID       string
	Date           time.Time
	Outcome        domain.BirthOutcome
	Difficulty     domain.BirthDifficulty
	OffspringCount int
	Offspring      []OffspringDraft
	OffspringIDs   []string
	BirthWeightKg  float64
	Notes          string
}

func attemptsOf(view TransactionView, animalID string) []domain.BreedingAttempt {
	var out []domain.BreedingAttempt
	for _, a := range view.ListBreedingAttempts() {
		if a.AnimalID == animalID {
			out = append(out, a)
		}
	}
	return out
}

func openAttemptOf(view TransactionView, animalID string) (domain.BreedingAttempt, bool) {
	for _, a := range attemptsOf(view, animalID) {
		if a.Open() {
			return a, true
		}
	}
	return domain.BreedingAttempt{}, false
}

func attemptForInsemination(view TransactionView, inseminationID string) (domain.BreedingAttempt, bool) {
	for _, a := range view.ListBreedingAttempts() {
		if a.InseminationID == inseminationID {
			return a, true
		}
	}
	return domain.BreedingAttempt{}, false
}

func validMethod(m domain.InseminationMethod) bool {
	switch m {
	case domain.MethodNatural, domain.MethodArtificial, domain.MethodFixedTimeArtificial:
		return true
	}
	return false
}

func optionalRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// RecordInsemination stores an insemination and opens a breeding attempt for
// the female. An attempt still awaiting diagnosis is closed as superseded;
// a confirmed pregnancy rejects the insemination.
func (s *Service) RecordInsemination(ctx context.Context, draft InseminationDraft) (domain.Insemination, Result, error) {
	var created domain.Insemination
	op := operation{name: "record_insemination", entity: domain.EntityInsemination, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		view := tx.Snapshot()
		today := s.today()
		female, ok := view.FindAnimal(draft.AnimalID)
		if !ok {
			return "", domain.NotFoundError{Entity: domain.EntityAnimal, ID: draft.AnimalID}
		}
		if female.Sex != domain.SexFemale {
			return "", domain.Invalid("animal_id", "animal %s is not female", female.ID)
		}
		if female.Status != domain.StatusActive {
			return "", domain.ConflictError{Entity: domain.EntityAnimal, ID: female.ID, Reason: fmt.Sprintf("animal is %s", female.Status)}
		}
		if !validMethod(draft.Method) {
			return "", domain.Invalid("method", "unknown insemination method %q", draft.Method)
		}
		day := domain.Day(draft.Date)
		if draft.Date.IsZero() {
			day = today
		}
		if day.After(today) {
			return "", domain.Invalid("date", "%s is in the future", day.Format(time.DateOnly))
		}
		if day.Before(female.BirthDate) {
			return "", domain.Invalid("date", "precedes birth date")
		}
		if draft.SireID != "" {
			sire, ok := view.FindAnimal(draft.SireID)
			if !ok {
				return "", domain.NotFoundError{Entity: domain.EntityAnimal, ID: draft.SireID}
			}
			if sire.Sex != domain.SexMale || sire.Species != female.Species {
				return "", domain.Invalid("sire_id", "sire must be a %s male", female.Species)
			}
		}
		if draft.SeasonID != "" {
			season, ok := view.FindBreedingSeason(draft.SeasonID)
			if !ok {
				return "", domain.NotFoundError{Entity: domain.EntityBreedingSeason, ID: draft.SeasonID}
			}
			if season.PropertyID != female.PropertyID {
				return "", domain.Invalid("season_id", "season belongs to a different property")
			}
			if !seasonCovers(season, day) {
				return "", domain.Invalid("date", "outside season %s", season.Name)
			}
		}
		if draft.ProtocolID != "" {
			if draft.Method != domain.MethodFixedTimeArtificial {
				return "", domain.Invalid("protocol_id", "protocols apply to %s only", domain.MethodFixedTimeArtificial)
			}
			if _, ok := view.FindProtocol(draft.ProtocolID); !ok {
				return "", domain.NotFoundError{Entity: domain.EntityProtocol, ID: draft.ProtocolID}
			}
		}

		if current, ok := openAttemptOf(view, female.ID); ok {
			if current.Stage == domain.StageConfirmedPregnant {
				return "", domain.ConflictError{Entity: domain.EntityAnimal, ID: female.ID, Reason: "animal is confirmed pregnant"}
			}
			prev, _ := view.FindInsemination(current.InseminationID)
			if day.Before(prev.Date) {
				return "", domain.Invalid("date", "precedes open insemination on %s", prev.Date.Format(time.DateOnly))
			}
			if _, err := tx.UpdateBreedingAttempt(current.ID, func(a *domain.BreedingAttempt) error {
				a.Stage = domain.StageClosed
				a.CloseReason = domain.CloseSuperseded
				a.ClosedOn = &day
				return nil
			}); err != nil {
				return "", err
			}
		}

		var err error
		created, err = tx.CreateInsemination(domain.Insemination{
			AnimalID:   female.ID,
			Date:       day,
			Method:     draft.Method,
			SireID:     optionalRef(draft.SireID),
			SemenBatch: draft.SemenBatch,
			SeasonID:   optionalRef(draft.SeasonID),
			ProtocolID: optionalRef(draft.ProtocolID),
			Notes:      draft.Notes,
		})
		if err != nil {
			return "", err
		}
		_, err = tx.CreateBreedingAttempt(domain.BreedingAttempt{
			AnimalID:       female.ID,
			InseminationID: created.ID,
			Stage:          domain.StageInseminated,
		})
		return created.ID, err
	})
	return created, res, err
}

// PredictedDiagnosisDate returns the insemination date plus the species'
// diagnosis offset.
func (s *Service) PredictedDiagnosisDate(ctx context.Context, inseminationID string) (time.Time, error) {
	var due time.Time
	err := s.read(ctx, "predicted_diagnosis_date", func(h *herd) error {
		ins, ok := h.view.FindInsemination(inseminationID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityInsemination, ID: inseminationID}
		}
		sp, err := h.speciesOfInsemination(ins)
		if err != nil {
			return err
		}
		due = domain.AddDays(ins.Date, sp.DiagnosisOffsetDays)
		return nil
	})
	return due, err
}

// RecordDiagnosis stores a gestation check and advances the attempt: a
// positive result confirms the pregnancy, anything else closes it.
func (s *Service) RecordDiagnosis(ctx context.Context, inseminationID string, date time.Time, result domain.DiagnosisResult, method string) (domain.GestationDiagnosis, Result, error) {
	var created domain.GestationDiagnosis
	op := operation{name: "record_diagnosis", entity: domain.EntityDiagnosis, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		view := tx.Snapshot()
		today := s.today()
		ins, ok := view.FindInsemination(inseminationID)
		if !ok {
			return "", domain.NotFoundError{Entity: domain.EntityInsemination, ID: inseminationID}
		}
		switch result {
		case domain.DiagnosisPositive, domain.DiagnosisNegative, domain.DiagnosisInconclusive:
		default:
			return "", domain.Invalid("result", "unknown diagnosis result %q", result)
		}
		day := domain.Day(date)
		if date.IsZero() {
			day = today
		}
		if day.After(today) {
			return "", domain.Invalid("date", "%s is in the future", day.Format(time.DateOnly))
		}
		if day.Before(ins.Date) {
			return "", domain.Invalid("date", "precedes insemination on %s", ins.Date.Format(time.DateOnly))
		}
		attempt, ok := attemptForInsemination(view, ins.ID)
		if !ok {
			return "", domain.NotFoundError{Entity: domain.EntityBreedingAttempt, ID: ins.ID}
		}
		if attempt.Stage != domain.StageInseminated {
			return "", domain.ConflictError{Entity: domain.EntityInsemination, ID: ins.ID, Reason: fmt.Sprintf("breeding attempt is %s", attempt.Stage)}
		}

		var err error
		created, err = tx.CreateDiagnosis(domain.GestationDiagnosis{
			InseminationID: ins.ID,
			Date:           day,
			Result:         result,
			Method:         method,
		})
		if err != nil {
			return "", err
		}
		_, err = tx.UpdateBreedingAttempt(attempt.ID, func(a *domain.BreedingAttempt) error {
			a.DiagnosisID = created.ID
			switch result {
			case domain.DiagnosisPositive:
				a.Stage = domain.StageConfirmedPregnant
			case domain.DiagnosisNegative:
				a.Stage, a.CloseReason, a.ClosedOn = domain.StageClosed, domain.CloseNegative, &day
			default:
				a.Stage, a.CloseReason, a.ClosedOn = domain.StageClosed, domain.CloseInconclusive, &day
			}
			return nil
		})
		return created.ID, err
	})
	return created, res, err
}

// PredictedBirthDate returns the insemination date plus the species'
// gestation length. It reports false for non-positive diagnoses.
func (s *Service) PredictedBirthDate(ctx context.Context, diagnosisID string) (time.Time, bool, error) {
	var (
		due time.Time
		ok  bool
	)
	err := s.read(ctx, "predicted_birth_date", func(h *herd) error {
		d, found := h.view.FindDiagnosis(diagnosisID)
		if !found {
			return domain.NotFoundError{Entity: domain.EntityDiagnosis, ID: diagnosisID}
		}
		if d.Result != domain.DiagnosisPositive {
			return nil
		}
		ins, found := h.view.FindInsemination(d.InseminationID)
		if !found {
			return domain.NotFoundError{Entity: domain.EntityInsemination, ID: d.InseminationID}
		}
		sp, err := h.speciesOfInsemination(ins)
		if err != nil {
			return err
		}
		due, ok = predictedBirth(ins, sp), true
		return nil
	})
	return due, ok, err
}

func predictedBirth(ins domain.Insemination, sp domain.Species) time.Time {
	return domain.AddDays(ins.Date, sp.GestationDays)
}

// RecordBirth stores a parturition for the mother, registers or links the
// offspring and closes her open breeding attempt.
func (s *Service) RecordBirth(ctx context.Context, draft BirthDraft) (domain.BirthRecord, Result, error) {
	var (
		created   domain.BirthRecord
		confirmed bool
	)
	op := operation{name: "record_birth", entity: domain.EntityBirth, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		view := tx.Snapshot()
		today := s.today()
		mother, ok := view.FindAnimal(draft.MotherID)
		if !ok {
			return "", domain.NotFoundError{Entity: domain.EntityAnimal, ID: draft.MotherID}
		}
		if mother.Sex != domain.SexFemale {
			return "", domain.Invalid("mother_id", "animal %s is not female", mother.ID)
		}
		switch draft.Outcome {
		case domain.BirthLive, domain.BirthAbortion, domain.BirthStillborn:
		default:
			return "", domain.Invalid("outcome", "unknown birth outcome %q", draft.Outcome)
		}
		switch draft.Difficulty {
		case "":
			draft.Difficulty = domain.DifficultyNormal
		case domain.DifficultyNormal, domain.DifficultyAssisted, domain.DifficultyCesarean:
		default:
			return "", domain.Invalid("difficulty", "unknown birth difficulty %q", draft.Difficulty)
		}
		day := domain.Day(draft.Date)
		if draft.Date.IsZero() {
			day = today
		}
		if day.After(today) {
			return "", domain.Invalid("date", "%s is in the future", day.Format(time.DateOnly))
		}
		if day.Before(mother.BirthDate) {
			return "", domain.Invalid("date", "precedes the mother's birth date")
		}
		offspringTotal := len(draft.Offspring) + len(draft.OffspringIDs)
		if draft.Outcome != domain.BirthLive && offspringTotal > 0 {
			return "", domain.Invalid("offspring", "%s cannot register offspring", draft.Outcome)
		}
		if draft.OffspringCount == 0 {
			draft.OffspringCount = offspringTotal
		}
		if draft.OffspringCount < offspringTotal {
			return "", domain.Invalid("offspring_count", "%d is less than the %d offspring given", draft.OffspringCount, offspringTotal)
		}
		if draft.BirthWeightKg < 0 {
			return "", domain.Invalid("birth_weight_kg", "must not be negative")
		}

		attempt, hasAttempt := openAttemptOf(view, mother.ID)
		var sireID string
		if hasAttempt {
			ins, _ := view.FindInsemination(attempt.InseminationID)
			if day.Before(ins.Date) {
				return "", domain.Invalid("date", "precedes insemination on %s", ins.Date.Format(time.DateOnly))
			}
			if ins.SireID != nil {
				sireID = *ins.SireID
			}
			confirmed = attempt.Stage == domain.StageConfirmedPregnant
		}

		offspringIDs, err := s.linkOffspring(ctx, tx, mother, day, sireID, draft)
		if err != nil {
			return "", err
		}
		created, err = tx.CreateBirth(domain.BirthRecord{
			MotherID:       mother.ID,
			Date:           day,
			Outcome:        draft.Outcome,
			Difficulty:     draft.Difficulty,
			OffspringCount: draft.OffspringCount,
			OffspringIDs:   offspringIDs,
			BirthWeightKg:  draft.BirthWeightKg,
			Notes:          draft.Notes,
		})
		if err != nil {
			return "", err
		}
		if hasAttempt {
			if _, err := tx.UpdateBreedingAttempt(attempt.ID, func(a *domain.BreedingAttempt) error {
				a.Stage = domain.StageClosed
				a.CloseReason = domain.CloseBirth
				a.BirthID = created.ID
				a.ClosedOn = &day
				return nil
			}); err != nil {
				return "", err
			}
		}
		return created.ID, nil
	})
	if err == nil && !confirmed {
		s.logger.Warn("birth recorded without confirmed pregnancy", "mother_id", draft.MotherID, "birth_id", created.ID)
	}
	return created, res, err
}

func (s *Service) linkOffspring(ctx context.Context, tx Transaction, mother domain.Animal, day time.Time, sireID string, draft BirthDraft) ([]string, error) {
	view := tx.Snapshot()
	claimed := make(map[string]string)
	for _, b := range view.ListBirths() {
		for _, id := range b.OffspringIDs {
			claimed[id] = b.ID
		}
	}
	ids := make([]string, 0, len(draft.Offspring)+len(draft.OffspringIDs))
	for _, id := range draft.OffspringIDs {
		calf, ok := view.FindAnimal(id)
		if !ok {
			return nil, domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
		}
		if birthID, taken := claimed[id]; taken {
			return nil, domain.ConflictError{Entity: domain.EntityAnimal, ID: id, Reason: "already offspring of birth " + birthID}
		}
		if !calf.BirthDate.Equal(day) {
			return nil, domain.Invalid("offspring_ids", "animal %s was born on %s, not %s", id, calf.BirthDate.Format(time.DateOnly), day.Format(time.DateOnly))
		}
		if calf.Species != mother.Species {
			return nil, domain.Invalid("offspring_ids", "animal %s is %s, mother is %s", id, calf.Species, mother.Species)
		}
		if calf.MotherID != nil && *calf.MotherID != mother.ID {
			return nil, domain.Invalid("offspring_ids", "animal %s has a different mother", id)
		}
		claimed[id] = "pending"
		ids = append(ids, id)
	}

	motherGroup, _ := findOpenRecord(view, domain.RelationAnimalGroup, mother.ID)
	for i, o := range draft.Offspring {
		calf := AnimalDraft{
			PropertyID: mother.PropertyID,
			Tag:        o.Tag,
			Name:       o.Name,
			Species:    mother.Species,
			BreedID:    o.BreedID,
			Sex:        o.Sex,
			BirthDate:  day,
			Category:   o.Category,
			FatherID:   o.FatherID,
			MotherID:   mother.ID,
			GroupID:    o.GroupID,
		}
		if calf.BreedID == "" {
			calf.BreedID = mother.BreedID
		}
		if calf.FatherID == "" {
			calf.FatherID = sireID
		}
		if calf.GroupID == "" {
			calf.GroupID = motherGroup.ContainerID
		}
		animal, err := s.registerAnimalTx(ctx, tx, calf)
		if err != nil {
			return nil, fmt.Errorf("offspring %d: %w", i+1, err)
		}
		ids = append(ids, animal.ID)
	}
	return ids, nil
}

// BreedingState returns the female's current breeding position: her open
// attempt if any, else her most recent one.
func (s *Service) BreedingState(ctx context.Context, animalID string) (domain.BreedingState, error) {
	var st domain.BreedingState
	err := s.read(ctx, "breeding_state", func(h *herd) error {
		if _, err := h.animal(animalID); err != nil {
			return err
		}
		st = breedingStateOf(h, animalID)
		return nil
	})
	return st, err
}

func breedingStateOf(h *herd, animalID string) domain.BreedingState {
	if a, ok := h.openAttempt(animalID); ok {
		return domain.StateOf(a)
	}
	if a, ok := h.latestAttempt(animalID); ok {
		return domain.StateOf(a)
	}
	return domain.BreedingState{Kind: domain.BreedingNone}
}

// IsPregnant reports whether the female has a confirmed, unresolved attempt.
func (s *Service) IsPregnant(ctx context.Context, animalID string) (bool, error) {
	st, err := s.BreedingState(ctx, animalID)
	return st.Kind == domain.BreedingConfirmed, err
}

// PendingDiagnosis is an insemination due for a gestation check.
type PendingDiagnosis struct {
	AnimalID       string
	Tag            string
	InseminationID string
	InseminatedOn  time.Time
	DueOn          time.Time
}

// PendingDiagnoses lists the property's undiagnosed inseminations whose
// predicted diagnosis date is on or before asOf, oldest first.
func (s *Service) PendingDiagnoses(ctx context.Context, propertyID string, asOf time.Time) ([]PendingDiagnosis, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	asOf = domain.Day(asOf)
	var out []PendingDiagnosis
	err := s.read(ctx, "pending_diagnoses", func(h *herd) error {
		if _, err := h.property(propertyID); err != nil {
			return err
		}
		for _, att := range h.view.ListBreedingAttempts() {
			if att.Stage != domain.StageInseminated {
				continue
			}
			a, err := h.animal(att.AnimalID)
			if err != nil {
				return err
			}
			if a.PropertyID != propertyID || a.Status != domain.StatusActive {
				continue
			}
			ins, ok := h.view.FindInsemination(att.InseminationID)
			if !ok {
				continue
			}
			sp, err := h.catalog.Lookup(a.Species)
			if err != nil {
				return err
			}
			due := domain.AddDays(ins.Date, sp.DiagnosisOffsetDays)
			if due.After(asOf) {
				continue
			}
			out = append(out, PendingDiagnosis{AnimalID: a.ID, Tag: a.Tag, InseminationID: ins.ID, InseminatedOn: ins.Date, DueOn: due})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].DueOn.Before(out[j].DueOn) })
		return nil
	})
	return out, err
}

// PendingBirth is a confirmed pregnancy expected to end soon.
type PendingBirth struct {
	AnimalID    string
	Tag         string
	DiagnosisID string
	DueOn       time.Time
}

// DefaultBirthHorizonDays bounds PendingBirths when no horizon is given.
const DefaultBirthHorizonDays = 30

// PendingBirths lists confirmed pregnancies whose predicted birth falls in
// [asOf, asOf+horizonDays].
func (s *Service) PendingBirths(ctx context.Context, propertyID string, asOf time.Time, horizonDays int) ([]PendingBirth, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	if horizonDays <= 0 {
		horizonDays = DefaultBirthHorizonDays
	}
	start := domain.Day(asOf)
	end := domain.AddDays(start, horizonDays)
	var out []PendingBirth
	err := s.read(ctx, "pending_births", func(h *herd) error {
		if _, err := h.property(propertyID); err != nil {
			return err
		}
		for _, att := range h.view.ListBreedingAttempts() {
			if att.Stage != domain.StageConfirmedPregnant {
				continue
			}
			a, err := h.animal(att.AnimalID)
			if err != nil {
				return err
			}
			if a.PropertyID != propertyID || a.Status != domain.StatusActive {
				continue
			}
			ins, ok := h.view.FindInsemination(att.InseminationID)
			if !ok {
				continue
			}
			sp, err := h.catalog.Lookup(a.Species)
			if err != nil {
				return err
			}
			due := predictedBirth(ins, sp)
			if due.Before(start) || due.After(end) {
				continue
			}
			out = append(out, PendingBirth{AnimalID: a.ID, Tag: a.Tag, DiagnosisID: att.DiagnosisID, DueOn: due})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].DueOn.Before(out[j].DueOn) })
		return nil
	})
	return out, err
}

// PregnancyRate delegates to the aggregator.
func (s *Service) PregnancyRate(ctx context.Context, seasonID string) (float64, error) {
	return s.agg.PregnancyRate(ctx, seasonID)
}
