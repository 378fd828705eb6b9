package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"herdcore/pkg/domain"
)

// AnimalDraft carries the input for registering an animal. When GroupID is
// set the animal is placed in that group on GroupEntry (default: birth date
// or today, whichever is later).
type AnimalDraft struct {
	PropertyID  string
	Tag         string
	Name        string
	Species     domain.SpeciesKind
	BreedID     string
	Sex         domain.Sex
	BirthDate   time.Time
	Category    string
	FatherID    string
	MotherID    string
	Acquisition *domain.Acquisition
	GroupID     string
	GroupEntry  time.Time
	Notes       string
}

// StatusDetails completes a status change with disposal or death data.
type StatusDetails struct {
	Destination string
	Cause       string
	Value       float64
}

// RegisterAnimal validates and stores a new active animal.
func (s *Service) RegisterAnimal(ctx context.Context, draft AnimalDraft) (domain.Animal, Result, error) {
	var animal domain.Animal
	op := operation{name: "register_animal", entity: domain.EntityAnimal, action: domain.ActionCreate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		var err error
		animal, err = s.registerAnimalTx(ctx, tx, draft)
		return animal.ID, err
	})
	return animal, res, err
}

func (s *Service) registerAnimalTx(ctx context.Context, tx Transaction, draft AnimalDraft) (domain.Animal, error) {
	view := tx.Snapshot()
	today := s.today()

	if _, ok := view.FindProperty(draft.PropertyID); !ok {
		return domain.Animal{}, domain.NotFoundError{Entity: domain.EntityProperty, ID: draft.PropertyID}
	}
	tag := strings.TrimSpace(draft.Tag)
	if tag == "" {
		return domain.Animal{}, domain.Invalid("tag", "is required")
	}
	for _, other := range view.ListAnimals() {
		if other.PropertyID == draft.PropertyID && other.Tag == tag {
			return domain.Animal{}, domain.ConflictError{Entity: domain.EntityAnimal, ID: other.ID, Reason: fmt.Sprintf("tag %q already used on property", tag)}
		}
	}
	sp, err := s.catalog.Lookup(draft.Species)
	if err != nil {
		return domain.Animal{}, err
	}
	if draft.BreedID != "" {
		breed, ok := s.catalog.Breed(draft.BreedID)
		if !ok {
			return domain.Animal{}, domain.Invalid("breed_id", "unknown breed %q", draft.BreedID)
		}
		if breed.Species != sp.Kind {
			return domain.Animal{}, domain.Invalid("breed_id", "breed %q belongs to %s, not %s", breed.ID, breed.Species, sp.Kind)
		}
	}
	if !draft.Sex.Valid() {
		return domain.Animal{}, domain.Invalid("sex", "unknown sex %q", draft.Sex)
	}
	if draft.BirthDate.IsZero() {
		return domain.Animal{}, domain.Invalid("birth_date", "is required")
	}
	birth := domain.Day(draft.BirthDate)
	if birth.After(today) {
		return domain.Animal{}, domain.Invalid("birth_date", "%s is in the future", birth.Format(time.DateOnly))
	}
	if !sp.HasCategory(draft.Category) {
		return domain.Animal{}, domain.Invalid("category", "%q is not a %s category", draft.Category, sp.Kind)
	}
	father, err := parentRef(view, "father_id", draft.FatherID, domain.SexMale, sp.Kind)
	if err != nil {
		return domain.Animal{}, err
	}
	mother, err := parentRef(view, "mother_id", draft.MotherID, domain.SexFemale, sp.Kind)
	if err != nil {
		return domain.Animal{}, err
	}
	if draft.Acquisition != nil && draft.Acquisition.Date.After(today) {
		return domain.Animal{}, domain.Invalid("acquisition.date", "is in the future")
	}

	animal, err := tx.CreateAnimal(domain.Animal{
		PropertyID:  draft.PropertyID,
		Tag:         tag,
		Name:        draft.Name,
		Species:     sp.Kind,
		BreedID:     draft.BreedID,
		Sex:         draft.Sex,
		BirthDate:   birth,
		Category:    draft.Category,
		Status:      domain.StatusActive,
		FatherID:    father,
		MotherID:    mother,
		Acquisition: draft.Acquisition,
		Notes:       draft.Notes,
	})
	if err != nil {
		return domain.Animal{}, err
	}
	if draft.GroupID != "" {
		entry := draft.GroupEntry
		if entry.IsZero() {
			entry = birth
			if draft.Acquisition != nil && draft.Acquisition.Date.After(entry) {
				entry = domain.Day(draft.Acquisition.Date)
			}
		}
		if _, err := openOccupancy(tx, domain.RelationAnimalGroup, OccupancyMove{
			SubjectID:   animal.ID,
			ContainerID: draft.GroupID,
			Date:        entry,
			Reason:      "registration",
		}, ActorFrom(ctx), today); err != nil {
			return domain.Animal{}, err
		}
	}
	return animal, nil
}

func parentRef(view TransactionView, field, id string, sex domain.Sex, species domain.SpeciesKind) (*string, error) {
	if id == "" {
		return nil, nil
	}
	parent, ok := view.FindAnimal(id)
	if !ok {
		return nil, domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	if parent.Sex != sex {
		return nil, domain.Invalid(field, "parent %s is %s, expected %s", id, parent.Sex, sex)
	}
	if parent.Species != species {
		return nil, domain.Invalid(field, "parent %s is %s, expected %s", id, parent.Species, species)
	}
	ref := id
	return &ref, nil
}

// ChangeAnimalStatus moves an animal to status. Leaving active closes the
// animal's group membership on the effective date. Any status may follow any
// other; reactivation raises a warning.
func (s *Service) ChangeAnimalStatus(ctx context.Context, animalID string, status domain.AnimalStatus, effective time.Time, details StatusDetails) (domain.Animal, Result, error) {
	var animal domain.Animal
	op := operation{name: "change_animal_status", entity: domain.EntityAnimal, action: domain.ActionUpdate}
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		if !status.Valid() {
			return animalID, domain.Invalid("status", "unknown status %q", status)
		}
		today := s.today()
		day := domain.Day(effective)
		if effective.IsZero() {
			day = today
		}
		if day.After(today) {
			return animalID, domain.Invalid("effective_date", "%s is in the future", day.Format(time.DateOnly))
		}
		current, ok := tx.Snapshot().FindAnimal(animalID)
		if !ok {
			return animalID, domain.NotFoundError{Entity: domain.EntityAnimal, ID: animalID}
		}
		if day.Before(current.BirthDate) {
			return animalID, domain.Invalid("effective_date", "precedes birth date")
		}
		if current.Status == domain.StatusActive && status != domain.StatusActive {
			if _, open := findOpenRecord(tx.Snapshot(), domain.RelationAnimalGroup, animalID); open {
				if _, err := closeOccupancy(tx, domain.RelationAnimalGroup, animalID, day, string(status), today); err != nil {
					return animalID, err
				}
			}
		}
		var err error
		animal, err = tx.UpdateAnimal(animalID, func(a *domain.Animal) error {
			a.Status = status
			switch status {
			case domain.StatusDead:
				a.Death = &domain.Death{Date: day, Cause: details.Cause}
				a.Disposal = nil
			case domain.StatusSold, domain.StatusDiscarded:
				a.Disposal = &domain.Disposal{Date: day, Destination: details.Destination, Value: details.Value}
				a.Death = nil
			case domain.StatusActive:
				a.Death = nil
				a.Disposal = nil
			}
			return nil
		})
		return animalID, err
	})
	return animal, res, err
}

// GetAnimal returns one animal.
func (s *Service) GetAnimal(ctx context.Context, animalID string) (domain.Animal, error) {
	var animal domain.Animal
	err := s.read(ctx, "get_animal", func(h *herd) error {
		var err error
		animal, err = h.animal(animalID)
		return err
	})
	return animal, err
}

// ListAnimals returns the animals of a property ordered by tag.
func (s *Service) ListAnimals(ctx context.Context, propertyID string) ([]domain.Animal, error) {
	var out []domain.Animal
	err := s.read(ctx, "list_animals", func(h *herd) error {
		if _, err := h.property(propertyID); err != nil {
			return err
		}
		for _, a := range h.view.ListAnimals() {
			if a.PropertyID == propertyID {
				out = append(out, a)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
		return nil
	})
	return out, err
}

// CurrentGroup returns the group currently holding the animal.
func (s *Service) CurrentGroup(ctx context.Context, animalID string) (string, bool, error) {
	return s.CurrentContainer(ctx, domain.RelationAnimalGroup, animalID)
}

// AnimalAge returns the age in days at asOf. A dead animal stops ageing on
// its death date.
func (s *Service) AnimalAge(ctx context.Context, animalID string, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	var days int
	err := s.read(ctx, "animal_age", func(h *herd) error {
		a, err := h.animal(animalID)
		if err != nil {
			return err
		}
		days = ageInDays(a, asOf)
		return nil
	})
	return days, err
}

// AnimalAgeMonths returns the age in whole 30-day months.
func (s *Service) AnimalAgeMonths(ctx context.Context, animalID string, asOf time.Time) (int, error) {
	days, err := s.AnimalAge(ctx, animalID, asOf)
	return days / 30, err
}

func ageInDays(a domain.Animal, asOf time.Time) int {
	end := asOf
	if a.Status == domain.StatusDead && a.Death != nil {
		end = a.Death.Date
	}
	return max(domain.DaysBetween(a.BirthDate, end), 0)
}

// CurrentWeight returns the latest observation by date.
func (s *Service) CurrentWeight(ctx context.Context, animalID string) (float64, bool, error) {
	var (
		kg    float64
		found bool
	)
	err := s.read(ctx, "current_weight", func(h *herd) error {
		if _, err := h.animal(animalID); err != nil {
			return err
		}
		kg, found = h.currentWeight(animalID)
		return nil
	})
	return kg, found, err
}

// AnimalUnitValue converts the animal's current weight into animal units.
func (s *Service) AnimalUnitValue(ctx context.Context, animalID string) (float64, error) {
	var au float64
	err := s.read(ctx, "animal_unit_value", func(h *herd) error {
		a, err := h.animal(animalID)
		if err != nil {
			return err
		}
		au, err = h.animalUnit(a)
		return err
	})
	return au, err
}

// HistoryEvent is one entry in an animal's timeline.
type HistoryEvent struct {
	Date     time.Time
	Kind     domain.EntityType
	RecordID string
	Summary  string
}

// AnimalHistory merges the animal's weighings, memberships and breeding
// events into one timeline, newest first.
func (s *Service) AnimalHistory(ctx context.Context, animalID string) ([]HistoryEvent, error) {
	var events []HistoryEvent
	err := s.read(ctx, "animal_history", func(h *herd) error {
		a, err := h.animal(animalID)
		if err != nil {
			return err
		}
		events = append(events, HistoryEvent{Date: a.BirthDate, Kind: domain.EntityAnimal, RecordID: a.ID, Summary: "born"})
		for _, w := range h.weighings[animalID] {
			events = append(events, HistoryEvent{Date: w.Date, Kind: domain.EntityWeighing, RecordID: w.ID, Summary: fmt.Sprintf("weighed %.1f kg", w.WeightKg)})
		}
		for _, rec := range h.view.ListOccupancy() {
			if rec.Relation != domain.RelationKindAnimalGroup || rec.SubjectID != animalID {
				continue
			}
			events = append(events, HistoryEvent{Date: rec.EntryDate, Kind: domain.EntityOccupancy, RecordID: rec.ID, Summary: "entered group " + rec.ContainerID})
			if rec.ExitDate != nil {
				events = append(events, HistoryEvent{Date: *rec.ExitDate, Kind: domain.EntityOccupancy, RecordID: rec.ID, Summary: "left group " + rec.ContainerID})
			}
		}
		for _, ins := range h.view.ListInseminations() {
			if ins.AnimalID == animalID {
				events = append(events, HistoryEvent{Date: ins.Date, Kind: domain.EntityInsemination, RecordID: ins.ID, Summary: "inseminated (" + string(ins.Method) + ")"})
			}
		}
		for _, att := range h.attempts[animalID] {
			if att.DiagnosisID == "" {
				continue
			}
			if d, ok := h.view.FindDiagnosis(att.DiagnosisID); ok {
				events = append(events, HistoryEvent{Date: d.Date, Kind: domain.EntityDiagnosis, RecordID: d.ID, Summary: "diagnosis " + string(d.Result)})
			}
		}
		for _, b := range h.view.ListBirths() {
			if b.MotherID == animalID {
				events = append(events, HistoryEvent{Date: b.Date, Kind: domain.EntityBirth, RecordID: b.ID, Summary: fmt.Sprintf("%s, %d offspring", b.Outcome, b.OffspringCount)})
			}
		}
		switch {
		case a.Death != nil:
			events = append(events, HistoryEvent{Date: a.Death.Date, Kind: domain.EntityAnimal, RecordID: a.ID, Summary: "died"})
		case a.Disposal != nil:
			events = append(events, HistoryEvent{Date: a.Disposal.Date, Kind: domain.EntityAnimal, RecordID: a.ID, Summary: string(a.Status)})
		}
		sort.SliceStable(events, func(i, j int) bool { return events[i].Date.After(events[j].Date) })
		return nil
	})
	return events, err
}
