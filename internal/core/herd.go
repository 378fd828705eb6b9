package core

import (
	"sort"
	"time"

	"herdcore/pkg/domain"
)

// herd indexes one view of the store for the read-side computations shared
// by the service and the aggregator. It is built per read and never cached
// across calls.
type herd struct {
	view    TransactionView
	catalog *domain.SpeciesCatalog

	weighings map[string][]domain.Weighing
	open      map[domain.RelationKind]map[string]domain.OccupancyRecord
	hosted    map[domain.RelationKind]map[string][]domain.OccupancyRecord
	attempts  map[string][]domain.BreedingAttempt
}

func newHerd(view TransactionView, catalog *domain.SpeciesCatalog) *herd {
	h := &herd{
		view:      view,
		catalog:   catalog,
		weighings: make(map[string][]domain.Weighing),
		open:      make(map[domain.RelationKind]map[string]domain.OccupancyRecord),
		hosted:    make(map[domain.RelationKind]map[string][]domain.OccupancyRecord),
		attempts:  make(map[string][]domain.BreedingAttempt),
	}
	for _, w := range view.ListWeighings() {
		h.weighings[w.AnimalID] = append(h.weighings[w.AnimalID], w)
	}
	for id := range h.weighings {
		sortWeighings(h.weighings[id])
	}
	for _, rel := range domain.Relations {
		h.open[rel.Kind] = make(map[string]domain.OccupancyRecord)
		h.hosted[rel.Kind] = make(map[string][]domain.OccupancyRecord)
	}
	for _, rec := range view.ListOccupancy() {
		if !rec.Open() {
			continue
		}
		h.open[rec.Relation][rec.SubjectID] = rec
		h.hosted[rec.Relation][rec.ContainerID] = append(h.hosted[rec.Relation][rec.ContainerID], rec)
	}
	for _, a := range view.ListBreedingAttempts() {
		h.attempts[a.AnimalID] = append(h.attempts[a.AnimalID], a)
	}
	return h
}

// sortWeighings orders by date, then insertion time.
func sortWeighings(ws []domain.Weighing) {
	sort.SliceStable(ws, func(i, j int) bool {
		if !ws[i].Date.Equal(ws[j].Date) {
			return ws[i].Date.Before(ws[j].Date)
		}
		return ws[i].CreatedAt.Before(ws[j].CreatedAt)
	})
}

func (h *herd) animal(id string) (domain.Animal, error) {
	a, ok := h.view.FindAnimal(id)
	if !ok {
		return domain.Animal{}, domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	return a, nil
}

func (h *herd) group(id string) (domain.Group, error) {
	g, ok := h.view.FindGroup(id)
	if !ok {
		return domain.Group{}, domain.NotFoundError{Entity: domain.EntityGroup, ID: id}
	}
	return g, nil
}

func (h *herd) area(id string) (domain.Area, error) {
	a, ok := h.view.FindArea(id)
	if !ok {
		return domain.Area{}, domain.NotFoundError{Entity: domain.EntityArea, ID: id}
	}
	return a, nil
}

func (h *herd) property(id string) (domain.Property, error) {
	p, ok := h.view.FindProperty(id)
	if !ok {
		return domain.Property{}, domain.NotFoundError{Entity: domain.EntityProperty, ID: id}
	}
	return p, nil
}

func (h *herd) season(id string) (domain.BreedingSeason, error) {
	s, ok := h.view.FindBreedingSeason(id)
	if !ok {
		return domain.BreedingSeason{}, domain.NotFoundError{Entity: domain.EntityBreedingSeason, ID: id}
	}
	return s, nil
}

func (h *herd) openRecord(rel domain.OccupancyRelation, subjectID string) (domain.OccupancyRecord, bool) {
	rec, ok := h.open[rel.Kind][subjectID]
	return rec, ok
}

// occupants returns the open records hosted by a container.
func (h *herd) occupants(rel domain.OccupancyRelation, containerID string) []domain.OccupancyRecord {
	return h.hosted[rel.Kind][containerID]
}

// members returns the active animals currently in a group.
func (h *herd) members(groupID string) []domain.Animal {
	var out []domain.Animal
	for _, rec := range h.occupants(domain.RelationAnimalGroup, groupID) {
		a, ok := h.view.FindAnimal(rec.SubjectID)
		if ok && a.Status == domain.StatusActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

func (h *herd) currentWeight(animalID string) (float64, bool) {
	ws := h.weighings[animalID]
	if len(ws) == 0 {
		return 0, false
	}
	return ws[len(ws)-1].WeightKg, true
}

func (h *herd) animalUnit(a domain.Animal) (float64, error) {
	sp, err := h.catalog.Lookup(a.Species)
	if err != nil {
		return 0, err
	}
	weight, ok := h.currentWeight(a.ID)
	return animalUnitValue(sp, weight, ok), nil
}

func (h *herd) averageDailyGain(animalID string, windowDays int, asOf time.Time) (float64, bool) {
	return averageDailyGain(h.weighings[animalID], windowDays, asOf)
}

// groupAnimalUnits sums animal units over the active members of a group.
func (h *herd) groupAnimalUnits(groupID string) (float64, error) {
	var total float64
	for _, a := range h.members(groupID) {
		au, err := h.animalUnit(a)
		if err != nil {
			return 0, err
		}
		total += au
	}
	return total, nil
}

// latestAttempt returns the attempt with the most recent insemination.
func (h *herd) latestAttempt(animalID string) (domain.BreedingAttempt, bool) {
	var (
		best     domain.BreedingAttempt
		bestDate time.Time
		found    bool
	)
	for _, a := range h.attempts[animalID] {
		ins, ok := h.view.FindInsemination(a.InseminationID)
		if !ok {
			continue
		}
		if !found || ins.Date.After(bestDate) || (ins.Date.Equal(bestDate) && a.CreatedAt.After(best.CreatedAt)) {
			best, bestDate, found = a, ins.Date, true
		}
	}
	return best, found
}

// openAttempt returns the animal's non-closed attempt, if any.
func (h *herd) openAttempt(animalID string) (domain.BreedingAttempt, bool) {
	for _, a := range h.attempts[animalID] {
		if a.Open() {
			return a, true
		}
	}
	return domain.BreedingAttempt{}, false
}

func (h *herd) attemptFor(inseminationID string) (domain.BreedingAttempt, bool) {
	for _, list := range h.attempts {
		for _, a := range list {
			if a.InseminationID == inseminationID {
				return a, true
			}
		}
	}
	return domain.BreedingAttempt{}, false
}

func (h *herd) speciesOfInsemination(ins domain.Insemination) (domain.Species, error) {
	a, err := h.animal(ins.AnimalID)
	if err != nil {
		return domain.Species{}, err
	}
	return h.catalog.Lookup(a.Species)
}
