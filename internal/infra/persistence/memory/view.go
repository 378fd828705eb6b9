package memory

import "herdcore/pkg/domain"

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) domain.TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListProperties() []domain.Property {
	return list(v.state.properties, identity[domain.Property])
}

func (v transactionView) FindProperty(id string) (domain.Property, bool) {
	return find(v.state.properties, id, identity[domain.Property])
}

func (v transactionView) ListAnimals() []domain.Animal {
	return list(v.state.animals, cloneAnimal)
}

func (v transactionView) FindAnimal(id string) (domain.Animal, bool) {
	return find(v.state.animals, id, cloneAnimal)
}

func (v transactionView) ListGroups() []domain.Group {
	return list(v.state.groups, identity[domain.Group])
}

func (v transactionView) FindGroup(id string) (domain.Group, bool) {
	return find(v.state.groups, id, identity[domain.Group])
}

func (v transactionView) ListAreas() []domain.Area {
	return list(v.state.areas, identity[domain.Area])
}

func (v transactionView) FindArea(id string) (domain.Area, bool) {
	return find(v.state.areas, id, identity[domain.Area])
}

func (v transactionView) ListOccupancy() []domain.OccupancyRecord {
	return list(v.state.occupancy, cloneOccupancy)
}

func (v transactionView) FindOccupancy(id string) (domain.OccupancyRecord, bool) {
	return find(v.state.occupancy, id, cloneOccupancy)
}

func (v transactionView) ListWeighings() []domain.Weighing {
	return list(v.state.weighings, identity[domain.Weighing])
}

func (v transactionView) FindWeighing(id string) (domain.Weighing, bool) {
	return find(v.state.weighings, id, identity[domain.Weighing])
}

func (v transactionView) ListBreedingSeasons() []domain.BreedingSeason {
	return list(v.state.seasons, cloneSeason)
}

func (v transactionView) FindBreedingSeason(id string) (domain.BreedingSeason, bool) {
	return find(v.state.seasons, id, cloneSeason)
}

func (v transactionView) ListProtocols() []domain.FixedTimeProtocol {
	return list(v.state.protocols, cloneProtocol)
}

func (v transactionView) FindProtocol(id string) (domain.FixedTimeProtocol, bool) {
	return find(v.state.protocols, id, cloneProtocol)
}

func (v transactionView) ListInseminations() []domain.Insemination {
	return list(v.state.inseminations, cloneInsemination)
}

func (v transactionView) FindInsemination(id string) (domain.Insemination, bool) {
	return find(v.state.inseminations, id, cloneInsemination)
}

func (v transactionView) ListDiagnoses() []domain.GestationDiagnosis {
	return list(v.state.diagnoses, identity[domain.GestationDiagnosis])
}

func (v transactionView) FindDiagnosis(id string) (domain.GestationDiagnosis, bool) {
	return find(v.state.diagnoses, id, identity[domain.GestationDiagnosis])
}

func (v transactionView) ListBirths() []domain.BirthRecord {
	return list(v.state.births, cloneBirth)
}

func (v transactionView) FindBirth(id string) (domain.BirthRecord, bool) {
	return find(v.state.births, id, cloneBirth)
}

func (v transactionView) ListBreedingAttempts() []domain.BreedingAttempt {
	return list(v.state.attempts, cloneAttempt)
}

func (v transactionView) FindBreedingAttempt(id string) (domain.BreedingAttempt, bool) {
	return find(v.state.attempts, id, cloneAttempt)
}
