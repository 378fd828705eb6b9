package memory

import "herdcore/pkg/domain"

// CreateProperty stores a new Property within the transaction.
func (tx *transaction) CreateProperty(v domain.Property) (domain.Property, error) {
	return insert(tx, tx.state.properties, domain.EntityProperty, v, identity[domain.Property])
}

// UpdateProperty mutates a stored Property in place.
func (tx *transaction) UpdateProperty(id string, mutator func(*domain.Property) error) (domain.Property, error) {
	return update(tx, tx.state.properties, domain.EntityProperty, id, mutator, identity[domain.Property])
}

// CreateAnimal stores a new Animal within the transaction.
func (tx *transaction) CreateAnimal(v domain.Animal) (domain.Animal, error) {
	return insert(tx, tx.state.animals, domain.EntityAnimal, v, cloneAnimal)
}

// UpdateAnimal mutates a stored Animal in place.
func (tx *transaction) UpdateAnimal(id string, mutator func(*domain.Animal) error) (domain.Animal, error) {
	return update(tx, tx.state.animals, domain.EntityAnimal, id, mutator, cloneAnimal)
}

// CreateGroup stores a new Group within the transaction.
func (tx *transaction) CreateGroup(v domain.Group) (domain.Group, error) {
	return insert(tx, tx.state.groups, domain.EntityGroup, v, identity[domain.Group])
}

// UpdateGroup mutates a stored Group in place.
func (tx *transaction) UpdateGroup(id string, mutator func(*domain.Group) error) (domain.Group, error) {
	return update(tx, tx.state.groups, domain.EntityGroup, id, mutator, identity[domain.Group])
}

// CreateArea stores a new Area within the transaction.
func (tx *transaction) CreateArea(v domain.Area) (domain.Area, error) {
	return insert(tx, tx.state.areas, domain.EntityArea, v, identity[domain.Area])
}

// UpdateArea mutates a stored Area in place.
func (tx *transaction) UpdateArea(id string, mutator func(*domain.Area) error) (domain.Area, error) {
	return update(tx, tx.state.areas, domain.EntityArea, id, mutator, identity[domain.Area])
}

// CreateOccupancy stores a new OccupancyRecord within the transaction.
func (tx *transaction) CreateOccupancy(v domain.OccupancyRecord) (domain.OccupancyRecord, error) {
	return insert(tx, tx.state.occupancy, domain.EntityOccupancy, v, cloneOccupancy)
}

// UpdateOccupancy mutates a stored OccupancyRecord in place.
func (tx *transaction) UpdateOccupancy(id string, mutator func(*domain.OccupancyRecord) error) (domain.OccupancyRecord, error) {
	return update(tx, tx.state.occupancy, domain.EntityOccupancy, id, mutator, cloneOccupancy)
}

// CreateWeighing stores a new Weighing within the transaction.
func (tx *transaction) CreateWeighing(v domain.Weighing) (domain.Weighing, error) {
	return insert(tx, tx.state.weighings, domain.EntityWeighing, v, identity[domain.Weighing])
}

// CreateBreedingSeason stores a new BreedingSeason within the transaction.
func (tx *transaction) CreateBreedingSeason(v domain.BreedingSeason) (domain.BreedingSeason, error) {
	return insert(tx, tx.state.seasons, domain.EntityBreedingSeason, v, cloneSeason)
}

// UpdateBreedingSeason mutates a stored BreedingSeason in place.
func (tx *transaction) UpdateBreedingSeason(id string, mutator func(*domain.BreedingSeason) error) (domain.BreedingSeason, error) {
	return update(tx, tx.state.seasons, domain.EntityBreedingSeason, id, mutator, cloneSeason)
}

// CreateProtocol stores a new FixedTimeProtocol within the transaction.
func (tx *transaction) CreateProtocol(v domain.FixedTimeProtocol) (domain.FixedTimeProtocol, error) {
	return insert(tx, tx.state.protocols, domain.EntityProtocol, v, cloneProtocol)
}

// UpdateProtocol mutates a stored FixedTimeProtocol in place.
func (tx *transaction) UpdateProtocol(id string, mutator func(*domain.FixedTimeProtocol) error) (domain.FixedTimeProtocol, error) {
	return update(tx, tx.state.protocols, domain.EntityProtocol, id, mutator, cloneProtocol)
}

// CreateInsemination stores a new Insemination within the transaction.
func (tx *transaction) CreateInsemination(v domain.Insemination) (domain.Insemination, error) {
	return insert(tx, tx.state.inseminations, domain.EntityInsemination, v, cloneInsemination)
}

// CreateDiagnosis stores a new GestationDiagnosis within the transaction.
func (tx *transaction) CreateDiagnosis(v domain.GestationDiagnosis) (domain.GestationDiagnosis, error) {
	return insert(tx, tx.state.diagnoses, domain.EntityDiagnosis, v, identity[domain.GestationDiagnosis])
}

// CreateBirth stores a new BirthRecord within the transaction.
func (tx *transaction) CreateBirth(v domain.BirthRecord) (domain.BirthRecord, error) {
	return insert(tx, tx.state.births, domain.EntityBirth, v, cloneBirth)
}

// CreateBreedingAttempt stores a new BreedingAttempt within the transaction.
func (tx *transaction) CreateBreedingAttempt(v domain.BreedingAttempt) (domain.BreedingAttempt, error) {
	return insert(tx, tx.state.attempts, domain.EntityBreedingAttempt, v, cloneAttempt)
}

// UpdateBreedingAttempt mutates a stored BreedingAttempt in place.
func (tx *transaction) UpdateBreedingAttempt(id string, mutator func(*domain.BreedingAttempt) error) (domain.BreedingAttempt, error) {
	return update(tx, tx.state.attempts, domain.EntityBreedingAttempt, id, mutator, cloneAttempt)
}
