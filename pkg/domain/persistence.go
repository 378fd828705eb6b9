package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Records are never deleted; history is
// closed by updating exit dates and statuses.
type Transaction interface {
	Snapshot() TransactionView
	CreateProperty(Property) (Property, error)
	UpdateProperty(id string, mutator func(*Property) error) (Property, error)
	CreateAnimal(Animal) (Animal, error)
	UpdateAnimal(id string, mutator func(*Animal) error) (Animal, error)
	CreateGroup(Group) (Group, error)
	UpdateGroup(id string, mutator func(*Group) error) (Group, error)
	CreateArea(Area) (Area, error)
	UpdateArea(id string, mutator func(*Area) error) (Area, error)
	CreateOccupancy(OccupancyRecord) (OccupancyRecord, error)
	UpdateOccupancy(id string, mutator func(*OccupancyRecord) error) (OccupancyRecord, error)
	CreateWeighing(Weighing) (Weighing, error)
	CreateBreedingSeason(BreedingSeason) (BreedingSeason, error)
	UpdateBreedingSeason(id string, mutator func(*BreedingSeason) error) (BreedingSeason, error)
	CreateProtocol(FixedTimeProtocol) (FixedTimeProtocol, error)
	UpdateProtocol(id string, mutator func(*FixedTimeProtocol) error) (FixedTimeProtocol, error)
	CreateInsemination(Insemination) (Insemination, error)
	CreateDiagnosis(GestationDiagnosis) (GestationDiagnosis, error)
	CreateBirth(BirthRecord) (BirthRecord, error)
	CreateBreedingAttempt(BreedingAttempt) (BreedingAttempt, error)
	UpdateBreedingAttempt(id string, mutator func(*BreedingAttempt) error) (BreedingAttempt, error)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	ListProperties() []Property
	FindProperty(id string) (Property, bool)
	ListAnimals() []Animal
	FindAnimal(id string) (Animal, bool)
	ListGroups() []Group
	FindGroup(id string) (Group, bool)
	ListAreas() []Area
	FindArea(id string) (Area, bool)
	ListOccupancy() []OccupancyRecord
	FindOccupancy(id string) (OccupancyRecord, bool)
	ListWeighings() []Weighing
	FindWeighing(id string) (Weighing, bool)
	ListBreedingSeasons() []BreedingSeason
	FindBreedingSeason(id string) (BreedingSeason, bool)
	ListProtocols() []FixedTimeProtocol
	FindProtocol(id string) (FixedTimeProtocol, bool)
	ListInseminations() []Insemination
	FindInsemination(id string) (Insemination, bool)
	ListDiagnoses() []GestationDiagnosis
	FindDiagnosis(id string) (GestationDiagnosis, bool)
	ListBirths() []BirthRecord
	FindBirth(id string) (BirthRecord, bool)
	ListBreedingAttempts() []BreedingAttempt
	FindBreedingAttempt(id string) (BreedingAttempt, bool)
}

// PersistentStore is a minimal abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
