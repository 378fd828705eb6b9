package domain

// RelationKind names a subject/container occupancy relation.
type RelationKind string

// Supported occupancy relations.
const (
	RelationKindAnimalGroup RelationKind = "animal_group"
	RelationKindGroupArea   RelationKind = "group_area"
)

// OccupancyRelation describes one relation tracked by the occupancy ledger.
// ExclusiveContainer marks containers that may host at most one subject at a time.
type OccupancyRelation struct {
	Kind               RelationKind
	Subject            EntityType
	Container          EntityType
	ExclusiveContainer bool
}

var (
	// RelationAnimalGroup tracks which group an animal belongs to.
	RelationAnimalGroup = OccupancyRelation{Kind: RelationKindAnimalGroup, Subject: EntityAnimal, Container: EntityGroup}
	// RelationGroupArea tracks which area a group occupies.
	RelationGroupArea = OccupancyRelation{Kind: RelationKindGroupArea, Subject: EntityGroup, Container: EntityArea, ExclusiveContainer: true}
)

// Relations lists every registered occupancy relation.
var Relations = []OccupancyRelation{RelationAnimalGroup, RelationGroupArea}

// RelationFor resolves a relation descriptor by kind.
func RelationFor(kind RelationKind) (OccupancyRelation, bool) {
	for _, r := range Relations {
		if r.Kind == kind {
			return r, true
		}
	}
	return OccupancyRelation{}, false
}
