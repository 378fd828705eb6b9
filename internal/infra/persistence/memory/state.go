package memory

import (
	"slices"
	"time"

	"herdcore/pkg/domain"
)

type memoryState struct {
	properties    map[string]domain.Property
	animals       map[string]domain.Animal
	groups        map[string]domain.Group
	areas         map[string]domain.Area
	occupancy     map[string]domain.OccupancyRecord
	weighings     map[string]domain.Weighing
	seasons       map[string]domain.BreedingSeason
	protocols     map[string]domain.FixedTimeProtocol
	inseminations map[string]domain.Insemination
	diagnoses     map[string]domain.GestationDiagnosis
	births        map[string]domain.BirthRecord
	attempts      map[string]domain.BreedingAttempt
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Properties    map[string]domain.Property           `json:"properties"`
	Animals       map[string]domain.Animal             `json:"animals"`
	Groups        map[string]domain.Group              `json:"groups"`
	Areas         map[string]domain.Area               `json:"areas"`
	Occupancy     map[string]domain.OccupancyRecord    `json:"occupancy"`
	Weighings     map[string]domain.Weighing           `json:"weighings"`
	Seasons       map[string]domain.BreedingSeason     `json:"seasons"`
	Protocols     map[string]domain.FixedTimeProtocol  `json:"protocols"`
	Inseminations map[string]domain.Insemination       `json:"inseminations"`
	Diagnoses     map[string]domain.GestationDiagnosis `json:"diagnoses"`
	Births        map[string]domain.BirthRecord        `json:"births"`
	Attempts      map[string]domain.BreedingAttempt    `json:"attempts"`
}

// Buckets lists the snapshot bucket names in the order durable backends write them.
var Buckets = []string{
	"properties",
	"animals",
	"groups",
	"areas",
	"occupancy",
	"weighings",
	"seasons",
	"protocols",
	"inseminations",
	"diagnoses",
	"births",
	"attempts",
}

// Bucket returns a pointer to the map backing the named bucket, suitable for
// json.Marshal and json.Unmarshal.
func (s *Snapshot) Bucket(name string) (any, bool) {
	switch name {
	case "properties":
		return &s.Properties, true
	case "animals":
		return &s.Animals, true
	case "groups":
		return &s.Groups, true
	case "areas":
		return &s.Areas, true
	case "occupancy":
		return &s.Occupancy, true
	case "weighings":
		return &s.Weighings, true
	case "seasons":
		return &s.Seasons, true
	case "protocols":
		return &s.Protocols, true
	case "inseminations":
		return &s.Inseminations, true
	case "diagnoses":
		return &s.Diagnoses, true
	case "births":
		return &s.Births, true
	case "attempts":
		return &s.Attempts, true
	}
	return nil, false
}

// BucketLen returns the number of records in the named bucket.
func (s *Snapshot) BucketLen(name string) int {
	switch name {
	case "properties":
		return len(s.Properties)
	case "animals":
		return len(s.Animals)
	case "groups":
		return len(s.Groups)
	case "areas":
		return len(s.Areas)
	case "occupancy":
		return len(s.Occupancy)
	case "weighings":
		return len(s.Weighings)
	case "seasons":
		return len(s.Seasons)
	case "protocols":
		return len(s.Protocols)
	case "inseminations":
		return len(s.Inseminations)
	case "diagnoses":
		return len(s.Diagnoses)
	case "births":
		return len(s.Births)
	case "attempts":
		return len(s.Attempts)
	}
	return 0
}

// Len returns the total number of records across all buckets.
func (s Snapshot) Len() int {
	return len(s.Properties) + len(s.Animals) + len(s.Groups) + len(s.Areas) +
		len(s.Occupancy) + len(s.Weighings) + len(s.Seasons) + len(s.Protocols) +
		len(s.Inseminations) + len(s.Diagnoses) + len(s.Births) + len(s.Attempts)
}

func newMemoryState() memoryState {
	return memoryState{
		properties:    make(map[string]domain.Property),
		animals:       make(map[string]domain.Animal),
		groups:        make(map[string]domain.Group),
		areas:         make(map[string]domain.Area),
		occupancy:     make(map[string]domain.OccupancyRecord),
		weighings:     make(map[string]domain.Weighing),
		seasons:       make(map[string]domain.BreedingSeason),
		protocols:     make(map[string]domain.FixedTimeProtocol),
		inseminations: make(map[string]domain.Insemination),
		diagnoses:     make(map[string]domain.GestationDiagnosis),
		births:        make(map[string]domain.BirthRecord),
		attempts:      make(map[string]domain.BreedingAttempt),
	}
}

func (s memoryState) clone() memoryState {
	return memoryState{
		properties:    cloneTable(s.properties, identity[domain.Property]),
		animals:       cloneTable(s.animals, cloneAnimal),
		groups:        cloneTable(s.groups, identity[domain.Group]),
		areas:         cloneTable(s.areas, identity[domain.Area]),
		occupancy:     cloneTable(s.occupancy, cloneOccupancy),
		weighings:     cloneTable(s.weighings, identity[domain.Weighing]),
		seasons:       cloneTable(s.seasons, cloneSeason),
		protocols:     cloneTable(s.protocols, cloneProtocol),
		inseminations: cloneTable(s.inseminations, cloneInsemination),
		diagnoses:     cloneTable(s.diagnoses, identity[domain.GestationDiagnosis]),
		births:        cloneTable(s.births, cloneBirth),
		attempts:      cloneTable(s.attempts, cloneAttempt),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	c := state.clone()
	return Snapshot{
		Properties:    c.properties,
		Animals:       c.animals,
		Groups:        c.groups,
		Areas:         c.areas,
		Occupancy:     c.occupancy,
		Weighings:     c.weighings,
		Seasons:       c.seasons,
		Protocols:     c.protocols,
		Inseminations: c.inseminations,
		Diagnoses:     c.diagnoses,
		Births:        c.births,
		Attempts:      c.attempts,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	s = migrateSnapshot(s)
	return memoryState{
		properties:    s.Properties,
		animals:       s.Animals,
		groups:        s.Groups,
		areas:         s.Areas,
		occupancy:     s.Occupancy,
		weighings:     s.Weighings,
		seasons:       s.Seasons,
		protocols:     s.Protocols,
		inseminations: s.Inseminations,
		diagnoses:     s.Diagnoses,
		births:        s.Births,
		attempts:      s.Attempts,
	}.clone()
}

// migrateSnapshot fills buckets missing from older snapshots.
func migrateSnapshot(s Snapshot) Snapshot {
	ensure(&s.Properties)
	ensure(&s.Animals)
	ensure(&s.Groups)
	ensure(&s.Areas)
	ensure(&s.Occupancy)
	ensure(&s.Weighings)
	ensure(&s.Seasons)
	ensure(&s.Protocols)
	ensure(&s.Inseminations)
	ensure(&s.Diagnoses)
	ensure(&s.Births)
	ensure(&s.Attempts)
	for id, a := range s.Animals {
		if a.Status == "" {
			a.Status = domain.StatusActive
			s.Animals[id] = a
		}
	}
	for id, a := range s.Areas {
		if a.Status == "" {
			a.Status = domain.AreaAvailable
			s.Areas[id] = a
		}
	}
	return s
}

func ensure[T any](m *map[string]T) {
	if *m == nil {
		*m = map[string]T{}
	}
}

func cloneTable[T any](in map[string]T, clone func(T) T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func identity[T any](v T) T { return v }

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAnimal(a domain.Animal) domain.Animal {
	cp := a
	cp.FatherID = cloneString(a.FatherID)
	cp.MotherID = cloneString(a.MotherID)
	if a.Acquisition != nil {
		v := *a.Acquisition
		cp.Acquisition = &v
	}
	if a.Disposal != nil {
		v := *a.Disposal
		cp.Disposal = &v
	}
	if a.Death != nil {
		v := *a.Death
		cp.Death = &v
	}
	return cp
}

func cloneOccupancy(r domain.OccupancyRecord) domain.OccupancyRecord {
	cp := r
	cp.ExitDate = cloneTime(r.ExitDate)
	return cp
}

func cloneSeason(s domain.BreedingSeason) domain.BreedingSeason {
	cp := s
	cp.GroupIDs = slices.Clone(s.GroupIDs)
	return cp
}

func cloneProtocol(p domain.FixedTimeProtocol) domain.FixedTimeProtocol {
	cp := p
	cp.Steps = slices.Clone(p.Steps)
	return cp
}

func cloneInsemination(i domain.Insemination) domain.Insemination {
	cp := i
	cp.SireID = cloneString(i.SireID)
	cp.SeasonID = cloneString(i.SeasonID)
	cp.ProtocolID = cloneString(i.ProtocolID)
	return cp
}

func cloneBirth(b domain.BirthRecord) domain.BirthRecord {
	cp := b
	cp.OffspringIDs = slices.Clone(b.OffspringIDs)
	return cp
}

func cloneAttempt(a domain.BreedingAttempt) domain.BreedingAttempt {
	cp := a
	cp.ClosedOn = cloneTime(a.ClosedOn)
	return cp
}
