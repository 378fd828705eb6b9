// Package domain defines the persistent herd entities, value types, and
// rule evaluation primitives used by herdcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityProperty identifies a farm property record.
	EntityProperty EntityType = "property"
	// EntityAnimal identifies an individual animal record.
	EntityAnimal EntityType = "animal"
	// EntityGroup identifies a management group (lot) record.
	EntityGroup EntityType = "group"
	// EntityArea identifies a paddock, pen or other physical area.
	EntityArea EntityType = "area"
	// EntityOccupancy identifies an occupancy ledger record.
	EntityOccupancy EntityType = "occupancy"
	// EntityWeighing identifies a weighing observation.
	EntityWeighing EntityType = "weighing"
	// EntityBreedingSeason identifies a breeding season record.
	EntityBreedingSeason EntityType = "breeding_season"
	// EntityProtocol identifies a fixed-time insemination protocol.
	EntityProtocol EntityType = "protocol"
	// EntityInsemination identifies an insemination event.
	EntityInsemination EntityType = "insemination"
	// EntityDiagnosis identifies a gestation diagnosis event.
	EntityDiagnosis EntityType = "diagnosis"
	// EntityBirth identifies a birth event.
	EntityBirth EntityType = "birth"
	// EntityBreedingAttempt identifies the per-female breeding attempt state.
	EntityBreedingAttempt EntityType = "breeding_attempt"
)

// Sex of an animal.
type Sex string

// Supported sexes.
const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Valid reports whether s is a known sex.
func (s Sex) Valid() bool { return s == SexMale || s == SexFemale }

// AnimalStatus captures the lifecycle status of an animal.
type AnimalStatus string

// Animal lifecycle statuses.
const (
	StatusActive    AnimalStatus = "active"
	StatusSold      AnimalStatus = "sold"
	StatusDead      AnimalStatus = "dead"
	StatusDiscarded AnimalStatus = "discarded"
)

// Valid reports whether s is a known lifecycle status.
func (s AnimalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSold, StatusDead, StatusDiscarded:
		return true
	}
	return false
}

// AreaKind classifies physical areas.
type AreaKind string

// Supported area kinds.
const (
	AreaPaddock   AreaKind = "paddock"
	AreaPen       AreaKind = "pen"
	AreaCorral    AreaKind = "corral"
	AreaSorting   AreaKind = "sorting"
	AreaInfirmary AreaKind = "infirmary"
)

// AreaStatus captures the usage state of an area.
type AreaStatus string

// Area usage states.
const (
	AreaAvailable       AreaStatus = "available"
	AreaOccupied        AreaStatus = "occupied"
	AreaResting         AreaStatus = "resting"
	AreaDegraded        AreaStatus = "degraded"
	AreaUnderRenovation AreaStatus = "under_renovation"
)

// InseminationMethod enumerates supported insemination techniques.
type InseminationMethod string

// Insemination methods.
const (
	MethodNatural             InseminationMethod = "natural"
	MethodArtificial          InseminationMethod = "artificial"
	MethodFixedTimeArtificial InseminationMethod = "fixed_time_artificial"
)

// DiagnosisResult is the outcome of a gestation diagnosis.
type DiagnosisResult string

// Diagnosis results.
const (
	DiagnosisPositive     DiagnosisResult = "positive"
	DiagnosisNegative     DiagnosisResult = "negative"
	DiagnosisInconclusive DiagnosisResult = "inconclusive"
)

// BirthOutcome is the outcome of a birth event.
type BirthOutcome string

// Birth outcomes.
const (
	BirthLive      BirthOutcome = "live_birth"
	BirthAbortion  BirthOutcome = "abortion"
	BirthStillborn BirthOutcome = "stillbirth"
)

// BirthDifficulty grades the assistance required at birth.
type BirthDifficulty string

// Birth difficulty grades.
const (
	DifficultyNormal   BirthDifficulty = "normal"
	DifficultyAssisted BirthDifficulty = "assisted"
	DifficultyCesarean BirthDifficulty = "cesarean"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record returns the embedded base so stores can stamp identifiers generically.
func (b *Base) Record() *Base { return b }

// Property is a farm holding that owns animals, groups and areas.
type Property struct {
	Base
	Name        string  `json:"name"`
	TotalAreaHa float64 `json:"total_area_ha"`
	Active      bool    `json:"active"`
}

// Acquisition records how an animal entered the herd when not born on the property.
type Acquisition struct {
	Date   time.Time `json:"date"`
	Origin string    `json:"origin,omitempty"`
	Value  float64   `json:"value,omitempty"`
}

// Disposal records a sale or discard.
type Disposal struct {
	Date        time.Time `json:"date"`
	Destination string    `json:"destination,omitempty"`
	Value       float64   `json:"value,omitempty"`
}

// Death records the date and cause of death.
type Death struct {
	Date  time.Time `json:"date"`
	Cause string    `json:"cause,omitempty"`
}

// Animal represents an individual head of livestock.
type Animal struct {
	Base
	PropertyID  string       `json:"property_id"`
	Tag         string       `json:"tag"`
	Name        string       `json:"name,omitempty"`
	Species     SpeciesKind  `json:"species"`
	BreedID     string       `json:"breed_id,omitempty"`
	Sex         Sex          `json:"sex"`
	BirthDate   time.Time    `json:"birth_date"`
	Category    string       `json:"category"`
	Status      AnimalStatus `json:"status"`
	FatherID    *string      `json:"father_id,omitempty"`
	MotherID    *string      `json:"mother_id,omitempty"`
	Acquisition *Acquisition `json:"acquisition,omitempty"`
	Disposal    *Disposal    `json:"disposal,omitempty"`
	Death       *Death       `json:"death,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

// Group is a management lot of animals.
type Group struct {
	Base
	PropertyID    string `json:"property_id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Criterion     string `json:"criterion,omitempty"`
	Aptitude      string `json:"aptitude,omitempty"`
	Purpose       string `json:"purpose,omitempty"`
	RearingSystem string `json:"rearing_system,omitempty"`
	Active        bool   `json:"active"`
}

// Area is a physical space (paddock, pen) that can host one group at a time.
type Area struct {
	Base
	PropertyID string     `json:"property_id"`
	Name       string     `json:"name"`
	Kind       AreaKind   `json:"kind"`
	SizeHa     float64    `json:"size_ha"`
	Forage     string     `json:"forage,omitempty"`
	Status     AreaStatus `json:"status"`
}

// OccupancyRecord is one interval of a subject residing in a container.
type OccupancyRecord struct {
	Base
	Relation    RelationKind `json:"relation"`
	SubjectID   string       `json:"subject_id"`
	ContainerID string       `json:"container_id"`
	EntryDate   time.Time    `json:"entry_date"`
	ExitDate    *time.Time   `json:"exit_date,omitempty"`
	EntryReason string       `json:"entry_reason,omitempty"`
	ExitReason  string       `json:"exit_reason,omitempty"`
	Actor       string       `json:"actor,omitempty"`
}

// Open reports whether the record has no exit date.
func (r OccupancyRecord) Open() bool { return r.ExitDate == nil }

// Weighing is a single weight observation.
type Weighing struct {
	Base
	AnimalID  string    `json:"animal_id"`
	Date      time.Time `json:"date"`
	WeightKg  float64   `json:"weight_kg"`
	Equipment string    `json:"equipment,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// BreedingSeason is a named period with participating groups.
type BreedingSeason struct {
	Base
	PropertyID string    `json:"property_id"`
	Name       string    `json:"name"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	GroupIDs   []string  `json:"group_ids"`
	Active     bool      `json:"active"`
	Notes      string    `json:"notes,omitempty"`
}

// FixedTimeProtocol describes a fixed-time artificial insemination protocol.
type FixedTimeProtocol struct {
	Base
	PropertyID   string   `json:"property_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	DurationDays int      `json:"duration_days"`
	Steps        []string `json:"steps,omitempty"`
	Active       bool     `json:"active"`
}

// Insemination records a breeding event for a female.
type Insemination struct {
	Base
	AnimalID   string             `json:"animal_id"`
	Date       time.Time          `json:"date"`
	Method     InseminationMethod `json:"method"`
	SireID     *string            `json:"sire_id,omitempty"`
	SemenBatch string             `json:"semen_batch,omitempty"`
	SeasonID   *string            `json:"season_id,omitempty"`
	ProtocolID *string            `json:"protocol_id,omitempty"`
	Notes      string             `json:"notes,omitempty"`
}

// GestationDiagnosis records the result of a pregnancy check.
type GestationDiagnosis struct {
	Base
	InseminationID string          `json:"insemination_id"`
	Date           time.Time       `json:"date"`
	Result         DiagnosisResult `json:"result"`
	Method         string          `json:"method,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// BirthRecord records a parturition and its offspring.
type BirthRecord struct {
	Base
	MotherID       string          `json:"mother_id"`
	Date           time.Time       `json:"date"`
	Outcome        BirthOutcome    `json:"outcome"`
	Difficulty     BirthDifficulty `json:"difficulty"`
	OffspringCount int             `json:"offspring_count"`
	OffspringIDs   []string        `json:"offspring_ids,omitempty"`
	BirthWeightKg  float64         `json:"birth_weight_kg,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// Is lets callers treat blocked transactions as conflicts.
func (e RuleViolationError) Is(target error) bool { return target == ErrConflict }
