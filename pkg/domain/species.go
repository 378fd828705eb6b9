package domain

import (
	"fmt"
	"slices"
	"sort"
)

// SpeciesKind enumerates the livestock species the engine understands.
type SpeciesKind string

// Supported species.
const (
	SpeciesBovine  SpeciesKind = "bovine"
	SpeciesCaprine SpeciesKind = "caprine"
	SpeciesOvine   SpeciesKind = "ovine"
	SpeciesEquine  SpeciesKind = "equine"
	SpeciesSwine   SpeciesKind = "swine"
)

// AllSpeciesKinds lists every kind a catalog must describe.
var AllSpeciesKinds = []SpeciesKind{SpeciesBovine, SpeciesCaprine, SpeciesOvine, SpeciesEquine, SpeciesSwine}

// Species holds the immutable reference data for one species.
type Species struct {
	Kind                 SpeciesKind `yaml:"kind" json:"kind"`
	Name                 string      `yaml:"name" json:"name"`
	ReferenceWeightKg    float64     `yaml:"reference_weight_kg" json:"reference_weight_kg"`
	GestationDays        int         `yaml:"gestation_days" json:"gestation_days"`
	MinBreedingAgeMonths int         `yaml:"min_breeding_age_months" json:"min_breeding_age_months"`
	FallbackAnimalUnit   float64     `yaml:"fallback_animal_unit" json:"fallback_animal_unit"`
	DiagnosisOffsetDays  int         `yaml:"diagnosis_offset_days" json:"diagnosis_offset_days"`
	Categories           []string    `yaml:"categories" json:"categories"`
	Breeds               []Breed     `yaml:"breeds" json:"breeds"`
}

// Breed is a named breed within a species.
type Breed struct {
	ID            string      `yaml:"id" json:"id"`
	Species       SpeciesKind `yaml:"-" json:"species"`
	Name          string      `yaml:"name" json:"name"`
	Origin        string      `yaml:"origin" json:"origin,omitempty"`
	AdultWeightKg float64     `yaml:"adult_weight_kg" json:"adult_weight_kg,omitempty"`
}

// HasCategory reports whether category is a valid label for the species.
func (s Species) HasCategory(category string) bool {
	return slices.Contains(s.Categories, category)
}

// SpeciesCatalog is the enum-keyed species reference.
type SpeciesCatalog struct {
	species map[SpeciesKind]Species
	breeds  map[string]Breed
}

// NewSpeciesCatalog indexes the provided species and validates that every
// supported kind is present and internally consistent.
func NewSpeciesCatalog(entries []Species) (*SpeciesCatalog, error) {
	c := &SpeciesCatalog{
		species: make(map[SpeciesKind]Species, len(entries)),
		breeds:  make(map[string]Breed),
	}
	for _, sp := range entries {
		if _, dup := c.species[sp.Kind]; dup {
			return nil, ConfigurationError{Reason: fmt.Sprintf("species %q declared twice", sp.Kind)}
		}
		sp.Categories = slices.Clone(sp.Categories)
		sp.Breeds = slices.Clone(sp.Breeds)
		for i := range sp.Breeds {
			sp.Breeds[i].Species = sp.Kind
			if _, dup := c.breeds[sp.Breeds[i].ID]; dup {
				return nil, ConfigurationError{Reason: fmt.Sprintf("breed %q declared twice", sp.Breeds[i].ID)}
			}
			c.breeds[sp.Breeds[i].ID] = sp.Breeds[i]
		}
		c.species[sp.Kind] = sp
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks completeness of the catalog.
func (c *SpeciesCatalog) Validate() error {
	for _, kind := range AllSpeciesKinds {
		sp, ok := c.species[kind]
		if !ok {
			return ConfigurationError{Reason: fmt.Sprintf("species %q missing from reference data", kind)}
		}
		switch {
		case sp.ReferenceWeightKg <= 0:
			return ConfigurationError{Reason: fmt.Sprintf("species %q: reference weight must be positive", kind)}
		case sp.GestationDays <= 0:
			return ConfigurationError{Reason: fmt.Sprintf("species %q: gestation days must be positive", kind)}
		case sp.FallbackAnimalUnit <= 0:
			return ConfigurationError{Reason: fmt.Sprintf("species %q: fallback animal unit must be positive", kind)}
		case sp.DiagnosisOffsetDays <= 0:
			return ConfigurationError{Reason: fmt.Sprintf("species %q: diagnosis offset must be positive", kind)}
		case len(sp.Categories) == 0:
			return ConfigurationError{Reason: fmt.Sprintf("species %q: no categories", kind)}
		}
	}
	for kind := range c.species {
		if !slices.Contains(AllSpeciesKinds, kind) {
			return ConfigurationError{Reason: fmt.Sprintf("unknown species %q in reference data", kind)}
		}
	}
	return nil
}

// Lookup returns the reference data for kind.
func (c *SpeciesCatalog) Lookup(kind SpeciesKind) (Species, error) {
	sp, ok := c.species[kind]
	if !ok {
		return Species{}, ConfigurationError{Reason: fmt.Sprintf("unknown species %q", kind)}
	}
	return sp, nil
}

// MustLookup is Lookup for callers that already validated kind.
func (c *SpeciesCatalog) MustLookup(kind SpeciesKind) Species {
	sp, err := c.Lookup(kind)
	if err != nil {
		panic(err)
	}
	return sp
}

// Breed returns a breed by identifier.
func (c *SpeciesCatalog) Breed(id string) (Breed, bool) {
	b, ok := c.breeds[id]
	return b, ok
}

// List returns all species ordered by kind.
func (c *SpeciesCatalog) List() []Species {
	out := make([]Species, 0, len(c.species))
	for _, sp := range c.species {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
