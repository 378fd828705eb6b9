package domain

import (
	"errors"
	"testing"
)

func testSpecies() []Species {
	out := make([]Species, 0, len(AllSpeciesKinds))
	for _, kind := range AllSpeciesKinds {
		out = append(out, Species{
			Kind:                kind,
			Name:                string(kind),
			ReferenceWeightKg:   450,
			GestationDays:       285,
			FallbackAnimalUnit:  0.5,
			DiagnosisOffsetDays: 35,
			Categories:          []string{"adult"},
		})
	}
	out[0].Breeds = []Breed{{ID: "nelore", Name: "Nelore", AdultWeightKg: 500}}
	return out
}

func TestSpeciesCatalogLookup(t *testing.T) {
	catalog, err := NewSpeciesCatalog(testSpecies())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	sp, err := catalog.Lookup(SpeciesBovine)
	if err != nil {
		t.Fatalf("lookup bovine: %v", err)
	}
	if sp.GestationDays != 285 || !sp.HasCategory("adult") || sp.HasCategory("calf") {
		t.Fatalf("unexpected species %+v", sp)
	}
	breed, ok := catalog.Breed("nelore")
	if !ok || breed.Species != SpeciesBovine {
		t.Fatalf("expected nelore bound to bovine, got %+v", breed)
	}
	if _, err := catalog.Lookup("camelid"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if got := len(catalog.List()); got != len(AllSpeciesKinds) {
		t.Fatalf("expected %d species, got %d", len(AllSpeciesKinds), got)
	}
}

func TestSpeciesCatalogRejectsIncompleteData(t *testing.T) {
	entries := testSpecies()
	if _, err := NewSpeciesCatalog(entries[1:]); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected missing species to fail, got %v", err)
	}

	entries = testSpecies()
	entries[2].FallbackAnimalUnit = 0
	if _, err := NewSpeciesCatalog(entries); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected zero fallback to fail, got %v", err)
	}

	entries = append(testSpecies(), Species{Kind: "camelid", ReferenceWeightKg: 1, GestationDays: 1, FallbackAnimalUnit: 1, DiagnosisOffsetDays: 1, Categories: []string{"x"}})
	if _, err := NewSpeciesCatalog(entries); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected unknown species to fail, got %v", err)
	}

	entries = append(testSpecies(), testSpecies()[0])
	if _, err := NewSpeciesCatalog(entries); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected duplicate species to fail, got %v", err)
	}
}

func TestMustLookupPanicsOnUnknownSpecies(t *testing.T) {
	catalog, err := NewSpeciesCatalog(testSpecies())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	catalog.MustLookup("camelid")
}
