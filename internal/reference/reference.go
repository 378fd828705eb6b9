// Package reference loads the species catalog from YAML seed data.
package reference

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"herdcore/pkg/domain"
)

//go:embed species.yaml
var defaultSeed []byte

type document struct {
	Species []domain.Species `yaml:"species"`
}

// Default returns the catalog built from the embedded seed.
func Default() (*domain.SpeciesCatalog, error) {
	return Decode(bytes.NewReader(defaultSeed))
}

// MustDefault is Default for program start-up and tests.
func MustDefault() *domain.SpeciesCatalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile reads an override seed from path. An empty path yields the embedded seed.
func LoadFile(path string) (*domain.SpeciesCatalog, error) {
	if path == "" {
		return Default()
	}
	// #nosec G304 -- operator supplied configuration path
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ConfigurationError{Reason: fmt.Sprintf("open species file: %v", err)}
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Decode parses a YAML species document and validates it.
func Decode(r io.Reader) (*domain.SpeciesCatalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.ConfigurationError{Reason: fmt.Sprintf("decode species: %v", err)}
	}
	return domain.NewSpeciesCatalog(doc.Species)
}
