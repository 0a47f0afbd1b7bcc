package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadMoveFromBytes parses a single move definition from raw YAML bytes.
//
// Postcondition: Returns a validated *Move, or an error on unknown fields or
// invalid values.
func LoadMoveFromBytes(data []byte) (*Move, error) {
	var m Move
	if err := decodeStrict(data, &m); err != nil {
		return nil, fmt.Errorf("parsing move YAML: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadSpeciesFromBytes parses a single species definition from raw YAML bytes.
//
// Postcondition: Returns a validated *Species, or an error.
func LoadSpeciesFromBytes(data []byte) (*Species, error) {
	var s Species
	if err := decodeStrict(data, &s); err != nil {
		return nil, fmt.Errorf("parsing species YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadMoves reads every *.yaml file in dir as a move definition.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all moves or an error on the first failure.
func LoadMoves(dir string) ([]*Move, error) {
	var moves []*Move
	err := eachYAML(dir, func(path string, data []byte) error {
		m, err := LoadMoveFromBytes(data)
		if err != nil {
			return err
		}
		moves = append(moves, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moves, nil
}

// LoadSpecies reads every *.yaml file in dir as a species definition.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all species or an error on the first failure.
func LoadSpecies(dir string) ([]*Species, error) {
	var species []*Species
	err := eachYAML(dir, func(path string, data []byte) error {
		s, err := LoadSpeciesFromBytes(data)
		if err != nil {
			return err
		}
		species = append(species, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return species, nil
}

// Load builds a validated Registry from a moves directory and a species
// directory.
//
// Postcondition: Returns a Registry whose cross references all resolve, or an error.
func Load(movesDir, speciesDir string) (*Registry, error) {
	moves, err := LoadMoves(movesDir)
	if err != nil {
		return nil, err
	}
	species, err := LoadSpecies(speciesDir)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, m := range moves {
		if err := reg.RegisterMove(m); err != nil {
			return nil, err
		}
	}
	for _, s := range species {
		if err := reg.RegisterSpecies(s); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return reg, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func eachYAML(dir string, fn func(path string, data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading catalog dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		if err := fn(path, data); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return nil
}
