package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// Registry holds all loaded move and species definitions indexed by ID.
type Registry struct {
	moves   map[string]*Move
	species map[string]*Species
}

// NewRegistry returns an empty Registry.
//
// Postcondition: all internal maps are initialised.
func NewRegistry() *Registry {
	return &Registry{
		moves:   make(map[string]*Move),
		species: make(map[string]*Species),
	}
}

// RegisterMove adds m to the registry, filling in a display name when absent.
//
// Precondition: m must not be nil.
// Postcondition: Move(m.ID) returns m; returns error if m is invalid or m.ID
// is already registered.
func (r *Registry) RegisterMove(m *Move) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, exists := r.moves[m.ID]; exists {
		return fmt.Errorf("catalog: Registry.RegisterMove: move ID %q already registered", m.ID)
	}
	if m.Name == "" {
		m.Name = displayName(m.ID)
	}
	r.moves[m.ID] = m
	return nil
}

// RegisterSpecies adds s to the registry, filling in a display name when absent.
//
// Precondition: s must not be nil.
// Postcondition: Species(s.ID) returns s; returns error if s is invalid or s.ID
// is already registered.
func (r *Registry) RegisterSpecies(s *Species) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := r.species[s.ID]; exists {
		return fmt.Errorf("catalog: Registry.RegisterSpecies: species ID %q already registered", s.ID)
	}
	if s.Name == "" {
		s.Name = displayName(s.ID)
	}
	r.species[s.ID] = s
	return nil
}

// Move returns the Move for id, or (nil, false) if not found.
func (r *Registry) Move(id string) (*Move, bool) {
	m, ok := r.moves[id]
	return m, ok
}

// Species returns the Species for id, or (nil, false) if not found.
func (r *Registry) Species(id string) (*Species, bool) {
	s, ok := r.species[id]
	return s, ok
}

// MustMove returns the Move for id.
//
// Precondition: id must be registered. Panics otherwise; an unknown move id is
// a caller contract violation.
func (r *Registry) MustMove(id string) *Move {
	m, ok := r.moves[id]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown move %q", id))
	}
	return m
}

// MustSpecies returns the Species for id.
//
// Precondition: id must be registered. Panics otherwise.
func (r *Registry) MustSpecies(id string) *Species {
	s, ok := r.species[id]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown species %q", id))
	}
	return s
}

// AllSpecies returns every species sorted by ID.
func (r *Registry) AllSpecies() []*Species {
	out := make([]*Species, 0, len(r.species))
	for _, s := range r.species {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllMoves returns every move sorted by ID.
func (r *Registry) AllMoves() []*Move {
	out := make([]*Move, 0, len(r.moves))
	for _, m := range r.moves {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate checks cross references between definitions.
//
// Postcondition: Returns nil iff every base move and learnset move exists and
// every evolution targets a registered species; otherwise returns all
// violations joined.
func (r *Registry) Validate() error {
	var errs []error
	for _, s := range r.AllSpecies() {
		for _, id := range s.BaseMoves {
			if _, ok := r.moves[id]; !ok {
				errs = append(errs, fmt.Errorf("species %q: unknown base move %q", s.ID, id))
			}
		}
		for _, e := range s.Learnset {
			if _, ok := r.moves[e.Move]; !ok {
				errs = append(errs, fmt.Errorf("species %q: unknown learnset move %q at level %d", s.ID, e.Move, e.Level))
			}
		}
		if s.Evolution != nil {
			if _, ok := r.species[s.Evolution.To]; !ok {
				errs = append(errs, fmt.Errorf("species %q: evolves into unknown species %q", s.ID, s.Evolution.To))
			}
		}
	}
	return errors.Join(errs...)
}
