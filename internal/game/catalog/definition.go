// Package catalog holds the static move and species definitions loaded from
// YAML content. Definitions are never mutated after loading.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cory-johannsen/critterbound/internal/game/creature"
	"github.com/cory-johannsen/critterbound/internal/game/typechart"
)

// EffectKind names the stat a status move changes.
type EffectKind string

const (
	EffectAtkUp EffectKind = "atk_up"
	EffectDefUp EffectKind = "def_up"
)

// EffectTarget selects who a status move applies to.
type EffectTarget string

const (
	TargetSelf     EffectTarget = "self"
	TargetOpponent EffectTarget = "opponent"
)

// StatusEffect is the stat-stage change carried by a status move. Stages may
// be negative to lower a stat.
type StatusEffect struct {
	Kind   EffectKind   `yaml:"kind"`
	Stages int          `yaml:"stages"`
	Target EffectTarget `yaml:"target"`
}

// Move is the static definition of a move. Power 0 marks a pure status move.
type Move struct {
	ID      string            `yaml:"id"`
	Name    string            `yaml:"name"`
	Element typechart.Element `yaml:"element"`
	Power   int               `yaml:"power"`
	Effect  *StatusEffect     `yaml:"effect"`
}

// IsStatus reports whether the move deals no damage and carries an effect.
func (m *Move) IsStatus() bool {
	return m.Power == 0 && m.Effect != nil
}

// Validate checks the move's invariants.
//
// Postcondition: Returns nil iff ID is non-empty, Element is known, Power >= 0,
// and any Effect has a known kind, a non-zero stage count and a known target.
func (m *Move) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("move: id must not be empty")
	}
	if !typechart.Valid(m.Element) {
		return fmt.Errorf("move %q: unknown element %q", m.ID, m.Element)
	}
	if m.Power < 0 {
		return fmt.Errorf("move %q: power must be >= 0", m.ID)
	}
	if m.Effect != nil {
		switch m.Effect.Kind {
		case EffectAtkUp, EffectDefUp:
		default:
			return fmt.Errorf("move %q: unknown effect kind %q", m.ID, m.Effect.Kind)
		}
		if m.Effect.Stages == 0 {
			return fmt.Errorf("move %q: effect stages must not be zero", m.ID)
		}
		switch m.Effect.Target {
		case TargetSelf, TargetOpponent:
		default:
			return fmt.Errorf("move %q: unknown effect target %q", m.ID, m.Effect.Target)
		}
	}
	if m.Power == 0 && m.Effect == nil {
		return fmt.Errorf("move %q: a zero-power move needs an effect", m.ID)
	}
	return nil
}

// LearnsetEntry teaches Move when a creature reaches Level.
type LearnsetEntry struct {
	Level int    `yaml:"level"`
	Move  string `yaml:"move"`
}

// BaseMoveCount is the size of every species' starting move set.
const BaseMoveCount = 3

// Species is the static definition of a creature species.
type Species struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Element     typechart.Element `yaml:"element"`
	BaseStats   creature.Stats    `yaml:"base_stats"`
	CaptureRate int               `yaml:"capture_rate"`
	Ability     string            `yaml:"ability"`
	BaseMoves   []string          `yaml:"base_moves"`
	Learnset    []LearnsetEntry   `yaml:"learnset"`
	Evolution   *EvolutionRule    `yaml:"evolution"`
}

// Validate checks the species' local invariants. Cross references are checked
// by Registry.Validate.
func (s *Species) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("species: id must not be empty")
	}
	if !typechart.Valid(s.Element) {
		return fmt.Errorf("species %q: unknown element %q", s.ID, s.Element)
	}
	b := s.BaseStats
	if b.HP < 1 || b.Atk < 1 || b.Def < 1 || b.Spd < 1 {
		return fmt.Errorf("species %q: base stats must all be >= 1", s.ID)
	}
	if s.CaptureRate < 0 {
		return fmt.Errorf("species %q: capture_rate must be >= 0", s.ID)
	}
	if len(s.BaseMoves) != BaseMoveCount {
		return fmt.Errorf("species %q: base_moves must list exactly %d moves, got %d", s.ID, BaseMoveCount, len(s.BaseMoves))
	}
	for _, e := range s.Learnset {
		if e.Level < 1 || e.Level > creature.MaxLevel {
			return fmt.Errorf("species %q: learnset level %d out of range", s.ID, e.Level)
		}
		if e.Move == "" {
			return fmt.Errorf("species %q: learnset entry at level %d has no move", s.ID, e.Level)
		}
	}
	if s.Evolution != nil {
		if err := s.Evolution.Validate(); err != nil {
			return fmt.Errorf("species %q: %w", s.ID, err)
		}
		if s.Evolution.To == s.ID {
			return fmt.Errorf("species %q: evolution must target a different species", s.ID)
		}
	}
	return nil
}

// MovesLearnedAt returns the learnset moves keyed exactly to level, in
// learnset order, without duplicates.
func (s *Species) MovesLearnedAt(level int) []string {
	var out []string
	for _, e := range s.Learnset {
		if e.Level == level && !slices.Contains(out, e.Move) {
			out = append(out, e.Move)
		}
	}
	return out
}

// MovesAtLevel returns the move list a freshly generated creature of this
// species knows at level: base moves followed by every learnset move up to
// level, deduplicated, keeping the most recent creature.MoveCap(level).
func (s *Species) MovesAtLevel(level int) []string {
	learned := slices.Clone(s.BaseMoves)
	entries := slices.Clone(s.Learnset)
	slices.SortStableFunc(entries, func(a, b LearnsetEntry) int { return a.Level - b.Level })
	for _, e := range entries {
		if e.Level > level {
			break
		}
		if i := slices.Index(learned, e.Move); i >= 0 {
			learned = slices.Delete(learned, i, i+1)
		}
		learned = append(learned, e.Move)
	}
	if limit := creature.MoveCap(level); len(learned) > limit {
		learned = learned[len(learned)-limit:]
	}
	return learned
}

// NewRecord creates a full-health record of this species at level.
func (s *Species) NewRecord(level int) *creature.Record {
	return creature.New(s.ID, s.BaseStats, s.MovesAtLevel(level), level)
}

// displayName derives a display name from an id such as "ember_fang".
func displayName(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}
