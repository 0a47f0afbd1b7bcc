// Package creature defines the persistent creature record and the pure stat
// and move-slot rules that apply to it.
package creature

import (
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
)

// MaxLevel is the hard level cap.
const MaxLevel = 50

// Stats holds the four core stats of a creature.
type Stats struct {
	HP  int `yaml:"hp"`
	Atk int `yaml:"atk"`
	Def int `yaml:"def"`
	Spd int `yaml:"spd"`
}

// Status is a persistent status condition. The zero value means no condition.
type Status string

const (
	StatusNone   Status = ""
	StatusBurn   Status = "burn"
	StatusPoison Status = "poison"
	StatusStun   Status = "stun"
)

// Valid reports whether s is a known status (including none).
func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusBurn, StatusPoison, StatusStun:
		return true
	default:
		return false
	}
}

// Record is the persistent state of one owned or encountered creature.
//
// Invariant (outside battle): 1 <= CurrentHP <= Stats.HP; len(Moves) <= MoveCap(Level).
type Record struct {
	ID        string
	SpeciesID string
	Nickname  string
	Level     int
	// XP is progress toward the next level; it resets on level-up.
	XP int
	// Bond grows with experience and gates friendship evolutions.
	Bond      int
	Stats     Stats
	CurrentHP int
	Status    Status
	Moves     []string
}

// MoveCap returns the number of move slots available at level.
//
// Postcondition: Returns 3 below level 10, 4 below level 25, 5 otherwise.
func MoveCap(level int) int {
	switch {
	case level < 10:
		return 3
	case level < 25:
		return 4
	default:
		return 5
	}
}

// ScaleStat scales a species base stat to level. HP grows faster than the
// other stats.
//
// Postcondition: Returns >= 1.
func ScaleStat(base, level int, isHP bool) int {
	var factor float64
	if isHP {
		factor = 0.62 + float64(level)*0.076
	} else {
		factor = 0.66 + float64(level)*0.066
	}
	return max(1, int(math.Floor(float64(base)*factor)))
}

// CalculateStats derives level-scaled stats from base stats.
func CalculateStats(base Stats, level int) Stats {
	return Stats{
		HP:  ScaleStat(base.HP, level, true),
		Atk: ScaleStat(base.Atk, level, false),
		Def: ScaleStat(base.Def, level, false),
		Spd: ScaleStat(base.Spd, level, false),
	}
}

// New creates a record at full health for a freshly granted, captured, or
// generated creature.
//
// Precondition: speciesID must be non-empty.
// Postcondition: Level is clamped to [1, MaxLevel]; moves are deduplicated and
// trimmed to MoveCap(level), keeping the last entries.
func New(speciesID string, base Stats, moves []string, level int) *Record {
	level = min(max(level, 1), MaxLevel)
	stats := CalculateStats(base, level)
	r := &Record{
		ID:        uuid.New().String(),
		SpeciesID: speciesID,
		Level:     level,
		Stats:     stats,
		CurrentHP: stats.HP,
		Moves:     slices.Clone(moves),
	}
	r.Normalize()
	return r
}

// DisplayName returns the nickname if set, otherwise fallback.
func (r *Record) DisplayName(fallback string) string {
	if r.Nickname != "" {
		return r.Nickname
	}
	return fallback
}

// Clone returns a deep copy of r.
func (r *Record) Clone() Record {
	out := *r
	out.Moves = slices.Clone(r.Moves)
	return out
}

// Fainted reports whether the record carries zero HP.
func (r *Record) Fainted() bool { return r.CurrentHP <= 0 }

// Normalize repairs a record read from storage or copied back from a battle.
//
// Postcondition: 1 <= Level <= MaxLevel; XP >= 0; Bond >= 0; every stat >= 1;
// 1 <= CurrentHP <= Stats.HP; Status is valid; Moves holds no duplicates or
// empty ids and len(Moves) <= MoveCap(Level).
func (r *Record) Normalize() {
	r.Level = min(max(r.Level, 1), MaxLevel)
	r.XP = max(r.XP, 0)
	r.Bond = max(r.Bond, 0)
	r.Stats.HP = max(r.Stats.HP, 1)
	r.Stats.Atk = max(r.Stats.Atk, 1)
	r.Stats.Def = max(r.Stats.Def, 1)
	r.Stats.Spd = max(r.Stats.Spd, 1)
	r.CurrentHP = min(max(r.CurrentHP, 1), r.Stats.HP)
	if !r.Status.Valid() {
		r.Status = StatusNone
	}

	seen := make(map[string]bool, len(r.Moves))
	moves := make([]string, 0, len(r.Moves))
	for _, m := range r.Moves {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		moves = append(moves, m)
	}
	if limit := MoveCap(r.Level); len(moves) > limit {
		moves = moves[len(moves)-limit:]
	}
	r.Moves = moves
}

// KnowsMove reports whether id is in the record's move list.
func (r *Record) KnowsMove(id string) bool {
	return slices.Contains(r.Moves, id)
}

// LearnMove adds id when a slot is free.
//
// Postcondition: Returns true iff the move was appended. Returns false when the
// move is already known or len(Moves) >= MoveCap(Level); the caller must then
// offer ReplaceMove or let the player decline.
func (r *Record) LearnMove(id string) bool {
	if id == "" || r.KnowsMove(id) || len(r.Moves) >= MoveCap(r.Level) {
		return false
	}
	r.Moves = append(r.Moves, id)
	return true
}

// ReplaceMove overwrites the move in slot with id.
//
// Precondition: 0 <= slot < len(Moves).
// Postcondition: Returns an error and leaves Moves unchanged when slot is out of
// range or id is already known.
func (r *Record) ReplaceMove(slot int, id string) error {
	if slot < 0 || slot >= len(r.Moves) {
		return fmt.Errorf("creature: move slot %d out of range [0, %d)", slot, len(r.Moves))
	}
	if id == "" {
		return fmt.Errorf("creature: move id must not be empty")
	}
	if r.KnowsMove(id) {
		return fmt.Errorf("creature: move %q already known", id)
	}
	r.Moves[slot] = id
	return nil
}
