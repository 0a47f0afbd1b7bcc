// Package battle implements the turn-based battle engine: turn order, damage,
// stat stages, fainting and win detection for one player creature against one
// enemy creature.
package battle

import (
	"slices"

	"github.com/cory-johannsen/critterbound/internal/game/creature"
	"github.com/cory-johannsen/critterbound/internal/game/typechart"
)

// Role identifies which side of the battle a combatant is on.
type Role string

const (
	// RoleNone is reported as the winner while both sides are still standing.
	RoleNone   Role = ""
	RolePlayer Role = "player"
	RoleEnemy  Role = "enemy"
)

// Opponent returns the other side.
func (r Role) Opponent() Role {
	if r == RolePlayer {
		return RoleEnemy
	}
	return RolePlayer
}

// Stage bounds.
const (
	MinStage = -3
	MaxStage = 3
)

// Stages holds the battle-only stat stages. They are never persisted.
//
// Invariant: MinStage <= Atk, Def <= MaxStage.
type Stages struct {
	Atk int
	Def int
}

// StageMultiplier returns the effective-stat multiplier for stage.
func StageMultiplier(stage int) float64 {
	return 1 + float64(stage)*0.25
}

// Combatant is the live battle copy of a creature record.
type Combatant struct {
	Role      Role
	RecordID  string
	SpeciesID string
	Name      string
	Element   typechart.Element
	Level     int
	Stats     creature.Stats
	CurrentHP int
	Status    creature.Status
	Moves     []string
	Stages    Stages
}

// clone returns a deep copy safe to hand to callers.
func (c *Combatant) clone() Combatant {
	out := *c
	out.Moves = slices.Clone(c.Moves)
	return out
}

// Fainted reports whether the combatant has no HP left.
func (c *Combatant) Fainted() bool { return c.CurrentHP <= 0 }

// EffectiveAtk returns attack with the stage multiplier applied.
func (c *Combatant) EffectiveAtk() float64 {
	return float64(c.Stats.Atk) * StageMultiplier(c.Stages.Atk)
}

// EffectiveDef returns defense with the stage multiplier applied.
func (c *Combatant) EffectiveDef() float64 {
	return float64(c.Stats.Def) * StageMultiplier(c.Stages.Def)
}

// applyDamage reduces CurrentHP by amount, flooring at zero.
//
// Precondition: amount must be >= 0.
// Postcondition: 0 <= CurrentHP.
func (c *Combatant) applyDamage(amount int) {
	c.CurrentHP = max(c.CurrentHP-amount, 0)
}
