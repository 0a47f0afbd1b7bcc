// Package progression converts battle experience into level-ups, reports
// newly learnable moves and triggers evolutions. It draws no random numbers.
package progression

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/critterbound/internal/game/catalog"
	"github.com/cory-johannsen/critterbound/internal/game/creature"
)

// maxCascade bounds the level-up loop of a single experience award.
const maxCascade = 100

// BattleType distinguishes wild encounters from trainer battles.
type BattleType string

const (
	BattleWild    BattleType = "wild"
	BattleTrainer BattleType = "trainer"
)

// trainerBonus multiplies the reward of a trainer battle.
const trainerBonus = 1.2

// XPToNextLevel returns the experience needed to advance from level. Levels
// outside [1, creature.MaxLevel] are clamped into it, so the curve never
// leaves the int range.
//
// Postcondition: Returns >= 10; strictly increasing on [1, creature.MaxLevel]
// and never smaller than XPToNextLevel(creature.MaxLevel) above it.
func XPToNextLevel(level int) int {
	level = min(max(level, 1), creature.MaxLevel)
	return max(10, int(math.Floor(25*math.Pow(1.18, float64(level-1)))))
}

// BattleXPReward returns the experience awarded for defeating an enemy at
// enemyLevel.
func BattleXPReward(enemyLevel int, bt BattleType) int {
	base := 18 + enemyLevel*12
	if bt == BattleTrainer {
		return int(math.Floor(float64(base) * trainerBonus))
	}
	return base
}

// LevelUp records one step of a level-up cascade.
type LevelUp struct {
	PreviousLevel int
	Level         int
	PreviousMaxHP int
	NextMaxHP     int
	// LearnedMoves lists learnset moves keyed to Level that the creature did
	// not already know. They are not added to the record; see LearnMoves.
	LearnedMoves []string
	// Evolution is non-nil when the creature evolved at this level.
	Evolution *Evolution
}

// Result is returned by ApplyExperienceGain.
type Result struct {
	GainedXP int
	Level    int
	LevelUps []LevelUp
}

// LearnedMoves returns every move reported across the cascade, in order.
func (r Result) LearnedMoves() []string {
	var out []string
	for _, lu := range r.LevelUps {
		out = append(out, lu.LearnedMoves...)
	}
	return out
}

// Evolutions returns every evolution that fired during the cascade.
func (r Result) Evolutions() []*Evolution {
	var out []*Evolution
	for _, lu := range r.LevelUps {
		if lu.Evolution != nil {
			out = append(out, lu.Evolution)
		}
	}
	return out
}

// System applies experience and evolutions against the species catalog.
type System struct {
	reg    *catalog.Registry
	logger *zap.Logger
}

// New returns a System backed by reg.
//
// Precondition: reg must be non-nil.
// Postcondition: logger may be nil; a no-op logger is used in that case.
func New(reg *catalog.Registry, logger *zap.Logger) *System {
	if reg == nil {
		panic("progression: New called with nil registry")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{reg: reg, logger: logger}
}

func (s *System) mustSpecies(id string) *catalog.Species {
	sp, ok := s.reg.Species(id)
	if !ok {
		panic(fmt.Sprintf("progression: unknown species %q", id))
	}
	return sp
}

// ApplyExperienceGain adds gained experience to rec and resolves the
// resulting level-ups. rec is mutated in place. Every level-up recalculates
// stats for the creature's species at the new level, raises CurrentHP by the
// max HP growth, reports learnable moves and attempts a level-up evolution
// using ctx's map and story flags.
//
// Precondition: rec must be non-nil and its species registered.
// Postcondition: rec.Level <= creature.MaxLevel; rec.XP < XPToNextLevel(rec.Level);
// rec.Bond never decreases.
func (s *System) ApplyExperienceGain(rec *creature.Record, gained int, ctx Context) Result {
	s.mustSpecies(rec.SpeciesID)
	gained = max(gained, 0)
	rec.XP += gained
	if gained > 0 {
		rec.Bond += max(1, gained/20)
	}

	levelCtx := ctx
	levelCtx.Trigger = TriggerLevelUp

	res := Result{GainedXP: gained}
	for i := 0; i < maxCascade && rec.Level < creature.MaxLevel; i++ {
		cost := XPToNextLevel(rec.Level)
		if rec.XP < cost {
			break
		}
		rec.XP -= cost

		sp := s.mustSpecies(rec.SpeciesID)
		prevLevel := rec.Level
		prevMax := rec.Stats.HP
		rec.Level++
		rec.Stats = creature.CalculateStats(sp.BaseStats, rec.Level)
		rec.CurrentHP = min(max(rec.CurrentHP+rec.Stats.HP-prevMax, 1), rec.Stats.HP)

		var learned []string
		for _, m := range sp.MovesLearnedAt(rec.Level) {
			if !rec.KnowsMove(m) {
				learned = append(learned, m)
			}
		}

		lu := LevelUp{
			PreviousLevel: prevLevel,
			Level:         rec.Level,
			PreviousMaxHP: prevMax,
			NextMaxHP:     rec.Stats.HP,
			LearnedMoves:  learned,
		}
		lu.Evolution = s.TryTriggerEvolution(rec, levelCtx)
		res.LevelUps = append(res.LevelUps, lu)

		s.logger.Info("creature leveled up",
			zap.String("record_id", rec.ID),
			zap.String("species", sp.ID),
			zap.Int("level", rec.Level),
			zap.Strings("learnable", learned),
		)
	}
	if rec.Level >= creature.MaxLevel {
		rec.Level = creature.MaxLevel
		rec.XP = min(rec.XP, XPToNextLevel(creature.MaxLevel)-1)
	}
	res.Level = rec.Level
	return res
}

// LearnMoves applies the move learning policy to rec: each move is added
// while a slot is free. Moves that did not fit are returned as pending; the
// caller either offers a replacement via creature.Record.ReplaceMove or
// drops them, which leaves the move set unchanged.
//
// Postcondition: len(rec.Moves) <= creature.MoveCap(rec.Level).
func LearnMoves(rec *creature.Record, moves []string) (learned, pending []string) {
	for _, m := range moves {
		switch {
		case rec.KnowsMove(m):
		case rec.LearnMove(m):
			learned = append(learned, m)
		default:
			pending = append(pending, m)
		}
	}
	return learned, pending
}
