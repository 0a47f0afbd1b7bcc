package progression

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/critterbound/internal/game/catalog"
	"github.com/cory-johannsen/critterbound/internal/game/creature"
)

// Trigger names the event that may fire an evolution rule.
type Trigger string

const (
	TriggerLevelUp Trigger = "levelUp"
	TriggerItem    Trigger = "item"
)

// Context carries the world state an evolution rule may depend on.
type Context struct {
	Trigger    Trigger
	MapID      string
	StoryFlags map[string]bool
	ItemID     string
}

// Evolution describes a species change applied to a record.
type Evolution struct {
	FromSpeciesID string
	ToSpeciesID   string
	Level         int
	PreviousStats creature.Stats
	NextStats     creature.Stats
	PreviousHP    int
	NextHP        int
}

// TryTriggerEvolution evolves rec when its species' rule matches ctx.
//
// Precondition: rec's species must be registered.
// Postcondition: Returns nil and leaves rec untouched when no rule matches
// or the rule targets an unknown or identical species. Otherwise the species
// and stats change, Level and XP do not, and CurrentHP keeps its ratio of
// max HP, rounded up and at least 1.
func (s *System) TryTriggerEvolution(rec *creature.Record, ctx Context) *Evolution {
	sp := s.mustSpecies(rec.SpeciesID)
	rule := sp.Evolution
	if rule == nil || !ruleMatches(rule, rec, ctx) {
		return nil
	}
	if rule.To == rec.SpeciesID {
		return nil
	}
	target, ok := s.reg.Species(rule.To)
	if !ok {
		s.logger.Warn("evolution target not registered",
			zap.String("species", sp.ID),
			zap.String("to", rule.To),
		)
		return nil
	}

	evo := &Evolution{
		FromSpeciesID: sp.ID,
		ToSpeciesID:   target.ID,
		Level:         rec.Level,
		PreviousStats: rec.Stats,
		PreviousHP:    rec.CurrentHP,
	}
	ratio := float64(rec.CurrentHP) / float64(max(rec.Stats.HP, 1))
	rec.SpeciesID = target.ID
	rec.Stats = creature.CalculateStats(target.BaseStats, rec.Level)
	rec.CurrentHP = min(max(int(math.Ceil(ratio*float64(rec.Stats.HP))), 1), rec.Stats.HP)
	evo.NextStats = rec.Stats
	evo.NextHP = rec.CurrentHP

	s.logger.Info("creature evolved",
		zap.String("record_id", rec.ID),
		zap.String("from", evo.FromSpeciesID),
		zap.String("to", evo.ToSpeciesID),
		zap.Int("level", rec.Level),
		zap.String("method", string(rule.Method)),
	)
	return evo
}

// ApplyItemEvolution fires the item trigger for itemID outside of the
// level-up flow, e.g. when an evolution stone is used from the inventory.
func (s *System) ApplyItemEvolution(rec *creature.Record, itemID string, ctx Context) *Evolution {
	ctx.Trigger = TriggerItem
	ctx.ItemID = itemID
	return s.TryTriggerEvolution(rec, ctx)
}

// ruleMatches dispatches on the rule's method.
func ruleMatches(rule *catalog.EvolutionRule, rec *creature.Record, ctx Context) bool {
	switch rule.Method {
	case catalog.MethodLevel:
		return ctx.Trigger == TriggerLevelUp && rec.Level >= rule.AtLevel
	case catalog.MethodFriendship:
		return ctx.Trigger == TriggerLevelUp &&
			rec.Level >= rule.EffectiveMinLevel() &&
			rec.Bond >= rule.FriendshipLevel
	case catalog.MethodUseItem:
		return ctx.Trigger == TriggerItem &&
			ctx.ItemID != "" && ctx.ItemID == rule.ItemID &&
			rec.Level >= rule.EffectiveMinLevel()
	case catalog.MethodRegion:
		return ctx.Trigger == TriggerLevelUp &&
			rec.Level >= rule.AtLevel &&
			slices.Contains(rule.MapIDs, ctx.MapID)
	case catalog.MethodTimed:
		return ctx.Trigger == TriggerLevelUp &&
			rec.Level >= rule.AtLevel &&
			ctx.StoryFlags[rule.StoryFlag] &&
			parityMatches(rule.Parity, rec.Level)
	default:
		return false
	}
}

func parityMatches(p catalog.Parity, level int) bool {
	switch p {
	case catalog.ParityOdd:
		return level%2 == 1
	case catalog.ParityEven:
		return level%2 == 0
	default:
		return true
	}
}
