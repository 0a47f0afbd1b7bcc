package progression_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/critterbound/internal/game/catalog"
	"github.com/cory-johannsen/critterbound/internal/game/creature"
	"github.com/cory-johannsen/critterbound/internal/game/progression"
	"github.com/cory-johannsen/critterbound/internal/game/typechart"
)

func testRegistry(t testing.TB) *catalog.Registry {
	t.Helper()
	reg := catalog.NewRegistry()
	for _, m := range []*catalog.Move{
		{ID: "tackle", Element: typechart.Normal, Power: 30},
		{ID: "ember", Element: typechart.Fire, Power: 40},
		{ID: "scratch", Element: typechart.Normal, Power: 35},
		{ID: "quake", Element: typechart.Earth, Power: 75},
		{ID: "flame_burst", Element: typechart.Fire, Power: 65},
		{ID: "focus", Element: typechart.Normal, Effect: &catalog.StatusEffect{Kind: catalog.EffectAtkUp, Stages: 1, Target: catalog.TargetSelf}},
	} {
		require.NoError(t, reg.RegisterMove(m))
	}

	base := creature.Stats{HP: 40, Atk: 40, Def: 40, Spd: 40}
	big := creature.Stats{HP: 60, Atk: 60, Def: 60, Spd: 60}
	species := []*catalog.Species{
		{ID: "pebblet", Element: typechart.Earth, BaseStats: base,
			Learnset: []catalog.LearnsetEntry{{Level: 5, Move: "scratch"}, {Level: 7, Move: "quake"}, {Level: 7, Move: "quake"}}},
		{ID: "emberkit", Element: typechart.Fire, BaseStats: base,
			Learnset:  []catalog.LearnsetEntry{{Level: 16, Move: "flame_burst"}},
			Evolution: &catalog.EvolutionRule{Method: catalog.MethodLevel, To: "blazecat", AtLevel: 16}},
		{ID: "blazecat", Element: typechart.Fire, BaseStats: big},
		{ID: "puddlepup", Element: typechart.Water, BaseStats: base,
			Evolution: &catalog.EvolutionRule{Method: catalog.MethodFriendship, To: "tidehound", FriendshipLevel: 28, MinLevel: 14}},
		{ID: "tidehound", Element: typechart.Water, BaseStats: big},
		{ID: "cuddlebug", Element: typechart.Normal, BaseStats: base,
			Evolution: &catalog.EvolutionRule{Method: catalog.MethodFriendship, To: "tidehound", FriendshipLevel: 5}},
		{ID: "sproutling", Element: typechart.Grass, BaseStats: base,
			Evolution: &catalog.EvolutionRule{Method: catalog.MethodUseItem, To: "bloomguard", ItemID: "sun_stone", MinLevel: 10}},
		{ID: "bloomguard", Element: typechart.Grass, BaseStats: big},
		{ID: "voltmouse", Element: typechart.Electric, BaseStats: base,
			Evolution: &catalog.EvolutionRule{Method: catalog.MethodRegion, To: "stormrat", AtLevel: 18, MapIDs: []string{"storm_peaks", "thunder_plains"}}},
		{ID: "stormrat", Element: typechart.Electric, BaseStats: big},
		{ID: "duskmoth", Element: typechart.Shadow, BaseStats: base,
			Evolution: &catalog.EvolutionRule{Method: catalog.MethodTimed, To: "lunamoth", AtLevel: 20, StoryFlag: "eclipse_seen", Parity: catalog.ParityOdd}},
		{ID: "lunamoth", Element: typechart.Light, BaseStats: big},
		{ID: "lostling", Element: typechart.Normal, BaseStats: base,
			Evolution: &catalog.EvolutionRule{Method: catalog.MethodLevel, To: "ghost", AtLevel: 5}},
	}
	for _, s := range species {
		s.BaseMoves = []string{"tackle", "ember", "focus"}
		require.NoError(t, reg.RegisterSpecies(s))
	}
	return reg
}

func newRecord(t testing.TB, reg *catalog.Registry, speciesID string, level int) *creature.Record {
	t.Helper()
	sp, ok := reg.Species(speciesID)
	require.True(t, ok)
	return sp.NewRecord(level)
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, 25, progression.XPToNextLevel(1))
	assert.Equal(t, 29, progression.XPToNextLevel(2))
	assert.Equal(t, 25, progression.XPToNextLevel(-20))
}

func TestXPToNextLevel_HugeLevelsStayAtCap(t *testing.T) {
	top := progression.XPToNextLevel(creature.MaxLevel)
	for _, level := range []int{creature.MaxLevel + 1, 245, 246, 10_000, math.MaxInt} {
		assert.Equal(t, top, progression.XPToNextLevel(level), "level %d", level)
	}
}

func TestXPToNextLevel_Property_StrictlyIncreasing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, creature.MaxLevel-1).Draw(rt, "level")
		assert.Greater(rt, progression.XPToNextLevel(n+1), progression.XPToNextLevel(n))
	})
}

func TestBattleXPReward(t *testing.T) {
	assert.Equal(t, 138, progression.BattleXPReward(10, progression.BattleWild))
	assert.Equal(t, 165, progression.BattleXPReward(10, progression.BattleTrainer))
	assert.Equal(t, 30, progression.BattleXPReward(1, progression.BattleWild))
}

func TestApplyExperienceGain_CascadesMultipleLevels(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)
	rec := newRecord(t, reg, "pebblet", 4)
	require.Equal(t, 0, rec.XP)

	res := sys.ApplyExperienceGain(rec, 1000, progression.Context{})
	assert.Equal(t, 1000, res.GainedXP)
	assert.Greater(t, len(res.LevelUps), 1)
	assert.Greater(t, res.Level, 4)
	assert.Equal(t, rec.Level, res.Level)
	assert.Less(t, rec.XP, progression.XPToNextLevel(res.Level))

	for i, lu := range res.LevelUps {
		assert.Equal(t, 5+i, lu.Level)
		assert.Equal(t, lu.Level-1, lu.PreviousLevel)
		assert.GreaterOrEqual(t, lu.NextMaxHP, lu.PreviousMaxHP)
		assert.Nil(t, lu.Evolution)
	}
	sp, _ := reg.Species("pebblet")
	assert.Equal(t, creature.CalculateStats(sp.BaseStats, rec.Level), rec.Stats)
}

func TestApplyExperienceGain_PreservesHPHeadroom(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)
	rec := newRecord(t, reg, "pebblet", 4)
	rec.CurrentHP = rec.Stats.HP - 5

	res := sys.ApplyExperienceGain(rec, progression.XPToNextLevel(4), progression.Context{})
	require.Len(t, res.LevelUps, 1)
	assert.Equal(t, 5, rec.Level)
	assert.Equal(t, 0, rec.XP)
	assert.Equal(t, rec.Stats.HP-5, rec.CurrentHP)
}

func TestApplyExperienceGain_ReportsLearnableMovesOnly(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)

	rec := newRecord(t, reg, "pebblet", 4)
	before := rec.Clone().Moves
	res := sys.ApplyExperienceGain(rec, progression.XPToNextLevel(4), progression.Context{})
	require.Len(t, res.LevelUps, 1)
	assert.Equal(t, []string{"scratch"}, res.LevelUps[0].LearnedMoves)
	assert.Equal(t, before, rec.Moves)

	rec = newRecord(t, reg, "pebblet", 4)
	rec.Moves = []string{"tackle", "scratch"}
	res = sys.ApplyExperienceGain(rec, progression.XPToNextLevel(4), progression.Context{})
	assert.Empty(t, res.LevelUps[0].LearnedMoves)

	rec = newRecord(t, reg, "pebblet", 6)
	res = sys.ApplyExperienceGain(rec, progression.XPToNextLevel(6), progression.Context{})
	assert.Equal(t, []string{"quake"}, res.LearnedMoves())
}

func TestApplyExperienceGain_Bond(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)
	cases := []struct {
		gained int
		bond   int
	}{
		{gained: -50, bond: 0},
		{gained: 0, bond: 0},
		{gained: 10, bond: 1},
		{gained: 20, bond: 1},
		{gained: 100, bond: 5},
	}
	for _, tc := range cases {
		rec := newRecord(t, reg, "pebblet", 30)
		res := sys.ApplyExperienceGain(rec, tc.gained, progression.Context{})
		assert.Equal(t, tc.bond, rec.Bond, "gained %d", tc.gained)
		assert.Equal(t, max(tc.gained, 0), res.GainedXP)
		assert.GreaterOrEqual(t, rec.XP, 0)
	}
}

func TestApplyExperienceGain_StopsAtMaxLevel(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)

	rec := newRecord(t, reg, "pebblet", 49)
	res := sys.ApplyExperienceGain(rec, 10_000_000, progression.Context{})
	assert.Len(t, res.LevelUps, 1)
	assert.Equal(t, creature.MaxLevel, rec.Level)
	assert.Less(t, rec.XP, progression.XPToNextLevel(creature.MaxLevel))

	res = sys.ApplyExperienceGain(rec, 10_000_000, progression.Context{})
	assert.Empty(t, res.LevelUps)
	assert.Equal(t, creature.MaxLevel, res.Level)
	assert.Less(t, rec.XP, progression.XPToNextLevel(creature.MaxLevel))
}

func TestApplyExperienceGain_Property_Terminates(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)
	ids := []string{"pebblet", "emberkit", "puddlepup", "voltmouse", "duskmoth"}
	rapid.Check(t, func(rt *rapid.T) {
		rec := newRecord(t, reg, rapid.SampledFrom(ids).Draw(rt, "species"), rapid.IntRange(1, creature.MaxLevel).Draw(rt, "level"))
		startLevel := rec.Level
		startBond := rec.Bond
		ctx := progression.Context{
			MapID:      rapid.SampledFrom([]string{"", "storm_peaks"}).Draw(rt, "map"),
			StoryFlags: map[string]bool{"eclipse_seen": rapid.Bool().Draw(rt, "flag")},
		}
		res := sys.ApplyExperienceGain(rec, rapid.IntRange(-100, 5_000_000).Draw(rt, "xp"), ctx)

		assert.LessOrEqual(rt, rec.Level, creature.MaxLevel)
		assert.GreaterOrEqual(rt, rec.Level, startLevel)
		assert.Equal(rt, rec.Level-startLevel, len(res.LevelUps))
		assert.GreaterOrEqual(rt, rec.XP, 0)
		assert.Less(rt, rec.XP, progression.XPToNextLevel(rec.Level))
		assert.GreaterOrEqual(rt, rec.Bond, startBond)
		assert.GreaterOrEqual(rt, rec.CurrentHP, 1)
		assert.LessOrEqual(rt, rec.CurrentHP, rec.Stats.HP)
	})
}

func TestApplyExperienceGain_LevelEvolutionInCascade(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)
	rec := newRecord(t, reg, "emberkit", 15)

	gain := progression.XPToNextLevel(15) + progression.XPToNextLevel(16)
	res := sys.ApplyExperienceGain(rec, gain, progression.Context{Trigger: progression.TriggerItem})
	require.Len(t, res.LevelUps, 2)

	first := res.LevelUps[0]
	assert.Equal(t, []string{"flame_burst"}, first.LearnedMoves)
	require.NotNil(t, first.Evolution)
	assert.Equal(t, "emberkit", first.Evolution.FromSpeciesID)
	assert.Equal(t, "blazecat", first.Evolution.ToSpeciesID)
	assert.Equal(t, 16, first.Evolution.Level)
	assert.Nil(t, res.LevelUps[1].Evolution)
	assert.Len(t, res.Evolutions(), 1)

	blazecat, _ := reg.Species("blazecat")
	assert.Equal(t, "blazecat", rec.SpeciesID)
	assert.Equal(t, 17, rec.Level)
	assert.Equal(t, creature.CalculateStats(blazecat.BaseStats, 17), rec.Stats)
	assert.Equal(t, rec.Stats.HP, rec.CurrentHP)
}

func TestApplyExperienceGain_RegionEvolutionUsesContextMap(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)

	rec := newRecord(t, reg, "voltmouse", 17)
	res := sys.ApplyExperienceGain(rec, progression.XPToNextLevel(17), progression.Context{MapID: "meadow"})
	assert.Empty(t, res.Evolutions())
	assert.Equal(t, "voltmouse", rec.SpeciesID)

	rec = newRecord(t, reg, "voltmouse", 17)
	res = sys.ApplyExperienceGain(rec, progression.XPToNextLevel(17), progression.Context{MapID: "thunder_plains"})
	assert.Len(t, res.Evolutions(), 1)
	assert.Equal(t, "stormrat", rec.SpeciesID)
}

func TestTryTriggerEvolution_Rules(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)
	levelUp := progression.Context{Trigger: progression.TriggerLevelUp}
	flags := map[string]bool{"eclipse_seen": true}

	cases := []struct {
		name    string
		species string
		level   int
		bond    int
		ctx     progression.Context
		to      string
	}{
		{name: "level reached", species: "emberkit", level: 16, ctx: levelUp, to: "blazecat"},
		{name: "level above", species: "emberkit", level: 30, ctx: levelUp, to: "blazecat"},
		{name: "level below", species: "emberkit", level: 15, ctx: levelUp},
		{name: "level wrong trigger", species: "emberkit", level: 16, ctx: progression.Context{Trigger: progression.TriggerItem}},
		{name: "friendship met", species: "puddlepup", level: 14, bond: 28, ctx: levelUp, to: "tidehound"},
		{name: "friendship below min level", species: "puddlepup", level: 13, bond: 30, ctx: levelUp},
		{name: "friendship low bond", species: "puddlepup", level: 14, bond: 27, ctx: levelUp},
		{name: "friendship wrong trigger", species: "puddlepup", level: 14, bond: 30, ctx: progression.Context{Trigger: progression.TriggerItem}},
		{name: "friendship default min level", species: "cuddlebug", level: 1, bond: 5, ctx: levelUp, to: "tidehound"},
		{name: "item match", species: "sproutling", level: 10, ctx: progression.Context{Trigger: progression.TriggerItem, ItemID: "sun_stone"}, to: "bloomguard"},
		{name: "item below min level", species: "sproutling", level: 9, ctx: progression.Context{Trigger: progression.TriggerItem, ItemID: "sun_stone"}},
		{name: "item wrong item", species: "sproutling", level: 10, ctx: progression.Context{Trigger: progression.TriggerItem, ItemID: "moon_stone"}},
		{name: "item on level up", species: "sproutling", level: 10, ctx: progression.Context{Trigger: progression.TriggerLevelUp, ItemID: "sun_stone"}},
		{name: "region allowed map", species: "voltmouse", level: 18, ctx: progression.Context{Trigger: progression.TriggerLevelUp, MapID: "storm_peaks"}, to: "stormrat"},
		{name: "region other map", species: "voltmouse", level: 18, ctx: progression.Context{Trigger: progression.TriggerLevelUp, MapID: "meadow"}},
		{name: "region no map", species: "voltmouse", level: 18, ctx: levelUp},
		{name: "region below level", species: "voltmouse", level: 17, ctx: progression.Context{Trigger: progression.TriggerLevelUp, MapID: "storm_peaks"}},
		{name: "timed odd with flag", species: "duskmoth", level: 21, ctx: progression.Context{Trigger: progression.TriggerLevelUp, StoryFlags: flags}, to: "lunamoth"},
		{name: "timed even level", species: "duskmoth", level: 20, ctx: progression.Context{Trigger: progression.TriggerLevelUp, StoryFlags: flags}},
		{name: "timed missing flag", species: "duskmoth", level: 21, ctx: levelUp},
		{name: "timed below level", species: "duskmoth", level: 19, ctx: progression.Context{Trigger: progression.TriggerLevelUp, StoryFlags: flags}},
		{name: "no rule", species: "pebblet", level: 40, ctx: levelUp},
		{name: "unknown target", species: "lostling", level: 10, ctx: levelUp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := newRecord(t, reg, tc.species, tc.level)
			rec.Bond = tc.bond
			before := rec.Clone()

			evo := sys.TryTriggerEvolution(rec, tc.ctx)
			if tc.to == "" {
				assert.Nil(t, evo)
				assert.Equal(t, before, *rec)
				return
			}
			require.NotNil(t, evo)
			assert.Equal(t, tc.species, evo.FromSpeciesID)
			assert.Equal(t, tc.to, evo.ToSpeciesID)
			assert.Equal(t, tc.to, rec.SpeciesID)
			assert.Equal(t, before.Level, rec.Level)
			assert.Equal(t, before.XP, rec.XP)
			assert.Equal(t, before.Moves, rec.Moves)
			assert.Equal(t, before.Stats, evo.PreviousStats)
			assert.Equal(t, rec.Stats, evo.NextStats)
		})
	}
}

func TestTryTriggerEvolution_PreservesHPRatio(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)
	rec := newRecord(t, reg, "puddlepup", 14)
	rec.Bond = 30
	rec.CurrentHP = rec.Stats.HP / 3
	oldRatio := float64(rec.CurrentHP) / float64(rec.Stats.HP)

	evo := sys.TryTriggerEvolution(rec, progression.Context{Trigger: progression.TriggerLevelUp})
	require.NotNil(t, evo)
	assert.Equal(t, "puddlepup", evo.FromSpeciesID)
	assert.Equal(t, "tidehound", evo.ToSpeciesID)
	assert.Equal(t, int(math.Ceil(oldRatio*float64(rec.Stats.HP))), rec.CurrentHP)
	newRatio := float64(rec.CurrentHP) / float64(rec.Stats.HP)
	assert.InDelta(t, oldRatio, newRatio, 1/float64(rec.Stats.HP))
	assert.Greater(t, rec.Stats.HP, evo.PreviousStats.HP)
}

func TestTryTriggerEvolution_Property_NoTriggerLeavesRecordUnchanged(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)
	rapid.Check(t, func(rt *rapid.T) {
		rec := newRecord(t, reg, "emberkit", rapid.IntRange(1, 15).Draw(rt, "level"))
		rec.Bond = rapid.IntRange(0, 500).Draw(rt, "bond")
		rec.CurrentHP = rapid.IntRange(1, rec.Stats.HP).Draw(rt, "hp")
		before := rec.Clone()
		trigger := rapid.SampledFrom([]progression.Trigger{progression.TriggerLevelUp, progression.TriggerItem}).Draw(rt, "trigger")

		assert.Nil(rt, sys.TryTriggerEvolution(rec, progression.Context{Trigger: trigger, ItemID: "sun_stone"}))
		assert.Equal(rt, before, *rec)
	})
}

func TestTryTriggerEvolution_IdenticalTargetIsNoop(t *testing.T) {
	reg := catalog.NewRegistry()
	for _, id := range []string{"tackle", "ember", "scratch"} {
		require.NoError(t, reg.RegisterMove(&catalog.Move{ID: id, Element: typechart.Normal, Power: 30}))
	}
	sp := &catalog.Species{
		ID:        "mirrorkit",
		Element:   typechart.Normal,
		BaseStats: creature.Stats{HP: 40, Atk: 40, Def: 40, Spd: 40},
		BaseMoves: []string{"tackle", "ember", "scratch"},
		Evolution: &catalog.EvolutionRule{Method: catalog.MethodLevel, To: "other", AtLevel: 2},
	}
	require.NoError(t, reg.RegisterSpecies(sp))
	sp.Evolution.To = "mirrorkit"

	sys := progression.New(reg, nil)
	rec := sp.NewRecord(10)
	before := rec.Clone()
	assert.Nil(t, sys.TryTriggerEvolution(rec, progression.Context{Trigger: progression.TriggerLevelUp}))
	assert.Equal(t, before, *rec)
}

func TestApplyItemEvolution(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)

	rec := newRecord(t, reg, "sproutling", 12)
	assert.Nil(t, sys.ApplyItemEvolution(rec, "moon_stone", progression.Context{}))
	assert.Equal(t, "sproutling", rec.SpeciesID)

	evo := sys.ApplyItemEvolution(rec, "sun_stone", progression.Context{Trigger: progression.TriggerLevelUp})
	require.NotNil(t, evo)
	assert.Equal(t, "bloomguard", rec.SpeciesID)
	assert.Equal(t, 12, rec.Level)
}

func TestUnknownSpeciesPanics(t *testing.T) {
	reg := testRegistry(t)
	sys := progression.New(reg, nil)
	rec := &creature.Record{SpeciesID: "ghost", Level: 5, Stats: creature.Stats{HP: 10, Atk: 1, Def: 1, Spd: 1}, CurrentHP: 10}
	assert.Panics(t, func() { sys.ApplyExperienceGain(rec, 10, progression.Context{}) })
	assert.Panics(t, func() { sys.TryTriggerEvolution(rec, progression.Context{Trigger: progression.TriggerLevelUp}) })
	assert.Panics(t, func() { progression.New(nil, nil) })
}

func TestLearnMoves_FillsFreeSlotsAndDefersTheRest(t *testing.T) {
	rec := &creature.Record{Level: 5, Moves: []string{"tackle", "ember"}}
	learned, pending := progression.LearnMoves(rec, []string{"ember", "focus", "scratch"})
	assert.Equal(t, []string{"focus"}, learned)
	assert.Equal(t, []string{"scratch"}, pending)
	assert.Equal(t, []string{"tackle", "ember", "focus"}, rec.Moves)
}

func TestLearnMoves_Property_NeverExceedsCap(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	rapid.Check(t, func(rt *rapid.T) {
		level := rapid.IntRange(1, creature.MaxLevel).Draw(rt, "level")
		rec := &creature.Record{Level: level}
		moves := rapid.SliceOfN(rapid.SampledFrom(pool), 0, 12).Draw(rt, "moves")
		learned, pending := progression.LearnMoves(rec, moves)
		assert.LessOrEqual(rt, len(rec.Moves), creature.MoveCap(level))
		assert.Equal(rt, len(learned), len(rec.Moves))
		for _, p := range pending {
			assert.False(rt, rec.KnowsMove(p))
		}
	})
}

func TestSystem_Logs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reg := testRegistry(t)
	sys := progression.New(reg, zap.New(core))
	rec := newRecord(t, reg, "emberkit", 15)

	sys.ApplyExperienceGain(rec, progression.XPToNextLevel(15), progression.Context{})
	assert.Len(t, logs.FilterMessage("creature leveled up").All(), 1)
	entries := logs.FilterMessage("creature evolved").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "blazecat", entries[0].ContextMap()["to"])

	lost := newRecord(t, reg, "lostling", 6)
	sys.TryTriggerEvolution(lost, progression.Context{Trigger: progression.TriggerLevelUp})
	assert.Len(t, logs.FilterMessage("evolution target not registered").All(), 1)
}
