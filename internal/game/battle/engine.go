package battle

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/critterbound/internal/game/catalog"
	"github.com/cory-johannsen/critterbound/internal/game/creature"
	"github.com/cory-johannsen/critterbound/internal/game/dice"
	"github.com/cory-johannsen/critterbound/internal/game/typechart"
)

// Damage variance bounds.
const (
	varianceMin  = 0.9
	varianceSpan = 0.2
)

// Source is the subset of dice.Source used by the engine.
type Source interface {
	// Float64 returns a uniformly distributed float in [0, 1).
	Float64() float64
}

// DamageContext is passed to a DamageAdjuster after raw damage is computed.
type DamageContext struct {
	Attacker       Role
	Defender       Role
	Move           *catalog.Move
	RawDamage      int
	TypeMultiplier float64
}

// DamageAdjuster replaces the raw damage of a hit, letting callers layer boss
// shields or multipliers on top of the engine. The engine clamps the result
// to at least 1.
type DamageAdjuster func(DamageContext) int

// Options configures an Engine.
type Options struct {
	// Source drives variance, enemy move choice, speed ties and enemy status
	// accuracy. nil uses a crypto-backed source.
	Source Source
	// EnemyStatusEffectChance is the probability in [0, 1] that an enemy
	// status move succeeds. nil means 1; see Chance.
	EnemyStatusEffectChance *float64
	// DamageAdjuster is optional.
	DamageAdjuster DamageAdjuster
	// Logger is optional; nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns Options with a crypto source and enemy status moves
// that always succeed. It equals the zero Options apart from the explicit
// source.
func DefaultOptions() Options {
	return Options{Source: dice.NewCryptoSource()}
}

// Chance returns p as a value for Options.EnemyStatusEffectChance.
func Chance(p float64) *float64 { return &p }

// statusChance resolves the enemy status success probability.
//
// Postcondition: Returns a value in [0, 1]; 1 when unset.
func (o Options) statusChance() float64 {
	if o.EnemyStatusEffectChance == nil {
		return 1
	}
	return min(max(*o.EnemyStatusEffectChance, 0), 1)
}

// Engine is one live battle between a player combatant and an enemy
// combatant. It is not safe for concurrent use; turns are strictly sequential.
type Engine struct {
	reg          *catalog.Registry
	player       *Combatant
	enemy        *Combatant
	src          Source
	statusChance float64
	adjuster     DamageAdjuster
	logger       *zap.Logger
	turn         int
}

// New starts a battle from snapshots of the player's and enemy's records. The
// records are copied; the engine never mutates them.
//
// Precondition: reg must be non-nil and both records' species must be
// registered. Panics otherwise.
// Postcondition: Each combatant knows its species' base moves when the record
// lists none; CurrentHP is clamped to [1, Stats.HP]; stages start at zero.
func New(reg *catalog.Registry, player, enemy creature.Record, opts Options) *Engine {
	src := opts.Source
	if src == nil {
		src = dice.NewCryptoSource()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		reg:          reg,
		player:       newCombatant(reg, RolePlayer, player),
		enemy:        newCombatant(reg, RoleEnemy, enemy),
		src:          src,
		statusChance: opts.statusChance(),
		adjuster:     opts.DamageAdjuster,
		logger:       logger,
	}
	e.logger.Debug("battle started",
		zap.String("player", e.player.SpeciesID),
		zap.Int("player_level", e.player.Level),
		zap.String("enemy", e.enemy.SpeciesID),
		zap.Int("enemy_level", e.enemy.Level),
	)
	return e
}

func newCombatant(reg *catalog.Registry, role Role, rec creature.Record) *Combatant {
	sp := reg.MustSpecies(rec.SpeciesID)
	moves := rec.Clone().Moves
	if len(moves) == 0 {
		moves = append([]string(nil), sp.BaseMoves...)
	}
	stats := rec.Stats
	stats.HP = max(stats.HP, 1)
	return &Combatant{
		Role:      role,
		RecordID:  rec.ID,
		SpeciesID: rec.SpeciesID,
		Name:      rec.DisplayName(sp.Name),
		Element:   sp.Element,
		Level:     rec.Level,
		Stats:     stats,
		CurrentHP: min(max(rec.CurrentHP, 1), stats.HP),
		Status:    rec.Status,
		Moves:     moves,
	}
}

func (e *Engine) combatant(role Role) *Combatant {
	switch role {
	case RolePlayer:
		return e.player
	case RoleEnemy:
		return e.enemy
	default:
		panic(fmt.Sprintf("battle: unknown role %q", role))
	}
}

func (e *Engine) mustMove(id string) *catalog.Move {
	m, ok := e.reg.Move(id)
	if !ok {
		panic(fmt.Sprintf("battle: unknown move %q", id))
	}
	return m
}

// ResolveTurn resolves one full turn: both sides act, the faster first.
// An empty enemyMoveID picks one of the enemy's moves uniformly at random.
//
// Precondition: playerMoveID (and enemyMoveID when set) must be registered
// moves. Panics otherwise.
// Postcondition: The faster combatant's whole action sequence precedes the
// slower one's; a combatant that fainted earlier in the turn does not act.
func (e *Engine) ResolveTurn(playerMoveID, enemyMoveID string) TurnResult {
	if enemyMoveID == "" {
		enemyMoveID = e.ChooseEnemyMove()
	}
	playerMove := e.mustMove(playerMoveID)
	enemyMove := e.mustMove(enemyMoveID)

	var actions []Action
	if e.playerActsFirst() {
		actions = e.act(RolePlayer, playerMove, actions)
		actions = e.act(RoleEnemy, enemyMove, actions)
	} else {
		actions = e.act(RoleEnemy, enemyMove, actions)
		actions = e.act(RolePlayer, playerMove, actions)
	}
	return e.finish(actions)
}

// ResolvePlayerTurn resolves only the player's action.
//
// Precondition: moveID must be a registered move.
func (e *Engine) ResolvePlayerTurn(moveID string) TurnResult {
	return e.finish(e.act(RolePlayer, e.mustMove(moveID), nil))
}

// ResolveEnemyTurn resolves only the enemy's action. An empty moveID picks
// one at random.
func (e *Engine) ResolveEnemyTurn(moveID string) TurnResult {
	if moveID == "" {
		moveID = e.ChooseEnemyMove()
	}
	return e.finish(e.act(RoleEnemy, e.mustMove(moveID), nil))
}

// ChooseEnemyMove picks one of the enemy's known moves uniformly at random.
//
// Postcondition: Returns an element of the enemy's move list.
func (e *Engine) ChooseEnemyMove() string {
	moves := e.enemy.Moves
	idx := int(e.src.Float64() * float64(len(moves)))
	return moves[min(max(idx, 0), len(moves)-1)]
}

// playerActsFirst compares raw speed; an exact tie costs one random draw.
func (e *Engine) playerActsFirst() bool {
	switch {
	case e.player.Stats.Spd > e.enemy.Stats.Spd:
		return true
	case e.player.Stats.Spd < e.enemy.Stats.Spd:
		return false
	default:
		return e.src.Float64() < 0.5
	}
}

// act appends role's full action sequence for move to actions.
func (e *Engine) act(role Role, move *catalog.Move, actions []Action) []Action {
	actor := e.combatant(role)
	target := e.combatant(role.Opponent())
	if actor.Fainted() || target.Fainted() {
		return actions
	}

	actions = append(actions, Action{
		Kind:   ActionMessage,
		Actor:  role,
		Target: role,
		MoveID: move.ID,
		Text:   fmt.Sprintf("%s used %s!", actor.Name, move.Name),
	})

	if move.IsStatus() {
		return e.applyStatusMove(role, move, actions)
	}
	return e.applyDamageMove(role, move, actions)
}

func (e *Engine) applyStatusMove(role Role, move *catalog.Move, actions []Action) []Action {
	actor := e.combatant(role)
	if role == RoleEnemy && e.statusChance < 1 && e.src.Float64() >= e.statusChance {
		return append(actions, Action{
			Kind:   ActionMessage,
			Actor:  role,
			Target: role.Opponent(),
			MoveID: move.ID,
			Text:   "But it failed!",
		})
	}

	effect := move.Effect
	recipientRole := role
	if effect.Target == catalog.TargetOpponent {
		recipientRole = role.Opponent()
	}
	recipient := e.combatant(recipientRole)

	stat := "attack"
	stage := &recipient.Stages.Atk
	if effect.Kind == catalog.EffectDefUp {
		stat = "defense"
		stage = &recipient.Stages.Def
	}

	current := *stage
	next := min(max(current+effect.Stages, MinStage), MaxStage)
	if next == current {
		direction := "higher"
		if effect.Stages < 0 {
			direction = "lower"
		}
		return append(actions, Action{
			Kind:   ActionMessage,
			Actor:  role,
			Target: recipientRole,
			MoveID: move.ID,
			Text:   fmt.Sprintf("%s's %s cannot go %s!", recipient.Name, stat, direction),
			Stat:   stat,
			Stage:  current,
		})
	}

	*stage = next
	verb := "rose"
	if next < current {
		verb = "fell"
	}
	e.logger.Debug("stat stage changed",
		zap.String("actor", actor.Name),
		zap.String("target", recipient.Name),
		zap.String("stat", stat),
		zap.Int("stage", next),
	)
	return append(actions, Action{
		Kind:   ActionStatChange,
		Actor:  role,
		Target: recipientRole,
		MoveID: move.ID,
		Text:   fmt.Sprintf("%s's %s %s!", recipient.Name, stat, verb),
		Stat:   stat,
		Delta:  next - current,
		Stage:  next,
	})
}

func (e *Engine) applyDamageMove(role Role, move *catalog.Move, actions []Action) []Action {
	attacker := e.combatant(role)
	defender := e.combatant(role.Opponent())

	multiplier := typechart.Multiplier(move.Element, defender.Element)
	variance := varianceMin + e.src.Float64()*varianceSpan
	ratio := attacker.EffectiveAtk() / math.Max(1, defender.EffectiveDef())
	damage := max(1, int(math.Floor(float64(move.Power)*ratio*variance*multiplier)))

	if e.adjuster != nil {
		adjusted := e.adjuster(DamageContext{
			Attacker:       role,
			Defender:       defender.Role,
			Move:           move,
			RawDamage:      damage,
			TypeMultiplier: multiplier,
		})
		damage = max(1, adjusted)
	}

	defender.applyDamage(damage)
	e.logger.Debug("damage dealt",
		zap.String("attacker", attacker.Name),
		zap.String("defender", defender.Name),
		zap.String("move", move.ID),
		zap.Float64("variance", variance),
		zap.Float64("multiplier", multiplier),
		zap.Int("damage", damage),
		zap.Int("hp_after", defender.CurrentHP),
	)

	actions = append(actions, Action{
		Kind:       ActionDamage,
		Actor:      role,
		Target:     defender.Role,
		MoveID:     move.ID,
		Text:       fmt.Sprintf("%s took %d damage.", defender.Name, damage),
		Damage:     damage,
		HPAfter:    defender.CurrentHP,
		Multiplier: multiplier,
	})
	if note := typechart.Describe(multiplier); note != "" {
		actions = append(actions, Action{
			Kind:       ActionMessage,
			Actor:      role,
			Target:     defender.Role,
			MoveID:     move.ID,
			Text:       note,
			Multiplier: multiplier,
		})
	}
	if defender.Fainted() {
		actions = append(actions, Action{
			Kind:   ActionFaint,
			Actor:  role,
			Target: defender.Role,
			MoveID: move.ID,
			Text:   fmt.Sprintf("%s fainted!", defender.Name),
		})
	}
	return actions
}

func (e *Engine) finish(actions []Action) TurnResult {
	e.turn++
	winner := e.Winner()
	e.logger.Debug("turn resolved",
		zap.Int("turn", e.turn),
		zap.Int("actions", len(actions)),
		zap.Int("player_hp", e.player.CurrentHP),
		zap.Int("enemy_hp", e.enemy.CurrentHP),
		zap.String("winner", string(winner)),
	)
	if winner != RoleNone {
		e.logger.Info("battle decided",
			zap.String("winner", string(winner)),
			zap.Int("turns", e.turn),
		)
	}
	return TurnResult{
		Actions: actions,
		Winner:  winner,
		Player:  e.player.clone(),
		Enemy:   e.enemy.clone(),
	}
}

// Winner returns the side still standing, or RoleNone while both stand.
func (e *Engine) Winner() Role {
	switch {
	case e.enemy.Fainted():
		return RolePlayer
	case e.player.Fainted():
		return RoleEnemy
	default:
		return RoleNone
	}
}

// Over reports whether either combatant has fainted.
func (e *Engine) Over() bool { return e.Winner() != RoleNone }

// Turn returns the number of resolving calls made so far.
func (e *Engine) Turn() int { return e.turn }

// Heal restores up to amount HP to role's combatant.
//
// Postcondition: Before <= After <= Max; a negative amount heals nothing.
func (e *Engine) Heal(role Role, amount int) HealResult {
	c := e.combatant(role)
	before := c.CurrentHP
	c.CurrentHP += min(max(amount, 0), max(c.Stats.HP-c.CurrentHP, 0))
	return HealResult{Before: before, After: c.CurrentHP, Max: c.Stats.HP}
}

// ClearStatus removes role's status condition.
//
// Postcondition: Returns true iff a condition was present.
func (e *Engine) ClearStatus(role Role) bool {
	c := e.combatant(role)
	had := c.Status != creature.StatusNone
	c.Status = creature.StatusNone
	return had
}

// SetStatus inflicts status on role's combatant, replacing any existing one.
//
// Precondition: status must be valid.
func (e *Engine) SetStatus(role Role, status creature.Status) {
	if !status.Valid() {
		panic(fmt.Sprintf("battle: invalid status %q", status))
	}
	e.combatant(role).Status = status
}

// State returns deep-cloned snapshots of both combatants. Mutating the result
// has no effect on the engine.
func (e *Engine) State() State {
	return State{Player: e.player.clone(), Enemy: e.enemy.clone()}
}

// WriteBack copies role's final HP and status onto rec and normalizes it, so
// a fainted creature is stored with 1 HP. Stages are discarded.
//
// Precondition: rec must be the record the combatant was created from.
func (e *Engine) WriteBack(role Role, rec *creature.Record) {
	c := e.combatant(role)
	rec.CurrentHP = c.CurrentHP
	rec.Status = c.Status
	rec.Normalize()
}
