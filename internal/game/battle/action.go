package battle

// ActionKind classifies one entry of a turn's action log.
type ActionKind string

const (
	// ActionMessage is a line of battle text: the used-move announcement,
	// effectiveness notes, capped-stage notices and failed status moves.
	ActionMessage ActionKind = "message"
	// ActionDamage records HP lost by Target.
	ActionDamage ActionKind = "damage"
	// ActionStatChange records a stage change on Target.
	ActionStatChange ActionKind = "stat_change"
	// ActionFaint records Target reaching 0 HP.
	ActionFaint ActionKind = "faint"
)

// Action is one step of a resolved turn, emitted in the order the
// presentation layer should play it back.
type Action struct {
	Kind ActionKind
	// Actor is the side whose move produced the action.
	Actor Role
	// Target is the side affected; equal to Actor for self-targeted effects.
	Target Role
	MoveID string
	Text   string
	// Damage and HPAfter are set for ActionDamage.
	Damage     int
	HPAfter    int
	Multiplier float64
	// Stat, Delta and Stage are set for ActionStatChange.
	Stat  string
	Delta int
	Stage int
}

// TurnResult is returned by every resolving call.
type TurnResult struct {
	Actions []Action
	// Winner is RoleNone while both combatants are standing.
	Winner Role
	Player Combatant
	Enemy  Combatant
}

// State is a deep-cloned snapshot of both combatants.
type State struct {
	Player Combatant
	Enemy  Combatant
}

// HealResult reports the effect of Engine.Heal.
type HealResult struct {
	Before int
	After  int
	Max    int
}

// Healed returns the HP actually restored.
func (h HealResult) Healed() int { return h.After - h.Before }
