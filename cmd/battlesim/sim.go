package main

import (
	"fmt"
	"io"

	"github.com/cory-johannsen/critterbound/internal/game/battle"
	"github.com/cory-johannsen/critterbound/internal/game/catalog"
	"github.com/cory-johannsen/critterbound/internal/game/creature"
	"github.com/cory-johannsen/critterbound/internal/game/progression"
	"github.com/cory-johannsen/critterbound/internal/game/typechart"
)

// maxTurns ends a stalled battle as a draw.
const maxTurns = 100

// outcome summarizes one simulated battle.
type outcome struct {
	Winner   battle.Role
	Turns    int
	Progress progression.Result
	Learned  []string
	Pending  []string
}

// bestMove picks the known move with the highest power times type multiplier
// against target. When no move deals damage the first status move is used.
//
// Postcondition: Returns "" only when c knows no registered move.
func bestMove(reg *catalog.Registry, c, target battle.Combatant) string {
	best, bestScore := "", 0.0
	status := ""
	for _, id := range c.Moves {
		m, ok := reg.Move(id)
		if !ok {
			continue
		}
		if m.Power == 0 {
			if status == "" {
				status = id
			}
			continue
		}
		score := float64(m.Power) * typechart.Multiplier(m.Element, target.Element)
		if score > bestScore {
			best, bestScore = id, score
		}
	}
	if best == "" {
		return status
	}
	return best
}

// simulate fights player against enemy until one faints or maxTurns pass,
// writing every action to w. On a player win the player's record receives
// experience, and moves learned on level-up are added while slots are free.
//
// Precondition: both species must be registered in reg.
// Postcondition: player carries the battle's HP and status, and any
// progression gained.
func simulate(
	reg *catalog.Registry,
	sys *progression.System,
	player *creature.Record,
	enemy creature.Record,
	opts battle.Options,
	bt progression.BattleType,
	ctx progression.Context,
	w io.Writer,
) (outcome, error) {
	e := battle.New(reg, *player, enemy, opts)
	st := e.State()
	fmt.Fprintf(w, "%s (Lv %d) vs %s (Lv %d)\n", st.Player.Name, st.Player.Level, st.Enemy.Name, st.Enemy.Level)

	for !e.Over() && e.Turn() < maxTurns {
		st = e.State()
		moveID := bestMove(reg, st.Player, st.Enemy)
		if moveID == "" {
			return outcome{}, fmt.Errorf("%s knows no usable move", st.Player.Name)
		}
		res := e.ResolveTurn(moveID, "")
		fmt.Fprintf(w, "-- turn %d --\n", e.Turn())
		for _, a := range res.Actions {
			if a.Text != "" {
				fmt.Fprintln(w, a.Text)
			}
		}
	}

	out := outcome{Winner: e.Winner(), Turns: e.Turn()}
	e.WriteBack(battle.RolePlayer, player)

	switch out.Winner {
	case battle.RoleNone:
		fmt.Fprintf(w, "The battle stalled after %d turns.\n", out.Turns)
		return out, nil
	case battle.RoleEnemy:
		fmt.Fprintf(w, "%s was defeated.\n", st.Player.Name)
		return out, nil
	}

	gained := progression.BattleXPReward(enemy.Level, bt)
	ctx.Trigger = progression.TriggerLevelUp
	out.Progress = sys.ApplyExperienceGain(player, gained, ctx)
	fmt.Fprintf(w, "Won in %d turns and gained %d XP.\n", out.Turns, gained)
	for _, lu := range out.Progress.LevelUps {
		fmt.Fprintf(w, "Reached level %d (max HP %d -> %d).\n", lu.Level, lu.PreviousMaxHP, lu.NextMaxHP)
		if ev := lu.Evolution; ev != nil {
			fmt.Fprintf(w, "Evolved from %s into %s!\n", ev.FromSpeciesID, ev.ToSpeciesID)
		}
	}
	out.Learned, out.Pending = progression.LearnMoves(player, out.Progress.LearnedMoves())
	for _, m := range out.Learned {
		fmt.Fprintf(w, "Learned %s.\n", m)
	}
	for _, m := range out.Pending {
		fmt.Fprintf(w, "Could not learn %s: no free move slot.\n", m)
	}
	return out, nil
}
