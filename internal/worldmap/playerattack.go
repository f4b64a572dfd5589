package worldmap

import (
	"time"

	"github.com/l1jgo/server/internal/combat"
	"github.com/l1jgo/server/internal/geom"
)

// playerPower derives a rough attack power from level alone: the data
// model has no weapon/equipment damage model yet (spec.md's inventory
// is a fixed item-slot array with no combat-stat lookup table), so the
// attacker's own level stands in for original_source's
// Physical.damage + weapon damage sum.
func playerPower(p *PlayerRecord) int32 { return 5 + p.Combat.Level*2 }

func playerDefense(p *PlayerRecord) int32 { return p.Combat.Level }

// onRequestPlayerAttack validates and resolves a player-initiated melee
// hit (spec.md §4.7 validation rules: alive, not stunned, not already
// attacking, cooldown elapsed, in range) against a same-map target,
// then applies it the same way an NPC's hit is applied.
func (a *Actor) onRequestPlayerAttack(m *RequestPlayerAttack) {
	attacker, ok := a.Players[m.Attacker]
	if !ok || attacker.Combat.Dead || attacker.Combat.Stunned || attacker.Combat.Attacking {
		return
	}
	now := time.Now()
	if now.Before(attacker.Combat.AttackTimer) {
		return
	}

	var targetPos geom.Position
	var defense int32
	targetKind := combat.TargetOther
	if tp, ok := a.Players[m.Target]; ok {
		if tp.Combat.Dead {
			return
		}
		targetPos = tp.Position.Pos
		defense = playerDefense(tp)
		targetKind = combat.TargetPlayer
	} else if tn, ok := a.Npcs[m.Target]; ok {
		if tn.Combat.Dead {
			return
		}
		targetPos = tn.Pos
		defense = tn.Defense
	} else {
		return
	}

	if !geom.SameMap(attacker.Position.Pos, targetPos) || geom.Distance(attacker.Position.Pos, targetPos) > 1 {
		return
	}

	dmg := combat.Calculate(playerPower(attacker), defense, targetKind, combatParams, damageRNG)
	attacker.Combat.Attacking = true
	a.onApplyDamage(&ApplyDamage{TargetKey: m.Target, AttackerID: m.Attacker, Amount: dmg})
	attacker.Combat.Attacking = false
	attacker.Combat.AttackTimer = now.Add(a.cfg.AttackWaitDefault)
}
