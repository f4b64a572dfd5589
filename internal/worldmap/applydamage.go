package worldmap

import (
	"math/rand"
	"time"

	"github.com/l1jgo/server/internal/batch"
	"github.com/l1jgo/server/internal/combat"
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/npcai"
	"github.com/l1jgo/server/internal/protocol"
)

var damageRNG = rand.New(rand.NewSource(1))

// onApplyDamage delivers a combat hit that was computed on the
// attacker's map to the target's owning map (spec.md §4.8: "apply it
// via a message to the target's owning map" — damage is never applied
// by reaching across map boundaries directly).
func (a *Actor) onApplyDamage(m *ApplyDamage) {
	if p, ok := a.Players[m.TargetKey]; ok {
		died := combat.ApplyDamage(&p.Combat.Vital[VitalHP], p.Combat.Dead, m.Amount)
		if died {
			a.onPlayerDeath(p)
		}
		a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindDamage}, protocol.SDamage, encodeDamage(m.AttackerID, m.TargetKey, m.Amount))
		return
	}
	if n, ok := a.Npcs[m.TargetKey]; ok {
		if n.HitBy == nil {
			n.HitBy = make(map[identity.Key]HitEntry)
		}
		died := combat.ApplyDamage(&n.Combat.Vital[VitalHP], n.Combat.Dead, m.Amount)
		a.recordHit(n, m.AttackerID, m.Amount)
		if died {
			a.onNpcDeath(n)
		} else if n.Target.Kind == TargetNone {
			if p, ok := a.Players[m.AttackerID]; ok && !p.Combat.Dead {
				n.Target = TargetRecord{Kind: TargetPlayer, Key: p.Key, AccountID: p.AccountID, MapPos: a.Pos, TargetPos: p.Position.Pos, Timer: time.Now()}
				if n.Stage.Phase == npcai.PhaseTargeting {
					n.Stage.Target = npcai.TCheckTarget
				}
			}
		}
		a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindDamage}, protocol.SDamage, encodeDamage(m.AttackerID, m.TargetKey, m.Amount))
	}
}

func (a *Actor) recordHit(n *NpcRecord, attacker identity.Key, amount int32) {
	prev := n.HitBy[attacker]
	n.HitBy[attacker] = HitEntry{Damage: prev.Damage + amount, Timestamp: time.Now()}
}

func (a *Actor) onPlayerDeath(p *PlayerRecord) {
	p.Combat.Dead = true
	p.Combat.Attacking = false
	p.Combat.InCombat = false
	p.Using = UsingState{}
	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindPlayerDir}, protocol.SPlayerDir, encodeDir(p.Key, uint8(p.Position.Direction), true))
}

func (a *Actor) onNpcDeath(n *NpcRecord) {
	n.Combat.Dead = true
	n.DespawnTimer = time.Now().Add(a.cfg.DeathRespawnDelay)
	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindNpcDir}, protocol.SNpcDir, encodeDir(n.Key, uint8(n.Movement.Direction), true))
	a.rollDrops(n)
}

// dropRollSpace is the d100000-style roll space each DropRange's Min/Max
// bounds are expressed against (spec.md §4.8 "Drop resolution on NPC death").
const dropRollSpace = 100000

// rollDrops materializes an NPC's death drops directly onto its own
// tile: unlike a player-initiated drop, a death drop has no claim
// handshake to run since the NPC's own map already owns the tile.
func (a *Actor) rollDrops(n *NpcRecord) {
	for _, hit := range combat.RollDrops(n.DropTable, dropRollSpace, func(space int32) int32 { return damageRNG.Int31n(space) }) {
		val := hit.ItemVal
		if val == 0 {
			val = hit.MinCount
			if hit.MaxCount > hit.MinCount {
				val += uint16(damageRNG.Int31n(int32(hit.MaxCount - hit.MinCount)))
			}
		}
		item := &MapItemRecord{
			Descriptor: protocol.ItemDescriptor{Num: hit.ItemNum, Val: val},
			Pos:        n.Pos,
		}
		a.reg.SpawnItem(a.Pos, item, nil)
	}
}
