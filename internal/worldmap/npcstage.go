package worldmap

import (
	"time"

	"github.com/l1jgo/server/internal/batch"
	"github.com/l1jgo/server/internal/combat"
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/npcai"
	"github.com/l1jgo/server/internal/protocol"
)

// advanceNpcs steps every live NPC exactly one stage this tick (spec.md
// §4.4: "an NPC advances at most one stage per tick, so a cross-map
// wait never blocks the rest of the map"), and handles the
// dead-until-respawn-timer lifecycle.
func (a *Actor) advanceNpcs(now time.Time) {
	for _, n := range a.Npcs {
		if n.Combat.Dead {
			if now.After(n.DespawnTimer) {
				a.respawnNpc(n, now)
			}
			continue
		}
		a.stepNpc(n, now)
	}
}

func (a *Actor) respawnNpc(n *NpcRecord, now time.Time) {
	a.Grid.Leave(n.Pos.X, n.Pos.Y)
	n.Pos = n.SpawnPos
	n.Combat.Dead = false
	n.Combat.Vital[VitalHP] = n.Combat.VitalMax[VitalHP]
	n.Target = TargetRecord{}
	n.Movement = NpcMovement{}
	n.Stage = npcai.Initial()
	n.HitBy = nil
	a.Grid.Enter(n.Pos.X, n.Pos.Y)
	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindNpcSpawn}, protocol.SNpcSpawn, encodeNpcSpawn(n))
}

func (a *Actor) stepNpc(n *NpcRecord, now time.Time) {
	switch n.Stage.Phase {
	case npcai.PhaseTargeting:
		a.stepTargeting(n, now)
	case npcai.PhaseMovement:
		a.stepMovement(n, now)
	case npcai.PhaseCombat:
		a.stepCombat(n, now)
	}
}

// ---- Targeting ----

func (a *Actor) stepTargeting(n *NpcRecord, now time.Time) {
	switch n.Stage.Target {
	case npcai.TCheckTarget:
		if n.Target.Kind == TargetNone {
			n.Stage.Target = npcai.TGetTarget
			return
		}
		if !a.targetStillValid(n) {
			n.Stage.Target = npcai.TClearTarget
			return
		}
		n.Stage.Phase = npcai.PhaseMovement
		n.Stage.Movement = npcai.MPathStart

	case npcai.TClearTarget:
		n.Target = TargetRecord{}
		n.Stage.Target = npcai.TGetTarget

	case npcai.TGetTarget:
		if !n.Aggressive {
			return // passive NPCs only acquire a target via ApplyDamage (HitBy), handled in onApplyDamage
		}
		if p, pos, ok := a.nearestPlayer(n); ok {
			n.Target = TargetRecord{Kind: TargetPlayer, Key: p.Key, AccountID: p.AccountID, MapPos: a.Pos, TargetPos: pos, Timer: now}
			n.Stage.Target = npcai.TSetTarget
			return
		}
		n.Stage.Target = npcai.TGetTargetFromMaps

	case npcai.TGetTargetFromMaps:
		a.scanNeighborsForTarget(n, now)
		n.Stage.Target = npcai.TCheckTarget

	case npcai.TSetTarget:
		n.Stage.Phase = npcai.PhaseMovement
		n.Stage.Movement = npcai.MPathStart

	default:
		n.Stage.Target = npcai.TCheckTarget
	}
}

func (a *Actor) targetStillValid(n *NpcRecord) bool {
	if n.Target.Kind == TargetPlayer {
		p, ok := a.Players[n.Target.Key]
		return ok && !p.Combat.Dead
	}
	return n.Target.Kind != TargetNone
}

func (a *Actor) nearestPlayer(n *NpcRecord) (*PlayerRecord, geom.Position, bool) {
	var best *PlayerRecord
	var bestDist int32
	for _, p := range a.Players {
		if p.Combat.Dead {
			continue
		}
		if !geom.SameMap(n.Pos, p.Position.Pos) {
			continue
		}
		d := geom.Distance(n.Pos, p.Position.Pos)
		if d > n.Sight {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = p, d
		}
	}
	if best == nil {
		return nil, geom.Position{}, false
	}
	return best, best.Position.Pos, true
}

// scanNeighborsForTarget asks every map in the ring for a snapshot and
// folds in whatever replies happen to already be waiting; a widened
// search is opportunistic rather than exhaustive, since the NPC must
// not block its own map's tick on a remote reply (spec.md §5
// "suspension points").
func (a *Actor) scanNeighborsForTarget(n *NpcRecord, now time.Time) {
	for _, nb := range a.ring() {
		if nb == a.Pos {
			continue
		}
		reply := make(chan MapSnapshot, 1)
		if !a.sendTo(nb, Incoming{SnapshotRequest: &SnapshotRequest{ReplyTo: reply}}) {
			continue
		}
		select {
		case snap := <-reply:
			for _, p := range snap.Players {
				if p.Combat.Dead {
					continue
				}
				n.Target = TargetRecord{Kind: TargetPlayer, Key: p.Key, AccountID: p.AccountID, MapPos: nb, TargetPos: p.Position.Pos, Timer: now}
				return
			}
		default:
		}
	}
}

// ---- Movement ----

func (a *Actor) stepMovement(n *NpcRecord, now time.Time) {
	switch n.Stage.Movement {
	case npcai.MPathStart:
		if n.Target.Kind == TargetNone {
			n.Stage.Phase = npcai.PhaseTargeting
			n.Stage.Target = npcai.TCheckTarget
			return
		}
		if geom.SameMap(n.Pos, n.Target.TargetPos) && geom.Distance(n.Pos, n.Target.TargetPos) <= 1 {
			n.Stage.Movement = npcai.MMoveToCombat
			return
		}
		steps, ok := a.planPath(n)
		if !ok {
			n.PathFails++
			n.Stage.Phase = npcai.PhaseTargeting
			n.Stage.Target = npcai.TClearTarget
			return
		}
		n.PathFails = 0
		n.Movement.Moves = make([]MoveStep, 0, len(steps))
		for _, s := range steps {
			n.Movement.Moves = append(n.Movement.Moves, MoveStep{Pos: s.Pos, Dir: s.Dir})
		}
		n.Movement.Moving = len(n.Movement.Moves) > 0
		n.Stage.Movement = npcai.MNextMove

	case npcai.MNextMove:
		if len(n.Movement.Moves) == 0 {
			n.Movement.Moving = false
			n.Stage.Movement = npcai.MFinishMove
			return
		}
		a.advanceOneStep(n)

	case npcai.MGetTileClaim:
		// Handled asynchronously by processPendingClaims; nothing to do
		// here except wait for the pending entry to clear.
		if _, pending := a.pendingClaims[n.Key]; !pending {
			n.Stage.Movement = npcai.MFinishMove
		}

	case npcai.MFinishMove:
		n.Stage.Phase = npcai.PhaseTargeting
		n.Stage.Target = npcai.TCheckTarget

	case npcai.MMoveToCombat:
		n.Stage.Phase = npcai.PhaseCombat
		n.Stage.Combat = npcai.CEvaluate

	default:
		n.Stage.Movement = npcai.MPathStart
	}
}

func (a *Actor) planPath(n *NpcRecord) ([]npcai.Step, bool) {
	blocked := func(p geom.Position) bool {
		if p.Map != a.Pos {
			return false // cannot verify a remote map's tiles; optimistic
		}
		return a.Grid.At(p.X, p.Y).Blocked(MoverNpc)
	}
	offset := func(m geom.MapPos) (int32, int32) { return m.MX - a.Pos.MX, m.MY - a.Pos.MY }
	allowed := func(m geom.MapPos) bool {
		return m.Group == a.Pos.Group && abs32(m.MX-a.Pos.MX) <= 1 && abs32(m.MY-a.Pos.MY) <= 1
	}
	return npcai.FindPath(n.Pos, n.Target.TargetPos, blocked, offset, allowed, a.cfg.AStarNodeBudget)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func (a *Actor) advanceOneStep(n *NpcRecord) {
	next := n.Movement.Moves[0]
	n.Movement.Direction = next.Dir

	if geom.SameMap(n.Pos, next.Pos) {
		if a.Grid.At(next.Pos.X, next.Pos.Y).Blocked(MoverNpc) {
			n.Movement.Moves = nil
			n.Stage.Movement = npcai.MPathStart
			return
		}
		a.Grid.Leave(n.Pos.X, n.Pos.Y)
		a.Grid.Enter(next.Pos.X, next.Pos.Y)
		n.Pos = next.Pos
		n.Movement.Moves = n.Movement.Moves[1:]
		a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindNpcMove}, protocol.SNpcMove, encodeNpcMove(n))
		return
	}

	// Crossing into a neighbor map: start the claim handoff and suspend
	// (spec.md §4.3); MGetTileClaim polls for the async reply.
	n.Movement.Moves = n.Movement.Moves[1:]
	a.beginCrossMapMove(n.Key, next.Pos, next.Dir, MoverNpc)
	n.Stage.Movement = npcai.MGetTileClaim
}

// ---- Combat ----

var combatParams = combat.Params{MinAttackerDamage: 1, MaxDamage: 9999, ZeroDamageChance: 0.05}

func (a *Actor) stepCombat(n *NpcRecord, now time.Time) {
	switch n.Stage.Combat {
	case npcai.CEvaluate:
		if n.Target.Kind == TargetNone || !a.targetStillValid(n) {
			n.Stage.Phase = npcai.PhaseTargeting
			n.Stage.Target = npcai.TClearTarget
			return
		}
		if !geom.SameMap(n.Pos, n.Target.TargetPos) || geom.Distance(n.Pos, n.Target.TargetPos) > n.Range {
			n.Stage.Phase = npcai.PhaseMovement
			n.Stage.Movement = npcai.MPathStart
			return
		}
		if now.Before(n.Combat.AttackTimer) {
			return
		}
		n.Stage.Combat = npcai.CExecute

	case npcai.CExecute:
		dmg := combat.Calculate(n.Damage, 0, combat.TargetPlayer, combatParams, damageRNG)
		// Target was confirmed same-map in CEvaluate; apply directly
		// instead of round-tripping through this actor's own mailbox.
		a.onApplyDamage(&ApplyDamage{TargetKey: n.Target.Key, AttackerID: n.Key, Amount: dmg})
		n.Combat.Attacking = true
		n.Stage.Combat = npcai.CSchedule

	case npcai.CSchedule:
		n.Combat.Attacking = false
		n.Combat.AttackTimer = now.Add(n.AttackWait)
		n.Stage.Phase = npcai.PhaseTargeting
		n.Stage.Target = npcai.TCheckTarget

	default:
		n.Stage.Combat = npcai.CEvaluate
	}
}
