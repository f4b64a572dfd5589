package worldmap

import (
	"time"

	"github.com/l1jgo/server/internal/batch"
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/protocol"
)

// onVerifyPlayerMove is the map actor's authority check for a player's
// Move packet (spec.md §4.7 gameplay prelude): direction validity was
// already checked by dispatch; here the map checks the grid and either
// applies the move locally or starts the cross-map claim handoff.
func (a *Actor) onVerifyPlayerMove(m *VerifyPlayerMove) {
	p, ok := a.Players[m.Key]
	if !ok {
		return
	}
	if p.Combat.Dead || p.Combat.Stunned {
		return
	}

	dest := geom.Step(m.From, m.Dir)
	p.Position.Direction = m.Dir

	if geom.SameMap(m.From, dest) {
		if a.Grid.Blocked(m.From.X, m.From.Y, m.Dir, dest.X, dest.Y, MoverPlayer) {
			return
		}
		a.Grid.Leave(m.From.X, m.From.Y)
		a.Grid.Enter(dest.X, dest.Y)
		p.Position.Pos = dest
		a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindPlayerMove}, protocol.SPlayerMove, encodeMove(p.Key, p.Position))

		if pdest, ok := a.Portals[dest]; ok {
			a.Grid.Leave(dest.X, dest.Y)
			a.beginCrossMapMove(m.Key, pdest, p.Position.Direction, MoverPlayer)
		}
		return
	}

	a.beginCrossMapMove(m.Key, dest, m.Dir, MoverPlayer)
}

// beginCrossMapMove is the tile-claim handoff of spec.md §4.3: ask the
// destination map for a claim on the landing tile. The ask is sent and
// the tick returns immediately — this map never blocks waiting for the
// reply; onAskClaim's ReplyTo channel is polled from pendingClaims on
// later ticks (processPendingClaims).
func (a *Actor) beginCrossMapMove(k identity.Key, dest geom.Position, dir geom.Direction, kind MoverKind) {
	destMap := dest.Map
	reply := make(chan ClaimGranted, 1)
	if !a.sendTo(destMap, Incoming{AskClaim: &AskClaim{Destination: dest, Kind: kind, ReplyTo: reply}}) {
		return // neighbor map not reachable (not loaded / outside the ring); move simply fails
	}
	a.pendingClaims[k] = pendingClaim{dest: dest, dir: dir, kind: kind, reply: reply, started: time.Now()}
}

// onAskClaim is the destination side of the handoff (spec.md §4.3 step
// 2): grant a short-lived claim on the tile if it is unblocked and not
// already claimed.
func (a *Actor) onAskClaim(m *AskClaim) {
	now := time.Now()
	tile := a.Grid.At(m.Destination.X, m.Destination.Y)

	if tile.Blocked(m.Kind) || !tile.Claim.IsZero() || a.Claims.tileHasLiveClaim(m.Destination, now) {
		select {
		case m.ReplyTo <- ClaimGranted{Granted: false}:
		default:
		}
		return
	}

	key := a.Claims.Grant(ClaimMove, m.Destination, 0, a.cfg.ClaimGrace, now)
	tile.Claim = key
	select {
	case m.ReplyTo <- ClaimGranted{Granted: true, Claim: key}:
	default:
		a.Claims.Clear(key)
		tile.Claim = ClaimsKey{}
	}
}

// processPendingClaims is polled once per tick: for every outstanding
// ask, a non-blocking receive either resumes the move (sending a
// Commit to the destination and removing the entity locally) or, on
// denial, drops the pending entry so the mover can replan.
func (a *Actor) processPendingClaims() {
	for k, pc := range a.pendingClaims {
		select {
		case granted := <-pc.reply:
			delete(a.pendingClaims, k)
			if !granted.Granted {
				continue
			}
			a.commitCrossMapMove(k, pc, granted.Claim)
		default:
		}
	}
}

func (a *Actor) commitCrossMapMove(k identity.Key, pc pendingClaim, claim ClaimsKey) {
	destMap := pc.dest.Map
	switch pc.kind {
	case MoverPlayer:
		p, ok := a.Players[k]
		if !ok {
			return
		}
		p.Position.Pos = pc.dest
		p.Position.Direction = pc.dir
		snapshot := *p
		a.removePlayer(k)
		a.sendTo(destMap, Incoming{Commit: &Commit{Claim: claim, PlayerSnapshot: &snapshot}})
	case MoverNpc:
		n, ok := a.Npcs[k]
		if !ok {
			return
		}
		n.Pos = pc.dest
		n.Movement.Direction = pc.dir
		snapshot := *n
		a.removeNpc(k)
		a.sendTo(destMap, Incoming{Commit: &Commit{Claim: claim, NpcSnapshot: &snapshot}})
	}
}

// onCommit is the final step of the handoff on the destination map
// (spec.md §4.3 step 6): install the entity the source already
// detached, consuming the claim that reserved its landing tile.
func (a *Actor) onCommit(m *Commit) {
	defer a.Claims.Clear(m.Claim)

	switch {
	case m.PlayerSnapshot != nil:
		p := m.PlayerSnapshot
		a.Players[p.Key] = p
		a.Grid.Enter(p.Position.Pos.X, p.Position.Pos.Y)
		a.clearClaimAt(p.Position.Pos)
		a.reg.UpdateOwner(p.Key, a.Pos)
		a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindPlayerSpawn}, protocol.SPlayerSpawn, encodePlayerSpawn(p))
	case m.NpcSnapshot != nil:
		n := m.NpcSnapshot
		a.Npcs[n.Key] = n
		a.Grid.Enter(n.Pos.X, n.Pos.Y)
		a.clearClaimAt(n.Pos)
		a.reg.UpdateOwner(n.Key, a.Pos)
		a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindNpcSpawn}, protocol.SNpcSpawn, encodeNpcSpawn(n))
	}
}

func (a *Actor) clearClaimAt(pos geom.Position) {
	t := a.Grid.At(pos.X, pos.Y)
	t.Claim = ClaimsKey{}
}

// advancePlayerTimers is the per-player step of the tick: it polls
// outstanding cross-map claims and clears a player's stun once
// AttackTimer has passed. Item-use cooldown and pickup-ready gating are
// not tracked. Attack cooldown is set by onRequestPlayerAttack.
func (a *Actor) advancePlayerTimers(now time.Time) {
	a.processPendingClaims()

	for _, p := range a.Players {
		if p.Combat.Stunned && now.After(p.Combat.AttackTimer) {
			p.Combat.Stunned = false
		}
	}
}
