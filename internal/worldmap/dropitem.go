package worldmap

import (
	"time"

	"github.com/l1jgo/server/internal/batch"
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/protocol"
)

// readingOrderOffsets is the 3x3 neighborhood scan order of spec.md
// §4.6 ("drop placement"): row-major starting at the dropper's own
// tile; only tiles on the dropper's own map are scanned.
var readingOrderOffsets = [9][2]int32{
	{0, 0},
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// findDropTile scans the dropper's tile then its 3x3 neighborhood in
// reading order for the first tile that is not statically blocked to a
// map item and carries no live claim, preferring a stackable match over
// an empty tile. Offsets that fall outside this map's grid are skipped;
// tiles on neighbor maps are never considered.
func (a *Actor) findDropTile(origin geom.Position, want protocol.ItemDescriptor) (tile geom.Position, sameMap bool, stack bool) {
	best := geom.Position{}
	found := false
	for _, off := range readingOrderOffsets {
		x, y := origin.X+off[0], origin.Y+off[1]
		if !geom.InBounds(x, y) {
			continue
		}
		t := a.Grid.At(x, y)
		if t.Blocked(MoverMapItem) || !t.Claim.IsZero() {
			continue
		}
		if t.HasItem {
			if existing, ok := a.itemAt(x, y); ok && stacksWith(existing.Descriptor, want) {
				return geom.Position{X: x, Y: y, Map: origin.Map}, true, true
			}
			continue
		}
		if !found {
			best = geom.Position{X: x, Y: y, Map: origin.Map}
			found = true
		}
	}
	return best, found, false
}

func (a *Actor) itemAt(x, y int32) (*MapItemRecord, bool) {
	for _, it := range a.Items {
		if it.Pos.X == x && it.Pos.Y == y {
			return it, true
		}
	}
	return nil, false
}

// stacksWith reports whether two item descriptors merge into one pile
// (both non-empty, num matches, val identical).
func stacksWith(a, b protocol.ItemDescriptor) bool {
	return !a.Empty() && !b.Empty() && a.Num == b.Num && a.Val == b.Val
}

// onRequestItemDrop is the cross-map half of the drop handshake (spec.md
// §4.3/§4.6): reads the dropper's own inventory slot (the map actor is
// the sole writer of player state, so dispatch never peeks at it
// directly), scans the reading-order neighborhood of the dropper's own
// tile for a placement via findDropTile, then reserves that tile before
// the caller commits the removal from inventory.
func (a *Actor) onRequestItemDrop(m *RequestItemDrop) {
	now := time.Now()

	p, ok := a.Players[m.Attacker]
	if !ok || m.Slot < 0 || m.Slot >= InventorySize {
		select {
		case m.ReplyTo <- DropClaimReply{Accepted: 0}:
		default:
		}
		return
	}
	slot := p.Inventory[m.Slot]
	if slot.Empty() || slot.Item.Val < m.Amount {
		select {
		case m.ReplyTo <- DropClaimReply{Accepted: 0}:
		default:
		}
		return
	}
	want := slot.Item

	dest, found, _ := a.findDropTile(m.Tile, want)
	if !found {
		select {
		case m.ReplyTo <- DropClaimReply{Accepted: 0}:
		default:
		}
		return
	}

	tile := a.Grid.At(dest.X, dest.Y)
	if tile.Blocked(MoverMapItem) || !tile.Claim.IsZero() || a.Claims.tileHasLiveClaim(dest, now) {
		select {
		case m.ReplyTo <- DropClaimReply{Accepted: 0}:
		default:
		}
		return
	}

	key := a.Claims.Grant(ClaimItemDrop, dest, m.Amount, a.cfg.ClaimGrace, now)
	tile.Claim = key
	select {
	case m.ReplyTo <- DropClaimReply{Claim: key, Item: want, Accepted: m.Amount}:
	default:
		a.Claims.Clear(key)
		tile.Claim = ClaimsKey{}
	}
}

// onDropItemCommit materializes the dropped item once the dropper has
// confirmed the claim (spec.md §4.3 step 6, item-drop variant): it
// removes (or partially decrements) the source inventory slot, then
// allocates a fresh key through the identity registry for the ground
// item and clears the reservation.
func (a *Actor) onDropItemCommit(m *DropItemCommit) {
	rec, ok := a.Claims.Validate(m.Claim, time.Now())
	if !ok {
		return
	}
	pos := rec.tile
	a.Claims.Clear(m.Claim)
	t := a.Grid.At(pos.X, pos.Y)
	t.Claim = ClaimsKey{}

	if p, ok := a.Players[m.Attacker]; ok && m.Slot >= 0 && m.Slot < InventorySize {
		slot := &p.Inventory[m.Slot]
		if slot.Item.Val <= m.Amount {
			*slot = InventorySlot{}
		} else {
			slot.Item.Val -= m.Amount
		}
	}

	item := &MapItemRecord{Descriptor: m.Item, Pos: geom.Position{X: pos.X, Y: pos.Y, Map: a.Pos}, OwnerAcct: m.Owner}
	if m.Owner != nil {
		grace := time.Now().Add(15 * time.Second)
		item.OwnerGrace = &grace
	}
	a.reg.SpawnItem(a.Pos, item, nil)
}

// dropAdvance is called once per tick to expire personal-pickup grace
// windows so any player can then pick the item up (spec.md §4.6).
func (a *Actor) dropAdvance(now time.Time) {
	for _, it := range a.Items {
		if it.OwnerGrace != nil && now.After(*it.OwnerGrace) {
			it.OwnerGrace = nil
			it.OwnerAcct = nil
		}
		if it.DespawnAt != nil && now.After(*it.DespawnAt) {
			t := a.Grid.At(it.Pos.X, it.Pos.Y)
			t.HasItem = false
			t.ItemKey = 0
			delete(a.Items, it.Key)
			a.reg.Remove(it.Key)
			a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindEntityUnload}, protocol.SEntityUnload, encodeUnload(it.Key))
		}
	}
}
