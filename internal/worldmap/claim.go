package worldmap

import (
	"time"

	"github.com/l1jgo/server/internal/geom"
)

// ClaimsKey is the opaque, generation-tagged reservation id of
// spec.md §4.3, the same shape as identity.Key so forged claims can't
// be confused with stale ones after reuse.
type ClaimsKey struct {
	Index uint32
	Gen   uint32
}

func (k ClaimsKey) IsZero() bool { return k == ClaimsKey{} }

// ClaimKind distinguishes an entity-movement claim from a ground-item
// drop reservation (spec.md §4.3).
type ClaimKind uint8

const (
	ClaimMove ClaimKind = iota
	ClaimItemDrop
)

// claimRecord is a live reservation held by the destination map.
type claimRecord struct {
	key     ClaimsKey
	kind    ClaimKind
	tile    geom.Position
	amount  uint16 // ClaimItemDrop: units reserved
	expires time.Time
}

// ClaimTable owns the live claims on one map. A claim is held by at
// most one claimant; a tile with a live claim is treated as
// temporarily blocked to further claims (spec.md §4.3 invariants).
type ClaimTable struct {
	nextIdx uint32
	gen     map[uint32]uint32
	live    map[uint32]*claimRecord
}

func NewClaimTable() *ClaimTable {
	return &ClaimTable{gen: make(map[uint32]uint32), live: make(map[uint32]*claimRecord)}
}

// tileHasLiveClaim reports whether a pending claim already reserves
// this tile (used by AskClaim before granting a second one).
func (c *ClaimTable) tileHasLiveClaim(tile geom.Position, now time.Time) bool {
	for _, rec := range c.live {
		if rec.expires.Before(now) {
			continue // reaped lazily by Reap; treat as gone here
		}
		if rec.tile == tile {
			return true
		}
	}
	return false
}

// Grant records a new claim, returning its key. grace bounds how long
// the destination will hold the tile before reaping it (spec.md §5
// "tile-claim grace").
func (c *ClaimTable) Grant(kind ClaimKind, tile geom.Position, amount uint16, grace time.Duration, now time.Time) ClaimsKey {
	idx := c.nextIdx
	c.nextIdx++
	c.gen[idx]++
	key := ClaimsKey{Index: idx, Gen: c.gen[idx]}
	c.live[idx] = &claimRecord{key: key, kind: kind, tile: tile, amount: amount, expires: now.Add(grace)}
	return key
}

// Validate reports whether key is still a live, unexpired claim, and
// returns its record.
func (c *ClaimTable) Validate(key ClaimsKey, now time.Time) (*claimRecord, bool) {
	rec, ok := c.live[key.Index]
	if !ok || rec.key != key {
		return nil, false
	}
	if rec.expires.Before(now) {
		return nil, false
	}
	return rec, true
}

// Clear removes a claim (on commit, or on reap).
func (c *ClaimTable) Clear(key ClaimsKey) {
	if rec, ok := c.live[key.Index]; ok && rec.key == key {
		delete(c.live, key.Index)
	}
}

// Reap frees every expired claim and returns their tiles, so the
// caller can restore grid occupancy (spec.md §4.3 step 7 / §5 cancellation).
func (c *ClaimTable) Reap(now time.Time) []geom.Position {
	var freed []geom.Position
	for idx, rec := range c.live {
		if rec.expires.Before(now) {
			freed = append(freed, rec.tile)
			delete(c.live, idx)
		}
	}
	return freed
}
