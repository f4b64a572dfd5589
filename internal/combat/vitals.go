package combat

// ApplyDamage subtracts amount from the HP vital, clamping at zero, and
// reports whether the target just died (transitioned from alive to
// dead). It never resurrects: once dead, further damage is a no-op
// report of false (data model invariant: dead stays dead until an
// explicit respawn).
func ApplyDamage(hp *int32, alreadyDead bool, amount int32) (died bool) {
	if alreadyDead {
		return false
	}
	*hp -= amount
	if *hp < 0 {
		*hp = 0
	}
	return *hp == 0
}

// DropRange is one weighted entry of an NPC's drop table (spec.md §4.8
// "NPC death drop-table resolution"): item drops if the roll falls
// within [Min, Max) of a d100000-style roll space.
type DropRange struct {
	Min, Max int32 // half-open [Min, Max)
	ItemNum  uint32
	ItemVal  uint16
	MinCount uint16
	MaxCount uint16
}

// RollDrops evaluates every range against its own independent roll in
// [0, rollSpace), since drop chances are not mutually exclusive
// (spec.md §4.8: multiple items may drop from one kill).
func RollDrops(ranges []DropRange, rollSpace int32, roll func(int32) int32) []DropRange {
	var hits []DropRange
	for _, r := range ranges {
		v := roll(rollSpace)
		if v >= r.Min && v < r.Max {
			hits = append(hits, r)
		}
	}
	return hits
}
