// Package combat implements the damage formula and vital-update rules
// of spec.md §4.8 ("Combat"). Grounded on
// original_source/src/npcs/combat.rs (damage/zero-chance) and the
// teacher's internal/system/combat_sys.go for the divisor-by-target-kind
// shape, generalized to the new Vital array.
package combat

import "math/rand"

// TargetKind selects which defense divisor applies (spec.md §4.8:
// "divided by 4 against a player target, by 2 against anything else").
type TargetKind uint8

const (
	TargetPlayer TargetKind = iota
	TargetOther
)

// Params bounds the damage roll (spec.md §4.8).
type Params struct {
	MinAttackerDamage int32
	MaxDamage         int32
	ZeroDamageChance  float64 // e.g. 0.05 = 5% flat miss regardless of roll
}

// Calculate implements the formula:
//
//	base = max(power - floor(defense/divisor), min_attacker_damage)
//	damage = rand[min_attacker_damage, base], clamped to [1, max_damage]
//
// then applies the independent zero-damage coin flip last, so a "miss"
// can still occur even when base damage would have been lethal.
func Calculate(power, defense int32, target TargetKind, p Params, rng *rand.Rand) int32 {
	divisor := int32(2)
	if target == TargetPlayer {
		divisor = 4
	}

	base := power - defense/divisor
	if base < p.MinAttackerDamage {
		base = p.MinAttackerDamage
	}

	damage := base
	if base > p.MinAttackerDamage {
		damage = p.MinAttackerDamage + rng.Int31n(base-p.MinAttackerDamage+1)
	}

	if damage < 1 {
		damage = 1
	}
	if damage > p.MaxDamage {
		damage = p.MaxDamage
	}

	if p.ZeroDamageChance > 0 && rng.Float64() < p.ZeroDamageChance {
		return 0
	}
	return damage
}
