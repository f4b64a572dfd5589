// Package npcai defines the NPC Stage Machine's stage taxonomy
// (spec.md §4.4): the sum-type tag an NPC carries at any instant, plus
// the target-type union associated with it. The stepping logic that
// interprets these stages lives in internal/worldmap (the map actor is
// the only writer of NPC state, so the transition functions need the
// map's grid/entity tables and live in that package to avoid a Go
// import cycle); this package holds the closed, dependency-free
// vocabulary so both worldmap and tests can name stages without
// reaching into map-actor internals.
//
// Grounded 1:1 on the stage names of
// original_source/src/npcs/{logic,movement,combat}.rs.
package npcai

// Phase is the top-level stage (spec.md §4.4: "at any time each NPC
// carries one of three top-level stages").
type Phase uint8

const (
	PhaseTargeting Phase = iota
	PhaseMovement
	PhaseCombat
)

func (p Phase) String() string {
	switch p {
	case PhaseTargeting:
		return "Targeting"
	case PhaseMovement:
		return "Movement"
	case PhaseCombat:
		return "Combat"
	default:
		return "Unknown"
	}
}

// TargetSub enumerates the Targeting sub-states.
type TargetSub uint8

const (
	TCheckTarget TargetSub = iota
	TNpcDeTargetChance
	TCheckDistance
	TClearTarget
	TGetTarget
	TGetTargetFromMaps
	TSetTarget
)

// MovementSub enumerates the Movement sub-states.
type MovementSub uint8

const (
	MPathStart MovementSub = iota
	MGetTargetUpdates
	MClearTarget
	MUpdateTarget
	MUpdateAStarPaths
	MUpdateRandPaths
	MSetMovePath
	MClearMovePath
	MNextMove
	MCheckBlock
	MProcessMovement
	MProcessTarget
	MGetTileClaim
	MSwitchMaps
	MMapSwitchFinish
	MFinishMove
	MMoveToCombat
)

// CombatSub enumerates the Combat sub-states.
type CombatSub uint8

const (
	CEvaluate CombatSub = iota // behavior/range/line-of-fire checks
	CExecute                   // compute + apply damage
	CSchedule                  // arm attack_wait, return to Targeting
)

// Behavior is the NPC combat-participation policy (spec.md §4.4).
type Behavior uint8

const (
	BehaviorAggressive Behavior = iota
	BehaviorReactive
	BehaviorHelpReactive
	BehaviorAggressiveHealer
	BehaviorReactiveHealer
)

// Stage is the tag an NPC carries at any instant. Exactly one of
// Target/Movement/Combat is meaningful, selected by Phase — callers
// must check Phase before reading the sub-state (design notes:
// "implement as tagged unions with explicit accessors; never peek at
// the payload without checking the tag").
type Stage struct {
	Phase    Phase
	Target   TargetSub
	Movement MovementSub
	Combat   CombatSub
}

// Initial is the stage a freshly spawned NPC starts in.
func Initial() Stage {
	return Stage{Phase: PhaseTargeting, Target: TCheckTarget}
}
