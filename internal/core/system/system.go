package system

import "fmt"

// Stage defines execution ordering within a single simulated frame. The order
// is part of the deterministic contract: every peer runs the same stages in
// the same sequence, and each stage's output is the next stage's input.
type Stage int

const (
	StageMovementIntent  Stage = iota // 0: input → movement state + velocity
	StageAbilityCast                  // 1: cast pipeline, projectile spawn
	StageVelocity                     // 2: integrate positions
	StageDashTimer                    // 3: dash expiry + cooldown
	StageCorrectionClear              // 4: drop last frame's correction axes
	StageShapeSync                    // 5: transform → collision shape
	StageWallCollision                // 6: static geometry resolution
	StageSpellCollision               // 7: projectile hits
	StageSpellLifetime                // 8: projectile phases + despawn
	StageRound                        // 9: round clock and scoring
	StageCleanup                      // 10: destroy queued entities
)

var stageNames = [...]string{
	"MovementIntent",
	"AbilityCast",
	"Velocity",
	"DashTimer",
	"CorrectionClear",
	"ShapeSync",
	"WallCollision",
	"SpellCollision",
	"SpellLifetime",
	"Round",
	"Cleanup",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// System is the interface every pipeline stage implements. C is the per-frame
// context handed to each stage.
type System[C any] interface {
	Stage() Stage
	Update(ctx C)
}
