package system

import (
	coresys "github.com/mageling/arena/internal/core/system"
	"github.com/mageling/arena/internal/sim"
)

// CleanupSystem flushes the deferred entity destruction queue at frame end.
type CleanupSystem struct{}

func NewCleanupSystem() *CleanupSystem { return &CleanupSystem{} }

func (s *CleanupSystem) Stage() coresys.Stage { return coresys.StageCleanup }

func (s *CleanupSystem) Update(f *sim.Frame) {
	f.World.ECS().FlushDestroyQueue()
}
