package system

import "testing"

type recorder struct {
	stage Stage
	name  string
}

func (r recorder) Stage() Stage { return r.stage }

func (r recorder) Update(log *[]string) { *log = append(*log, r.name) }

func TestRunnerOrdersByStageThenRegistration(t *testing.T) {
	r := NewRunner[*[]string]()
	r.Register(recorder{StageCleanup, "cleanup"})
	r.Register(recorder{StageWallCollision, "walls-a"})
	r.Register(recorder{StageMovementIntent, "intent"})
	r.Register(recorder{StageWallCollision, "walls-b"})

	var log []string
	r.Tick(&log)
	want := []string{"intent", "walls-a", "walls-b", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("ran %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("ran %v, want %v", log, want)
		}
	}
}

func TestTickStageRunsOnlyThatStage(t *testing.T) {
	r := NewRunner[*[]string]()
	r.Register(recorder{StageVelocity, "velocity"})
	r.Register(recorder{StageDashTimer, "dash"})
	var log []string
	r.TickStage(StageDashTimer, &log)
	if len(log) != 1 || log[0] != "dash" {
		t.Fatalf("TickStage ran %v", log)
	}
}

func TestStageString(t *testing.T) {
	if StageSpellLifetime.String() != "SpellLifetime" {
		t.Fatalf("got %q", StageSpellLifetime.String())
	}
	if Stage(99).String() != "Stage(99)" {
		t.Fatalf("got %q", Stage(99).String())
	}
}
