package data

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/physics"
)

func TestParseLevelLayoutAndLists(t *testing.T) {
	raw := []byte(`
name: tiny
tile_size: 10
layout: |
  ###
  #1#
  #0#
walls:
  - {x: -5, y: -5, w: 4, h: 2}
spawns:
  - {x: 100, y: 0, team: 0}
`)
	lvl, err := ParseLevel(raw)
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	if len(lvl.Walls) != 8 {
		t.Fatalf("walls = %d, want 8", len(lvl.Walls))
	}
	first := lvl.Walls[0].Shape
	if first.Kind != physics.KindAABB || first.Center != geom.V(-5, -5) || first.HalfW != 2 || first.HalfH != 1 {
		t.Fatalf("first wall = %+v", first)
	}
	for i := 1; i < len(lvl.Walls); i++ {
		if geom.Less(lvl.Walls[i].Shape.Center, lvl.Walls[i-1].Shape.Center) {
			t.Fatalf("walls not sorted at %d", i)
		}
	}

	want := []SpawnPoint{
		{Position: geom.V(15, 25), Team: 0},
		{Position: geom.V(100, 0), Team: 0},
		{Position: geom.V(15, 15), Team: 1},
	}
	if len(lvl.Spawns) != len(want) {
		t.Fatalf("spawns = %+v", lvl.Spawns)
	}
	for i := range want {
		if lvl.Spawns[i] != want[i] {
			t.Fatalf("spawn %d = %+v, want %+v", i, lvl.Spawns[i], want[i])
		}
	}
	sp, ok := lvl.SpawnFor(1)
	if !ok || sp.Position != geom.V(15, 15) {
		t.Fatalf("SpawnFor(1) = %+v,%v", sp, ok)
	}
	if _, ok := lvl.SpawnFor(7); ok {
		t.Fatal("SpawnFor(7) found a spawn")
	}
	if teams := lvl.Teams(); len(teams) != 2 || teams[0] != 0 || teams[1] != 1 {
		t.Fatalf("teams = %v", teams)
	}
}

func TestParseLevelErrors(t *testing.T) {
	tests := map[string]string{
		"no spawns":    "walls:\n  - {x: 0, y: 0, w: 1, h: 1}\n",
		"sizeless":     "walls:\n  - {x: 0, y: 0}\nspawns:\n  - {x: 0, y: 0}\n",
		"unknown tile": "layout: |\n  #0?\n",
		"bad yaml":     "walls: [",
	}
	for name, raw := range tests {
		if _, err := ParseLevel([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseAbilityTable(t *testing.T) {
	raw := []byte(`
loadout: [2]
abilities:
  - {id: 2, name: spark, damage: 5, radius: 8, cast_delay: 0.2, max_explosion_frame: 3, cooldown: 1}
  - {id: 1, name: bolt, damage: 9, radius: 4, animation_frame_ticks: 3, max_explosion_frame: 2}
`)
	tbl, err := ParseAbilityTable(raw)
	if err != nil {
		t.Fatalf("ParseAbilityTable: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("count = %d", tbl.Count())
	}
	all := tbl.All()
	if all[0].ID != 1 || all[1].ID != 2 {
		t.Fatalf("All not sorted: %d %d", all[0].ID, all[1].ID)
	}
	spark, ok := tbl.Ability(2)
	if !ok || spark.FrameTicks != 1 || spark.Damage != 5 || spark.Cooldown != 1 {
		t.Fatalf("spark = %+v", spark)
	}
	if tbl.Get(1).FrameTicks != 3 {
		t.Fatalf("bolt ticks = %d", tbl.Get(1).FrameTicks)
	}
	if lo := tbl.Loadout(); lo[0] != 2 || lo[1] != 0 {
		t.Fatalf("loadout = %v", lo)
	}
	var _ combat.Catalog = tbl
}

func TestParseAbilityTableErrors(t *testing.T) {
	tests := map[string]string{
		"zero id":     "abilities:\n  - {id: 0, radius: 1, max_explosion_frame: 1}\n",
		"duplicate":   "abilities:\n  - {id: 1, radius: 1, max_explosion_frame: 1}\n  - {id: 1, radius: 1, max_explosion_frame: 1}\n",
		"no radius":   "abilities:\n  - {id: 1, max_explosion_frame: 1}\n",
		"no frames":   "abilities:\n  - {id: 1, radius: 1}\n",
		"bad loadout": "loadout: [5]\nabilities:\n  - {id: 1, radius: 1, max_explosion_frame: 1}\n",
		"wide":        "loadout: [1,1,1,1,1]\nabilities:\n  - {id: 1, radius: 1, max_explosion_frame: 1}\n",
	}
	for name, raw := range tests {
		if _, err := ParseAbilityTable([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestShippedDataLoads(t *testing.T) {
	root := filepath.Join("..", "..", "data")
	lvl, err := LoadLevel(filepath.Join(root, "level.yaml"))
	if err != nil {
		t.Fatalf("LoadLevel: %v", err)
	}
	if len(lvl.Teams()) != 2 {
		t.Fatalf("shipped level teams = %v", lvl.Teams())
	}
	tbl, err := LoadAbilityTable(filepath.Join(root, "abilities.yaml"))
	if err != nil {
		t.Fatalf("LoadAbilityTable: %v", err)
	}
	if tbl.Loadout()[0] == 0 {
		t.Fatal("shipped loadout empty")
	}
	if _, err := LoadLevel(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read level") {
		t.Fatalf("missing file err = %v", err)
	}
}
