package data

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/physics"
)

// DefaultTileSize is the edge length of one layout tile in world units.
const DefaultTileSize = 16

// Wall is an immovable collision shape.
type Wall struct {
	Shape physics.Shape
}

// SpawnPoint is a team-tagged respawn location.
type SpawnPoint struct {
	Position geom.Vec2
	Team     combat.TeamID
}

// Level holds the static geometry of one arena. Walls and Spawns are sorted
// deterministically so every peer iterates them in the same order.
type Level struct {
	Name   string
	Walls  []Wall
	Spawns []SpawnPoint
}

// SpawnFor returns the first spawn point of the team.
func (l *Level) SpawnFor(team combat.TeamID) (SpawnPoint, bool) {
	for _, s := range l.Spawns {
		if s.Team == team {
			return s, true
		}
	}
	return SpawnPoint{}, false
}

// Teams returns the distinct spawn teams in ascending order.
func (l *Level) Teams() []combat.TeamID {
	var teams []combat.TeamID
	for _, s := range l.Spawns {
		if n := len(teams); n == 0 || teams[n-1] != s.Team {
			teams = append(teams, s.Team)
		}
	}
	return teams
}

// --- YAML loading ---

type wallEntry struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	W      float64 `yaml:"w"`
	H      float64 `yaml:"h"`
	Radius float64 `yaml:"radius"`
}

type spawnEntry struct {
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	Team uint8   `yaml:"team"`
}

type levelFile struct {
	Name     string       `yaml:"name"`
	TileSize float64      `yaml:"tile_size"`
	Layout   string       `yaml:"layout"`
	Walls    []wallEntry  `yaml:"walls"`
	Spawns   []spawnEntry `yaml:"spawns"`
}

// LoadLevel reads a level YAML file.
func LoadLevel(path string) (*Level, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	return ParseLevel(raw)
}

// ParseLevel decodes level YAML. Walls and spawns come from the explicit
// lists plus the optional ASCII layout, where '#' is a wall tile and a digit
// is a spawn point for that team.
func ParseLevel(raw []byte) (*Level, error) {
	var f levelFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}
	if f.TileSize <= 0 {
		f.TileSize = DefaultTileSize
	}
	lvl := &Level{Name: f.Name}
	for i, w := range f.Walls {
		c := geom.V(w.X, w.Y)
		switch {
		case w.Radius > 0:
			lvl.Walls = append(lvl.Walls, Wall{Shape: physics.NewCircle(c, w.Radius)})
		case w.W > 0 && w.H > 0:
			lvl.Walls = append(lvl.Walls, Wall{Shape: physics.NewAABB(c, w.W, w.H)})
		default:
			return nil, fmt.Errorf("parse level: wall %d has no size", i)
		}
	}
	for _, s := range f.Spawns {
		lvl.Spawns = append(lvl.Spawns, SpawnPoint{Position: geom.V(s.X, s.Y), Team: combat.TeamID(s.Team)})
	}
	if err := lvl.addLayout(f.Layout, f.TileSize); err != nil {
		return nil, err
	}
	if len(lvl.Spawns) == 0 {
		return nil, fmt.Errorf("parse level: no spawn points")
	}
	lvl.sort()
	return lvl, nil
}

func (l *Level) addLayout(layout string, tile float64) error {
	if strings.TrimSpace(layout) == "" {
		return nil
	}
	rows := strings.Split(strings.Trim(layout, "\n"), "\n")
	for row, line := range rows {
		for col, ch := range line {
			center := geom.V(float64(col)*tile+tile/2, float64(row)*tile+tile/2)
			switch {
			case ch == '#':
				l.Walls = append(l.Walls, Wall{Shape: physics.NewAABB(center, tile, tile)})
			case ch >= '0' && ch <= '9':
				l.Spawns = append(l.Spawns, SpawnPoint{Position: center, Team: combat.TeamID(ch - '0')})
			case ch == '.' || ch == ' ':
			default:
				return fmt.Errorf("parse level: layout row %d col %d: unknown tile %q", row, col, ch)
			}
		}
	}
	return nil
}

// sort orders walls by center then extent, and spawns by team then position.
func (l *Level) sort() {
	sort.SliceStable(l.Walls, func(i, j int) bool {
		a, b := l.Walls[i].Shape, l.Walls[j].Shape
		if a.Center != b.Center {
			return geom.Less(a.Center, b.Center)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.HalfW != b.HalfW {
			return a.HalfW < b.HalfW
		}
		if a.HalfH != b.HalfH {
			return a.HalfH < b.HalfH
		}
		return a.Radius < b.Radius
	})
	sort.SliceStable(l.Spawns, func(i, j int) bool {
		a, b := l.Spawns[i], l.Spawns[j]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return geom.Less(a.Position, b.Position)
	})
}
