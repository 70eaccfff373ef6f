package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/input"
)

// AbilityTable holds the ability catalog indexed by id.
type AbilityTable struct {
	abilities map[combat.AbilityID]*combat.Ability
	loadout   [input.Slots]combat.AbilityID
}

// Ability implements combat.Catalog.
func (t *AbilityTable) Ability(id combat.AbilityID) (combat.Ability, bool) {
	a, ok := t.abilities[id]
	if !ok {
		return combat.Ability{}, false
	}
	return *a, true
}

// Get returns an ability by id, or nil if not found.
func (t *AbilityTable) Get(id combat.AbilityID) *combat.Ability {
	return t.abilities[id]
}

// Count returns total loaded abilities.
func (t *AbilityTable) Count() int {
	return len(t.abilities)
}

// All returns every ability sorted by id.
func (t *AbilityTable) All() []*combat.Ability {
	result := make([]*combat.Ability, 0, len(t.abilities))
	for _, a := range t.abilities {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Loadout is the slot assignment every actor starts a round with.
func (t *AbilityTable) Loadout() [input.Slots]combat.AbilityID {
	return t.loadout
}

// --- YAML loading ---

type abilityEntry struct {
	ID                  uint32  `yaml:"id"`
	Name                string  `yaml:"name"`
	Damage              int     `yaml:"damage"`
	Radius              float64 `yaml:"radius"`
	CastDelay           float64 `yaml:"cast_delay"`
	AnimationFrameTicks int     `yaml:"animation_frame_ticks"`
	MaxIndicatorFrame   int     `yaml:"max_indicator_frame"`
	MaxExplosionFrame   int     `yaml:"max_explosion_frame"`
	MaxPostCastFrame    int     `yaml:"max_post_cast_frame"`
	Cooldown            float64 `yaml:"cooldown"`
	MaxRange            float64 `yaml:"max_range"`
}

type abilityListFile struct {
	Abilities []abilityEntry `yaml:"abilities"`
	Loadout   []uint32       `yaml:"loadout"`
}

// LoadAbilityTable reads the ability catalog YAML.
func LoadAbilityTable(path string) (*AbilityTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abilities: %w", err)
	}
	return ParseAbilityTable(raw)
}

func ParseAbilityTable(raw []byte) (*AbilityTable, error) {
	var f abilityListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse abilities: %w", err)
	}
	t := &AbilityTable{
		abilities: make(map[combat.AbilityID]*combat.Ability, len(f.Abilities)),
	}
	for i := range f.Abilities {
		e := &f.Abilities[i]
		id := combat.AbilityID(e.ID)
		switch {
		case id == 0:
			return nil, fmt.Errorf("parse abilities: %q has id 0", e.Name)
		case t.abilities[id] != nil:
			return nil, fmt.Errorf("parse abilities: duplicate id %d", e.ID)
		case e.Radius <= 0:
			return nil, fmt.Errorf("parse abilities: %q needs a positive radius", e.Name)
		case e.MaxExplosionFrame <= 0:
			return nil, fmt.Errorf("parse abilities: %q needs max_explosion_frame", e.Name)
		}
		ticks := e.AnimationFrameTicks
		if ticks <= 0 {
			ticks = 1
		}
		t.abilities[id] = &combat.Ability{
			ID:                id,
			Name:              e.Name,
			Damage:            e.Damage,
			Radius:            e.Radius,
			MaxRange:          e.MaxRange,
			CastDelay:         e.CastDelay,
			Cooldown:          e.Cooldown,
			FrameTicks:        ticks,
			MaxIndicatorFrame: e.MaxIndicatorFrame,
			MaxExplosionFrame: e.MaxExplosionFrame,
			MaxPostCastFrame:  e.MaxPostCastFrame,
		}
	}
	if len(f.Loadout) > input.Slots {
		return nil, fmt.Errorf("parse abilities: loadout has %d slots, max %d", len(f.Loadout), input.Slots)
	}
	for i, id := range f.Loadout {
		if t.abilities[combat.AbilityID(id)] == nil {
			return nil, fmt.Errorf("parse abilities: loadout slot %d: unknown ability %d", i, id)
		}
		t.loadout[i] = combat.AbilityID(id)
	}
	return t, nil
}
