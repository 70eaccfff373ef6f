package sim

import (
	"fmt"
	"sort"

	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/core/ecs"
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/movement"
	"github.com/mageling/arena/internal/physics"
)

// World is the complete rolled-back simulation state. Everything that
// influences a future frame lives here, including the entity pool and the
// spell spawn counter, so a snapshot restores the exact same future.
type World struct {
	ecs *ecs.World

	Actors     *ecs.PtrComponentStore[Actor]
	Transforms *ecs.PtrComponentStore[Transform]
	Motions    *ecs.PtrComponentStore[Motion]
	Movers     *ecs.PtrComponentStore[movement.Component]
	Stats      *ecs.PtrComponentStore[movement.Stats]
	Healths    *ecs.PtrComponentStore[Health]
	Bodies     *ecs.PtrComponentStore[physics.Body]
	Casters    *ecs.PtrComponentStore[combat.Caster]
	Spells     *ecs.PtrComponentStore[combat.Spell]

	// Frame is the last frame advanced into this world, -1 before the first.
	Frame       int
	SpellSerial uint32
	Round       Round

	events eventLog
	static *Static
}

// NewWorld builds an empty world for the static data.
func NewWorld(static *Static) *World {
	w := &World{
		ecs:        ecs.NewWorld(),
		Actors:     ecs.NewPtrComponentStore[Actor](),
		Transforms: ecs.NewPtrComponentStore[Transform](),
		Motions:    ecs.NewPtrComponentStore[Motion](),
		Movers:     ecs.NewPtrComponentStore[movement.Component](),
		Stats:      ecs.NewPtrComponentStore[movement.Stats](),
		Healths:    ecs.NewPtrComponentStore[Health](),
		Bodies:     ecs.NewPtrComponentStore[physics.Body](),
		Casters:    ecs.NewPtrComponentStore[combat.Caster](),
		Spells:     ecs.NewPtrComponentStore[combat.Spell](),
		Frame:      -1,
		static:     static,
	}
	w.register()
	w.Round = NewRound(static.Rules)
	return w
}

// NewMatchWorld builds the first-round world with one actor per handle at
// its team's spawn point.
func NewMatchWorld(static *Static, players int) (*World, error) {
	w := NewWorld(static)
	for h := 0; h < players; h++ {
		if _, err := w.SpawnActor(input.Handle(h)); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *World) register() {
	r := w.ecs.Registry()
	r.Register(w.Actors)
	r.Register(w.Transforms)
	r.Register(w.Motions)
	r.Register(w.Movers)
	r.Register(w.Stats)
	r.Register(w.Healths)
	r.Register(w.Bodies)
	r.Register(w.Casters)
	r.Register(w.Spells)
}

func (w *World) Static() *Static { return w.static }

// ECS exposes the entity container for the cleanup stage.
func (w *World) ECS() *ecs.World { return w.ecs }

// Clone returns a deep copy sharing only the static data.
func (w *World) Clone() *World {
	out := &World{
		ecs:         ecs.NewWorldWithPool(w.ecs.Pool().Clone()),
		Actors:      w.Actors.Clone(),
		Transforms:  w.Transforms.Clone(),
		Motions:     w.Motions.Clone(),
		Movers:      w.Movers.Clone(),
		Stats:       w.Stats.Clone(),
		Healths:     w.Healths.Clone(),
		Bodies:      w.Bodies.Clone(),
		Casters:     w.Casters.Clone(),
		Spells:      w.Spells.Clone(),
		Frame:       w.Frame,
		SpellSerial: w.SpellSerial,
		Round:       w.Round,
		events:      w.events.clone(),
		static:      w.static,
	}
	out.register()
	return out
}

// SpawnActor creates the actor for a handle at its team's spawn point.
func (w *World) SpawnActor(h input.Handle) (ecs.EntityID, error) {
	team := w.static.TeamFor(h)
	sp, ok := w.static.SpawnFor(team)
	if !ok {
		return 0, fmt.Errorf("spawn actor %d: no spawn point for team %d", h, team)
	}
	id := w.ecs.CreateEntity()
	w.Actors.Set(id, &Actor{Handle: h, Team: team})
	w.Transforms.Set(id, &Transform{Position: sp.Position})
	w.Motions.Set(id, &Motion{})
	mc := movement.NewComponent()
	w.Movers.Set(id, &mc)
	stats := w.static.Stats
	w.Stats.Set(id, &stats)
	w.Healths.Set(id, &Health{Max: w.static.MaxHealth, Current: w.static.MaxHealth})
	w.Bodies.Set(id, &physics.Body{Shape: physics.NewAABB(sp.Position, w.static.ActorSize, w.static.ActorSize)})
	caster := combat.NewCaster(w.static.Loadout)
	w.Casters.Set(id, &caster)
	return id, nil
}

// SpawnSpell creates a projectile entity and returns its id.
func (w *World) SpawnSpell(caster input.Handle, a combat.Ability, at geom.Vec2) (ecs.EntityID, *combat.Spell) {
	w.SpellSerial++
	id := w.ecs.CreateEntity()
	s := combat.NewSpell(w.SpellSerial, caster, a, at)
	w.Spells.Set(id, &s)
	w.Transforms.Set(id, &Transform{Position: at})
	w.Bodies.Set(id, &physics.Body{Shape: physics.NewCircle(at, a.Radius)})
	return id, &s
}

// ActorsByHandle returns actor entity ids sorted by handle.
func (w *World) ActorsByHandle() []ecs.EntityID {
	ids := w.Actors.SortedIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		a, _ := w.Actors.Get(ids[i])
		b, _ := w.Actors.Get(ids[j])
		return a.Handle < b.Handle
	})
	return ids
}

// ActorFor returns the entity of the actor with the given handle.
func (w *World) ActorFor(h input.Handle) (ecs.EntityID, bool) {
	for _, id := range w.Actors.SortedIDs() {
		if a, _ := w.Actors.Get(id); a.Handle == h {
			return id, true
		}
	}
	return 0, false
}

// Teleport moves an actor and its collision shape, dropping any residual
// velocity and dash so the respawned actor starts at rest.
func (w *World) Teleport(id ecs.EntityID, to geom.Vec2) {
	if tr, ok := w.Transforms.Get(id); ok {
		tr.Position = to
	}
	if b, ok := w.Bodies.Get(id); ok {
		physics.Sync(b, to)
	}
	if m, ok := w.Motions.Get(id); ok {
		m.Velocity = geom.Zero
	}
	if mc, ok := w.Movers.Get(id); ok && mc.Dashing() {
		mc.State = movement.Idle{}
	}
}

// ResetForRound returns every actor to its spawn and removes all spells.
func (w *World) ResetForRound() {
	for _, id := range w.Spells.SortedIDs() {
		w.ecs.MarkForDestruction(id)
	}
	w.ecs.FlushDestroyQueue()
	for _, id := range w.ActorsByHandle() {
		a, _ := w.Actors.Get(id)
		if sp, ok := w.static.SpawnFor(a.Team); ok {
			w.Teleport(id, sp.Position)
		}
		if mc, ok := w.Movers.Get(id); ok {
			*mc = movement.NewComponent()
		}
		if c, ok := w.Casters.Get(id); ok {
			*c = combat.NewCaster(w.static.Loadout)
		}
		if h, ok := w.Healths.Get(id); ok {
			h.Current = h.Max
		}
	}
}

// Emit records an event for the current frame.
func (w *World) Emit(ev Event) {
	ev.Frame = w.Frame
	w.events.add(ev)
}

// BeginFrame clears any events left from an earlier simulation of the frame.
func (w *World) BeginFrame(frame int) {
	w.Frame = frame
	w.events.reset(frame)
}

// EventsFor returns the events recorded for a frame still inside the event
// window.
func (w *World) EventsFor(frame int) []Event {
	return w.events.at(frame)
}

// ActorView is the per-frame presentation record for an actor.
type ActorView struct {
	Handle       input.Handle
	Team         combat.TeamID
	Position     geom.Vec2
	MovementTag  movement.Tag
	AnimationTag AnimationTag
	CastTag      combat.CastTag
}

// SpellView is the per-frame presentation record for a projectile.
type SpellView struct {
	ID        uint32
	Ability   combat.AbilityID
	Position  geom.Vec2
	Radius    float64
	Phase     combat.Phase
	AnimFrame int
}

// Views lists actors in handle order.
func (w *World) Views() []ActorView {
	ids := w.ActorsByHandle()
	out := make([]ActorView, 0, len(ids))
	for _, id := range ids {
		a, _ := w.Actors.Get(id)
		v := ActorView{Handle: a.Handle, Team: a.Team}
		if tr, ok := w.Transforms.Get(id); ok {
			v.Position = tr.Position
		}
		if mc, ok := w.Movers.Get(id); ok && mc.State != nil {
			v.MovementTag = mc.State.Tag()
		}
		if c, ok := w.Casters.Get(id); ok && c.State != nil {
			v.CastTag = c.State.Tag()
		}
		v.AnimationTag = animationFor(v.MovementTag, v.CastTag)
		out = append(out, v)
	}
	return out
}

func animationFor(m movement.Tag, c combat.CastTag) AnimationTag {
	switch {
	case m == movement.TagDashing:
		return AnimDash
	case c == combat.TagPrecast:
		return AnimCast
	case m == movement.TagWalking:
		return AnimRun
	default:
		return AnimIdle
	}
}

// SpellViews lists projectiles in spawn order.
func (w *World) SpellViews() []SpellView {
	out := make([]SpellView, 0, w.Spells.Len())
	w.Spells.EachSorted(func(id ecs.EntityID, s *combat.Spell) {
		v := SpellView{
			ID:        s.ID,
			Ability:   s.Ability,
			Position:  s.Spawn,
			Phase:     s.Lifetime.Phase,
			AnimFrame: s.Lifetime.AnimFrame,
		}
		if b, ok := w.Bodies.Get(id); ok {
			v.Radius = b.Shape.Radius
		}
		out = append(out, v)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InputView is what the local sampler needs to know about an actor.
func (w *World) InputView(h input.Handle) input.ActorView {
	var v input.ActorView
	id, ok := w.ActorFor(h)
	if !ok {
		return v
	}
	if mc, ok := w.Movers.Get(id); ok {
		v.Dashing = mc.Dashing()
		v.CanDash = mc.CanDash
	}
	if c, ok := w.Casters.Get(id); ok {
		if p, ok := c.State.(combat.Precast); ok {
			v.Precast = true
			v.PrecastAbility = uint32(p.Ability)
		}
		for i, a := range c.Loadout {
			v.Loadout[i] = uint32(a)
		}
	}
	return v
}

// Frame is the context every pipeline stage receives.
type Frame struct {
	Number int
	DT     float64
	Inputs []input.Packet
	World  *World
}

// Input returns the packet for a handle, or the zero packet.
func (f *Frame) Input(h input.Handle) input.Packet {
	if int(h) < 0 || int(h) >= len(f.Inputs) {
		return input.Packet{}
	}
	return f.Inputs[h]
}
