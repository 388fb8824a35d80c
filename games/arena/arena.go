// Package arena is a continuous-mode demo game: fighters roam a bounded
// field, human players steer with {dx,dy} move inputs, and bots fill the
// remaining slots. It doubles as the reference consumer for the framework's
// tick-driven path.
package arena

import (
	"math"

	"netroom/bot"
	"netroom/entity"
	"netroom/game"
)

const (
	// TypeFighter is the runtime type name fighters register under.
	TypeFighter = "fighter"

	Width     = 800.0
	Height    = 600.0
	MoveSpeed = 160.0 // units per second
)

var fighterSchema = entity.NewSchema(
	entity.Field{Name: "x", Type: entity.Float64},
	entity.Field{Name: "y", Type: entity.Float64},
	entity.Field{Name: "heading", Type: entity.Float64},
	entity.Field{Name: "name", Type: entity.String},
)

// Fighter is the entity every arena actor controls. Movement intent is
// server-private: it never appears in snapshots.
type Fighter struct {
	entity.Base

	X       float64
	Y       float64
	Heading float64 // degrees, clockwise from east
	Name    string

	intentX float64
	intentY float64
}

// NewFighter constructs a fighter at the given spawn point.
func NewFighter(id, name string, x, y float64) *Fighter {
	f := &Fighter{X: x, Y: y, Name: name}
	f.Init(TypeFighter, fighterSchema, id)
	f.Bind("x", &f.X)
	f.Bind("y", &f.Y)
	f.Bind("heading", &f.Heading)
	f.Bind("name", &f.Name)
	return f
}

// Position satisfies entity.Positioned.
func (f *Fighter) Position() (float64, float64) {
	return f.X, f.Y
}

// HandleInput records the normalized movement intent and turns the fighter
// toward it. Integration happens on the next tick.
func (f *Fighter) HandleInput(in entity.Input) {
	dx, dy := in.Float("dx"), in.Float("dy")
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		f.intentX, f.intentY = 0, 0
		return
	}
	f.intentX, f.intentY = dx/norm, dy/norm
	heading := math.Atan2(f.intentY, f.intentX) * 180 / math.Pi
	if heading < 0 {
		heading += 360
	}
	f.Heading = heading
}

func (f *Fighter) step(delta float64) {
	f.X = clamp(f.X+f.intentX*MoveSpeed*delta, 0, Width)
	f.Y = clamp(f.Y+f.intentY*MoveSpeed*delta, 0, Height)
}

// Chase steers a bot toward the nearest human-controlled fighter, falling
// back to idle when no human is in the room.
type Chase struct {
	every uint64
}

// NewChase constructs a chase behavior deciding every `every` ticks.
func NewChase(every uint64) *Chase {
	if every == 0 {
		every = 1
	}
	return &Chase{every: every}
}

func (c *Chase) Name() string { return "chase" }

func (c *Chase) PollEvery() uint64 { return c.every }

func (c *Chase) Think(w bot.World, self entity.Entity) entity.Input {
	target := w.Entities().Nearest(TypeFighter, self, func(e entity.Entity) bool {
		return e.IsBot()
	})
	if target == nil {
		return nil
	}
	sx, sy := self.(*Fighter).Position()
	tx, ty := target.(*Fighter).Position()
	return entity.Input{"dx": tx - sx, "dy": ty - sy}
}

// Definition declares the arena game: 20 ticks per second, a four-slot bot
// fill that yields one slot per joining human and tops back up on leave.
func Definition() *game.Definition {
	return &game.Definition{
		Name:       "arena",
		TickRate:   20,
		MaxPlayers: 8,
		Bots: game.BotFill{
			Target:        4,
			Behaviors:     []bot.Behavior{bot.NewWander(bot.WanderConfig{Every: 5}), NewChase(10)},
			Names:         []string{"Brick", "Sable", "Quill", "Moss", "Vesper", "Rook"},
			ReplaceOnJoin: true,
			RefillOnLeave: true,
			Spawn:         spawnBot,
		},
		OnTick:        onTick,
		OnPlayerJoin:  onPlayerJoin,
		OnPlayerLeave: onPlayerLeave,
	}
}

func spawnBot(r *game.Room, _ bot.Behavior, name string) entity.Entity {
	x, y := spawnPoint(r.Entities().Len())
	// Empty id: the framework generates one, so bot ids never collide with a
	// live actor.
	return NewFighter("", name, x, y)
}

func onPlayerJoin(r *game.Room, p *game.Player) {
	x, y := spawnPoint(r.Entities().Len())
	f := NewFighter(p.ID, p.ID, x, y)
	r.Spawn(f)
	p.Control(f)
}

func onPlayerLeave(r *game.Room, p *game.Player) {
	if e := p.Entity(); e != nil {
		r.Despawn(e.ID())
	}
}

func onTick(r *game.Room, delta float64) {
	for _, e := range r.Entities().OfType(TypeFighter) {
		e.(*Fighter).step(delta)
	}
}

// spawnPoint spreads fresh fighters around the field center so nobody stacks
// on an occupied cell.
func spawnPoint(ordinal int) (float64, float64) {
	angle := float64(ordinal) * 2.399963 // golden angle keeps neighbors apart
	radius := 60 + 24*float64(ordinal)
	x := clamp(Width/2+math.Cos(angle)*radius, 0, Width)
	y := clamp(Height/2+math.Sin(angle)*radius, 0, Height)
	return x, y
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
