// Package gridloot is an event-reactive demo game: runners step around a
// grid one input at a time, collecting loot. There is no tick loop: the
// simulation advances only when input arrives, which makes it the reference
// consumer for the framework's turn/event path.
package gridloot

import (
	"fmt"

	"netroom/bot"
	"netroom/entity"
	"netroom/game"
)

const (
	// TypeRunner is the runtime type name runners register under.
	TypeRunner = "runner"
	// TypeLoot is the runtime type name collectibles register under.
	TypeLoot = "loot"
)

var runnerSchema = entity.NewSchema(
	entity.Field{Name: "x", Type: entity.Int32},
	entity.Field{Name: "y", Type: entity.Int32},
	entity.Field{Name: "score", Type: entity.Uint32},
	entity.Field{Name: "name", Type: entity.String},
)

// Runner is a grid-walking player avatar.
type Runner struct {
	entity.Base

	X     int32
	Y     int32
	Score uint32
	Name  string
}

// NewRunner constructs a runner at a grid cell.
func NewRunner(id, name string, x, y int32) *Runner {
	r := &Runner{X: x, Y: y, Name: name}
	r.Init(TypeRunner, runnerSchema, id)
	r.Bind("x", &r.X)
	r.Bind("y", &r.Y)
	r.Bind("score", &r.Score)
	r.Bind("name", &r.Name)
	return r
}

// Position satisfies entity.Positioned over grid coordinates.
func (r *Runner) Position() (float64, float64) {
	return float64(r.X), float64(r.Y)
}

// HandleInput steps the runner one cell in the named direction. The room's
// game-level hook runs afterwards and sees the already updated position.
func (r *Runner) HandleInput(in entity.Input) {
	switch in.String("move") {
	case "north":
		r.Y--
	case "south":
		r.Y++
	case "east":
		r.X++
	case "west":
		r.X--
	}
}

var lootSchema = entity.NewSchema(
	entity.Field{Name: "x", Type: entity.Int32},
	entity.Field{Name: "y", Type: entity.Int32},
	entity.Field{Name: "value", Type: entity.Uint32},
)

// Loot is a collectible sitting on a grid cell.
type Loot struct {
	entity.Base

	X     int32
	Y     int32
	Value uint32
}

// NewLoot constructs a collectible.
func NewLoot(id string, x, y int32, value uint32) *Loot {
	l := &Loot{X: x, Y: y, Value: value}
	l.Init(TypeLoot, lootSchema, id)
	l.Bind("x", &l.X)
	l.Bind("y", &l.Y)
	l.Bind("value", &l.Value)
	return l
}

// Position satisfies entity.Positioned over grid coordinates.
func (l *Loot) Position() (float64, float64) {
	return float64(l.X), float64(l.Y)
}

// Greedy is the turn-driven bot behavior: one step toward the nearest loot
// when told it is this bot's turn. It never polls.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) PollEvery() uint64 { return 0 }

func (Greedy) Think(w bot.World, self entity.Entity) entity.Input {
	runner, ok := self.(*Runner)
	if !ok {
		return nil
	}
	target := w.Entities().Nearest(TypeLoot, self, nil)
	if target == nil {
		return nil
	}
	loot := target.(*Loot)
	switch {
	case loot.X > runner.X:
		return entity.Input{"move": "east"}
	case loot.X < runner.X:
		return entity.Input{"move": "west"}
	case loot.Y > runner.Y:
		return entity.Input{"move": "south"}
	case loot.Y < runner.Y:
		return entity.Input{"move": "north"}
	default:
		return nil
	}
}

// Config tunes the demo definition.
type Config struct {
	// Loot places collectibles as {x, y, value} triples at create time.
	Loot [][3]int32
	// Bots fills this many grid bots that move on SignalTurn.
	Bots int
}

// Definition declares the grid game. TickRate zero selects event-reactive
// mode: Advance is always a no-op and every input is processed synchronously
// on arrival.
func Definition(cfg Config) *game.Definition {
	def := &game.Definition{
		Name:       "gridloot",
		TickRate:   0,
		MaxPlayers: 4,
		OnCreate: func(r *game.Room) {
			for i, drop := range cfg.Loot {
				r.Spawn(NewLoot(fmt.Sprintf("loot-%d", i), drop[0], drop[1], uint32(drop[2])))
			}
		},
		OnInput:       onInput,
		OnPlayerJoin:  onPlayerJoin,
		OnPlayerLeave: onPlayerLeave,
	}
	if cfg.Bots > 0 {
		def.Bots = game.BotFill{
			Target:    cfg.Bots,
			Behaviors: []bot.Behavior{Greedy{}},
			Names:     []string{"Drone", "Scrap", "Gizmo"},
			Spawn: func(r *game.Room, _ bot.Behavior, name string) entity.Entity {
				return NewRunner("", name, 5, 5)
			},
		}
	}
	return def
}

func onPlayerJoin(r *game.Room, p *game.Player) {
	runner := NewRunner(p.ID, p.ID, 0, 0)
	r.Spawn(runner)
	p.Control(runner)
}

func onPlayerLeave(r *game.Room, p *game.Player) {
	if e := p.Entity(); e != nil {
		r.Despawn(e.ID())
	}
}

// onInput runs after the runner has already stepped, so a pickup check reads
// the new position. A human move also grants every bot one turn.
func onInput(r *game.Room, p *game.Player, in entity.Input) {
	runner, ok := p.Entity().(*Runner)
	if !ok {
		return
	}
	collect(r, runner)
	if p.Bot {
		return
	}
	for _, actor := range r.Players() {
		if actor.Bot {
			r.SignalTurn(actor.ID)
		}
	}
	if len(r.Entities().OfType(TypeLoot)) == 0 {
		r.EndGame(bestRunner(r))
	}
}

func collect(r *game.Room, runner *Runner) {
	for _, e := range r.Entities().OfType(TypeLoot) {
		loot := e.(*Loot)
		if loot.X == runner.X && loot.Y == runner.Y {
			r.Despawn(loot.ID())
			runner.Score += loot.Value
		}
	}
}

func bestRunner(r *game.Room) *game.Player {
	var best *game.Player
	var bestScore uint32
	for _, p := range r.Players() {
		runner, ok := p.Entity().(*Runner)
		if !ok {
			continue
		}
		if best == nil || runner.Score > bestScore {
			best = p
			bestScore = runner.Score
		}
	}
	return best
}
