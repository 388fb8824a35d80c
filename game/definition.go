// Package game defines multiplayer game sessions: a declarative Definition
// with lifecycle hooks, and the Room runtime that executes it in either
// continuous (fixed-rate tick) or event-reactive (per-input) mode.
package game

import (
	"errors"
	"fmt"

	"netroom/bot"
	"netroom/entity"
)

var (
	// ErrInvalidDefinition wraps every definition-time validation failure.
	ErrInvalidDefinition = errors.New("invalid game definition")
	// ErrRoomFull rejects joins beyond the configured player limit.
	ErrRoomFull = errors.New("room full")
	// ErrDuplicatePlayer rejects a join reusing a live player id.
	ErrDuplicatePlayer = errors.New("player already joined")
	// ErrDuplicateDefinition rejects registering a name twice.
	ErrDuplicateDefinition = errors.New("definition already registered")
)

// BotFill is the bot population policy for a room.
type BotFill struct {
	// Target is the desired total occupancy, bots plus humans. Zero disables
	// bot fill entirely.
	Target int
	// Behaviors is the pool one behavior per bot is drawn from at random.
	Behaviors []bot.Behavior
	// Names is cycled for bot display names.
	Names []string
	// ReplaceOnJoin despawns exactly one bot per human join, when any exist.
	ReplaceOnJoin bool
	// RefillOnLeave tops the population back up when a human leaves.
	RefillOnLeave bool
	// Spawn creates and registers the entity a new bot will control.
	Spawn func(r *Room, b bot.Behavior, name string) entity.Entity
}

// Definition declares one game: its identity, execution mode, limits, bot
// policy, and lifecycle hooks. A nil hook is simply skipped. Hook panics are
// not recovered by the framework; the hosting layer decides whether to abort
// or restart the affected room.
type Definition struct {
	// Name identifies the game; required.
	Name string
	// TickRate is the simulation rate in ticks per second. A positive rate
	// selects continuous mode; zero selects event-reactive mode where the
	// simulation advances only in response to input.
	TickRate int
	// MaxPlayers caps human occupancy; zero means unlimited.
	MaxPlayers int
	// Bots is the bot fill policy.
	Bots BotFill

	// OnCreate runs once per room, before any player connects. Seed static
	// entities here.
	OnCreate func(r *Room)
	// OnTick fires once per genuine tick in continuous mode with the elapsed
	// seconds. Never fires in event-reactive mode.
	OnTick func(r *Room, delta float64)
	// OnInput is the game-level reaction to one actor input. It always runs
	// after the target entity's own HandleInput, so it observes the already
	// mutated entity.
	OnInput func(r *Room, p *Player, in entity.Input)
	// OnPlayerJoin must assign the player's controlled entity if the game
	// wants one; nothing is created automatically.
	OnPlayerJoin func(r *Room, p *Player)
	// OnPlayerLeave is solely responsible for removing the player's entity;
	// the framework performs no automatic cleanup.
	OnPlayerLeave func(r *Room, p *Player)
	// OnSpectatorJoin is the read-only analogue of OnPlayerJoin.
	OnSpectatorJoin func(r *Room, spectatorID string)
	// OnGameOver is invoked by game logic through Room.EndGame; the framework
	// never detects termination on its own.
	OnGameOver func(r *Room, winner *Player)
}

// Continuous reports whether the definition selects the fixed-rate tick mode.
func (d *Definition) Continuous() bool {
	return d != nil && d.TickRate > 0
}

// Validate fails at definition time rather than silently at runtime.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDefinition)
	}
	if d.TickRate < 0 {
		return fmt.Errorf("%w: %s: negative tick rate %d", ErrInvalidDefinition, d.Name, d.TickRate)
	}
	if d.MaxPlayers < 0 {
		return fmt.Errorf("%w: %s: negative player limit %d", ErrInvalidDefinition, d.Name, d.MaxPlayers)
	}
	if d.Bots.Target < 0 {
		return fmt.Errorf("%w: %s: negative bot fill target %d", ErrInvalidDefinition, d.Name, d.Bots.Target)
	}
	if d.Bots.Target > 0 {
		if len(d.Bots.Behaviors) == 0 {
			return fmt.Errorf("%w: %s: bot fill target without behaviors", ErrInvalidDefinition, d.Name)
		}
		if d.Bots.Spawn == nil {
			return fmt.Errorf("%w: %s: bot fill target without a spawn hook", ErrInvalidDefinition, d.Name)
		}
	}
	return nil
}
