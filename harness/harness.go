// Package harness instantiates a game definition and drives it exactly as
// production would, without any transport. It goes through the identical
// room constructor and entry points production uses, so any behavioral
// divergence between the two is a defect in the core, not here.
package harness

import (
	"context"
	"math/rand"

	"netroom/entity"
	"netroom/game"
	"netroom/internal/telemetry"
	"netroom/logging"
	"netroom/logging/sinks"
)

// Harness wraps one room with synchronous, transport-free drivers and
// in-memory observability.
type Harness struct {
	Room *game.Room
	// Events retains every structured event the room published.
	Events *sinks.Memory
	// Metrics retains every counter the room recorded.
	Metrics *telemetry.Counters
}

// New builds a room from the definition using a fixed random seed, a silent
// logger, and synchronous in-memory event capture.
func New(def *game.Definition) (*Harness, error) {
	events := sinks.NewMemory()
	metrics := telemetry.NewCounters()
	room, err := game.NewRoom(def, game.Options{
		Publisher: logging.PublisherFunc(func(_ context.Context, e logging.Event) {
			_ = events.Write(e)
		}),
		Logger:  telemetry.LoggerFunc(func(string, ...any) {}),
		Metrics: metrics,
		Rand:    rand.New(rand.NewSource(1)),
	})
	if err != nil {
		return nil, err
	}
	return &Harness{Room: room, Events: events, Metrics: metrics}, nil
}

// Join admits a player, returning the actor record or the join error.
func (h *Harness) Join(playerID string) (*game.Player, error) {
	return h.Room.AddPlayer(playerID)
}

// Leave removes a player.
func (h *Harness) Leave(playerID string) {
	h.Room.RemovePlayer(playerID)
}

// Spectate admits a read-only observer.
func (h *Harness) Spectate(spectatorID string) {
	h.Room.AddSpectator(spectatorID)
}

// Input delivers one input through the room's shared entry point, exactly as
// the transport boundary would.
func (h *Harness) Input(actorID string, in entity.Input) {
	h.Room.HandleInput(actorID, in)
}

// Tick advances a continuous room by one tick of delta seconds.
func (h *Harness) Tick(delta float64) {
	h.Room.Advance(delta)
}

// TickN advances n ticks of delta seconds each.
func (h *Harness) TickN(n int, delta float64) {
	for i := 0; i < n; i++ {
		h.Room.Advance(delta)
	}
}

// Snapshots returns the room's current wire payload.
func (h *Harness) Snapshots() []entity.TypedSnapshot {
	return h.Room.Snapshots()
}

// RunDeferred executes every pending deferred call inline and returns how
// many ran, making platform-bridge side effects observable in tests.
func (h *Harness) RunDeferred() int {
	return h.Room.Deferred().DrainSync()
}

// EventsOfType filters captured events.
func (h *Harness) EventsOfType(t logging.EventType) []logging.Event {
	var out []logging.Event
	for _, e := range h.Events.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
