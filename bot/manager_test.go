package bot

import (
	"fmt"
	"math/rand"
	"testing"

	"netroom/entity"
)

var droneSchema = entity.NewSchema(
	entity.Field{Name: "x", Type: entity.Float64},
	entity.Field{Name: "y", Type: entity.Float64},
)

type drone struct {
	entity.Base
	X, Y float64
}

func newDrone(id string) *drone {
	d := &drone{}
	d.Init("bot-test-drone", droneSchema, id)
	d.Bind("x", &d.X)
	d.Bind("y", &d.Y)
	return d
}

func (d *drone) Position() (float64, float64) { return d.X, d.Y }

type idleBehavior struct {
	every uint64
	name  string
}

func (b idleBehavior) Name() string      { return b.name }
func (b idleBehavior) PollEvery() uint64 { return b.every }
func (b idleBehavior) Think(World, entity.Entity) entity.Input {
	return entity.Input{"noop": true}
}

type stubWorld struct {
	entities *entity.Collection
	tick     uint64
}

func (w *stubWorld) Entities() *entity.Collection { return w.entities }
func (w *stubWorld) Tick() uint64                 { return w.tick }

func sequentialSpawner() SpawnFunc {
	n := 0
	return func(_ Behavior, name string) entity.Entity {
		n++
		return newDrone(fmt.Sprintf("drone-%02d", n))
	}
}

func TestFillSpawnsExactDeficit(t *testing.T) {
	m := NewManager(Config{
		Target:    4,
		Behaviors: []Behavior{idleBehavior{every: 1}},
		Names:     []string{"A", "B"},
		Rand:      rand.New(rand.NewSource(1)),
	})

	if got := m.Fill(1, sequentialSpawner()); got != 3 {
		t.Fatalf("target 4 with 1 human should spawn 3 bots, spawned %d", got)
	}
	if m.Count() != 3 {
		t.Fatalf("expected 3 tracked bots, got %d", m.Count())
	}

	// Already at target: no deficit.
	if got := m.Fill(1, sequentialSpawner()); got != 0 {
		t.Fatalf("expected no additional spawns, got %d", got)
	}
	// Over target: still spawns nothing, never despawns.
	if got := m.Fill(5, sequentialSpawner()); got != 0 {
		t.Fatalf("negative deficit must clamp to zero, got %d", got)
	}
}

func TestFillSkipsDuplicateSpawnIDs(t *testing.T) {
	m := NewManager(Config{Target: 3, Behaviors: []Behavior{idleBehavior{every: 1}}})

	first := newDrone("drone-dup")
	if got := m.Fill(2, func(Behavior, string) entity.Entity { return first }); got != 1 {
		t.Fatalf("expected 1 spawn, got %d", got)
	}

	// The next fill round offers the same id again; it must not replace the
	// tracked bot or count as a spawn.
	if got := m.Fill(0, func(Behavior, string) entity.Entity { return newDrone("drone-dup") }); got != 0 {
		t.Fatalf("duplicate id counted as a spawn: %d", got)
	}
	if m.Count() != 1 {
		t.Fatalf("expected 1 tracked bot, got %d", m.Count())
	}
	if m.bots["drone-dup"].entity != first {
		t.Fatalf("duplicate spawn replaced the tracked entity")
	}
}

func TestFillMarksSpawnedEntitiesAsBots(t *testing.T) {
	m := NewManager(Config{Target: 1, Behaviors: []Behavior{idleBehavior{every: 1}}})
	var spawned entity.Entity
	m.Fill(0, func(_ Behavior, _ string) entity.Entity {
		spawned = newDrone("drone-mark")
		return spawned
	})
	if spawned == nil || !spawned.IsBot() {
		t.Fatalf("spawned entity must carry the bot flag")
	}
	if !m.Controls("drone-mark") {
		t.Fatalf("manager lost track of its bot")
	}
}

func TestRemoveOnePicksLowestIDAndIsSafeAtZero(t *testing.T) {
	m := NewManager(Config{Target: 3, Behaviors: []Behavior{idleBehavior{every: 1}}})
	m.Fill(0, sequentialSpawner())

	var removed entity.Entity
	if !m.RemoveOne(func(e entity.Entity) { removed = e }) {
		t.Fatalf("RemoveOne should succeed with bots present")
	}
	if removed == nil || removed.ID() != "drone-01" {
		t.Fatalf("expected lowest id drone-01, got %v", removed)
	}
	if m.Count() != 2 {
		t.Fatalf("expected 2 bots left, got %d", m.Count())
	}

	m.RemoveOne(nil)
	m.RemoveOne(nil)
	if m.RemoveOne(nil) {
		t.Fatalf("RemoveOne at zero must be a no-op returning false")
	}
}

func TestStepHonorsPollingCadence(t *testing.T) {
	delivered := make(map[uint64]int)
	var current uint64
	m := NewManager(Config{
		Target:    1,
		Behaviors: []Behavior{idleBehavior{every: 3}},
		Deliver: func(string, entity.Input) {
			delivered[current]++
		},
	})
	m.Fill(0, sequentialSpawner())

	w := &stubWorld{entities: entity.NewCollection()}
	for current = 1; current <= 7; current++ {
		w.tick = current
		m.Step(w, current)
	}

	// First decision at tick 1, then every 3 ticks: 1, 4, 7.
	for _, tick := range []uint64{1, 4, 7} {
		if delivered[tick] != 1 {
			t.Fatalf("expected a decision at tick %d, got %v", tick, delivered)
		}
	}
	if total := len(delivered); total != 3 {
		t.Fatalf("expected 3 decisions over 7 ticks, got %d", total)
	}
}

func TestStepSkipsTurnDrivenBehaviors(t *testing.T) {
	calls := 0
	m := NewManager(Config{
		Target:    1,
		Behaviors: []Behavior{idleBehavior{every: 0}},
		Deliver:   func(string, entity.Input) { calls++ },
	})
	m.Fill(0, sequentialSpawner())

	w := &stubWorld{entities: entity.NewCollection()}
	for tick := uint64(1); tick <= 5; tick++ {
		m.Step(w, tick)
	}
	if calls != 0 {
		t.Fatalf("turn-driven behavior polled %d times", calls)
	}

	if !m.TakeTurn(w, "drone-01") {
		t.Fatalf("TakeTurn rejected a tracked bot")
	}
	if calls != 1 {
		t.Fatalf("TakeTurn should deliver exactly once, got %d", calls)
	}
	if m.TakeTurn(w, "stranger") {
		t.Fatalf("TakeTurn accepted an unknown entity")
	}
}

func TestForgetDropsTracking(t *testing.T) {
	m := NewManager(Config{Target: 1, Behaviors: []Behavior{idleBehavior{every: 1}}})
	m.Fill(0, sequentialSpawner())
	m.Forget("drone-01")
	if m.Count() != 0 || m.Controls("drone-01") {
		t.Fatalf("Forget left the bot tracked")
	}
	m.Forget("never-existed")
}

func TestNameCycling(t *testing.T) {
	m := NewManager(Config{
		Target:    3,
		Behaviors: []Behavior{idleBehavior{every: 1}},
		Names:     []string{"Ada", "Lin"},
	})
	var names []string
	m.Fill(0, func(_ Behavior, name string) entity.Entity {
		names = append(names, name)
		return newDrone(fmt.Sprintf("drone-name-%d", len(names)))
	})
	want := []string{"Ada", "Lin", "Ada"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("name %d: expected %s, got %s", i, n, names[i])
		}
	}
}
