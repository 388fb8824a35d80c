package harness

import (
	"testing"

	"netroom/entity"
	"netroom/games/arena"
	"netroom/games/gridloot"
	"netroom/logging"
)

func TestArenaBotsFillEmptyRoom(t *testing.T) {
	h, err := New(arena.Definition())
	if err != nil {
		t.Fatalf("harness failed: %v", err)
	}
	if got := h.Room.Bots().Count(); got != 4 {
		t.Fatalf("empty arena should hold 4 bots, got %d", got)
	}
	if got := len(h.EventsOfType(logging.EventBotSpawned)); got != 4 {
		t.Fatalf("expected 4 bot_spawned events, got %d", got)
	}
}

func TestArenaJoinYieldsBotSlots(t *testing.T) {
	h, err := New(arena.Definition())
	if err != nil {
		t.Fatalf("harness failed: %v", err)
	}
	for _, id := range []string{"alice", "bob", "cara"} {
		if _, err := h.Join(id); err != nil {
			t.Fatalf("join %s failed: %v", id, err)
		}
	}
	if got := h.Room.Bots().Count(); got != 1 {
		t.Fatalf("3 humans should leave 1 bot, got %d", got)
	}
	if got := h.Room.HumanCount(); got != 3 {
		t.Fatalf("expected 3 humans, got %d", got)
	}

	h.Leave("bob")
	if got := h.Room.Bots().Count(); got != 2 {
		t.Fatalf("leave should refill to target, got %d bots", got)
	}
}

func TestArenaTicksMoveSteeredFighter(t *testing.T) {
	h, err := New(arena.Definition())
	if err != nil {
		t.Fatalf("harness failed: %v", err)
	}
	p, err := h.Join("alice")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	fighter := p.Entity().(*arena.Fighter)
	startX := fighter.X

	h.Input("alice", entity.Input{"dx": 1, "dy": 0})
	h.TickN(20, 0.05)

	if h.Room.Tick() != 20 {
		t.Fatalf("expected tick 20, got %d", h.Room.Tick())
	}
	moved := fighter.X - startX
	// 20 ticks of 50ms at full speed east: one second of travel, modulo the
	// field clamp.
	if moved <= 0 {
		t.Fatalf("steered fighter never moved, delta=%v", moved)
	}
	if fighter.Heading != 0 {
		t.Fatalf("eastward intent should face heading 0, got %v", fighter.Heading)
	}
}

func TestArenaSnapshotsHideIntent(t *testing.T) {
	h, err := New(arena.Definition())
	if err != nil {
		t.Fatalf("harness failed: %v", err)
	}
	if _, err := h.Join("alice"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	h.Input("alice", entity.Input{"dx": 1, "dy": 1})

	for _, snap := range h.Snapshots() {
		if snap.Type != arena.TypeFighter {
			t.Fatalf("unexpected snapshot type %s", snap.Type)
		}
		for _, secret := range []string{"intentX", "intentY", "dx", "dy"} {
			if _, ok := snap.Data[secret]; ok {
				t.Fatalf("snapshot leaked private field %q", secret)
			}
		}
		for _, public := range []string{"id", "x", "y", "heading", "name"} {
			if _, ok := snap.Data[public]; !ok {
				t.Fatalf("snapshot missing schema field %q", public)
			}
		}
	}
}

func TestGridlootCollectAndScore(t *testing.T) {
	h, err := New(gridloot.Definition(gridloot.Config{Loot: [][3]int32{{2, 0, 10}}}))
	if err != nil {
		t.Fatalf("harness failed: %v", err)
	}
	p, err := h.Join("alice")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	runner := p.Entity().(*gridloot.Runner)

	h.Input("alice", entity.Input{"move": "east"})
	if runner.X != 1 || runner.Score != 0 {
		t.Fatalf("after one step: x=%d score=%d", runner.X, runner.Score)
	}

	h.Input("alice", entity.Input{"move": "east"})
	if runner.X != 2 {
		t.Fatalf("expected x=2, got %d", runner.X)
	}
	if runner.Score != 10 {
		t.Fatalf("expected collected score 10, got %d", runner.Score)
	}
	if len(h.Room.Entities().OfType(gridloot.TypeLoot)) != 0 {
		t.Fatalf("collected loot must despawn immediately")
	}

	// Collecting the last loot ends the game.
	if !h.Room.Over() {
		t.Fatalf("game should be over with no loot left")
	}
	if w := h.Room.Winner(); w == nil || w.ID != "alice" {
		t.Fatalf("expected alice to win, got %v", w)
	}
	if got := len(h.EventsOfType(logging.EventGameOver)); got != 1 {
		t.Fatalf("expected one game_over event, got %d", got)
	}
}

func TestGridlootAdvanceNeverTicks(t *testing.T) {
	h, err := New(gridloot.Definition(gridloot.Config{Loot: [][3]int32{{5, 5, 1}}}))
	if err != nil {
		t.Fatalf("harness failed: %v", err)
	}
	h.TickN(50, 0.05)
	if h.Room.Tick() != 0 {
		t.Fatalf("event-reactive room ticked to %d", h.Room.Tick())
	}
}

func TestGridlootBotsMoveOnHumanTurns(t *testing.T) {
	h, err := New(gridloot.Definition(gridloot.Config{
		Loot: [][3]int32{{6, 5, 1}, {-4, -4, 1}},
		Bots: 1,
	}))
	if err != nil {
		t.Fatalf("harness failed: %v", err)
	}
	if _, err := h.Join("alice"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	var botRunner *gridloot.Runner
	for _, p := range h.Room.Players() {
		if p.Bot {
			botRunner = p.Entity().(*gridloot.Runner)
		}
	}
	if botRunner == nil {
		t.Fatalf("no bot joined the grid")
	}
	bx, by := botRunner.X, botRunner.Y

	h.Input("alice", entity.Input{"move": "north"})

	if botRunner.X == bx && botRunner.Y == by {
		t.Fatalf("bot never moved on the human's turn")
	}
}

func TestDeferredCallsObservable(t *testing.T) {
	h, err := New(arena.Definition())
	if err != nil {
		t.Fatalf("harness failed: %v", err)
	}
	ran := false
	h.Room.Defer(func() { ran = true })
	if got := h.RunDeferred(); got != 1 || !ran {
		t.Fatalf("deferred call did not run: count=%d ran=%v", got, ran)
	}
}
