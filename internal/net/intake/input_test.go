package intake

import (
	"sync"
	"testing"

	"netroom/entity"
	"netroom/game"
	"netroom/internal/net/proto"
	"netroom/internal/telemetry"
)

var tokenSchema = entity.NewSchema(
	entity.Field{Name: "x", Type: entity.Float64},
)

type token struct {
	entity.Base
	X float64
}

func newToken(id string) *token {
	tk := &token{}
	tk.Init("intake-test-token", tokenSchema, id)
	tk.Bind("x", &tk.X)
	return tk
}

func (tk *token) HandleInput(in entity.Input) {
	tk.X += in.Float("dx")
}

func testRoom(t *testing.T, tickRate int) *game.Room {
	t.Helper()
	r, err := game.NewRoom(&game.Definition{
		Name:     "intake-test",
		TickRate: tickRate,
		OnPlayerJoin: func(r *game.Room, p *game.Player) {
			tk := newToken(p.ID)
			r.Spawn(tk)
			p.Control(tk)
		},
	}, game.Options{InputQueueCapacity: 2})
	if err != nil {
		t.Fatalf("NewRoom failed: %v", err)
	}
	return r
}

func inputFrame(seq uint32, dx float64) proto.ClientMessage {
	return proto.ClientMessage{
		Type:  proto.ClientInput,
		Seq:   seq,
		Input: entity.Input{"dx": dx},
	}
}

func TestStageInputRejectsMalformedFrames(t *testing.T) {
	r := testRoom(t, 0)
	if _, ok, reason := StageInput(r, "p1", proto.ClientMessage{Type: proto.ClientJoin}); ok || reason != RejectInvalidInput {
		t.Fatalf("expected invalid_input, got ok=%v reason=%s", ok, reason)
	}
	if _, ok, reason := StageInput(r, "p1", proto.ClientMessage{Type: proto.ClientInput}); ok || reason != RejectInvalidInput {
		t.Fatalf("nil input payload should be rejected, got ok=%v reason=%s", ok, reason)
	}
}

func TestStageInputRejectsUnknownActor(t *testing.T) {
	r := testRoom(t, 0)
	if _, ok, reason := StageInput(r, "ghost", inputFrame(1, 1)); ok || reason != RejectUnknownActor {
		t.Fatalf("expected unknown_actor, got ok=%v reason=%s", ok, reason)
	}
}

func TestStageInputContinuousDefersActorCheckToDrain(t *testing.T) {
	metrics := telemetry.NewCounters()
	r, err := game.NewRoom(&game.Definition{Name: "intake-test", TickRate: 20}, game.Options{Metrics: metrics})
	if err != nil {
		t.Fatalf("NewRoom failed: %v", err)
	}

	// Staging must not consult the player table; that read belongs to the
	// loop goroutine.
	seq, ok, reason := StageInput(r, "ghost", inputFrame(5, 1))
	if !ok || reason != "" || seq != 5 {
		t.Fatalf("continuous staging should accept, got ok=%v reason=%s seq=%d", ok, reason, seq)
	}

	r.Advance(0.05)
	if got := metrics.Value("room_input_drop_total"); got != 1 {
		t.Fatalf("unknown actor should be dropped at drain, counted %d", got)
	}
}

// The hub serializes joins, leaves, and ticks with a per-room mutex while
// input staging stays lock-free. This exercises that exact wiring so the
// staging path can never grow a read of loop-owned room state.
func TestStagingRunsSafelyBesideRoomLoop(t *testing.T) {
	r := testRoom(t, 20)
	var mu sync.Mutex

	mu.Lock()
	if _, err := r.AddPlayer("p1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	mu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		seq := uint32(1)
		for {
			select {
			case <-done:
				return
			default:
				StageInput(r, "p1", inputFrame(seq, 1))
				seq++
			}
		}
	}()

	for i := 0; i < 200; i++ {
		mu.Lock()
		r.Advance(0.05)
		mu.Unlock()
	}
	mu.Lock()
	r.RemovePlayer("p1")
	mu.Unlock()

	close(done)
	wg.Wait()
}

func TestStageInputEventModeAppliesSynchronously(t *testing.T) {
	r := testRoom(t, 0)
	p, err := r.AddPlayer("p1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	seq, ok, reason := StageInput(r, "p1", inputFrame(7, 2))
	if !ok || reason != "" {
		t.Fatalf("stage failed: ok=%v reason=%s", ok, reason)
	}
	if seq != 7 {
		t.Fatalf("expected echoed seq 7, got %d", seq)
	}
	if got := p.Entity().(*token).X; got != 2 {
		t.Fatalf("event-mode input must apply synchronously, x=%v", got)
	}
}

func TestStageInputContinuousModeQueuesUntilTick(t *testing.T) {
	r := testRoom(t, 20)
	p, err := r.AddPlayer("p1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	if _, ok, _ := StageInput(r, "p1", inputFrame(1, 3)); !ok {
		t.Fatalf("stage failed")
	}
	if got := p.Entity().(*token).X; got != 0 {
		t.Fatalf("continuous input applied before the tick, x=%v", got)
	}

	r.Advance(0.05)
	if got := p.Entity().(*token).X; got != 3 {
		t.Fatalf("staged input not applied on tick, x=%v", got)
	}
}

func TestStageInputReportsQueueSaturation(t *testing.T) {
	r := testRoom(t, 20)
	if _, err := r.AddPlayer("p1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// Queue capacity is 2 for this room.
	StageInput(r, "p1", inputFrame(1, 1))
	StageInput(r, "p1", inputFrame(2, 1))
	if _, ok, reason := StageInput(r, "p1", inputFrame(3, 1)); ok || reason != RejectQueueFull {
		t.Fatalf("expected queue_full, got ok=%v reason=%s", ok, reason)
	}
}
