package game

import (
	"context"
	"log"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"netroom/bot"
	"netroom/entity"
	"netroom/internal/telemetry"
	"netroom/logging"
)

const (
	inputDropUnknownActor = "unknown_actor"
	inputDropQueueFull    = "queue_full"

	inputDropMetricKey = "room_input_drop_total"
	tickMetricKey      = "room_tick_total"
)

// Options carries the host-provided wiring for one room. Zero values get
// sensible defaults; the harness and production pass through the identical
// constructor.
type Options struct {
	// ID names the room; empty generates one.
	ID string
	// Logger receives operational lines; nil falls back to the stdlib logger.
	Logger telemetry.Logger
	// Publisher receives structured lifecycle events; nil discards them.
	Publisher logging.Publisher
	// Metrics receives counters; nil discards them.
	Metrics telemetry.Metrics
	// Clock drives tick timestamps; nil reads the wall clock.
	Clock logging.Clock
	// Rand seeds bot behavior assignment; nil uses the global source.
	Rand *rand.Rand
	// InputQueueCapacity bounds the staged-input ring used by Run. Zero
	// defaults to 256.
	InputQueueCapacity int
	// DeferredCapacity bounds the deferred-call queue. Zero defaults to 256.
	DeferredCapacity int
	// CatchupMaxTicks clamps how far one delta may stretch when the loop
	// falls behind. Zero defaults to 2 budgets.
	CatchupMaxTicks int
	// OnSnapshot hands the schema-only view of the collection to the
	// transport boundary after each mutation: at the end of every genuine
	// tick in continuous mode, and after every processed input or population
	// change in event-reactive mode. Nil disables the callback.
	OnSnapshot func(tick uint64, snapshots []entity.TypedSnapshot)
}

// Room is the authoritative, single-owner container for one game session. It
// owns exactly one entity collection and executes single-threaded relative to
// itself: every hook invocation for a given tick or input runs to completion
// before the next is considered, so entity mutation needs no locking. Rooms
// never share entities.
type Room struct {
	id  string
	def *Definition

	entities   *entity.Collection
	players    map[string]*Player
	spectators map[string]struct{}
	bots       *bot.Manager

	tick  uint64
	state map[string]any

	inputs   *inputQueue
	deferred *Deferred

	logger    telemetry.Logger
	publisher logging.Publisher
	metrics   telemetry.Metrics
	clock     logging.Clock
	catchup   int

	onSnapshot func(tick uint64, snapshots []entity.TypedSnapshot)

	over   bool
	winner *Player
}

// NewRoom validates the definition, builds the runtime, runs OnCreate before
// any player can connect, and fills the initial bot population.
func NewRoom(def *Definition, opts Options) (*Room, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	clock := opts.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}

	r := &Room{
		id:         id,
		def:        def,
		entities:   entity.NewCollection(),
		players:    make(map[string]*Player),
		spectators: make(map[string]struct{}),
		state:      make(map[string]any),
		inputs:     newInputQueue(defaultCapacity(opts.InputQueueCapacity), metrics),
		logger:     logger,
		publisher:  publisher,
		metrics:    metrics,
		clock:      clock,
		catchup:    opts.CatchupMaxTicks,
		onSnapshot: opts.OnSnapshot,
	}
	r.deferred = newDeferred(opts.DeferredCapacity, logger, metrics, r.publish)
	r.bots = bot.NewManager(bot.Config{
		Target:    def.Bots.Target,
		Behaviors: def.Bots.Behaviors,
		Names:     def.Bots.Names,
		Rand:      opts.Rand,
		Deliver:   r.HandleInput,
	})

	if def.OnCreate != nil {
		def.OnCreate(r)
	}
	r.fillBots()
	r.publish(logging.Event{
		Type:     logging.EventRoomCreated,
		Actor:    logging.ActorRef{ID: id, Kind: logging.ActorKindRoom},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  map[string]any{"game": def.Name, "bots": r.bots.Count()},
	})
	return r, nil
}

func defaultCapacity(v int) int {
	if v <= 0 {
		return 256
	}
	return v
}

// ID returns the room identity.
func (r *Room) ID() string { return r.id }

// Definition returns the game definition driving this room.
func (r *Room) Definition() *Definition { return r.def }

// Entities returns the room's entity collection. Only this room's hooks and
// its bot manager may mutate it.
func (r *Room) Entities() *entity.Collection { return r.entities }

// Tick returns the current tick counter. It only ever increases, by exactly
// one per genuine tick, and stays at zero in event-reactive mode.
func (r *Room) Tick() uint64 { return r.tick }

// Bots returns the room's bot manager.
func (r *Room) Bots() *bot.Manager { return r.bots }

// Deferred returns the deferred-call gateway to external services.
func (r *Room) Deferred() *Deferred { return r.deferred }

// Defer stages a call on the deferred gateway.
func (r *Room) Defer(fn func()) bool { return r.deferred.Enqueue(fn) }

// Logger returns the room's operational logger.
func (r *Room) Logger() telemetry.Logger { return r.logger }

// Set stores a value in the room's game-specific state bag.
func (r *Room) Set(key string, value any) { r.state[key] = value }

// Value reads a value from the state bag, nil when absent.
func (r *Room) Value(key string) any { return r.state[key] }

// Over reports whether game logic has declared the game finished.
func (r *Room) Over() bool { return r.over }

// Winner returns the player passed to EndGame, if any.
func (r *Room) Winner() *Player { return r.winner }

// Player returns the actor record, human or bot, for an id. Nil if unknown.
func (r *Room) Player(id string) *Player { return r.players[id] }

// Players returns every actor record, humans and bots, sorted by id.
func (r *Room) Players() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HumanCount returns the number of non-bot players.
func (r *Room) HumanCount() int {
	humans := 0
	for _, p := range r.players {
		if !p.Bot {
			humans++
		}
	}
	return humans
}

// Snapshots produces the full wire payload for the room, ready for the
// transport boundary.
func (r *Room) Snapshots() []entity.TypedSnapshot {
	return r.entities.Snapshots()
}

// Spawn adds an entity to the room's collection.
func (r *Room) Spawn(e entity.Entity) bool {
	if !r.entities.Add(e) {
		return false
	}
	r.publish(logging.Event{
		Type:     logging.EventEntitySpawned,
		Actor:    logging.ActorRef{ID: e.ID(), Kind: logging.ActorKindEntity},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLifecycle,
		Payload:  map[string]any{"type": e.TypeName()},
	})
	return true
}

// Despawn removes an entity immediately, returning it. When the entity
// belonged to a bot the actor record is dropped too. Unknown ids return nil.
func (r *Room) Despawn(id string) entity.Entity {
	e := r.entities.Remove(id)
	if e == nil {
		return nil
	}
	if p, ok := r.players[id]; ok && p.Bot {
		delete(r.players, id)
		r.bots.Forget(id)
	}
	r.publish(logging.Event{
		Type:     logging.EventEntityRemoved,
		Actor:    logging.ActorRef{ID: id, Kind: logging.ActorKindEntity},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLifecycle,
	})
	return e
}

// AddPlayer admits a human player. The join hook must assign a controlled
// entity if the game wants one. When the bot policy replaces on join, exactly
// one bot is despawned first iff at least one exists, so the hook observes
// the final population.
func (r *Room) AddPlayer(id string) (*Player, error) {
	if _, exists := r.players[id]; exists {
		return nil, ErrDuplicatePlayer
	}
	if r.def.MaxPlayers > 0 && r.HumanCount() >= r.def.MaxPlayers {
		return nil, ErrRoomFull
	}
	if r.def.Bots.ReplaceOnJoin {
		r.removeOneBot()
	}
	p := &Player{ID: id}
	r.players[id] = p
	if r.def.OnPlayerJoin != nil {
		r.def.OnPlayerJoin(r, p)
	}
	r.publish(logging.Event{
		Type:     logging.EventPlayerJoined,
		Actor:    logging.ActorRef{ID: id, Kind: logging.ActorKindPlayer},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPopulation,
		Payload:  map[string]any{"humans": r.HumanCount(), "bots": r.bots.Count()},
	})
	if !r.def.Continuous() {
		r.notifySnapshot()
	}
	return p, nil
}

// RemovePlayer runs the leave hook, which owns entity cleanup, then drops
// the actor record, refilling bots when the policy asks for it. Unknown ids
// are a no-op; removal takes effect within this call.
func (r *Room) RemovePlayer(id string) {
	p, ok := r.players[id]
	if !ok || p.Bot {
		return
	}
	if r.def.OnPlayerLeave != nil {
		r.def.OnPlayerLeave(r, p)
	}
	delete(r.players, id)
	if r.def.Bots.RefillOnLeave {
		r.fillBots()
	}
	r.publish(logging.Event{
		Type:     logging.EventPlayerLeft,
		Actor:    logging.ActorRef{ID: id, Kind: logging.ActorKindPlayer},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPopulation,
		Payload:  map[string]any{"humans": r.HumanCount(), "bots": r.bots.Count()},
	})
	if !r.def.Continuous() {
		r.notifySnapshot()
	}
}

// AddSpectator admits a read-only observer.
func (r *Room) AddSpectator(id string) {
	if _, exists := r.spectators[id]; exists {
		return
	}
	r.spectators[id] = struct{}{}
	if r.def.OnSpectatorJoin != nil {
		r.def.OnSpectatorJoin(r, id)
	}
	r.publish(logging.Event{
		Type:     logging.EventSpectatorJoin,
		Actor:    logging.ActorRef{ID: id, Kind: logging.ActorKindPlayer},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPopulation,
	})
}

// RemoveSpectator drops an observer. Unknown ids are a no-op.
func (r *Room) RemoveSpectator(id string) {
	delete(r.spectators, id)
}

// SpectatorCount returns the number of observers.
func (r *Room) SpectatorCount() int { return len(r.spectators) }

// HandleInput is the single entry point for actor input, shared verbatim by
// networked players and bots. The target entity's own HandleInput runs first,
// then the game-level hook observes the already mutated entity. That
// ordering is a hard contract. Input for an unknown actor is dropped
// silently.
func (r *Room) HandleInput(actorID string, in entity.Input) {
	p, ok := r.players[actorID]
	if !ok {
		r.metrics.Add(inputDropMetricKey, 1)
		r.publish(logging.Event{
			Type:     logging.EventInputDropped,
			Actor:    logging.ActorRef{ID: actorID, Kind: logging.ActorKindUnknown},
			Severity: logging.SeverityDebug,
			Category: logging.CategorySystem,
			Payload:  map[string]any{"reason": inputDropUnknownActor},
		})
		return
	}
	if e := p.Entity(); e != nil {
		e.HandleInput(in)
	}
	if r.def.OnInput != nil {
		r.def.OnInput(r, p, in)
	}
	if !r.def.Continuous() {
		r.notifySnapshot()
	}
}

// EnqueueInput stages an input for the next tick instead of applying it
// inline. Transport goroutines use this against a running continuous room so
// all mutation stays on the loop goroutine; for the same reason the overflow
// event carries no tick stamp, since the tick counter belongs to the loop.
func (r *Room) EnqueueInput(actorID string, in entity.Input) bool {
	if r.inputs.Push(stagedInput{ActorID: actorID, Input: in}) {
		return true
	}
	r.metrics.Add(inputDropMetricKey, 1)
	r.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventInputDropped,
		Room:     r.id,
		Actor:    logging.ActorRef{ID: actorID, Kind: logging.ActorKindPlayer},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  map[string]any{"reason": inputDropQueueFull},
	})
	return false
}

// Advance moves a continuous simulation forward by delta seconds: staged
// inputs drain first, the tick counter increments by exactly one, the tick
// hook fires once, then bots decide. Invoking Advance without a positive
// delta is a strict no-op: the counter does not move and no hook runs,
// which lets callers distinguish idle waiting from advancing. In
// event-reactive mode Advance is always a no-op.
func (r *Room) Advance(delta float64) {
	if !r.def.Continuous() {
		return
	}
	if delta <= 0 {
		return
	}
	for _, staged := range r.inputs.Drain() {
		r.HandleInput(staged.ActorID, staged.Input)
	}
	r.tick++
	r.metrics.Add(tickMetricKey, 1)
	if r.def.OnTick != nil {
		r.def.OnTick(r, delta)
	}
	r.bots.Step(r, r.tick)
	r.notifySnapshot()
}

// SignalTurn asks the bot controlling the entity to act now. Turn-based games
// call this when an AI actor comes up; the produced input flows through
// HandleInput like everything else. Returns false when the entity is not
// bot-controlled.
func (r *Room) SignalTurn(entityID string) bool {
	return r.bots.TakeTurn(r, entityID)
}

// EndGame records the outcome and runs the game-over hook. Only game logic
// decides when a game ends; calling twice is a no-op.
func (r *Room) EndGame(winner *Player) {
	if r.over {
		return
	}
	r.over = true
	r.winner = winner
	if r.def.OnGameOver != nil {
		r.def.OnGameOver(r, winner)
	}
	winnerID := ""
	if winner != nil {
		winnerID = winner.ID
	}
	r.publish(logging.Event{
		Type:     logging.EventGameOver,
		Actor:    logging.ActorRef{ID: r.id, Kind: logging.ActorKindRoom},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  map[string]any{"winner": winnerID, "tick": r.tick},
	})
}

func (r *Room) fillBots() {
	if r.def.Bots.Target == 0 || r.def.Bots.Spawn == nil {
		return
	}
	r.bots.Fill(r.HumanCount(), func(b bot.Behavior, name string) entity.Entity {
		e := r.def.Bots.Spawn(r, b, name)
		if e == nil {
			return nil
		}
		// A spawn colliding with a live actor's id is declined, never a
		// replacement.
		if _, taken := r.players[e.ID()]; taken {
			r.logger.Printf("[room %s] bot spawn id %s collides with a live actor, declined", r.id, e.ID())
			return nil
		}
		if r.entities.Get(e.ID()) == nil {
			r.entities.Add(e)
		}
		r.players[e.ID()] = &Player{ID: e.ID(), Name: name, Bot: true}
		r.players[e.ID()].Control(e)
		r.publish(logging.Event{
			Type:     logging.EventBotSpawned,
			Actor:    logging.ActorRef{ID: e.ID(), Kind: logging.ActorKindBot},
			Severity: logging.SeverityInfo,
			Category: logging.CategoryPopulation,
			Payload:  map[string]any{"behavior": b.Name(), "name": name},
		})
		return e
	})
}

func (r *Room) removeOneBot() {
	r.bots.RemoveOne(func(e entity.Entity) {
		delete(r.players, e.ID())
		r.entities.Remove(e.ID())
		r.publish(logging.Event{
			Type:     logging.EventBotRemoved,
			Actor:    logging.ActorRef{ID: e.ID(), Kind: logging.ActorKindBot},
			Severity: logging.SeverityInfo,
			Category: logging.CategoryPopulation,
		})
	})
}

func (r *Room) notifySnapshot() {
	if r.onSnapshot == nil {
		return
	}
	r.onSnapshot(r.tick, r.entities.Snapshots())
}

func (r *Room) publish(event logging.Event) {
	event.Room = r.id
	event.Tick = r.tick
	r.publisher.Publish(context.Background(), event)
}

var _ bot.World = (*Room)(nil)
