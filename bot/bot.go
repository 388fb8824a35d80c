// Package bot fills empty player slots with AI-controlled entities. Bots are
// behaviorally indistinguishable from human players: every input a behavior
// produces is relayed through the identical delivery function networked input
// uses, so game logic can never special-case the bot path, only its presence
// in population counts.
package bot

import (
	"math/rand"
	"sort"

	"netroom/entity"
)

// World is the narrow, read-only room view a behavior may query while
// deciding. It deliberately excludes mutation: behaviors act by producing
// input, never by touching entities directly.
type World interface {
	Entities() *entity.Collection
	Tick() uint64
}

// Behavior is one pluggable bot brain. PollEvery declares the decision
// cadence in ticks for continuously ticking games; zero means the behavior is
// turn-driven and only decides when the manager signals its turn. Think
// returns the input to relay, or nil to stay idle.
type Behavior interface {
	Name() string
	PollEvery() uint64
	Think(w World, self entity.Entity) entity.Input
}

// DeliverFunc is the shared input entry point. The room passes the same
// function it exposes to the transport layer.
type DeliverFunc func(actorID string, in entity.Input)

// SpawnFunc creates and registers the entity one new bot will control. The
// game decides what a bot looks like; returning nil skips the spawn.
type SpawnFunc func(behavior Behavior, name string) entity.Entity

// Config assembles a manager.
type Config struct {
	// Target is the desired total occupancy, bots plus humans.
	Target    int
	Behaviors []Behavior
	Names     []string
	Deliver   DeliverFunc
	// Rand drives behavior assignment; nil falls back to the global source.
	Rand *rand.Rand
}

type trackedBot struct {
	entity    entity.Entity
	behavior  Behavior
	name      string
	nextThink uint64
}

// Manager owns the bot population of one room and drives bot decisions. Like
// the rest of a room it is single-threaded: only the owning room's loop and
// hooks call into it.
type Manager struct {
	target     int
	behaviors  []Behavior
	names      []string
	nameCursor int
	rng        *rand.Rand
	deliver    DeliverFunc
	bots       map[string]*trackedBot
}

// NewManager constructs a manager from the fill policy.
func NewManager(cfg Config) *Manager {
	return &Manager{
		target:    cfg.Target,
		behaviors: cfg.Behaviors,
		names:     cfg.Names,
		rng:       cfg.Rand,
		deliver:   cfg.Deliver,
		bots:      make(map[string]*trackedBot),
	}
}

// Target returns the configured total occupancy.
func (m *Manager) Target() int {
	if m == nil {
		return 0
	}
	return m.target
}

// Count returns the current bot population.
func (m *Manager) Count() int {
	if m == nil {
		return 0
	}
	return len(m.bots)
}

// Controls reports whether the entity id belongs to one of this manager's
// bots.
func (m *Manager) Controls(entityID string) bool {
	if m == nil {
		return false
	}
	_, ok := m.bots[entityID]
	return ok
}

// Fill spawns exactly max(0, target − humans − currentBots) bots, each bound
// to a randomly chosen behavior and a cycled display name, and returns how
// many were spawned. Spawns the game declines (nil entity) are skipped, and
// so is any spawn whose id is already tracked; a live bot is never replaced.
func (m *Manager) Fill(humans int, spawn SpawnFunc) int {
	if m == nil || spawn == nil || len(m.behaviors) == 0 {
		return 0
	}
	deficit := m.target - humans - len(m.bots)
	spawned := 0
	for i := 0; i < deficit; i++ {
		behavior := m.pickBehavior()
		e := spawn(behavior, m.nextName())
		if e == nil {
			continue
		}
		if _, tracked := m.bots[e.ID()]; tracked {
			continue
		}
		e.MarkBot()
		m.bots[e.ID()] = &trackedBot{entity: e, behavior: behavior}
		spawned++
	}
	return spawned
}

// RemoveOne despawns exactly one bot when at least one exists, returning
// whether a bot was removed. Removal picks the lowest entity id so tests and
// replays see a deterministic population. A safe no-op at zero.
func (m *Manager) RemoveOne(despawn func(entity.Entity)) bool {
	if m == nil || len(m.bots) == 0 {
		return false
	}
	ids := m.sortedIDs()
	victim := m.bots[ids[0]]
	delete(m.bots, ids[0])
	if despawn != nil {
		despawn(victim.entity)
	}
	return true
}

// Forget drops tracking for an entity that game logic removed directly, for
// example a bot defeated mid-game. Unknown ids are a no-op.
func (m *Manager) Forget(entityID string) {
	if m == nil {
		return
	}
	delete(m.bots, entityID)
}

// Step runs one decision pass for the tick loop. Each polling bot whose
// cadence has elapsed thinks once; any produced input is relayed through the
// shared delivery function. Turn-driven behaviors never poll.
func (m *Manager) Step(w World, tick uint64) {
	if m == nil || m.deliver == nil {
		return
	}
	for _, id := range m.sortedIDs() {
		b := m.bots[id]
		if b == nil {
			continue
		}
		every := b.behavior.PollEvery()
		if every == 0 {
			continue
		}
		if tick < b.nextThink {
			continue
		}
		b.nextThink = tick + every
		if in := b.behavior.Think(w, b.entity); in != nil {
			m.deliver(id, in)
		}
	}
}

// TakeTurn asks the bot controlling the given entity to decide right now,
// regardless of its polling cadence; turn-based games call this when the
// actor comes up. Returns false when the entity is not one of our bots.
func (m *Manager) TakeTurn(w World, entityID string) bool {
	if m == nil || m.deliver == nil {
		return false
	}
	b := m.bots[entityID]
	if b == nil {
		return false
	}
	if in := b.behavior.Think(w, b.entity); in != nil {
		m.deliver(entityID, in)
	}
	return true
}

func (m *Manager) sortedIDs() []string {
	ids := make([]string, 0, len(m.bots))
	for id := range m.bots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) pickBehavior() Behavior {
	if len(m.behaviors) == 1 {
		return m.behaviors[0]
	}
	if m.rng != nil {
		return m.behaviors[m.rng.Intn(len(m.behaviors))]
	}
	return m.behaviors[rand.Intn(len(m.behaviors))]
}

func (m *Manager) nextName() string {
	if len(m.names) == 0 {
		return ""
	}
	name := m.names[m.nameCursor%len(m.names)]
	m.nameCursor++
	return name
}
