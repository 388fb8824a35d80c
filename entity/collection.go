package entity

import (
	"math"
	"sort"
)

// Collection owns every entity in one room. It is the sole owner: entities
// are never shared across rooms, and only the owning room's hooks and bot
// manager mutate it. No internal locking; rooms are single-threaded relative
// to themselves.
type Collection struct {
	byID   map[string]Entity
	byType map[string]map[string]Entity
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{
		byID:   make(map[string]Entity),
		byType: make(map[string]map[string]Entity),
	}
}

// Add registers an entity under its id and type index. Adding a nil entity or
// a duplicate id is a no-op returning false.
func (c *Collection) Add(e Entity) bool {
	if c == nil || e == nil || e.ID() == "" {
		return false
	}
	if _, exists := c.byID[e.ID()]; exists {
		return false
	}
	c.byID[e.ID()] = e
	bucket := c.byType[e.TypeName()]
	if bucket == nil {
		bucket = make(map[string]Entity)
		c.byType[e.TypeName()] = bucket
	}
	bucket[e.ID()] = e
	return true
}

// Remove drops the entity with the given id, returning it for caller-side
// teardown. Unknown ids return nil; removal is synchronous and immediate.
func (c *Collection) Remove(id string) Entity {
	if c == nil {
		return nil
	}
	e, ok := c.byID[id]
	if !ok {
		return nil
	}
	delete(c.byID, id)
	if bucket := c.byType[e.TypeName()]; bucket != nil {
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(c.byType, e.TypeName())
		}
	}
	return e
}

// Get returns the entity with the given id, or nil.
func (c *Collection) Get(id string) Entity {
	if c == nil {
		return nil
	}
	return c.byID[id]
}

// Len returns the number of live entities.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byID)
}

// OfType returns every entity of the named type sorted by id, so iteration
// order is deterministic across runs.
func (c *Collection) OfType(typeName string) []Entity {
	if c == nil {
		return nil
	}
	bucket := c.byType[typeName]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]Entity, 0, len(bucket))
	for _, e := range bucket {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// All returns every live entity sorted by id.
func (c *Collection) All() []Entity {
	if c == nil {
		return nil
	}
	out := make([]Entity, 0, len(c.byID))
	for _, e := range c.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Nearest scans entities of the named type for the one closest to from,
// excluding from itself and any candidate the exclude predicate rejects.
// Candidates that do not expose a position are skipped. Returns nil when no
// eligible candidate exists; ties break on the lower id.
func (c *Collection) Nearest(typeName string, from Entity, exclude func(Entity) bool) Entity {
	if c == nil || from == nil {
		return nil
	}
	origin, ok := from.(Positioned)
	if !ok {
		return nil
	}
	ox, oy := origin.Position()

	var best Entity
	bestDist := math.MaxFloat64
	for _, candidate := range c.OfType(typeName) {
		if candidate.ID() == from.ID() {
			continue
		}
		if exclude != nil && exclude(candidate) {
			continue
		}
		pos, ok := candidate.(Positioned)
		if !ok {
			continue
		}
		x, y := pos.Position()
		dx, dy := x-ox, y-oy
		distSq := dx*dx + dy*dy
		if distSq < bestDist {
			bestDist = distSq
			best = candidate
		}
	}
	return best
}

// Snapshots produces the full wire payload for the room: every live entity's
// runtime type name paired with its schema-only snapshot, sorted by id. This
// is the single choke point through which state leaves the simulation.
func (c *Collection) Snapshots() []TypedSnapshot {
	if c == nil || len(c.byID) == 0 {
		return nil
	}
	out := make([]TypedSnapshot, 0, len(c.byID))
	for _, e := range c.All() {
		out = append(out, TypedSnapshot{Type: e.TypeName(), Data: e.Snapshot()})
	}
	return out
}
