package game

import "netroom/entity"

// Player is one actor record in a room: an identity plus, once game logic
// assigns it, the entity it controls. Bots get the same record shape with Bot
// set, keyed by their entity id, which is what makes the shared input entry
// point structural rather than conventional.
type Player struct {
	// ID is the player identity. For humans this ties to the external
	// platform's visitor identity; for bots it equals the controlled entity's
	// id.
	ID string
	// Name is the display name, populated for bots from the name pool.
	Name string
	// Bot marks AI-controlled actor records for population accounting.
	Bot bool

	controlled entity.Entity
}

// Entity returns the entity this player controls, or nil before game logic
// assigns one.
func (p *Player) Entity() entity.Entity {
	if p == nil {
		return nil
	}
	return p.controlled
}

// Control assigns the entity this player drives. Game logic calls this from
// its join hook; the framework never assigns entities on its own.
func (p *Player) Control(e entity.Entity) {
	if p == nil {
		return
	}
	p.controlled = e
}
