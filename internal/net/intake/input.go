// Package intake validates client input frames and stages them into a room.
// It sits between the websocket session and the room so the session code
// never touches simulation state directly.
package intake

import (
	"netroom/entity"
	"netroom/game"
	"netroom/internal/net/proto"
)

// Reject reasons reported back to the client.
const (
	RejectInvalidInput = "invalid_input"
	RejectUnknownActor = "unknown_actor"
	RejectQueueFull    = "queue_full"
)

// StageInput validates one input frame and hands it to the room. Continuous
// rooms stage through the input queue and touch no other room state: the
// player table belongs to the loop goroutine, so the actor check happens at
// drain time and unknown actors are dropped there. Event-reactive rooms
// process synchronously under the caller's room serialization. Returns the
// sequence number to acknowledge and, on failure, a reject reason.
func StageInput(r *game.Room, playerID string, msg proto.ClientMessage) (uint32, bool, string) {
	if msg.Type != proto.ClientInput || msg.Input == nil {
		return 0, false, RejectInvalidInput
	}
	in := make(entity.Input, len(msg.Input))
	for k, v := range msg.Input {
		in[k] = v
	}
	if r.Definition().Continuous() {
		if !r.EnqueueInput(playerID, in) {
			return 0, false, RejectQueueFull
		}
		return msg.Seq, true, ""
	}
	if r.Player(playerID) == nil {
		return 0, false, RejectUnknownActor
	}
	r.HandleInput(playerID, in)
	return msg.Seq, true, ""
}
