// Package proto defines the JSON messages crossing the websocket transport
// boundary. The core's obligation ends at the payload shape: per-entity
// {id, <schema fields>} snapshots in, (playerID, input) pairs out.
package proto

import (
	"encoding/json"
	"fmt"

	"netroom/entity"
)

// ProtocolVersion guards against stale clients after incompatible changes.
const ProtocolVersion = 1

// Client message types.
const (
	ClientJoin     = "join"
	ClientSpectate = "spectate"
	ClientInput    = "input"
	ClientLeave    = "leave"
)

// Server message types.
const (
	ServerWelcome = "welcome"
	ServerState   = "state"
	ServerAck     = "ack"
	ServerError   = "error"
	ServerGameEnd = "game_over"
)

// ClientMessage is everything a client may send.
type ClientMessage struct {
	Ver  int    `json:"ver,omitempty"`
	Type string `json:"type"`
	// Game names the definition to join.
	Game string `json:"game,omitempty"`
	// Seq is the client-side input sequence number, echoed in acks.
	Seq uint32 `json:"seq,omitempty"`
	// At is the client timestamp the input was produced, in seconds.
	At    float64      `json:"at,omitempty"`
	Input entity.Input `json:"input,omitempty"`
}

// ServerMessage is everything the server may send.
type ServerMessage struct {
	Ver      int                    `json:"ver"`
	Type     string                 `json:"type"`
	Room     string                 `json:"room,omitempty"`
	PlayerID string                 `json:"playerId,omitempty"`
	Tick     uint64                 `json:"tick,omitempty"`
	Entities []entity.TypedSnapshot `json:"entities,omitempty"`
	AckSeq   uint32                 `json:"ackSeq,omitempty"`
	Winner   string                 `json:"winner,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
}

// DecodeClient parses and version-checks one client frame.
func DecodeClient(raw []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("malformed client message: %w", err)
	}
	if msg.Ver != 0 && msg.Ver != ProtocolVersion {
		return ClientMessage{}, fmt.Errorf("unsupported protocol version %d", msg.Ver)
	}
	if msg.Type == "" {
		return ClientMessage{}, fmt.Errorf("client message missing type")
	}
	return msg, nil
}

// EncodeServer marshals one server frame.
func EncodeServer(msg ServerMessage) ([]byte, error) {
	msg.Ver = ProtocolVersion
	return json.Marshal(msg)
}
