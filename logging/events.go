package logging

import "time"

// EventType names one structured room event.
type EventType string

// Severity orders events for sink filtering.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

// ActorKind classifies the subject of an event.
type ActorKind string

const (
	ActorKindUnknown ActorKind = "unknown"
	ActorKindPlayer  ActorKind = "player"
	ActorKindBot     ActorKind = "bot"
	ActorKindEntity  ActorKind = "entity"
	ActorKindRoom    ActorKind = "room"
)

// Room lifecycle and population event vocabulary. Game code may add its own
// types; these are the ones the framework itself publishes.
const (
	EventRoomCreated    EventType = "room_created"
	EventRoomClosed     EventType = "room_closed"
	EventGameOver       EventType = "game_over"
	EventPlayerJoined   EventType = "player_joined"
	EventPlayerLeft     EventType = "player_left"
	EventSpectatorJoin  EventType = "spectator_joined"
	EventBotSpawned     EventType = "bot_spawned"
	EventBotRemoved     EventType = "bot_removed"
	EventInputDropped   EventType = "input_dropped"
	EventTickOverrun    EventType = "tick_overrun"
	EventDeferredDrop   EventType = "deferred_call_dropped"
	EventEntitySpawned  EventType = "entity_spawned"
	EventEntityRemoved  EventType = "entity_removed"
)

const (
	CategoryLifecycle  = "lifecycle"
	CategoryPopulation = "population"
	CategorySystem     = "system"
)

// ActorRef identifies the subject of an event.
type ActorRef struct {
	ID   string    `json:"id"`
	Kind ActorKind `json:"kind"`
}

// Event is one structured record flowing through the router to its sinks.
type Event struct {
	Type     EventType      `json:"type"`
	Room     string         `json:"room,omitempty"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    ActorRef       `json:"actor"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// WithExtra returns a copy of the event carrying one more extra field.
func (e Event) WithExtra(key string, value any) Event {
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}
