package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"netroom/entity"
	"netroom/game"
	"netroom/internal/net/intake"
	"netroom/internal/net/proto"
	"netroom/internal/telemetry"
	"netroom/logging"
)

// Hub owns every live room in the hosting process. Rooms run independently
// and concurrently; the hub serializes each room's hook execution so a room
// stays single-threaded relative to itself while transport goroutines come
// and go.
type Hub struct {
	registry  *game.Registry
	logger    telemetry.Logger
	publisher logging.Publisher
	metrics   telemetry.Metrics

	mu    sync.Mutex
	rooms map[string]*HostedRoom
}

// HubOptions wires a hub.
type HubOptions struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

// NewHub constructs a hub over the definition registry.
func NewHub(registry *game.Registry, opts HubOptions) *Hub {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Hub{
		registry:  registry,
		logger:    opts.Logger,
		publisher: publisher,
		metrics:   metrics,
		rooms:     make(map[string]*HostedRoom),
	}
}

// HostedRoom pairs a room with the synchronization and fan-out plumbing the
// transport needs. The mutex serializes every hook-running entry point; a
// continuous room's tick loop takes it once per tick.
type HostedRoom struct {
	room *game.Room
	hub  *Hub

	mu   sync.Mutex
	stop chan struct{}
	once sync.Once

	subsMu sync.Mutex
	subs   map[string]chan []byte
}

// JoinRoom admits the player into the (single, created-on-demand) room for
// the named game.
func (h *Hub) JoinRoom(gameName, playerID string) (*HostedRoom, error) {
	hr, err := h.roomFor(gameName)
	if err != nil {
		return nil, err
	}
	hr.mu.Lock()
	_, err = hr.room.AddPlayer(playerID)
	hr.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return hr, nil
}

// SpectateRoom admits a read-only observer.
func (h *Hub) SpectateRoom(gameName, spectatorID string) (*HostedRoom, error) {
	hr, err := h.roomFor(gameName)
	if err != nil {
		return nil, err
	}
	hr.mu.Lock()
	hr.room.AddSpectator(spectatorID)
	hr.mu.Unlock()
	return hr, nil
}

func (h *Hub) roomFor(gameName string) (*HostedRoom, error) {
	def, ok := h.registry.Definition(gameName)
	if !ok {
		return nil, fmt.Errorf("unknown game %q", gameName)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if hr, ok := h.rooms[gameName]; ok {
		return hr, nil
	}
	hr := &HostedRoom{
		hub:  h,
		stop: make(chan struct{}),
		subs: make(map[string]chan []byte),
	}
	room, err := game.NewRoom(def, game.Options{
		Logger:     h.logger,
		Publisher:  h.publisher,
		Metrics:    h.metrics,
		OnSnapshot: hr.broadcastState,
	})
	if err != nil {
		return nil, err
	}
	hr.room = room
	h.rooms[gameName] = hr
	go room.Deferred().Run(hr.stop)
	if def.Continuous() {
		go hr.runLoop()
	}
	return hr, nil
}

// Rooms returns a snapshot of the hosted rooms.
func (h *Hub) Rooms() []*HostedRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*HostedRoom, 0, len(h.rooms))
	for _, hr := range h.rooms {
		out = append(out, hr)
	}
	return out
}

// Close stops every hosted room's goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, hr := range h.rooms {
		hr.close()
	}
}

// Room exposes the underlying room for handlers that only read metadata.
func (hr *HostedRoom) Room() *game.Room { return hr.room }

// Tick reads the room's tick under the room mutex.
func (hr *HostedRoom) Tick() uint64 {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	return hr.room.Tick()
}

// Deliver routes one input frame into the room. Continuous rooms stage
// through the threadsafe input queue; event-reactive rooms process
// synchronously under the room mutex.
func (hr *HostedRoom) Deliver(playerID string, msg proto.ClientMessage) (uint32, bool, string) {
	if hr.room.Definition().Continuous() {
		return intake.StageInput(hr.room, playerID, msg)
	}
	hr.mu.Lock()
	defer hr.mu.Unlock()
	return intake.StageInput(hr.room, playerID, msg)
}

// Leave removes the player and their subscription.
func (hr *HostedRoom) Leave(playerID string) {
	hr.mu.Lock()
	hr.room.RemovePlayer(playerID)
	hr.mu.Unlock()
	hr.Unsubscribe(playerID)
}

// SpectatorLeave removes an observer and their subscription.
func (hr *HostedRoom) SpectatorLeave(id string) {
	hr.mu.Lock()
	hr.room.RemoveSpectator(id)
	hr.mu.Unlock()
	hr.Unsubscribe(id)
}

// Subscribe registers an outbound frame channel for a connection.
func (hr *HostedRoom) Subscribe(id string) <-chan []byte {
	ch := make(chan []byte, 32)
	hr.subsMu.Lock()
	hr.subs[id] = ch
	hr.subsMu.Unlock()
	return ch
}

// Unsubscribe drops a connection's channel.
func (hr *HostedRoom) Unsubscribe(id string) {
	hr.subsMu.Lock()
	if ch, ok := hr.subs[id]; ok {
		delete(hr.subs, id)
		close(ch)
	}
	hr.subsMu.Unlock()
}

// runLoop drives a continuous room, taking the room mutex once per tick so
// joins and leaves interleave between ticks, never inside one. The measured
// delta is clamped the same way Room.Run clamps it.
func (hr *HostedRoom) runLoop() {
	def := hr.room.Definition()
	ticker := time.NewTicker(time.Second / time.Duration(def.TickRate))
	defer ticker.Stop()

	budget := 1.0 / float64(def.TickRate)
	maxDt := budget * 2
	last := time.Now()
	for {
		select {
		case <-hr.stop:
			return
		case <-ticker.C:
			now := time.Now()
			dt := now.Sub(last).Seconds()
			last = now
			if dt <= 0 {
				dt = budget
			} else if dt > maxDt {
				dt = maxDt
			}
			hr.mu.Lock()
			hr.room.Advance(dt)
			hr.mu.Unlock()
		}
	}
}

func (hr *HostedRoom) close() {
	hr.once.Do(func() {
		close(hr.stop)
		hr.hub.publisher.Publish(context.Background(), logging.Event{
			Type:     logging.EventRoomClosed,
			Room:     hr.room.ID(),
			Tick:     hr.Tick(),
			Actor:    logging.ActorRef{ID: hr.room.ID(), Kind: logging.ActorKindRoom},
			Severity: logging.SeverityInfo,
			Category: logging.CategoryLifecycle,
		})
	})
	hr.subsMu.Lock()
	for id, ch := range hr.subs {
		delete(hr.subs, id)
		close(ch)
	}
	hr.subsMu.Unlock()
}

// broadcastState fans the schema-only payload out to every subscriber. A
// slow consumer loses frames rather than stalling the simulation.
func (hr *HostedRoom) broadcastState(tick uint64, snapshots []entity.TypedSnapshot) {
	frame, err := proto.EncodeServer(proto.ServerMessage{
		Type:     proto.ServerState,
		Room:     hr.room.ID(),
		Tick:     tick,
		Entities: snapshots,
	})
	if err != nil {
		if hr.hub.logger != nil {
			hr.hub.logger.Printf("[hub] state encode failed room=%s: %v", hr.room.ID(), err)
		}
		return
	}
	hr.fanOut(frame)
	if hr.room.Over() {
		winner := ""
		if w := hr.room.Winner(); w != nil {
			winner = w.ID
		}
		over, err := proto.EncodeServer(proto.ServerMessage{
			Type:   proto.ServerGameEnd,
			Room:   hr.room.ID(),
			Tick:   tick,
			Winner: winner,
		})
		if err == nil {
			hr.fanOut(over)
		}
	}
}

func (hr *HostedRoom) fanOut(frame []byte) {
	hr.subsMu.Lock()
	for _, ch := range hr.subs {
		select {
		case ch <- frame:
		default:
		}
	}
	hr.subsMu.Unlock()
}
