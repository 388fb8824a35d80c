// Package ws runs websocket sessions against the room hub. A session is
// upgraded, bound to a room with a join or spectate frame, and then loops
// reading input frames until the peer goes away.
package ws

import (
	"log"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"netroom/internal/host"
	"netroom/internal/net/proto"
)

const writeWait = 10 * time.Second

// HandlerConfig tunes a websocket handler.
type HandlerConfig struct {
	Logger *log.Logger
}

// Handler upgrades connections and runs their sessions.
type Handler struct {
	hub      *host.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket handler over the hub.
func NewHandler(hub *host.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

// session serializes writes to one connection. Both the read loop (acks,
// errors) and the broadcast forwarder write through it.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) writeServer(msg proto.ServerMessage) error {
	data, err := proto.EncodeServer(msg)
	if err != nil {
		return err
	}
	return s.write(data)
}

// Handle upgrades the request and runs the session to completion.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		playerID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}
	defer conn.Close()

	sess := &session{conn: conn}

	hr, spectator, ok := h.bind(sess, playerID, conn)
	if !ok {
		return
	}
	defer func() {
		if spectator {
			hr.SpectatorLeave(playerID)
		} else {
			hr.Leave(playerID)
		}
	}()

	frames := hr.Subscribe(playerID)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case frame, open := <-frames:
				if !open {
					return
				}
				if err := sess.write(frame); err != nil {
					return
				}
			}
		}
	}()

	welcome := proto.ServerMessage{
		Type:     proto.ServerWelcome,
		Room:     hr.Room().ID(),
		PlayerID: playerID,
		Tick:     hr.Tick(),
	}
	if err := sess.writeServer(welcome); err != nil {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClient(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", playerID, err)
			continue
		}

		switch msg.Type {
		case proto.ClientInput:
			if spectator {
				continue
			}
			seq, ok, reason := hr.Deliver(playerID, msg)
			if ok {
				if seq == 0 {
					continue
				}
				if err := sess.writeServer(proto.ServerMessage{
					Type:   proto.ServerAck,
					AckSeq: seq,
					Tick:   hr.Tick(),
				}); err != nil {
					return
				}
				continue
			}
			if err := sess.writeServer(proto.ServerMessage{
				Type:   proto.ServerError,
				AckSeq: msg.Seq,
				Reason: reason,
			}); err != nil {
				return
			}
		case proto.ClientLeave:
			message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			conn.WriteMessage(websocket.CloseMessage, message)
			return
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, playerID)
		}
	}
}

// bind reads the first frame and attaches the connection to a room. The
// opening frame must be a join or spectate naming a registered game.
func (h *Handler) bind(sess *session, playerID string, conn *websocket.Conn) (*host.HostedRoom, bool, bool) {
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return nil, false, false
	}
	msg, err := proto.DecodeClient(payload)
	if err != nil {
		h.logger.Printf("rejecting session %s: %v", playerID, err)
		return nil, false, false
	}

	switch msg.Type {
	case proto.ClientJoin:
		hr, err := h.hub.JoinRoom(msg.Game, playerID)
		if err != nil {
			sess.writeServer(proto.ServerMessage{Type: proto.ServerError, Reason: err.Error()})
			message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "join rejected")
			conn.WriteMessage(websocket.CloseMessage, message)
			return nil, false, false
		}
		return hr, false, true
	case proto.ClientSpectate:
		hr, err := h.hub.SpectateRoom(msg.Game, playerID)
		if err != nil {
			sess.writeServer(proto.ServerMessage{Type: proto.ServerError, Reason: err.Error()})
			message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "spectate rejected")
			conn.WriteMessage(websocket.CloseMessage, message)
			return nil, false, false
		}
		return hr, true, true
	default:
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected join or spectate")
		conn.WriteMessage(websocket.CloseMessage, message)
		return nil, false, false
	}
}
