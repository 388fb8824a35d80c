// Package net assembles the HTTP surface of a room server: the websocket
// endpoint plus the small JSON endpoints operators poke at.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"netroom/game"
	"netroom/internal/host"
	"netroom/internal/net/ws"
	"netroom/internal/telemetry"
)

// HTTPHandlerConfig tunes the HTTP surface.
type HTTPHandlerConfig struct {
	Logger *log.Logger
	// Counters, when set, backs the /metrics endpoint.
	Counters *telemetry.Counters
}

// NewHTTPHandler builds the mux: /ws for sessions, /health, /games for the
// registered definitions, and /metrics when a counter set is wired.
func NewHTTPHandler(hub *host.Hub, registry *game.Registry, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/games", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		type gameInfo struct {
			Name       string `json:"name"`
			TickRate   int    `json:"tickRate"`
			MaxPlayers int    `json:"maxPlayers"`
		}
		payload := struct {
			ServerTime int64      `json:"serverTime"`
			Games      []gameInfo `json:"games"`
		}{ServerTime: time.Now().UnixMilli()}
		for _, name := range registry.Names() {
			def, ok := registry.Definition(name)
			if !ok {
				continue
			}
			payload.Games = append(payload.Games, gameInfo{
				Name:       def.Name,
				TickRate:   def.TickRate,
				MaxPlayers: def.MaxPlayers,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Printf("failed to encode games listing: %v", err)
		}
	})

	if cfg.Counters != nil {
		counters := cfg.Counters
		mux.HandleFunc("/metrics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			values := make(map[string]uint64)
			for _, key := range counters.Keys() {
				values[key] = counters.Value(key)
			}
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(values); err != nil {
				logger.Printf("failed to encode metrics: %v", err)
			}
		})
	}

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	return mux
}
