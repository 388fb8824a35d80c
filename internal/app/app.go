// Package app wires a room server process: configuration, the structured
// event router, the demo game registry, the hub, and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"netroom/game"
	"netroom/games/arena"
	"netroom/games/gridloot"
	"netroom/internal/host"
	servernet "netroom/internal/net"
	"netroom/internal/telemetry"
	"netroom/logging"
	loggingSinks "netroom/logging/sinks"
)

// Run assembles the server from cfg and serves until ctx is cancelled or the
// listener fails.
func Run(ctx context.Context, cfg Config) error {
	stdLogger := log.Default()
	telemetryLogger := telemetry.WrapLogger(stdLogger)

	routerCfg := cfg.RouterConfig()
	sinks := []logging.NamedSink{}
	if routerCfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsole(os.Stdout, routerCfg.Console),
		})
	}
	if routerCfg.HasSink("json") && routerCfg.JSON.FilePath != "" {
		file, err := os.OpenFile(routerCfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open json log %s: %w", routerCfg.JSON.FilePath, err)
		}
		defer file.Close()
		sinks = append(sinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, routerCfg.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, routerCfg, sinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	registry := game.NewRegistry()
	if err := registry.Register(arena.Definition()); err != nil {
		return fmt.Errorf("register arena: %w", err)
	}
	gridCfg := gridloot.Config{
		Loot: cfg.Games.Gridloot.Loot,
		Bots: cfg.Games.Gridloot.Bots,
	}
	if err := registry.Register(gridloot.Definition(gridCfg)); err != nil {
		return fmt.Errorf("register gridloot: %w", err)
	}

	counters := telemetry.NewCounters()
	hub := host.NewHub(registry, host.HubOptions{
		Logger:    telemetryLogger,
		Publisher: router,
		Metrics:   counters,
	})
	defer hub.Close()

	handler := servernet.NewHTTPHandler(hub, registry, servernet.HTTPHandlerConfig{
		Logger:   stdLogger,
		Counters: counters,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	errc := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}
