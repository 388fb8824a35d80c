package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"netroom/logging"
	"netroom/logging/sinks"
)

func newTestRouter(t *testing.T, cfg logging.Config, named ...logging.NamedSink) *logging.Router {
	t.Helper()
	router, err := logging.NewRouter(logging.SystemClock{}, cfg, named)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	return router
}

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestRouterDeliversToSinks(t *testing.T) {
	memory := sinks.NewMemory()
	router := newTestRouter(t, logging.DefaultConfig(), logging.NamedSink{Name: "memory", Sink: memory})

	router.Publish(context.Background(), logging.Event{
		Type:     logging.EventPlayerJoined,
		Room:     "room-1",
		Severity: logging.SeverityInfo,
	})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(events))
	}
	if events[0].Type != logging.EventPlayerJoined || events[0].Room != "room-1" {
		t.Fatalf("wrong event delivered: %+v", events[0])
	}
	if events[0].Time.IsZero() {
		t.Fatalf("router should stamp missing timestamps")
	}
	if got := router.Stats(); got.EventsTotal != 1 || got.DroppedTotal != 0 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	memory := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router := newTestRouter(t, cfg, logging.NamedSink{Name: "memory", Sink: memory})

	router.Publish(context.Background(), logging.Event{Type: "quiet", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "loud", Severity: logging.SeverityError})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 || events[0].Type != "loud" {
		t.Fatalf("severity filter wrong: %+v", events)
	}
}

func TestRouterStampsAmbientFields(t *testing.T) {
	memory := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"service": "rooms"}
	router := newTestRouter(t, cfg, logging.NamedSink{Name: "memory", Sink: memory})

	router.Publish(context.Background(), logging.Event{Type: "anything", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := events[0].Extra["service"]; got != "rooms" {
		t.Fatalf("ambient field missing, extra=%v", events[0].Extra)
	}
}

func TestRouterIgnoresUntypedAndPostCloseEvents(t *testing.T) {
	memory := sinks.NewMemory()
	router := newTestRouter(t, logging.DefaultConfig(), logging.NamedSink{Name: "memory", Sink: memory})

	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityInfo})
	closeRouter(t, router)
	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityInfo})

	if got := len(memory.Events()); got != 0 {
		t.Fatalf("expected no delivered events, got %d", got)
	}
}

func TestWithFieldsDecoratesPublisher(t *testing.T) {
	var captured logging.Event
	base := logging.PublisherFunc(func(_ context.Context, e logging.Event) { captured = e })
	decorated := logging.WithFields(base, map[string]any{"shard": 3})

	decorated.Publish(context.Background(), logging.Event{Type: "x"})
	if captured.Extra["shard"] != 3 {
		t.Fatalf("decorator did not stamp fields: %+v", captured.Extra)
	}
}

func TestJSONSinkEmitsNDJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewJSON(&buf, 0)

	err := sink.Write(logging.Event{
		Type:     logging.EventRoomCreated,
		Room:     "room-9",
		Tick:     3,
		Time:     time.Unix(100, 0).UTC(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one NDJSON line, got %d", len(lines))
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if record["type"] != string(logging.EventRoomCreated) || record["room"] != "room-9" {
		t.Fatalf("unexpected record: %v", record)
	}
}
