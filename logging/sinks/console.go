package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"netroom/logging"
)

// Console renders events as single-line human-readable log records.
type Console struct {
	logger *log.Logger
}

// NewConsole constructs a console sink writing to w.
func NewConsole(w io.Writer, cfg logging.ConsoleConfig) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{logger: log.New(w, "", log.LstdFlags)}
}

// Write satisfies logging.Sink.
func (s *Console) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	s.logger.Printf("[%s] room=%s tick=%d actor=%s severity=%s%s",
		event.Type, event.Room, event.Tick, formatActor(event.Actor), formatSeverity(event.Severity), formatPayload(event.Payload))
	return nil
}

// Close satisfies logging.Sink.
func (s *Console) Close(context.Context) error {
	return nil
}

func formatSeverity(sev logging.Severity) string {
	switch sev {
	case logging.SeverityDebug:
		return "debug"
	case logging.SeverityInfo:
		return "info"
	case logging.SeverityWarn:
		return "warn"
	case logging.SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func formatActor(ref logging.ActorRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return fmt.Sprintf(" payload=%s", encoded)
}
