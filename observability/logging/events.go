package logging

import (
	"context"
	"log/slog"

	"isoledger/core/events"
)

// EventLogger writes one structured line per ledger event.
type EventLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewEventLogger logs events through logger at info level. A nil logger uses
// slog.Default.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{logger: logger.With(slog.String("component", "events")), level: slog.LevelInfo}
}

// WithLevel returns a copy logging at level.
func (l *EventLogger) WithLevel(level slog.Level) *EventLogger {
	cp := *l
	cp.level = level
	return &cp
}

// Emit implements events.Emitter.
func (l *EventLogger) Emit(evt events.Event) {
	if l == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	keys := payload.Keys()
	attrs := make([]any, 0, len(keys)+1)
	attrs = append(attrs, slog.String("type", payload.Type))
	for _, key := range keys {
		attrs = append(attrs, MaskField(key, payload.Attributes[key]))
	}
	l.logger.Log(context.Background(), l.level, "ledger event", attrs...)
}
