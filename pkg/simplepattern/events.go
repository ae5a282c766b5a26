package simplepattern

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) PatternCreated(ctx context.Context, pattern *Pattern) error {
	return nil
}

func (n *NoopEventSink) PatternUpdated(ctx context.Context, pattern *Pattern) error {
	return nil
}

func (n *NoopEventSink) PatternDeleted(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) PatternExported(ctx context.Context, result *ExportResult) error {
	return nil
}

// LogEventSink writes every event to a structured logger
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink creates an event sink logging through logger, or slog.Default when nil
func NewLogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventSink{logger: logger}
}

func (l *LogEventSink) PatternCreated(ctx context.Context, pattern *Pattern) error {
	l.logger.InfoContext(ctx, "Pattern created", "pattern_id", pattern.ID, "name", pattern.Name, "type", pattern.Type)
	return nil
}

func (l *LogEventSink) PatternUpdated(ctx context.Context, pattern *Pattern) error {
	l.logger.InfoContext(ctx, "Pattern updated", "pattern_id", pattern.ID, "values", pattern.Values.Len(), "children", len(pattern.Children))
	return nil
}

func (l *LogEventSink) PatternDeleted(ctx context.Context, id uuid.UUID) error {
	l.logger.InfoContext(ctx, "Pattern deleted", "pattern_id", id)
	return nil
}

func (l *LogEventSink) PatternExported(ctx context.Context, result *ExportResult) error {
	l.logger.InfoContext(ctx, "Pattern exported", "pattern_id", result.PatternID, "backend", result.Backend, "object_key", result.ObjectKey, "size", result.Size)
	return nil
}
