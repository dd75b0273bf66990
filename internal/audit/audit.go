// Package audit ships facts about successful mutating operations to a
// write-only sink. Recording is best-effort: a failed record must never roll
// back or fail the financial operation it describes.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Fact describes one completed mutating operation.
type Fact struct {
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	Changes    any       `json:"changes,omitempty"`
	OldValues  any       `json:"old_values,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Recorder delivers audit facts to downstream systems.
type Recorder interface {
	Record(ctx context.Context, fact Fact) error
}

// LoggerRecorder writes audit facts to the structured logger. It is the
// default sink when no broker is configured.
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder constructs a logging audit recorder.
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	return &LoggerRecorder{logger: logger}
}

// Record writes the fact to the logger.
func (r *LoggerRecorder) Record(_ context.Context, fact Fact) error {
	if r == nil || r.logger == nil {
		return nil
	}
	r.logger.Info("audit",
		"action", fact.Action,
		"resource", fact.Resource,
		"resource_id", fact.ResourceID,
	)
	return nil
}
