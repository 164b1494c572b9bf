// Ports (interfaces) the interpreter depends on.
package command

import (
	"time"

	"github.com/robot-control/rcd/internal/audit"
	"github.com/robot-control/rcd/internal/telemetry"
)

// AuditLogger records one entry per executed command.
type AuditLogger interface {
	LogCommand(client, action string, params map[string]interface{}, outcome, code string, latency time.Duration) error
}

// Compile-time assertion that audit.Logger implements AuditLogger.
var _ AuditLogger = (*audit.Logger)(nil)

// EventPublisher publishes telemetry events.
type EventPublisher interface {
	Publish(event telemetry.Event)
}

// Compile-time assertion that telemetry.Hub implements EventPublisher.
var _ EventPublisher = (*telemetry.Hub)(nil)
