package server

import (
	"context"

	"github.com/robot-control/rcd/internal/command"
	"github.com/robot-control/rcd/internal/protocol"
	"github.com/robot-control/rcd/internal/telemetry"
)

// Executor runs one decoded command and produces its response.
type Executor interface {
	Execute(ctx context.Context, client string, cmd *protocol.Command) protocol.Response
}

// EventPublisher receives connection lifecycle events. May be nil.
type EventPublisher interface {
	Publish(event telemetry.Event)
}

var _ Executor = (*command.Interpreter)(nil)
var _ EventPublisher = (*telemetry.Hub)(nil)
