package command

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/robot-control/rcd/internal/actuator"
	"github.com/robot-control/rcd/internal/audit"
	"github.com/robot-control/rcd/internal/config"
	"github.com/robot-control/rcd/internal/metrics"
	"github.com/robot-control/rcd/internal/protocol"
	"github.com/robot-control/rcd/internal/telemetry"
)

// moveTable maps a move direction to the left/right speed multipliers of the
// differential drive.
var moveTable = map[string][2]int{
	"forward":  {+1, +1},
	"backward": {-1, -1},
	"left":     {-1, +1},
	"right":    {+1, -1},
}

// turretTable maps a turret direction to the turret motor's speed multiplier.
var turretTable = map[string]int{
	"left":  +1,
	"right": -1,
}

// Interpreter executes decoded commands against the actuator.
type Interpreter struct {
	act    actuator.Actuator
	events EventPublisher
	audit  AuditLogger
	logger *zap.Logger

	tunables atomic.Pointer[config.Tunables]

	// sleep waits for a duration-bounded command; replaced in tests. The
	// wait ends early only when ctx is cancelled (server shutdown), never by
	// another command.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates an interpreter. events and auditLogger may be nil, in which
// case the corresponding side channel is skipped.
func New(act actuator.Actuator, events EventPublisher, auditLogger AuditLogger, tunables *config.Tunables, logger *zap.Logger) *Interpreter {
	i := &Interpreter{
		act:    act,
		events: events,
		audit:  auditLogger,
		logger: logger,
		sleep:  sleepCtx,
	}
	i.tunables.Store(tunables)
	return i
}

// UpdateTunables swaps the hot-reloadable command defaults.
func (i *Interpreter) UpdateTunables(t *config.Tunables) {
	i.tunables.Store(t)
}

// Execute runs one command and produces its response. client identifies the
// requesting connection for audit and telemetry purposes.
func (i *Interpreter) Execute(ctx context.Context, client string, cmd *protocol.Command) protocol.Response {
	start := time.Now()

	var resp protocol.Response
	switch cmd.Action {
	case protocol.ActionMove:
		resp = i.execMove(ctx, cmd)
	case protocol.ActionTurret:
		resp = i.execTurret(ctx, cmd)
	case protocol.ActionJoystick:
		resp = i.execJoystick(cmd)
	case protocol.ActionStop:
		resp = i.execStop()
	case protocol.ActionStatus:
		resp = i.execStatus()
	case protocol.ActionHelp:
		resp = i.execHelp()
	default:
		resp = protocol.ErrorResponse(fmt.Sprintf("Unknown action: %s", cmd.Action))
	}

	i.record(client, cmd, resp, time.Since(start))
	return resp
}

// execMove drives the left/right motors per the direction table, applying
// the duration policy.
func (i *Interpreter) execMove(ctx context.Context, cmd *protocol.Command) protocol.Response {
	mult, ok := moveTable[cmd.Direction]
	if !ok {
		return protocol.ErrorResponse(fmt.Sprintf("Unknown direction: %s", cmd.Direction))
	}

	speed, duration, errResp := i.resolveSpeedDuration(cmd)
	if errResp != nil {
		return *errResp
	}

	left := actuator.Clamp(mult[0] * speed)
	right := actuator.Clamp(mult[1] * speed)

	if err := i.runPair(actuator.MotorLeft, left, actuator.MotorRight, right); err != nil {
		return i.faultResponse(err)
	}

	if duration > 0 {
		i.sleep(ctx, secondsToDuration(duration))
		if err := i.stopMotors(actuator.MotorLeft, actuator.MotorRight); err != nil {
			return i.faultResponse(err)
		}
	}

	resp := protocol.SuccessResponse("moved_" + cmd.Direction)
	resp.Speed = protocol.IntPtr(speed)
	resp.Duration = protocol.FloatPtr(duration)
	return resp
}

// execTurret is the single-motor analogue of execMove.
func (i *Interpreter) execTurret(ctx context.Context, cmd *protocol.Command) protocol.Response {
	mult, ok := turretTable[cmd.Direction]
	if !ok {
		return protocol.ErrorResponse(fmt.Sprintf("Unknown turret direction: %s", cmd.Direction))
	}

	speed, duration, errResp := i.resolveSpeedDuration(cmd)
	if errResp != nil {
		return *errResp
	}

	if err := i.act.Run(actuator.MotorTurret, actuator.Clamp(mult*speed)); err != nil {
		return i.faultResponse(err)
	}

	if duration > 0 {
		i.sleep(ctx, secondsToDuration(duration))
		if err := i.stopMotors(actuator.MotorTurret); err != nil {
			return i.faultResponse(err)
		}
	}

	resp := protocol.SuccessResponse("turret_" + cmd.Direction)
	resp.Speed = protocol.IntPtr(speed)
	resp.Duration = protocol.FloatPtr(duration)
	return resp
}

// execJoystick converts stick positions to differential drive speeds.
func (i *Interpreter) execJoystick(cmd *protocol.Command) protocol.Response {
	left := cmd.LForward + cmd.LLeft
	right := cmd.RForward + cmd.RLeft

	// Right stick at rest while the left stick is deflected means
	// single-stick tank control: both wheels derive from the left stick.
	if cmd.RLeft == 0 && cmd.RForward == 0 && (cmd.LLeft != 0 || cmd.LForward != 0) {
		right = cmd.LForward - cmd.LLeft
	}

	left = actuator.Clamp(left)
	right = actuator.Clamp(right)

	if err := i.runPair(actuator.MotorLeft, left, actuator.MotorRight, right); err != nil {
		return i.faultResponse(err)
	}

	// The response carries exactly what the actuators got.
	resp := protocol.SuccessResponse("joystick_control")
	resp.LeftMotor = protocol.IntPtr(left)
	resp.RightMotor = protocol.IntPtr(right)
	return resp
}

// execStop halts all motors.
func (i *Interpreter) execStop() protocol.Response {
	if err := i.act.StopAll(); err != nil {
		return i.faultResponse(err)
	}
	return protocol.SuccessResponse("stopped")
}

// execStatus reports connectivity plus a live sensor snapshot. A sensor
// failure degrades the response (sensor_error field) without failing it.
func (i *Interpreter) execStatus() protocol.Response {
	resp := protocol.SuccessResponse("status")
	resp.Status = "online"
	resp.Connection = "connected"
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	resp.Motors = map[string]string{
		"left":  "ready",
		"right": "ready",
	}
	resp.SimulationMode = i.act.Mode() == "simulation"

	readings, err := i.act.Sensors()
	if err != nil {
		resp.SensorError = err.Error()
		i.publishFault("sensor query failed", err)
		return resp
	}
	resp.Sensors = readings
	return resp
}

// execHelp returns the static command catalog.
func (i *Interpreter) execHelp() protocol.Response {
	resp := protocol.SuccessResponse("help")
	resp.AvailableActions = []string{"move", "turret", "stop", "status", "help", "joystick"}
	resp.MoveDirections = []string{"forward", "backward", "left", "right"}
	resp.Parameters = map[string]string{
		"speed":     "Motor speed (0-1000)",
		"duration":  "Duration in seconds (0 for continuous)",
		"l_left":    "Left joystick left/right (-1000 to 1000)",
		"l_forward": "Left joystick forward/backward (-1000 to 1000)",
		"r_left":    "Right joystick left/right (-1000 to 1000)",
		"r_forward": "Right joystick forward/backward (-1000 to 1000)",
	}
	resp.Examples = []string{
		`{"action": "move", "direction": "forward", "speed": 500, "duration": 2}`,
		`{"action": "move", "direction": "left", "speed": 300, "duration": 1}`,
		`{"action": "turret", "direction": "left", "speed": 400}`,
		`{"action": "stop"}`,
		`{"action": "joystick", "l_left": -200, "l_forward": 500}`,
	}
	return resp
}

// resolveSpeedDuration applies defaults and validates the duration. Legacy
// text tokens get the legacy controller defaults; JSON commands get the
// configured default speed and continuous duration.
func (i *Interpreter) resolveSpeedDuration(cmd *protocol.Command) (speed int, duration float64, errResp *protocol.Response) {
	t := i.tunables.Load()

	speed = t.DefaultSpeed
	duration = 0

	if cmd.Legacy {
		switch cmd.Direction {
		case "forward", "backward":
			speed = t.LegacyForwardSpeed
			duration = t.LegacyForwardDuration.Seconds()
		case "left", "right":
			speed = t.LegacyTurnSpeed
			duration = t.LegacyTurnDuration.Seconds()
		}
	}

	if cmd.Speed != nil {
		speed = *cmd.Speed
	}
	if cmd.Duration != nil {
		duration = *cmd.Duration
	}

	if duration < 0 {
		resp := protocol.ErrorResponse(fmt.Sprintf("Invalid duration: %g", duration))
		return 0, 0, &resp
	}
	return speed, duration, nil
}

// runPair starts two motors, stopping the first again if the second fails so
// a half-started drive never keeps spinning one wheel.
func (i *Interpreter) runPair(m1 actuator.Motor, s1 int, m2 actuator.Motor, s2 int) error {
	if err := i.act.Run(m1, s1); err != nil {
		return err
	}
	if err := i.act.Run(m2, s2); err != nil {
		if stopErr := i.act.Stop(m1); stopErr != nil {
			i.logger.Warn("failed to stop motor after partial drive start",
				zap.String("motor", string(m1)), zap.Error(stopErr))
		}
		return err
	}
	return nil
}

// stopMotors stops the given motors, returning the first failure.
func (i *Interpreter) stopMotors(motors ...actuator.Motor) error {
	var firstErr error
	for _, m := range motors {
		if err := i.act.Stop(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// faultResponse converts an actuator failure into a client-visible error and
// publishes a fault event.
func (i *Interpreter) faultResponse(err error) protocol.Response {
	i.publishFault("actuator call failed", err)
	return protocol.ErrorResponse(err.Error())
}

// record emits the audit entry, telemetry event and metrics for one command.
func (i *Interpreter) record(client string, cmd *protocol.Command, resp protocol.Response, latency time.Duration) {
	action := cmd.Action
	if _, known := knownActions[action]; !known {
		action = "unknown"
	}

	outcome := audit.OutcomeSuccess
	eventType := telemetry.EventCommandExecuted
	code := ""
	if !resp.Success {
		outcome = audit.OutcomeError
		eventType = telemetry.EventCommandRejected
		code = resp.Error
	}

	metrics.CommandsTotal.WithLabelValues(action, metricOutcome(resp.Success)).Inc()
	metrics.CommandLatency.WithLabelValues(action).Observe(latency.Seconds())

	if i.audit != nil {
		if err := i.audit.LogCommand(client, action, auditParams(cmd), outcome, code, latency); err != nil {
			i.logger.Warn("audit write failed", zap.Error(err))
		}
	}

	if i.events != nil {
		i.events.Publish(telemetry.Event{
			Type: eventType,
			Data: map[string]interface{}{
				"client":    client,
				"action":    action,
				"latencyMs": latency.Milliseconds(),
				"success":   resp.Success,
			},
		})
	}
}

// publishFault emits a fault event for an actuator-level failure.
func (i *Interpreter) publishFault(message string, err error) {
	i.logger.Warn(message, zap.Error(err))
	if i.events == nil {
		return
	}
	i.events.Publish(telemetry.Event{
		Type: telemetry.EventFault,
		Data: map[string]interface{}{
			"message": message,
			"error":   err.Error(),
		},
	})
}

var knownActions = map[string]struct{}{
	protocol.ActionMove:     {},
	protocol.ActionTurret:   {},
	protocol.ActionJoystick: {},
	protocol.ActionStop:     {},
	protocol.ActionStatus:   {},
	protocol.ActionHelp:     {},
}

// auditParams extracts the loggable parameters of a command.
func auditParams(cmd *protocol.Command) map[string]interface{} {
	params := make(map[string]interface{})
	if cmd.Direction != "" {
		params["direction"] = cmd.Direction
	}
	if cmd.Speed != nil {
		params["speed"] = *cmd.Speed
	}
	if cmd.Duration != nil {
		params["duration"] = *cmd.Duration
	}
	if cmd.Action == protocol.ActionJoystick {
		params["l_left"] = cmd.LLeft
		params["l_forward"] = cmd.LForward
		params["r_left"] = cmd.RLeft
		params["r_forward"] = cmd.RForward
	}
	if cmd.Legacy {
		params["legacy"] = true
	}
	if len(params) == 0 {
		return nil
	}
	return params
}

// metricOutcome renders the outcome label.
func metricOutcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// secondsToDuration converts the wire duration (fractional seconds) to a
// time.Duration.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// sleepCtx waits d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
