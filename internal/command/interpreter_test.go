package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/robot-control/rcd/internal/actuator"
	"github.com/robot-control/rcd/internal/actuator/sim"
	"github.com/robot-control/rcd/internal/audit"
	"github.com/robot-control/rcd/internal/config"
	"github.com/robot-control/rcd/internal/protocol"
	"github.com/robot-control/rcd/internal/telemetry"
)

// mockAudit records audit calls for assertions.
type mockAudit struct {
	entries []mockAuditEntry
}

type mockAuditEntry struct {
	Client  string
	Action  string
	Params  map[string]interface{}
	Outcome string
	Code    string
}

func (m *mockAudit) LogCommand(client, action string, params map[string]interface{}, outcome, code string, latency time.Duration) error {
	m.entries = append(m.entries, mockAuditEntry{client, action, params, outcome, code})
	return nil
}

// mockEvents records published telemetry events.
type mockEvents struct {
	events []telemetry.Event
}

func (m *mockEvents) Publish(event telemetry.Event) {
	m.events = append(m.events, event)
}

type testRig struct {
	interp *Interpreter
	act    *sim.Actuator
	audit  *mockAudit
	events *mockEvents
	slept  []time.Duration
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	rig := &testRig{
		act:    sim.New(),
		audit:  &mockAudit{},
		events: &mockEvents{},
	}
	rig.interp = New(rig.act, rig.events, rig.audit, config.LoadBaseline().Tunables(), zap.NewNop())
	rig.interp.sleep = func(ctx context.Context, d time.Duration) {
		rig.slept = append(rig.slept, d)
	}
	return rig
}

func (r *testRig) exec(t *testing.T, frame string) protocol.Response {
	t.Helper()
	cmd, err := protocol.Decode([]byte(frame))
	if err != nil {
		t.Fatalf("Decode(%q) failed: %v", frame, err)
	}
	return r.interp.Execute(context.Background(), "test-client", cmd)
}

func TestExecute_MoveDirectionTable(t *testing.T) {
	tests := []struct {
		direction   string
		left, right int
	}{
		{"forward", 500, 500},
		{"backward", -500, -500},
		{"left", -500, 500},
		{"right", 500, -500},
	}

	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			rig := newTestRig(t)
			resp := rig.exec(t, `{"action": "move", "direction": "`+tt.direction+`", "speed": 500}`)

			if !resp.Success {
				t.Fatalf("move %s failed: %s", tt.direction, resp.Error)
			}
			if resp.Action != "moved_"+tt.direction {
				t.Errorf("action = %q", resp.Action)
			}
			if got := rig.act.Speed(actuator.MotorLeft); got != tt.left {
				t.Errorf("left motor = %d, expected %d", got, tt.left)
			}
			if got := rig.act.Speed(actuator.MotorRight); got != tt.right {
				t.Errorf("right motor = %d, expected %d", got, tt.right)
			}
			if resp.Speed == nil || *resp.Speed != 500 {
				t.Errorf("echoed speed = %v", resp.Speed)
			}
		})
	}
}

func TestExecute_MoveDefaults(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "move", "direction": "forward"}`)

	if !resp.Success {
		t.Fatalf("move failed: %s", resp.Error)
	}
	if got := rig.act.Speed(actuator.MotorLeft); got != 500 {
		t.Errorf("default speed = %d, expected 500", got)
	}
	if resp.Duration == nil || *resp.Duration != 0 {
		t.Errorf("default duration = %v, expected 0", resp.Duration)
	}
	// duration 0 means continuous: motors must still be running, no sleep.
	if len(rig.slept) != 0 {
		t.Errorf("continuous move must not sleep, slept %v", rig.slept)
	}
	if got := rig.act.Speed(actuator.MotorLeft); got == 0 {
		t.Error("continuous move must leave motors running")
	}
}

func TestExecute_MoveDurationBounded(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "move", "direction": "forward", "speed": 400, "duration": 2}`)

	if !resp.Success {
		t.Fatalf("move failed: %s", resp.Error)
	}
	if len(rig.slept) != 1 || rig.slept[0] != 2*time.Second {
		t.Errorf("slept %v, expected one 2s wait", rig.slept)
	}
	// Drive motors stopped after the wait.
	if l, r := rig.act.Speed(actuator.MotorLeft), rig.act.Speed(actuator.MotorRight); l != 0 || r != 0 {
		t.Errorf("motors = %d/%d after bounded move, expected stopped", l, r)
	}
	if resp.Duration == nil || *resp.Duration != 2 {
		t.Errorf("echoed duration = %v", resp.Duration)
	}
}

func TestExecute_MoveNegativeDuration(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "move", "direction": "forward", "duration": -1}`)

	if resp.Success {
		t.Fatal("expected failure for negative duration")
	}
	if !strings.HasPrefix(resp.Error, "Invalid duration") {
		t.Errorf("error = %q", resp.Error)
	}
	if got := rig.act.Speed(actuator.MotorLeft); got != 0 {
		t.Error("rejected command must not touch motors")
	}
}

func TestExecute_MoveUnknownDirection(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "move", "direction": "sideways"}`)

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error != "Unknown direction: sideways" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestExecute_MoveClampsOversizedSpeed(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "move", "direction": "forward", "speed": 5000}`)

	if !resp.Success {
		t.Fatalf("move failed: %s", resp.Error)
	}
	if got := rig.act.Speed(actuator.MotorLeft); got != 1000 {
		t.Errorf("left motor = %d, expected clamped 1000", got)
	}
}

func TestExecute_TurretDirections(t *testing.T) {
	tests := []struct {
		direction string
		speed     int
	}{
		{"left", 400},
		{"right", -400},
	}

	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			rig := newTestRig(t)
			resp := rig.exec(t, `{"action": "turret", "direction": "`+tt.direction+`", "speed": 400}`)

			if !resp.Success {
				t.Fatalf("turret failed: %s", resp.Error)
			}
			if resp.Action != "turret_"+tt.direction {
				t.Errorf("action = %q", resp.Action)
			}
			if got := rig.act.Speed(actuator.MotorTurret); got != tt.speed {
				t.Errorf("turret motor = %d, expected %d", got, tt.speed)
			}
			// Turret never touches the drive motors.
			if l := rig.act.Speed(actuator.MotorLeft); l != 0 {
				t.Errorf("left motor = %d, expected 0", l)
			}
		})
	}
}

func TestExecute_TurretUnknownDirection(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "turret", "direction": "up"}`)

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error != "Unknown turret direction: up" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestExecute_TurretDurationBounded(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "turret", "direction": "left", "duration": 0.5}`)

	if !resp.Success {
		t.Fatalf("turret failed: %s", resp.Error)
	}
	if len(rig.slept) != 1 || rig.slept[0] != 500*time.Millisecond {
		t.Errorf("slept %v, expected one 500ms wait", rig.slept)
	}
	if got := rig.act.Speed(actuator.MotorTurret); got != 0 {
		t.Errorf("turret motor = %d after bounded run, expected stopped", got)
	}
}

func TestExecute_JoystickSingleStick(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "joystick", "l_left": -200, "l_forward": 500}`)

	if !resp.Success {
		t.Fatalf("joystick failed: %s", resp.Error)
	}
	if resp.Action != "joystick_control" {
		t.Errorf("action = %q", resp.Action)
	}
	// left = 500 + (-200) = 300, right = 500 - (-200) = 700.
	if resp.LeftMotor == nil || *resp.LeftMotor != 300 {
		t.Errorf("left_motor = %v, expected 300", resp.LeftMotor)
	}
	if resp.RightMotor == nil || *resp.RightMotor != 700 {
		t.Errorf("right_motor = %v, expected 700", resp.RightMotor)
	}
	// Response values must match exactly what the actuators received.
	if got := rig.act.Speed(actuator.MotorLeft); got != 300 {
		t.Errorf("left motor = %d, expected 300", got)
	}
	if got := rig.act.Speed(actuator.MotorRight); got != 700 {
		t.Errorf("right motor = %d, expected 700", got)
	}
}

func TestExecute_JoystickTwoSticks(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "joystick", "l_left": 100, "l_forward": 200, "r_left": -50, "r_forward": 400}`)

	if !resp.Success {
		t.Fatalf("joystick failed: %s", resp.Error)
	}
	if *resp.LeftMotor != 300 {
		t.Errorf("left_motor = %d, expected 300", *resp.LeftMotor)
	}
	if *resp.RightMotor != 350 {
		t.Errorf("right_motor = %d, expected 350", *resp.RightMotor)
	}
}

func TestExecute_JoystickClampInvariant(t *testing.T) {
	tests := []struct {
		name        string
		frame       string
		left, right int
	}{
		{
			"both axes maxed",
			`{"action": "joystick", "l_left": 1000, "l_forward": 1000, "r_left": 1000, "r_forward": 1000}`,
			1000, 1000,
		},
		{
			"single stick over range",
			`{"action": "joystick", "l_left": -900, "l_forward": 900}`,
			0, 1000,
		},
		{
			"negative overflow",
			`{"action": "joystick", "l_left": -2000, "l_forward": -2000, "r_left": -2000, "r_forward": -2000}`,
			-1000, -1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(t)
			resp := rig.exec(t, tt.frame)

			if !resp.Success {
				t.Fatalf("joystick failed: %s", resp.Error)
			}
			if *resp.LeftMotor != tt.left || *resp.RightMotor != tt.right {
				t.Errorf("motors = %d/%d, expected %d/%d",
					*resp.LeftMotor, *resp.RightMotor, tt.left, tt.right)
			}
			if got := rig.act.Speed(actuator.MotorLeft); got != *resp.LeftMotor {
				t.Errorf("actuator left %d != response %d", got, *resp.LeftMotor)
			}
			if got := rig.act.Speed(actuator.MotorRight); got != *resp.RightMotor {
				t.Errorf("actuator right %d != response %d", got, *resp.RightMotor)
			}
		})
	}
}

func TestExecute_JoystickAtRest(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "joystick"}`)

	if !resp.Success {
		t.Fatalf("joystick failed: %s", resp.Error)
	}
	// Both sticks at rest: no single-stick reinterpretation, both motors 0.
	if *resp.LeftMotor != 0 || *resp.RightMotor != 0 {
		t.Errorf("motors = %d/%d, expected 0/0", *resp.LeftMotor, *resp.RightMotor)
	}
}

func TestExecute_StopAlwaysSucceeds(t *testing.T) {
	rig := newTestRig(t)

	// Regardless of prior state.
	rig.exec(t, `{"action": "move", "direction": "forward"}`)
	resp := rig.exec(t, `{"action": "stop"}`)

	if !resp.Success || resp.Action != "stopped" {
		t.Errorf("stop response = %+v", resp)
	}
	for _, m := range actuator.AllMotors() {
		if got := rig.act.Speed(m); got != 0 {
			t.Errorf("motor %s = %d after stop", m, got)
		}
	}

	// And again with nothing running.
	resp = rig.exec(t, `{"action": "stop"}`)
	if !resp.Success || resp.Action != "stopped" {
		t.Errorf("idle stop response = %+v", resp)
	}
}

func TestExecute_Status(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "status"}`)

	if !resp.Success || resp.Action != "status" {
		t.Fatalf("status response = %+v", resp)
	}
	if resp.Status != "online" || resp.Connection != "connected" {
		t.Errorf("status fields = %q/%q", resp.Status, resp.Connection)
	}
	if resp.Timestamp == "" {
		t.Error("timestamp missing")
	}
	if !resp.SimulationMode {
		t.Error("simulation_mode must be set for the sim actuator")
	}
	if resp.Sensors == nil {
		t.Fatal("sensors missing")
	}
	if resp.Sensors.Color != sim.SimColor || resp.Sensors.DistanceMm != sim.SimDistanceMm {
		t.Errorf("sensors = %+v", resp.Sensors)
	}
}

func TestExecute_StatusSensorFailureIsInformational(t *testing.T) {
	rig := newTestRig(t)
	rig.act.SetFailSensors(true)

	resp := rig.exec(t, `{"action": "status"}`)

	if !resp.Success {
		t.Fatal("sensor failure must not fail the status call")
	}
	if resp.SensorError == "" {
		t.Error("sensor_error missing")
	}
	if resp.Sensors != nil {
		t.Error("sensors must be absent when the query failed")
	}
}

func TestExecute_Help(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "help"}`)

	if !resp.Success || resp.Action != "help" {
		t.Fatalf("help response = %+v", resp)
	}
	if len(resp.AvailableActions) == 0 || len(resp.MoveDirections) != 4 {
		t.Errorf("catalog incomplete: %+v", resp)
	}
	if len(resp.Examples) == 0 || resp.Parameters["speed"] == "" {
		t.Errorf("catalog incomplete: %+v", resp)
	}
	// Help must have no side effects on motors.
	for _, m := range actuator.AllMotors() {
		if got := rig.act.Speed(m); got != 0 {
			t.Errorf("motor %s = %d after help", m, got)
		}
	}
}

func TestExecute_UnknownAction(t *testing.T) {
	rig := newTestRig(t)
	resp := rig.exec(t, `{"action": "dance"}`)

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error != "Unknown action: dance" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestExecute_LegacyTokenDefaults(t *testing.T) {
	tests := []struct {
		token    string
		action   string
		speed    int
		duration time.Duration
	}{
		{"forward", "moved_forward", 500, time.Second},
		{"backward", "moved_backward", 500, time.Second},
		{"left", "moved_left", 300, 500 * time.Millisecond},
		{"right", "moved_right", 300, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			rig := newTestRig(t)
			resp := rig.exec(t, tt.token)

			if !resp.Success || resp.Action != tt.action {
				t.Fatalf("response = %+v", resp)
			}
			if *resp.Speed != tt.speed {
				t.Errorf("speed = %d, expected %d", *resp.Speed, tt.speed)
			}
			if len(rig.slept) != 1 || rig.slept[0] != tt.duration {
				t.Errorf("slept %v, expected %v", rig.slept, tt.duration)
			}
			// Duration-bounded legacy moves end with the drive stopped.
			if l := rig.act.Speed(actuator.MotorLeft); l != 0 {
				t.Errorf("left motor = %d after legacy move", l)
			}
		})
	}
}

func TestExecute_TunablesHotSwap(t *testing.T) {
	rig := newTestRig(t)

	tun := config.LoadBaseline().Tunables()
	tun.DefaultSpeed = 250
	rig.interp.UpdateTunables(tun)

	rig.exec(t, `{"action": "move", "direction": "forward"}`)
	if got := rig.act.Speed(actuator.MotorLeft); got != 250 {
		t.Errorf("left motor = %d, expected updated default 250", got)
	}
}

func TestExecute_ActuatorFailureSurfacesAsError(t *testing.T) {
	rig := newTestRig(t)
	rig.act.SetFailMotors(true)

	resp := rig.exec(t, `{"action": "move", "direction": "forward"}`)
	if resp.Success {
		t.Fatal("expected failure when the actuator is down")
	}
	if resp.Error == "" {
		t.Error("error text missing")
	}

	// A fault event was published alongside the rejection.
	foundFault := false
	for _, ev := range rig.events.events {
		if ev.Type == telemetry.EventFault {
			foundFault = true
		}
	}
	if !foundFault {
		t.Error("no fault event published")
	}
}

func TestExecute_AuditTrail(t *testing.T) {
	rig := newTestRig(t)
	rig.exec(t, `{"action": "move", "direction": "forward", "speed": 600}`)
	rig.exec(t, `{"action": "dance"}`)

	if len(rig.audit.entries) != 2 {
		t.Fatalf("got %d audit entries, expected 2", len(rig.audit.entries))
	}

	first := rig.audit.entries[0]
	if first.Action != "move" || first.Outcome != audit.OutcomeSuccess {
		t.Errorf("first entry = %+v", first)
	}
	if first.Params["speed"] != 600 {
		t.Errorf("params = %+v", first.Params)
	}
	if first.Client != "test-client" {
		t.Errorf("client = %q", first.Client)
	}

	second := rig.audit.entries[1]
	if second.Action != "unknown" || second.Outcome != audit.OutcomeError {
		t.Errorf("second entry = %+v", second)
	}
	if second.Code != "Unknown action: dance" {
		t.Errorf("code = %q", second.Code)
	}
}
