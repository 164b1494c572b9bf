package protocol

import (
	"encoding/json"

	"github.com/robot-control/rcd/internal/actuator"
)

// Response is the unified reply envelope. Exactly one of Action (success) or
// Error (failure) is present at the top level, alongside Success. The
// remaining fields are action-specific and omitted when unused.
type Response struct {
	Success bool   `json:"success"`
	Action  string `json:"action,omitempty"`
	Error   string `json:"error,omitempty"`

	// move / turret
	Speed    *int     `json:"speed,omitempty"`
	Duration *float64 `json:"duration,omitempty"`

	// joystick: final clamped values, identical to what the actuator got
	LeftMotor  *int `json:"left_motor,omitempty"`
	RightMotor *int `json:"right_motor,omitempty"`

	// status
	Status         string                   `json:"status,omitempty"`
	Connection     string                   `json:"connection,omitempty"`
	Timestamp      string                   `json:"timestamp,omitempty"`
	Motors         map[string]string        `json:"motors,omitempty"`
	Sensors        *actuator.SensorReadings `json:"sensors,omitempty"`
	SensorError    string                   `json:"sensor_error,omitempty"`
	SimulationMode bool                     `json:"simulation_mode,omitempty"`

	// help
	AvailableActions []string          `json:"available_actions,omitempty"`
	MoveDirections   []string          `json:"move_directions,omitempty"`
	Parameters       map[string]string `json:"parameters,omitempty"`
	Examples         []string          `json:"examples,omitempty"`
}

// SuccessResponse creates a minimal success response for the given action.
func SuccessResponse(action string) Response {
	return Response{Success: true, Action: action}
}

// ErrorResponse creates a failure response carrying the client-visible error
// text.
func ErrorResponse(message string) Response {
	return Response{Success: false, Error: message}
}

// Encode serializes a response as one newline-terminated JSON frame. The
// caller writes the returned bytes in a single Write call so concurrent
// writers can never interleave a frame.
func Encode(resp Response) ([]byte, error) {
	buf, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

// IntPtr returns a pointer to v, for the optional numeric response fields.
func IntPtr(v int) *int {
	return &v
}

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 {
	return &v
}
