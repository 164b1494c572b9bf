package actuator

// Motor identifies one of the robot's motors.
type Motor string

const (
	// MotorLeft is the left drive motor (port B on the EV3 brick).
	MotorLeft Motor = "left"

	// MotorRight is the right drive motor (port C on the EV3 brick).
	MotorRight Motor = "right"

	// MotorTurret is the turret motor (port A on the EV3 brick).
	MotorTurret Motor = "turret"
)

// Speed bounds for motor commands. Callers clamp before calling Run.
const (
	MinSpeed = -1000
	MaxSpeed = 1000
)

// SensorReadings is a snapshot of the robot's sensors taken live at query time.
type SensorReadings struct {
	Touch      bool   `json:"touch"`
	Color      string `json:"color"`
	DistanceMm int    `json:"distance"`
}

// Actuator is the stable southbound contract for motor and sensor access.
type Actuator interface {
	// Run starts the given motor at a signed speed in [MinSpeed, MaxSpeed].
	// The motor keeps running until Stop or a subsequent Run.
	Run(motor Motor, speed int) error

	// Stop halts the given motor.
	Stop(motor Motor) error

	// StopAll halts every motor unconditionally.
	StopAll() error

	// Sensors reads all sensors live. A failure reading any sensor fails the
	// whole snapshot.
	Sensors() (*SensorReadings, error)

	// Mode reports the implementation variant ("ev3dev" or "simulation").
	Mode() string
}

// DriveMotors lists the two drive motors in left/right order.
func DriveMotors() []Motor {
	return []Motor{MotorLeft, MotorRight}
}

// AllMotors lists every motor the robot has.
func AllMotors() []Motor {
	return []Motor{MotorLeft, MotorRight, MotorTurret}
}

// Clamp limits a computed motor speed to the legal [MinSpeed, MaxSpeed] range.
func Clamp(speed int) int {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
