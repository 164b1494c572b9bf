// Package ev3 implements the actuator contract on top of the ev3dev sysfs
// interface. Motors are tacho motors under /sys/class/tacho-motor and sensors
// are lego-sensor devices under /sys/class/lego-sensor; each device is
// resolved by its port address at construction time.
//
// Port map (matches the robot's wiring): left drive motor outB, right drive
// motor outC, turret motor outA, touch sensor in1, color sensor in3,
// ultrasonic sensor in4.
package ev3

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/robot-control/rcd/internal/actuator"
)

// Sysfs class roots. Overridable for tests.
const (
	DefaultTachoMotorRoot = "/sys/class/tacho-motor"
	DefaultLegoSensorRoot = "/sys/class/lego-sensor"
)

// Port addresses as exposed by the ev3dev "address" attribute.
var motorPorts = map[actuator.Motor]string{
	actuator.MotorLeft:   "ev3-ports:outB",
	actuator.MotorRight:  "ev3-ports:outC",
	actuator.MotorTurret: "ev3-ports:outA",
}

var sensorPorts = map[string]string{
	"touch":      "ev3-ports:in1",
	"color":      "ev3-ports:in3",
	"ultrasonic": "ev3-ports:in4",
}

// colorNames maps COL-COLOR mode values to the labels the color sensor
// driver documents. Index 0 means no object detected.
var colorNames = []string{"None", "Black", "Blue", "Green", "Yellow", "Red", "White", "Brown"}

// Actuator drives ev3dev devices through sysfs attribute files. Each Run and
// Stop is a single attribute write, atomic at the kernel driver level, which
// is what lets the interpreter skip its own locking.
type Actuator struct {
	motorDirs  map[actuator.Motor]string
	sensorDirs map[string]string
	logger     *zap.Logger
}

var _ actuator.Actuator = (*Actuator)(nil)

// New resolves all motor and sensor devices under the default sysfs roots.
func New(logger *zap.Logger) (*Actuator, error) {
	return NewWithRoots(logger, DefaultTachoMotorRoot, DefaultLegoSensorRoot)
}

// NewWithRoots resolves devices under the given class roots.
func NewWithRoots(logger *zap.Logger, motorRoot, sensorRoot string) (*Actuator, error) {
	a := &Actuator{
		motorDirs:  make(map[actuator.Motor]string),
		sensorDirs: make(map[string]string),
		logger:     logger,
	}

	for motor, port := range motorPorts {
		dir, err := findDevice(motorRoot, port)
		if err != nil {
			return nil, actuator.NormalizeDriverError(string(motor), err)
		}
		a.motorDirs[motor] = dir
	}

	for name, port := range sensorPorts {
		dir, err := findDevice(sensorRoot, port)
		if err != nil {
			return nil, actuator.NormalizeDriverError(name, err)
		}
		a.sensorDirs[name] = dir
	}

	// Coast on stop matches the original controller's behavior; the brake
	// setting is applied once per motor rather than per command.
	for motor, dir := range a.motorDirs {
		if err := writeAttr(dir, "stop_action", "coast"); err != nil {
			return nil, actuator.NormalizeDriverError(string(motor), err)
		}
	}

	logger.Info("ev3dev actuator initialized",
		zap.Int("motors", len(a.motorDirs)),
		zap.Int("sensors", len(a.sensorDirs)))

	return a, nil
}

// Run sets the motor speed setpoint and issues run-forever.
func (a *Actuator) Run(motor actuator.Motor, speed int) error {
	if speed < actuator.MinSpeed || speed > actuator.MaxSpeed {
		return actuator.NormalizeDriverError(string(motor),
			fmt.Errorf("speed %d OUT_OF_RANGE [%d, %d]", speed, actuator.MinSpeed, actuator.MaxSpeed))
	}

	dir, ok := a.motorDirs[motor]
	if !ok {
		return actuator.NormalizeDriverError(string(motor), fmt.Errorf("no such device: %s", motor))
	}

	if err := writeAttr(dir, "speed_sp", strconv.Itoa(speed)); err != nil {
		return actuator.NormalizeDriverError(string(motor), err)
	}
	if err := writeAttr(dir, "command", "run-forever"); err != nil {
		return actuator.NormalizeDriverError(string(motor), err)
	}
	return nil
}

// Stop issues the stop command to the motor.
func (a *Actuator) Stop(motor actuator.Motor) error {
	dir, ok := a.motorDirs[motor]
	if !ok {
		return actuator.NormalizeDriverError(string(motor), fmt.Errorf("no such device: %s", motor))
	}

	if err := writeAttr(dir, "command", "stop"); err != nil {
		return actuator.NormalizeDriverError(string(motor), err)
	}
	return nil
}

// StopAll stops every motor, continuing past individual failures so one dead
// motor cannot keep the others running. The first failure is returned.
func (a *Actuator) StopAll() error {
	var firstErr error
	for _, m := range actuator.AllMotors() {
		if err := a.Stop(m); err != nil {
			a.logger.Warn("stop failed", zap.String("motor", string(m)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Sensors reads touch, color and distance live.
func (a *Actuator) Sensors() (*actuator.SensorReadings, error) {
	touch, err := a.readSensorValue("touch")
	if err != nil {
		return nil, err
	}

	color, err := a.readSensorValue("color")
	if err != nil {
		return nil, err
	}

	distance, err := a.readSensorValue("ultrasonic")
	if err != nil {
		return nil, err
	}

	return &actuator.SensorReadings{
		Touch:      touch != 0,
		Color:      colorName(color),
		DistanceMm: distance,
	}, nil
}

// Mode reports "ev3dev".
func (a *Actuator) Mode() string {
	return "ev3dev"
}

// readSensorValue reads the value0 attribute of a named sensor.
func (a *Actuator) readSensorValue(name string) (int, error) {
	dir, ok := a.sensorDirs[name]
	if !ok {
		return 0, actuator.NormalizeDriverError(name, fmt.Errorf("sensor not resolved: %s", name))
	}

	raw, err := os.ReadFile(filepath.Join(dir, "value0"))
	if err != nil {
		return 0, actuator.NormalizeDriverError(name, fmt.Errorf("sensor read: %w", err))
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, actuator.NormalizeDriverError(name, fmt.Errorf("sensor value parse: %w", err))
	}
	return value, nil
}

// colorName translates a COL-COLOR reading into its label.
func colorName(value int) string {
	if value < 0 || value >= len(colorNames) {
		return "Unknown"
	}
	return colorNames[value]
}

// findDevice scans a sysfs class directory for the device whose address
// attribute matches the wanted port.
func findDevice(root, port string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", root, err)
	}

	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		raw, err := os.ReadFile(filepath.Join(dir, "address"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(raw)) == port {
			return dir, nil
		}
	}

	return "", fmt.Errorf("no such device on port %s under %s", port, root)
}

// writeAttr writes a single sysfs attribute value.
func writeAttr(dir, attr, value string) error {
	if err := os.WriteFile(filepath.Join(dir, attr), []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", attr, err)
	}
	return nil
}
