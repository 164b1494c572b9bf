// Package sim provides a simulation actuator for development machines and
// tests. It records commanded motor speeds and returns deterministic canned
// sensor values.
package sim

import (
	"fmt"
	"sync"

	"github.com/robot-control/rcd/internal/actuator"
)

// Canned sensor values returned in simulation mode.
const (
	SimTouch      = false
	SimColor      = "Red"
	SimDistanceMm = 100
)

// Actuator implements actuator.Actuator without hardware. All methods are
// safe for concurrent use.
type Actuator struct {
	mu     sync.Mutex
	speeds map[actuator.Motor]int

	// Fault injection for tests
	failSensors bool
	failMotors  bool
}

var _ actuator.Actuator = (*Actuator)(nil)

// New creates a simulation actuator with all motors stopped.
func New() *Actuator {
	return &Actuator{
		speeds: map[actuator.Motor]int{
			actuator.MotorLeft:   0,
			actuator.MotorRight:  0,
			actuator.MotorTurret: 0,
		},
	}
}

// Run records the commanded speed for the motor.
func (a *Actuator) Run(motor actuator.Motor, speed int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failMotors {
		return actuator.NormalizeDriverError(string(motor), fmt.Errorf("simulated motor fault: device NOT READY"))
	}
	if speed < actuator.MinSpeed || speed > actuator.MaxSpeed {
		return actuator.NormalizeDriverError(string(motor), fmt.Errorf("speed %d OUT_OF_RANGE", speed))
	}
	if _, ok := a.speeds[motor]; !ok {
		return actuator.NormalizeDriverError(string(motor), fmt.Errorf("no such device: %s", motor))
	}

	a.speeds[motor] = speed
	return nil
}

// Stop records the motor as stopped.
func (a *Actuator) Stop(motor actuator.Motor) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failMotors {
		return actuator.NormalizeDriverError(string(motor), fmt.Errorf("simulated motor fault: device NOT READY"))
	}
	if _, ok := a.speeds[motor]; !ok {
		return actuator.NormalizeDriverError(string(motor), fmt.Errorf("no such device: %s", motor))
	}

	a.speeds[motor] = 0
	return nil
}

// StopAll records every motor as stopped.
func (a *Actuator) StopAll() error {
	for _, m := range actuator.AllMotors() {
		if err := a.Stop(m); err != nil {
			return err
		}
	}
	return nil
}

// Sensors returns the canned simulation readings.
func (a *Actuator) Sensors() (*actuator.SensorReadings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failSensors {
		return nil, actuator.NormalizeDriverError("sensors", fmt.Errorf("simulated sensor failure"))
	}

	return &actuator.SensorReadings{
		Touch:      SimTouch,
		Color:      SimColor,
		DistanceMm: SimDistanceMm,
	}, nil
}

// Mode reports "simulation".
func (a *Actuator) Mode() string {
	return "simulation"
}

// Speed returns the last commanded speed for a motor. Test accessor.
func (a *Actuator) Speed(motor actuator.Motor) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speeds[motor]
}

// SetFailSensors toggles simulated sensor failures.
func (a *Actuator) SetFailSensors(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failSensors = fail
}

// SetFailMotors toggles simulated motor failures.
func (a *Actuator) SetFailMotors(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failMotors = fail
}
