// Normalized actuator error codes.
//
// Driver failures are mapped to a small fixed set of codes so the interpreter
// and the audit trail never depend on driver-specific message text. The
// original driver diagnostic is preserved alongside the code.

package actuator

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized actuator errors.
var (
	// ErrSpeedRange indicates a motor speed outside [MinSpeed, MaxSpeed]
	// reached the driver.
	ErrSpeedRange = errors.New("SPEED_RANGE")

	// ErrUnavailable indicates the motor or sensor device is missing or not
	// ready.
	ErrUnavailable = errors.New("UNAVAILABLE")

	// ErrSensor indicates a sensor read failure.
	ErrSensor = errors.New("SENSOR_ERROR")

	// ErrInternal indicates an unclassified driver failure.
	ErrInternal = errors.New("INTERNAL")
)

// driverErrorTokens maps driver message tokens to normalized codes. Unknown
// tokens map to ErrInternal.
var driverErrorTokens = []struct {
	token string
	code  error
}{
	{"OUT_OF_RANGE", ErrSpeedRange},
	{"INVALID_SPEED", ErrSpeedRange},
	{"NO SUCH DEVICE", ErrUnavailable},
	{"NO SUCH FILE", ErrUnavailable},
	{"NOT READY", ErrUnavailable},
	{"PERMISSION DENIED", ErrUnavailable},
	{"SENSOR", ErrSensor},
}

// DriverError wraps a driver failure with its normalized code while keeping
// the original diagnostic.
type DriverError struct {
	Code     error // Normalized code
	Original error // Driver error
	Device   string
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%v (%s: %v)", e.Code, e.Device, e.Original)
}

func (e *DriverError) Unwrap() error {
	return e.Code
}

// NormalizeDriverError maps a driver error to a normalized code using
// token matching on the driver message.
func NormalizeDriverError(device string, driverErr error) error {
	if driverErr == nil {
		return nil
	}

	upper := strings.ToUpper(driverErr.Error())
	code := ErrInternal
	for _, m := range driverErrorTokens {
		if strings.Contains(upper, m.token) {
			code = m.code
			break
		}
	}

	return &DriverError{
		Code:     code,
		Original: driverErr,
		Device:   device,
	}
}
