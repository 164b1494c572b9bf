// Package actuator defines the southbound actuator interface for the Robot
// Control Daemon.
//
// Actuator implementations translate motor and sensor operations into
// hardware-specific calls. The Actuator interface provides a stable contract
// that both the ev3dev driver and the simulation implementation satisfy.
//
// Concurrency contract: individual Run/Stop calls are atomic at the driver
// level and implementations must tolerate concurrent calls from multiple
// connection handlers. The interpreter does not add its own locking around
// actuator calls; last write to a motor wins.
package actuator
