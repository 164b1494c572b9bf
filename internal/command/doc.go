// Package command implements the command interpreter for the Robot Control
// Daemon.
//
// The interpreter maps one decoded command to actuator calls and a response:
// direction tables for move/turret, differential mixing and clamping for
// joystick, duration-bounded execution, and the status/help catalogs. It
// audits every command, publishes telemetry events and records metrics. It
// is stateless between calls; nothing about one command depends on a
// previous one.
package command
