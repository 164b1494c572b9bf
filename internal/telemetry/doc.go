// Package telemetry implements the event hub for the Robot Control Daemon.
//
// The hub fans out command and connection events to in-process subscribers.
// Publishing never blocks: a subscriber whose channel is full loses the
// event, which is counted but otherwise ignored so a stalled consumer can
// never stall command handling.
package telemetry
