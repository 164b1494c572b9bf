// Package audit implements the append-only audit trail for the Robot
// Control Daemon.
//
// Every executed command produces one JSONL record with the client address,
// action, parameters, outcome and latency. The audit file is separate from
// operational logging so it survives log level changes and can be shipped
// as-is.
package audit
