// Package config implements the configuration layer for the Robot Control
// Daemon.
//
// Configuration is assembled in layers: baseline defaults, RCD_* environment
// overrides, then an optional config.json merge, validated as a whole. A
// subset of fields (log level, command tunables) can be hot-reloaded while
// the daemon runs.
package config
