// Package protocol implements the wire protocol for the Robot Control Daemon.
//
// The protocol is newline-delimited UTF-8 text over TCP. Each inbound frame
// is either a JSON command object or a bare legacy text token; each outbound
// frame is one JSON response object. Frame splitting, command decoding and
// response encoding live here; no network I/O does.
package protocol
