// Package server implements the newline-delimited TCP command endpoint.
//
// Each accepted connection is served by its own goroutine: a welcome banner
// is written, then frames are read, decoded, executed and answered one JSON
// response per frame. Connections are independent; two clients driving the
// same motors simply overwrite each other's speeds, last write wins.
package server
