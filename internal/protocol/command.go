package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Command actions understood by the interpreter.
const (
	ActionMove     = "move"
	ActionTurret   = "turret"
	ActionJoystick = "joystick"
	ActionStop     = "stop"
	ActionStatus   = "status"
	ActionHelp     = "help"
)

// Command is one decoded request frame.
//
// Speed and Duration are pointers so the interpreter can distinguish an
// absent field from an explicit zero when applying defaults.
type Command struct {
	Action    string   `json:"action"`
	Direction string   `json:"direction,omitempty"`
	Speed     *int     `json:"speed,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`

	// Joystick axes, all defaulting to zero (stick at rest).
	LLeft    int `json:"l_left,omitempty"`
	LForward int `json:"l_forward,omitempty"`
	RLeft    int `json:"r_left,omitempty"`
	RForward int `json:"r_forward,omitempty"`

	// Legacy marks a command produced from a bare text token rather than a
	// JSON object; the interpreter substitutes the legacy speed/duration
	// defaults for movement tokens.
	Legacy bool `json:"-"`
}

// ErrInvalidJSON is reported verbatim to the client when a JSON frame fails
// to parse.
var ErrInvalidJSON = errors.New("Invalid JSON")

// UnknownTextError reports a legacy text token outside the fixed set.
type UnknownTextError struct {
	Token string
}

func (e *UnknownTextError) Error() string {
	return fmt.Sprintf("Unknown text command: %s", e.Token)
}

// legacyTokens maps each backward-compatible text token to its command shape.
// Movement tokens leave speed/duration unset; the interpreter fills in the
// configured legacy defaults.
var legacyTokens = map[string]Command{
	"forward":  {Action: ActionMove, Direction: "forward", Legacy: true},
	"backward": {Action: ActionMove, Direction: "backward", Legacy: true},
	"left":     {Action: ActionMove, Direction: "left", Legacy: true},
	"right":    {Action: ActionMove, Direction: "right", Legacy: true},
	"stop":     {Action: ActionStop, Legacy: true},
	"status":   {Action: ActionStatus, Legacy: true},
	"help":     {Action: ActionHelp, Legacy: true},
}

// Decode turns one frame into a Command. A frame that is empty after
// trimming yields (nil, nil) and must not be dispatched. Decode failures are
// protocol errors: the connection stays open and the error text goes back to
// the client verbatim.
func Decode(frame []byte) (*Command, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '{' {
		var cmd Command
		if err := json.Unmarshal(trimmed, &cmd); err != nil {
			return nil, ErrInvalidJSON
		}
		return &cmd, nil
	}

	token := strings.ToLower(string(trimmed))
	cmd, ok := legacyTokens[token]
	if !ok {
		return nil, &UnknownTextError{Token: token}
	}
	return &cmd, nil
}

// NewFrameScanner wraps a connection's read side with newline frame
// splitting. Partial trailing bytes with no delimiter at stream close are
// consumed without producing a frame.
func NewFrameScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxFrameSize)
	scanner.Split(scanFrames)
	return scanner
}

// MaxFrameSize bounds a single frame. Anything larger fails the scan and
// closes the connection.
const MaxFrameSize = 64 * 1024

// scanFrames is bufio.ScanLines with one difference: an undelimited trailing
// frame at EOF is discarded instead of dispatched.
func scanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, dropCR(data[:i]), nil
	}
	if atEOF {
		// Discard undelimited trailing bytes.
		return len(data), nil, nil
	}
	return 0, nil, nil
}

// dropCR strips a trailing carriage return left by CRLF clients.
func dropCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		return data[:len(data)-1]
	}
	return data
}
