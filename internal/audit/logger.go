package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is a single audit record.
type Entry struct {
	Timestamp time.Time              `json:"ts"`
	Client    string                 `json:"client"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Outcome   string                 `json:"outcome"`
	Code      string                 `json:"code,omitempty"`
	LatencyMs int64                  `json:"latencyMs"`
}

// Outcomes recorded per command.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeError   = "ERROR"
)

// Logger appends audit records to audit.jsonl in the configured directory.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger creates the log directory if needed and opens the audit file for
// append-only writing.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	path := filepath.Join(logDir, "audit.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{file: file}, nil
}

// LogCommand appends one record for an executed command.
func (l *Logger) LogCommand(client, action string, params map[string]interface{}, outcome, code string, latency time.Duration) error {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Client:    client,
		Action:    action,
		Params:    params,
		Outcome:   outcome,
		Code:      code,
		LatencyMs: latency.Milliseconds(),
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("audit logger is closed")
	}
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Close flushes and closes the audit file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
