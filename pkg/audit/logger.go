// Package audit records an append-only JSON event trail of policy loads,
// scoring runs, batch outcomes and tolerated anomalies, so every score can be
// traced back to the policy and inputs that produced it.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of the audit event.
type EventType string

const (
	EventPolicy  EventType = "POLICY"
	EventScoring EventType = "SCORING"
	EventAnomaly EventType = "ANOMALY"
	EventBatch   EventType = "BATCH"
)

// Event represents a structured audit record.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Action    string                 `json:"action"`
	Resource  string                 `json:"resource"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Logger defines the interface for recording audit events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, action, resource string, metadata map[string]interface{}) error
}

// logger implements Logger, writing structured JSON lines to a configurable
// Writer.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
	now    func() time.Time
	newID  func() string
}

// NewLogger creates a Logger writing to os.Stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing to the given writer.
// This allows injection for testing and custom sinks.
func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{
		writer: w,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

func (l *logger) Record(ctx context.Context, eventType EventType, action, resource string, metadata map[string]interface{}) error {
	event := Event{
		ID:        l.newID(),
		Type:      eventType,
		Action:    action,
		Resource:  resource,
		Timestamp: l.now(),
		Metadata:  metadata,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// Prefix with AUDIT: for easy filtering
	_, err = l.writer.Write(append([]byte("AUDIT: "), append(bytes, '\n')...))
	return err
}

// Nop returns a Logger that discards every event.
func Nop() Logger {
	return NewLoggerWithWriter(io.Discard)
}
