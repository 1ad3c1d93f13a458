package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"ventas-cli/internal/logger"
)

// Audit event types.
const (
	EventQuestion          = "question_received"
	EventAnswer            = "question_answered"
	EventTool              = "tool_executed"
	EventSecurityViolation = "security_violation"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	Query     string                 `json:"query"`
	Success   bool                   `json:"success"`
	Duration  time.Duration          `json:"duration"`
	Error     string                 `json:"error,omitempty"`
	Tools     []string               `json:"tools,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AuditLogger keeps recent events in memory and appends every event to a
// JSON lines sink.
type AuditLogger struct {
	mutex   sync.RWMutex
	events  []AuditEvent
	maxSize int
	sink    io.WriteCloser
	encoder *json.Encoder
	log     logger.Logger
	now     func() time.Time
}

// NewAuditLogger appends to path on fs. An empty path keeps events in memory only.
func NewAuditLogger(fs afero.Fs, path string, log logger.Logger) (*AuditLogger, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	al := &AuditLogger{maxSize: 1000, log: log, now: time.Now}
	if path == "" {
		return al, nil
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	al.sink = f
	al.encoder = json.NewEncoder(f)
	return al, nil
}

// LogQuestion records a question reaching the agent.
func (al *AuditLogger) LogQuestion(question string) {
	al.logEvent(AuditEvent{EventType: EventQuestion, Query: question, Success: true})
}

// LogAnswer records the outcome of a question.
func (al *AuditLogger) LogAnswer(question string, duration time.Duration, tools []string, err error) {
	event := AuditEvent{
		EventType: EventAnswer,
		Query:     question,
		Success:   err == nil,
		Duration:  duration,
		Tools:     tools,
	}
	if err != nil {
		event.Error = err.Error()
	}
	al.logEvent(event)
}

// LogToolExecution records one tool call with its arguments.
func (al *AuditLogger) LogToolExecution(toolName string, arguments string, duration time.Duration, err error) {
	event := AuditEvent{
		EventType: EventTool,
		Query:     toolName,
		Success:   err == nil,
		Duration:  duration,
		Metadata: map[string]interface{}{
			"tool_name": toolName,
			"arguments": arguments,
		},
	}
	if err != nil {
		event.Error = err.Error()
	}
	al.logEvent(event)
}

// LogSecurityViolation records SQL the guard refused.
func (al *AuditLogger) LogSecurityViolation(sql string, reason string) {
	al.logEvent(AuditEvent{
		EventType: EventSecurityViolation,
		Query:     sql,
		Success:   false,
		Error:     reason,
	})
}

func (al *AuditLogger) logEvent(event AuditEvent) {
	if al == nil {
		return
	}
	al.mutex.Lock()
	defer al.mutex.Unlock()

	event.Timestamp = al.now()
	al.events = append(al.events, event)
	if len(al.events) > al.maxSize {
		al.events = al.events[len(al.events)-al.maxSize:]
	}

	if al.encoder != nil {
		if err := al.encoder.Encode(event); err != nil {
			al.log.Warn("failed to write audit log", map[string]interface{}{"error": err.Error()})
		}
	}

	if !event.Success {
		al.log.Warn("audit", map[string]interface{}{
			"event": event.EventType,
			"query": event.Query,
			"error": event.Error,
		})
	}
}

// GetEvents returns up to limit of the most recent events, oldest first.
func (al *AuditLogger) GetEvents(limit int) []AuditEvent {
	al.mutex.RLock()
	defer al.mutex.RUnlock()

	if limit <= 0 || limit > len(al.events) {
		limit = len(al.events)
	}
	events := make([]AuditEvent, limit)
	copy(events, al.events[len(al.events)-limit:])
	return events
}

// GetEventsByType returns up to limit events of eventType, newest first.
func (al *AuditLogger) GetEventsByType(eventType string, limit int) []AuditEvent {
	al.mutex.RLock()
	defer al.mutex.RUnlock()

	events := make([]AuditEvent, 0)
	for i := len(al.events) - 1; i >= 0 && len(events) < limit; i-- {
		if al.events[i].EventType == eventType {
			events = append(events, al.events[i])
		}
	}
	return events
}

// Close closes the sink.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	al.mutex.Lock()
	defer al.mutex.Unlock()

	if al.sink == nil {
		return nil
	}
	err := al.sink.Close()
	al.sink = nil
	al.encoder = nil
	return err
}
