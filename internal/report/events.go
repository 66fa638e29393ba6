package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventLoad     EventType = "load"
	EventSelect   EventType = "select"
	EventEscalate EventType = "escalate"
	EventSchedule EventType = "schedule"
	EventDegrade  EventType = "degrade"
	EventReuse    EventType = "reuse"
	EventWrite    EventType = "write"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event during set generation
type Event struct {
	Timestamp   time.Time         `json:"ts"`
	Level       EventLevel        `json:"level"`
	Event       EventType         `json:"event"`
	SetID       string            `json:"set_id,omitempty"`
	TrackID     int64             `json:"track_id,omitempty"`
	Step        int               `json:"step,omitempty"`
	Score       float64           `json:"score,omitempty"`
	Tier        int               `json:"tier,omitempty"`
	Effect      string            `json:"effect,omitempty"`
	Escalations int               `json:"escalations,omitempty"`
	Duration    int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error       string            `json:"error,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Generate filename with timestamp
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	// Open file for writing
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	// Filter by minimum level
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil // Skip events below minimum level
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogLoad logs the library snapshot load
func (l *EventLogger) LogLoad(setID string, usable, skipped int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventLoad,
		SetID:    setID,
		Duration: duration.Milliseconds(),
		Extra: map[string]string{
			"usable":  fmt.Sprintf("%d", usable),
			"skipped": fmt.Sprintf("%d", skipped),
		},
	})
}

// LogSelect logs one greedy selection step
func (l *EventLogger) LogSelect(setID string, step int, trackID int64, score float64, escalations int) error {
	level := LevelDebug
	if escalations > 0 {
		level = LevelInfo
	}

	return l.Log(&Event{
		Level:       level,
		Event:       EventSelect,
		SetID:       setID,
		Step:        step,
		TrackID:     trackID,
		Score:       score,
		Escalations: escalations,
	})
}

// LogEscalate logs one tolerance widening at a step
func (l *EventLogger) LogEscalate(setID string, step int, tolerancePercent float64) error {
	return l.Log(&Event{
		Level: LevelWarning,
		Event: EventEscalate,
		SetID: setID,
		Step:  step,
		Extra: map[string]string{
			"tolerance_percent": fmt.Sprintf("%.1f", tolerancePercent),
		},
	})
}

// LogSchedule logs a computed transition
func (l *EventLogger) LogSchedule(setID string, step int, trackID int64, effect string, holdFrames int64) error {
	return l.Log(&Event{
		Level:   LevelDebug,
		Event:   EventSchedule,
		SetID:   setID,
		Step:    step,
		TrackID: trackID,
		Effect:  effect,
		Extra: map[string]string{
			"hold_frames": fmt.Sprintf("%d", holdFrames),
		},
	})
}

// LogDegrade logs a tier drop
func (l *EventLogger) LogDegrade(setID string, tier int, reason string) error {
	return l.Log(&Event{
		Level: LevelWarning,
		Event: EventDegrade,
		SetID: setID,
		Tier:  tier,
		Extra: map[string]string{
			"reason": reason,
		},
	})
}

// LogReuse logs fallback to a previously persisted plan
func (l *EventLogger) LogReuse(setID, reusedSetID string) error {
	return l.Log(&Event{
		Level: LevelWarning,
		Event: EventReuse,
		SetID: setID,
		Extra: map[string]string{
			"reused_set_id": reusedSetID,
		},
	})
}

// LogWrite logs an output artifact write
func (l *EventLogger) LogWrite(setID, path string, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventWrite,
		SetID:    setID,
		Duration: duration.Milliseconds(),
		Error:    errMsg,
		Extra: map[string]string{
			"path": path,
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, setID string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		SetID: setID,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
