package report

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"
)

func TestNewEventLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewEventLogger(tmpDir, LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	if logger.path == "" {
		t.Error("EventLogger path is empty")
	}

	if _, err := os.Stat(logger.path); os.IsNotExist(err) {
		t.Errorf("Event log file was not created at %s", logger.path)
	}
}

func TestEventLogger_Log(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := NewEventLogger(tmpDir, LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	event := &Event{
		Level:   LevelInfo,
		Event:   EventSelect,
		SetID:   "set-abc",
		Step:    3,
		TrackID: 42,
		Score:   1.75,
	}

	if err := logger.Log(event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	logger.Close()
	content, err := os.ReadFile(logger.path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Failed to decode JSONL: %v", err)
	}

	if decoded.SetID != "set-abc" {
		t.Errorf("Expected set_id 'set-abc', got '%s'", decoded.SetID)
	}
	if decoded.TrackID != 42 || decoded.Step != 3 {
		t.Errorf("Expected track 42 at step 3, got track %d at step %d", decoded.TrackID, decoded.Step)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("Expected timestamp to be auto-set")
	}
}

func TestEventLogger_MultipleEvents(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := NewEventLogger(tmpDir, LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	logger.LogLoad("set-1", 120, 4, 12*time.Millisecond)
	logger.LogSelect("set-1", 1, 7, 2.1, 0)
	logger.LogEscalate("set-1", 2, 6.0)
	logger.LogSchedule("set-1", 2, 9, "filter_sweep", 1323000)
	logger.LogDegrade("set-1", 1, "candidate exhaustion")
	logger.LogWrite("set-1", "/out/playlist-set-1.m3u", 3*time.Millisecond, nil)

	logger.Close()

	file, err := os.Open(logger.path)
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineCount := 0
	for scanner.Scan() {
		lineCount++
		var decoded Event
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("Failed to decode line %d: %v", lineCount, err)
		}
		if decoded.Timestamp.IsZero() {
			t.Errorf("Line %d: timestamp not set", lineCount)
		}
	}

	if lineCount != 6 {
		t.Errorf("Expected 6 events, got %d", lineCount)
	}
}

func TestEventLogger_ConcurrentWrites(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := NewEventLogger(tmpDir, LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	const numGoroutines = 10
	const eventsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				event := &Event{
					Level:   LevelInfo,
					Event:   EventSelect,
					SetID:   "concurrent",
					Step:    j,
					TrackID: int64(id),
				}
				if err := logger.Log(event); err != nil {
					t.Errorf("Concurrent log failed: %v", err)
				}
			}
		}(i)
	}

	wg.Wait()
	logger.Close()

	file, err := os.Open(logger.path)
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineCount := 0
	for scanner.Scan() {
		lineCount++
		var decoded Event
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("Failed to decode line %d: %v", lineCount, err)
		}
	}

	expected := numGoroutines * eventsPerGoroutine
	if lineCount != expected {
		t.Errorf("Expected %d events, got %d", expected, lineCount)
	}
}

func TestEventLogger_NullLogger(t *testing.T) {
	logger := NullLogger()

	if err := logger.Log(&Event{Level: LevelInfo, Event: EventSelect}); err != nil {
		t.Errorf("NullLogger.Log should not return error, got: %v", err)
	}
	if err := logger.LogSelect("set", 1, 1, 0, 0); err != nil {
		t.Errorf("NullLogger.LogSelect should not return error, got: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NullLogger.Close should not return error, got: %v", err)
	}
	if path := logger.Path(); path != "" {
		t.Errorf("NullLogger.Path should return empty string, got: %s", path)
	}
}

func TestEventLogger_LogLevelFiltering(t *testing.T) {
	testCases := []struct {
		name          string
		minLevel      EventLevel
		expectedCount int
	}{
		{"LevelDebug logs all", LevelDebug, 4},
		{"LevelInfo skips debug", LevelInfo, 3},
		{"LevelWarning skips debug and info", LevelWarning, 2},
		{"LevelError only logs errors", LevelError, 1},
	}

	events := []Event{
		{Level: LevelDebug, Event: EventSchedule},
		{Level: LevelInfo, Event: EventSelect},
		{Level: LevelWarning, Event: EventDegrade},
		{Level: LevelError, Event: EventError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			logger, err := NewEventLogger(tmpDir, tc.minLevel)
			if err != nil {
				t.Fatalf("NewEventLogger failed: %v", err)
			}
			defer logger.Close()

			for _, e := range events {
				e := e
				if err := logger.Log(&e); err != nil {
					t.Fatalf("Log failed: %v", err)
				}
			}

			logger.Close()

			file, err := os.Open(logger.path)
			if err != nil {
				t.Fatalf("Failed to open log file: %v", err)
			}
			defer file.Close()

			scanner := bufio.NewScanner(file)
			lineCount := 0
			for scanner.Scan() {
				lineCount++
			}

			if lineCount != tc.expectedCount {
				t.Errorf("Expected %d events logged, got %d", tc.expectedCount, lineCount)
			}
		})
	}
}
