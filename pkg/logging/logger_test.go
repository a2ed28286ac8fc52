package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLookupLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"DEBUG", DebugLevel, false},
		{"debug", DebugLevel, false},
		{" Info ", InfoLevel, false},
		{"WARNING", WarnLevel, false},
		{"warn", WarnLevel, false},
		{"Error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
		{"", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := LookupLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LookupLevel(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("LookupLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			if ParseLevel(tt.input) != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, ParseLevel(tt.input), tt.expected)
			}
		})
	}
}

func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		key   string
		value any
	}{
		{"String", String("k", "v"), "k", "v"},
		{"Int", Int("n", 42), "n", 42},
		{"Int64", Int64("n", 1<<40), "n", int64(1 << 40)},
		{"Float64", Float64("x", 0.5), "x", 0.5},
		{"Bool", Bool("b", true), "b", true},
		{"Duration", Duration("d", 1500*time.Millisecond), "d", "1.5s"},
		{"Error", Error(errors.New("boom")), "error", "boom"},
		{"ErrorNil", Error(nil), "error", nil},
		{"EdgeID", EdgeID(7), "edge_id", 7},
		{"Rows", Rows(3), "rows", 3},
		{"Cols", Cols(4), "cols", 4},
		{"Workers", Workers(8), "workers", 8},
		{"RunID", RunID("abc"), "run_id", "abc"},
		{"Branch", Branch("core"), "branch", "core"},
		{"Mach", Mach(0.3), "mach", 0.3},
		{"Component", Component("influence"), "component", "influence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.field.Key != tt.key || tt.field.Value != tt.value {
				t.Errorf("%s = %+v, want {Key:%s Value:%v}", tt.name, tt.field, tt.key, tt.value)
			}
		})
	}
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("matrix assembled", Rows(10), Cols(20))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != "INFO" || e.Message != "matrix assembled" {
		t.Errorf("entry = %+v", e)
	}
	if e.Fields["rows"] != float64(10) || e.Fields["cols"] != float64(20) {
		t.Errorf("fields = %v", e.Fields)
	}
	if _, err := time.Parse(time.RFC3339Nano, e.Time); err != nil {
		t.Errorf("time %q: %v", e.Time, err)
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("levels = %s, %s", entries[0].Level, entries[1].Level)
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("influence"), RunID("r1"))
	child.Info("row done", Int("row", 3))
	logger.Info("parent")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Fields["component"] != "influence" || entries[0].Fields["run_id"] != "r1" {
		t.Errorf("child fields = %v", entries[0].Fields)
	}
	if entries[0].Fields["row"] != float64(3) {
		t.Errorf("row field = %v", entries[0].Fields["row"])
	}
	if entries[1].Fields != nil {
		t.Errorf("parent picked up child fields: %v", entries[1].Fields)
	}
}

func TestJSONLogger_ChildLevelIndependent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)
	child := logger.With(Component("forest"))

	child.SetLevel(DebugLevel)
	logger.Debug("hidden")
	child.Debug("shown")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0].Message != "shown" {
		t.Errorf("entries = %+v", entries)
	}
	if logger.GetLevel() != InfoLevel {
		t.Errorf("parent level = %v, want INFO", logger.GetLevel())
	}
}

func TestJSONLogger_ConcurrentLinesIntact(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)
	child := logger.With(Component("pool"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					logger.Info("parent", Int("i", i))
				} else {
					child.Info("child", Int("i", i))
				}
			}
		}(i)
	}
	wg.Wait()

	if got := len(decodeLines(t, &buf)); got != 400 {
		t.Errorf("got %d entries, want 400", got)
	}
}

func TestJSONLogger_NoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("message without fields")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, exists := entry["fields"]; exists {
		t.Error("Expected fields key to be omitted when empty")
	}
}

func TestGlobalHelperFunctions(t *testing.T) {
	prev := DefaultLogger()
	defer SetDefaultLogger(prev)

	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))

	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	ErrorLog("error msg")
	With(Component("cli")).Info("with msg")

	entries := decodeLines(t, &buf)
	levels := []string{"DEBUG", "INFO", "WARN", "ERROR", "INFO"}
	if len(entries) != len(levels) {
		t.Fatalf("got %d entries, want %d", len(entries), len(levels))
	}
	for i, want := range levels {
		if entries[i].Level != want {
			t.Errorf("entry %d level = %v, want %v", i, entries[i].Level, want)
		}
	}
	if entries[4].Fields["component"] != "cli" {
		t.Errorf("component = %v", entries[4].Fields["component"])
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	StartTimer(logger, "build", Rows(2)).End(Count(4))
	StartTimer(logger, "build").EndWithLevel(WarnLevel, "slow build")
	StartTimer(logger, "build").EndError(errors.New("cancelled"))

	entries := decodeLines(t, &buf)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Fields["rows"] != float64(2) || entries[0].Fields["count"] != float64(4) {
		t.Errorf("End fields = %v", entries[0].Fields)
	}
	if _, ok := entries[0].Fields["latency"]; !ok {
		t.Error("End did not record latency")
	}
	if entries[1].Level != "WARN" || entries[1].Message != "slow build" {
		t.Errorf("EndWithLevel entry = %+v", entries[1])
	}
	if entries[2].Level != "ERROR" || entries[2].Fields["error"] != "cancelled" {
		t.Errorf("EndError entry = %+v", entries[2])
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("ignored")
	l.With(Count(1)).Error("ignored")
	l.SetLevel(ErrorLevel)
	if l.GetLevel() != InfoLevel {
		t.Errorf("NopLogger level = %v", l.GetLevel())
	}
}

func BenchmarkJSONLogger_Info(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", EdgeID(i), Branch("far"))
	}
}

func BenchmarkJSONLogger_InfoFiltered(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, ErrorLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", EdgeID(i), Branch("far"))
	}
}
