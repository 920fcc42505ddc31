package log

import (
	"errors"
	"testing"
	"time"
)

func TestPairHelpers(t *testing.T) {
	tests := []struct {
		name    string
		kv      any
		wantKey string
		wantVal any
	}{
		{"Str", Str("group", "chatbot"), "group", "chatbot"},
		{"Int", Int("count", 42), "count", 42},
		{"Int64", Int64("rows", int64(7)), "rows", int64(7)},
		{"Bool", Bool("seeded", true), "seeded", true},
		{"Dur", Dur("latency", 5 * time.Second), "latency", 5 * time.Second},
		{"Any", Any("type", "checkbox"), "type", "checkbox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slice, ok := tt.kv.([]any)
			if !ok {
				t.Fatalf("%s should return []any", tt.name)
			}
			if len(slice) != 2 {
				t.Fatalf("%s should return slice with 2 elements, got %d", tt.name, len(slice))
			}
			if slice[0] != tt.wantKey || slice[1] != tt.wantVal {
				t.Fatalf("%s returned %v", tt.name, slice)
			}
		})
	}
}

// recordingLogger is a test implementation of the Logger interface.
type recordingLogger struct {
	messages []string
}

func (m *recordingLogger) With(kv ...any) Logger       { return m }
func (m *recordingLogger) Debug(msg string, kv ...any) { m.messages = append(m.messages, "DEBUG: "+msg) }
func (m *recordingLogger) Info(msg string, kv ...any)  { m.messages = append(m.messages, "INFO: "+msg) }
func (m *recordingLogger) Warn(msg string, kv ...any)  { m.messages = append(m.messages, "WARN: "+msg) }
func (m *recordingLogger) Error(err error, msg string, kv ...any) {
	m.messages = append(m.messages, "ERROR: "+msg+": "+err.Error())
}

func TestLoggerInterface(t *testing.T) {
	var logger Logger = &recordingLogger{}

	logger.Info("setting updated", Str("group", "chatbot"))
	logger.With(Str("component", "store")).Warn("listener failed")
	logger.Error(errors.New("boom"), "write failed")

	got := logger.(*recordingLogger).messages
	want := []string{"INFO: setting updated", "WARN: listener failed", "ERROR: write failed: boom"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info("ignored")
	logger.Error(errors.New("x"), "ignored")
	if logger.With(Str("k", "v")) == nil {
		t.Error("Nop().With should return a logger")
	}
}
