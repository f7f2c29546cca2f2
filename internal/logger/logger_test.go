package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	originalLevel := GetLevel()
	originalFormat, _ := currentFormat.Load().(string)
	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		currentLevel.Store(int32(originalLevel))
		currentFormat.Store(originalFormat)
		reconfigure()
	}

	return buf, cleanup
}

func decodeJSONLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		hidden   []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, msg := range tt.expected {
				assert.Contains(t, out, msg)
			}
			for _, msg := range tt.hidden {
				assert.NotContains(t, out, msg)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		SetLevel("warn")
		assert.Equal(t, LevelWarn, GetLevel())
		SetLevel("Debug")
		assert.Equal(t, LevelDebug, GetLevel())
	})

	t.Run("UnknownLevelIgnored", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")
		SetLevel("verbose")
		assert.Equal(t, LevelError, GetLevel())
	})
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel(" warning ")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, l)

	l, ok = ParseLevel("trace")
	assert.False(t, ok)
	assert.Equal(t, LevelInfo, l)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestTextFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	Info("wiring step finished", KeyStep, "push", KeyDurationMs, 1.5)

	out := buf.String()
	assert.Contains(t, out, "wiring step finished")
	assert.Contains(t, out, "step=push")
	assert.Contains(t, out, "INFO")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")

	Warn("memory pressure", KeyLevel, 15)

	entries := decodeJSONLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "memory pressure", entries[0]["msg"])
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, float64(15), entries[0][KeyLevel])
}

func TestFormatSwitching(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")
	Info("as json")
	SetFormat("text")
	Info("as text")
	SetFormat("yaml")
	Info("still text")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "{"))
	assert.False(t, strings.HasPrefix(lines[1], "{"))
	assert.False(t, strings.HasPrefix(lines[2], "{"))
}

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("json")

		lc := &LogContext{
			TraceID:   "abc123",
			SpanID:    "xyz789",
			Role:      "primary",
			Phase:     "scheduled",
			Step:      "engine_warm_up",
			SessionID: "tab-1",
		}
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "step completed", "extra_field", "value")

		entries := decodeJSONLines(t, buf)
		require.Len(t, entries, 1)
		entry := entries[0]
		assert.Equal(t, "abc123", entry[KeyTraceID])
		assert.Equal(t, "xyz789", entry[KeySpanID])
		assert.Equal(t, "primary", entry[KeyRole])
		assert.Equal(t, "scheduled", entry[KeyPhase])
		assert.Equal(t, "engine_warm_up", entry[KeyStep])
		assert.Equal(t, "tab-1", entry[KeySessionID])
		assert.Equal(t, "value", entry["extra_field"])
	})

	t.Run("EmptyFieldsOmitted", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("json")

		ctx := WithContext(context.Background(), NewLogContext("secondary"))
		WarnCtx(ctx, "skipped")

		entries := decodeJSONLines(t, buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "secondary", entries[0][KeyRole])
		assert.NotContains(t, entries[0], KeyStep)
		assert.NotContains(t, entries[0], KeyTraceID)
	})

	t.Run("NilContextHandled", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")

		require.NotPanics(t, func() {
			//nolint:staticcheck // nil context is tolerated on purpose
			InfoCtx(nil, "test message")
		})
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("DebugCtxFiltered", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		DebugCtx(context.Background(), "hidden")
		ErrorCtx(context.Background(), "shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestLogContext(t *testing.T) {
	t.Run("NewLogContext", func(t *testing.T) {
		lc := NewLogContext("primary")
		assert.Equal(t, "primary", lc.Role)
		assert.False(t, lc.StartTime.IsZero())
	})

	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := &LogContext{TraceID: "trace123", Step: "push"}
		clone := lc.Clone()
		assert.Equal(t, lc.TraceID, clone.TraceID)

		clone.Step = "telemetry"
		assert.Equal(t, "push", lc.Step)
	})

	t.Run("CloneNil", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithStep("push"))
		assert.Zero(t, lc.DurationMs())
	})

	t.Run("Builders", func(t *testing.T) {
		lc := NewLogContext("primary")
		lc2 := lc.WithPhase("wired").WithStep("telemetry").WithSession("s-1").WithTrace("t", "s")

		assert.Equal(t, "wired", lc2.Phase)
		assert.Equal(t, "telemetry", lc2.Step)
		assert.Equal(t, "s-1", lc2.SessionID)
		assert.Equal(t, "t", lc2.TraceID)
		assert.Equal(t, "s", lc2.SpanID)
		assert.Empty(t, lc.Phase)
	})

	t.Run("DurationMs", func(t *testing.T) {
		lc := &LogContext{StartTime: time.Now().Add(-10 * time.Millisecond)}
		assert.GreaterOrEqual(t, lc.DurationMs(), 10.0)
	})
}

func TestFieldHelpers(t *testing.T) {
	t.Run("ErrHandlesNil", func(t *testing.T) {
		assert.Equal(t, "", Err(nil).Key)
	})

	t.Run("ErrFormatsError", func(t *testing.T) {
		attr := Err(assert.AnError)
		assert.Equal(t, KeyError, attr.Key)
		assert.Contains(t, attr.Value.String(), "assert.AnError")
	})

	t.Run("TypedAttrs", func(t *testing.T) {
		assert.Equal(t, KeyStep, Step("push").Key)
		assert.Equal(t, KeyRole, Role("primary").Key)
		assert.Equal(t, int64(80), MemoryLevel(80).Value.Int64())
		assert.Equal(t, 100*time.Millisecond, Delay(100*time.Millisecond).Value.Duration())
	})
}

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				Info("concurrent", "worker", n, "iteration", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 200)
}

func TestInit(t *testing.T) {
	t.Run("FileOutput", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		path := filepath.Join(t.TempDir(), "kestrel.log")
		require.NoError(t, Init(Config{Level: "DEBUG", Format: "json", Output: path}))

		Debug("to file")
		require.NoError(t, Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.Error(t, err)
	})

	t.Run("CloseWithoutFile", func(t *testing.T) {
		assert.NoError(t, Close())
	})
}

func BenchmarkLogDisabled(b *testing.B) {
	_, cleanup := captureOutput()
	defer cleanup()
	SetLevel("ERROR")

	for i := 0; i < b.N; i++ {
		Debug("disabled", KeyStep, "push")
	}
}

func BenchmarkLogCtx(b *testing.B) {
	_, cleanup := captureOutput()
	defer cleanup()
	SetLevel("INFO")
	SetFormat("json")
	ctx := WithContext(context.Background(), NewLogContext("primary").WithStep("push"))

	for i := 0; i < b.N; i++ {
		InfoCtx(ctx, "bench")
	}
}
