package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that bootstrap
// logs from every process can be aggregated and queried together.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Process and bootstrap
	KeyRole        = "role"         // primary, secondary
	KeyProcessName = "process_name" // OS process name as observed
	KeyMainProcess = "main_process" // Declared main process name
	KeyPhase       = "phase"        // Initializer phase
	KeyStep        = "step"         // Wiring step name
	KeyDelay       = "delay"        // Deferral before wiring runs
	KeyTrigger     = "trigger"      // What released the deferred wiring (delay, host_ready)

	// Subsystems
	KeySubsystem = "subsystem" // Subsystem name (engine, push, telemetry, ...)
	KeyEngine    = "engine"    // Engine implementation
	KeyAddonID   = "addon_id"  // Add-on identifier

	// Sessions
	KeySessionID = "session_id"
	KeyURL       = "url"
	KeySessions  = "sessions" // Session count

	// Push
	KeyScope        = "scope"         // Push subscription scope
	KeyPayloadBytes = "payload_bytes" // Push payload size

	// Memory pressure
	KeyLevel   = "pressure_level" // Memory pressure level (numeric)
	KeyLevelID = "pressure"       // Memory pressure level (name)
	KeyEvicted = "evicted"

	// Crash reporting
	KeyCrashID = "crash_id"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyPath       = "path"
	KeyPort       = "port"
)

// Role creates a process role attribute
func Role(role string) slog.Attr {
	return slog.String(KeyRole, role)
}

// Phase creates an initializer phase attribute
func Phase(phase string) slog.Attr {
	return slog.String(KeyPhase, phase)
}

// Step creates a wiring step attribute
func Step(step string) slog.Attr {
	return slog.String(KeyStep, step)
}

// Subsystem creates a subsystem name attribute
func Subsystem(name string) slog.Attr {
	return slog.String(KeySubsystem, name)
}

// SessionID creates a session identifier attribute
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Scope creates a push scope attribute
func Scope(scope string) slog.Attr {
	return slog.String(KeyScope, scope)
}

// MemoryLevel creates a memory pressure level attribute
func MemoryLevel(level int) slog.Attr {
	return slog.Int(KeyLevel, level)
}

// Delay creates a deferral duration attribute
func Delay(d time.Duration) slog.Attr {
	return slog.Duration(KeyDelay, d)
}

// DurationMs creates an operation duration attribute in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err creates an error attribute. A nil error yields an empty attribute,
// which handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
