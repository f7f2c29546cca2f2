package browser

import (
	"fmt"
	"strconv"
	"strings"
)

// MemoryLevel is a memory-pressure level reported by the host.
// Higher values are more severe.
type MemoryLevel int

// Trim levels as reported by the Android platform.
const (
	TrimMemoryRunningModerate MemoryLevel = 5
	TrimMemoryRunningLow      MemoryLevel = 10
	TrimMemoryRunningCritical MemoryLevel = 15
	TrimMemoryUIHidden        MemoryLevel = 20
	TrimMemoryBackground      MemoryLevel = 40
	TrimMemoryModerate        MemoryLevel = 60
	TrimMemoryComplete        MemoryLevel = 80
)

var memoryLevelNames = map[MemoryLevel]string{
	TrimMemoryRunningModerate: "RUNNING_MODERATE",
	TrimMemoryRunningLow:      "RUNNING_LOW",
	TrimMemoryRunningCritical: "RUNNING_CRITICAL",
	TrimMemoryUIHidden:        "UI_HIDDEN",
	TrimMemoryBackground:      "BACKGROUND",
	TrimMemoryModerate:        "MODERATE",
	TrimMemoryComplete:        "COMPLETE",
}

// String returns the symbolic name of the level, or its number when the
// level is not one of the named constants.
func (l MemoryLevel) String() string {
	if name, ok := memoryLevelNames[l]; ok {
		return name
	}
	return strconv.Itoa(int(l))
}

// ParseMemoryLevel accepts either a symbolic name (RUNNING_LOW,
// running-low, TRIM_MEMORY_RUNNING_LOW) or a non-negative integer.
func ParseMemoryLevel(s string) (MemoryLevel, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("memory level must be non-negative, got %d", n)
		}
		return MemoryLevel(n), nil
	}

	name := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	name = strings.TrimPrefix(name, "TRIM_MEMORY_")
	for level, candidate := range memoryLevelNames {
		if candidate == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown memory level %q", s)
}

// LowMemoryAction tells the browser store to shed memory.
type LowMemoryAction struct {
	Level MemoryLevel
}

// ActionName implements Action.
func (LowMemoryAction) ActionName() string { return "low_memory" }

// IconCache holds decoded site icons.
type IconCache interface {
	OnTrimMemory(level MemoryLevel)
}
