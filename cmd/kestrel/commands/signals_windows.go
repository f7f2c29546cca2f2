//go:build windows

package commands

import "os"

// notifyMemoryPressure is a no-op: Windows has no SIGUSR1. Use the
// diagnostics /debug/memory route instead.
func notifyMemoryPressure(chan<- os.Signal) {}
