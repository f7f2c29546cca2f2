//go:build !windows

package commands

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyMemoryPressure delivers SIGUSR1 on c.
func notifyMemoryPressure(c chan<- os.Signal) {
	signal.Notify(c, syscall.SIGUSR1)
}
