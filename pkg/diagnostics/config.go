package diagnostics

import "time"

// Config configures the diagnostics HTTP server.
type Config struct {
	// Address is the interface to bind. Default: 127.0.0.1
	Address string

	// Port is the TCP port. 0 picks a free port.
	Port int

	// EnableDebug mounts the /debug routes that inject push messages and
	// memory pressure.
	EnableDebug bool

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Default: 10s
	WriteTimeout time.Duration

	// IdleTimeout is the keep-alive idle timeout. Default: 60s
	IdleTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = "127.0.0.1"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
