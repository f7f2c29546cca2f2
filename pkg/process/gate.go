// Package process decides whether the current OS process is the primary
// application process, the only one allowed to initialize heavyweight
// subsystems.
package process

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gops "github.com/shirou/gopsutil/v4/process"
)

// Role classifies the current process.
type Role int

const (
	// RoleSecondary is the zero value: auxiliary processes and any process
	// whose identity cannot be determined.
	RoleSecondary Role = iota
	RolePrimary
)

func (r Role) String() string {
	if r == RolePrimary {
		return "primary"
	}
	return "secondary"
}

// IdentityFunc returns the name of the running process as the OS reports
// it. An error means the identity is unknown.
type IdentityFunc func(ctx context.Context) (string, error)

// Gate computes the process role once and caches it.
type Gate struct {
	mainProcess string
	identity    IdentityFunc

	once sync.Once
	role Role
	name string
}

// NewGate returns a gate comparing the process identity with mainProcess.
// A nil identity uses the OS command line of the current process.
func NewGate(mainProcess string, identity IdentityFunc) *Gate {
	if identity == nil {
		identity = CommandLineIdentity
	}
	return &Gate{mainProcess: mainProcess, identity: identity}
}

// Role returns the cached role, computing it on first use. It never fails:
// an unreadable identity yields RoleSecondary.
func (g *Gate) Role() Role {
	g.once.Do(func() {
		name, err := g.identity(context.Background())
		if err != nil {
			return
		}
		g.name = name
		if g.mainProcess != "" && name == g.mainProcess {
			g.role = RolePrimary
		}
	})
	return g.role
}

// IsPrimary reports whether this is the primary process.
func (g *Gate) IsPrimary() bool {
	return g.Role() == RolePrimary
}

// ProcessName returns the identity observed when the role was computed.
// It is empty when the identity could not be read.
func (g *Gate) ProcessName() string {
	g.Role()
	return g.name
}

// MainProcess returns the configured main process name.
func (g *Gate) MainProcess() string {
	return g.mainProcess
}

// CommandLineIdentity reads the first element of the current process
// command line. Auxiliary processes keep the application name and append
// ":suffix" to it, so "kestrel:media" never equals "kestrel".
func CommandLineIdentity(ctx context.Context) (string, error) {
	p, err := gops.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return "", err
	}
	args, err := p.CmdlineSliceWithContext(ctx)
	if err != nil {
		return "", err
	}
	if len(args) == 0 || args[0] == "" {
		return "", os.ErrNotExist
	}
	return normalize(args[0]), nil
}

// StaticIdentity returns an IdentityFunc that always reports name. An
// empty name is treated as unknown.
func StaticIdentity(name string) IdentityFunc {
	return func(context.Context) (string, error) {
		if name == "" {
			return "", os.ErrNotExist
		}
		return name, nil
	}
}

// normalize strips the directory from argv[0] while keeping any ":suffix".
func normalize(arg0 string) string {
	if strings.ContainsAny(arg0, `/\`) {
		return filepath.Base(arg0)
	}
	return arg0
}
