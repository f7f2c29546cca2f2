package browser

import "context"

// Telemetry is an analytics or observability backend started during wiring.
type Telemetry interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
