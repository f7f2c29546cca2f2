package push

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/kestrel/internal/telemetry"
	"github.com/marmos91/kestrel/pkg/browser"
)

// Processor is the system-wide push entry point. The transport hands
// every incoming message to it, and it forwards to the installed feature.
type Processor struct {
	mu      sync.RWMutex
	feature browser.PushFeature
}

// NewProcessor returns a processor with no feature installed.
func NewProcessor() *Processor {
	return &Processor{}
}

// Install makes feature the receiver of incoming messages, replacing any
// previously installed feature.
func (p *Processor) Install(feature browser.PushFeature) {
	p.mu.Lock()
	p.feature = feature
	p.mu.Unlock()
}

// Installed reports whether a feature has been installed.
func (p *Processor) Installed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.feature != nil
}

// OnMessage forwards a message to the installed feature.
func (p *Processor) OnMessage(ctx context.Context, scope string, payload []byte) (err error) {
	p.mu.RLock()
	feature := p.feature
	p.mu.RUnlock()

	if feature == nil {
		return ErrNotConfigured
	}

	ctx, span := telemetry.StartSpan(ctx, "push.message",
		trace.WithAttributes(telemetry.PushScope(scope), telemetry.PushBytes(len(payload))))
	defer func() { telemetry.EndSpan(span, err) }()
	return feature.OnMessage(ctx, scope, payload)
}
