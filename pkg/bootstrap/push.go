package bootstrap

import (
	"context"
	"fmt"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/internal/telemetry"
	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/push"
)

// wirePush connects push messaging when a feature is configured. The
// sub-steps run in order and the first failure skips the rest.
func (w *Wiring) wirePush(ctx context.Context) error {
	cfg, err := w.reg.Push()
	if err != nil {
		return fmt.Errorf("construct push config: %w", err)
	}
	feature, ok := cfg.Feature()
	if !ok {
		logger.DebugCtx(ctx, "Push messaging not configured")
		telemetry.AddEvent(ctx, "push.not_configured")
		return nil
	}

	processor, err := w.reg.PushProcessor()
	if err != nil {
		return fmt.Errorf("construct push processor: %w", err)
	}
	processor.Install(feature)

	engine, err := w.reg.Engine()
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	if err := push.NewEngineIntegration(engine, feature, w.accountScope).Start(); err != nil {
		return fmt.Errorf("start engine integration: %w", err)
	}

	account := push.NewAccountIntegration(feature, w.accountScope, func() (browser.AccountManager, error) {
		return w.reg.AccountManager()
	})
	if err := account.Start(); err != nil {
		return fmt.Errorf("start account integration: %w", err)
	}

	if err := feature.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize push feature: %w", err)
	}

	logger.InfoCtx(ctx, "Push messaging wired", logger.KeyScope, w.accountScope)
	return nil
}
