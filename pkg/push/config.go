// Package push connects the push messaging client to the engine and the
// account manager, and provides the process-wide push processor.
package push

import (
	"errors"

	"github.com/marmos91/kestrel/pkg/browser"
)

// ErrNotConfigured is returned when push messaging is used in a build or
// configuration without a push feature.
var ErrNotConfigured = errors.New("push feature not configured")

// Config is the optional push feature. It is either Configured, carrying
// the feature, or NotConfigured.
type Config struct {
	feature browser.PushFeature
}

// Configured wraps a push feature. A nil feature is NotConfigured.
func Configured(feature browser.PushFeature) Config {
	return Config{feature: feature}
}

// NotConfigured is the variant without a push feature.
func NotConfigured() Config {
	return Config{}
}

// Feature returns the wrapped feature and whether one is configured.
func (c Config) Feature() (browser.PushFeature, bool) {
	return c.feature, c.feature != nil
}

// IsConfigured reports whether a feature is present.
func (c Config) IsConfigured() bool {
	return c.feature != nil
}
