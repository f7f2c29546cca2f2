// Package prometheus implements the metric sets of pkg/metrics on top of
// the Prometheus client. Importing it registers the constructors.
package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// register adds c to reg. When an identical collector is already
// registered, for example because a metric set was constructed twice
// against the same registry, the existing collector is returned.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
