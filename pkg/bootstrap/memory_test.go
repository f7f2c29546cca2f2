package bootstrap

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/registry"
)

func TestMemoryRelaySecondaryProcessIsNoop(t *testing.T) {
	f := newFixture()
	reg := f.registry()
	relay := NewMemoryRelay(secondaryGate(), reg, f.metrics)

	relay.OnMemoryPressure(browser.TrimMemoryRunningLow)

	assert.Empty(t, f.store.dispatched())
	assert.Empty(t, f.icons.trimmed())
	assert.False(t, reg.Constructed(registry.NameStore))
	assert.False(t, reg.Constructed(registry.NameIcons))
	assert.Equal(t, []string{"ignored:RUNNING_LOW"}, f.metrics.pressure)
}

func TestMemoryRelayPrimaryNotifiesStoreAndIcons(t *testing.T) {
	f := newFixture()
	relay := NewMemoryRelay(primaryGate(), f.registry(), f.metrics)

	relay.OnMemoryPressure(browser.TrimMemoryRunningLow)

	assert.Equal(t, []browser.Action{browser.LowMemoryAction{Level: browser.TrimMemoryRunningLow}}, f.store.dispatched())
	assert.Equal(t, []browser.MemoryLevel{browser.TrimMemoryRunningLow}, f.icons.trimmed())
	assert.Equal(t, []string{"RUNNING_LOW"}, f.metrics.pressure)
}

func TestMemoryRelayStoreFailureStillTrimsIcons(t *testing.T) {
	f := newFixture()
	f.storeErr = errBoom
	relay := NewMemoryRelay(primaryGate(), f.registry(), nil)

	relay.OnMemoryPressure(browser.TrimMemoryComplete)

	assert.Empty(t, f.store.dispatched())
	assert.Equal(t, []browser.MemoryLevel{browser.TrimMemoryComplete}, f.icons.trimmed())
}

func TestMemoryRelayBeforeWiringConstructsOnDemand(t *testing.T) {
	f := newFixture()
	reg := f.registry()
	relay := NewMemoryRelay(primaryGate(), reg, nil)

	require.False(t, reg.Constructed(registry.NameStore))
	relay.OnMemoryPressure(browser.TrimMemoryModerate)

	assert.True(t, reg.Constructed(registry.NameStore))
	assert.True(t, reg.Constructed(registry.NameIcons))
	assert.False(t, reg.Constructed(registry.NameEngine))
}

func TestMemoryRelayConcurrentCallbacks(t *testing.T) {
	f := newFixture()
	relay := NewMemoryRelay(primaryGate(), f.registry(), f.metrics)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.OnMemoryPressure(browser.TrimMemoryRunningCritical)
		}()
	}
	wg.Wait()

	assert.Len(t, f.store.dispatched(), n)
	assert.Len(t, f.icons.trimmed(), n)
}

func TestMemoryRelayAfterStorePanicDuringWiring(t *testing.T) {
	f := newFixture()
	f.storePanics = true
	w, reg, signal, capture := newTestWiring(f)

	require.NoError(t, w.Run(context.Background()))
	require.True(t, signal.IsSet())
	require.Empty(t, capture.calls)
	assert.Contains(t, w.Results()[2].Error, "store open failed")

	relay := NewMemoryRelay(primaryGate(), reg, nil)
	require.NotPanics(t, func() {
		relay.OnMemoryPressure(browser.TrimMemoryRunningLow)
	})
	assert.Equal(t, []browser.MemoryLevel{browser.TrimMemoryRunningLow}, f.icons.trimmed())
}
