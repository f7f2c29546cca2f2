package icons

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kestrel/pkg/browser"
)

type fakeMetrics struct {
	hits, misses int
	evictions    map[string]int
	entries      int
	bytes        int64
}

func (f *fakeMetrics) RecordLookup(hit bool) {
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func (f *fakeMetrics) RecordEvictions(reason string, count int) {
	if f.evictions == nil {
		f.evictions = make(map[string]int)
	}
	f.evictions[reason] += count
}

func (f *fakeMetrics) SetSize(entries int, bytes int64) {
	f.entries = entries
	f.bytes = bytes
}

func icon(url string, size int) Icon {
	return Icon{URL: url, Source: "html", Data: make([]byte, size)}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{MaxEntries: 0}, nil)
	assert.Error(t, err)
}

func TestGetPut(t *testing.T) {
	m := &fakeMetrics{}
	c, err := New(Config{MaxEntries: 4}, m)
	require.NoError(t, err)

	_, ok := c.Get("https://a")
	assert.False(t, ok)

	c.Put("https://a", icon("https://a/favicon.ico", 10))
	got, ok := c.Get("https://a")
	require.True(t, ok)
	assert.Equal(t, "https://a/favicon.ico", got.URL)

	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, int64(10), c.Bytes())
}

func TestReplaceKeepsByteCount(t *testing.T) {
	c, err := New(Config{MaxEntries: 4}, nil)
	require.NoError(t, err)

	c.Put("https://a", icon("x", 10))
	c.Put("https://a", icon("y", 25))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(25), c.Bytes())
}

func TestEntryBound(t *testing.T) {
	m := &fakeMetrics{}
	c, err := New(Config{MaxEntries: 2}, m)
	require.NoError(t, err)

	c.Put("https://a", icon("a", 1))
	c.Put("https://b", icon("b", 1))
	c.Put("https://c", icon("c", 1))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("https://a")
	assert.False(t, ok)
	assert.Equal(t, 1, m.evictions[EvictCapacity])
	assert.Equal(t, int64(2), c.Bytes())
}

func TestByteBound(t *testing.T) {
	c, err := New(Config{MaxEntries: 10, MaxBytes: 100}, nil)
	require.NoError(t, err)

	c.Put("https://a", icon("a", 60))
	c.Put("https://b", icon("b", 60))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(60), c.Bytes())
	_, ok := c.Get("https://b")
	assert.True(t, ok)
}

func TestOversizedIconRejected(t *testing.T) {
	m := &fakeMetrics{}
	c, err := New(Config{MaxEntries: 10, MaxBytes: 10}, m)
	require.NoError(t, err)

	c.Put("https://small", icon("small", 4))
	c.Put("https://big", icon("big", 50))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(4), c.Bytes())
	_, ok := c.Get("https://big")
	assert.False(t, ok)

	c.Put("https://small", icon("small", 11))
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Bytes())
	assert.Equal(t, 3, m.evictions[EvictOversized])
	assert.LessOrEqual(t, m.bytes, int64(10))
}

func TestOnTrimMemory(t *testing.T) {
	tests := []struct {
		level   browser.MemoryLevel
		cleared bool
	}{
		{browser.TrimMemoryRunningModerate, false},
		{browser.TrimMemoryRunningLow, true},
		{browser.TrimMemoryRunningCritical, true},
		{browser.TrimMemoryUIHidden, true},
		{browser.TrimMemoryBackground, true},
		{browser.TrimMemoryComplete, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			m := &fakeMetrics{}
			c, err := New(Config{MaxEntries: 4}, m)
			require.NoError(t, err)
			c.Put("https://a", icon("a", 5))
			c.Put("https://b", icon("b", 5))

			c.OnTrimMemory(tt.level)

			if tt.cleared {
				assert.Equal(t, 0, c.Len())
				assert.Equal(t, int64(0), c.Bytes())
				assert.Equal(t, 2, m.evictions[EvictTrim])
				assert.Equal(t, 0, m.entries)
			} else {
				assert.Equal(t, 2, c.Len())
			}
		})
	}
}
