package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentuity/go-filecache/sys"
)

func TestMemoryTier(t *testing.T) {
	m := newMemoryTier()
	m.set("forever", []byte(`1`), nil, 100)
	m.set("edge", []byte(`2`), sys.Ptr(uint64(100)), 100)
	m.set("stale", []byte(`3`), sys.Ptr(uint64(99)), 100)
	assert.Equal(t, 2, m.len())

	val, ok := m.get("edge", 100)
	assert.True(t, ok)
	assert.Equal(t, []byte(`2`), val)

	_, ok = m.get("edge", 101)
	assert.False(t, ok)
	assert.Equal(t, 1, m.len(), "expired entry is evicted on read")

	m.delete("forever")
	_, ok = m.get("forever", 100)
	assert.False(t, ok)
}

func TestMemoryTierSetReplacesWithExpired(t *testing.T) {
	m := newMemoryTier()
	m.set("key", []byte(`1`), nil, 100)
	m.set("key", []byte(`2`), sys.Ptr(uint64(50)), 100)
	_, ok := m.get("key", 100)
	assert.False(t, ok)
}

func TestMemoryTierSweep(t *testing.T) {
	m := newMemoryTier()
	m.set("a", []byte(`1`), sys.Ptr(uint64(10)), 0)
	m.set("b", []byte(`2`), sys.Ptr(uint64(20)), 0)
	m.set("c", []byte(`3`), nil, 0)
	assert.Equal(t, 1, m.sweep(15))
	assert.Equal(t, 2, m.len())
	m.clear()
	assert.Equal(t, 0, m.len())
}

func TestMemoryTierNil(t *testing.T) {
	var m *memoryTier
	m.set("key", []byte(`1`), nil, 0)
	_, ok := m.get("key", 0)
	assert.False(t, ok)
	m.delete("key")
	m.clear()
	assert.Equal(t, 0, m.sweep(0))
	assert.Equal(t, 0, m.len())
}
