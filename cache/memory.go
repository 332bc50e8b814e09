package cache

import (
	"sync"
)

type hotValue struct {
	payload   []byte
	expiresAt *uint64
}

func (v *hotValue) expired(now uint64) bool {
	return v.expiresAt != nil && *v.expiresAt < now
}

// memoryTier mirrors recently used entries as their canonical encoding. A nil
// *memoryTier is a valid, always empty tier.
type memoryTier struct {
	cache map[string]*hotValue
	mutex sync.Mutex
}

func newMemoryTier() *memoryTier {
	return &memoryTier{cache: make(map[string]*hotValue)}
}

// get returns the payload for key, evicting it if it expired before now.
func (m *memoryTier) get(key string, now uint64) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	val, ok := m.cache[key]
	if !ok {
		return nil, false
	}
	if val.expired(now) {
		delete(m.cache, key)
		return nil, false
	}
	return val.payload, true
}

// set stores payload for key unless it is already expired at now.
func (m *memoryTier) set(key string, payload []byte, expiresAt *uint64, now uint64) {
	if m == nil {
		return
	}
	val := &hotValue{payload: payload, expiresAt: expiresAt}
	m.mutex.Lock()
	if val.expired(now) {
		delete(m.cache, key)
	} else {
		m.cache[key] = val
	}
	m.mutex.Unlock()
}

func (m *memoryTier) delete(key string) {
	if m == nil {
		return
	}
	m.mutex.Lock()
	delete(m.cache, key)
	m.mutex.Unlock()
}

func (m *memoryTier) clear() {
	if m == nil {
		return
	}
	m.mutex.Lock()
	clear(m.cache)
	m.mutex.Unlock()
}

// sweep evicts every entry expired before now and returns how many were removed.
func (m *memoryTier) sweep(now uint64) int {
	if m == nil {
		return 0
	}
	var removed int
	m.mutex.Lock()
	for key, val := range m.cache {
		if val.expired(now) {
			delete(m.cache, key)
			removed++
		}
	}
	m.mutex.Unlock()
	return removed
}

func (m *memoryTier) len() int {
	if m == nil {
		return 0
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.cache)
}
