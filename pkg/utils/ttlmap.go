package utils

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// TTLMap provides a thread-safe map with expiring entries.
type TTLMap[K comparable, V any] struct {
	data *xsync.MapOf[K, ttlEntry[V]]
	ttl  time.Duration
}

// NewTTLMap creates a new TTLMap with the specified TTL duration.
func NewTTLMap[K comparable, V any](ttl time.Duration) *TTLMap[K, V] {
	m := &TTLMap[K, V]{
		data: xsync.NewMapOf[K, ttlEntry[V]](),
		ttl:  ttl,
	}

	go m.cleanup()

	return m
}

// Get retrieves a value that has not yet expired.
func (m *TTLMap[K, V]) Get(key K) (V, bool) {
	entry, exists := m.data.Load(key)
	if !exists || time.Now().After(entry.expires) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set adds or updates a value in the map.
func (m *TTLMap[K, V]) Set(key K, value V) {
	m.data.Store(key, ttlEntry[V]{value: value, expires: time.Now().Add(m.ttl)})
}

// Claim stores value only when key is absent or expired, reporting whether it did.
func (m *TTLMap[K, V]) Claim(key K, value V) bool {
	claimed := false
	now := time.Now()

	m.data.Compute(key, func(old ttlEntry[V], loaded bool) (ttlEntry[V], bool) {
		if loaded && now.Before(old.expires) {
			return old, false
		}
		claimed = true
		return ttlEntry[V]{value: value, expires: now.Add(m.ttl)}, false
	})

	return claimed
}

// Delete removes a key from the map.
func (m *TTLMap[K, V]) Delete(key K) {
	m.data.Delete(key)
}

// cleanup periodically removes expired entries.
func (m *TTLMap[K, V]) cleanup() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		m.data.Range(func(key K, entry ttlEntry[V]) bool {
			if now.After(entry.expires) {
				m.data.Delete(key)
			}
			return true
		})
	}
}
