package action

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MetaData is an insertion-ordered string-keyed mapping. Setting an existing
// key replaces its value but keeps its position. It is safe for concurrent
// use, and encodes to a JSON object with keys in insertion order.
type MetaData struct {
	mu     sync.RWMutex
	values *orderedmap.OrderedMap[string, any]
}

// NewMetaData returns an empty mapping.
func NewMetaData() *MetaData {
	return &MetaData{values: orderedmap.New[string, any]()}
}

// Set stores value under key.
func (m *MetaData) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = orderedmap.New[string, any]()
	}
	m.values.Set(key, value)
}

// Get returns the value stored under key.
func (m *MetaData) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.values == nil {
		return nil, false
	}
	return m.values.Get(key)
}

// Keys returns the keys in insertion order.
func (m *MetaData) Keys() []string {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.values == nil {
		return nil
	}
	keys := make([]string, 0, m.values.Len())
	for p := m.values.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Len returns the number of keys.
func (m *MetaData) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.values == nil {
		return 0
	}
	return m.values.Len()
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (m *MetaData) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.values == nil {
		return []byte("{}"), nil
	}
	return m.values.MarshalJSON()
}
