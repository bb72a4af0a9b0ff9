package state

import "sync"

// Tracker records which invoice records have already been seen within a
// single run. There is deliberately no persistence: every run re-scans
// the full date window.
type Tracker interface {
	Seen(key string) bool
	Mark(key, detail string)
	Snapshot() Snapshot
}

type Snapshot struct {
	Seen int
}

type MemoryTracker struct {
	mu   sync.RWMutex
	seen map[string]string
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{seen: make(map[string]string)}
}

func (m *MemoryTracker) Seen(key string) bool {
	if key == "" {
		return false
	}

	m.mu.RLock()
	_, ok := m.seen[key]
	m.mu.RUnlock()
	return ok
}

func (m *MemoryTracker) Mark(key, detail string) {
	if key == "" {
		return
	}

	m.mu.Lock()
	m.seen[key] = detail
	m.mu.Unlock()
}

func (m *MemoryTracker) Snapshot() Snapshot {
	m.mu.RLock()
	count := len(m.seen)
	m.mu.RUnlock()
	return Snapshot{Seen: count}
}
