package scheduler

import (
	"sort"
	"sync"
	"time"
)

type manualEntry struct {
	name string
	at   time.Duration
	seq  uint64
	fn   func()
}

// Manual is a virtual-time Scheduler. Nothing fires until Advance is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	entries map[string]*manualEntry
}

// NewManual creates a scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{entries: make(map[string]*manualEntry)}
}

func (m *Manual) Schedule(name string, delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.entries[name] = &manualEntry{name: name, at: m.now + delay, seq: m.seq, fn: fn}
}

func (m *Manual) Cancel(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; !ok {
		return false
	}
	delete(m.entries, name)
	return true
}

func (m *Manual) CancelAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	m.entries = make(map[string]*manualEntry)
	return n
}

func (m *Manual) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Now returns elapsed virtual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves virtual time forward by d, firing due actions in deadline
// order (ties in scheduling order). Actions scheduled by a firing callback
// also run if they fall due within the window. Callbacks run without the
// lock held. It returns the number of actions fired.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return fired
		}
		delete(m.entries, next.name)
		if next.at > m.now {
			m.now = next.at
		}
		m.mu.Unlock()

		next.fn()
		fired++
	}
}

func (m *Manual) nextDueLocked(target time.Duration) *manualEntry {
	var best *manualEntry
	for _, e := range m.entries {
		if e.at > target {
			continue
		}
		if best == nil || e.at < best.at || (e.at == best.at && e.seq < best.seq) {
			best = e
		}
	}
	return best
}
