// Package scheduler runs named, cancellable delayed actions. Scheduling a
// name that is already pending replaces the earlier action.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

// Scheduler is implemented by Timer for live use and Manual for tests.
type Scheduler interface {
	Schedule(name string, delay time.Duration, fn func())
	Cancel(name string) bool
	CancelAll() int
	Pending() []string
}

type timerEntry struct {
	timer *time.Timer
	seq   uint64
}

// Timer schedules actions on real time via time.AfterFunc.
type Timer struct {
	mu     sync.Mutex
	timers map[string]*timerEntry
	seq    uint64
	logger *logging.Logger
}

// NewTimer creates a wall-clock scheduler.
func NewTimer(logger *logging.Logger) *Timer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Timer{timers: make(map[string]*timerEntry), logger: logger}
}

// Schedule runs fn after delay unless cancelled or replaced first.
func (t *Timer) Schedule(name string, delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.timers[name]; ok {
		prev.timer.Stop()
	}
	t.seq++
	seq := t.seq
	entry := &timerEntry{seq: seq}
	entry.timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		cur, ok := t.timers[name]
		if !ok || cur.seq != seq {
			t.mu.Unlock()
			return
		}
		delete(t.timers, name)
		t.mu.Unlock()
		fn()
	})
	t.timers[name] = entry
	t.logger.Debug("scheduler: scheduled", "name", name, "delay", delay)
}

// Cancel stops a pending action. It reports whether one was pending.
func (t *Timer) Cancel(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.timers[name]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(t.timers, name)
	return true
}

// CancelAll stops every pending action and returns how many were dropped.
func (t *Timer) CancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.timers)
	for _, entry := range t.timers {
		entry.timer.Stop()
	}
	t.timers = make(map[string]*timerEntry)
	if n > 0 {
		t.logger.Debug("scheduler: cancelled all", "count", n)
	}
	return n
}

// Pending lists scheduled names in lexical order.
func (t *Timer) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.timers))
	for name := range t.timers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
