package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	m := NewManual()
	var order []string
	m.Schedule("c", 300*time.Millisecond, func() { order = append(order, "c") })
	m.Schedule("a", 100*time.Millisecond, func() { order = append(order, "a") })
	m.Schedule("b", 100*time.Millisecond, func() { order = append(order, "b") })

	assert.Equal(t, 0, m.Advance(50*time.Millisecond))
	assert.Equal(t, 2, m.Advance(100*time.Millisecond))
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, []string{"c"}, m.Pending())

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Empty(t, m.Pending())
}

func TestManual_ReplaceAndCancel(t *testing.T) {
	m := NewManual()
	var fired []string
	m.Schedule("preview", time.Second, func() { fired = append(fired, "first") })
	m.Schedule("preview", 2*time.Second, func() { fired = append(fired, "second") })
	m.Schedule("advance", time.Second, func() { fired = append(fired, "advance") })

	assert.True(t, m.Cancel("advance"))
	assert.False(t, m.Cancel("advance"))

	m.Advance(5 * time.Second)
	assert.Equal(t, []string{"second"}, fired)
}

func TestManual_ChainedCallbacks(t *testing.T) {
	m := NewManual()
	var fired []time.Duration
	m.Schedule("one", 100*time.Millisecond, func() {
		fired = append(fired, m.Now())
		m.Schedule("two", 100*time.Millisecond, func() {
			fired = append(fired, m.Now())
		})
	})

	assert.Equal(t, 2, m.Advance(250*time.Millisecond))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, fired)
	assert.Equal(t, 250*time.Millisecond, m.Now())
}

func TestManual_CancelAll(t *testing.T) {
	m := NewManual()
	m.Schedule("a", time.Second, func() { t.Fatal("should not fire") })
	m.Schedule("b", time.Second, func() { t.Fatal("should not fire") })
	assert.Equal(t, 2, m.CancelAll())
	assert.Equal(t, 0, m.Advance(time.Minute))
}

func TestTimer_Fires(t *testing.T) {
	s := NewTimer(logging.New("error"))
	done := make(chan struct{})
	s.Schedule("x", 5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	require.Eventually(t, func() bool { return len(s.Pending()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimer_CancelAllPreventsFiring(t *testing.T) {
	s := NewTimer(logging.New("error"))
	var mu sync.Mutex
	fired := 0
	for _, name := range []string{"a", "b", "c"} {
		s.Schedule(name, 50*time.Millisecond, func() {
			mu.Lock()
			fired++
			mu.Unlock()
		})
	}
	assert.Equal(t, []string{"a", "b", "c"}, s.Pending())
	assert.Equal(t, 3, s.CancelAll())

	time.Sleep(120 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, fired)
}

func TestTimer_ReplaceSameName(t *testing.T) {
	s := NewTimer(logging.New("error"))
	got := make(chan string, 2)
	s.Schedule("step", 30*time.Millisecond, func() { got <- "old" })
	s.Schedule("step", 10*time.Millisecond, func() { got <- "new" })

	select {
	case v := <-got:
		assert.Equal(t, "new", v)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, got, 0)
	assert.False(t, s.Cancel("step"))
}

var _ Scheduler = (*Timer)(nil)
var _ Scheduler = (*Manual)(nil)
