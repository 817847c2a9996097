package xtimertest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler_OnceFiresAtDueTime(t *testing.T) {
	s := NewManualScheduler()
	var calls int
	s.ScheduleOnce(10*time.Millisecond, func() { calls++ })

	s.Advance(9 * time.Millisecond)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, s.Pending())

	s.Advance(time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Pending())

	s.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestManualScheduler_RepeatingFiresEachPeriod(t *testing.T) {
	s := NewManualScheduler()
	var calls int
	h := s.ScheduleRepeating(10*time.Millisecond, func() { calls++ })

	s.Advance(35 * time.Millisecond)
	assert.Equal(t, 3, calls)

	s.CancelRepeating(h)
	s.Advance(time.Second)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, s.Pending())
}

func TestManualScheduler_OrderByDueThenHandle(t *testing.T) {
	s := NewManualScheduler()
	var order []string
	s.ScheduleOnce(20*time.Millisecond, func() { order = append(order, "c") })
	s.ScheduleOnce(10*time.Millisecond, func() { order = append(order, "a") })
	s.ScheduleOnce(10*time.Millisecond, func() { order = append(order, "b") })

	s.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestManualScheduler_ClockVisibleInsideCallback(t *testing.T) {
	s := NewManualScheduler()
	var seen time.Duration
	s.ScheduleOnce(15*time.Millisecond, func() { seen = s.Now() })

	s.Advance(100 * time.Millisecond)
	assert.Equal(t, 15*time.Millisecond, seen)
	assert.Equal(t, 100*time.Millisecond, s.Now())
}

func TestManualScheduler_ScheduleFromCallback(t *testing.T) {
	s := NewManualScheduler()
	var fired []time.Duration
	s.ScheduleOnce(10*time.Millisecond, func() {
		fired = append(fired, s.Now())
		s.ScheduleOnce(10*time.Millisecond, func() { fired = append(fired, s.Now()) })
	})

	s.Advance(25 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, fired)
}

func TestManualScheduler_CancelUnknownIsNoop(t *testing.T) {
	s := NewManualScheduler()
	assert.NotPanics(t, func() {
		s.CancelOnce(42)
		s.CancelRepeating(0)
	})
}

func TestManualScheduler_ClampsArguments(t *testing.T) {
	s := NewManualScheduler()
	var once, rep int
	s.ScheduleOnce(-time.Second, func() { once++ })
	s.ScheduleRepeating(0, func() { rep++ })

	s.Advance(0)
	assert.Equal(t, 1, once)
	assert.Equal(t, 0, rep)

	s.Advance(3 * time.Millisecond)
	assert.Equal(t, 3, rep)
}
