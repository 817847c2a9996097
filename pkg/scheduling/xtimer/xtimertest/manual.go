// Package xtimertest 提供 xtimer 的测试工具。
//
// [ManualScheduler] 是虚拟时钟驱动的调度原语，时间只在调用
// [ManualScheduler.Advance] 时推进，到期回调在 Advance 的调用协程中同步执行，
// 测试无需 sleep。
//
//	sched := xtimertest.NewManualScheduler()
//	reg := xtimer.New(xtimer.WithScheduler(sched))
//	reg.CreateTimeout(cb, 50*time.Millisecond, xtimer.WithTimerID("a"))
//	sched.Advance(50 * time.Millisecond) // cb 在此执行
package xtimertest

import (
	"sync"
	"time"

	"github.com/omeyang/xtimer/pkg/scheduling/xtimer"
)

// ManualScheduler 虚拟时钟调度器，实现 xtimer.Scheduler。并发安全。
type ManualScheduler struct {
	mu      sync.Mutex
	advance sync.Mutex // 串行化 Advance
	now     time.Duration
	next    xtimer.Handle
	pending map[xtimer.Handle]*manualTimer
}

type manualTimer struct {
	due    time.Duration
	period time.Duration // 0 表示一次性
	fn     func()
}

var _ xtimer.Scheduler = (*ManualScheduler)(nil)

// NewManualScheduler 创建虚拟时钟为 0 的调度器
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[xtimer.Handle]*manualTimer)}
}

// ScheduleOnce 实现 xtimer.Scheduler
func (s *ManualScheduler) ScheduleOnce(delay time.Duration, fn func()) xtimer.Handle {
	return s.add(max(delay, 0), 0, fn)
}

// ScheduleRepeating 实现 xtimer.Scheduler
func (s *ManualScheduler) ScheduleRepeating(period time.Duration, fn func()) xtimer.Handle {
	period = max(period, xtimer.MinInterval)
	return s.add(period, period, fn)
}

func (s *ManualScheduler) add(delay, period time.Duration, fn func()) xtimer.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = &manualTimer{due: s.now + delay, period: period, fn: fn}
	return s.next
}

// CancelOnce 实现 xtimer.Scheduler
func (s *ManualScheduler) CancelOnce(h xtimer.Handle) {
	s.cancel(h)
}

// CancelRepeating 实现 xtimer.Scheduler
func (s *ManualScheduler) CancelRepeating(h xtimer.Handle) {
	s.cancel(h)
}

func (s *ManualScheduler) cancel(h xtimer.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, h)
}

// Advance 把虚拟时钟推进 d，按到期时间（同时到期时按调度先后）依次执行回调。
//
// 回调中新建的、在窗口内到期的调度也会在本次 Advance 中执行。
func (s *ManualScheduler) Advance(d time.Duration) {
	s.advance.Lock()
	defer s.advance.Unlock()

	s.mu.Lock()
	target := s.now + max(d, 0)
	s.mu.Unlock()

	for {
		fn, ok := s.popDue(target)
		if !ok {
			break
		}
		fn()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

// popDue 取出最早到期的调度并把时钟推进到它的到期时间。
func (s *ManualScheduler) popDue(target time.Duration) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best  xtimer.Handle
		timer *manualTimer
	)
	for h, t := range s.pending {
		if t.due > target {
			continue
		}
		if timer == nil || t.due < timer.due || (t.due == timer.due && h < best) {
			best, timer = h, t
		}
	}
	if timer == nil {
		return nil, false
	}

	s.now = timer.due
	if timer.period > 0 {
		timer.due += timer.period
	} else {
		delete(s.pending, best)
	}
	return timer.fn, true
}

// Now 返回虚拟时钟自创建以来经过的时间
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending 返回尚未结束的调度数量
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
