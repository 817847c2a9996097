package xtimer

import (
	"sync"
	"time"
)

// RuntimeScheduler 基于 time.AfterFunc 的调度器。
//
// 所有到期回调进入同一队列，由单个分发协程依次执行：
// 一个回调执行完毕前不会开始下一个。已到期但尚未分发的回调在句柄
// 被取消后不再执行。周期调度在分发积压时合并为一次。
//
// 零值不可用，使用 [NewRuntimeScheduler] 创建，用完调用 Close。
type RuntimeScheduler struct {
	mu     sync.Mutex
	timers map[Handle]*runtimeTimer
	queue  []Handle
	next   Handle
	closed bool

	signal  chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

type runtimeTimer struct {
	t      *time.Timer
	fn     func()
	period time.Duration // 0 表示一次性
	queued bool
}

// NewRuntimeScheduler 创建调度器并启动分发协程。
func NewRuntimeScheduler() *RuntimeScheduler {
	s := &RuntimeScheduler{
		timers:  make(map[Handle]*runtimeTimer),
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// ScheduleOnce 在 delay 后调用一次 fn。关闭后返回 0 且不调度。
func (s *RuntimeScheduler) ScheduleOnce(delay time.Duration, fn func()) Handle {
	return s.schedule(max(delay, 0), 0, fn)
}

// ScheduleRepeating 每隔 period 调用一次 fn。period 小于 [MinInterval] 时按 MinInterval 处理。
func (s *RuntimeScheduler) ScheduleRepeating(period time.Duration, fn func()) Handle {
	period = max(period, MinInterval)
	return s.schedule(period, period, fn)
}

func (s *RuntimeScheduler) schedule(delay, period time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || fn == nil {
		return 0
	}
	s.next++
	h := s.next
	rt := &runtimeTimer{fn: fn, period: period}
	s.timers[h] = rt
	// 持锁创建：到期回调先取锁，因此总能看到已赋值的 rt.t
	rt.t = time.AfterFunc(delay, func() { s.expire(h) })
	return h
}

// expire 在 time 包的协程中执行，只负责入队。
func (s *RuntimeScheduler) expire(h Handle) {
	s.mu.Lock()
	rt, ok := s.timers[h]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	if !rt.queued {
		rt.queued = true
		s.queue = append(s.queue, h)
	}
	if rt.period > 0 {
		rt.t.Reset(rt.period)
	}
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *RuntimeScheduler) dispatch() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
			for {
				fn, ok := s.pop()
				if !ok {
					break
				}
				fn()
			}
		}
	}
}

// pop 取出下一个仍然有效的回调。
func (s *RuntimeScheduler) pop() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 && !s.closed {
		h := s.queue[0]
		s.queue = s.queue[1:]
		rt, ok := s.timers[h]
		if !ok {
			continue
		}
		rt.queued = false
		if rt.period == 0 {
			delete(s.timers, h)
		}
		return rt.fn, true
	}
	return nil, false
}

// CancelOnce 取消一次性调度
func (s *RuntimeScheduler) CancelOnce(h Handle) {
	s.cancel(h)
}

// CancelRepeating 取消周期调度
func (s *RuntimeScheduler) CancelRepeating(h Handle) {
	s.cancel(h)
}

func (s *RuntimeScheduler) cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.timers[h]; ok {
		rt.t.Stop()
		delete(s.timers, h)
	}
}

// Len 返回尚未结束的调度数量
func (s *RuntimeScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close 停止所有调度并等待分发协程退出，正在执行的回调会先完成。
// 重复调用安全。不要在回调中调用 Close，否则会死锁。
func (s *RuntimeScheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.stopped
		return nil
	}
	s.closed = true
	for h, rt := range s.timers {
		rt.t.Stop()
		delete(s.timers, h)
	}
	s.queue = nil
	s.mu.Unlock()

	close(s.done)
	<-s.stopped
	return nil
}
