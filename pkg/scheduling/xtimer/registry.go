package xtimer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/omeyang/xtimer/pkg/observability/xlog"
)

// entry 一个活跃定时器
type entry struct {
	kind    Kind
	id      string
	handle  Handle
	cb      Callback
	period  time.Duration // timeout 的延迟或 interval 的周期
	onError ErrorHandler
}

// pausedEntry 暂停记录。对外只表达"该 ID 已暂停"，
// 内部保留暂停时的参数，供 ResumeInterval 在调用方不提供时沿用。
type pausedEntry struct {
	cb      Callback
	period  time.Duration
	onError ErrorHandler
}

// Registry 按 ID 管理定时器的注册表。
//
// 不变量：
//   - 同一 ID 不会同时出现在活跃 interval 表和暂停表中
//   - 清理一个 ID 会把它从所在命名空间的所有表中移除
//   - 注册表持有的每个句柄都对应宿主原语中一个尚未取消的调度
//
// 使用 [New] 创建。
type Registry struct {
	id             string
	sched          Scheduler
	closeScheduler func() error // 仅当调度器由注册表创建时非 nil
	onError        ErrorHandler
	logger         xlog.Logger
	newID          func() (string, error)
	stats          *Stats
	telemetry      *telemetry

	baseCtx context.Context
	cancel  context.CancelFunc

	mu        sync.Mutex
	closed    bool
	timeouts  map[string]*entry
	intervals map[string]*entry
	paused    map[string]*pausedEntry
}

// New 创建注册表，总是成功。
//
// 用法：
//
//	reg := xtimer.New(
//	    xtimer.WithID("sessions"),
//	    xtimer.WithErrorHandler(func(err error, timerID string) {
//	        alert(err, timerID)
//	    }),
//	)
//	defer reg.Close()
func New(opts ...Option) *Registry {
	o := defaultRegistryOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		id:        o.id,
		sched:     o.scheduler,
		onError:   o.onError,
		logger:    o.logger,
		newID:     o.newID,
		stats:     newStats(o.statsCapacity),
		baseCtx:   ctx,
		cancel:    cancel,
		timeouts:  make(map[string]*entry),
		intervals: make(map[string]*entry),
		paused:    make(map[string]*pausedEntry),
	}
	if r.id == "" {
		r.id = generateRegistryID(r.newID)
	}
	if r.logger == nil {
		r.logger = xlog.Default()
	}
	r.logger = r.logger.With(xlog.Component("xtimer"))
	if r.sched == nil {
		rs := NewRuntimeScheduler()
		r.sched = rs
		r.closeScheduler = rs.Close
	}
	if r.onError == nil {
		r.onError = r.defaultErrorHandler
	}
	r.telemetry = newTelemetry(r, o.meterProvider, o.tracerProvider)
	return r
}

// generateRegistryID 生成注册表 ID；ID 生成器失败时退化为时间戳，保证构造不失败。
func generateRegistryID(newID func() (string, error)) string {
	if id, err := newID(); err == nil && id != "" {
		return id
	}
	return "xtimer-" + strconv.FormatInt(time.Now().UnixNano(), 36)
}

// defaultErrorHandler 注册表级默认错误处理器：只记录日志。
func (r *Registry) defaultErrorHandler(err error, timerID string) {
	r.logger.Error(context.Background(), "timer callback failed",
		slog.String("registry_id", r.id),
		slog.String("timer_id", timerID),
		xlog.Err(err))
}

// ID 返回注册表 ID
func (r *Registry) ID() string {
	return r.id
}

// Stats 返回执行统计
func (r *Registry) Stats() *Stats {
	return r.stats
}

// CreateTimeout 创建（或刷新）一次性定时器，返回定时器 ID。
//
// cb 为 nil 时返回 [ErrInvalidCallback]。负的 timeout 按 0 处理。
// 刷新语义见 [WithRefresh]。指定了 ID 时返回值与之完全相同。
func (r *Registry) CreateTimeout(cb Callback, timeout time.Duration, opts ...TimerOption) (string, error) {
	return r.create(KindTimeout, cb, timeout, opts)
}

// CreateInterval 创建（或刷新）周期定时器，返回定时器 ID。
//
// 与 [Registry.CreateTimeout] 契约相同。非正周期提升为 [MinInterval]。
// 刷新只取消同 ID 的活跃定时器；若该 ID 处于暂停状态，新建的活跃定时器
// 会取代暂停记录。
func (r *Registry) CreateInterval(cb Callback, interval time.Duration, opts ...TimerOption) (string, error) {
	return r.create(KindInterval, cb, interval, opts)
}

func (r *Registry) create(kind Kind, cb Callback, d time.Duration, opts []TimerOption) (string, error) {
	if cb == nil {
		return "", ErrInvalidCallback
	}
	o := defaultTimerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	id := o.id
	if id == "" {
		var err error
		if id, err = r.newID(); err != nil {
			return "", fmt.Errorf("xtimer: generate timer id: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}
	if o.refresh {
		r.clearActiveLocked(kind, id, reasonRefresh)
	}
	r.installLocked(kind, id, cb, d, o.onError)
	return id, nil
}

// installLocked 在该 ID 没有活跃定时器时调度一个新的，否则什么也不做。
func (r *Registry) installLocked(kind Kind, id string, cb Callback, d time.Duration, onError ErrorHandler) bool {
	table := r.table(kind)
	if _, ok := table[id]; ok {
		return false
	}

	e := &entry{kind: kind, id: id, cb: cb, onError: onError}
	switch kind {
	case KindInterval:
		e.period = max(d, MinInterval)
		e.handle = r.sched.ScheduleRepeating(e.period, r.guard(e))
		delete(r.paused, id)
	default:
		e.period = max(d, 0)
		e.handle = r.sched.ScheduleOnce(e.period, r.guard(e))
	}
	table[id] = e
	r.telemetry.recordCreated(kind)
	return true
}

// clearActiveLocked 取消并移除活跃定时器，返回是否存在。
func (r *Registry) clearActiveLocked(kind Kind, id, reason string) bool {
	table := r.table(kind)
	e, ok := table[id]
	if !ok {
		return false
	}
	r.cancelLocked(e)
	delete(table, id)
	r.telemetry.recordCleared(kind, reason)
	return true
}

func (r *Registry) cancelLocked(e *entry) {
	if e.kind == KindInterval {
		r.sched.CancelRepeating(e.handle)
	} else {
		r.sched.CancelOnce(e.handle)
	}
}

func (r *Registry) table(kind Kind) map[string]*entry {
	if kind == KindInterval {
		return r.intervals
	}
	return r.timeouts
}

// ClearTimeout 取消一次性定时器。ID 不存在时为空操作。
func (r *Registry) ClearTimeout(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearActiveLocked(KindTimeout, id, reasonClear)
}

// ClearInterval 取消周期定时器，同时丢弃该 ID 的暂停记录。ID 不存在时为空操作。
func (r *Registry) ClearInterval(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearActiveLocked(KindInterval, id, reasonClear)
	delete(r.paused, id)
}

// clearFailed 回调失败后按 ID 清理两个命名空间，包括暂停记录。
func (r *Registry) clearFailed(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearActiveLocked(KindInterval, id, reasonFailure)
	delete(r.paused, id)
	r.clearActiveLocked(KindTimeout, id, reasonFailure)
}

// PauseInterval 暂停周期定时器：取消底层调度并记录暂停状态。
// 没有该 ID 的活跃周期定时器（包括已暂停）时为空操作。
func (r *Registry) PauseInterval(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.intervals[id]
	if !ok {
		return
	}
	r.cancelLocked(e)
	delete(r.intervals, id)
	r.telemetry.recordCleared(KindInterval, reasonPause)
	r.paused[id] = &pausedEntry{cb: e.cb, period: e.period, onError: e.onError}
}

// ResumeInterval 恢复已暂停的周期定时器。ID 未暂停时为空操作。
//
// 注意：注册表只记录"已暂停"这一事实，调用方应传入暂停前使用的回调与周期。
// cb 为 nil 或 interval 非正时，沿用暂停时的回调或周期。
// 暂停前通过 [WithOnError] 设置的错误处理器总会被保留。
func (r *Registry) ResumeInterval(id string, cb Callback, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	p, ok := r.paused[id]
	if !ok {
		return
	}
	if cb == nil {
		cb = p.cb
	}
	if interval <= 0 {
		interval = p.period
	}
	r.installLocked(KindInterval, id, cb, interval, p.onError)
	delete(r.paused, id)
}

// ClearAll 取消所有活跃定时器并清空暂停记录，之后注册表为空。
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearAllLocked()
}

func (r *Registry) clearAllLocked() {
	for _, e := range r.timeouts {
		r.cancelLocked(e)
		r.telemetry.recordCleared(KindTimeout, reasonClear)
	}
	for _, e := range r.intervals {
		r.cancelLocked(e)
		r.telemetry.recordCleared(KindInterval, reasonClear)
	}
	clear(r.timeouts)
	clear(r.intervals)
	clear(r.paused)
}

// Close 清空注册表、取消回调 context，并关闭注册表自己创建的调度器。
//
// Close 之后 Create* 返回 [ErrClosed]，其余操作为空操作。重复调用安全。
// 不要在定时器回调中调用 Close：默认调度器会等待分发协程退出。
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.clearAllLocked()
	r.mu.Unlock()

	r.cancel()
	errs := []error{r.telemetry.close()}
	if r.closeScheduler != nil {
		errs = append(errs, r.closeScheduler())
	}
	return errors.Join(errs...)
}

// HasTimeout 报告该 ID 是否有活跃的一次性定时器
func (r *Registry) HasTimeout(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timeouts[id]
	return ok
}

// HasInterval 报告该 ID 是否有活跃的周期定时器
func (r *Registry) HasInterval(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.intervals[id]
	return ok
}

// IsPaused 报告该 ID 是否处于暂停状态
func (r *Registry) IsPaused(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.paused[id]
	return ok
}

// TimeoutIDs 返回所有活跃一次性定时器的 ID（已排序）
func (r *Registry) TimeoutIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.timeouts)
}

// IntervalIDs 返回所有活跃周期定时器的 ID（已排序）
func (r *Registry) IntervalIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.intervals)
}

// PausedIDs 返回所有暂停中的周期定时器 ID（已排序）
func (r *Registry) PausedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.paused)
}

// counts 返回三张表的大小，供指标采集使用。
func (r *Registry) counts() (timeouts, intervals, paused int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timeouts), len(r.intervals), len(r.paused)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
