package xtimer

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStatsCapacity 默认保留按 ID 统计的定时器数量
const DefaultStatsCapacity = 1024

// Stats 回调执行统计。并发安全，可在定时器运行期间读取。
//
//	stats := reg.Stats()
//	fmt.Printf("fires=%d failures=%d panics=%d\n",
//	    stats.Fires(), stats.Failures(), stats.Panics())
//
// 按 ID 的统计在定时器清理后仍保留，便于事后排查；只保留最近执行过的
// 若干个 ID（见 [WithStatsCapacity]），聚合计数不受影响。
type Stats struct {
	counters
	timers *lru.Cache[string, *TimerStats]
}

// TimerStats 单个定时器 ID 的执行统计
type TimerStats struct {
	ID string
	counters
}

// counters 聚合计数，Stats 与 TimerStats 共用。
type counters struct {
	fires         atomic.Int64
	failures      atomic.Int64
	panics        atomic.Int64
	totalDuration atomic.Int64 // 纳秒
	maxDuration   atomic.Int64 // 纳秒

	mu           sync.RWMutex
	lastFireTime time.Time
	lastDuration time.Duration
	lastError    error
}

func newStats(capacity int) *Stats {
	timers, err := lru.New[string, *TimerStats](capacity)
	if err != nil {
		// 仅 capacity 非正时失败
		timers, _ = lru.New[string, *TimerStats](DefaultStatsCapacity)
	}
	return &Stats{timers: timers}
}

func (c *counters) record(d time.Duration, err error, panicked bool) {
	c.fires.Add(1)
	if err != nil {
		c.failures.Add(1)
	}
	if panicked {
		c.panics.Add(1)
	}
	c.totalDuration.Add(int64(d))
	for {
		cur := c.maxDuration.Load()
		if int64(d) <= cur || c.maxDuration.CompareAndSwap(cur, int64(d)) {
			break
		}
	}

	c.mu.Lock()
	c.lastFireTime = time.Now()
	c.lastDuration = d
	c.lastError = err
	c.mu.Unlock()
}

// Fires 返回回调执行次数（含失败）
func (c *counters) Fires() int64 { return c.fires.Load() }

// Failures 返回失败次数（含 panic）
func (c *counters) Failures() int64 { return c.failures.Load() }

// Panics 返回 panic 次数
func (c *counters) Panics() int64 { return c.panics.Load() }

// Successes 返回成功次数
func (c *counters) Successes() int64 { return c.fires.Load() - c.failures.Load() }

// SuccessRate 返回成功率（0-1），尚未执行时为 0
func (c *counters) SuccessRate() float64 {
	fires := c.fires.Load()
	if fires == 0 {
		return 0
	}
	return float64(c.Successes()) / float64(fires)
}

// AvgDuration 返回平均回调耗时
func (c *counters) AvgDuration() time.Duration {
	fires := c.fires.Load()
	if fires == 0 {
		return 0
	}
	return time.Duration(c.totalDuration.Load() / fires)
}

// MaxDuration 返回最大回调耗时
func (c *counters) MaxDuration() time.Duration {
	return time.Duration(c.maxDuration.Load())
}

// LastFireTime 返回最后一次执行时间
func (c *counters) LastFireTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFireTime
}

// LastDuration 返回最后一次执行耗时
func (c *counters) LastDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastDuration
}

// LastError 返回最后一次执行的错误（nil 表示成功）
func (c *counters) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (s *Stats) record(id string, d time.Duration, err error, panicked bool) {
	s.counters.record(d, err, panicked)
	ts, ok := s.timers.Get(id)
	if !ok {
		created := &TimerStats{ID: id}
		if prev, found, _ := s.timers.PeekOrAdd(id, created); found {
			ts = prev
		} else {
			ts = created
		}
	}
	ts.record(d, err, panicked)
}

// Timer 返回指定 ID 的统计；该 ID 从未执行过或已被淘汰时返回 nil
func (s *Stats) Timer(id string) *TimerStats {
	ts, _ := s.timers.Peek(id)
	return ts
}

// Timers 返回保留的定时器统计，按最近执行时间从旧到新排列
func (s *Stats) Timers() []*TimerStats {
	return s.timers.Values()
}

// Snapshot 导出聚合统计的只读快照，用于打印或序列化
type Snapshot struct {
	Fires       int64         `json:"fires"`
	Failures    int64         `json:"failures"`
	Panics      int64         `json:"panics"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
	MaxDuration time.Duration `json:"max_duration"`
}

// Snapshot 返回当前聚合统计
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Fires:       s.Fires(),
		Failures:    s.Failures(),
		Panics:      s.Panics(),
		SuccessRate: s.SuccessRate(),
		AvgDuration: s.AvgDuration(),
		MaxDuration: s.MaxDuration(),
	}
}
