package xtimer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xtimer/pkg/observability/xlog"
)

// CronScheduler 基于 robfig/cron/v3 引擎的调度器。
//
// 与 [RuntimeScheduler] 不同，回调在 cron 的任务协程中执行，
// 不同定时器的回调可能并发运行；同一定时器的上一次回调未结束时，
// 本次触发被跳过。周期调度不做秒级取整，支持亚秒周期。
//
//	sched := xtimer.NewCronScheduler(xtimer.WithCronLocation(time.UTC))
//	defer sched.Close()
//	reg := xtimer.New(xtimer.WithScheduler(sched))
type CronScheduler struct {
	cron *cron.Cron
	once sync.Once
}

type cronOptions struct {
	location *time.Location
	logger   xlog.Logger
}

// CronOption CronScheduler 配置选项
type CronOption func(*cronOptions)

// WithCronLocation 设置 cron 引擎时区，默认 time.Local
func WithCronLocation(loc *time.Location) CronOption {
	return func(o *cronOptions) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithCronLogger 设置 cron 引擎日志，默认 xlog.Default()
func WithCronLogger(l xlog.Logger) CronOption {
	return func(o *cronOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewCronScheduler 创建并启动 cron 引擎。
func NewCronScheduler(opts ...CronOption) *CronScheduler {
	o := &cronOptions{location: time.Local}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}

	logger := &cronLogger{logger: o.logger.With(xlog.Component("xtimer.cron"))}
	c := cron.New(
		cron.WithLocation(o.location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Start()
	return &CronScheduler{cron: c}
}

// ScheduleOnce 在 delay 后调用一次 fn，执行后条目从引擎中移除。
func (s *CronScheduler) ScheduleOnce(delay time.Duration, fn func()) Handle {
	if fn == nil {
		return 0
	}
	job := &onceJob{fn: fn}
	at := time.Now().Add(max(delay, 0))
	id := s.cron.Schedule(&onceSchedule{at: at}, job)
	job.bind(func() { s.cron.Remove(id) })
	return Handle(id)
}

// ScheduleRepeating 每隔 period 调用一次 fn
func (s *CronScheduler) ScheduleRepeating(period time.Duration, fn func()) Handle {
	if fn == nil {
		return 0
	}
	id := s.cron.Schedule(everySchedule{period: max(period, MinInterval)}, cron.FuncJob(fn))
	return Handle(id)
}

// CancelOnce 取消一次性调度
func (s *CronScheduler) CancelOnce(h Handle) {
	s.cron.Remove(cron.EntryID(h))
}

// CancelRepeating 取消周期调度
func (s *CronScheduler) CancelRepeating(h Handle) {
	s.cron.Remove(cron.EntryID(h))
}

// Len 返回引擎中的条目数
func (s *CronScheduler) Len() int {
	return len(s.cron.Entries())
}

// Close 停止引擎并等待正在执行的回调结束，重复调用安全。
func (s *CronScheduler) Close() error {
	s.once.Do(func() {
		<-s.cron.Stop().Done()
	})
	return nil
}

// Shutdown 与 Close 相同，但等待受 ctx 约束。
func (s *CronScheduler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Close()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("xtimer: cron shutdown: %w", ctx.Err())
	}
}

// everySchedule 固定周期，不做秒级取整（cron.Every 会取整到秒）。
type everySchedule struct {
	period time.Duration
}

func (e everySchedule) Next(t time.Time) time.Time {
	return t.Add(e.period)
}

// onceSchedule 只在 at 触发一次；之后返回零值，cron 不再调度零值条目。
type onceSchedule struct {
	at    time.Time
	fired atomic.Bool
}

func (o *onceSchedule) Next(time.Time) time.Time {
	if o.fired.Swap(true) {
		return time.Time{}
	}
	return o.at
}

// onceJob 执行后把自身从引擎移除。remove 在 Schedule 返回后才绑定，
// 任务可能先于绑定执行，两种顺序都要处理。
type onceJob struct {
	fn func()

	mu     sync.Mutex
	done   bool
	remove func()
}

func (j *onceJob) Run() {
	defer func() {
		j.mu.Lock()
		j.done = true
		remove := j.remove
		j.mu.Unlock()
		if remove != nil {
			remove()
		}
	}()
	j.fn()
}

func (j *onceJob) bind(remove func()) {
	j.mu.Lock()
	j.remove = remove
	done := j.done
	j.mu.Unlock()
	if done {
		remove()
	}
}

// cronLogger 把 cron.Logger 适配到 xlog。cron 的 Info 日志非常频繁，降为 Debug。
type cronLogger struct {
	logger xlog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(context.Background(), msg, kvAttrs(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	attrs := append(kvAttrs(keysAndValues), xlog.Err(err))
	l.logger.Error(context.Background(), msg, attrs...)
}

func kvAttrs(kv []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(kv)/2+1)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 < len(kv) {
			attrs = append(attrs, slog.Any(key, kv[i+1]))
		} else {
			attrs = append(attrs, slog.String("!BADKEY", key))
		}
	}
	return attrs
}
