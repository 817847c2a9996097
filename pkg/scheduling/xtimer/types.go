package xtimer

import (
	"context"
	"strconv"
	"time"
)

//go:generate mockgen -destination=xtimermock/scheduler.go -package=xtimermock github.com/omeyang/xtimer/pkg/scheduling/xtimer Scheduler

// Callback 定时器回调。
//
// 返回非 nil error 或发生 panic 均视为失败。ctx 携带定时器 ID
// （见 [TimerIDFromContext]），注册表关闭时被取消。
type Callback func(ctx context.Context) error

// ErrorHandler 回调失败处理器。
//
// err 为 *[CallbackError]，可用 errors.Is 匹配回调返回的原始错误。
type ErrorHandler func(err error, timerID string)

// Kind 定时器类型，也是 ID 的命名空间：同一 ID 可以同时存在于两个命名空间。
type Kind int

const (
	// KindTimeout 一次性定时器
	KindTimeout Kind = iota
	// KindInterval 周期定时器
	KindInterval
)

// String 返回 Kind 的可读名称
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindInterval:
		return "interval"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Handle 宿主调度原语返回的不透明句柄，0 不代表任何调度。
type Handle uint64

// MinInterval 周期定时器的最小周期，非正周期会被提升到此值。
const MinInterval = time.Millisecond

// Scheduler 宿主调度原语。
//
// 实现需保证：
//   - Schedule* 不得同步调用 fn
//   - Cancel* 对未知或已取消的句柄是空操作
//   - Cancel* 不得等待正在执行的 fn 结束（注册表会在持锁时取消）
type Scheduler interface {
	// ScheduleOnce 在 delay 后调用一次 fn
	ScheduleOnce(delay time.Duration, fn func()) Handle
	// ScheduleRepeating 每隔 period 调用一次 fn，直到取消
	ScheduleRepeating(period time.Duration, fn func()) Handle
	// CancelOnce 取消一次性调度
	CancelOnce(h Handle)
	// CancelRepeating 取消周期调度
	CancelRepeating(h Handle)
}
