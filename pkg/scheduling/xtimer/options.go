package xtimer

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtimer/pkg/observability/xlog"
	"github.com/omeyang/xtimer/pkg/util/xid"
)

// ===================== Registry Options =====================

// registryOptions 注册表配置
type registryOptions struct {
	id             string
	onError        ErrorHandler
	scheduler      Scheduler
	logger         xlog.Logger
	newID          func() (string, error)
	statsCapacity  int
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func defaultRegistryOptions() *registryOptions {
	return &registryOptions{
		newID:          xid.NewString,
		statsCapacity:  DefaultStatsCapacity,
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
}

// Option 注册表配置选项
type Option func(*registryOptions)

// WithID 设置注册表 ID，出现在默认错误处理器的日志中。不设置时自动生成。
func WithID(id string) Option {
	return func(o *registryOptions) {
		o.id = id
	}
}

// WithErrorHandler 设置注册表级错误处理器。
//
// 不设置时使用默认处理器：以 Error 级别记录错误、注册表 ID 与定时器 ID。
// 单个定时器可通过 [WithOnError] 覆盖。
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *registryOptions) {
		if h != nil {
			o.onError = h
		}
	}
}

// WithScheduler 设置宿主调度原语。
//
// 外部传入的 Scheduler 由调用方负责关闭；不设置时注册表创建并持有一个
// [RuntimeScheduler]，在 [Registry.Close] 时一并关闭。
func WithScheduler(s Scheduler) Option {
	return func(o *registryOptions) {
		if s != nil {
			o.scheduler = s
		}
	}
}

// WithLogger 设置日志记录器，默认使用 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *registryOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithIDGenerator 设置定时器 ID 生成函数，默认 xid.NewString。
func WithIDGenerator(fn func() (string, error)) Option {
	return func(o *registryOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithStatsCapacity 设置按 ID 统计的保留数量，默认 [DefaultStatsCapacity]。
// 超出后淘汰最久未执行的 ID；非正值被忽略。
func WithStatsCapacity(n int) Option {
	return func(o *registryOptions) {
		if n > 0 {
			o.statsCapacity = n
		}
	}
}

// WithMeterProvider 设置 OpenTelemetry MeterProvider，默认使用全局 provider。
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(o *registryOptions) {
		if p != nil {
			o.meterProvider = p
		}
	}
}

// WithTracerProvider 设置 OpenTelemetry TracerProvider，默认使用全局 provider。
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(o *registryOptions) {
		if p != nil {
			o.tracerProvider = p
		}
	}
}

// ===================== Timer Options =====================

// timerOptions 单个定时器配置
type timerOptions struct {
	id      string
	refresh bool
	onError ErrorHandler
}

func defaultTimerOptions() timerOptions {
	return timerOptions{refresh: true}
}

// TimerOption 定时器配置选项
type TimerOption func(*timerOptions)

// WithTimerID 指定定时器 ID。不指定时自动生成，Create* 返回生成的 ID。
func WithTimerID(id string) TimerOption {
	return func(o *timerOptions) {
		o.id = id
	}
}

// WithRefresh 设置刷新语义，默认 true。
//
//   - true: 同命名空间下已有同 ID 的活跃定时器时，先取消再重新创建
//   - false: 已有活跃定时器时本次调用不做任何调度，原定时器继续运行
func WithRefresh(refresh bool) TimerOption {
	return func(o *timerOptions) {
		o.refresh = refresh
	}
}

// WithOnError 设置该定时器专属的错误处理器，覆盖注册表级处理器。
func WithOnError(h ErrorHandler) TimerOption {
	return func(o *timerOptions) {
		o.onError = h
	}
}
