package xtimer

import (
	"context"
	"log/slog"
	"time"
)

// guard 把用户回调包装成交给调度器的无参函数。
//
// 包装后的函数：
//  1. 丢弃过期触发（entry 在调度器派发后被刷新或清理）
//  2. 一次性定时器在回调执行前先从活跃表移除
//  3. 带 panic 恢复地执行回调
//  4. 失败时上报错误处理器，然后按 ID 清理该定时器
func (r *Registry) guard(e *entry) func() {
	return func() {
		r.fire(e)
	}
}

func (r *Registry) fire(e *entry) {
	r.mu.Lock()
	if r.closed || r.table(e.kind)[e.id] != e {
		r.mu.Unlock()
		return
	}
	if e.kind == KindTimeout {
		delete(r.timeouts, e.id)
	}
	r.mu.Unlock()

	ctx := r.callbackContext(e)
	ctx, span := r.telemetry.startFire(ctx, e)

	start := time.Now()
	err := invoke(ctx, e.cb)
	elapsed := time.Since(start)
	_, panicked := err.(*panicError)

	r.stats.record(e.id, elapsed, err, panicked)
	r.telemetry.endFire(ctx, span, e.kind, elapsed, err, panicked)

	if err != nil {
		r.fail(ctx, e, &CallbackError{Kind: e.kind, TimerID: e.id, Err: err, Panicked: panicked})
	}
}

// invoke 执行回调，把 panic 转换为错误。
func invoke(ctx context.Context, cb Callback) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{value: v}
		}
	}()
	return cb(ctx)
}

// fail 上报失败并清理定时器。无论错误处理器是否 panic，清理都会发生。
func (r *Registry) fail(ctx context.Context, e *entry, cerr *CallbackError) {
	defer r.clearFailed(e.id)

	h := e.onError
	if h == nil {
		h = r.onError
	}
	r.report(ctx, h, cerr)
}

func (r *Registry) report(ctx context.Context, h ErrorHandler, cerr *CallbackError) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error(ctx, "timer error handler panicked",
				slog.String("registry_id", r.id),
				slog.String("timer_id", cerr.TimerID),
				slog.Any("panic", v))
		}
	}()
	h(cerr, cerr.TimerID)
}
