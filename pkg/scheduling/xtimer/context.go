package xtimer

import (
	"context"
	"log/slog"

	"github.com/omeyang/xtimer/pkg/observability/xlog"
)

type timerIDKey struct{}

// TimerIDFromContext 从回调 context 中取出定时器 ID
func TimerIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(timerIDKey{}).(string)
	return id, ok
}

// callbackContext 构造回调 context：派生自注册表根 context（Close 时取消），
// 携带定时器 ID，并把 timer_id/kind 注入日志属性。
func (r *Registry) callbackContext(e *entry) context.Context {
	ctx := context.WithValue(r.baseCtx, timerIDKey{}, e.id)
	return xlog.ContextWithAttrs(ctx,
		slog.String("timer_id", e.id),
		slog.String("timer_kind", e.kind.String()))
}
