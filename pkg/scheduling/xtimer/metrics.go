package xtimer

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtimer/pkg/observability/xlog"
)

const (
	instrumentationName = "github.com/omeyang/xtimer/xtimer"

	metricTimerCreated     = "xtimer.timer.created"
	metricTimerFired       = "xtimer.timer.fired"
	metricTimerCleared     = "xtimer.timer.cleared"
	metricTimerActive      = "xtimer.timer.active"
	metricCallbackDuration = "xtimer.callback.duration"

	spanFire = "xtimer.fire"

	attrRegistryID = attribute.Key("registry.id")
	attrTimerID    = attribute.Key("timer.id")
	attrTimerKind  = attribute.Key("timer.kind")
	attrKind       = attribute.Key("kind")
	attrStatus     = attribute.Key("status")
	attrReason     = attribute.Key("reason")

	statusOK       = "ok"
	statusError    = "error"
	statusPanicked = "panic"

	reasonClear   = "clear"
	reasonRefresh = "refresh"
	reasonPause   = "pause"
	reasonFailure = "failure"
)

// telemetry 注册表的指标与追踪。
type telemetry struct {
	tracer   trace.Tracer
	registry attribute.KeyValue

	created  metric.Int64Counter
	fired    metric.Int64Counter
	cleared  metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Registration
}

// newTelemetry 创建指标与追踪。任一仪表创建失败时记录警告并退化为 noop，
// 不影响注册表本身。
func newTelemetry(r *Registry, mp metric.MeterProvider, tp trace.TracerProvider) *telemetry {
	t := &telemetry{
		tracer:   tp.Tracer(instrumentationName),
		registry: attrRegistryID.String(r.id),
	}
	if err := t.initMetrics(mp.Meter(instrumentationName), r); err != nil {
		r.logger.Warn(context.Background(), "xtimer metrics disabled",
			slog.String("registry_id", r.id), xlog.Err(err))
		// noop 仪表不会失败
		_ = t.initMetrics(noop.NewMeterProvider().Meter(instrumentationName), r)
	}
	return t
}

func (t *telemetry) initMetrics(meter metric.Meter, r *Registry) error {
	var err error
	if t.created, err = meter.Int64Counter(metricTimerCreated,
		metric.WithDescription("timers scheduled"),
		metric.WithUnit("{timer}")); err != nil {
		return err
	}
	if t.fired, err = meter.Int64Counter(metricTimerFired,
		metric.WithDescription("callback invocations"),
		metric.WithUnit("{invocation}")); err != nil {
		return err
	}
	if t.cleared, err = meter.Int64Counter(metricTimerCleared,
		metric.WithDescription("schedules cancelled, by reason (clear, refresh, pause, failure)"),
		metric.WithUnit("{timer}")); err != nil {
		return err
	}
	if t.duration, err = meter.Float64Histogram(metricCallbackDuration,
		metric.WithDescription("callback duration"),
		metric.WithUnit("s")); err != nil {
		return err
	}

	active, err := meter.Int64ObservableGauge(metricTimerActive,
		metric.WithDescription("timers currently registered"),
		metric.WithUnit("{timer}"))
	if err != nil {
		return err
	}
	t.active, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		timeouts, intervals, paused := r.counts()
		o.ObserveInt64(active, int64(timeouts), metric.WithAttributes(t.registry, attrKind.String(KindTimeout.String())))
		o.ObserveInt64(active, int64(intervals), metric.WithAttributes(t.registry, attrKind.String(KindInterval.String())))
		o.ObserveInt64(active, int64(paused), metric.WithAttributes(t.registry, attrKind.String("paused")))
		return nil
	}, active)
	return err
}

func (t *telemetry) recordCreated(kind Kind) {
	t.created.Add(context.Background(), 1,
		metric.WithAttributes(t.registry, attrKind.String(kind.String())))
}

func (t *telemetry) recordCleared(kind Kind, reason string) {
	t.cleared.Add(context.Background(), 1,
		metric.WithAttributes(t.registry, attrKind.String(kind.String()), attrReason.String(reason)))
}

func (t *telemetry) startFire(ctx context.Context, e *entry) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanFire,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			t.registry,
			attrTimerID.String(e.id),
			attrTimerKind.String(e.kind.String()),
		))
}

func (t *telemetry) endFire(ctx context.Context, span trace.Span, kind Kind, elapsed time.Duration, err error, panicked bool) {
	status := statusOK
	switch {
	case panicked:
		status = statusPanicked
	case err != nil:
		status = statusError
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	attrs := metric.WithAttributes(t.registry, attrKind.String(kind.String()), attrStatus.String(status))
	t.fired.Add(ctx, 1, attrs)
	t.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (t *telemetry) close() error {
	if t.active == nil {
		return nil
	}
	return t.active.Unregister()
}
