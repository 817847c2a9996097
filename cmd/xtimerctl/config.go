package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/omeyang/xtimer/pkg/config/xconf"
	"github.com/omeyang/xtimer/pkg/observability/xlog"
	"github.com/omeyang/xtimer/pkg/scheduling/xtimer"
)

// errInjected 配置中声明的故障注入。
var errInjected = errors.New("injected failure")

// runConfig run 命令的配置文件结构。
//
//	log:
//	  level: info
//	timers:
//	  - id: heartbeat
//	    kind: interval
//	    delay: 500ms
//	  - id: flaky
//	    kind: interval
//	    delay: 200ms
//	    fail_after: 3
type runConfig struct {
	Log    logConfig   `koanf:"log"`
	Timers []timerSpec `koanf:"timers"`
}

type logConfig struct {
	Level string `koanf:"level"`
}

// timerSpec 声明式定时器
type timerSpec struct {
	ID    string        `koanf:"id"`
	Kind  string        `koanf:"kind"`  // timeout | interval
	Delay time.Duration `koanf:"delay"` // timeout 的延迟或 interval 的周期
	// FailAfter 第 N 次及之后的执行返回错误，0 表示从不失败
	FailAfter int64 `koanf:"fail_after"`
	// Panic 故障以 panic 而非返回错误的方式注入
	Panic bool `koanf:"panic"`
	// Keep 为 true 时重载配置不刷新已存在的同 ID 定时器
	Keep bool `koanf:"keep"`
}

func loadRunConfig(cfg xconf.Config) (*runConfig, error) {
	var rc runConfig
	if err := cfg.Unmarshal("", &rc); err != nil {
		return nil, err
	}
	if err := rc.validate(); err != nil {
		return nil, err
	}
	return &rc, nil
}

func (rc *runConfig) validate() error {
	if rc.Log.Level != "" {
		if _, err := xlog.ParseLevel(rc.Log.Level); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(rc.Timers))
	for i, spec := range rc.Timers {
		if spec.ID == "" {
			return fmt.Errorf("timers[%d]: id is required", i)
		}
		key := spec.Kind + "/" + spec.ID
		if seen[key] {
			return fmt.Errorf("timers[%d]: duplicate %s id %q", i, spec.Kind, spec.ID)
		}
		seen[key] = true
		if _, err := spec.kind(); err != nil {
			return fmt.Errorf("timers[%d]: %w", i, err)
		}
		if spec.Delay < 0 || spec.FailAfter < 0 {
			return fmt.Errorf("timers[%d]: negative delay or fail_after", i)
		}
	}
	return nil
}

func (s timerSpec) kind() (xtimer.Kind, error) {
	switch s.Kind {
	case "timeout":
		return xtimer.KindTimeout, nil
	case "interval", "":
		return xtimer.KindInterval, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s.Kind)
	}
}

func (s timerSpec) callback(logger xlog.Logger) xtimer.Callback {
	var n atomic.Int64
	return func(ctx context.Context) error {
		count := n.Add(1)
		logger.Debug(ctx, "timer fired", slog.Int64("count", count))
		if s.FailAfter == 0 || count < s.FailAfter {
			return nil
		}
		if s.Panic {
			panic(fmt.Sprintf("%s: invocation %d", errInjected, count))
		}
		return fmt.Errorf("%w: invocation %d", errInjected, count)
	}
}

// applyTimers 让注册表与配置一致：清理配置中已删除的定时器，创建或刷新其余定时器。
func applyTimers(reg *xtimer.Registry, specs []timerSpec, logger xlog.Logger) error {
	want := map[xtimer.Kind][]string{}
	for _, s := range specs {
		k, err := s.kind()
		if err != nil {
			return err
		}
		want[k] = append(want[k], s.ID)
	}
	for _, id := range reg.TimeoutIDs() {
		if !slices.Contains(want[xtimer.KindTimeout], id) {
			reg.ClearTimeout(id)
		}
	}
	for _, id := range slices.Concat(reg.IntervalIDs(), reg.PausedIDs()) {
		if !slices.Contains(want[xtimer.KindInterval], id) {
			reg.ClearInterval(id)
		}
	}

	for _, s := range specs {
		k, _ := s.kind()
		opts := []xtimer.TimerOption{xtimer.WithTimerID(s.ID), xtimer.WithRefresh(!s.Keep)}
		var err error
		if k == xtimer.KindTimeout {
			_, err = reg.CreateTimeout(s.callback(logger), s.Delay, opts...)
		} else {
			_, err = reg.CreateInterval(s.callback(logger), s.Delay, opts...)
		}
		if err != nil {
			return fmt.Errorf("create %s %q: %w", s.Kind, s.ID, err)
		}
	}
	return nil
}

// buildLogger 按全局参数构建日志
func buildLogger(level, format, file string, stderr io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().SetLevelString(level).SetFormat(format)
	if file != "" {
		b = b.SetRotation(file, xlog.RotationConfig{MaxSizeMB: 50, MaxBackups: 3, Compress: true})
	} else {
		b = b.SetOutput(stderr)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, &usageError{err: err}
	}
	return logger, cleanup, nil
}
