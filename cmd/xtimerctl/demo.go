package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtimer/pkg/observability/xlog"
	"github.com/omeyang/xtimer/pkg/scheduling/xtimer"
)

// demoWait 单个演示步骤的最长等待时间
const demoWait = 2 * time.Second

var errDemoTimeout = errors.New("demo step timed out")

type scenario struct {
	name string
	run  func(ctx context.Context, w io.Writer, reg *xtimer.Registry) error
}

var scenarios = []scenario{
	{"refresh", demoRefresh},
	{"pause", demoPause},
	{"fault", demoFault},
}

func createDemoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "演示刷新、暂停恢复与失败隔离",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "scenario",
				Usage: "场景 (all/refresh/pause/fault)",
				Value: "all",
			},
			&cli.StringFlag{
				Name:  "scheduler",
				Usage: "宿主调度器 (runtime/cron)",
				Value: "runtime",
			},
		},
		Action: cmdDemo,
	}
}

func cmdDemo(ctx context.Context, cmd *cli.Command) error {
	root := cmd.Root()
	logger, cleanup, err := buildLogger(cmd.String("log-level"), cmd.String("log-format"), cmd.String("log-file"), root.ErrWriter)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	selected := cmd.String("scenario")
	var ran int
	for _, sc := range scenarios {
		if selected != "all" && selected != sc.name {
			continue
		}
		ran++
		if err := runScenario(ctx, root.Writer, sc, cmd.String("scheduler"), logger); err != nil {
			return fmt.Errorf("%s: %w", sc.name, err)
		}
	}
	if ran == 0 {
		return newUsageError("unknown scenario %q", selected)
	}
	return nil
}

// runScenario 每个场景使用独立的注册表与调度器
func runScenario(ctx context.Context, w io.Writer, sc scenario, schedName string, logger xlog.Logger) error {
	sched, closeSched, err := newScheduler(schedName, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeSched() }()

	reg := xtimer.New(xtimer.WithID("demo-"+sc.name), xtimer.WithScheduler(sched), xtimer.WithLogger(logger))
	defer func() { _ = reg.Close() }()
	return sc.run(ctx, w, reg)
}

func demoRefresh(ctx context.Context, w io.Writer, reg *xtimer.Registry) error {
	fired := make(chan string, 2)
	for _, name := range []string{"first", "second"} {
		if _, err := reg.CreateTimeout(func(context.Context) error {
			fired <- name
			return nil
		}, 30*time.Millisecond, xtimer.WithTimerID("save")); err != nil {
			return err
		}
	}

	select {
	case name := <-fired:
		fmt.Fprintf(w, "refresh: %s fired\n", name)
	case <-time.After(demoWait):
		return errDemoTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case name := <-fired:
		return fmt.Errorf("replaced timer %s fired", name)
	case <-time.After(60 * time.Millisecond):
	}
	fmt.Fprintln(w, "refresh: replaced timer never fired")
	return nil
}

func demoPause(ctx context.Context, w io.Writer, reg *xtimer.Registry) error {
	var ticks atomic.Int64
	tick := func(context.Context) error {
		ticks.Add(1)
		return nil
	}
	if _, err := reg.CreateInterval(tick, 10*time.Millisecond, xtimer.WithTimerID("poll")); err != nil {
		return err
	}
	if err := waitUntil(ctx, func() bool { return ticks.Load() >= 2 }); err != nil {
		return err
	}

	reg.PauseInterval("poll")
	// 暂停时可能有一次回调正在执行，让它先结束
	time.Sleep(5 * time.Millisecond)
	before := ticks.Load()
	time.Sleep(40 * time.Millisecond)
	if after := ticks.Load(); after != before {
		return fmt.Errorf("%d ticks while paused", after-before)
	}
	fmt.Fprintf(w, "pause: paused=%t, no ticks while paused\n", reg.IsPaused("poll"))

	// 不传回调与周期：沿用暂停时记录的参数
	reg.ResumeInterval("poll", nil, 0)
	if err := waitUntil(ctx, func() bool { return ticks.Load() > before }); err != nil {
		return err
	}
	fmt.Fprintln(w, "pause: resumed with recorded callback and period")
	reg.ClearInterval("poll")
	return nil
}

func demoFault(ctx context.Context, w io.Writer, reg *xtimer.Registry) error {
	handled := make(chan error, 1)
	_, err := reg.CreateInterval(func(context.Context) error {
		return errInjected
	}, 10*time.Millisecond,
		xtimer.WithTimerID("flaky"),
		xtimer.WithOnError(func(err error, _ string) {
			select {
			case handled <- err:
			default:
			}
		}))
	if err != nil {
		return err
	}

	var healthy atomic.Int64
	if _, err := reg.CreateInterval(func(context.Context) error {
		healthy.Add(1)
		return nil
	}, 10*time.Millisecond, xtimer.WithTimerID("healthy")); err != nil {
		return err
	}

	select {
	case err := <-handled:
		fmt.Fprintf(w, "fault: %v (injected=%t)\n", err, errors.Is(err, errInjected))
	case <-time.After(demoWait):
		return errDemoTimeout
	case <-ctx.Done():
		return ctx.Err()
	}

	base := healthy.Load()
	if err := waitUntil(ctx, func() bool { return healthy.Load() >= base+2 }); err != nil {
		return err
	}
	fmt.Fprintf(w, "fault: flaky cleared=%t, healthy still running=%t\n",
		!reg.HasInterval("flaky"), reg.HasInterval("healthy"))
	return nil
}

func waitUntil(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(demoWait)
	for !cond() {
		select {
		case <-ticker.C:
		case <-deadline:
			return errDemoTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
