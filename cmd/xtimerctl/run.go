package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xtimer/pkg/config/xconf"
	"github.com/omeyang/xtimer/pkg/observability/xlog"
	"github.com/omeyang/xtimer/pkg/scheduling/xtimer"
)

func createRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "按配置文件运行定时器，退出前打印执行统计",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "定时器配置文件 (yaml/json)",
				Required: true,
			},
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "运行时长，0 表示直到收到信号",
			},
			&cli.StringFlag{
				Name:  "scheduler",
				Usage: "宿主调度器 (runtime/cron)",
				Value: "runtime",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "配置文件变更时热重载",
				Value: true,
			},
		},
		Action: cmdRun,
	}
}

func cmdRun(ctx context.Context, cmd *cli.Command) error {
	root := cmd.Root()
	logger, cleanup, err := buildLogger(cmd.String("log-level"), cmd.String("log-format"), cmd.String("log-file"), root.ErrWriter)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	cfg, err := xconf.New(cmd.String("config"))
	if err != nil {
		return &usageError{err: err}
	}
	rc, err := loadRunConfig(cfg)
	if err != nil {
		return &usageError{err: err}
	}
	applyLevel(logger, rc.Log.Level)

	sched, closeSched, err := newScheduler(cmd.String("scheduler"), logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeSched() }()

	reg := xtimer.New(xtimer.WithID("xtimerctl"), xtimer.WithLogger(logger), xtimer.WithScheduler(sched))
	defer func() { _ = reg.Close() }()

	if err := applyTimers(reg, rc.Timers, logger); err != nil {
		return err
	}
	logger.Info(ctx, "timers started",
		slog.Int("timeouts", len(reg.TimeoutIDs())),
		slog.Int("intervals", len(reg.IntervalIDs())))

	if d := cmd.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	if cmd.Bool("watch") {
		w, err := xconf.Watch(cfg, func(c xconf.Config, err error) {
			reloadTimers(gctx, c, err, reg, logger)
		})
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		g.Go(func() error { return w.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info(context.Background(), "shutting down")
	return printStats(root.Writer, reg)
}

func reloadTimers(ctx context.Context, cfg xconf.Config, err error, reg *xtimer.Registry, logger xlog.LoggerWithLevel) {
	if err != nil {
		logger.Warn(ctx, "config reload failed, keeping previous timers", xlog.Err(err))
		return
	}
	rc, err := loadRunConfig(cfg)
	if err != nil {
		logger.Warn(ctx, "invalid config, keeping previous timers", xlog.Err(err))
		return
	}
	applyLevel(logger, rc.Log.Level)
	if err := applyTimers(reg, rc.Timers, logger); err != nil {
		logger.Error(ctx, "apply timers failed", xlog.Err(err))
		return
	}
	logger.Info(ctx, "config reloaded", slog.Int("timers", len(rc.Timers)))
}

func applyLevel(logger xlog.Leveler, level string) {
	if level == "" {
		return
	}
	if lvl, err := xlog.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
}

func newScheduler(name string, logger xlog.Logger) (xtimer.Scheduler, func() error, error) {
	switch name {
	case "", "runtime":
		s := xtimer.NewRuntimeScheduler()
		return s, s.Close, nil
	case "cron":
		s := xtimer.NewCronScheduler(xtimer.WithCronLogger(logger))
		return s, s.Close, nil
	default:
		return nil, nil, newUsageError("unknown scheduler %q (want runtime or cron)", name)
	}
}

type statsReport struct {
	Registry string `json:"registry"`
	xtimer.Snapshot
	Active []string      `json:"active"`
	Paused []string      `json:"paused"`
	Timers []timerReport `json:"timers"`
}

type timerReport struct {
	ID        string `json:"id"`
	Fires     int64  `json:"fires"`
	Failures  int64  `json:"failures"`
	LastError string `json:"last_error,omitempty"`
}

func printStats(w io.Writer, reg *xtimer.Registry) error {
	stats := reg.Stats()
	report := statsReport{
		Registry: reg.ID(),
		Snapshot: stats.Snapshot(),
		Active:   append(reg.TimeoutIDs(), reg.IntervalIDs()...),
		Paused:   reg.PausedIDs(),
	}
	for _, ts := range stats.Timers() {
		tr := timerReport{ID: ts.ID, Fires: ts.Fires(), Failures: ts.Failures()}
		if err := ts.LastError(); err != nil {
			tr.LastError = err.Error()
		}
		report.Timers = append(report.Timers, tr)
	}
	slices.SortFunc(report.Timers, func(a, b timerReport) int { return strings.Compare(a.ID, b.ID) })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
