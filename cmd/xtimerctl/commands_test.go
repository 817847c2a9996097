package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtimer/pkg/config/xconf"
	"github.com/omeyang/xtimer/pkg/observability/xlog"
	"github.com/omeyang/xtimer/pkg/scheduling/xtimer"
	"github.com/omeyang/xtimer/pkg/scheduling/xtimer/xtimertest"
)

func discardLogger(t *testing.T) xlog.LoggerWithLevel {
	t.Helper()
	logger, _, err := xlog.New().SetOutput(io.Discard).Build()
	require.NoError(t, err)
	return logger
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     runConfig
		wantErr bool
	}{
		{"empty", runConfig{}, false},
		{"valid", runConfig{Timers: []timerSpec{
			{ID: "a", Kind: "timeout", Delay: time.Second},
			{ID: "a", Kind: "interval", Delay: time.Second},
		}}, false},
		{"default_kind", runConfig{Timers: []timerSpec{{ID: "a"}}}, false},
		{"missing_id", runConfig{Timers: []timerSpec{{Kind: "timeout"}}}, true},
		{"duplicate", runConfig{Timers: []timerSpec{{ID: "a", Kind: "timeout"}, {ID: "a", Kind: "timeout"}}}, true},
		{"unknown_kind", runConfig{Timers: []timerSpec{{ID: "a", Kind: "cron"}}}, true},
		{"negative_delay", runConfig{Timers: []timerSpec{{ID: "a", Delay: -time.Second}}}, true},
		{"bad_level", runConfig{Log: logConfig{Level: "loud"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadRunConfig(t *testing.T) {
	cfg, err := xconf.NewFromBytes([]byte(`
log:
  level: warn
timers:
  - id: heartbeat
    kind: interval
    delay: 250ms
  - id: flaky
    kind: timeout
    delay: 1s
    fail_after: 1
    panic: true
`), xconf.FormatYAML)
	require.NoError(t, err)

	rc, err := loadRunConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "warn", rc.Log.Level)
	require.Len(t, rc.Timers, 2)
	assert.Equal(t, 250*time.Millisecond, rc.Timers[0].Delay)
	assert.Equal(t, int64(1), rc.Timers[1].FailAfter)
	assert.True(t, rc.Timers[1].Panic)
}

func TestTimerSpec_Callback(t *testing.T) {
	cb := timerSpec{ID: "x", FailAfter: 3}.callback(discardLogger(t))
	ctx := context.Background()
	assert.NoError(t, cb(ctx))
	assert.NoError(t, cb(ctx))
	assert.ErrorIs(t, cb(ctx), errInjected)
	assert.ErrorIs(t, cb(ctx), errInjected)

	never := timerSpec{ID: "y"}.callback(discardLogger(t))
	for range 10 {
		assert.NoError(t, never(ctx))
	}

	panicky := timerSpec{ID: "z", FailAfter: 1, Panic: true}.callback(discardLogger(t))
	assert.Panics(t, func() { _ = panicky(ctx) })
}

func TestApplyTimers_Reconciles(t *testing.T) {
	sched := xtimertest.NewManualScheduler()
	logger := discardLogger(t)
	reg := xtimer.New(xtimer.WithScheduler(sched), xtimer.WithLogger(logger))
	defer reg.Close()

	require.NoError(t, applyTimers(reg, []timerSpec{
		{ID: "keep", Kind: "interval", Delay: 10 * time.Millisecond, Keep: true},
		{ID: "drop", Kind: "interval", Delay: 10 * time.Millisecond},
		{ID: "once", Kind: "timeout", Delay: time.Hour},
	}, logger))
	assert.Equal(t, []string{"drop", "keep"}, reg.IntervalIDs())
	assert.Equal(t, []string{"once"}, reg.TimeoutIDs())

	sched.Advance(5 * time.Millisecond)
	require.NoError(t, applyTimers(reg, []timerSpec{
		{ID: "keep", Kind: "interval", Delay: 10 * time.Millisecond, Keep: true},
	}, logger))
	assert.Equal(t, []string{"keep"}, reg.IntervalIDs())
	assert.Empty(t, reg.TimeoutIDs())

	// keep=true 不刷新：仍按原相位在 10ms 触发
	sched.Advance(5 * time.Millisecond)
	ts := reg.Stats().Timer("keep")
	require.NotNil(t, ts)
	assert.Equal(t, int64(1), ts.Fires())
}

func TestApplyTimers_FailingTimerIsCleared(t *testing.T) {
	sched := xtimertest.NewManualScheduler()
	logger := discardLogger(t)
	reg := xtimer.New(xtimer.WithScheduler(sched), xtimer.WithLogger(logger))
	defer reg.Close()

	require.NoError(t, applyTimers(reg, []timerSpec{
		{ID: "flaky", Kind: "interval", Delay: 10 * time.Millisecond, FailAfter: 2},
	}, logger))
	sched.Advance(100 * time.Millisecond)

	assert.False(t, reg.HasInterval("flaky"))
	ts := reg.Stats().Timer("flaky")
	require.NotNil(t, ts)
	assert.Equal(t, int64(2), ts.Fires())
	assert.Equal(t, int64(1), ts.Failures())
}

func TestRun_PrintsStats(t *testing.T) {
	path := writeConfig(t, "timers.yaml", `
timers:
  - id: tick
    kind: interval
    delay: 5ms
  - id: later
    kind: timeout
    delay: 1h
`)
	var stdout, stderr bytes.Buffer
	code := run([]string{"xtimerctl", "--log-level", "error", "run", "-c", path, "--duration", "60ms", "--watch=false"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var report statsReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, "xtimerctl", report.Registry)
	assert.Positive(t, report.Fires)
	assert.Contains(t, report.Active, "later")
	require.NotEmpty(t, report.Timers)
	assert.Equal(t, "tick", report.Timers[0].ID)
}

func TestRun_CronSchedulerWithWatch(t *testing.T) {
	path := writeConfig(t, "timers.json", `{"timers":[{"id":"tick","delay":"5ms"}]}`)
	var stdout, stderr bytes.Buffer
	code := run([]string{"xtimerctl", "--log-level", "error", "run", "-c", path, "-d", "60ms", "--scheduler", "cron"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"registry": "xtimerctl"`)
}

func TestRun_UsageErrors(t *testing.T) {
	good := writeConfig(t, "ok.yaml", "timers: []\n")
	tests := []struct {
		name string
		args []string
	}{
		{"missing_file", []string{"run", "-c", filepath.Join(t.TempDir(), "nope.yaml")}},
		{"bad_extension", []string{"run", "-c", writeConfig(t, "t.toml", "")}},
		{"invalid_timers", []string{"run", "-c", writeConfig(t, "bad.yaml", "timers:\n  - kind: timeout\n")}},
		{"unknown_scheduler", []string{"run", "-c", good, "--scheduler", "quartz"}},
		{"bad_log_format", []string{"--log-format", "xml", "run", "-c", good}},
		{"unknown_scenario", []string{"demo", "--scenario", "chaos"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(append([]string{"xtimerctl"}, tt.args...), &stdout, &stderr)
			assert.Equal(t, 2, code, stderr.String())
			assert.Contains(t, stderr.String(), "参数错误")
		})
	}
}

func TestDemo_AllScenarios(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"xtimerctl", "--log-level", "error", "demo"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "refresh: second fired")
	assert.Contains(t, out, "refresh: replaced timer never fired")
	assert.Contains(t, out, "pause: paused=true, no ticks while paused")
	assert.Contains(t, out, "pause: resumed with recorded callback and period")
	assert.Contains(t, out, `fault: xtimer: interval "flaky" failed: injected failure (injected=true)`)
	assert.Contains(t, out, "fault: flaky cleared=true, healthy still running=true")
}

func TestDemo_CronScheduler(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"xtimerctl", "--log-level", "error", "demo", "--scenario", "fault", "--scheduler", "cron"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "fault: flaky cleared=true")
	assert.NotContains(t, stdout.String(), "refresh:")
}
