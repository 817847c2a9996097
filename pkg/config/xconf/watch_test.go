package xconf

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xtimer/pkg/scheduling/xtimer"
)

func TestWatch_ReloadsAfterDebounce(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeFile(t, "app.yaml", "level: info\n")
	cfg, err := New(path)
	require.NoError(t, err)

	var reloads atomic.Int64
	w, err := Watch(cfg, func(_ Config, err error) {
		if err == nil {
			reloads.Add(1)
		}
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// 连续写入落在同一个去抖窗口内
	for _, level := range []string{"warn", "error", "debug"} {
		require.NoError(t, os.WriteFile(path, []byte("level: "+level+"\n"), 0o600))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return cfg.Client().String("level") == "debug"
	}, 2*time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, reloads.Load(), int64(2), "burst of writes is coalesced")

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, w.Close())
}

func TestWatch_ReportsReloadFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeFile(t, "app.json", `{"level":"info"}`)
	cfg, err := New(path)
	require.NoError(t, err)

	errs := make(chan error, 8)
	w, err := Watch(cfg, func(_ Config, err error) {
		if err != nil {
			errs <- err
		}
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()
	go func() { _ = w.Run(context.Background()) }()

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrParseFailed)
	case <-time.After(2 * time.Second):
		t.Fatal("reload failure not reported")
	}
	assert.Equal(t, "info", cfg.Client().String("level"))
}

func TestWatch_SharedRegistry(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := xtimer.New()
	defer reg.Close()

	path := writeFile(t, "app.yaml", "a: 1\n")
	cfg, err := New(path)
	require.NoError(t, err)

	w, err := Watch(cfg, nil, WithTimerRegistry(reg), WithDebounce(time.Hour))
	require.NoError(t, err)
	go func() { _ = w.Run(context.Background()) }()

	require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o600))
	require.Eventually(t, func() bool {
		return len(reg.TimeoutIDs()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"xconf:reload:" + path}, reg.TimeoutIDs())

	// Close 取消挂起的重载，但不关闭外部注册表
	require.NoError(t, w.Close())
	assert.Empty(t, reg.TimeoutIDs())
	_, err = reg.CreateTimeout(func(context.Context) error { return nil }, time.Hour)
	assert.NoError(t, err)
}

func TestWatch_FromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte("a: 1"), FormatYAML)
	require.NoError(t, err)
	_, err = Watch(cfg, nil)
	assert.ErrorIs(t, err, ErrNotReloadable)
}

func TestWatch_CloseIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg, err := New(writeFile(t, "app.yaml", "a: 1\n"))
	require.NoError(t, err)
	w, err := Watch(cfg, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.NoError(t, <-done)
}
