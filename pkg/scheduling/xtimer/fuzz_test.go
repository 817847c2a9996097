package xtimer_test

import (
	"context"
	"errors"
	"io"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/omeyang/xtimer/pkg/observability/xlog"
	"github.com/omeyang/xtimer/pkg/scheduling/xtimer"
	"github.com/omeyang/xtimer/pkg/scheduling/xtimer/xtimertest"
)

// FuzzRegistryOperations 随机操作序列下校验注册表不变量：
// 活跃 interval 与暂停记录互斥，且每个活跃条目恰好对应一个未结束的调度。
func FuzzRegistryOperations(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8})
	f.Add([]byte{1, 1, 4, 4, 5, 5, 1, 8, 7})
	f.Add([]byte{0, 0x10, 0x21, 0x32, 0x43, 0x54, 0x65, 0x76, 0x87, 0x98})
	f.Add([]byte{9, 9, 9, 1, 4, 1, 5})

	f.Fuzz(func(t *testing.T, ops []byte) {
		logger, _, err := xlog.New().SetOutput(io.Discard).Build()
		if err != nil {
			t.Fatal(err)
		}
		sched := xtimertest.NewManualScheduler()
		reg := xtimer.New(
			xtimer.WithScheduler(sched),
			xtimer.WithLogger(logger),
			xtimer.WithErrorHandler(func(error, string) {}),
		)
		defer reg.Close()

		ok := func(context.Context) error { return nil }
		fail := func(context.Context) error { return errors.New("fuzz") }

		for _, op := range ops {
			id := "id" + strconv.Itoa(int(op>>4)%4)
			d := time.Duration(op>>4) * time.Millisecond
			var err error
			switch op % 10 {
			case 0:
				_, err = reg.CreateTimeout(ok, d, xtimer.WithTimerID(id))
			case 1:
				_, err = reg.CreateInterval(ok, d, xtimer.WithTimerID(id))
			case 2:
				_, err = reg.CreateInterval(fail, d, xtimer.WithTimerID(id), xtimer.WithRefresh(false))
			case 3:
				reg.ClearTimeout(id)
			case 4:
				reg.PauseInterval(id)
			case 5:
				reg.ResumeInterval(id, nil, 0)
			case 6:
				reg.ClearInterval(id)
			case 7:
				sched.Advance(d + time.Millisecond)
			case 8:
				reg.ClearAll()
			case 9:
				_, err = reg.CreateTimeout(fail, d, xtimer.WithTimerID(id), xtimer.WithRefresh(false))
			}
			if err != nil {
				t.Fatalf("op %d: %v", op, err)
			}

			intervals := reg.IntervalIDs()
			for _, p := range reg.PausedIDs() {
				if slices.Contains(intervals, p) {
					t.Fatalf("id %q is both active and paused", p)
				}
			}
			if want := len(reg.TimeoutIDs()) + len(intervals); sched.Pending() != want {
				t.Fatalf("pending schedules = %d, registry entries = %d", sched.Pending(), want)
			}
		}
	})
}
