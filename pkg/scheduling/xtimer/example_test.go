package xtimer_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omeyang/xtimer/pkg/scheduling/xtimer"
	"github.com/omeyang/xtimer/pkg/scheduling/xtimer/xtimertest"
)

func Example() {
	sched := xtimertest.NewManualScheduler()
	reg := xtimer.New(xtimer.WithScheduler(sched))
	defer reg.Close()

	// 同一 ID 再次创建会替换尚未触发的定时器
	for _, name := range []string{"first", "second"} {
		_, _ = reg.CreateTimeout(func(context.Context) error {
			fmt.Println("fired:", name)
			return nil
		}, 50*time.Millisecond, xtimer.WithTimerID("save"))
	}

	sched.Advance(50 * time.Millisecond)
	// Output:
	// fired: second
}

func ExampleRegistry_PauseInterval() {
	sched := xtimertest.NewManualScheduler()
	reg := xtimer.New(xtimer.WithScheduler(sched))
	defer reg.Close()

	tick := func(context.Context) error {
		fmt.Println("tick at", sched.Now())
		return nil
	}
	_, _ = reg.CreateInterval(tick, 10*time.Millisecond, xtimer.WithTimerID("poll"))
	sched.Advance(25 * time.Millisecond)

	reg.PauseInterval("poll")
	fmt.Println("paused:", reg.IsPaused("poll"))
	sched.Advance(30 * time.Millisecond)

	reg.ResumeInterval("poll", tick, 10*time.Millisecond)
	sched.Advance(20 * time.Millisecond)
	// Output:
	// tick at 10ms
	// tick at 20ms
	// paused: true
	// tick at 65ms
	// tick at 75ms
}

func ExampleWithOnError() {
	sched := xtimertest.NewManualScheduler()
	reg := xtimer.New(xtimer.WithScheduler(sched))
	defer reg.Close()

	errUpstream := errors.New("upstream unavailable")
	_, _ = reg.CreateInterval(func(context.Context) error {
		return errUpstream
	}, 10*time.Millisecond,
		xtimer.WithTimerID("sync"),
		xtimer.WithOnError(func(err error, id string) {
			fmt.Println(id, errors.Is(err, errUpstream), errors.Is(err, xtimer.ErrCallbackFailure))
		}))

	sched.Advance(100 * time.Millisecond)
	fmt.Println("still scheduled:", reg.HasInterval("sync"))
	// Output:
	// sync true true
	// still scheduled: false
}
