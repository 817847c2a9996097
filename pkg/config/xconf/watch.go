package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/omeyang/xtimer/pkg/scheduling/xtimer"
)

// WatchCallback 重载回调，err 非 nil 表示重载失败（旧配置保持不变）或监视出错。
type WatchCallback func(cfg Config, err error)

// Watcher 配置文件监视器。
type Watcher struct {
	cfg      *koanfConfig
	fs       *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration

	timers     *xtimer.Registry
	ownsTimers bool
	timerID    string

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

type watchOptions struct {
	debounce time.Duration
	timers   *xtimer.Registry
}

// WatchOption 监视器选项
type WatchOption func(*watchOptions)

// WithDebounce 设置去抖时间，默认 100ms。窗口内的多次变更只触发一次重载。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithTimerRegistry 使用外部定时器注册表承载去抖定时器。
// 不设置时监视器创建并持有自己的注册表。
func WithTimerRegistry(reg *xtimer.Registry) WatchOption {
	return func(o *watchOptions) {
		if reg != nil {
			o.timers = reg
		}
	}
}

// Watch 创建配置文件监视器，需调用 [Watcher.Run] 开始监视。
//
// 监视的是配置文件所在目录而不是文件本身：编辑器保存时常先删除再创建，
// 直接监视文件会丢失后续事件。
//
//	w, err := xconf.Watch(cfg, func(c xconf.Config, err error) {
//	    if err != nil {
//	        xlog.Warn(ctx, "config reload failed", xlog.Err(err))
//	        return
//	    }
//	    applyLevel(c)
//	})
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	go w.Run(ctx)
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok {
		return nil, fmt.Errorf("xconf: cannot watch %T", cfg)
	}
	if kc.path == "" {
		return nil, ErrNotReloadable
	}

	o := &watchOptions{debounce: 100 * time.Millisecond}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(kc.path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch directory %s: %w", dir, err), fsw.Close())
	}

	w := &Watcher{
		cfg:      kc,
		fs:       fsw,
		callback: callback,
		debounce: o.debounce,
		timers:   o.timers,
		timerID:  "xconf:reload:" + kc.path,
		done:     make(chan struct{}),
	}
	if w.timers == nil {
		w.timers = xtimer.New(xtimer.WithID("xconf-watch"))
		w.ownsTimers = true
	}
	return w, nil
}

// Run 阻塞处理文件事件，直到 ctx 取消或 Close 被调用，正常停止时返回 nil。
func (w *Watcher) Run(ctx context.Context) error {
	filename := filepath.Base(w.cfg.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, filename)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.notify(fmt.Errorf("xconf: watch error: %w", err))
		}
	}
}

// handleEvent 只关心目标文件的写入、创建与改名（原子写入）事件。
func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	// 同一 ID 重复创建即刷新：窗口内的后续事件把重载推迟到最后一次事件之后
	_, err := w.timers.CreateTimeout(w.reload, w.debounce, xtimer.WithTimerID(w.timerID))
	if err != nil && !errors.Is(err, xtimer.ErrClosed) {
		w.notify(fmt.Errorf("xconf: schedule reload: %w", err))
	}
}

func (w *Watcher) reload(context.Context) error {
	select {
	case <-w.done:
		return nil
	default:
	}
	w.notify(w.cfg.Reload())
	return nil
}

func (w *Watcher) notify(err error) {
	if w.callback != nil {
		w.callback(w.cfg, err)
	}
}

// Close 停止监视并取消未执行的重载，重复调用安全。
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		if w.ownsTimers {
			w.closeErr = w.timers.Close()
		} else {
			w.timers.ClearTimeout(w.timerID)
		}
		w.closeErr = errors.Join(w.closeErr, w.fs.Close())
	})
	return w.closeErr
}
