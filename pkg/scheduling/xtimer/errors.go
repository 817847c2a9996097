package xtimer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCallback 回调为 nil，在任何调度发生前同步返回。
	ErrInvalidCallback = errors.New("xtimer: callback must not be nil")

	// ErrCallbackFailure 回调执行失败，只会交给 ErrorHandler，不会返回给调用方。
	ErrCallbackFailure = errors.New("xtimer: callback failed")

	// ErrClosed 注册表已关闭。
	ErrClosed = errors.New("xtimer: registry closed")
)

// CallbackError 记录一次回调失败。
//
//	errors.Is(err, xtimer.ErrCallbackFailure) // true
//	errors.Is(err, originalErr)               // true（回调返回的错误）
type CallbackError struct {
	Kind     Kind
	TimerID  string
	Err      error
	Panicked bool
}

// Error 实现 error 接口
func (e *CallbackError) Error() string {
	verb := "failed"
	if e.Panicked {
		verb = "panicked"
	}
	return fmt.Sprintf("xtimer: %s %q %s: %v", e.Kind, e.TimerID, verb, e.Err)
}

// Unwrap 同时暴露 ErrCallbackFailure 与原始错误
func (e *CallbackError) Unwrap() []error {
	return []error{ErrCallbackFailure, e.Err}
}

// panicError 回调 panic 的值
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// Unwrap 当 panic 值本身是 error 时暴露它
func (p *panicError) Unwrap() error {
	if err, ok := p.value.(error); ok {
		return err
	}
	return nil
}
