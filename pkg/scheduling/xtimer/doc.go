// Package xtimer 提供按名称管理的定时器注册表。
//
// # 概述
//
// xtimer 在宿主调度原语（一次性调度、周期调度、按句柄取消）之上维护一张注册表，
// 调用方用稳定的字符串 ID 创建、刷新、暂停、恢复和取消定时器，
// 无需自己保存底层句柄。回调失败（返回 error 或 panic）会被隔离：
// 错误交给错误处理器，出错的定时器随即被清理，不会影响其他定时器。
//
// # 核心概念
//
//   - Registry: 注册表，维护 timeout、interval、paused 三张表
//   - Scheduler: 宿主调度原语，默认 [RuntimeScheduler]，也可用 [CronScheduler]
//   - Callback: 定时器回调，返回 error 或 panic 视为失败
//   - ErrorHandler: 失败回调，单个定时器可覆盖注册表级默认值
//
// # 快速开始
//
//	reg := xtimer.New(xtimer.WithID("billing"))
//	defer reg.Close()
//
//	// 刷新语义：同一 ID 再次创建会替换旧定时器
//	reg.CreateTimeout(flush, 50*time.Millisecond, xtimer.WithTimerID("flush"))
//
//	id, err := reg.CreateInterval(poll, time.Second)
//	reg.PauseInterval(id)
//	reg.ResumeInterval(id, poll, time.Second)
//
// # 暂停与恢复
//
// 暂停只记录"该 ID 已暂停"，并不保留调度进度。[Registry.ResumeInterval]
// 按调用方给出的回调和周期重新创建定时器；回调为 nil 或周期非正时，
// 沿用暂停时记录的参数。调用方传入与暂停前不同的参数是允许的，注册表不做校验。
//
// # 失败隔离
//
// 回调失败后：先调用单定时器 OnError（若有），否则调用注册表级错误处理器；
// 无论处理器结果如何，随后清理该 ID 在 interval 与 timeout 两个命名空间中的条目。
// 失败的周期定时器因此只会失败一次，不会自动重试。
//
// # 并发
//
// Registry 的所有方法并发安全。回调和错误处理器执行时不持有注册表锁，
// 回调内部可以安全地清理或刷新自身。[RuntimeScheduler] 在单个分发协程上
// 依次执行回调，一个回调结束前不会开始下一个。
package xtimer
