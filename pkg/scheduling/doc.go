// Package scheduling 提供进程内定时调度相关的子包。
//
// 子包列表：
//   - xtimer: 按名称管理的定时器注册表，支持刷新、暂停恢复与失败隔离
//   - xtimer/xtimertest: 虚拟时钟调度器，用于确定性测试
//   - xtimer/xtimermock: mockgen 生成的 Scheduler mock
//
// 设计原则：
//   - 调用方只持有稳定的字符串 ID，不接触底层句柄
//   - 回调失败只影响自身，不会波及调度器与其他定时器
package scheduling
