// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持 lumberjack 按大小轮转
//
// 指标与追踪直接使用 OpenTelemetry API，由各组件自行埋点
// （例如 xtimer 的 xtimer.timer.* 指标与 xtimer.fire 跨度）。
//
// 设计原则：
//   - 自动从 context 中提取追踪信息与组件属性注入日志
//   - 支持运行时动态调整日志级别
package observability
