// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xid: 基于 sonyflake 的分布式 ID 生成，base36 短字符串
package util
