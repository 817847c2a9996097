// Package xid 生成短小、时序、抗碰撞的字符串 ID，基于 Sonyflake 算法实现。
//
// xtimer 用它为未显式命名的定时器和注册表实例生成标识。
//
// # ID 结构
//
// Sonyflake v2 默认位布局：
//
//	39 bits - 时间戳（10ms 为单位）
//	 8 bits - 序列号（同一时间单位内最多 256 个 ID）
//	16 bits - 机器 ID
//
// 字符串形式为 base36 编码，通常 11-13 个字符。
//
// # 快速开始
//
//	id, err := xid.NewString()
//	if err != nil {
//	    return err
//	}
//
// 需要独立实例（测试隔离、依赖注入）时使用 [NewGenerator]。
//
// # 机器 ID
//
// [DefaultMachineID] 依次尝试：XID_MACHINE_ID 环境变量、POD_NAME、HOSTNAME、
// os.Hostname()，后三者经 xxhash 折叠为 16 位；全部失败时使用随机值。
// 哈希与随机策略都存在碰撞可能，多副本部署请显式设置 XID_MACHINE_ID。
package xid
