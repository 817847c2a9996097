package xid

// options 内部配置结构
type options struct {
	machineID      func() (uint16, error)
	checkMachineID func(uint16) bool
}

// Option 配置选项函数
type Option func(*options)

// WithMachineID 设置自定义机器 ID 获取函数。
//
// 默认使用 [DefaultMachineID]。
func WithMachineID(fn func() (uint16, error)) Option {
	return func(o *options) {
		o.machineID = fn
	}
}

// WithCheckMachineID 设置机器 ID 校验函数，返回 false 时 NewGenerator 失败。
func WithCheckMachineID(fn func(uint16) bool) Option {
	return func(o *options) {
		o.checkMachineID = fn
	}
}
