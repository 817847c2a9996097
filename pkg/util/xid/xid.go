package xid

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sony/sonyflake/v2"
)

var (
	// ErrInvalidConfig 生成器配置无效（如机器 ID 校验不通过）。
	ErrInvalidConfig = errors.New("xid: invalid config")

	// ErrOverTimeLimit 时间分量溢出，生成器无法继续生成 ID，不可恢复。
	ErrOverTimeLimit = errors.New("xid: time component overflow")

	// ErrInvalidID 字符串不是合法的 ID。
	ErrInvalidID = errors.New("xid: invalid id")

	// ErrNilGenerator 生成器为 nil 或未通过 NewGenerator 创建。
	ErrNilGenerator = errors.New("xid: nil generator (use NewGenerator to create)")
)

// Generator ID 生成器，所有方法并发安全。
type Generator struct {
	// generateID 默认为 sonyflake.NextID，测试中可替换。
	generateID func() (int64, error)
}

// NewGenerator 创建独立的 ID 生成器。
//
// 未传入 [WithMachineID] 时使用 [DefaultMachineID]。
func NewGenerator(opts ...Option) (*Generator, error) {
	cfg := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	machineIDFn := cfg.machineID
	if machineIDFn == nil {
		machineIDFn = DefaultMachineID
	}

	settings := sonyflake.Settings{
		MachineID: func() (int, error) {
			id, err := machineIDFn()
			return int(id), err
		},
	}
	if cfg.checkMachineID != nil {
		settings.CheckMachineID = func(id int) bool {
			return cfg.checkMachineID(uint16(id))
		}
	}

	sf, err := sonyflake.New(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Generator{generateID: sf.NextID}, nil
}

// New 生成新的 int64 ID。
func (g *Generator) New() (int64, error) {
	if g == nil || g.generateID == nil {
		return 0, ErrNilGenerator
	}
	id, err := g.generateID()
	if err != nil {
		if errors.Is(err, sonyflake.ErrOverTimeLimit) {
			return 0, fmt.Errorf("%w: %w", ErrOverTimeLimit, err)
		}
		return 0, err
	}
	return id, nil
}

// NewString 生成新的 base36 字符串 ID。
func (g *Generator) NewString() (string, error) {
	id, err := g.New()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 36), nil
}

var (
	defaultGen atomic.Pointer[Generator]
	initMu     sync.Mutex
)

// Default 返回全局生成器，首次调用时按默认配置创建。
func Default() (*Generator, error) {
	if gen := defaultGen.Load(); gen != nil {
		return gen, nil
	}
	initMu.Lock()
	defer initMu.Unlock()
	if gen := defaultGen.Load(); gen != nil {
		return gen, nil
	}
	gen, err := NewGenerator()
	if err != nil {
		return nil, err
	}
	defaultGen.Store(gen)
	return gen, nil
}

// NewString 使用全局生成器生成字符串 ID。
func NewString() (string, error) {
	gen, err := Default()
	if err != nil {
		return "", err
	}
	return gen.NewString()
}

// MustNewString 同 [NewString]，失败时 panic。仅用于接受 crash-fast 的场景。
func MustNewString() string {
	s, err := NewString()
	if err != nil {
		panic(err)
	}
	return s
}

// Parse 解析 base36 字符串 ID，非正值与语法错误均返回 [ErrInvalidID]。
func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return id, nil
}
