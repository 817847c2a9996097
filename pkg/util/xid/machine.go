package xid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// 测试注入点
var (
	osHostname = os.Hostname
	randRead   = rand.Read
)

const (
	// EnvMachineID 直接指定机器 ID 的环境变量（0-65535）
	EnvMachineID = "XID_MACHINE_ID"

	// EnvPodName K8s Pod 名称环境变量（Downward API 注入）
	EnvPodName = "POD_NAME"

	// EnvHostname 主机名环境变量
	EnvHostname = "HOSTNAME"
)

// DefaultMachineID 获取机器 ID，按以下优先级尝试：
//
//  1. XID_MACHINE_ID 环境变量（0-65535）
//  2. POD_NAME 环境变量的哈希值
//  3. HOSTNAME 环境变量的哈希值
//  4. os.Hostname() 的哈希值
//  5. 随机值
//
// 仅 XID_MACHINE_ID 非法时返回错误；其余情况总能得到一个 ID。
func DefaultMachineID() (uint16, error) {
	if s := os.Getenv(EnvMachineID); s != "" {
		id, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("xid: invalid %s value %q: %w", EnvMachineID, s, err)
		}
		return uint16(id), nil
	}

	for _, env := range []string{EnvPodName, EnvHostname} {
		if v := os.Getenv(env); v != "" {
			return hashToMachineID(v), nil
		}
	}

	if hostname, err := osHostname(); err == nil && hostname != "" {
		return hashToMachineID(hostname), nil
	}

	return randomMachineID()
}

// hashToMachineID 将字符串哈希为 16 位机器 ID，64 位哈希按 16 位分段异或折叠。
func hashToMachineID(s string) uint16 {
	h := xxhash.Sum64String(s)
	return uint16(h) ^ uint16(h>>16) ^ uint16(h>>32) ^ uint16(h>>48)
}

func randomMachineID() (uint16, error) {
	var b [2]byte
	if _, err := randRead(b[:]); err != nil {
		return 0, fmt.Errorf("xid: random machine id: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}
