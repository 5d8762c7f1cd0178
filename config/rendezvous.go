package config

import (
	"fmt"
	"net"
)

// RendezvousConfig rendezvous 服务端配置
type RendezvousConfig struct {
	// RegistrationDB 注册记录持久化目录（BadgerDB），空表示仅保存在内存
	RegistrationDB string `json:"registration_db,omitempty"`

	// MaxRegisterRate 单个节点每秒允许的 REGISTER 次数，0 表示不限制
	MaxRegisterRate float64 `json:"max_register_rate"`
}

// DefaultRendezvousConfig 返回默认配置
func DefaultRendezvousConfig() RendezvousConfig {
	return RendezvousConfig{}
}

// Validate 验证配置
func (c RendezvousConfig) Validate() error {
	if c.MaxRegisterRate < 0 {
		return fmt.Errorf("%w: max register rate must not be negative", ErrInvalidConfig)
	}
	return nil
}

// PingConfig 存活探测配置
type PingConfig struct {
	// Enable 是否组合 ping 行为
	Enable bool `json:"enable"`
}

// DefaultPingConfig 返回默认配置（禁用）
func DefaultPingConfig() PingConfig {
	return PingConfig{}
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// ListenAddr Prometheus 端点地址（host:port），空表示不启用
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultMetricsConfig 返回默认配置（不启用）
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{}
}

// Validate 验证配置
func (c MetricsConfig) Validate() error {
	if c.ListenAddr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("%w: metrics listen address: %v", ErrInvalidConfig, err)
	}
	return nil
}
