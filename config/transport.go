package config

import (
	"fmt"
	"time"
)

// 端口未设置
const PortUnset = -1

// TransportConfig 传输层配置
type TransportConfig struct {
	// TCPPort TCP 监听端口（0 表示由系统分配）
	TCPPort int `json:"tcp_port"`

	// EnableWebSocket 是否额外监听 WebSocket
	EnableWebSocket bool `json:"enable_websocket"`

	// WebSocketPort WebSocket 监听端口
	WebSocketPort int `json:"websocket_port"`

	// UpgradeTimeout 连接升级（协商 + 认证 + 多路复用）的总时限
	UpgradeTimeout time.Duration `json:"upgrade_timeout"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		TCPPort:        PortUnset,
		WebSocketPort:  PortUnset,
		UpgradeTimeout: 20 * time.Second,
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if c.TCPPort == PortUnset {
		return ErrMissingListenTCP
	}
	if err := validatePort(c.TCPPort); err != nil {
		return fmt.Errorf("tcp: %w", err)
	}
	if c.EnableWebSocket {
		if err := validatePort(c.WebSocketPort); err != nil {
			return fmt.Errorf("websocket: %w", err)
		}
	}
	if c.UpgradeTimeout <= 0 {
		return fmt.Errorf("%w: upgrade timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

func validatePort(p int) error {
	if p < 0 || p > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, p)
	}
	return nil
}
