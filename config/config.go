// Package config 提供 rendezvous-server 的统一配置
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 由 cmd/rendezvous-server 从命令行参数填充。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Identity.SecretFile = "/var/lib/rendezvous/secret"
//	cfg.Transport.TCPPort = 8888
//	if err := cfg.Validate(); err != nil { ... }
package config

import (
	"fmt"

	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// Config 是 rendezvous-server 的完整配置结构
//
//   - Identity: 密钥文件
//   - Transport: TCP / WebSocket 监听端口与升级超时
//   - Security: WebSocket TLS 材料
//   - Log: 日志格式
//   - Rendezvous: 注册持久化与限流
//   - Ping: 存活探测
//   - Metrics: Prometheus 端点
type Config struct {
	Identity   IdentityConfig   `json:"identity"`
	Transport  TransportConfig  `json:"transport"`
	Security   SecurityConfig   `json:"security"`
	Log        LogConfig        `json:"log"`
	Rendezvous RendezvousConfig `json:"rendezvous"`
	Ping       PingConfig       `json:"ping"`
	Metrics    MetricsConfig    `json:"metrics"`
}

// NewConfig 创建默认配置
//
// 默认配置缺少密钥文件与 TCP 端口，必须由调用方补齐后才能通过 Validate。
func NewConfig() *Config {
	return &Config{
		Identity:   DefaultIdentityConfig(),
		Transport:  DefaultTransportConfig(),
		Security:   DefaultSecurityConfig(),
		Log:        DefaultLogConfig(),
		Rendezvous: DefaultRendezvousConfig(),
		Ping:       DefaultPingConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Rendezvous.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// ============================================================================
//                              监听地址
// ============================================================================

// ListenAddr 带名称的监听地址
//
// Name 用于启动失败时的错误上下文。
type ListenAddr struct {
	Name string
	Addr multiaddr.Multiaddr
}

// 监听器名称
const (
	ListenerTCP       = "listener"
	ListenerWebSocket = "websocket listener"
)

// ListenAddrs 返回需要绑定的地址
//
// TCP 总是 /ip4/0.0.0.0/tcp/<port>；启用 WebSocket 时追加
// /ip4/0.0.0.0/tcp/<port>/ws，tlsActive 为真时为 /wss。
func (c *Config) ListenAddrs(tlsActive bool) ([]ListenAddr, error) {
	tcp, err := multiaddr.NewMultiaddr(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", c.Transport.TCPPort))
	if err != nil {
		return nil, fmt.Errorf("tcp listen address: %w", err)
	}
	addrs := []ListenAddr{{Name: ListenerTCP, Addr: tcp}}

	if !c.Transport.EnableWebSocket {
		return addrs, nil
	}
	scheme := "ws"
	if tlsActive {
		scheme = "wss"
	}
	ws, err := multiaddr.NewMultiaddr(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d/%s", c.Transport.WebSocketPort, scheme))
	if err != nil {
		return nil, fmt.Errorf("websocket listen address: %w", err)
	}
	return append(addrs, ListenAddr{Name: ListenerWebSocket, Addr: ws}), nil
}
