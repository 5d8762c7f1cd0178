package swarm

import (
	"time"

	"github.com/dep2p/rendezvous-server/internal/core/metrics"
)

// Config Swarm 配置
type Config struct {
	// NegotiateTimeout 入站流协议协商超时
	NegotiateTimeout time.Duration

	// NewStreamTimeout 出站流打开与协商超时
	NewStreamTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		NegotiateTimeout: 10 * time.Second,
		NewStreamTimeout: 15 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.NegotiateTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.NewStreamTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Option Swarm 选项函数
type Option func(*Swarm) error

// WithConfig 设置配置
func WithConfig(config *Config) Option {
	return func(s *Swarm) error {
		if config == nil {
			return ErrInvalidConfig
		}
		if err := config.Validate(); err != nil {
			return err
		}
		s.config = config
		return nil
	}
}

// WithMetrics 设置指标，nil 表示不采集
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Swarm) error {
		s.metrics = m
		return nil
	}
}
