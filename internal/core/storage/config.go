package storage

import (
	"fmt"
	"time"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/storage/engine"
)

// Config 注册记录数据库配置
type Config struct {
	// Path 数据库目录，空表示不持久化
	Path string

	SyncWrites     bool
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// ConfigFromUnified 从进程配置读取 --registration-db
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg != nil {
		c.Path = cfg.Rendezvous.RegistrationDB
	}
	return c
}

// Enabled 是否启用持久化
func (c Config) Enabled() bool {
	return c.Path != ""
}

// Validate 检查路径，并把过小的 GC 参数拉回合理范围
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: empty path", engine.ErrInvalidConfig)
	}
	if c.GCInterval > 0 && c.GCInterval < time.Minute {
		c.GCInterval = time.Minute
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		c.GCDiscardRatio = 0.5
	}
	return nil
}

// ToEngineConfig 转换为引擎配置
func (c Config) ToEngineConfig() *engine.Config {
	ec := engine.DefaultConfig(c.Path)
	ec.SyncWrites = c.SyncWrites
	ec.GCInterval = c.GCInterval
	ec.GCDiscardRatio = c.GCDiscardRatio
	ec.Logger = log.With("component", "badger")
	return ec
}
