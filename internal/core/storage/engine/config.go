package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config 存储引擎配置
//
// 注册记录很小（一条签名信封加几个整数），表和缓存的默认值
// 比 BadgerDB 自带的小得多。
type Config struct {
	// Path 数据目录（必需）
	Path string

	// SyncWrites 每次提交都落盘
	SyncWrites bool

	// Logger BadgerDB 内部日志的去向，nil 表示丢弃
	Logger *slog.Logger

	MemTableSize     int64
	ValueLogFileSize int64
	BlockCacheSize   int64

	// GCInterval 值日志 GC 间隔，0 表示不运行
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig 返回 path 处的默认配置
func DefaultConfig(path string) *Config {
	return &Config{
		Path:             path,
		MemTableSize:     8 << 20,
		ValueLogFileSize: 64 << 20,
		BlockCacheSize:   16 << 20,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch {
	case c.Path == "":
		return fmt.Errorf("%w: empty path", ErrInvalidConfig)
	case c.MemTableSize < 1<<20:
		return fmt.Errorf("%w: memtable size %d below 1MB", ErrInvalidConfig, c.MemTableSize)
	case c.ValueLogFileSize < 1<<20:
		return fmt.Errorf("%w: value log file size %d below 1MB", ErrInvalidConfig, c.ValueLogFileSize)
	case c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1:
		return fmt.Errorf("%w: gc discard ratio %v", ErrInvalidConfig, c.GCDiscardRatio)
	}
	return nil
}

// PrepareDir 创建数据目录并把 Path 改写为绝对路径
func (c *Config) PrepareDir() error {
	abs, err := filepath.Abs(c.Path)
	if err != nil {
		return err
	}
	c.Path = abs
	return os.MkdirAll(abs, 0o755)
}
