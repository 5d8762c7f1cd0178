// Package logger 提供统一的日志接口
//
// 支持通过环境变量配置日志级别：
//   - RENDEZVOUS_LOG_LEVEL: 设置日志级别，支持按子系统配置
//     格式: 子系统=级别,子系统=级别,默认级别
//     示例: core/swarm=debug,core/upgrader=warn,info
//   - RENDEZVOUS_LOG_FORMAT: 日志格式 (text 或 json)，命令行 --json 优先
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// 环境变量名
const (
	envLogLevel  = "RENDEZVOUS_LOG_LEVEL"
	envLogFormat = "RENDEZVOUS_LOG_FORMAT"
)

// timeLayout 文本日志的时间格式（本地时间）
const timeLayout = "2006-01-02 15:04:05"

// Config 日志配置
//
// 进程启动时构造一次并传给 Setup，生命周期与进程相同。
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// SubsystemLevels 各子系统的日志级别
	SubsystemLevels map[string]slog.Level

	// Format 输出格式
	Format LogFormat

	// NoTimestamp 不输出时间戳（journald 等已经自带时间戳的场景）
	NoTimestamp bool

	// AddSource 是否添加源码位置
	AddSource bool

	// Output 输出目标，默认 stderr
	Output io.Writer
}

// DefaultConfig 返回默认配置：info 级别、文本格式、输出到 stderr
func DefaultConfig() Config {
	return Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		Format:          FormatText,
		Output:          os.Stderr,
	}
}

// LevelForSubsystem 获取指定子系统的日志级别
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	if level, ok := c.SubsystemLevels[subsystem]; ok {
		return level
	}
	return c.DefaultLevel
}

// ApplyEnv 用环境变量覆盖配置
func (c *Config) ApplyEnv() {
	if c.SubsystemLevels == nil {
		c.SubsystemLevels = make(map[string]slog.Level)
	}
	if levelStr := os.Getenv(envLogLevel); levelStr != "" {
		parseLevelConfig(c, levelStr)
	}
	if formatStr := os.Getenv(envLogFormat); formatStr != "" && c.Format == FormatText {
		if strings.EqualFold(formatStr, "json") {
			c.Format = FormatJSON
		}
	}
}

// parseLevelConfig 解析日志级别配置字符串
// 格式: subsystem=level,subsystem=level,defaultLevel
func parseLevelConfig(cfg *Config, levelStr string) {
	for _, part := range strings.Split(levelStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "=") {
			kv := strings.SplitN(part, "=", 2)
			subsystem := strings.TrimSpace(kv[0])
			if level, ok := parseLevel(strings.TrimSpace(kv[1])); ok {
				cfg.SubsystemLevels[subsystem] = level
			}
			continue
		}

		if level, ok := parseLevel(part); ok {
			cfg.DefaultLevel = level
		}
	}
}

// parseLevel 解析日志级别名称
func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
