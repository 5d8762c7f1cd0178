// Package logger 提供 rendezvous-server 的统一日志系统
//
// 基于标准库 log/slog，支持：
//   - 按子系统配置日志级别
//   - 文本 / JSON 两种输出格式
//   - 启动时通过 Setup 一次性注入配置
//
// 使用示例:
//
//	var log = logger.Logger("core/swarm")
//
//	func foo() {
//	    log.Info("New listening address reported", "address", addr)
//	}
package logger

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// state 当前生效的日志配置
type state struct {
	cfg Config
	gen uint64
}

func (s *state) levelFor(subsystem string) slog.Level {
	return s.cfg.LevelForSubsystem(subsystem)
}

var (
	current atomic.Pointer[state]

	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	genCounter atomic.Uint64
)

func init() {
	current.Store(&state{cfg: DefaultConfig()})
}

func loadState() *state {
	return current.Load()
}

// Setup 应用启动配置
//
// 应在进程入口尽早调用一次；已创建的 Logger 会在下一条日志时切换到新配置。
func Setup(cfg Config) {
	def := DefaultConfig()
	if cfg.Output == nil {
		cfg.Output = def.Output
	}
	if cfg.SubsystemLevels == nil {
		cfg.SubsystemLevels = def.SubsystemLevels
	}
	current.Store(&state{cfg: cfg, gen: genCounter.Add(1)})
	slog.SetDefault(Logger("rendezvous"))
}

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用会返回相同的 Logger 实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	l := slog.New(newSubsystemHandler(subsystem, nil))
	actual, _ := loggers.LoadOrStore(subsystem, l)
	return actual.(*slog.Logger)
}

// Discard 返回一个丢弃所有日志的 Logger
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}
