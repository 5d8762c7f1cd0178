package logger

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// handlerOp 记录 WithAttrs / WithGroup 调用，配置变化后重建 handler 时重放
type handlerOp struct {
	attrs []slog.Attr
	group string
}

// subsystemHandler 是一个支持子系统级别控制的 slog.Handler
//
// 包级变量形式的 logger 在 Setup 之前就已创建，因此内部 handler 按配置代次懒构建。
type subsystemHandler struct {
	subsystem string
	ops       []handlerOp

	mu    sync.Mutex
	gen   uint64
	inner slog.Handler
}

func newSubsystemHandler(subsystem string, ops []handlerOp) *subsystemHandler {
	return &subsystemHandler{subsystem: subsystem, ops: ops}
}

// current 返回与当前配置代次一致的内部 handler
func (h *subsystemHandler) current() slog.Handler {
	st := loadState()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inner != nil && h.gen == st.gen {
		return h.inner
	}

	inner := buildInner(st.cfg)
	inner = inner.WithAttrs([]slog.Attr{slog.String("subsystem", h.subsystem)})
	for _, op := range h.ops {
		if op.group != "" {
			inner = inner.WithGroup(op.group)
		} else {
			inner = inner.WithAttrs(op.attrs)
		}
	}
	h.inner = inner
	h.gen = st.gen
	return inner
}

// Enabled 检查是否启用指定级别
func (h *subsystemHandler) Enabled(_ context.Context, level slog.Level) bool {
	st := loadState()
	return level >= st.levelFor(h.subsystem)
}

// Handle 处理日志记录
func (h *subsystemHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

// WithAttrs 添加属性
func (h *subsystemHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newSubsystemHandler(h.subsystem, appendOp(h.ops, handlerOp{attrs: attrs}))
}

// WithGroup 添加分组
func (h *subsystemHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return newSubsystemHandler(h.subsystem, appendOp(h.ops, handlerOp{group: name}))
}

func appendOp(ops []handlerOp, op handlerOp) []handlerOp {
	out := make([]handlerOp, 0, len(ops)+1)
	out = append(out, ops...)
	return append(out, op)
}

// buildInner 按配置创建 text 或 json handler
func buildInner(cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		// 级别过滤由 subsystemHandler.Enabled 完成
		Level:     slog.LevelDebug - 4,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if cfg.NoTimestamp {
					return slog.Attr{}
				}
				if cfg.Format == FormatText {
					if t, ok := a.Value.Any().(time.Time); ok {
						a.Value = slog.StringValue(t.Local().Format(timeLayout))
					}
				}
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelToString(lvl))
				}
			}
			return a
		},
	}

	if cfg.Format == FormatJSON {
		return slog.NewJSONHandler(cfg.Output, opts)
	}
	return slog.NewTextHandler(cfg.Output, opts)
}

// levelToString 将日志级别转换为大写字符串
func levelToString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// discardHandler 丢弃所有日志的 Handler（用于测试）
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// DiscardHandler 返回一个丢弃所有日志的 Handler
func DiscardHandler() slog.Handler {
	return discardHandler{}
}
