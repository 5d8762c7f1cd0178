package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/storage/engine"
	"github.com/dep2p/rendezvous-server/internal/core/storage/engine/badger"
	"github.com/dep2p/rendezvous-server/internal/core/storage/kv"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
)

var log = logger.Logger("core/storage")

// Params 模块依赖
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config `optional:"true"`
}

// Module 提供 engine.Engine
//
// 未配置 --registration-db 时提供 nil，注册记录只保存在内存中。
// OnStart 启动值日志 GC，OnStop 关闭数据库。
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideStorage),
	)
}

// ProvideStorage 打开存储引擎并注册生命周期
func ProvideStorage(p Params) (engine.Engine, error) {
	cfg := ConfigFromUnified(p.Config)
	if !cfg.Enabled() {
		log.Debug("未配置注册记录数据库，注册仅保存在内存中")
		return nil, nil
	}

	eng, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return eng.Start()
		},
		OnStop: func(_ context.Context) error {
			if err := eng.Close(); err != nil {
				log.Warn("存储引擎关闭失败", "error", err)
				return err
			}
			log.Debug("存储引擎已关闭")
			return nil
		},
	})
	return eng, nil
}

// NewEngine 根据配置打开存储引擎
func NewEngine(cfg Config) (engine.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, err := badger.New(cfg.ToEngineConfig())
	if err != nil {
		log.Error("打开存储引擎失败", "path", cfg.Path, "error", err)
		return nil, err
	}
	log.Info("存储引擎已打开", "path", cfg.Path)
	return eng, nil
}

// New 用默认配置打开 path 处的存储引擎
func New(path string) (engine.Engine, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	return NewEngine(cfg)
}

// NewKVStore 创建带前缀的 KVStore
func NewKVStore(eng engine.Engine, prefix []byte) *kv.Store {
	return kv.New(eng, prefix)
}

// Engine 是 engine.Engine 的别名
type Engine = engine.Engine
