package rendezvous

import (
	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/storage/engine"
)

// Module Rendezvous 服务端模块
func Module() fx.Option {
	return fx.Module("discovery_rendezvous",
		fx.Provide(ProvideServer),
	)
}

// Params Rendezvous 依赖参数
type Params struct {
	fx.In

	Config  *config.Config   `optional:"true"`
	Storage engine.Engine    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// ProvideServer 从 Fx 参数创建服务端
//
// Storage 为 nil 时注册只保存在内存中。
func ProvideServer(p Params) (*Server, error) {
	return NewServer(
		WithConfig(ConfigFromUnified(p.Config)),
		WithStorage(p.Storage),
		WithMetrics(p.Metrics),
	)
}
