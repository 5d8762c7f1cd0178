package upgrader

import (
	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/security/noise"
)

// Params Upgrader 依赖参数
type Params struct {
	fx.In

	Security *noise.Transport
	Config   *config.Config `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("upgrader",
		fx.Provide(ProvideUpgrader),
	)
}

// ProvideUpgrader 提供 Upgrader
func ProvideUpgrader(p Params) (*Upgrader, error) {
	var opts []Option
	if p.Config != nil {
		opts = append(opts, WithUpgradeTimeout(p.Config.Transport.UpgradeTimeout))
	}
	return New(p.Security, opts...)
}
