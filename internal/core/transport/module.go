package transport

import (
	"crypto/tls"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/identity"
	"github.com/dep2p/rendezvous-server/internal/core/upgrader"
)

// Params 传输模块依赖
type Params struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity
	TLS      *tls.Config        `optional:"true"`
	Upgrader *upgrader.Upgrader `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransport),
	)
}

// ProvideTransport 按配置构建传输栈
func ProvideTransport(p Params) (*Upgraded, error) {
	opts := []Option{WithUpgradeTimeout(p.Config.Transport.UpgradeTimeout)}
	if p.Upgrader != nil {
		opts = append(opts, WithUpgrader(p.Upgrader))
	}
	t, err := Build(p.Identity, p.Config.Transport.EnableWebSocket, p.TLS, opts...)
	if err != nil {
		return nil, fmt.Errorf("Failed to create transport: %w", err)
	}
	return t, nil
}
