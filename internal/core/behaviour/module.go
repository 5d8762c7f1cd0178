package behaviour

import (
	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/protocol/system/ping"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/discovery/rendezvous"
)

// Params 组合行为依赖参数
type Params struct {
	fx.In

	Config     *config.Config `optional:"true"`
	Rendezvous *rendezvous.Server
	Metrics    *metrics.Metrics `optional:"true"`
}

// Result 同时以具体类型与 swarm.Behaviour 提供
type Result struct {
	fx.Out

	Aggregate *Aggregate
	Behaviour swarm.Behaviour
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("behaviour",
		fx.Provide(ProvideAggregate),
	)
}

// ProvideAggregate 按配置组合行为
func ProvideAggregate(p Params) (Result, error) {
	var pinger *ping.Service
	if p.Config != nil && p.Config.Ping.Enable {
		pinger = ping.NewService(ping.WithMetrics(p.Metrics))
	}
	a, err := New(p.Rendezvous, pinger)
	if err != nil {
		return Result{}, err
	}
	return Result{Aggregate: a, Behaviour: a}, nil
}
