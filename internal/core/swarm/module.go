package swarm

import (
	"context"
	"errors"

	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/transport"
)

// Params Swarm 依赖参数
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Transport *transport.Upgraded
	Behaviour Behaviour        `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("swarm",
		fx.Provide(ProvideSwarm),
	)
}

// ProvideSwarm 创建 Swarm 并在停止时关闭
func ProvideSwarm(p Params) (*Swarm, error) {
	s, err := New(p.Transport, p.Behaviour, WithMetrics(p.Metrics))
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := s.Close(); err != nil && !errors.Is(err, ErrSwarmClosed) {
				return err
			}
			return nil
		},
	})
	return s, nil
}
