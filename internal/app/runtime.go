package app

import (
	"context"

	"github.com/dep2p/rendezvous-server/internal/core/behaviour"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
)

// Runtime 表示一个已通过 fx 组装并启动的进程
type Runtime struct {
	Server    *Server
	Swarm     *swarm.Swarm
	Behaviour *behaviour.Aggregate

	stop func(ctx context.Context) error
}

// Stop 停止运行时（触发 fx 生命周期 OnStop）
func (r *Runtime) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	return r.stop(ctx)
}
