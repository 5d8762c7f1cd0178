package metrics

import (
	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/config"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// Module 返回 Fx 模块
//
// 未配置 --metrics-listen 时提供 nil *Metrics，下游调用均为空操作。
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideMetrics),
	)
}

// ProvideMetrics 按配置创建指标
func ProvideMetrics(p Params) *Metrics {
	if p.Config == nil || p.Config.Metrics.ListenAddr == "" {
		return nil
	}
	return New()
}
