package app

import (
	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/internal/core/behaviour"
	"github.com/dep2p/rendezvous-server/internal/core/identity"
	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/security"
	"github.com/dep2p/rendezvous-server/internal/core/storage"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/core/transport"
	"github.com/dep2p/rendezvous-server/internal/core/upgrader"
	"github.com/dep2p/rendezvous-server/internal/discovery/rendezvous"
)

// 模块集合清单集中维护"哪些模块属于哪个 Tier"，是 Bootstrap 组装的唯一模块来源。
// 可选功能（ping、指标、持久化）由各模块按配置自行裁剪，这里不做条件加载。

// FoundationModules 基础层模块组合 (Tier 1)
//
// 身份、指标与注册存储，其他模块都依赖它们。
func FoundationModules() fx.Option {
	return fx.Options(
		identity.Module(),
		metrics.Module(),
		storage.Module(),
	)
}

// TransportModules 传输层模块组合 (Tier 2)
//
// Noise 与 TLS 材料、连接升级器以及 TCP/DNS/WebSocket 传输栈。
func TransportModules() fx.Option {
	return fx.Options(
		security.Module(),
		upgrader.Module(),
		transport.Module(),
	)
}

// ServiceModules 网络服务层模块组合 (Tier 3)
//
// Rendezvous 服务端、组合行为与 Swarm。
func ServiceModules() fx.Option {
	return fx.Options(
		rendezvous.Module(),
		behaviour.Module(),
		swarm.Module(),
	)
}

// ApplicationModules 应用层模块组合 (Tier 4)
func ApplicationModules() fx.Option {
	return fx.Module("app",
		fx.Provide(provideServer),
	)
}

// AllModules 全部模块
func AllModules() fx.Option {
	return fx.Options(
		FoundationModules(),
		TransportModules(),
		ServiceModules(),
		ApplicationModules(),
	)
}
