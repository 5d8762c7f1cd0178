// Package transport 组装完整的传输栈
//
// # 分层
//
//	TCP (NoDelay) → DNS 解析 → [WebSocket ws/wss]
//	      ↓ Or：选择第一个支持该地址的层
//	multistream-select → Noise XX → yamux / mplex（20 秒时限）
//
// Build 返回 *Upgraded：Dial 直接产出升级后的连接；
// Listen 返回原始监听器，由调用方为每个入站连接单独调用 Upgrade。
//
// # 支持的地址
//
//   - /ip4/.../tcp/...、/ip6/.../tcp/...
//   - /dns/.../tcp/...、/dns4、/dns6、/dnsaddr（仅拨号）
//   - /ip4/.../tcp/.../ws、/wss（启用 WebSocket 时）
//
// # Fx 模块集成
//
//	app := fx.New(
//	    identity.Module(),
//	    security.Module(),
//	    upgrader.Module(),
//	    transport.Module(),
//	    fx.Invoke(func(t *transport.Upgraded) { ... }),
//	)
package transport
