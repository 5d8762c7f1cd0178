// Package metrics 提供 Prometheus 指标
//
// 指标分为三类：
//
//   - 连接：建立/关闭次数、活跃连接数、升级失败（按阶段）
//   - rendezvous：注册结果、活跃注册数、发现请求
//   - 带宽：按协议统计流字节数与最近 60 秒速率
//
// 所有方法对 nil *Metrics 安全，未启用指标时调用方无需判断。
//
// # 快速开始
//
//	m := metrics.New()
//	m.ConnectionOpened("tcp", "inbound")
//	m.Bandwidth().LogRecvStream(256, protocolids.Rendezvous)
//
//	// 暴露 /metrics
//	err := m.Serve(ctx, "127.0.0.1:9100")
//
// # Fx 模块集成
//
//	fx.New(metrics.Module(), ...)
package metrics
