// Package upgrader 将原始连接升级为认证、多路复用的连接
//
// # 升级流程
//
// 升级由按顺序执行的命名阶段组成：
//
//  1. negotiate-security: multistream-select 1.0.0 协商 /noise
//  2. authenticate: Noise XX 握手，得到对端 PeerID
//  3. negotiate-muxer: multistream-select 协商 /yamux/1.0.0（优先）或 /mplex/6.7.0
//
// 全部阶段共享一个从原始连接建立时开始计时的时限（默认 20 秒）。
// 超时或任一阶段失败都只关闭当前连接，返回带阶段名的 *UpgradeError。
//
// # 使用示例
//
//	nt, _ := noise.New(id.PrivateKey())
//	u, _ := upgrader.New(nt)
//	conn, err := u.Upgrade(ctx, raw, upgrader.DirInbound, "")
//	stream, _ := conn.AcceptStream()
package upgrader
