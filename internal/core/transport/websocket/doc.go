// Package websocket 实现 WebSocket 传输层
//
// 包装 DNS+TCP 传输，在其上运行 HTTP 升级：
//
//	/ip4/0.0.0.0/tcp/8080/ws    明文 WebSocket
//	/ip4/0.0.0.0/tcp/443/wss    服务端 TLS 终止后的 WebSocket
//
// 每个 WebSocket 二进制消息承载一段字节流，连接对外表现为 net.Conn，
// 后续的 Noise 认证与多路复用与 TCP 完全相同。
package websocket
