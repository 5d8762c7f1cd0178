// Package interfaces 定义 rendezvous-server 跨包共享的接口
//
//   - transport.go  - 原始传输层（Transport / Listener / Conn）
//
// 具体实现位于 internal/core/transport 下的各子包。
package interfaces
