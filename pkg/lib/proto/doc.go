// Package proto 定义跨网络传输的协议消息（wire format）
//
// # 子包
//
//   - noise: Noise 握手 payload
//   - rendezvous: Rendezvous 命名空间发现协议消息
//
// 消息直接用 protowire 编解码，字段号与 libp2p 的 .proto 定义一致，
// 可与 go-libp2p、rust-libp2p 互通。
//
// pkg/proto 定义网络协议消息，pkg/types 定义 Go 内部数据结构。
package proto
