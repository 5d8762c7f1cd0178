// Package protocolids 定义 rendezvous-server 使用的全部协议 ID
//
// 所有模块在需要协议 ID 时引用本包常量，不在其他位置定义字面量。
//
// # 协议分组
//
//   - 连接升级：multistream-select、Noise、yamux、mplex
//   - 流协议：ping、rendezvous
//
// 这些 ID 与 libp2p 生态保持一致，rust-libp2p 与 go-libp2p 客户端
// 可以直接连接。
package protocolids
