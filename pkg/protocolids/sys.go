package protocolids

import "github.com/dep2p/rendezvous-server/pkg/types"

// ============================================================================
// 连接升级协议
// ============================================================================

// Multistream multistream-select 版本头
const Multistream types.ProtocolID = "/multistream/1.0.0"

// Noise Noise XX 安全通道
const Noise types.ProtocolID = "/noise"

// Yamux yamux 多路复用（首选）
const Yamux types.ProtocolID = "/yamux/1.0.0"

// Mplex mplex 多路复用（回退）
const Mplex types.ProtocolID = "/mplex/6.7.0"

// ============================================================================
// 流协议
// ============================================================================

// Ping 存活探测
const Ping types.ProtocolID = "/ipfs/ping/1.0.0"

// Rendezvous 服务发现
const Rendezvous types.ProtocolID = "/rendezvous/1.0.0"
