package swarm

import (
	"context"

	"github.com/dep2p/rendezvous-server/pkg/types"
)

// Host 行为可见的 Swarm 能力
type Host interface {
	// LocalPeer 返回本地节点 ID
	LocalPeer() types.PeerID

	// NewStream 在到 peer 的已有连接上打开流并协商协议
	NewStream(ctx context.Context, peer types.PeerID, protos ...types.ProtocolID) (*Stream, error)

	// Emit 把行为事件放入 Swarm 事件队列
	Emit(ev any)
}

// Behaviour 协议行为
//
// 回调可能在任意 goroutine 中并发调用，实现需自行加锁。
type Behaviour interface {
	// Protocols 返回入站流可协商的协议
	Protocols() []types.ProtocolID

	// HandleStream 处理已协商的入站流，调用方不再持有该流
	HandleStream(s *Stream)

	// ConnectionEstablished 连接完成升级
	ConnectionEstablished(c *Conn)

	// ConnectionClosed 连接关闭
	ConnectionClosed(c *Conn)

	// Start 绑定 Host，在 Swarm 创建时调用一次
	Start(h Host) error

	// Close 停止后台任务
	Close() error
}
