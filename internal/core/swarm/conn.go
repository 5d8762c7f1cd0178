package swarm

import (
	"sync"

	"github.com/dep2p/rendezvous-server/internal/core/upgrader"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// Conn Swarm 持有的连接
type Conn struct {
	*upgrader.Conn

	swarm     *Swarm
	id        uint64
	transport string

	streamsMu sync.Mutex
	streams   map[*Stream]struct{}
	closed    bool

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func newConn(s *Swarm, uc *upgrader.Conn, id uint64) *Conn {
	return &Conn{
		Conn:      uc,
		swarm:     s,
		id:        id,
		transport: transportName(uc.RemoteMultiaddr()),
		streams:   make(map[*Stream]struct{}),
		done:      make(chan struct{}),
	}
}

// ID 返回 Swarm 内唯一的连接编号
func (c *Conn) ID() uint64 {
	return c.id
}

// Transport 返回传输类型：tcp、ws 或 wss
func (c *Conn) Transport() string {
	return c.transport
}

// Done 连接关闭后返回的 channel 被关闭
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// IsClosed 返回连接是否已关闭
func (c *Conn) IsClosed() bool {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()
	return c.closed
}

// NumStreams 返回打开中的流数量
func (c *Conn) NumStreams() int {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()
	return len(c.streams)
}

// Close 关闭连接及其全部流
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.streamsMu.Lock()
		c.closed = true
		streams := c.streams
		c.streams = nil
		c.streamsMu.Unlock()

		for st := range streams {
			_ = st.MuxedStream.Reset()
		}

		c.closeErr = c.Conn.Close()
		c.swarm.removeConn(c)
		close(c.done)
	})
	return c.closeErr
}

// addStream 记录流，连接已关闭时返回 false
func (c *Conn) addStream(st *Stream) bool {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()
	if c.closed {
		return false
	}
	c.streams[st] = struct{}{}
	return true
}

func (c *Conn) removeStream(st *Stream) {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()
	delete(c.streams, st)
}

// transportName 由远端地址判断传输类型
func transportName(addr multiaddr.Multiaddr) string {
	switch {
	case addr == nil:
		return "unknown"
	case multiaddr.HasProtocol(addr, multiaddr.P_WSS):
		return "wss"
	case multiaddr.HasProtocol(addr, multiaddr.P_WS):
		return "ws"
	default:
		return "tcp"
	}
}
