package tcp

import (
	"net"

	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// ============================================================================
//                              Conn 实现
// ============================================================================

// conn 带多地址的 TCP 连接
type conn struct {
	*net.TCPConn
	laddr multiaddr.Multiaddr
	raddr multiaddr.Multiaddr
}

// newConn 包装 TCP 连接并关闭 Nagle 算法
func newConn(c net.Conn) (*conn, error) {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return nil, ErrNotTCP
	}
	_ = tc.SetNoDelay(true)

	laddr, err := multiaddr.FromNetAddr(tc.LocalAddr())
	if err != nil {
		return nil, err
	}
	raddr, err := multiaddr.FromNetAddr(tc.RemoteAddr())
	if err != nil {
		return nil, err
	}
	return &conn{TCPConn: tc, laddr: laddr, raddr: raddr}, nil
}

func (c *conn) LocalMultiaddr() multiaddr.Multiaddr {
	return c.laddr
}

func (c *conn) RemoteMultiaddr() multiaddr.Multiaddr {
	return c.raddr
}

// ============================================================================
//                              Listener 实现
// ============================================================================

// listener TCP 监听器
type listener struct {
	net.Listener
	addr multiaddr.Multiaddr
}

var _ interfaces.Listener = (*listener)(nil)

// Accept 接受连接
func (l *listener) Accept() (interfaces.Conn, error) {
	for {
		c, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		wrapped, err := newConn(c)
		if err != nil {
			// 对端在握手后立即断开时地址可能无效，跳过该连接
			log.Debug("丢弃无效的入站连接", "error", err)
			_ = c.Close()
			continue
		}
		return wrapped, nil
	}
}

// Multiaddr 返回实际监听地址
func (l *listener) Multiaddr() multiaddr.Multiaddr {
	return l.addr
}
