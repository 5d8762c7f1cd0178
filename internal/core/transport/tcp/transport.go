package tcp

import (
	"context"
	"fmt"
	"net"

	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

var log = logger.Logger("core/transport/tcp")

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport TCP 传输
type Transport struct {
	dialer net.Dialer
	lc     net.ListenConfig
}

var _ interfaces.Transport = (*Transport)(nil)

// New 创建 TCP 传输
func New() *Transport {
	return &Transport{}
}

// CanDial 地址必须恰好是 ip4|ip6 + tcp
func (t *Transport) CanDial(addr multiaddr.Multiaddr) bool {
	if addr == nil {
		return false
	}
	ps := addr.Protocols()
	if len(ps) != 2 || ps[1].Code != multiaddr.P_TCP {
		return false
	}
	return ps[0].Code == multiaddr.P_IP4 || ps[0].Code == multiaddr.P_IP6
}

// CanListen 与 CanDial 相同
func (t *Transport) CanListen(addr multiaddr.Multiaddr) bool {
	return t.CanDial(addr)
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []int {
	return []int{multiaddr.P_TCP}
}

// Dial 建立出站连接
func (t *Transport) Dial(ctx context.Context, raddr multiaddr.Multiaddr) (interfaces.Conn, error) {
	if !t.CanDial(raddr) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, raddr)
	}
	network, hostport, err := multiaddr.DialArgs(raddr)
	if err != nil {
		return nil, err
	}

	c, err := t.dialer.DialContext(ctx, network, hostport)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", raddr, err)
	}
	conn, err := newConn(c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	log.Debug("TCP 拨号成功", "remote", conn.RemoteMultiaddr())
	return conn, nil
}

// Listen 监听入站连接
func (t *Transport) Listen(laddr multiaddr.Multiaddr) (interfaces.Listener, error) {
	if !t.CanListen(laddr) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, laddr)
	}
	network, hostport, err := multiaddr.DialArgs(laddr)
	if err != nil {
		return nil, err
	}

	l, err := t.lc.Listen(context.Background(), network, hostport)
	if err != nil {
		return nil, err
	}
	ma, err := multiaddr.FromNetAddr(l.Addr())
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	log.Debug("TCP 监听已建立", "addr", ma)
	return &listener{Listener: l, addr: ma}, nil
}
