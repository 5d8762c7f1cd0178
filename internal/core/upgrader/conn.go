package upgrader

import (
	"net"

	"github.com/dep2p/rendezvous-server/internal/core/muxer"
	"github.com/dep2p/rendezvous-server/internal/core/security/noise"
	"github.com/dep2p/rendezvous-server/pkg/lib/crypto"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// maConn 携带多地址的原始连接
type maConn interface {
	LocalMultiaddr() multiaddr.Multiaddr
	RemoteMultiaddr() multiaddr.Multiaddr
}

// Conn 升级后的连接
type Conn struct {
	muxer.MuxedConn

	secure *noise.Conn
	laddr  multiaddr.Multiaddr
	raddr  multiaddr.Multiaddr

	security string
	muxerID  string
	dir      Direction
}

func newConn(muxed muxer.MuxedConn, secure *noise.Conn, raw net.Conn, security, muxerID string, dir Direction) *Conn {
	c := &Conn{
		MuxedConn: muxed,
		secure:    secure,
		security:  security,
		muxerID:   muxerID,
		dir:       dir,
	}
	if mc, ok := raw.(maConn); ok {
		c.laddr = mc.LocalMultiaddr()
		c.raddr = mc.RemoteMultiaddr()
	}
	return c
}

// LocalPeer 返回本地节点 ID
func (c *Conn) LocalPeer() types.PeerID {
	return c.secure.LocalPeer()
}

// RemotePeer 返回握手认证的对端 ID
func (c *Conn) RemotePeer() types.PeerID {
	return c.secure.RemotePeer()
}

// RemotePublicKey 返回对端身份公钥
func (c *Conn) RemotePublicKey() crypto.PublicKey {
	return c.secure.RemotePublicKey()
}

// Security 返回协商的安全协议
func (c *Conn) Security() string {
	return c.security
}

// Muxer 返回协商的多路复用器
func (c *Conn) Muxer() string {
	return c.muxerID
}

// Direction 返回连接方向
func (c *Conn) Direction() Direction {
	return c.dir
}

// LocalMultiaddr 原始连接的本地地址，未知时为 nil
func (c *Conn) LocalMultiaddr() multiaddr.Multiaddr {
	return c.laddr
}

// RemoteMultiaddr 原始连接的远端地址，未知时为 nil
func (c *Conn) RemoteMultiaddr() multiaddr.Multiaddr {
	return c.raddr
}
