package interfaces

import (
	"context"
	"net"

	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// Transport 原始传输层接口
//
// 原始传输只负责建立字节流（TCP、WebSocket），不做加密与多路复用；
// 升级由 internal/core/upgrader 完成。多个实现可以层层包装
// （DNS 包装 TCP，WebSocket 包装 DNS+TCP）。
type Transport interface {
	// CanDial 检查是否支持拨号到指定地址
	CanDial(addr multiaddr.Multiaddr) bool

	// CanListen 检查是否支持在指定地址监听
	CanListen(addr multiaddr.Multiaddr) bool

	// Dial 拨号连接到指定地址
	Dial(ctx context.Context, raddr multiaddr.Multiaddr) (Conn, error)

	// Listen 在指定地址监听
	Listen(laddr multiaddr.Multiaddr) (Listener, error)

	// Protocols 返回处理的 multiaddr 协议编号
	Protocols() []int
}

// Listener 原始监听器
type Listener interface {
	// Accept 接受新连接
	Accept() (Conn, error)

	// Close 关闭监听器
	Close() error

	// Addr 返回底层网络地址
	Addr() net.Addr

	// Multiaddr 返回实际监听的多地址（端口 0 已替换为系统分配端口）
	Multiaddr() multiaddr.Multiaddr
}

// Conn 原始连接
type Conn interface {
	net.Conn

	// LocalMultiaddr 返回本地多地址
	LocalMultiaddr() multiaddr.Multiaddr

	// RemoteMultiaddr 返回远端多地址
	RemoteMultiaddr() multiaddr.Multiaddr
}
