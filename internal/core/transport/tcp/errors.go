package tcp

import "errors"

var (
	// ErrUnsupportedAddr 地址不是 ip4/ip6 + tcp
	ErrUnsupportedAddr = errors.New("tcp: unsupported multiaddr")

	// ErrNotTCP 底层连接不是 TCP
	ErrNotTCP = errors.New("tcp: not a TCP connection")
)
