package multiaddr

import "errors"

// 通用错误
var (
	ErrInvalidMultiaddr = errors.New("invalid multiaddr")
	ErrUnknownProtocol  = errors.New("unknown protocol")
	ErrProtocolNotFound = errors.New("protocol not found in multiaddr")
	ErrNotDialable      = errors.New("multiaddr has no dialable host and port")
)
