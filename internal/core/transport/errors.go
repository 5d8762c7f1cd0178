package transport

import "errors"

var (
	// ErrNoTransport 没有可处理该地址的传输层
	ErrNoTransport = errors.New("no suitable transport for address")

	// ErrInvalidAddress 无效地址
	ErrInvalidAddress = errors.New("invalid multiaddr")

	// ErrNilIdentity 未提供身份
	ErrNilIdentity = errors.New("transport: identity is nil")
)
