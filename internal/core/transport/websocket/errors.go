package websocket

import "errors"

var (
	// ErrUnsupportedAddr 地址不以 /ws 或 /wss 结尾，或前缀无法由内层处理
	ErrUnsupportedAddr = errors.New("websocket: unsupported multiaddr")

	// ErrNoTLSConfig 监听 /wss 但未提供 TLS 材料
	ErrNoTLSConfig = errors.New("websocket: /wss requires tls material")

	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("websocket: listener closed")
)
