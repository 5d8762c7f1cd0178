package swarm

import (
	"errors"
)

var (
	// ErrSwarmClosed Swarm 已关闭
	ErrSwarmClosed = errors.New("swarm closed")

	// ErrNoConnection 没有连接
	ErrNoConnection = errors.New("no connection to peer")

	// ErrDialToSelf 尝试拨号自己
	ErrDialToSelf = errors.New("dial to self attempted")

	// ErrNilTransport 未提供传输栈
	ErrNilTransport = errors.New("swarm: transport is nil")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNoProtocols 打开流时未给出协议
	ErrNoProtocols = errors.New("swarm: no protocols to negotiate")
)
