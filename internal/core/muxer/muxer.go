// Package muxer 提供流多路复用
//
// 支持两种协议，按偏好顺序：
//   - /yamux/1.0.0（go-yamux，首选）
//   - /mplex/6.7.0（go-mplex，兼容回退）
//
// 协议由 upgrader 通过 multistream-select 协商，本包只负责在已加密
// 的连接上建立会话。
package muxer

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/dep2p/rendezvous-server/internal/util/logger"
)

var log = logger.Logger("core/muxer")

// ============================================================================
//                              接口定义
// ============================================================================

// MuxedStream 多路复用流
type MuxedStream interface {
	io.ReadWriteCloser

	// CloseWrite 关闭写端
	CloseWrite() error

	// CloseRead 关闭读端
	CloseRead() error

	// Reset 异常关闭流
	Reset() error

	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// MuxedConn 多路复用连接
type MuxedConn interface {
	io.Closer

	// OpenStream 打开出站流
	OpenStream(ctx context.Context) (MuxedStream, error)

	// AcceptStream 阻塞等待入站流
	AcceptStream() (MuxedStream, error)

	// IsClosed 连接是否已关闭
	IsClosed() bool
}

// Multiplexer 多路复用协议
type Multiplexer interface {
	// ID 返回 multistream 协议标识
	ID() string

	// NewConn 在连接上建立会话，isServer 为连接的接受方
	NewConn(conn net.Conn, isServer bool) (MuxedConn, error)
}

// Default 返回按偏好排序的多路复用协议
func Default() []Multiplexer {
	return []Multiplexer{NewYamux(), NewMplex()}
}
