package muxer

import (
	"errors"

	mplex "github.com/libp2p/go-mplex"
	"github.com/libp2p/go-yamux/v5"
)

var (
	// ErrStreamReset 流被重置错误
	ErrStreamReset = errors.New("stream reset")

	// ErrConnClosed 连接已关闭错误
	ErrConnClosed = errors.New("connection closed")
)

// parseError 把两种实现的错误统一为本包错误
func parseError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, yamux.ErrStreamReset), errors.Is(err, mplex.ErrStreamReset):
		return ErrStreamReset
	case errors.Is(err, yamux.ErrSessionShutdown), errors.Is(err, mplex.ErrShutdown):
		return ErrConnClosed
	default:
		return err
	}
}
