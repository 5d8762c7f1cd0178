package muxer

import (
	"context"
	"io"
	"math"
	"net"

	"github.com/libp2p/go-yamux/v5"

	"github.com/dep2p/rendezvous-server/pkg/protocolids"
)

// YamuxID yamux 协议标识
const YamuxID = string(protocolids.Yamux)

// Yamux yamux 多路复用器
type Yamux struct {
	config *yamux.Config
}

// NewYamux 创建 yamux 多路复用器
func NewYamux() *Yamux {
	config := yamux.DefaultConfig()

	// 16MiB 窗口：100ms 延迟下可达 160MB/s 吞吐量
	config.MaxStreamWindowSize = uint32(16 * 1024 * 1024)

	// 禁用日志输出
	config.LogOutput = io.Discard

	// 禁用读缓冲（安全传输层已有缓冲）
	config.ReadBufSize = 0

	config.MaxIncomingStreams = math.MaxUint32

	return &Yamux{config: config}
}

// ID 返回协议标识
func (y *Yamux) ID() string {
	return YamuxID
}

// NewConn 建立 yamux 会话
func (y *Yamux) NewConn(conn net.Conn, isServer bool) (MuxedConn, error) {
	var (
		sess *yamux.Session
		err  error
	)
	if isServer {
		sess, err = yamux.Server(conn, y.config, nil)
	} else {
		sess, err = yamux.Client(conn, y.config, nil)
	}
	if err != nil {
		return nil, err
	}
	return &yamuxConn{session: sess}, nil
}

// yamuxConn 包装 yamux.Session
type yamuxConn struct {
	session *yamux.Session
}

func (c *yamuxConn) OpenStream(ctx context.Context) (MuxedStream, error) {
	s, err := c.session.OpenStream(ctx)
	if err != nil {
		return nil, parseError(err)
	}
	return &yamuxStream{s}, nil
}

func (c *yamuxConn) AcceptStream() (MuxedStream, error) {
	s, err := c.session.AcceptStream()
	if err != nil {
		return nil, parseError(err)
	}
	return &yamuxStream{s}, nil
}

func (c *yamuxConn) Close() error {
	log.Debug("关闭 yamux 会话")
	return c.session.Close()
}

func (c *yamuxConn) IsClosed() bool {
	return c.session.IsClosed()
}

// yamuxStream 转换读写错误
type yamuxStream struct {
	*yamux.Stream
}

func (s *yamuxStream) Read(p []byte) (int, error) {
	n, err := s.Stream.Read(p)
	return n, parseError(err)
}

func (s *yamuxStream) Write(p []byte) (int, error) {
	n, err := s.Stream.Write(p)
	return n, parseError(err)
}
