package muxer

import (
	"context"
	"net"

	mplex "github.com/libp2p/go-mplex"

	"github.com/dep2p/rendezvous-server/pkg/protocolids"
)

// MplexID mplex 协议标识
const MplexID = string(protocolids.Mplex)

// Mplex mplex 多路复用器
type Mplex struct{}

// NewMplex 创建 mplex 多路复用器
func NewMplex() *Mplex {
	return &Mplex{}
}

// ID 返回协议标识
func (m *Mplex) ID() string {
	return MplexID
}

// NewConn 建立 mplex 会话，连接发起方为 initiator
func (m *Mplex) NewConn(conn net.Conn, isServer bool) (MuxedConn, error) {
	mp, err := mplex.NewMultiplex(conn, !isServer, nil)
	if err != nil {
		return nil, err
	}
	return &mplexConn{mp: mp}, nil
}

// mplexConn 包装 mplex.Multiplex
type mplexConn struct {
	mp *mplex.Multiplex
}

func (c *mplexConn) OpenStream(ctx context.Context) (MuxedStream, error) {
	s, err := c.mp.NewStream(ctx)
	if err != nil {
		return nil, parseError(err)
	}
	return &mplexStream{s}, nil
}

func (c *mplexConn) AcceptStream() (MuxedStream, error) {
	s, err := c.mp.Accept()
	if err != nil {
		return nil, parseError(err)
	}
	return &mplexStream{s}, nil
}

func (c *mplexConn) Close() error {
	log.Debug("关闭 mplex 会话")
	return c.mp.Close()
}

func (c *mplexConn) IsClosed() bool {
	return c.mp.IsClosed()
}

// mplexStream 转换读写错误
type mplexStream struct {
	*mplex.Stream
}

func (s *mplexStream) Read(p []byte) (int, error) {
	n, err := s.Stream.Read(p)
	return n, parseError(err)
}

func (s *mplexStream) Write(p []byte) (int, error) {
	n, err := s.Stream.Write(p)
	return n, parseError(err)
}
