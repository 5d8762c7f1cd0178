package swarm

import (
	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/muxer"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// Stream Swarm 流封装
type Stream struct {
	muxer.MuxedStream

	conn     *Conn
	protocol types.ProtocolID
	bw       *metrics.BandwidthCounter
}

func newStream(c *Conn, ms muxer.MuxedStream) *Stream {
	return &Stream{
		MuxedStream: ms,
		conn:        c,
		bw:          c.swarm.metrics.Bandwidth(),
	}
}

// Read 读取数据
func (s *Stream) Read(p []byte) (n int, err error) {
	n, err = s.MuxedStream.Read(p)
	if n > 0 && s.bw != nil && s.protocol != "" {
		s.bw.LogRecvStream(int64(n), s.protocol)
	}
	return n, err
}

// Write 写入数据
func (s *Stream) Write(p []byte) (n int, err error) {
	n, err = s.MuxedStream.Write(p)
	if n > 0 && s.bw != nil && s.protocol != "" {
		s.bw.LogSentStream(int64(n), s.protocol)
	}
	return n, err
}

// Close 关闭流
func (s *Stream) Close() error {
	s.conn.removeStream(s)
	return s.MuxedStream.Close()
}

// Reset 重置流
func (s *Stream) Reset() error {
	s.conn.removeStream(s)
	return s.MuxedStream.Reset()
}

// Protocol 返回协商后的协议 ID
func (s *Stream) Protocol() types.ProtocolID {
	return s.protocol
}

// Conn 返回所属连接
func (s *Stream) Conn() *Conn {
	return s.conn
}

// RemotePeer 返回对端 ID
func (s *Stream) RemotePeer() types.PeerID {
	return s.conn.RemotePeer()
}
