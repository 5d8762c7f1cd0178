package ping

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/protocolids"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

var log = logger.Logger("core/ping")

// ProtocolID Ping 协议 ID
const ProtocolID = protocolids.Ping

const (
	// PingSize Ping 消息大小（32 字节）
	PingSize = 32

	// DefaultInterval 出站探测间隔
	DefaultInterval = 24 * time.Hour

	// DefaultTimeout 单次探测超时
	DefaultTimeout = 20 * time.Second

	// HandlerIdleTimeout 入站流空闲超时
	HandlerIdleTimeout = 60 * time.Second
)

var (
	// ErrDataMismatch Ping 回显数据不匹配
	ErrDataMismatch = errors.New("ping: echo data mismatch")
)

// Event 一次出站探测的结果
type Event struct {
	Peer types.PeerID
	RTT  time.Duration
	Err  error
}

// stream 探测所需的流能力
type stream interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
}

// ============================================================================
//                              Service
// ============================================================================

// Option 服务选项
type Option func(*Service)

// WithInterval 设置出站探测间隔，0 表示只应答不探测
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.interval = d
		}
	}
}

// WithTimeout 设置单次探测超时
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(s *Service) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// peerProbe 单个节点的探测任务
type peerProbe struct {
	conns  int
	cancel context.CancelFunc
}

// Service Ping 行为
//
// 应答入站探测；间隔大于 0 时对每个已连接节点周期性探测，
// 结果以 Event 上报。探测不会让空闲连接保持打开。
type Service struct {
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	metrics  *metrics.Metrics

	host swarm.Host

	mu     sync.Mutex
	peers  map[types.PeerID]*peerProbe
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ swarm.Behaviour = (*Service)(nil)

// NewService 创建 Ping 服务
func NewService(opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		clock:    clock.New(),
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		peers:    make(map[types.PeerID]*peerProbe),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Protocols 实现 swarm.Behaviour
func (s *Service) Protocols() []types.ProtocolID {
	return []types.ProtocolID{ProtocolID}
}

// Start 实现 swarm.Behaviour
func (s *Service) Start(h swarm.Host) error {
	s.host = h
	return nil
}

// HandleStream 实现 swarm.Behaviour
func (s *Service) HandleStream(st *swarm.Stream) {
	s.Handler(st)
}

// ConnectionEstablished 为新连接的节点启动探测
func (s *Service) ConnectionEstablished(c *swarm.Conn) {
	if s.interval <= 0 || s.host == nil {
		return
	}
	peer := c.RemotePeer()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if p, ok := s.peers[peer]; ok {
		p.conns++
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.peers[peer] = &peerProbe{conns: 1, cancel: cancel}
	s.wg.Add(1)
	go s.probeLoop(ctx, peer)
}

// ConnectionClosed 节点最后一条连接关闭时停止探测
func (s *Service) ConnectionClosed(c *swarm.Conn) {
	peer := c.RemotePeer()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[peer]
	if !ok {
		return
	}
	p.conns--
	if p.conns <= 0 {
		p.cancel()
		delete(s.peers, peer)
	}
}

// Close 停止全部探测
func (s *Service) Close() error {
	s.cancel()
	s.mu.Lock()
	s.peers = make(map[types.PeerID]*peerProbe)
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// probeLoop 连接建立后立即探测一次，此后按间隔探测
func (s *Service) probeLoop(ctx context.Context, peer types.PeerID) {
	defer s.wg.Done()

	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	for {
		s.probe(ctx, peer)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) probe(ctx context.Context, peer types.PeerID) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rtt, err := Ping(ctx, s.host, peer)
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	if err != nil {
		log.Debug("Ping 失败", "peerID", peer.ShortString(), "error", err)
	} else {
		s.metrics.PingRTT(rtt)
	}
	s.host.Emit(Event{Peer: peer, RTT: rtt, Err: err})
}

// ============================================================================
//                              协议实现
// ============================================================================

// Handler 处理 Ping 请求（服务器端），读取数据并回显
func (s *Service) Handler(st stream) {
	defer st.Close()

	buf := make([]byte, PingSize)
	for {
		_ = st.SetReadDeadline(time.Now().Add(HandlerIdleTimeout))

		if _, err := io.ReadFull(st, buf); err != nil {
			return
		}
		if _, err := st.Write(buf); err != nil {
			return
		}
	}
}

// Ping 主动 Ping 节点（客户端），返回往返时间
func Ping(ctx context.Context, h swarm.Host, peer types.PeerID) (time.Duration, error) {
	st, err := h.NewStream(ctx, peer, ProtocolID)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	if d, ok := ctx.Deadline(); ok {
		_ = st.SetDeadline(d)
	}
	return roundTrip(st)
}

// roundTrip 发送 32 字节随机数据并校验回显
func roundTrip(st stream) (time.Duration, error) {
	buf := make([]byte, PingSize)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := st.Write(buf); err != nil {
		return 0, err
	}
	echo := make([]byte, PingSize)
	if _, err := io.ReadFull(st, echo); err != nil {
		return 0, err
	}
	rtt := time.Since(start)

	if !bytes.Equal(buf, echo) {
		return 0, ErrDataMismatch
	}
	return rtt, nil
}
