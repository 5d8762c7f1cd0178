package swarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mss "github.com/multiformats/go-multistream"
	"go.uber.org/multierr"

	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/transport"
	"github.com/dep2p/rendezvous-server/internal/core/upgrader"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

var log = logger.Logger("core/swarm")

// Swarm 连接群管理
type Swarm struct {
	mu sync.RWMutex

	localPeer types.PeerID
	transport *transport.Upgraded
	behaviour Behaviour
	config    *Config
	metrics   *metrics.Metrics

	// 入站流协议协商
	mux *mss.MultistreamMuxer[types.ProtocolID]

	// 监听器 -> 实际绑定地址
	listeners map[interfaces.Listener]multiaddr.Multiaddr

	// 连接池：peerID -> []*Conn
	conns      map[types.PeerID][]*Conn
	nextConnID atomic.Uint64

	events *eventQueue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed atomic.Bool
}

var _ Host = (*Swarm)(nil)

// New 创建 Swarm 并启动行为
//
// b 为 nil 时入站流一律协商失败。
func New(tpt *transport.Upgraded, b Behaviour, opts ...Option) (*Swarm, error) {
	if tpt == nil {
		return nil, ErrNilTransport
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Swarm{
		localPeer: tpt.LocalPeer(),
		transport: tpt,
		behaviour: b,
		config:    DefaultConfig(),
		mux:       mss.NewMultistreamMuxer[types.ProtocolID](),
		listeners: make(map[interfaces.Listener]multiaddr.Multiaddr),
		conns:     make(map[types.PeerID][]*Conn),
		events:    newEventQueue(),
		ctx:       ctx,
		cancel:    cancel,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			cancel()
			return nil, err
		}
	}

	if b != nil {
		for _, p := range b.Protocols() {
			s.mux.AddHandler(p, nil)
		}
		if err := b.Start(s); err != nil {
			cancel()
			return nil, fmt.Errorf("start behaviour: %w", err)
		}
	}
	return s, nil
}

// LocalPeer 返回本地节点 ID
func (s *Swarm) LocalPeer() types.PeerID {
	return s.localPeer
}

// Emit 把行为事件放入队列
func (s *Swarm) Emit(ev any) {
	s.events.push(BehaviourEvent{Event: ev})
}

// NextEvent 按到达顺序取出下一个事件
//
// Swarm 关闭且队列为空后返回 ErrSwarmClosed。
func (s *Swarm) NextEvent(ctx context.Context) (Event, error) {
	return s.events.next(ctx)
}

// Peers 返回所有已连接的节点 ID
func (s *Swarm) Peers() []types.PeerID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]types.PeerID, 0, len(s.conns))
	for p := range s.conns {
		peers = append(peers, p)
	}
	return peers
}

// ConnsToPeer 返回到指定节点的所有连接
func (s *Swarm) ConnsToPeer(peer types.PeerID) []*Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := s.conns[peer]
	if len(conns) == 0 {
		return nil
	}
	out := make([]*Conn, len(conns))
	copy(out, conns)
	return out
}

// ListenAddrs 返回当前监听地址，通配地址已展开
func (s *Swarm) ListenAddrs() []multiaddr.Multiaddr {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []multiaddr.Multiaddr
	for _, addr := range s.listeners {
		out = append(out, expandListenAddr(addr)...)
	}
	return out
}

// NewStream 在到 peer 的最新连接上打开流并协商协议
func (s *Swarm) NewStream(ctx context.Context, peer types.PeerID, protos ...types.ProtocolID) (*Stream, error) {
	if s.closed.Load() {
		return nil, ErrSwarmClosed
	}
	if len(protos) == 0 {
		return nil, ErrNoProtocols
	}

	conns := s.ConnsToPeer(peer)
	for i := len(conns) - 1; i >= 0; i-- {
		c := conns[i]
		if c.IsClosed() {
			continue
		}
		return s.openStream(ctx, c, protos)
	}
	return nil, ErrNoConnection
}

func (s *Swarm) openStream(ctx context.Context, c *Conn, protos []types.ProtocolID) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.NewStreamTimeout)
	defer cancel()

	ms, err := c.OpenStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	st := newStream(c, ms)
	if !c.addStream(st) {
		_ = ms.Reset()
		return nil, ErrNoConnection
	}

	if d, ok := ctx.Deadline(); ok {
		_ = ms.SetDeadline(d)
	}
	selected, err := mss.SelectOneOf(protos, ms)
	if err != nil {
		_ = st.Reset()
		return nil, fmt.Errorf("negotiate stream protocol: %w", err)
	}
	_ = ms.SetDeadline(time.Time{})
	st.protocol = selected
	return st, nil
}

// Dial 拨号并加入连接池
//
// 地址以 /p2p/<id> 结尾时校验对端身份。
func (s *Swarm) Dial(ctx context.Context, addr multiaddr.Multiaddr) (*Conn, error) {
	if s.closed.Load() {
		return nil, ErrSwarmClosed
	}
	uc, err := s.transport.Dial(ctx, addr)
	if err != nil {
		log.Debug("拨号失败", "addr", addrString(addr), "error", err)
		return nil, err
	}
	if uc.RemotePeer() == s.localPeer {
		uc.Close()
		return nil, ErrDialToSelf
	}
	c := s.addConn(uc)
	if c == nil {
		return nil, ErrSwarmClosed
	}
	return c, nil
}

// Close 关闭监听器、连接与行为
func (s *Swarm) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSwarmClosed
	}
	log.Info("正在关闭 Swarm")
	s.cancel()

	s.mu.Lock()
	listeners := s.listeners
	s.listeners = make(map[interfaces.Listener]multiaddr.Multiaddr)
	var all []*Conn
	for _, cs := range s.conns {
		all = append(all, cs...)
	}
	s.mu.Unlock()

	var err error
	for l := range listeners {
		if cerr := l.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close listener: %w", cerr))
		}
	}
	s.wg.Wait()

	for _, c := range all {
		if cerr := c.Close(); cerr != nil && !errors.Is(cerr, ErrSwarmClosed) {
			log.Debug("关闭连接失败", "peerID", c.RemotePeer().ShortString(), "error", cerr)
		}
	}

	if s.behaviour != nil {
		err = multierr.Append(err, s.behaviour.Close())
	}
	s.events.close()

	if err != nil {
		log.Warn("关闭 Swarm 时发生错误", "error", err)
		return err
	}
	log.Info("Swarm 已关闭", "closedConnections", len(all))
	return nil
}

// ============================================================================
//                              连接池
// ============================================================================

// addConn 加入连接池并启动入站流循环，Swarm 已关闭时关闭连接并返回 nil
func (s *Swarm) addConn(uc *upgrader.Conn) *Conn {
	c := newConn(s, uc, s.nextConnID.Add(1))
	peer := uc.RemotePeer()

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		uc.Close()
		return nil
	}
	s.conns[peer] = append(s.conns[peer], c)
	n := len(s.conns[peer])
	s.mu.Unlock()

	s.metrics.ConnectionOpened(c.Transport(), uc.Direction().String())
	log.Debug("连接已建立",
		"peerID", peer.ShortString(),
		"transport", c.Transport(),
		"direction", uc.Direction().String(),
		"muxer", uc.Muxer())

	s.events.push(ConnectionEstablished{
		Peer:           peer,
		ConnID:         c.id,
		Endpoint:       uc.RemoteMultiaddr(),
		Direction:      uc.Direction(),
		NumEstablished: n,
	})
	if s.behaviour != nil {
		s.behaviour.ConnectionEstablished(c)
	}

	go s.handleInboundStreams(c)
	return c
}

// removeConn 从连接池移除并上报关闭事件
func (s *Swarm) removeConn(c *Conn) {
	peer := c.RemotePeer()

	s.mu.Lock()
	conns := s.conns[peer]
	found := false
	for i, other := range conns {
		if other == c {
			s.conns[peer] = append(conns[:i], conns[i+1:]...)
			found = true
			break
		}
	}
	n := len(s.conns[peer])
	if n == 0 {
		delete(s.conns, peer)
	}
	s.mu.Unlock()

	if !found {
		return
	}

	s.metrics.ConnectionClosed(c.Transport())
	log.Debug("连接已关闭", "peerID", peer.ShortString(), "remaining", n)

	s.events.push(ConnectionClosed{
		Peer:           peer,
		ConnID:         c.id,
		Endpoint:       c.RemoteMultiaddr(),
		NumEstablished: n,
	})
	if s.behaviour != nil {
		s.behaviour.ConnectionClosed(c)
	}
}

// ============================================================================
//                              入站流
// ============================================================================

// handleInboundStreams 接受入站流直到连接断开
func (s *Swarm) handleInboundStreams(c *Conn) {
	defer c.Close()

	for {
		ms, err := c.AcceptStream()
		if err != nil {
			if !c.IsClosed() && !s.closed.Load() {
				log.Debug("接受入站流失败，连接已断开", "peerID", c.RemotePeer().ShortString(), "error", err)
			}
			return
		}

		st := newStream(c, ms)
		if !c.addStream(st) {
			_ = ms.Reset()
			return
		}
		go s.handleStream(st)
	}
}

// handleStream 协商协议后交给行为
func (s *Swarm) handleStream(st *Stream) {
	_ = st.SetDeadline(time.Now().Add(s.config.NegotiateTimeout))
	proto, _, err := s.mux.Negotiate(st.MuxedStream)
	if err != nil {
		log.Debug("入站流协议协商失败", "peerID", st.RemotePeer().ShortString(), "error", err)
		_ = st.Reset()
		return
	}
	_ = st.SetDeadline(time.Time{})
	st.protocol = proto

	if s.behaviour == nil {
		_ = st.Reset()
		return
	}
	s.behaviour.HandleStream(st)
}

func addrString(addr multiaddr.Multiaddr) string {
	if addr == nil {
		return "<nil>"
	}
	return addr.String()
}
