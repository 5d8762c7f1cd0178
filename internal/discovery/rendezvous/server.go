package rendezvous

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/storage/engine"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
	pb "github.com/dep2p/rendezvous-server/pkg/lib/proto/rendezvous"
	"github.com/dep2p/rendezvous-server/pkg/lib/record"
	"github.com/dep2p/rendezvous-server/pkg/protocolids"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

var log = logger.Logger("discovery/rendezvous")

// ProtocolID Rendezvous 协议 ID
const ProtocolID = protocolids.Rendezvous

// stream 处理请求所需的流能力
type stream interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// Option 服务端选项
type Option func(*Server)

// WithConfig 设置配置
func WithConfig(cfg Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithClock 设置时钟（TTL 到期与限流）
func WithClock(clk clock.Clock) Option {
	return func(s *Server) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithStorage 启用注册持久化
func WithStorage(eng engine.Engine) Option {
	return func(s *Server) {
		s.engine = eng
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// ============================================================================
//                              Server
// ============================================================================

// Server Rendezvous 服务端行为
//
// 每条入站流承载一个请求：读一条消息，应答（UNREGISTER 无应答），关闭。
// 结果以 Event 经 Host 上报。
type Server struct {
	config  Config
	clock   clock.Clock
	engine  engine.Engine
	metrics *metrics.Metrics

	regs    *registrations
	limiter *registerLimiter

	mu      sync.RWMutex
	host    swarm.Host
	started bool
}

var _ swarm.Behaviour = (*Server)(nil)

// NewServer 创建服务端
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		config: DefaultConfig(),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	s.regs = newRegistrations(s.clock, newPersistentStore(s.engine), s.expired)
	s.limiter = newRegisterLimiter(s.clock, s.config.MaxRegisterRate)
	return s, nil
}

// Protocols 实现 swarm.Behaviour
func (s *Server) Protocols() []types.ProtocolID {
	return []types.ProtocolID{ProtocolID}
}

// Start 绑定 Host 并装入持久化的注册
func (s *Server) Start(h swarm.Host) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.host = h
	s.mu.Unlock()

	restored, err := s.regs.store.load(s.clock.Now())
	if err != nil {
		return fmt.Errorf("load registrations: %w", err)
	}
	if len(restored) > 0 {
		s.regs.restore(restored)
		log.Info("已恢复持久化的注册", "count", len(restored))
	}
	s.metrics.SetActiveRegistrations(s.regs.len())
	return nil
}

// Close 停止到期定时器
func (s *Server) Close() error {
	s.regs.close()
	return nil
}

// ConnectionEstablished 实现 swarm.Behaviour
func (s *Server) ConnectionEstablished(*swarm.Conn) {}

// ConnectionClosed 注册与连接无关，断开后保留到 TTL 到期
func (s *Server) ConnectionClosed(*swarm.Conn) {}

// HandleStream 实现 swarm.Behaviour
func (s *Server) HandleStream(st *swarm.Stream) {
	s.serve(st.RemotePeer(), st)
}

// NumRegistrations 当前注册数
func (s *Server) NumRegistrations() int {
	return s.regs.len()
}

func (s *Server) emit(ev Event) {
	s.mu.RLock()
	h := s.host
	s.mu.RUnlock()
	if h != nil {
		h.Emit(ev)
	}
}

// expired 注册到期回调
func (s *Server) expired(reg Registration) {
	s.metrics.SetActiveRegistrations(s.regs.len())
	s.emit(RegistrationExpired{
		Peer:      reg.Peer,
		Namespace: reg.Namespace,
		Addresses: reg.Addrs,
		TTL:       reg.TTL,
	})
}

// ============================================================================
//                              协议处理
// ============================================================================

// serve 处理一个请求流
func (s *Server) serve(peer types.PeerID, st stream) {
	defer st.Close()

	_ = st.SetDeadline(time.Now().Add(s.config.RequestTimeout))

	req, err := pb.ReadMessage(st, s.config.MaxMessageSize)
	if err != nil {
		log.Debug("读取请求失败", "peerID", peer.ShortString(), "error", err)
		return
	}

	var resp *pb.Message
	switch {
	case req.Type == pb.Message_REGISTER && req.Register != nil:
		resp = s.handleRegister(peer, req.Register)
	case req.Type == pb.Message_UNREGISTER && req.Unregister != nil:
		s.handleUnregister(peer, req.Unregister)
		return
	case req.Type == pb.Message_DISCOVER && req.Discover != nil:
		resp = s.handleDiscover(peer, req.Discover)
	default:
		log.Debug("丢弃请求", "peerID", peer.ShortString(), "type", req.Type, "error", ErrUnexpectedMessage)
		return
	}

	if err := pb.WriteMessage(st, resp); err != nil {
		log.Debug("写入响应失败", "peerID", peer.ShortString(), "error", err)
	}
}

// handleRegister 处理注册请求
func (s *Server) handleRegister(peer types.PeerID, req *pb.Message_Register) *pb.Message {
	reg, err := s.register(peer, req)
	status := statusOf(err)
	s.metrics.Registration(statusLabel(status))

	if err != nil {
		log.Debug("拒绝注册", "peerID", peer.ShortString(), "namespace", req.Ns, "error", err)
		s.emit(PeerNotRegistered{Peer: peer, Namespace: req.Ns, Error: status})
		return registerResponse(status, err.Error(), 0)
	}

	s.metrics.SetActiveRegistrations(s.regs.len())
	s.emit(PeerRegistered{
		Peer:      peer,
		Namespace: reg.Namespace,
		Addresses: reg.Addrs,
		TTL:       reg.TTL,
	})
	return registerResponse(pb.Message_OK, "", reg.TTL)
}

// register 校验并保存注册
func (s *Server) register(peer types.PeerID, req *pb.Message_Register) (Registration, error) {
	if !s.limiter.allow(peer) {
		return Registration{}, fmt.Errorf("%w: register rate exceeded", ErrUnavailable)
	}
	if err := ValidateNamespace(req.Ns); err != nil {
		return Registration{}, err
	}
	ttl, err := s.config.effectiveTTL(req.Ttl)
	if err != nil {
		return Registration{}, err
	}

	_, rec, err := record.ConsumePeerRecord(req.SignedPeerRecord)
	if err != nil {
		return Registration{}, fmt.Errorf("%w: %v", ErrInvalidSignedPeerRecord, err)
	}
	if rec.PeerID != peer {
		return Registration{}, fmt.Errorf("%w: record of %s sent by %s", ErrNotAuthorized, rec.PeerID.ShortString(), peer.ShortString())
	}

	return s.regs.add(Registration{
		Namespace:        req.Ns,
		Peer:             peer,
		Addrs:            rec.Addrs,
		TTL:              ttl,
		SignedPeerRecord: req.SignedPeerRecord,
	})
}

// handleUnregister 处理注销请求
func (s *Server) handleUnregister(peer types.PeerID, req *pb.Message_Unregister) {
	if err := ValidateNamespace(req.Ns); err != nil {
		log.Debug("忽略注销请求", "peerID", peer.ShortString(), "error", err)
		return
	}
	if _, ok := s.regs.remove(req.Ns, peer); ok {
		s.metrics.SetActiveRegistrations(s.regs.len())
	}
	s.emit(PeerUnregistered{Peer: peer, Namespace: req.Ns})
}

// handleDiscover 处理发现请求
func (s *Server) handleDiscover(peer types.PeerID, req *pb.Message_Discover) *pb.Message {
	regs, next, err := s.discover(req)
	status := statusOf(err)
	s.metrics.Discover(statusLabel(status))

	if err != nil {
		log.Debug("拒绝发现请求", "peerID", peer.ShortString(), "namespace", req.Ns, "error", err)
		s.emit(DiscoverNotServed{Enquirer: peer, Error: status})
		return &pb.Message{
			Type: pb.Message_DISCOVER_RESPONSE,
			DiscoverResponse: &pb.Message_DiscoverResponse{
				Status:     status,
				StatusText: err.Error(),
			},
		}
	}

	out := make([]*pb.Message_Register, 0, len(regs))
	for _, reg := range regs {
		out = append(out, &pb.Message_Register{
			Ns:               reg.Namespace,
			SignedPeerRecord: reg.SignedPeerRecord,
			Ttl:              pb.Uint64(reg.TTL),
		})
	}
	s.emit(DiscoverServed{Enquirer: peer, Registrations: regs})
	return &pb.Message{
		Type: pb.Message_DISCOVER_RESPONSE,
		DiscoverResponse: &pb.Message_DiscoverResponse{
			Registrations: out,
			Cookie:        next.Bytes(),
			Status:        pb.Message_OK,
		},
	}
}

func (s *Server) discover(req *pb.Message_Discover) ([]Registration, Cookie, error) {
	if req.Ns != "" {
		if err := ValidateNamespace(req.Ns); err != nil {
			return nil, Cookie{}, err
		}
	}

	var cookie *Cookie
	if req.Cookie != nil {
		c, err := ParseCookie(req.Cookie)
		if err != nil {
			return nil, Cookie{}, err
		}
		cookie = &c
	}

	limit := s.config.MaxDiscoverLimit
	if l := req.GetLimit(); l > 0 && l < uint64(limit) {
		limit = int(l)
	}
	return s.regs.get(req.Ns, cookie, limit)
}

// registerResponse 构造注册响应
func registerResponse(status pb.Message_ResponseStatus, text string, ttl uint64) *pb.Message {
	return &pb.Message{
		Type: pb.Message_REGISTER_RESPONSE,
		RegisterResponse: &pb.Message_RegisterResponse{
			Status:     status,
			StatusText: text,
			Ttl:        ttl,
		},
	}
}

// statusLabel 指标标签
func statusLabel(status pb.Message_ResponseStatus) string {
	if status == pb.Message_OK {
		return "ok"
	}
	return status.String()
}
