package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/identity"
	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

var log = logger.Logger("app")

// Server 监听地址与事件循环
type Server struct {
	config   *config.Config
	identity *identity.Identity
	swarm    *swarm.Swarm
	tls      *tls.Config
	metrics  *metrics.Metrics

	mu    sync.Mutex
	bound []multiaddr.Multiaddr
}

// NewServer 创建服务端，tlsConfig 与 m 可以为 nil
func NewServer(cfg *config.Config, id *identity.Identity, sw *swarm.Swarm, tlsConfig *tls.Config, m *metrics.Metrics) *Server {
	return &Server{
		config:   cfg,
		identity: id,
		swarm:    sw,
		tls:      tlsConfig,
		metrics:  m,
	}
}

// PeerID 本地节点 ID
func (s *Server) PeerID() string {
	return s.identity.PeerID().String()
}

// Run 绑定监听地址并运行事件循环
//
// 只有绑定失败、指标端点失败或上下文取消时返回；取消时返回 nil。
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Listen 绑定配置中的全部监听地址
func (s *Server) Listen() error {
	log.Info("Rendezvous server peer id", "peer", s.identity.PeerID().String())

	addrs, err := s.config.ListenAddrs(s.tls != nil)
	if err != nil {
		return err
	}
	for _, la := range addrs {
		bound, err := s.swarm.Listen(la.Addr)
		if err != nil {
			return fmt.Errorf("Failed to initialize %s: %w", la.Name, err)
		}
		s.mu.Lock()
		s.bound = append(s.bound, bound)
		s.mu.Unlock()
	}
	return nil
}

// BoundAddrs 已绑定的监听地址（端口 0 已替换为实际端口）
func (s *Server) BoundAddrs() []multiaddr.Multiaddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]multiaddr.Multiaddr(nil), s.bound...)
}

// Serve 运行事件循环，启用指标时同时提供 /metrics
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.loop(ctx)
	})
	if s.metrics != nil && s.config.Metrics.ListenAddr != "" {
		addr := s.config.Metrics.ListenAddr
		g.Go(func() error {
			if err := s.metrics.Serve(ctx, addr); err != nil {
				return fmt.Errorf("metrics endpoint %s: %w", addr, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// loop 按到达顺序处理 Swarm 事件
func (s *Server) loop(ctx context.Context) error {
	for {
		ev, err := s.swarm.NextEvent(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, swarm.ErrSwarmClosed) {
				return nil
			}
			return err
		}
		handleEvent(ev)
	}
}
