package upgrader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dep2p/rendezvous-server/internal/core/muxer"
	"github.com/dep2p/rendezvous-server/internal/core/security/noise"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

var log = logger.Logger("core/upgrader")

// DefaultUpgradeTimeout 从原始连接建立到多路复用就绪的时限
const DefaultUpgradeTimeout = 20 * time.Second

// Direction 连接方向
type Direction int

const (
	// DirInbound 入站（本地为响应方）
	DirInbound Direction = iota
	// DirOutbound 出站（本地为发起方）
	DirOutbound
)

func (d Direction) String() string {
	if d == DirOutbound {
		return "outbound"
	}
	return "inbound"
}

// ============================================================================
//                              Upgrader
// ============================================================================

// Upgrader 连接升级器
type Upgrader struct {
	security *noise.Transport
	muxers   []muxer.Multiplexer
	timeout  time.Duration
	stages   []stage
}

// Option 配置选项
type Option func(*Upgrader)

// WithUpgradeTimeout 设置升级时限
func WithUpgradeTimeout(d time.Duration) Option {
	return func(u *Upgrader) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// WithMuxers 按优先级指定多路复用器
func WithMuxers(m ...muxer.Multiplexer) Option {
	return func(u *Upgrader) {
		u.muxers = m
	}
}

// New 创建连接升级器
//
// 默认提供 yamux 与 mplex，时限为 DefaultUpgradeTimeout。
func New(security *noise.Transport, opts ...Option) (*Upgrader, error) {
	if security == nil {
		return nil, ErrNilSecurity
	}
	u := &Upgrader{
		security: security,
		muxers:   muxer.Default(),
		timeout:  DefaultUpgradeTimeout,
		stages:   pipeline(),
	}
	for _, opt := range opts {
		opt(u)
	}
	if len(u.muxers) == 0 {
		return nil, ErrNoStreamMuxer
	}
	return u, nil
}

// LocalPeer 返回本地 PeerID
func (u *Upgrader) LocalPeer() types.PeerID {
	return u.security.LocalPeer()
}

// Timeout 返回升级时限
func (u *Upgrader) Timeout() time.Duration {
	return u.timeout
}

// Upgrade 依次执行各阶段
//
// remotePeer 为空时接受任意对端；出站时非空则校验握手得到的身份。
// 失败时关闭 raw 并返回 *UpgradeError。
func (u *Upgrader) Upgrade(ctx context.Context, raw net.Conn, dir Direction, remotePeer types.PeerID) (*Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	st := &state{raw: raw, dir: dir, remotePeer: remotePeer}
	for _, s := range u.stages {
		log.Debug("执行升级阶段", "stage", s.name, "direction", dir)
		if err := s.run(ctx, u, st); err != nil {
			raw.Close()
			err = classify(ctx, err)
			log.Debug("升级失败", "stage", s.name, "direction", dir, "error", err)
			return nil, &UpgradeError{Stage: s.name, Err: err}
		}
	}

	muxed, err := st.muxer.NewConn(st.secure, dir == DirInbound)
	if err != nil {
		raw.Close()
		return nil, &UpgradeError{Stage: StageNegotiateMuxer, Err: err}
	}

	c := newConn(muxed, st.secure, raw, u.security.ID(), st.muxer.ID(), dir)
	log.Debug("连接升级成功",
		"remotePeer", c.RemotePeer().ShortString(),
		"security", c.Security(),
		"muxer", c.Muxer())
	return c, nil
}

// classify 把截止时间到期归为 ErrUpgradeTimeout
func classify(ctx context.Context, err error) error {
	expired := errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		expired = true
	}
	if expired {
		return fmt.Errorf("%w: %w", ErrUpgradeTimeout, err)
	}
	return err
}
