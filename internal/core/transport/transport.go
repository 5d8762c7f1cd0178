package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/dep2p/rendezvous-server/internal/core/identity"
	"github.com/dep2p/rendezvous-server/internal/core/security/noise"
	"github.com/dep2p/rendezvous-server/internal/core/transport/dns"
	"github.com/dep2p/rendezvous-server/internal/core/transport/tcp"
	"github.com/dep2p/rendezvous-server/internal/core/transport/websocket"
	"github.com/dep2p/rendezvous-server/internal/core/upgrader"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

var log = logger.Logger("core/transport")

// ============================================================================
//                              构建选项
// ============================================================================

type buildOptions struct {
	resolver       dns.Resolver
	clientTLS      *tls.Config
	upgrader       *upgrader.Upgrader
	upgraderOpts   []upgrader.Option
	upgradeTimeout time.Duration
}

// Option 构建选项
type Option func(*buildOptions)

// WithResolver 指定 DNS 解析器
func WithResolver(r dns.Resolver) Option {
	return func(o *buildOptions) {
		o.resolver = r
	}
}

// WithClientTLS 指定拨号 /wss 时的 TLS 配置
func WithClientTLS(cfg *tls.Config) Option {
	return func(o *buildOptions) {
		o.clientTLS = cfg
	}
}

// WithUpgrader 使用已构建的升级器，忽略其余升级选项
func WithUpgrader(u *upgrader.Upgrader) Option {
	return func(o *buildOptions) {
		o.upgrader = u
	}
}

// WithUpgradeTimeout 设置升级时限
func WithUpgradeTimeout(d time.Duration) Option {
	return func(o *buildOptions) {
		o.upgradeTimeout = d
	}
}

// WithUpgraderOptions 透传升级器选项（如限定多路复用器）
func WithUpgraderOptions(opts ...upgrader.Option) Option {
	return func(o *buildOptions) {
		o.upgraderOpts = append(o.upgraderOpts, opts...)
	}
}

// ============================================================================
//                              Build
// ============================================================================

// Build 组装传输栈
//
// websocketEnabled 为假时只有 DNS+TCP；tlsConfig 非空时 WebSocket 层可监听 /wss。
func Build(id *identity.Identity, websocketEnabled bool, tlsConfig *tls.Config, opts ...Option) (*Upgraded, error) {
	if id == nil {
		return nil, ErrNilIdentity
	}

	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}

	u := o.upgrader
	if u == nil {
		nt, err := noise.New(id.PrivateKey())
		if err != nil {
			return nil, fmt.Errorf("noise: %w", err)
		}
		uopts := append([]upgrader.Option{upgrader.WithUpgradeTimeout(o.upgradeTimeout)}, o.upgraderOpts...)
		u, err = upgrader.New(nt, uopts...)
		if err != nil {
			return nil, err
		}
	}

	var dnsOpts []dns.Option
	if o.resolver != nil {
		dnsOpts = append(dnsOpts, dns.WithResolver(o.resolver))
	}
	base := dns.New(tcp.New(), dnsOpts...)

	raw := interfaces.Transport(base)
	if websocketEnabled {
		var wsOpts []websocket.Option
		if o.clientTLS != nil {
			wsOpts = append(wsOpts, websocket.WithClientTLS(o.clientTLS))
		}
		raw = Or(websocket.New(base, tlsConfig, wsOpts...), base)
	}

	log.Debug("传输栈已构建",
		"websocket", websocketEnabled,
		"wss", websocketEnabled && tlsConfig != nil,
		"upgradeTimeout", u.Timeout())
	return &Upgraded{raw: raw, upgrader: u}, nil
}

// ============================================================================
//                              Upgraded
// ============================================================================

// Upgraded 原始传输与升级器的组合
type Upgraded struct {
	raw      interfaces.Transport
	upgrader *upgrader.Upgrader
}

// LocalPeer 返回本地 PeerID
func (t *Upgraded) LocalPeer() types.PeerID {
	return t.upgrader.LocalPeer()
}

// CanDial 是否可拨号（忽略末尾的 /p2p）
func (t *Upgraded) CanDial(addr multiaddr.Multiaddr) bool {
	raw, _, err := splitPeer(addr)
	return err == nil && raw != nil && t.raw.CanDial(raw)
}

// CanListen 是否可监听
func (t *Upgraded) CanListen(addr multiaddr.Multiaddr) bool {
	return t.raw.CanListen(addr)
}

// Listen 绑定原始监听器
func (t *Upgraded) Listen(laddr multiaddr.Multiaddr) (interfaces.Listener, error) {
	return t.raw.Listen(laddr)
}

// Upgrade 升级一个入站原始连接
func (t *Upgraded) Upgrade(ctx context.Context, raw interfaces.Conn) (*upgrader.Conn, error) {
	return t.upgrader.Upgrade(ctx, raw, upgrader.DirInbound, "")
}

// Dial 拨号并升级
//
// 地址以 /p2p/<id> 结尾时校验对端身份。
func (t *Upgraded) Dial(ctx context.Context, raddr multiaddr.Multiaddr) (*upgrader.Conn, error) {
	addr, peer, err := splitPeer(raddr)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, raddr)
	}

	c, err := t.raw.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return t.upgrader.Upgrade(ctx, c, upgrader.DirOutbound, peer)
}

// splitPeer 拆出末尾的 /p2p/<id>
func splitPeer(addr multiaddr.Multiaddr) (multiaddr.Multiaddr, types.PeerID, error) {
	if addr == nil {
		return nil, "", ErrInvalidAddress
	}
	rest, last := multiaddr.SplitLast(addr)
	if last.Protocol().Code != multiaddr.P_P2P {
		return addr, "", nil
	}
	peer, err := types.IDFromBytes(last.RawValue())
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return rest, peer, nil
}
