package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"

	ws "github.com/gorilla/websocket"

	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

var log = logger.Logger("core/transport/websocket")

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport WebSocket 传输
type Transport struct {
	inner     interfaces.Transport
	serverTLS *tls.Config
	clientTLS *tls.Config
}

var _ interfaces.Transport = (*Transport)(nil)

// Option 配置选项
type Option func(*Transport)

// WithClientTLS 指定拨号 /wss 时使用的 TLS 配置
func WithClientTLS(cfg *tls.Config) Option {
	return func(t *Transport) {
		t.clientTLS = cfg
	}
}

// New 在 inner 之上创建 WebSocket 传输
//
// serverTLS 为 nil 时只能监听 /ws。
func New(inner interfaces.Transport, serverTLS *tls.Config, opts ...Option) *Transport {
	t := &Transport{inner: inner, serverTLS: serverTLS}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// split 拆出内层地址与 /ws|/wss 后缀
func split(addr multiaddr.Multiaddr) (prefix multiaddr.Multiaddr, suffix multiaddr.Multiaddr, secure bool, ok bool) {
	if addr == nil {
		return nil, nil, false, false
	}
	prefix, last := multiaddr.SplitLast(addr)
	if prefix == nil {
		return nil, nil, false, false
	}
	switch last.Protocol().Code {
	case multiaddr.P_WS:
		return prefix, last.Multiaddr(), false, true
	case multiaddr.P_WSS:
		return prefix, last.Multiaddr(), true, true
	}
	return nil, nil, false, false
}

// CanDial 以 /ws 或 /wss 结尾且前缀可由内层拨号
func (t *Transport) CanDial(addr multiaddr.Multiaddr) bool {
	prefix, _, _, ok := split(addr)
	return ok && t.inner.CanDial(prefix)
}

// CanListen 以 /ws 或 /wss 结尾且前缀可由内层监听
func (t *Transport) CanListen(addr multiaddr.Multiaddr) bool {
	prefix, _, _, ok := split(addr)
	return ok && t.inner.CanListen(prefix)
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []int {
	return []int{multiaddr.P_WS, multiaddr.P_WSS}
}

// Dial 经内层建立连接后完成 HTTP 升级
func (t *Transport) Dial(ctx context.Context, raddr multiaddr.Multiaddr) (interfaces.Conn, error) {
	prefix, suffix, secure, ok := split(raddr)
	if !ok || !t.inner.CanDial(prefix) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, raddr)
	}

	u, err := dialURL(prefix, secure)
	if err != nil {
		return nil, err
	}

	raw, err := t.inner.Dial(ctx, prefix)
	if err != nil {
		return nil, err
	}

	dialer := ws.Dialer{
		NetDialContext: func(context.Context, string, string) (net.Conn, error) {
			return raw, nil
		},
		TLSClientConfig: t.clientTLS,
	}
	wc, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("websocket handshake with %s: %w", raddr, err)
	}

	log.Debug("WebSocket 拨号成功", "addr", raddr)
	return newConn(wc, raw.LocalMultiaddr().Encapsulate(suffix), raddr), nil
}

// dialURL 由首个组件（IP 或域名）和 TCP 端口构造请求 URL
//
// 域名保留在 URL 中，TLS 握手使用它作为 SNI。
func dialURL(prefix multiaddr.Multiaddr, secure bool) (string, error) {
	first, _ := multiaddr.SplitFirst(prefix)
	host, err := first.ValueString()
	if err != nil {
		return "", err
	}
	port, err := prefix.ValueForProtocol(multiaddr.P_TCP)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAddr, prefix)
	}

	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: net.JoinHostPort(host, port), Path: "/"}
	return u.String(), nil
}

// Listen 在内层监听器上运行 HTTP 服务
func (t *Transport) Listen(laddr multiaddr.Multiaddr) (interfaces.Listener, error) {
	prefix, suffix, secure, ok := split(laddr)
	if !ok || !t.inner.CanListen(prefix) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, laddr)
	}

	var tlsConf *tls.Config
	if secure {
		if t.serverTLS == nil {
			return nil, ErrNoTLSConfig
		}
		tlsConf = t.serverTLS
	}

	raw, err := t.inner.Listen(prefix)
	if err != nil {
		return nil, err
	}

	l := newListener(raw, suffix, tlsConf)
	log.Debug("WebSocket 监听已启动", "addr", l.Multiaddr())
	return l, nil
}
