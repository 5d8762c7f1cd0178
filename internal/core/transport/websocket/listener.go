package websocket

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

const (
	readHeaderTimeout = 10 * time.Second
	acceptBacklog     = 16
)

// ============================================================================
//                              Listener 实现
// ============================================================================

// listener 接收 HTTP 升级请求并交付 WebSocket 连接
type listener struct {
	raw    interfaces.Listener
	laddr  multiaddr.Multiaddr
	suffix multiaddr.Multiaddr

	server   *http.Server
	upgrader ws.Upgrader

	incoming  chan *conn
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ interfaces.Listener = (*listener)(nil)

func newListener(raw interfaces.Listener, suffix multiaddr.Multiaddr, tlsConf *tls.Config) *listener {
	l := &listener{
		raw:    raw,
		laddr:  raw.Multiaddr().Encapsulate(suffix),
		suffix: suffix,
		upgrader: ws.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		incoming: make(chan *conn, acceptBacklog),
		closed:   make(chan struct{}),
	}
	l.server = &http.Server{
		Handler:           l,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelDebug),
	}

	var nl net.Listener = netListener{raw}
	if tlsConf != nil {
		nl = tls.NewListener(nl, tlsConf)
	}
	go l.serve(nl)
	return l
}

func (l *listener) serve(nl net.Listener) {
	err := l.server.Serve(nl)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Debug("WebSocket 服务退出", "addr", l.laddr, "error", err)
	}
	l.Close()
}

// ServeHTTP 完成升级后把连接放入接收队列
func (l *listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wc, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("WebSocket 升级失败", "remote", r.RemoteAddr, "error", err)
		return
	}

	laddr, err := multiaddr.FromNetAddr(wc.LocalAddr())
	if err != nil {
		wc.Close()
		return
	}
	raddr, err := multiaddr.FromNetAddr(wc.RemoteAddr())
	if err != nil {
		wc.Close()
		return
	}

	c := newConn(wc, laddr.Encapsulate(l.suffix), raddr.Encapsulate(l.suffix))
	select {
	case l.incoming <- c:
	case <-l.closed:
		c.Close()
	}
}

// Accept 返回下一个已升级的连接
func (l *listener) Accept() (interfaces.Conn, error) {
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.closed:
		return nil, ErrListenerClosed
	}
}

// Close 停止 HTTP 服务并关闭排队中的连接
func (l *listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.closeErr = l.server.Close()
		l.raw.Close()
		for {
			select {
			case c := <-l.incoming:
				c.Close()
			default:
				return
			}
		}
	})
	return l.closeErr
}

func (l *listener) Addr() net.Addr {
	return l.raw.Addr()
}

func (l *listener) Multiaddr() multiaddr.Multiaddr {
	return l.laddr
}

// netListener 把内层监听器适配为 net.Listener
type netListener struct {
	interfaces.Listener
}

func (n netListener) Accept() (net.Conn, error) {
	return n.Listener.Accept()
}
