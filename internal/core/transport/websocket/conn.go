package websocket

import (
	"io"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// closeWriteTimeout 发送关闭帧的时限
const closeWriteTimeout = time.Second

// ============================================================================
//                              Conn 实现
// ============================================================================

// conn 把 WebSocket 消息流适配为字节流
type conn struct {
	*ws.Conn

	laddr multiaddr.Multiaddr
	raddr multiaddr.Multiaddr

	readMu sync.Mutex
	reader io.Reader

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(c *ws.Conn, laddr, raddr multiaddr.Multiaddr) *conn {
	return &conn{Conn: c, laddr: laddr, raddr: raddr}
}

// Read 依次读取各消息的内容
func (c *conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		if c.reader == nil {
			_, r, err := c.Conn.NextReader()
			if err != nil {
				if ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			c.reader = r
		}

		n, err := c.reader.Read(p)
		if err == io.EOF {
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write 每次写入作为一个二进制消息发送
func (c *conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.Conn.WriteMessage(ws.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close 发送关闭帧后关闭底层连接
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.Conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(closeWriteTimeout))
		c.writeMu.Unlock()
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// SetDeadline 同时设置读写截止时间
func (c *conn) SetDeadline(t time.Time) error {
	if err := c.Conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.Conn.SetWriteDeadline(t)
}

func (c *conn) LocalMultiaddr() multiaddr.Multiaddr {
	return c.laddr
}

func (c *conn) RemoteMultiaddr() multiaddr.Multiaddr {
	return c.raddr
}
