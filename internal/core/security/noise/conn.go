package noise

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/flynn/noise"

	"github.com/dep2p/rendezvous-server/pkg/lib/crypto"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

const (
	// maxFrameSize 单帧密文上限
	maxFrameSize = 65535

	// maxPlaintext 单帧明文上限（扣除 16 字节 AEAD 标签）
	maxPlaintext = maxFrameSize - 16
)

// ============================================================================
// Conn 实现
// ============================================================================

// Conn Noise 安全连接
type Conn struct {
	net.Conn

	sendCS *noise.CipherState
	recvCS *noise.CipherState

	localPeer  types.PeerID
	remotePeer types.PeerID
	remotePub  crypto.PublicKey

	readMu  sync.Mutex
	writeMu sync.Mutex

	// readBuf 上一帧未读完的明文
	readBuf []byte
}

// Read 读取并解密数据
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.readBuf) > 0 {
		n := copy(p, c.readBuf)
		c.readBuf = c.readBuf[n:]
		return n, nil
	}

	for {
		frame, err := readFrame(c.Conn)
		if err != nil {
			return 0, err
		}
		plaintext, err := c.recvCS.Decrypt(nil, nil, frame)
		if err != nil {
			return 0, fmt.Errorf("decrypt: %w", err)
		}
		// 空帧合法，继续读下一帧
		if len(plaintext) == 0 {
			continue
		}
		n := copy(p, plaintext)
		if n < len(plaintext) {
			c.readBuf = plaintext[n:]
		}
		return n, nil
	}
}

// Write 加密并写入数据，超过单帧上限时分片
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for written < len(p) {
		end := written + maxPlaintext
		if end > len(p) {
			end = len(p)
		}

		buf := make([]byte, 2, 2+end-written+16)
		buf, err := c.sendCS.Encrypt(buf, nil, p[written:end])
		if err != nil {
			return written, fmt.Errorf("encrypt: %w", err)
		}
		binary.BigEndian.PutUint16(buf, uint16(len(buf)-2))
		if _, err := c.Conn.Write(buf); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

// LocalPeer 返回本地节点 ID
func (c *Conn) LocalPeer() types.PeerID {
	return c.localPeer
}

// RemotePeer 返回对端节点 ID
func (c *Conn) RemotePeer() types.PeerID {
	return c.remotePeer
}

// RemotePublicKey 返回对端身份公钥
func (c *Conn) RemotePublicKey() crypto.PublicKey {
	return c.remotePub
}

var _ io.ReadWriteCloser = (*Conn)(nil)
