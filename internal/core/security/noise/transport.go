package noise

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/lib/crypto"
	"github.com/dep2p/rendezvous-server/pkg/protocolids"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

var log = logger.Logger("core/security/noise")

// ID Noise 协议标识
const ID = string(protocolids.Noise)

// Transport Noise 安全传输
type Transport struct {
	priv      crypto.PrivateKey
	localPeer types.PeerID
}

// New 创建 Noise 传输
func New(priv crypto.PrivateKey) (*Transport, error) {
	if priv == nil {
		return nil, ErrNilPrivateKey
	}
	id, err := crypto.PeerIDFromPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("derive local peer id: %w", err)
	}
	return &Transport{priv: priv, localPeer: id}, nil
}

// ID 返回协议标识
func (t *Transport) ID() string {
	return ID
}

// LocalPeer 返回本地节点 ID
func (t *Transport) LocalPeer() types.PeerID {
	return t.localPeer
}

// SecureInbound 保护入站连接（响应者）
func (t *Transport) SecureInbound(ctx context.Context, conn net.Conn) (*Conn, error) {
	return t.secure(ctx, conn, "", false)
}

// SecureOutbound 保护出站连接（发起者）
func (t *Transport) SecureOutbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (*Conn, error) {
	return t.secure(ctx, conn, remotePeer, true)
}

func (t *Transport) secure(ctx context.Context, conn net.Conn, remotePeer types.PeerID, initiator bool) (*Conn, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: conn is nil", ErrInvalidHandshake)
	}

	// ctx 的截止时间作用于握手期间的读写
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err == nil {
			defer conn.SetDeadline(time.Time{})
		}
	}

	sc, err := performHandshake(conn, t.priv, t.localPeer, remotePeer, initiator)
	if err != nil {
		log.Debug("Noise 握手失败", "initiator", initiator, "remote", conn.RemoteAddr(), "error", err)
		return nil, err
	}
	log.Debug("Noise 握手成功", "initiator", initiator, "peer", sc.RemotePeer().ShortString())
	return sc, nil
}
