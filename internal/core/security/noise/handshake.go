package noise

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/flynn/noise"

	"github.com/dep2p/rendezvous-server/pkg/lib/crypto"
	noisepb "github.com/dep2p/rendezvous-server/pkg/lib/proto/noise"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// payloadSigPrefix 签名 payload 的前缀，与 libp2p-noise 规范兼容
const payloadSigPrefix = "noise-libp2p-static-key:"

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// ============================================================================
// Noise XX 握手实现
// ============================================================================

// performHandshake 执行 Noise XX 握手
//
// remotePeer 非空时校验对端身份，不匹配返回 ErrPeerIDMismatch。
func performHandshake(conn net.Conn, priv crypto.PrivateKey, localPeer, remotePeer types.PeerID, initiator bool) (*Conn, error) {
	// 1. 每条连接使用新的 X25519 静态密钥
	static, err := cipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate static key: %w", err)
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: static,
	})
	if err != nil {
		return nil, fmt.Errorf("create handshake state: %w", err)
	}

	// 2. 本地 payload：身份公钥 + 对静态公钥的签名
	localPayload, err := generateHandshakePayload(priv, static.Public)
	if err != nil {
		return nil, err
	}

	// 3. 三轮消息
	var sendCS, recvCS *noise.CipherState
	var remotePayload []byte
	if initiator {
		sendCS, recvCS, remotePayload, err = clientHandshake(conn, hs, localPayload)
	} else {
		sendCS, recvCS, remotePayload, err = serverHandshake(conn, hs, localPayload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}

	// 4. 校验对端 payload
	remotePub, actual, err := handleRemotePayload(remotePayload, hs.PeerStatic())
	if err != nil {
		return nil, err
	}
	if remotePeer != "" && actual != remotePeer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrPeerIDMismatch, remotePeer, actual)
	}

	return &Conn{
		Conn:       conn,
		sendCS:     sendCS,
		recvCS:     recvCS,
		localPeer:  localPeer,
		remotePeer: actual,
		remotePub:  remotePub,
	}, nil
}

// generateHandshakePayload 生成握手 payload
func generateHandshakePayload(priv crypto.PrivateKey, staticPub []byte) ([]byte, error) {
	identityKey, err := crypto.MarshalPublicKey(priv.GetPublic())
	if err != nil {
		return nil, fmt.Errorf("marshal identity key: %w", err)
	}

	sig, err := priv.Sign(append([]byte(payloadSigPrefix), staticPub...))
	if err != nil {
		return nil, fmt.Errorf("sign static key: %w", err)
	}

	payload := &noisepb.NoiseHandshakePayload{
		IdentityKey: identityKey,
		IdentitySig: sig,
	}
	return payload.Marshal()
}

// handleRemotePayload 校验签名并派生对端 PeerID
func handleRemotePayload(data, remoteStatic []byte) (crypto.PublicKey, types.PeerID, error) {
	if len(remoteStatic) != noise.DH25519.DHLen() {
		return nil, "", fmt.Errorf("%w: remote static key length %d", ErrInvalidHandshake, len(remoteStatic))
	}

	payload := &noisepb.NoiseHandshakePayload{}
	if err := payload.Unmarshal(data); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}

	pub, err := crypto.UnmarshalPublicKey(payload.IdentityKey)
	if err != nil {
		return nil, "", fmt.Errorf("%w: identity key: %v", ErrInvalidHandshake, err)
	}

	ok, err := pub.Verify(append([]byte(payloadSigPrefix), remoteStatic...), payload.IdentitySig)
	if err != nil || !ok {
		return nil, "", ErrInvalidSignature
	}

	id, err := crypto.PeerIDFromPublicKey(pub)
	if err != nil {
		return nil, "", fmt.Errorf("derive peer id: %w", err)
	}
	return pub, id, nil
}

// ============================================================================
// 握手流程
// ============================================================================

// clientHandshake 发起者：-> e；<- e, ee, s, es；-> s, se
func clientHandshake(conn net.Conn, hs *noise.HandshakeState, localPayload []byte) (*noise.CipherState, *noise.CipherState, []byte, error) {
	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 1: %w", err)
	}
	if err := writeFrame(conn, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 1: %w", err)
	}

	msg2, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 2: %w", err)
	}
	remotePayload, _, _, err := hs.ReadMessage(nil, msg2)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 2: %w", err)
	}

	msg3, cs1, cs2, err := hs.WriteMessage(nil, localPayload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 3: %w", err)
	}
	if err := writeFrame(conn, msg3); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 3: %w", err)
	}

	// 发起者：cs1 发送，cs2 接收
	return cs1, cs2, remotePayload, nil
}

// serverHandshake 响应者：<- e；-> e, ee, s, es；<- s, se
func serverHandshake(conn net.Conn, hs *noise.HandshakeState, localPayload []byte) (*noise.CipherState, *noise.CipherState, []byte, error) {
	msg1, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 1: %w", err)
	}
	if _, _, _, err := hs.ReadMessage(nil, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("read message 1: %w", err)
	}

	msg2, _, _, err := hs.WriteMessage(nil, localPayload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 2: %w", err)
	}
	if err := writeFrame(conn, msg2); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 2: %w", err)
	}

	msg3, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 3: %w", err)
	}
	remotePayload, cs1, cs2, err := hs.ReadMessage(nil, msg3)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 3: %w", err)
	}

	// 响应者与发起者相反
	return cs2, cs1, remotePayload, nil
}

// ============================================================================
// 帧
// ============================================================================

// writeFrame 写入帧（2 字节长度 + 数据），一次 Write 完成
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame too large: %d", len(data))
	}
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取帧（2 字节长度 + 数据）
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	data := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
