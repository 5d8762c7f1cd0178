package noise

import "errors"

var (
	// ErrNilPrivateKey 未提供身份私钥
	ErrNilPrivateKey = errors.New("noise: private key is nil")

	// ErrInvalidHandshake 握手失败
	ErrInvalidHandshake = errors.New("noise: invalid handshake")

	// ErrInvalidSignature 静态公钥未被对端身份密钥签名
	ErrInvalidSignature = errors.New("noise: remote static key not bound to identity key")

	// ErrPeerIDMismatch PeerID 不匹配
	ErrPeerIDMismatch = errors.New("noise: peer ID mismatch")
)
