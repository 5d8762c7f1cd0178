package crypto

import "errors"

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrBadKeyType 不支持的密钥类型
	ErrBadKeyType = errors.New("invalid or unsupported key type")

	// ErrNilPublicKey 公钥为空
	ErrNilPublicKey = errors.New("nil public key")

	// ErrInvalidKeySize 密钥大小无效
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidPublicKey 公钥无效
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrRSAKeyTooSmall RSA 密钥位数不足
	ErrRSAKeyTooSmall = errors.New("rsa keys must be >= 2048 bits to be useful")

	// ErrUnmarshalFailed 反序列化失败
	ErrUnmarshalFailed = errors.New("unmarshal failed")

	// ErrPeerIDMismatch 公钥与 PeerID 不匹配
	ErrPeerIDMismatch = errors.New("public key does not match peer ID")
)
