// Package crypto 提供节点身份使用的密钥、签名与序列化
//
// 密钥的 protobuf 编码与 libp2p 的 PublicKey 消息兼容：
//
//	message PublicKey { KeyType Type = 1; bytes Data = 2; }
//
// 生产代码只持有 Ed25519 身份；其余密钥类型用于校验对端签名的记录。
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
)

// ============================================================================
//                              密钥类型定义
// ============================================================================

// KeyType 密钥类型，取值与 libp2p KeyType 枚举一致
type KeyType int

const (
	KeyTypeRSA       KeyType = 0
	KeyTypeEd25519   KeyType = 1
	KeyTypeSecp256k1 KeyType = 2
	KeyTypeECDSA     KeyType = 3
)

// String 返回密钥类型名称
func (kt KeyType) String() string {
	switch kt {
	case KeyTypeRSA:
		return "RSA"
	case KeyTypeEd25519:
		return "Ed25519"
	case KeyTypeSecp256k1:
		return "Secp256k1"
	case KeyTypeECDSA:
		return "ECDSA"
	default:
		return fmt.Sprintf("KeyType(%d)", int(kt))
	}
}

// ============================================================================
//                              密钥接口定义
// ============================================================================

// Key 基础密钥接口
type Key interface {
	// Raw 返回原始密钥字节（即 protobuf Data 字段）
	Raw() ([]byte, error)

	// Type 返回密钥类型
	Type() KeyType

	// Equals 比较两个密钥是否相等
	Equals(Key) bool
}

// PublicKey 公钥接口
type PublicKey interface {
	Key

	// Verify 验证 data 上的签名
	Verify(data, sig []byte) (bool, error)
}

// PrivateKey 私钥接口
type PrivateKey interface {
	Key

	// Sign 签名数据
	Sign(data []byte) ([]byte, error)

	// GetPublic 返回对应的公钥
	GetPublic() PublicKey
}

// ============================================================================
//                              密钥工厂函数
// ============================================================================

// GenerateKeyPair 使用系统随机源生成密钥对
func GenerateKeyPair(keyType KeyType) (PrivateKey, PublicKey, error) {
	return GenerateKeyPairWithReader(keyType, rand.Reader)
}

// GenerateKeyPairWithReader 使用指定随机源生成密钥对
func GenerateKeyPairWithReader(keyType KeyType, src io.Reader) (PrivateKey, PublicKey, error) {
	switch keyType {
	case KeyTypeEd25519:
		return GenerateEd25519Key(src)
	case KeyTypeSecp256k1:
		return GenerateSecp256k1Key(src)
	case KeyTypeECDSA:
		return GenerateECDSAKey(src)
	case KeyTypeRSA:
		return GenerateRSAKey(MinRSAKeyBits, src)
	default:
		return nil, nil, fmt.Errorf("%w: %v", ErrBadKeyType, keyType)
	}
}

// KeyEqual 按类型和原始字节比较两个密钥（常量时间）
func KeyEqual(a, b Key) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type() != b.Type() {
		return false
	}
	ar, err := a.Raw()
	if err != nil {
		return false
	}
	br, err := b.Raw()
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(ar, br) == 1
}
