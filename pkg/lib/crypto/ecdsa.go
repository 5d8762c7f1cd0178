package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"fmt"
	"io"

	sha256 "github.com/minio/sha256-simd"
)

// ECDSAPublicKey ECDSA 公钥，Raw 为 PKIX DER
type ECDSAPublicKey struct {
	k *ecdsa.PublicKey
}

func (k *ECDSAPublicKey) Raw() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(k.k)
}

func (k *ECDSAPublicKey) Type() KeyType {
	return KeyTypeECDSA
}

func (k *ECDSAPublicKey) Equals(other Key) bool {
	ek, ok := other.(*ECDSAPublicKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.Equal(ek.k)
}

// Verify 校验 ASN.1 编码的签名（对 SHA-256 摘要）
func (k *ECDSAPublicKey) Verify(data, sig []byte) (bool, error) {
	hash := sha256.Sum256(data)
	return ecdsa.VerifyASN1(k.k, hash[:], sig), nil
}

// ECDSAPrivateKey ECDSA 私钥
type ECDSAPrivateKey struct {
	k *ecdsa.PrivateKey
}

func (k *ECDSAPrivateKey) Raw() ([]byte, error) {
	return x509.MarshalECPrivateKey(k.k)
}

func (k *ECDSAPrivateKey) Type() KeyType {
	return KeyTypeECDSA
}

func (k *ECDSAPrivateKey) Equals(other Key) bool {
	return KeyEqual(k, other)
}

func (k *ECDSAPrivateKey) GetPublic() PublicKey {
	return &ECDSAPublicKey{k: &k.k.PublicKey}
}

func (k *ECDSAPrivateKey) Sign(data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)
	return ecdsa.SignASN1(randReader(), k.k, hash[:])
}

// GenerateECDSAKey 生成 P-256 密钥对
func GenerateECDSAKey(src io.Reader) (PrivateKey, PublicKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), src)
	if err != nil {
		return nil, nil, err
	}
	k := &ECDSAPrivateKey{k: priv}
	return k, k.GetPublic(), nil
}

// UnmarshalECDSAPublicKey 解析 PKIX DER 公钥
func UnmarshalECDSAPublicKey(data []byte) (PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: ecdsa: %v", ErrInvalidPublicKey, err)
	}
	ek, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ecdsa key", ErrInvalidPublicKey)
	}
	return &ECDSAPublicKey{k: ek}, nil
}
