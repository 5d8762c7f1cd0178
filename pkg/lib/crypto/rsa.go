package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"

	sha256 "github.com/minio/sha256-simd"
)

// MinRSAKeyBits 接受的最小 RSA 位数
const MinRSAKeyBits = 2048

// RSAPublicKey RSA 公钥，Raw 为 PKIX DER
type RSAPublicKey struct {
	k *rsa.PublicKey
}

func (k *RSAPublicKey) Raw() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(k.k)
}

func (k *RSAPublicKey) Type() KeyType {
	return KeyTypeRSA
}

func (k *RSAPublicKey) Equals(other Key) bool {
	rk, ok := other.(*RSAPublicKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.Equal(rk.k)
}

// Verify 校验 PKCS#1 v1.5 签名（对 SHA-256 摘要）
func (k *RSAPublicKey) Verify(data, sig []byte) (bool, error) {
	hash := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(k.k, crypto.SHA256, hash[:], sig); err != nil {
		return false, nil
	}
	return true, nil
}

// RSAPrivateKey RSA 私钥
type RSAPrivateKey struct {
	k *rsa.PrivateKey
}

func (k *RSAPrivateKey) Raw() ([]byte, error) {
	return x509.MarshalPKCS1PrivateKey(k.k), nil
}

func (k *RSAPrivateKey) Type() KeyType {
	return KeyTypeRSA
}

func (k *RSAPrivateKey) Equals(other Key) bool {
	return KeyEqual(k, other)
}

func (k *RSAPrivateKey) GetPublic() PublicKey {
	return &RSAPublicKey{k: &k.k.PublicKey}
}

func (k *RSAPrivateKey) Sign(data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)
	return rsa.SignPKCS1v15(randReader(), k.k, crypto.SHA256, hash[:])
}

// GenerateRSAKey 生成 RSA 密钥对
func GenerateRSAKey(bits int, src io.Reader) (PrivateKey, PublicKey, error) {
	if bits < MinRSAKeyBits {
		return nil, nil, ErrRSAKeyTooSmall
	}
	priv, err := rsa.GenerateKey(src, bits)
	if err != nil {
		return nil, nil, err
	}
	k := &RSAPrivateKey{k: priv}
	return k, k.GetPublic(), nil
}

// UnmarshalRSAPublicKey 解析 PKIX DER 公钥
func UnmarshalRSAPublicKey(data []byte) (PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: rsa: %v", ErrInvalidPublicKey, err)
	}
	rk, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an rsa key", ErrInvalidPublicKey)
	}
	if rk.N.BitLen() < MinRSAKeyBits {
		return nil, ErrRSAKeyTooSmall
	}
	return &RSAPublicKey{k: rk}, nil
}

func randReader() io.Reader {
	return rand.Reader
}
