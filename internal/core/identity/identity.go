// Package identity 管理节点的 Ed25519 身份
//
// 身份只在启动时加载或生成一次，之后只读共享。
package identity

import (
	"crypto/rand"
	"fmt"

	"github.com/dep2p/rendezvous-server/pkg/lib/crypto"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// ============================================================================
//                              Identity 实现
// ============================================================================

// Identity 节点身份（Ed25519 密钥对与派生的 PeerID）
type Identity struct {
	priv   *crypto.Ed25519PrivateKey
	peerID types.PeerID
}

// New 从私钥创建身份
func New(priv *crypto.Ed25519PrivateKey) (*Identity, error) {
	if priv == nil {
		return nil, ErrNilPrivateKey
	}
	id, err := crypto.PeerIDFromPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}
	return &Identity{priv: priv, peerID: id}, nil
}

// Generate 生成新的随机身份（不落盘）
func Generate() (*Identity, error) {
	seed := make([]byte, crypto.Ed25519SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return FromSeed(seed)
}

// FromSeed 从 32 字节种子还原身份
func FromSeed(seed []byte) (*Identity, error) {
	priv, err := crypto.Ed25519KeyFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyBytes, err)
	}
	return New(priv)
}

// PeerID 返回节点 ID
func (i *Identity) PeerID() types.PeerID {
	return i.peerID
}

// PrivateKey 返回私钥
func (i *Identity) PrivateKey() crypto.PrivateKey {
	return i.priv
}

// PublicKey 返回公钥
func (i *Identity) PublicKey() crypto.PublicKey {
	return i.priv.GetPublic()
}

// Seed 返回 32 字节种子
func (i *Identity) Seed() []byte {
	return i.priv.Seed()
}

// Sign 签名数据
func (i *Identity) Sign(data []byte) ([]byte, error) {
	return i.priv.Sign(data)
}
