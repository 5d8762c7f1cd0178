// Package types 定义 rendezvous-server 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
package types

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58/base58"
	"github.com/multiformats/go-varint"
)

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// multihash 代码
const (
	MultihashIdentity = 0x00
	MultihashSHA256   = 0x12
)

// MaxInlineKeyLength 公钥编码不超过此长度时直接内联进 PeerID（identity multihash）
const MaxInlineKeyLength = 42

var (
	// ErrInvalidPeerID 无效的 PeerID
	ErrInvalidPeerID = errors.New("invalid peer ID")

	// ErrEmptyPeerID 空 PeerID
	ErrEmptyPeerID = errors.New("empty peer ID")
)

// PeerID 节点唯一标识符
//
// 内部保存 multihash 原始字节，String() 返回 base58btc 编码，
// Ed25519 密钥对应的外部形式为 12D3KooW...
type PeerID string

// EmptyPeerID 空 PeerID
const EmptyPeerID PeerID = ""

// String 返回 base58 编码
func (id PeerID) String() string {
	return base58.Encode([]byte(id))
}

// ShortString 返回日志用的短标识
func (id PeerID) ShortString() string {
	s := id.String()
	if len(s) <= 10 {
		return s
	}
	return s[:2] + "*" + s[len(s)-6:]
}

// Bytes 返回 multihash 字节
func (id PeerID) Bytes() []byte {
	return []byte(id)
}

// IsEmpty 检查是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// MarshalText 实现 encoding.TextMarshaler
func (id PeerID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (id *PeerID) UnmarshalText(b []byte) error {
	p, err := Decode(string(b))
	if err != nil {
		return err
	}
	*id = p
	return nil
}

// Validate 检查 multihash 结构
func (id PeerID) Validate() error {
	if id == EmptyPeerID {
		return ErrEmptyPeerID
	}
	_, _, err := splitMultihash([]byte(id))
	return err
}

// InlinePublicKey 返回 identity multihash 中内联的公钥编码
func (id PeerID) InlinePublicKey() ([]byte, bool) {
	code, digest, err := splitMultihash([]byte(id))
	if err != nil || code != MultihashIdentity {
		return nil, false
	}
	return digest, true
}

// IDFromBytes 从 multihash 字节创建 PeerID
func IDFromBytes(b []byte) (PeerID, error) {
	if _, _, err := splitMultihash(b); err != nil {
		return EmptyPeerID, err
	}
	return PeerID(b), nil
}

// Decode 解析 base58 编码的 PeerID
func Decode(s string) (PeerID, error) {
	if s == "" {
		return EmptyPeerID, ErrEmptyPeerID
	}
	b, err := base58.Decode(s)
	if err != nil {
		return EmptyPeerID, fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	return IDFromBytes(b)
}

// EncodeMultihash 构造 <code><len><digest>
func EncodeMultihash(code uint64, digest []byte) []byte {
	out := varint.ToUvarint(code)
	out = append(out, varint.ToUvarint(uint64(len(digest)))...)
	return append(out, digest...)
}

func splitMultihash(b []byte) (uint64, []byte, error) {
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: multihash code: %v", ErrInvalidPeerID, err)
	}
	length, m, err := varint.FromUvarint(b[n:])
	if err != nil {
		return 0, nil, fmt.Errorf("%w: multihash length: %v", ErrInvalidPeerID, err)
	}
	digest := b[n+m:]
	if uint64(len(digest)) != length {
		return 0, nil, fmt.Errorf("%w: multihash length mismatch", ErrInvalidPeerID)
	}
	return code, digest, nil
}
