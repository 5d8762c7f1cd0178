package crypto

import (
	"fmt"

	sha256 "github.com/minio/sha256-simd"

	"github.com/dep2p/rendezvous-server/pkg/types"
)

// ============================================================================
//                              PeerID 派生
// ============================================================================

// PeerIDFromPublicKey 从公钥派生 PeerID
//
// protobuf 编码不超过 42 字节时使用 identity multihash（Ed25519、secp256k1），
// 否则使用 sha2-256 multihash。
func PeerIDFromPublicKey(pub PublicKey) (types.PeerID, error) {
	data, err := MarshalPublicKey(pub)
	if err != nil {
		return types.EmptyPeerID, err
	}
	if len(data) <= types.MaxInlineKeyLength {
		return types.PeerID(types.EncodeMultihash(types.MultihashIdentity, data)), nil
	}
	sum := sha256.Sum256(data)
	return types.PeerID(types.EncodeMultihash(types.MultihashSHA256, sum[:])), nil
}

// PeerIDFromPrivateKey 从私钥派生 PeerID
func PeerIDFromPrivateKey(priv PrivateKey) (types.PeerID, error) {
	return PeerIDFromPublicKey(priv.GetPublic())
}

// PublicKeyFromPeerID 取出内联在 PeerID 中的公钥
func PublicKeyFromPeerID(id types.PeerID) (PublicKey, error) {
	data, ok := id.InlinePublicKey()
	if !ok {
		return nil, fmt.Errorf("%w: peer ID %s does not inline its key", ErrInvalidPublicKey, id)
	}
	return UnmarshalPublicKey(data)
}

// VerifyPeerID 检查公钥是否与 PeerID 对应
func VerifyPeerID(pub PublicKey, id types.PeerID) error {
	derived, err := PeerIDFromPublicKey(pub)
	if err != nil {
		return err
	}
	if derived != id {
		return fmt.Errorf("%w: expected %s, key gives %s", ErrPeerIDMismatch, id, derived)
	}
	return nil
}
