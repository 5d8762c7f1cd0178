package crypto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ============================================================================
//                              序列化格式
// ============================================================================

// protobuf 字段号
const (
	fieldKeyType = 1
	fieldKeyData = 2
)

// MarshalPublicKey 按 libp2p PublicKey protobuf 消息序列化公钥
func MarshalPublicKey(key PublicKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNilPublicKey
	}
	raw, err := key.Raw()
	if err != nil {
		return nil, err
	}
	b := protowire.AppendTag(nil, fieldKeyType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(key.Type()))
	b = protowire.AppendTag(b, fieldKeyData, protowire.BytesType)
	b = protowire.AppendBytes(b, raw)
	return b, nil
}

// UnmarshalPublicKey 从 protobuf 编码还原公钥
func UnmarshalPublicKey(data []byte) (PublicKey, error) {
	var (
		keyType KeyType
		hasType bool
		raw     []byte
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnmarshalFailed, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldKeyType && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrUnmarshalFailed, protowire.ParseError(m))
			}
			keyType, hasType = KeyType(v), true
			n = m
		case num == fieldKeyData && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrUnmarshalFailed, protowire.ParseError(m))
			}
			raw = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrUnmarshalFailed, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}
	if !hasType {
		return nil, fmt.Errorf("%w: missing key type", ErrUnmarshalFailed)
	}
	return UnmarshalPublicKeyRaw(keyType, raw)
}

// UnmarshalPublicKeyRaw 按类型解析原始公钥字节
func UnmarshalPublicKeyRaw(keyType KeyType, raw []byte) (PublicKey, error) {
	switch keyType {
	case KeyTypeEd25519:
		return UnmarshalEd25519PublicKey(raw)
	case KeyTypeSecp256k1:
		return UnmarshalSecp256k1PublicKey(raw)
	case KeyTypeECDSA:
		return UnmarshalECDSAPublicKey(raw)
	case KeyTypeRSA:
		return UnmarshalRSAPublicKey(raw)
	default:
		return nil, fmt.Errorf("%w: %v", ErrBadKeyType, keyType)
	}
}
