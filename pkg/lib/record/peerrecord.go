package record

import (
	"bytes"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/rendezvous-server/pkg/lib/crypto"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// PeerRecordDomain 节点记录信封的签名域
const PeerRecordDomain = "libp2p-routing-state"

// 节点记录的 payload type
//
// go 实现使用 multicodec 0x0301，rust 实现使用字符串形式，两者都接受。
var (
	PeerRecordPayloadType       = []byte{0x03, 0x01}
	PeerRecordPayloadTypeString = []byte("/libp2p/routing-state-record")
)

// PeerRecord 节点记录
type PeerRecord struct {
	PeerID types.PeerID
	Seq    uint64
	Addrs  []multiaddr.Multiaddr
}

// Marshal 序列化节点记录
func (r *PeerRecord) Marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, r.PeerID.Bytes())
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, r.Seq)
	for _, a := range r.Addrs {
		info := protowire.AppendTag(nil, 1, protowire.BytesType)
		info = protowire.AppendBytes(info, a.Bytes())
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, info)
	}
	return b
}

// UnmarshalPeerRecord 解析节点记录
func UnmarshalPeerRecord(data []byte) (*PeerRecord, error) {
	r := &PeerRecord{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPeerRecord, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPeerRecord, protowire.ParseError(m))
			}
			id, err := types.IDFromBytes(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPeerRecord, err)
			}
			r.PeerID = id
			n = m
		case num == 2 && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPeerRecord, protowire.ParseError(m))
			}
			r.Seq = v
			n = m
		case num == 3 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPeerRecord, protowire.ParseError(m))
			}
			addr, err := unmarshalAddressInfo(v)
			if err != nil {
				return nil, err
			}
			r.Addrs = append(r.Addrs, addr)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPeerRecord, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}
	if r.PeerID.IsEmpty() {
		return nil, fmt.Errorf("%w: missing peer id", ErrInvalidPeerRecord)
	}
	return r, nil
}

func unmarshalAddressInfo(data []byte) (multiaddr.Multiaddr, error) {
	var addr multiaddr.Multiaddr
	err := walk(data, func(num protowire.Number, v []byte) {
		if num != 1 || addr != nil {
			return
		}
		a, err := multiaddr.NewMultiaddrBytes(v)
		if err == nil {
			addr = a
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeerRecord, err)
	}
	if addr == nil {
		return nil, fmt.Errorf("%w: invalid address", ErrInvalidPeerRecord)
	}
	return addr, nil
}

// ============================================================================
//                              签名节点记录
// ============================================================================

// SealPeerRecord 签名节点记录并返回序列化后的信封
func SealPeerRecord(priv crypto.PrivateKey, r *PeerRecord) ([]byte, error) {
	if err := crypto.VerifyPeerID(priv.GetPublic(), r.PeerID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignerMismatch, err)
	}
	env, err := Seal(priv, PeerRecordDomain, PeerRecordPayloadType, r.Marshal())
	if err != nil {
		return nil, err
	}
	return env.Marshal()
}

// ConsumePeerRecord 校验信封签名、payload type 与签名者身份，返回记录
func ConsumePeerRecord(data []byte) (*Envelope, *PeerRecord, error) {
	env, err := ConsumeEnvelope(data, PeerRecordDomain)
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(env.PayloadType, PeerRecordPayloadType) &&
		!bytes.Equal(env.PayloadType, PeerRecordPayloadTypeString) {
		return nil, nil, fmt.Errorf("%w: %x", ErrPayloadTypeMismatch, env.PayloadType)
	}
	rec, err := UnmarshalPeerRecord(env.Payload)
	if err != nil {
		return nil, nil, err
	}
	if err := crypto.VerifyPeerID(env.PublicKey, rec.PeerID); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSignerMismatch, err)
	}
	return env, rec, nil
}
