// Package record 实现签名信封（signed envelope）与节点记录（peer record）
//
// 信封的签名覆盖 varint 长度前缀的 domain、payload type 与 payload，
// 与 libp2p RFC 0002 一致。
package record

import (
	"bytes"
	"fmt"

	"github.com/multiformats/go-varint"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/rendezvous-server/pkg/lib/crypto"
)

// Envelope protobuf 字段号
const (
	fieldPublicKey   = 1
	fieldPayloadType = 2
	fieldPayload     = 3
	fieldSignature   = 5
)

// Envelope 签名信封
type Envelope struct {
	PublicKey   crypto.PublicKey
	PayloadType []byte
	Payload     []byte
	Signature   []byte
}

// Seal 用私钥签名 payload 生成信封
func Seal(priv crypto.PrivateKey, domain string, payloadType, payload []byte) (*Envelope, error) {
	if domain == "" {
		return nil, ErrEmptyDomain
	}
	sig, err := priv.Sign(signingBuffer(domain, payloadType, payload))
	if err != nil {
		return nil, fmt.Errorf("sign envelope: %w", err)
	}
	return &Envelope{
		PublicKey:   priv.GetPublic(),
		PayloadType: payloadType,
		Payload:     payload,
		Signature:   sig,
	}, nil
}

// Marshal 序列化信封
func (e *Envelope) Marshal() ([]byte, error) {
	key, err := crypto.MarshalPublicKey(e.PublicKey)
	if err != nil {
		return nil, err
	}
	b := protowire.AppendTag(nil, fieldPublicKey, protowire.BytesType)
	b = protowire.AppendBytes(b, key)
	b = protowire.AppendTag(b, fieldPayloadType, protowire.BytesType)
	b = protowire.AppendBytes(b, e.PayloadType)
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Payload)
	b = protowire.AppendTag(b, fieldSignature, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Signature)
	return b, nil
}

// UnmarshalEnvelope 解析信封但不校验签名
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var (
		e      Envelope
		rawKey []byte
	)
	err := walk(data, func(num protowire.Number, v []byte) {
		switch num {
		case fieldPublicKey:
			rawKey = v
		case fieldPayloadType:
			e.PayloadType = append([]byte(nil), v...)
		case fieldPayload:
			e.Payload = append([]byte(nil), v...)
		case fieldSignature:
			e.Signature = append([]byte(nil), v...)
		}
	})
	if err != nil {
		return nil, err
	}
	if rawKey == nil {
		return nil, fmt.Errorf("%w: missing public key", ErrInvalidEnvelope)
	}
	e.PublicKey, err = crypto.UnmarshalPublicKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return &e, nil
}

// ConsumeEnvelope 解析信封并在 domain 下校验签名
func ConsumeEnvelope(data []byte, domain string) (*Envelope, error) {
	e, err := UnmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}
	if err := e.Verify(domain); err != nil {
		return nil, err
	}
	return e, nil
}

// Verify 在 domain 下校验签名
func (e *Envelope) Verify(domain string) error {
	if domain == "" {
		return ErrEmptyDomain
	}
	ok, err := e.PublicKey.Verify(signingBuffer(domain, e.PayloadType, e.Payload), e.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

func signingBuffer(domain string, payloadType, payload []byte) []byte {
	var buf bytes.Buffer
	for _, part := range [][]byte{[]byte(domain), payloadType, payload} {
		buf.Write(varint.ToUvarint(uint64(len(part))))
		buf.Write(part)
	}
	return buf.Bytes()
}

// walk 遍历 length-delimited 字段，其余字段跳过
func walk(data []byte, fn func(protowire.Number, []byte)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidEnvelope, protowire.ParseError(n))
		}
		data = data[n:]
		if typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return fmt.Errorf("%w: %v", ErrInvalidEnvelope, protowire.ParseError(m))
			}
			fn(num, v)
			data = data[m:]
			continue
		}
		m := protowire.ConsumeFieldValue(num, typ, data)
		if m < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidEnvelope, protowire.ParseError(m))
		}
		data = data[m:]
	}
	return nil
}
