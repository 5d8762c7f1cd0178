// Package noise 包含 Noise 握手 payload 的 protobuf 编解码
//
// 与 libp2p-noise 规范的 NoiseHandshakePayload 消息一致：
//
//	message NoiseExtensions {
//	    repeated bytes webtransport_certhashes = 1;
//	    repeated string stream_muxers = 2;
//	}
//	message NoiseHandshakePayload {
//	    bytes identity_key = 1;
//	    bytes identity_sig = 2;
//	    NoiseExtensions extensions = 4;
//	}
package noise

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrInvalidPayload 表示无效的 payload 数据
var ErrInvalidPayload = errors.New("invalid noise payload data")

// NoiseExtensions 握手扩展数据
type NoiseExtensions struct {
	WebtransportCerthashes [][]byte
	StreamMuxers           []string
}

// NoiseHandshakePayload 握手 payload
//
//   - IdentityKey: protobuf 编码的身份公钥
//   - IdentitySig: Sign("noise-libp2p-static-key:" + X25519 静态公钥)
type NoiseHandshakePayload struct {
	IdentityKey []byte
	IdentitySig []byte
	Extensions  *NoiseExtensions
}

// Marshal 序列化
func (p *NoiseHandshakePayload) Marshal() ([]byte, error) {
	var b []byte
	if len(p.IdentityKey) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, p.IdentityKey)
	}
	if len(p.IdentitySig) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, p.IdentitySig)
	}
	if p.Extensions != nil {
		var ext []byte
		for _, h := range p.Extensions.WebtransportCerthashes {
			ext = protowire.AppendTag(ext, 1, protowire.BytesType)
			ext = protowire.AppendBytes(ext, h)
		}
		for _, m := range p.Extensions.StreamMuxers {
			ext = protowire.AppendTag(ext, 2, protowire.BytesType)
			ext = protowire.AppendString(ext, m)
		}
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, ext)
	}
	return b, nil
}

// Unmarshal 反序列化，未知字段静默忽略
func (p *NoiseHandshakePayload) Unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case 1:
			p.IdentityKey = append([]byte(nil), v...)
		case 2:
			p.IdentitySig = append([]byte(nil), v...)
		case 4:
			ext := &NoiseExtensions{}
			if err := walk(v, func(num protowire.Number, typ protowire.Type, v []byte) error {
				if typ != protowire.BytesType {
					return nil
				}
				switch num {
				case 1:
					ext.WebtransportCerthashes = append(ext.WebtransportCerthashes, append([]byte(nil), v...))
				case 2:
					ext.StreamMuxers = append(ext.StreamMuxers, string(v))
				}
				return nil
			}); err != nil {
				return err
			}
			p.Extensions = ext
		}
		return nil
	})
}

// walk 逐字段遍历，length-delimited 字段的值通过 v 传入
func walk(data []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, protowire.ParseError(n))
		}
		data = data[n:]

		var v []byte
		if typ == protowire.BytesType {
			v, n = protowire.ConsumeBytes(data)
		} else {
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, protowire.ParseError(n))
		}
		data = data[n:]

		if err := fn(num, typ, v); err != nil {
			return err
		}
	}
	return nil
}
