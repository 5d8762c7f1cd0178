package rendezvous

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrInvalidMessage 表示无法解析的消息
var ErrInvalidMessage = errors.New("invalid rendezvous message")

// ============================================================================
//                              编码
// ============================================================================

// Marshal 序列化消息
func (m *Message) Marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Type))
	if m.Register != nil {
		b = appendMessage(b, 2, m.Register.marshal())
	}
	if m.RegisterResponse != nil {
		b = appendMessage(b, 3, m.RegisterResponse.marshal())
	}
	if m.Unregister != nil {
		b = appendMessage(b, 4, m.Unregister.marshal())
	}
	if m.Discover != nil {
		b = appendMessage(b, 5, m.Discover.marshal())
	}
	if m.DiscoverResponse != nil {
		b = appendMessage(b, 6, m.DiscoverResponse.marshal())
	}
	return b
}

func (r *Message_Register) marshal() []byte {
	var b []byte
	if r.Ns != "" {
		b = appendString(b, 1, r.Ns)
	}
	if r.SignedPeerRecord != nil {
		b = appendBytes(b, 2, r.SignedPeerRecord)
	}
	if r.Ttl != nil {
		b = appendVarint(b, 3, *r.Ttl)
	}
	return b
}

func (r *Message_RegisterResponse) marshal() []byte {
	b := appendVarint(nil, 1, uint64(r.Status))
	if r.StatusText != "" {
		b = appendString(b, 2, r.StatusText)
	}
	if r.Status == Message_OK {
		b = appendVarint(b, 3, r.Ttl)
	}
	return b
}

func (u *Message_Unregister) marshal() []byte {
	var b []byte
	if u.Ns != "" {
		b = appendString(b, 1, u.Ns)
	}
	if u.Id != nil {
		b = appendBytes(b, 2, u.Id)
	}
	return b
}

func (d *Message_Discover) marshal() []byte {
	var b []byte
	if d.Ns != "" {
		b = appendString(b, 1, d.Ns)
	}
	if d.Limit != nil {
		b = appendVarint(b, 2, *d.Limit)
	}
	if d.Cookie != nil {
		b = appendBytes(b, 3, d.Cookie)
	}
	return b
}

func (d *Message_DiscoverResponse) marshal() []byte {
	var b []byte
	for _, r := range d.Registrations {
		b = appendMessage(b, 1, r.marshal())
	}
	if d.Cookie != nil || d.Status == Message_OK {
		b = appendBytes(b, 2, d.Cookie)
	}
	b = appendVarint(b, 3, uint64(d.Status))
	if d.StatusText != "" {
		b = appendString(b, 4, d.StatusText)
	}
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, v []byte) []byte {
	return appendBytes(b, num, v)
}

// ============================================================================
//                              解码
// ============================================================================

// field 一个已解析的字段
type field struct {
	num    protowire.Number
	typ    protowire.Type
	bytes  []byte
	varint uint64
}

// parseFields 逐个回调字段，未知类型的字段跳过
func parseFields(data []byte, fn func(f field) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, protowire.ParseError(n))
		}
		data = data[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return fmt.Errorf("%w: %v", ErrInvalidMessage, protowire.ParseError(m))
			}
			f.varint = v
			n = m
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return fmt.Errorf("%w: %v", ErrInvalidMessage, protowire.ParseError(m))
			}
			f.bytes = v
			n = m
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return fmt.Errorf("%w: %v", ErrInvalidMessage, protowire.ParseError(m))
			}
			data = data[m:]
			continue
		}
		data = data[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// wrongType 字段号已知但线路类型不符
func wrongType(f field) error {
	return fmt.Errorf("%w: field %d has wire type %d", ErrInvalidMessage, f.num, f.typ)
}

// Unmarshal 解析消息
func (m *Message) Unmarshal(data []byte) error {
	*m = Message{}
	return parseFields(data, func(f field) error {
		if f.num == 1 {
			if f.typ != protowire.VarintType {
				return wrongType(f)
			}
			m.Type = Message_MessageType(int32(f.varint))
			return nil
		}
		if f.num < 2 || f.num > 6 {
			return nil
		}
		if f.typ != protowire.BytesType {
			return wrongType(f)
		}

		var err error
		switch f.num {
		case 2:
			m.Register, err = unmarshalRegister(f.bytes)
		case 3:
			m.RegisterResponse, err = unmarshalRegisterResponse(f.bytes)
		case 4:
			m.Unregister, err = unmarshalUnregister(f.bytes)
		case 5:
			m.Discover, err = unmarshalDiscover(f.bytes)
		case 6:
			m.DiscoverResponse, err = unmarshalDiscoverResponse(f.bytes)
		}
		return err
	})
}

func unmarshalRegister(data []byte) (*Message_Register, error) {
	r := &Message_Register{}
	err := parseFields(data, func(f field) error {
		switch {
		case f.num == 1 && f.typ == protowire.BytesType:
			r.Ns = string(f.bytes)
		case f.num == 2 && f.typ == protowire.BytesType:
			r.SignedPeerRecord = append([]byte{}, f.bytes...)
		case f.num == 3 && f.typ == protowire.VarintType:
			r.Ttl = Uint64(f.varint)
		case f.num >= 1 && f.num <= 3:
			return wrongType(f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func unmarshalRegisterResponse(data []byte) (*Message_RegisterResponse, error) {
	r := &Message_RegisterResponse{}
	err := parseFields(data, func(f field) error {
		switch {
		case f.num == 1 && f.typ == protowire.VarintType:
			r.Status = Message_ResponseStatus(int32(f.varint))
		case f.num == 2 && f.typ == protowire.BytesType:
			r.StatusText = string(f.bytes)
		case f.num == 3 && f.typ == protowire.VarintType:
			r.Ttl = f.varint
		case f.num >= 1 && f.num <= 3:
			return wrongType(f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func unmarshalUnregister(data []byte) (*Message_Unregister, error) {
	u := &Message_Unregister{}
	err := parseFields(data, func(f field) error {
		switch {
		case f.num == 1 && f.typ == protowire.BytesType:
			u.Ns = string(f.bytes)
		case f.num == 2 && f.typ == protowire.BytesType:
			u.Id = append([]byte{}, f.bytes...)
		case f.num >= 1 && f.num <= 2:
			return wrongType(f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func unmarshalDiscover(data []byte) (*Message_Discover, error) {
	d := &Message_Discover{}
	err := parseFields(data, func(f field) error {
		switch {
		case f.num == 1 && f.typ == protowire.BytesType:
			d.Ns = string(f.bytes)
		case f.num == 2 && f.typ == protowire.VarintType:
			d.Limit = Uint64(f.varint)
		case f.num == 3 && f.typ == protowire.BytesType:
			d.Cookie = append([]byte{}, f.bytes...)
		case f.num >= 1 && f.num <= 3:
			return wrongType(f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func unmarshalDiscoverResponse(data []byte) (*Message_DiscoverResponse, error) {
	d := &Message_DiscoverResponse{}
	err := parseFields(data, func(f field) error {
		switch {
		case f.num == 1 && f.typ == protowire.BytesType:
			r, err := unmarshalRegister(f.bytes)
			if err != nil {
				return err
			}
			d.Registrations = append(d.Registrations, r)
		case f.num == 2 && f.typ == protowire.BytesType:
			d.Cookie = append([]byte{}, f.bytes...)
		case f.num == 3 && f.typ == protowire.VarintType:
			d.Status = Message_ResponseStatus(int32(f.varint))
		case f.num == 4 && f.typ == protowire.BytesType:
			d.StatusText = string(f.bytes)
		case f.num >= 1 && f.num <= 4:
			return wrongType(f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
