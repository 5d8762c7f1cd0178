// Package multiaddr 实现自描述网络地址（multiaddr）的编解码
//
// 字符串形式如 /ip4/127.0.0.1/tcp/4001/p2p/12D3KooW...，
// 二进制形式为 <varint 协议代码><值> 的序列，与 libp2p 线格式一致。
package multiaddr

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Multiaddr 是自描述的网络地址接口
type Multiaddr interface {
	// Bytes 返回二进制表示（不要修改返回的字节）
	Bytes() []byte

	// String 返回字符串表示
	String() string

	// Equal 判断两个地址是否相等
	Equal(Multiaddr) bool

	// Protocols 返回地址包含的协议列表
	Protocols() []Protocol

	// Encapsulate 在末尾追加另一个地址
	Encapsulate(Multiaddr) Multiaddr

	// Decapsulate 移除最后一次出现的 other 及其之后的部分
	Decapsulate(Multiaddr) Multiaddr

	// ValueForProtocol 获取指定协议代码的值
	ValueForProtocol(code int) (string, error)
}

type multiaddr struct {
	bytes []byte
}

// NewMultiaddr 从字符串创建多地址
func NewMultiaddr(s string) (Multiaddr, error) {
	b, err := stringToBytes(s)
	if err != nil {
		return nil, err
	}
	return &multiaddr{bytes: b}, nil
}

// NewMultiaddrBytes 从字节创建多地址
func NewMultiaddrBytes(b []byte) (Multiaddr, error) {
	if err := validateBytes(b); err != nil {
		return nil, err
	}
	buf := make([]byte, len(b))
	copy(buf, b)
	return &multiaddr{bytes: buf}, nil
}

// StringCast 解析已知有效的地址，失败时 panic
func StringCast(s string) Multiaddr {
	m, err := NewMultiaddr(s)
	if err != nil {
		panic(fmt.Errorf("multiaddr: %q: %w", s, err))
	}
	return m
}

func (m *multiaddr) Bytes() []byte {
	return m.bytes
}

func (m *multiaddr) String() string {
	s, err := bytesToString(m.bytes)
	if err != nil {
		// 构造时已验证
		panic(fmt.Errorf("multiaddr failed to convert to string: %w", err))
	}
	return s
}

func (m *multiaddr) Equal(other Multiaddr) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(m.bytes, other.Bytes())
}

func (m *multiaddr) Protocols() []Protocol {
	var ps []Protocol
	ForEach(m, func(c Component) bool {
		ps = append(ps, c.proto)
		return true
	})
	return ps
}

func (m *multiaddr) Encapsulate(other Multiaddr) Multiaddr {
	if other == nil {
		return m
	}
	ob := other.Bytes()
	out := make([]byte, 0, len(m.bytes)+len(ob))
	out = append(out, m.bytes...)
	out = append(out, ob...)
	return &multiaddr{bytes: out}
}

func (m *multiaddr) Decapsulate(other Multiaddr) Multiaddr {
	if other == nil {
		return m
	}
	ob := other.Bytes()

	// 只在组件边界上匹配
	offsets := make([]int, 0, 4)
	b := m.bytes
	pos := 0
	for pos < len(b) {
		offsets = append(offsets, pos)
		_, _, n, err := readComponent(b[pos:])
		if err != nil {
			return m
		}
		pos += n
	}
	for i := len(offsets) - 1; i >= 0; i-- {
		off := offsets[i]
		if bytes.HasPrefix(b[off:], ob) {
			if off == 0 {
				return nil
			}
			return &multiaddr{bytes: append([]byte(nil), b[:off]...)}
		}
	}
	return m
}

func (m *multiaddr) ValueForProtocol(code int) (string, error) {
	var (
		found bool
		value string
		err   error
	)
	ForEach(m, func(c Component) bool {
		if c.proto.Code != code {
			return true
		}
		found = true
		value, err = c.ValueString()
		return false
	})
	if !found {
		return "", fmt.Errorf("%w: code %d", ErrProtocolNotFound, code)
	}
	return value, err
}

// MarshalText 实现 encoding.TextMarshaler
func (m *multiaddr) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (m *multiaddr) UnmarshalText(data []byte) error {
	b, err := stringToBytes(string(data))
	if err != nil {
		return err
	}
	m.bytes = b
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (m *multiaddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 实现 json.Unmarshaler
func (m *multiaddr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(s))
}
