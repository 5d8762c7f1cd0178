package multiaddr

import "strings"

// Component 表示多地址中的单个 <协议, 值> 组件
type Component struct {
	proto Protocol
	value []byte
	raw   []byte
}

// Protocol 返回组件的协议
func (c Component) Protocol() Protocol {
	return c.proto
}

// RawValue 返回值的原始字节
func (c Component) RawValue() []byte {
	return c.value
}

// ValueString 返回值的字符串形式
func (c Component) ValueString() (string, error) {
	if c.proto.Size == 0 {
		return "", nil
	}
	return c.proto.Transcoder.BytesToString(c.value)
}

// Multiaddr 将单个组件作为多地址返回
func (c Component) Multiaddr() Multiaddr {
	return &multiaddr{bytes: c.raw}
}

// ForEach 遍历多地址中的每个组件，回调返回 false 时停止
func ForEach(m Multiaddr, fn func(Component) bool) {
	if m == nil {
		return
	}
	b := m.Bytes()
	for len(b) > 0 {
		proto, value, n, err := readComponent(b)
		if err != nil {
			return
		}
		if !fn(Component{proto: proto, value: value, raw: b[:n]}) {
			return
		}
		b = b[n:]
	}
}

// SplitFirst 分离第一个组件和剩余部分，剩余为空时返回 nil
func SplitFirst(m Multiaddr) (Component, Multiaddr) {
	var (
		first Component
		ok    bool
	)
	ForEach(m, func(c Component) bool {
		first, ok = c, true
		return false
	})
	if !ok {
		return Component{}, nil
	}
	rest := m.Bytes()[len(first.raw):]
	if len(rest) == 0 {
		return first, nil
	}
	return first, &multiaddr{bytes: rest}
}

// SplitLast 分离最后一个组件和之前部分，之前为空时返回 nil
func SplitLast(m Multiaddr) (Multiaddr, Component) {
	var (
		last Component
		ok   bool
		off  int
		pos  int
	)
	ForEach(m, func(c Component) bool {
		last, ok, off = c, true, pos
		pos += len(c.raw)
		return true
	})
	if !ok {
		return nil, Component{}
	}
	if off == 0 {
		return nil, last
	}
	return &multiaddr{bytes: m.Bytes()[:off]}, last
}

// HasProtocol 检查多地址是否包含指定协议
func HasProtocol(m Multiaddr, code int) bool {
	found := false
	ForEach(m, func(c Component) bool {
		found = c.proto.Code == code
		return !found
	})
	return found
}

// Join 依次封装多个地址
func Join(addrs ...Multiaddr) Multiaddr {
	var out []byte
	for _, a := range addrs {
		if a != nil {
			out = append(out, a.Bytes()...)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &multiaddr{bytes: out}
}

// JoinStrings 将地址列表格式化为逗号分隔的字符串
func JoinStrings(addrs []Multiaddr) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a != nil {
			parts = append(parts, a.String())
		}
	}
	return strings.Join(parts, ",")
}
