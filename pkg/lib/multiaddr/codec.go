package multiaddr

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/multiformats/go-varint"
)

// readUvarint 读取最小编码的 uvarint
func readUvarint(b []byte) (uint64, int, error) {
	return varint.FromUvarint(b)
}

// readComponent 读取一个组件
// 返回：(协议, 值字节, 消费的字节数, 错误)
func readComponent(b []byte) (Protocol, []byte, int, error) {
	code, n, err := readUvarint(b)
	if err != nil {
		return Protocol{}, nil, 0, fmt.Errorf("%w: protocol code: %v", ErrInvalidMultiaddr, err)
	}
	if code > math.MaxInt32 {
		return Protocol{}, nil, 0, fmt.Errorf("%w: protocol code %d overflows", ErrInvalidMultiaddr, code)
	}
	proto := ProtocolWithCode(int(code))
	if proto.Code == 0 {
		return Protocol{}, nil, 0, fmt.Errorf("%w: code %d", ErrUnknownProtocol, code)
	}

	var size int
	switch {
	case proto.Size == 0:
		return proto, nil, n, nil
	case proto.Size == LengthPrefixedVarSize:
		length, m, err := readUvarint(b[n:])
		if err != nil {
			return Protocol{}, nil, 0, fmt.Errorf("%w: length of %s: %v", ErrInvalidMultiaddr, proto.Name, err)
		}
		n += m
		if length > uint64(len(b)) {
			return Protocol{}, nil, 0, fmt.Errorf("%w: %s value truncated", ErrInvalidMultiaddr, proto.Name)
		}
		size = int(length)
	default:
		size = proto.Size / 8
	}

	if len(b)-n < size {
		return Protocol{}, nil, 0, fmt.Errorf("%w: %s needs %d bytes, have %d", ErrInvalidMultiaddr, proto.Name, size, len(b)-n)
	}
	value := b[n : n+size]
	if err := proto.Transcoder.ValidateBytes(value); err != nil {
		return Protocol{}, nil, 0, fmt.Errorf("%w: %s: %v", ErrInvalidMultiaddr, proto.Name, err)
	}
	return proto, value, n + size, nil
}

// stringToBytes 将多地址字符串转换为二进制格式
func stringToBytes(s string) ([]byte, error) {
	s = strings.TrimRight(s, "/")
	if s == "" {
		return nil, fmt.Errorf("%w: empty multiaddr", ErrInvalidMultiaddr)
	}
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("%w: must begin with /", ErrInvalidMultiaddr)
	}

	var buf bytes.Buffer
	parts := strings.Split(s, "/")[1:]
	for len(parts) > 0 {
		name := parts[0]
		proto := ProtocolWithName(name)
		if proto.Code == 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, name)
		}
		buf.Write(proto.VCode)
		parts = parts[1:]

		if proto.Size == 0 {
			continue
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("%w: protocol %s requires a value", ErrInvalidMultiaddr, name)
		}

		value := parts[0]
		parts = parts[1:]
		if proto.Path {
			value = "/" + strings.Join(append([]string{value}, parts...), "/")
			parts = nil
		}

		vb, err := proto.Transcoder.StringToBytes(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMultiaddr, name, err)
		}
		if proto.Size == LengthPrefixedVarSize {
			buf.Write(varint.ToUvarint(uint64(len(vb))))
		} else if len(vb) != proto.Size/8 {
			return nil, fmt.Errorf("%w: %s value has %d bytes", ErrInvalidMultiaddr, name, len(vb))
		}
		buf.Write(vb)
	}
	return buf.Bytes(), nil
}

// bytesToString 将二进制格式的多地址转换为字符串
func bytesToString(b []byte) (string, error) {
	if len(b) == 0 {
		return "", fmt.Errorf("%w: empty multiaddr", ErrInvalidMultiaddr)
	}

	var sb strings.Builder
	for len(b) > 0 {
		proto, value, n, err := readComponent(b)
		if err != nil {
			return "", err
		}
		b = b[n:]

		sb.WriteByte('/')
		sb.WriteString(proto.Name)
		if proto.Size == 0 {
			continue
		}
		vs, err := proto.Transcoder.BytesToString(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidMultiaddr, proto.Name, err)
		}
		if !proto.Path {
			sb.WriteByte('/')
		}
		sb.WriteString(vs)
	}
	return sb.String(), nil
}

// validateBytes 验证二进制多地址的格式
func validateBytes(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty multiaddr", ErrInvalidMultiaddr)
	}
	for len(b) > 0 {
		_, _, n, err := readComponent(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
