package multiaddr

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/mr-tron/base58/base58"
)

// Transcoder 定义协议值在字符串与字节之间的转换
type Transcoder interface {
	StringToBytes(string) ([]byte, error)
	BytesToString([]byte) (string, error)
	ValidateBytes([]byte) error
}

type transcoderFuncs struct {
	s2b func(string) ([]byte, error)
	b2s func([]byte) (string, error)
	val func([]byte) error
}

func (t transcoderFuncs) StringToBytes(s string) ([]byte, error) { return t.s2b(s) }
func (t transcoderFuncs) BytesToString(b []byte) (string, error) { return t.b2s(b) }

func (t transcoderFuncs) ValidateBytes(b []byte) error {
	if t.val == nil {
		return nil
	}
	return t.val(b)
}

// ============================================================================
//                              IP / 端口
// ============================================================================

var TranscoderIP4 Transcoder = transcoderFuncs{
	s2b: func(s string) ([]byte, error) {
		ip := net.ParseIP(s).To4()
		if ip == nil {
			return nil, fmt.Errorf("failed to parse ip4 addr: %s", s)
		}
		return []byte(ip), nil
	},
	b2s: func(b []byte) (string, error) {
		if len(b) != net.IPv4len {
			return "", fmt.Errorf("invalid ip4 length: %d", len(b))
		}
		return net.IP(b).String(), nil
	},
}

var TranscoderIP6 Transcoder = transcoderFuncs{
	s2b: func(s string) ([]byte, error) {
		ip := net.ParseIP(s).To16()
		if ip == nil {
			return nil, fmt.Errorf("failed to parse ip6 addr: %s", s)
		}
		return []byte(ip), nil
	},
	b2s: func(b []byte) (string, error) {
		if len(b) != net.IPv6len {
			return "", fmt.Errorf("invalid ip6 length: %d", len(b))
		}
		ip := net.IP(b)
		if ip4 := ip.To4(); ip4 != nil {
			return "::ffff:" + ip4.String(), nil
		}
		return ip.String(), nil
	},
}

var TranscoderPort Transcoder = transcoderFuncs{
	s2b: func(s string) ([]byte, error) {
		port, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("failed to parse port: %w", err)
		}
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(port))
		return b, nil
	},
	b2s: func(b []byte) (string, error) {
		if len(b) != 2 {
			return "", fmt.Errorf("invalid port length: %d", len(b))
		}
		return strconv.Itoa(int(binary.BigEndian.Uint16(b))), nil
	},
}

// ============================================================================
//                              文本值
// ============================================================================

func validateText(b []byte) error {
	if len(b) == 0 {
		return errors.New("invalid length (should be > 0)")
	}
	if strings.Contains(string(b), "/") {
		return fmt.Errorf("value contains '/': %s", string(b))
	}
	return nil
}

// TranscoderText 用于 dns/ip6zone/sni 等不含 '/' 的文本值
var TranscoderText Transcoder = transcoderFuncs{
	s2b: func(s string) ([]byte, error) {
		b := []byte(s)
		if err := validateText(b); err != nil {
			return nil, err
		}
		return b, nil
	},
	b2s: func(b []byte) (string, error) {
		if err := validateText(b); err != nil {
			return "", err
		}
		return string(b), nil
	},
	val: validateText,
}

var TranscoderUnix Transcoder = transcoderFuncs{
	s2b: func(s string) ([]byte, error) {
		if s == "" {
			return nil, errors.New("empty unix path")
		}
		return []byte(s), nil
	},
	b2s: func(b []byte) (string, error) {
		if len(b) == 0 {
			return "", errors.New("empty unix path")
		}
		return string(b), nil
	},
}

// ============================================================================
//                              P2P / certhash
// ============================================================================

// TranscoderP2P 在 base58 字符串与原始 multihash 字节之间转换
var TranscoderP2P Transcoder = transcoderFuncs{
	s2b: func(s string) ([]byte, error) {
		if s == "" {
			return nil, errors.New("empty peer ID")
		}
		b, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse p2p addr %q: %w", s, err)
		}
		if err := validateMultihash(b); err != nil {
			return nil, err
		}
		return b, nil
	},
	b2s: func(b []byte) (string, error) {
		if err := validateMultihash(b); err != nil {
			return "", err
		}
		return base58.Encode(b), nil
	},
	val: validateMultihash,
}

// validateMultihash 只检查 <code><len><digest> 结构
func validateMultihash(b []byte) error {
	if len(b) < 2 {
		return errors.New("invalid peer ID length")
	}
	_, n, err := readUvarint(b)
	if err != nil {
		return fmt.Errorf("invalid multihash code: %w", err)
	}
	length, m, err := readUvarint(b[n:])
	if err != nil {
		return fmt.Errorf("invalid multihash length: %w", err)
	}
	if uint64(len(b)-n-m) != length {
		return fmt.Errorf("multihash length mismatch: declared %d, have %d", length, len(b)-n-m)
	}
	return nil
}

// TranscoderCertHash 使用 multibase base64url（前缀 'u'）表示
var TranscoderCertHash Transcoder = transcoderFuncs{
	s2b: func(s string) ([]byte, error) {
		if len(s) < 2 || s[0] != 'u' {
			return nil, fmt.Errorf("unsupported certhash encoding: %s", s)
		}
		b, err := base64.RawURLEncoding.DecodeString(s[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode certhash: %w", err)
		}
		return b, validateMultihash(b)
	},
	b2s: func(b []byte) (string, error) {
		if err := validateMultihash(b); err != nil {
			return "", err
		}
		return "u" + base64.RawURLEncoding.EncodeToString(b), nil
	},
	val: validateMultihash,
}
