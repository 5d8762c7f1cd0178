package rendezvous

import (
	"encoding/binary"
	"fmt"
)

// Cookie 发现分页游标
//
// 线路格式为 8 字节大端注册序号，后接命名空间（发现全部命名空间时为空）。
// 持有 cookie 的下一次发现只返回序号更大的注册。
type Cookie struct {
	ID        uint64
	Namespace string
}

// Bytes 编码 cookie
func (c Cookie) Bytes() []byte {
	b := make([]byte, 8+len(c.Namespace))
	binary.BigEndian.PutUint64(b, c.ID)
	copy(b[8:], c.Namespace)
	return b
}

// ParseCookie 解码 cookie
func ParseCookie(b []byte) (Cookie, error) {
	if len(b) < 8 {
		return Cookie{}, fmt.Errorf("%w: %d bytes", ErrInvalidCookie, len(b))
	}
	return Cookie{
		ID:        binary.BigEndian.Uint64(b[:8]),
		Namespace: string(b[8:]),
	}, nil
}
