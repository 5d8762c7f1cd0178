package rendezvous

import (
	"errors"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"
)

// MaxMessageSize 单条消息的最大长度
const MaxMessageSize = 1 << 20

// ErrMessageTooLarge 消息长度超过上限
var ErrMessageTooLarge = errors.New("rendezvous message too large")

// WriteMessage 以 uvarint 长度前缀写出消息
func WriteMessage(w io.Writer, m *Message) error {
	body := m.Marshal()
	buf := make([]byte, 0, varint.UvarintSize(uint64(len(body)))+len(body))
	buf = append(buf, varint.ToUvarint(uint64(len(body)))...)
	buf = append(buf, body...)
	_, err := w.Write(buf)
	return err
}

// ReadMessage 读取一条长度前缀消息
//
// maxSize 不大于 0 时使用 MaxMessageSize。
func ReadMessage(r io.Reader, maxSize int) (*Message, error) {
	if maxSize <= 0 {
		maxSize = MaxMessageSize
	}

	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}
	size, err := varint.ReadUvarint(br)
	if err != nil {
		return nil, err
	}
	if size > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, size, maxSize)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	m := &Message{}
	if err := m.Unmarshal(body); err != nil {
		return nil, err
	}
	return m, nil
}

// byteReader 逐字节读取，不预读消息体
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(b.r, b.buf[:])
	return b.buf[0], err
}
