package rendezvous

import (
	"bytes"
	"io"
	"testing"

	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMessage_Register(t *testing.T) {
	msg := &Message{
		Type: Message_REGISTER,
		Register: &Message_Register{
			Ns:               "test-namespace",
			SignedPeerRecord: []byte("signed-record"),
			Ttl:              Uint64(7200),
		},
	}

	var decoded Message
	require.NoError(t, decoded.Unmarshal(msg.Marshal()))
	assert.Equal(t, Message_REGISTER, decoded.Type)
	require.NotNil(t, decoded.Register)
	assert.Equal(t, "test-namespace", decoded.Register.Ns)
	assert.Equal(t, []byte("signed-record"), decoded.Register.SignedPeerRecord)
	assert.Equal(t, uint64(7200), decoded.Register.GetTtl())
}

// TestMessage_OptionalFields 未设置的可选字段解码后仍为未设置
func TestMessage_OptionalFields(t *testing.T) {
	msg := &Message{
		Type:     Message_DISCOVER,
		Discover: &Message_Discover{},
	}

	var decoded Message
	require.NoError(t, decoded.Unmarshal(msg.Marshal()))
	require.NotNil(t, decoded.Discover)
	assert.Nil(t, decoded.Discover.Limit)
	assert.Nil(t, decoded.Discover.Cookie)
	assert.Empty(t, decoded.Discover.Ns)

	reg := &Message{Type: Message_REGISTER, Register: &Message_Register{Ns: "a"}}
	require.NoError(t, decoded.Unmarshal(reg.Marshal()))
	assert.Nil(t, decoded.Register.Ttl)
	assert.Zero(t, decoded.Register.GetTtl())
}

func TestMessage_DiscoverResponse(t *testing.T) {
	msg := &Message{
		Type: Message_DISCOVER_RESPONSE,
		DiscoverResponse: &Message_DiscoverResponse{
			Registrations: []*Message_Register{
				{Ns: "a", SignedPeerRecord: []byte{1}, Ttl: Uint64(10)},
				{Ns: "b", SignedPeerRecord: []byte{2}, Ttl: Uint64(20)},
			},
			Cookie: []byte{0, 0, 0, 0, 0, 0, 0, 2, 'a'},
			Status: Message_OK,
		},
	}

	var decoded Message
	require.NoError(t, decoded.Unmarshal(msg.Marshal()))
	resp := decoded.DiscoverResponse
	require.NotNil(t, resp)
	require.Len(t, resp.Registrations, 2)
	assert.Equal(t, "b", resp.Registrations[1].Ns)
	assert.Equal(t, uint64(20), resp.Registrations[1].GetTtl())
	assert.Equal(t, msg.DiscoverResponse.Cookie, resp.Cookie)
	assert.Equal(t, Message_OK, resp.Status)
}

// TestRegisterResponse_ErrorOmitsTtl 失败响应不带 ttl
func TestRegisterResponse_ErrorOmitsTtl(t *testing.T) {
	resp := &Message_RegisterResponse{
		Status:     Message_E_NOT_AUTHORIZED,
		StatusText: "not authorized",
		Ttl:        99,
	}
	b := resp.marshal()
	assert.NotContains(t, string(b), string(protowire.AppendTag(nil, 3, protowire.VarintType)))

	var decoded Message
	require.NoError(t, decoded.Unmarshal((&Message{Type: Message_REGISTER_RESPONSE, RegisterResponse: resp}).Marshal()))
	assert.Equal(t, Message_E_NOT_AUTHORIZED, decoded.RegisterResponse.Status)
	assert.Equal(t, "not authorized", decoded.RegisterResponse.StatusText)
	assert.Zero(t, decoded.RegisterResponse.Ttl)
}

func TestUnmarshal_Invalid(t *testing.T) {
	var m Message
	assert.ErrorIs(t, m.Unmarshal([]byte{0x0a}), ErrInvalidMessage)

	// type 字段用了 bytes 类型
	bad := protowire.AppendTag(nil, 1, protowire.BytesType)
	bad = protowire.AppendBytes(bad, []byte("x"))
	assert.ErrorIs(t, m.Unmarshal(bad), ErrInvalidMessage)

	// 未知字段被跳过
	unknown := protowire.AppendTag(nil, 15, protowire.Fixed32Type)
	unknown = protowire.AppendFixed32(unknown, 7)
	unknown = protowire.AppendTag(unknown, 1, protowire.VarintType)
	unknown = protowire.AppendVarint(unknown, uint64(Message_DISCOVER))
	require.NoError(t, m.Unmarshal(unknown))
	assert.Equal(t, Message_DISCOVER, m.Type)
}

func TestReadWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	in := &Message{Type: Message_UNREGISTER, Unregister: &Message_Unregister{Ns: "ns"}}
	require.NoError(t, WriteMessage(&buf, in))
	require.NoError(t, WriteMessage(&buf, &Message{Type: Message_DISCOVER, Discover: &Message_Discover{Limit: Uint64(5)}}))

	// 非 ByteReader 的流也能逐条读取
	r := io.MultiReader(&buf)
	first, err := ReadMessage(r, 0)
	require.NoError(t, err)
	assert.Equal(t, "ns", first.Unregister.Ns)

	second, err := ReadMessage(r, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), second.Discover.GetLimit())

	_, err = ReadMessage(r, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessage_TooLarge(t *testing.T) {
	frame := varint.ToUvarint(1024)
	_, err := ReadMessage(bytes.NewReader(frame), 16)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "E_INVALID_COOKIE", Message_E_INVALID_COOKIE.String())
	assert.Equal(t, "ResponseStatus(7)", Message_ResponseStatus(7).String())
	assert.Equal(t, "DISCOVER_RESPONSE", Message_DISCOVER_RESPONSE.String())
}
