package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 公开的 Ed25519 PeerID 示例
const knownPeer = "12D3KooWD3eckifWpRn9wQpMG9R9hX3sD158z7EqHWmweQAJU5SA"

func TestDecode(t *testing.T) {
	id, err := Decode(knownPeer)
	require.NoError(t, err)
	assert.Equal(t, knownPeer, id.String())
	assert.NoError(t, id.Validate())

	key, ok := id.InlinePublicKey()
	require.True(t, ok)
	// protobuf PublicKey{Type=Ed25519, Data=<32 bytes>}
	assert.Len(t, key, 36)
	assert.Equal(t, []byte{0x08, 0x01, 0x12, 0x20}, key[:4])
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("")
	assert.ErrorIs(t, err, ErrEmptyPeerID)

	_, err = Decode("0OIl")
	assert.ErrorIs(t, err, ErrInvalidPeerID)

	// 长度声明与实际不符
	_, err = IDFromBytes([]byte{0x00, 0x05, 0x01})
	assert.ErrorIs(t, err, ErrInvalidPeerID)
}

func TestEncodeMultihash(t *testing.T) {
	mh := EncodeMultihash(MultihashSHA256, make([]byte, 32))
	assert.Equal(t, byte(0x12), mh[0])
	assert.Equal(t, byte(0x20), mh[1])

	id, err := IDFromBytes(mh)
	require.NoError(t, err)
	_, ok := id.InlinePublicKey()
	assert.False(t, ok)
	assert.Equal(t, "Qm", id.String()[:2])
}

func TestPeerID_Text(t *testing.T) {
	id, err := Decode(knownPeer)
	require.NoError(t, err)

	data, err := json.Marshal(map[string]PeerID{"peer": id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"peer":"`+knownPeer+`"}`, string(data))

	var back PeerID
	require.NoError(t, back.UnmarshalText([]byte(knownPeer)))
	assert.Equal(t, id, back)
}

func TestShortString(t *testing.T) {
	id, err := Decode(knownPeer)
	require.NoError(t, err)
	assert.Equal(t, "12*AJU5SA", id.ShortString())
	assert.True(t, EmptyPeerID.IsEmpty())
}
